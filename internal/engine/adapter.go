package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"fetchmedia/internal/artifacts"
	"fetchmedia/internal/fileutil"
	"fetchmedia/internal/logging"
	"fetchmedia/internal/selection"
	"fetchmedia/internal/services"
)

const stage = "merge"

// Settings configures the engine invocations.
type Settings struct {
	Binary      string
	Timeout     time.Duration
	AudioCodec  string
	VideoCodec  string
	VideoPreset string
	MP3Quality  int
	FastStart   bool
}

// Tags are written into the output container when present.
type Tags struct {
	Title  string
	Artist string
}

// Adapter turns retrieved artifacts into the single final artifact.
type Adapter struct {
	runner   Runner
	tracker  *artifacts.Tracker
	settings Settings
	logger   *slog.Logger
}

// New constructs an Adapter. A nil runner uses ExecRunner.
func New(runner Runner, tracker *artifacts.Tracker, settings Settings, logger *slog.Logger) *Adapter {
	if runner == nil {
		runner = ExecRunner{}
	}
	if settings.Binary == "" {
		settings.Binary = "ffmpeg"
	}
	if settings.AudioCodec == "" {
		settings.AudioCodec = "aac"
	}
	if settings.VideoCodec == "" {
		settings.VideoCodec = "libx264"
	}
	if settings.VideoPreset == "" {
		settings.VideoPreset = "fast"
	}
	return &Adapter{
		runner:   runner,
		tracker:  tracker,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "engine"),
	}
}

// Produce builds dir/base.<ext> from the retrieved artifacts. Progressive
// plans are renamed without invoking the engine, audio-only plans get one
// conversion pass, and split plans are multiplexed with a stream-copy attempt
// followed by a re-encode attempt.
func (a *Adapter) Produce(ctx context.Context, plan selection.Plan, inputs map[artifacts.Role]artifacts.Artifact, dir, base string, tags Tags) (artifacts.Artifact, error) {
	ctx = services.WithStage(ctx, stage)
	switch plan.Variant {
	case selection.VariantProgressive:
		return a.promoteProgressive(ctx, plan, inputs, dir, base)
	case selection.VariantAudioOnly:
		return a.convertAudio(ctx, inputs, dir, base, tags)
	case selection.VariantSplit:
		return a.mergeSplit(ctx, inputs, dir, base, tags)
	default:
		return artifacts.Artifact{}, services.Wrap(services.ErrNoStream, stage, "produce", "plan has no descriptors", nil)
	}
}

func (a *Adapter) promoteProgressive(ctx context.Context, plan selection.Plan, inputs map[artifacts.Role]artifacts.Artifact, dir, base string) (artifacts.Artifact, error) {
	input, ok := inputs[artifacts.RoleVideo]
	if !ok {
		return artifacts.Artifact{}, services.Wrap(services.ErrMerge, stage, "rename", "progressive artifact missing", nil)
	}
	final, err := a.tracker.Promote(input.Path, artifacts.FinalPath(dir, base, plan.Video.Container))
	if err != nil {
		return artifacts.Artifact{}, services.Wrap(services.ErrMerge, stage, "rename", "", err)
	}
	logging.WithContext(ctx, a.logger).Info("progressive artifact renamed",
		logging.String("path", final.Path),
		logging.String(logging.FieldEventType, "merge_skipped"),
	)
	return final, nil
}

func (a *Adapter) convertAudio(ctx context.Context, inputs map[artifacts.Role]artifacts.Artifact, dir, base string, tags Tags) (artifacts.Artifact, error) {
	input, ok := inputs[artifacts.RoleAudio]
	if !ok {
		return artifacts.Artifact{}, services.Wrap(services.ErrMerge, stage, "convert", "audio artifact missing", nil)
	}
	logger := logging.WithContext(ctx, a.logger)
	output := a.tracker.Track(artifacts.RoleIntermediate, artifacts.TempPath(dir, base, artifacts.RoleIntermediate, "mp3")).Path

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", input.Path, "-vn", "-acodec", "libmp3lame", "-q:a", strconv.Itoa(a.settings.MP3Quality)}
	args = append(args, tags.args()...)
	args = append(args, output)

	out, err := a.run(ctx, args)
	if isTimeout(ctx, err) {
		return artifacts.Artifact{}, services.Wrap(services.ErrTimeout, stage, "convert", fmt.Sprintf("engine exceeded %s", a.settings.Timeout), err)
	}
	_, produced, statErr := fileutil.NonEmpty(output)
	if statErr != nil {
		return artifacts.Artifact{}, services.Wrap(services.ErrMerge, stage, "convert", "stat output", statErr)
	}
	if !produced {
		return artifacts.Artifact{}, mergeError("convert", out, err)
	}
	if err != nil {
		logging.WarnWithContext(logger, "audio conversion exited non-zero but produced output", "convert_nonzero_exit",
			logging.Error(err),
			logging.String("diagnostics", out.Diagnostics()),
			logging.String(logging.FieldErrorHint, "inspect the converted file"),
			logging.String(logging.FieldImpact, "output kept"),
		)
	}
	return a.promote(ctx, output, artifacts.FinalPath(dir, base, "mp3"))
}

func (a *Adapter) mergeSplit(ctx context.Context, inputs map[artifacts.Role]artifacts.Artifact, dir, base string, tags Tags) (artifacts.Artifact, error) {
	video, okV := inputs[artifacts.RoleVideo]
	audio, okA := inputs[artifacts.RoleAudio]
	if !okV || !okA {
		return artifacts.Artifact{}, services.Wrap(services.ErrMerge, stage, "merge", "split plan requires video and audio artifacts", nil)
	}
	logger := logging.WithContext(ctx, a.logger)
	output := a.tracker.Track(artifacts.RoleIntermediate, artifacts.TempPath(dir, base, artifacts.RoleIntermediate, "mp4")).Path

	out, err := a.run(ctx, a.copyArgs(video.Path, audio.Path, output, tags))
	if isTimeout(ctx, err) {
		return artifacts.Artifact{}, services.Wrap(services.ErrTimeout, stage, "stream copy", fmt.Sprintf("engine exceeded %s", a.settings.Timeout), err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return artifacts.Artifact{}, services.Wrap(services.ErrCanceled, stage, "stream copy", "", ctx.Err())
	}
	if err == nil {
		if _, ok, _ := fileutil.NonEmpty(output); ok {
			logger.Info("stream copy merge succeeded",
				logging.String("mode", "copy"),
				logging.String(logging.FieldEventType, "merge_complete"),
			)
			return a.promote(ctx, output, artifacts.FinalPath(dir, base, "mp4"))
		}
	}

	logging.WarnWithContext(logger, "stream copy merge failed; re-encoding video", "merge_fallback",
		logging.Error(errOrEmpty(err)),
		logging.String("diagnostics", out.Diagnostics()),
		logging.String(logging.FieldErrorHint, "source video codec may not fit the container"),
		logging.String(logging.FieldImpact, "merge takes longer"),
	)

	out, err = a.run(ctx, a.reencodeArgs(video.Path, audio.Path, output, tags))
	if isTimeout(ctx, err) {
		return artifacts.Artifact{}, services.Wrap(services.ErrTimeout, stage, "re-encode", fmt.Sprintf("engine exceeded %s", a.settings.Timeout), err)
	}
	if _, ok, _ := fileutil.NonEmpty(output); err != nil || !ok {
		return artifacts.Artifact{}, mergeError("re-encode", out, err)
	}
	logger.Info("re-encode merge succeeded",
		logging.String("mode", "reencode"),
		logging.String(logging.FieldEventType, "merge_complete"),
	)
	return a.promote(ctx, output, artifacts.FinalPath(dir, base, "mp4"))
}

func (a *Adapter) copyArgs(video, audio, output string, tags Tags) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error",
		"-i", video, "-i", audio,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy", "-c:a", a.settings.AudioCodec, "-strict", "experimental"}
	if a.settings.FastStart {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, tags.args()...)
	return append(args, output)
}

func (a *Adapter) reencodeArgs(video, audio, output string, tags Tags) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error",
		"-i", video, "-i", audio,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", a.settings.VideoCodec, "-preset", a.settings.VideoPreset,
		"-c:a", a.settings.AudioCodec}
	if a.settings.FastStart {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, tags.args()...)
	return append(args, output)
}

func (a *Adapter) run(ctx context.Context, args []string) (Output, error) {
	cmd := Command{Binary: a.settings.Binary, Args: args, Timeout: a.settings.Timeout}
	logging.WithContext(ctx, a.logger).Debug("running engine", logging.String("command", cmd.String()))
	return a.runner.Run(ctx, cmd)
}

func (a *Adapter) promote(ctx context.Context, from, to string) (artifacts.Artifact, error) {
	final, err := a.tracker.Promote(from, to)
	if err != nil {
		return artifacts.Artifact{}, services.Wrap(services.ErrMerge, stage, "finalize", "", err)
	}
	logging.WithContext(ctx, a.logger).Debug("final artifact written", logging.String("path", final.Path))
	return final, nil
}

func (t Tags) args() []string {
	var args []string
	if title := strings.TrimSpace(t.Title); title != "" {
		args = append(args, "-metadata", "title="+title)
	}
	if artist := strings.TrimSpace(t.Artist); artist != "" {
		args = append(args, "-metadata", "artist="+artist)
	}
	return args
}

func isTimeout(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

func mergeError(operation string, out Output, err error) error {
	message := "engine produced no output"
	if diag := out.Diagnostics(); diag != "" {
		message = message + ": " + diag
	}
	if err != nil && errors.Is(err, context.Canceled) {
		return services.Wrap(services.ErrCanceled, stage, operation, "", err)
	}
	return services.Wrap(services.ErrMerge, stage, operation, message, err)
}

func errOrEmpty(err error) error {
	if err == nil {
		return errors.New("output missing or empty")
	}
	return err
}
