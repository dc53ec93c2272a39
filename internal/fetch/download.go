package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"fetchmedia/internal/artifacts"
	"fetchmedia/internal/catalog"
	"fetchmedia/internal/config"
	"fetchmedia/internal/engine"
	"fetchmedia/internal/history"
	"fetchmedia/internal/logging"
	"fetchmedia/internal/preflight"
	"fetchmedia/internal/report"
	"fetchmedia/internal/retrieval"
	"fetchmedia/internal/selection"
	"fetchmedia/internal/services"
	"fetchmedia/internal/textutil"
)

// Request describes one download.
type Request struct {
	Identifier string
	OutputDir  string
	BaseName   string
	// Format accepts video|audio and the historical mp4|mp3 spellings.
	// Empty uses download.format.
	Format string
	// Quality is "highest" or a resolution label. Empty uses download.quality.
	Quality string
	// Policy overrides selection.policy when set.
	Policy string
}

type run struct {
	id       string
	started  time.Time
	request  Request
	format   selection.Format
	quality  string
	policy   selection.Policy
	dir      string
	base     string
	metadata catalog.Metadata
	plan     selection.Plan
	path     string
}

// Download runs identifier -> catalog -> selection -> retrieval -> engine and
// returns exactly one Result. Every non-final artifact is removed before it
// returns and it never panics.
func (s *Service) Download(ctx context.Context, req Request) (result report.Result) {
	r := &run{id: s.newRunID(), started: s.now(), request: req}
	ctx = services.WithRunID(ctx, r.id)
	ctx = services.WithIdentifier(ctx, strings.TrimSpace(req.Identifier))
	logger := logging.WithContext(ctx, s.logger)

	defer func() {
		if recovered := recover(); recovered != nil {
			logging.ErrorWithContext(logger, "download panicked", "download_panic",
				logging.String("panic", fmt.Sprint(recovered)),
				logging.String(logging.FieldErrorHint, "report this as a bug"),
			)
			result = report.Failure(fmt.Errorf("internal error: %v", recovered))
		}
		s.record(ctx, r, result)
	}()

	if err := s.download(ctx, r); err != nil {
		result = report.Failure(err)
		logging.ErrorWithContext(logger, "download failed", "download_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, result.ErrorKind),
			logging.String(logging.FieldErrorHint, hintFor(result.ErrorKind)),
		)
		return result
	}

	result = report.Success(r.path, r.metadata, r.plan)
	logger.Info("download complete",
		logging.String("path", result.Path),
		logging.String("quality", result.Quality),
		logging.Duration("elapsed", s.now().Sub(r.started)),
		logging.String(logging.FieldEventType, "download_complete"),
	)
	return result
}

func (s *Service) download(ctx context.Context, r *run) error {
	if err := s.prepare(r); err != nil {
		return err
	}
	if err := s.prepareDestination(r); err != nil {
		return err
	}

	listing, err := s.resolve(ctx, r.request.Identifier)
	if err != nil {
		return err
	}
	r.metadata = listing.Metadata

	opts, err := s.selectionOptions(string(r.policy))
	if err != nil {
		return err
	}
	r.plan = selection.Select(listing.Descriptors, selection.Request{Format: r.format, Quality: r.quality}, opts)
	s.logPlan(ctx, r)
	if r.plan.Empty() {
		return errorf(services.ErrNoStream, "selection", "select", "no %s stream for quality %q (%s)",
			r.format, r.quality, strings.Join(r.plan.Notes, "; "))
	}

	lock, err := artifacts.Acquire(r.dir, r.base)
	if err != nil {
		if errors.Is(err, artifacts.ErrLocked) {
			return services.Wrap(services.ErrInvalidRequest, "lock", "acquire", "another run is using this file name", err)
		}
		return services.Wrap(services.ErrRetrieval, "lock", "acquire", "", err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "run lock release failed", "lock_release_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the lock file manually or run fetch-media clean"),
				logging.String(logging.FieldImpact, "next run with this file name may fail"),
			)
		}
	}()

	tracker := artifacts.NewTracker(s.logger)
	defer tracker.Cleanup()

	inputs, err := retrieval.New(s.catalog, tracker, s.cfg.FetchTimeout(), s.logger).Retrieve(ctx, r.plan, r.dir, r.base)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return services.WrapContext(ctx, services.ErrCanceled, "retrieval", "wait", "", ctx.Err())
	}

	tags := engine.Tags{Title: r.metadata.Title, Artist: r.metadata.Author}
	final, err := engine.New(s.runner, tracker, s.engineSettings(), s.logger).Produce(ctx, r.plan, inputs, r.dir, r.base, tags)
	if err != nil {
		return err
	}
	r.path = final.Path
	return nil
}

// prepare validates the request and fills in configured defaults.
func (s *Service) prepare(r *run) error {
	req := r.request
	if strings.TrimSpace(req.Identifier) == "" {
		return errorf(services.ErrInvalidRequest, "request", "validate", "identifier is required")
	}
	if strings.TrimSpace(req.OutputDir) == "" {
		return errorf(services.ErrInvalidRequest, "request", "validate", "output directory is required")
	}
	r.base = textutil.SanitizeFileName(req.BaseName)
	if r.base == "" {
		return errorf(services.ErrInvalidRequest, "request", "validate", "file name %q is empty after sanitizing", req.BaseName)
	}

	format := req.Format
	if strings.TrimSpace(format) == "" {
		format = s.cfg.Download.Format
	}
	switch normalized := config.NormalizeFormat(format); normalized {
	case config.FormatVideo:
		r.format = selection.FormatVideo
	case config.FormatAudio:
		r.format = selection.FormatAudio
	default:
		return errorf(services.ErrInvalidRequest, "request", "validate", "unsupported format %q", req.Format)
	}

	r.quality = strings.TrimSpace(req.Quality)
	if r.quality == "" {
		r.quality = s.cfg.Download.Quality
	}
	if selection.IsHighest(r.quality) {
		r.quality = selection.QualityHighest
	}

	policy, err := selection.ParsePolicy(firstNonEmpty(req.Policy, s.cfg.Selection.Policy))
	if err != nil {
		return services.Wrap(services.ErrInvalidRequest, "request", "validate", "", err)
	}
	r.policy = policy
	return nil
}

// prepareDestination creates the output directory when missing and checks it
// can take the download.
func (s *Service) prepareDestination(r *run) error {
	dir, err := config.ExpandPath(strings.TrimSpace(r.request.OutputDir))
	if err != nil {
		return services.Wrap(services.ErrInvalidRequest, "request", "destination", "", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrInvalidRequest, "request", "destination", "create output directory", err)
	}
	if failed, ok := preflight.Failed(preflight.Destination(dir, s.cfg.Download.MinFreeMiB)); ok {
		return errorf(services.ErrInvalidRequest, "request", "destination", "%s: %s", failed.Name, failed.Detail)
	}
	r.dir = dir
	return nil
}

func (s *Service) logPlan(ctx context.Context, r *run) {
	logger := logging.WithContext(services.WithStage(ctx, "selection"), s.logger)
	for _, note := range r.plan.Notes {
		logger.Info("selection fallback", logging.Args(logging.DecisionAttrs("selection_fallback", string(r.plan.Variant), note)...)...)
	}
	if r.plan.Empty() {
		return
	}
	attrs := []logging.Attr{
		logging.String("variant", string(r.plan.Variant)),
		logging.String("requested_quality", r.quality),
		logging.String("quality", r.plan.Quality()),
		logging.String("policy", string(r.policy)),
	}
	if r.plan.Video.ID != "" {
		attrs = append(attrs, logging.String("video_descriptor", r.plan.Video.ID))
	}
	if r.plan.Audio.ID != "" {
		attrs = append(attrs, logging.String("audio_descriptor", r.plan.Audio.ID))
	}
	logger.Info("plan selected", logging.Args(attrs...)...)
}

func (s *Service) record(ctx context.Context, r *run, result report.Result) {
	if s.journal == nil {
		return
	}
	entry := history.Entry{
		RunID:            r.id,
		Identifier:       strings.TrimSpace(r.request.Identifier),
		Title:            firstNonEmpty(result.Title, r.metadata.Title),
		Format:           firstNonEmpty(string(r.format), r.request.Format),
		RequestedQuality: firstNonEmpty(r.quality, r.request.Quality),
		Quality:          result.Quality,
		Policy:           string(r.policy),
		Path:             result.Path,
		Success:          result.Success,
		ErrorKind:        result.ErrorKind,
		ErrorMessage:     result.Error,
		StartedAt:        r.started,
		FinishedAt:       s.now(),
	}
	// The journal write must not be skipped when the run was canceled.
	if _, err := s.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "history record failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.history_db"),
			logging.String(logging.FieldImpact, "download missing from history"),
		)
	}
}

func hintFor(kind string) string {
	switch kind {
	case services.KindExtraction:
		return "check the identifier and catalog credentials (cookie_file, po_token)"
	case services.KindNoStream:
		return "run the qualities command to list what is offered"
	case services.KindRetrieval:
		return "retry; rotate proxies or refresh po_token if it keeps failing"
	case services.KindMerge:
		return "inspect ffmpeg diagnostics"
	case services.KindTimeout:
		return "raise the matching timeout in the config"
	case services.KindInvalidRequest:
		return "fix the command arguments"
	case services.KindCanceled:
		return "run was interrupted"
	default:
		return "see logs"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
