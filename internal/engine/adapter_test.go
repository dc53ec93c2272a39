package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"fetchmedia/internal/artifacts"
	"fetchmedia/internal/catalog"
	"fetchmedia/internal/engine"
	"fetchmedia/internal/selection"
	"fetchmedia/internal/services"
)

// fakeRunner simulates the engine. Each call consumes the next behaviour; the
// output path is always the last argument.
type fakeRunner struct {
	mu        sync.Mutex
	behaviour []func(output string) (engine.Output, error)
	commands  []engine.Command
}

func (f *fakeRunner) Run(_ context.Context, cmd engine.Command) (engine.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	idx := len(f.commands) - 1
	if idx >= len(f.behaviour) {
		return engine.Output{}, errors.New("unexpected engine call")
	}
	return f.behaviour[idx](cmd.Args[len(cmd.Args)-1])
}

func succeed(content string) func(string) (engine.Output, error) {
	return func(output string) (engine.Output, error) {
		return engine.Output{}, os.WriteFile(output, []byte(content), 0o644)
	}
}

func failExit(stderr string, writePartial bool) func(string) (engine.Output, error) {
	return func(output string) (engine.Output, error) {
		if writePartial {
			_ = os.WriteFile(output, nil, 0o644)
		}
		return engine.Output{ExitCode: 1, Stderr: []byte(stderr)}, &engine.ExitError{Code: 1}
	}
}

func timeout() func(string) (engine.Output, error) {
	return func(string) (engine.Output, error) {
		return engine.Output{}, context.DeadlineExceeded
	}
}

type fixture struct {
	dir     string
	tracker *artifacts.Tracker
	inputs  map[artifacts.Role]artifacts.Artifact
}

func newSplitFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	tracker := artifacts.NewTracker(nil)
	inputs := map[artifacts.Role]artifacts.Artifact{}
	for role, ext := range map[artifacts.Role]string{artifacts.RoleVideo: "mp4", artifacts.RoleAudio: "m4a"} {
		path := artifacts.TempPath(dir, "clip", role, ext)
		inputs[role] = tracker.Track(role, path)
		if err := os.WriteFile(path, []byte(string(role)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return fixture{dir: dir, tracker: tracker, inputs: inputs}
}

var split = selection.Plan{
	Variant: selection.VariantSplit,
	Video:   catalog.Descriptor{ID: "137", Kind: catalog.KindVideoOnly, Label: "1080p", Container: "mp4"},
	Audio:   catalog.Descriptor{ID: "140", Kind: catalog.KindAudioOnly, Container: "m4a"},
}

func settings() engine.Settings {
	return engine.Settings{Binary: "ffmpeg", Timeout: time.Minute, FastStart: true}
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSplitStreamCopySucceeds(t *testing.T) {
	fx := newSplitFixture(t)
	runner := &fakeRunner{behaviour: []func(string) (engine.Output, error){succeed("copied")}}
	adapter := engine.New(runner, fx.tracker, settings(), nil)

	final, err := adapter.Produce(context.Background(), split, fx.inputs, fx.dir, "clip", engine.Tags{Title: "A Title", Artist: "Someone"})
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if final.Path != filepath.Join(fx.dir, "clip.mp4") || !final.Final {
		t.Fatalf("unexpected final artifact %+v", final)
	}
	if len(runner.commands) != 1 {
		t.Fatalf("expected one engine call, got %d", len(runner.commands))
	}
	args := runner.commands[0].Args
	for _, want := range []string{"copy", "+faststart", "title=A Title", "artist=Someone"} {
		if !slices.Contains(args, want) {
			t.Fatalf("expected %q in copy args %v", want, args)
		}
	}
	if runner.commands[0].Timeout != time.Minute {
		t.Fatalf("expected timeout carried on command, got %s", runner.commands[0].Timeout)
	}

	fx.tracker.Cleanup()
	if got := dirNames(t, fx.dir); !slices.Equal(got, []string{"clip.mp4"}) {
		t.Fatalf("expected exactly one final artifact, got %v", got)
	}
}

func TestSplitFallsBackToReencode(t *testing.T) {
	fx := newSplitFixture(t)
	runner := &fakeRunner{behaviour: []func(string) (engine.Output, error){
		failExit("codec not supported in container", true),
		succeed("reencoded"),
	}}
	adapter := engine.New(runner, fx.tracker, settings(), nil)

	final, err := adapter.Produce(context.Background(), split, fx.inputs, fx.dir, "clip", engine.Tags{})
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	data, err := os.ReadFile(final.Path)
	if err != nil || string(data) != "reencoded" {
		t.Fatalf("expected re-encoded output, got %q err=%v", data, err)
	}
	if len(runner.commands) != 2 {
		t.Fatalf("expected two engine calls, got %d", len(runner.commands))
	}
	second := runner.commands[1].Args
	if !slices.Contains(second, "libx264") || !slices.Contains(second, "fast") {
		t.Fatalf("expected re-encode args, got %v", second)
	}
	if runner.commands[0].Args[len(runner.commands[0].Args)-1] != second[len(second)-1] {
		t.Fatal("re-encode must overwrite the copy attempt output")
	}
}

func TestSplitReencodeWhenCopyLeavesEmptyOutput(t *testing.T) {
	fx := newSplitFixture(t)
	runner := &fakeRunner{behaviour: []func(string) (engine.Output, error){
		succeed(""),
		succeed("reencoded"),
	}}
	adapter := engine.New(runner, fx.tracker, settings(), nil)
	if _, err := adapter.Produce(context.Background(), split, fx.inputs, fx.dir, "clip", engine.Tags{}); err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if len(runner.commands) != 2 {
		t.Fatalf("expected fallback after empty output, got %d calls", len(runner.commands))
	}
}

func TestSplitBothAttemptsFail(t *testing.T) {
	fx := newSplitFixture(t)
	runner := &fakeRunner{behaviour: []func(string) (engine.Output, error){
		failExit("copy failed", true),
		failExit("line one\nencoder exploded", false),
	}}
	adapter := engine.New(runner, fx.tracker, settings(), nil)

	_, err := adapter.Produce(context.Background(), split, fx.inputs, fx.dir, "clip", engine.Tags{})
	if !errors.Is(err, services.ErrMerge) {
		t.Fatalf("expected merge error, got %v", err)
	}
	if !strings.Contains(err.Error(), "encoder exploded") {
		t.Fatalf("expected diagnostics from failing attempt, got %v", err)
	}

	fx.tracker.Cleanup()
	if got := dirNames(t, fx.dir); len(got) != 0 {
		t.Fatalf("expected no artifacts after failure, got %v", got)
	}
}

func TestSplitTimeoutFailsImmediately(t *testing.T) {
	fx := newSplitFixture(t)
	runner := &fakeRunner{behaviour: []func(string) (engine.Output, error){timeout()}}
	adapter := engine.New(runner, fx.tracker, settings(), nil)

	_, err := adapter.Produce(context.Background(), split, fx.inputs, fx.dir, "clip", engine.Tags{})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if len(runner.commands) != 1 {
		t.Fatalf("timeout must not trigger the re-encode attempt, got %d calls", len(runner.commands))
	}
}

func TestProgressiveRenamesWithoutEngine(t *testing.T) {
	dir := t.TempDir()
	tracker := artifacts.NewTracker(nil)
	path := artifacts.TempPath(dir, "clip", artifacts.RoleVideo, "mp4")
	input := tracker.Track(artifacts.RoleVideo, path)
	if err := os.WriteFile(path, []byte("both tracks"), 0o644); err != nil {
		t.Fatal(err)
	}
	runner := &fakeRunner{}
	adapter := engine.New(runner, tracker, settings(), nil)
	plan := selection.Plan{Variant: selection.VariantProgressive, Video: catalog.Descriptor{ID: "18", Kind: catalog.KindProgressive, Label: "360p", Container: "mp4"}}

	final, err := adapter.Produce(context.Background(), plan, map[artifacts.Role]artifacts.Artifact{artifacts.RoleVideo: input}, dir, "clip", engine.Tags{})
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if len(runner.commands) != 0 {
		t.Fatalf("engine must not be invoked for progressive plans")
	}
	if final.Path != filepath.Join(dir, "clip.mp4") {
		t.Fatalf("unexpected final path %q", final.Path)
	}
	tracker.Cleanup()
	if got := dirNames(t, dir); !slices.Equal(got, []string{"clip.mp4"}) {
		t.Fatalf("unexpected directory contents %v", got)
	}
}

func audioFixture(t *testing.T) (string, *artifacts.Tracker, map[artifacts.Role]artifacts.Artifact) {
	t.Helper()
	dir := t.TempDir()
	tracker := artifacts.NewTracker(nil)
	path := artifacts.TempPath(dir, "song", artifacts.RoleAudio, "m4a")
	input := tracker.Track(artifacts.RoleAudio, path)
	if err := os.WriteFile(path, []byte("aac"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, tracker, map[artifacts.Role]artifacts.Artifact{artifacts.RoleAudio: input}
}

var audioPlan = selection.Plan{Variant: selection.VariantAudioOnly, Audio: catalog.Descriptor{ID: "140", Kind: catalog.KindAudioOnly, Container: "m4a"}}

func TestAudioConversion(t *testing.T) {
	dir, tracker, inputs := audioFixture(t)
	runner := &fakeRunner{behaviour: []func(string) (engine.Output, error){succeed("mp3")}}
	adapter := engine.New(runner, tracker, settings(), nil)

	final, err := adapter.Produce(context.Background(), audioPlan, inputs, dir, "song", engine.Tags{})
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if final.Path != filepath.Join(dir, "song.mp3") {
		t.Fatalf("unexpected final path %q", final.Path)
	}
	args := runner.commands[0].Args
	for _, want := range []string{"-vn", "libmp3lame", "-q:a", "0"} {
		if !slices.Contains(args, want) {
			t.Fatalf("expected %q in %v", want, args)
		}
	}
}

func TestAudioConversionNonZeroExitWithOutputSucceeds(t *testing.T) {
	dir, tracker, inputs := audioFixture(t)
	runner := &fakeRunner{behaviour: []func(string) (engine.Output, error){
		func(output string) (engine.Output, error) {
			_ = os.WriteFile(output, []byte("mp3"), 0o644)
			return engine.Output{ExitCode: 1, Stderr: []byte("tag warning")}, &engine.ExitError{Code: 1}
		},
	}}
	adapter := engine.New(runner, tracker, settings(), nil)
	if _, err := adapter.Produce(context.Background(), audioPlan, inputs, dir, "song", engine.Tags{}); err != nil {
		t.Fatalf("expected success despite non-zero exit: %v", err)
	}
}

func TestAudioConversionWithoutOutputFails(t *testing.T) {
	dir, tracker, inputs := audioFixture(t)
	runner := &fakeRunner{behaviour: []func(string) (engine.Output, error){failExit("unknown encoder", false)}}
	adapter := engine.New(runner, tracker, settings(), nil)
	_, err := adapter.Produce(context.Background(), audioPlan, inputs, dir, "song", engine.Tags{})
	if !errors.Is(err, services.ErrMerge) {
		t.Fatalf("expected merge error, got %v", err)
	}
}

func TestCommandStringQuotesArguments(t *testing.T) {
	cmd := engine.Command{Binary: "ffmpeg", Args: []string{"-i", "/tmp/my clip.mp4", "-metadata", "title=It's"}}
	got := cmd.String()
	if !strings.Contains(got, `'/tmp/my clip.mp4'`) {
		t.Fatalf("expected quoted path in %q", got)
	}
	if !strings.HasPrefix(got, "ffmpeg -i ") {
		t.Fatalf("unexpected rendering %q", got)
	}
}
