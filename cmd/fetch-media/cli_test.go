package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"fetchmedia/internal/catalog"
	"fetchmedia/internal/config"
	"fetchmedia/internal/engine"
	"fetchmedia/internal/history"
	"fetchmedia/internal/report"
	"fetchmedia/internal/testsupport"
)

type stubCatalog struct {
	listing *catalog.Listing
}

func (s stubCatalog) Resolve(context.Context, string) (*catalog.Listing, error) {
	if s.listing == nil {
		return nil, errors.New("video unavailable")
	}
	return s.listing, nil
}

func (s stubCatalog) Fetch(_ context.Context, d catalog.Descriptor, dst io.Writer) (int64, error) {
	n, err := io.WriteString(dst, "bytes-of-"+d.ID)
	return int64(n), err
}

type writingRunner struct{}

func (writingRunner) Run(_ context.Context, cmd engine.Command) (engine.Output, error) {
	return engine.Output{}, os.WriteFile(cmd.Args[len(cmd.Args)-1], []byte("merged"), 0o644)
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	catalog    stubCatalog
	catalogErr error
}

func sampleListing() *catalog.Listing {
	return &catalog.Listing{
		Metadata: catalog.Metadata{ID: "abc123", Title: "Sample Clip", Author: "Uploader", Duration: 61 * time.Second, Views: 7},
		Descriptors: []catalog.Descriptor{
			{ID: "v1080", Kind: catalog.KindVideoOnly, Label: "1080p", Height: 1080, FPS: 60, Codec: "avc1", Container: "mp4"},
			{ID: "v720", Kind: catalog.KindVideoOnly, Label: "720p", Height: 720, FPS: 30, Codec: "avc1", Container: "mp4"},
			{ID: "a128", Kind: catalog.KindAudioOnly, Bitrate: 128000, Codec: "mp4a", Container: "m4a"},
		},
	}
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	home := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("PO_TOKEN", "")
	t.Setenv("VISITOR_DATA", "")

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, catalog: stubCatalog{listing: sampleListing()}}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommandWith(dependencies{
		newCatalog: func(*config.Config, *slog.Logger) (catalog.Catalog, error) {
			if e.catalogErr != nil {
				return nil, e.catalogErr
			}
			return e.catalog, nil
		},
		runner:     writingRunner{},
	})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func decodeResult(t *testing.T, out string) report.Result {
	t.Helper()
	var res report.Result
	dec := json.NewDecoder(strings.NewReader(out))
	if err := dec.Decode(&res); err != nil {
		t.Fatalf("decode result %q: %v", out, err)
	}
	if dec.More() {
		t.Fatalf("expected exactly one record on stdout, got %q", out)
	}
	return res
}

func TestDownloadCommandSuccess(t *testing.T) {
	env := setupCLITestEnv(t)
	outDir := t.TempDir()

	out, stderr, err := env.run(t, "download", "abc123", "--output", outDir, "--filename", "clip")
	if err != nil {
		t.Fatalf("download: %v (stderr %s)", err, stderr)
	}
	res := decodeResult(t, out)
	if !res.Success || res.Quality != "1080p" || res.Path != filepath.Join(outDir, "clip.mp4") {
		t.Fatalf("unexpected result %+v", res)
	}
	requireContains(t, stderr, "download complete")
}

func TestDownloadCommandHistoricalFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	outDir := t.TempDir()

	out, _, err := env.run(t, "download", "--url", "https://www.youtube.com/watch?v=abc123", "-o", outDir, "-f", "song", "--format", "mp3")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	res := decodeResult(t, out)
	if !res.Success || filepath.Ext(res.Path) != ".mp3" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDownloadCommandFailureExitsNonZero(t *testing.T) {
	env := setupCLITestEnv(t)
	env.catalog = stubCatalog{}

	out, _, err := env.run(t, "download", "abc123", "--output", t.TempDir(), "--filename", "clip")
	if !errors.Is(err, errReported) {
		t.Fatalf("expected errReported, got %v", err)
	}
	res := decodeResult(t, out)
	if res.Success || res.ErrorKind != "extraction_error" || res.Error == "" {
		t.Fatalf("unexpected failure record %+v", res)
	}
}

func TestDownloadCommandMissingFilename(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := env.run(t, "download", "abc123", "--output", t.TempDir())
	if !errors.Is(err, errReported) {
		t.Fatalf("expected errReported, got %v", err)
	}
	if res := decodeResult(t, out); res.ErrorKind != "invalid_request" {
		t.Fatalf("unexpected record %+v", res)
	}
}

func TestInfoAndQualitiesCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "info", "abc123")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	var info report.Info
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if !info.Success || info.Title != "Sample Clip" || info.Duration != 61 {
		t.Fatalf("unexpected info %+v", info)
	}
	requireContains(t, out, `"success": true`)

	out, _, err = env.run(t, "qualities", "abc123")
	if err != nil {
		t.Fatalf("qualities: %v", err)
	}
	requireContains(t, out, `"success": true`)

	out, _, err = env.run(t, "qualities", "abc123", "--table")
	if err != nil {
		t.Fatalf("qualities: %v", err)
	}
	requireContains(t, out, "1080p")
	requireContains(t, out, "720p")
	requireContains(t, out, "60")
}

func TestInfoAndQualitiesFailuresPrintRecord(t *testing.T) {
	env := setupCLITestEnv(t)
	env.catalog = stubCatalog{}

	for _, command := range []string{"info", "qualities"} {
		out, _, err := env.run(t, command, "missing")
		if !errors.Is(err, errReported) {
			t.Fatalf("%s: expected errReported, got %v", command, err)
		}
		res := decodeResult(t, out)
		if res.Success || res.ErrorKind != "extraction_error" {
			t.Fatalf("%s: unexpected failure record %+v", command, res)
		}
		requireContains(t, res.Error, "video unavailable")
		requireContains(t, out, `"success": false`)
	}
}

func TestServiceSetupFailuresPrintRecord(t *testing.T) {
	env := setupCLITestEnv(t)
	env.catalogErr = errors.New("invalid proxy url")

	for _, args := range [][]string{
		{"info", "abc123"},
		{"qualities", "abc123"},
		{"download", "abc123", "--output", t.TempDir(), "--filename", "clip"},
	} {
		out, _, err := env.run(t, args...)
		if !errors.Is(err, errReported) {
			t.Fatalf("%s: expected errReported, got %v", args[0], err)
		}
		res := decodeResult(t, out)
		if res.Success {
			t.Fatalf("%s: expected failure record, got %+v", args[0], res)
		}
		requireContains(t, res.Error, "invalid proxy url")
	}
}

func TestBrokenConfigStillPrintsRecord(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[engine\nbroken"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := env.run(t, "info", "abc123")
	if !errors.Is(err, errReported) {
		t.Fatalf("expected errReported, got %v", err)
	}
	if res := decodeResult(t, out); res.Success || res.Error == "" {
		t.Fatalf("unexpected record %+v", res)
	}
}

func TestHistoryCommandListsDownloads(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := env.run(t, "download", "abc123", "--output", t.TempDir(), "--filename", "clip"); err != nil {
		t.Fatalf("download: %v", err)
	}

	out, _, err := env.run(t, "history", "--limit", "5")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []history.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) != 1 || entries[0].Identifier != "abc123" || !entries[0].Success {
		t.Fatalf("unexpected history %+v", entries)
	}

	out, _, err = env.run(t, "history", "--table")
	if err != nil {
		t.Fatalf("history table: %v", err)
	}
	requireContains(t, out, "abc123")
}

func TestCleanCommandRemovesStaleArtifacts(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()
	stale := filepath.Join(dir, ".clip_video.mp4")
	fresh := filepath.Join(dir, ".other_audio.m4a")
	keep := filepath.Join(dir, "clip.mp4")
	namedLikeTemp := filepath.Join(dir, "holiday_video.mp4")
	for _, p := range []string{stale, fresh, keep, namedLikeTemp} {
		testsupport.WriteFile(t, p, 16)
	}
	old := time.Now().Add(-48 * time.Hour)
	for _, p := range []string{stale, keep, namedLikeTemp} {
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	out, _, err := env.run(t, "clean", "--dir", dir, "--older-than", "1h")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	requireContains(t, out, "Removed 1 stale file(s)")
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("stale artifact should be removed")
	}
	for _, p := range []string{fresh, keep, namedLikeTemp} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("%s should be kept: %v", p, err)
		}
	}
}

func TestDoctorCommand(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFFmpegScript("echo 'ffmpeg version 6.1'\n"))
	out, _, err := env.run(t, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v (%s)", err, out)
	}
	var rep doctorReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode doctor: %v", err)
	}
	if !rep.Healthy || len(rep.Dependencies) != 1 || !strings.Contains(rep.Dependencies[0].Detail, "ffmpeg version 6.1") {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestDoctorCommandReportsMissingFFmpeg(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Engine.FFmpegBinary = "clearly-not-present-ffmpeg"
	data, _ := toml.Marshal(env.cfg)
	if err := os.WriteFile(env.configPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := env.run(t, "doctor", "--table")
	if !errors.Is(err, errReported) {
		t.Fatalf("expected errReported, got %v", err)
	}
	requireContains(t, out, "FAIL")
	requireContains(t, out, "Healthy: false")
}

func TestConfigInitAndPath(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite without --overwrite")
	}
	if _, _, _, err := config.Load(target); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}
