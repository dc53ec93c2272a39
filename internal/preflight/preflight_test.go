package preflight

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"fetchmedia/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if r := CheckFreeSpace("space", dir, 0); !r.Passed {
		t.Fatalf("expected pass with zero threshold: %s", r.Detail)
	}
	if r := CheckFreeSpace("space", dir, math.MaxUint64); r.Passed {
		t.Fatal("expected failure with impossible threshold")
	}
	if r := CheckFreeSpace("space", filepath.Join(dir, "missing"), 0); r.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestDestinationStopsAtAccessFailure(t *testing.T) {
	results := Destination(filepath.Join(t.TempDir(), "nope"), 1)
	if len(results) != 1 {
		t.Fatalf("expected a single failing result, got %d", len(results))
	}
	if _, failed := Failed(results); !failed {
		t.Fatal("expected failure")
	}

	results = Destination(t.TempDir(), 0)
	if _, failed := Failed(results); failed {
		t.Fatalf("expected all checks to pass, got %+v", results)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results, statuses := RunAll(context.Background(), nil)
	if results != nil || statuses != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReportsFFmpegAndCookieFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Catalog.CookieFile = filepath.Join(t.TempDir(), "cookies.txt")
	cfg.Engine.FFmpegBinary = "clearly-not-present-ffmpeg"

	results, statuses := RunAll(context.Background(), &cfg)
	if len(results) != 2 {
		t.Fatalf("expected log dir and cookie checks, got %+v", results)
	}
	if !results[0].Passed {
		t.Fatalf("expected log dir to pass: %s", results[0].Detail)
	}
	if results[1].Passed {
		t.Fatal("expected missing cookie file to fail")
	}
	if len(statuses) != 1 || statuses[0].Available {
		t.Fatalf("expected unavailable ffmpeg, got %+v", statuses)
	}
}
