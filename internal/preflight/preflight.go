package preflight

import (
	"context"

	"fetchmedia/internal/config"
	"fetchmedia/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the first failing result, if any.
func Failed(results []Result) (Result, bool) {
	for _, r := range results {
		if !r.Passed {
			return r, true
		}
	}
	return Result{}, false
}

// Destination checks that a download destination is usable: it exists (or
// was just created), is writable, and has at least minFreeMiB available.
func Destination(dir string, minFreeMiB int) []Result {
	results := []Result{CheckDirectoryAccess("Destination directory", dir)}
	if !results[0].Passed {
		return results
	}
	return append(results, CheckFreeSpace("Destination free space", dir, uint64(max(minFreeMiB, 0))*1024*1024))
}

// RunAll executes the environment checks reported by the doctor command.
func RunAll(ctx context.Context, cfg *config.Config) ([]Result, []deps.Status) {
	if cfg == nil {
		return nil, nil
	}
	var results []Result
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	if cfg.Catalog.CookieFile != "" {
		results = append(results, CheckReadable("Cookie file", cfg.Catalog.CookieFile))
	}
	return results, deps.CheckBinaries(ctx, deps.EngineRequirements(cfg.Engine.FFmpegBinary))
}
