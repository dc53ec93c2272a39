package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"fetchmedia/internal/fileutil"
	"fetchmedia/internal/logging"
)

// Tracker records every artifact a run creates and removes the non-final
// ones on Cleanup. It is safe for concurrent use by the retrieval goroutines.
type Tracker struct {
	mu      sync.Mutex
	entries []*entry
	logger  *slog.Logger
}

type entry struct {
	artifact Artifact
	removed  bool
}

// CleanupResult lists what a Cleanup call removed and what it could not.
type CleanupResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its removal error.
type CleanupError struct {
	Path  string
	Error error
}

// NewTracker constructs an empty tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{logger: logging.NewComponentLogger(logger, "artifacts")}
}

// Track registers path before anything is written to it. Registering the
// same path twice updates its role.
func (t *Tracker) Track(role Role, path string) Artifact {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.artifact.Path == path {
			e.artifact.Role = role
			e.removed = false
			return e.artifact
		}
	}
	e := &entry{artifact: Artifact{Path: path, Role: role}}
	t.entries = append(t.entries, e)
	return e.artifact
}

// Promote moves a tracked artifact onto the final path and marks it final.
// Whatever previously occupied the final path is replaced.
func (t *Tracker) Promote(from, to string) (Artifact, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var found *entry
	for _, e := range t.entries {
		if e.artifact.Path == from {
			found = e
			break
		}
	}
	if found == nil {
		return Artifact{}, fmt.Errorf("promote %s: artifact not tracked", from)
	}
	if err := fileutil.MoveFile(from, to); err != nil {
		return Artifact{}, fmt.Errorf("promote %s: %w", from, err)
	}
	found.artifact.Path = to
	found.artifact.Final = true
	return found.artifact, nil
}

// Artifacts returns a snapshot of every tracked artifact.
func (t *Tracker) Artifacts() []Artifact {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Artifact, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.artifact)
	}
	return out
}

// Cleanup removes every tracked non-final artifact. Missing files are not
// errors, a failed removal never blocks the others, and a second call is a
// no-op. Failures are logged as warnings and reported, never escalated.
func (t *Tracker) Cleanup() CleanupResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	var result CleanupResult
	for _, e := range t.entries {
		if e.artifact.Final || e.removed {
			continue
		}
		err := os.Remove(e.artifact.Path)
		switch {
		case err == nil:
			e.removed = true
			result.Removed = append(result.Removed, e.artifact.Path)
			t.logger.Debug("removed temporary artifact",
				logging.String("path", e.artifact.Path),
				logging.String("role", string(e.artifact.Role)),
			)
		case errors.Is(err, fs.ErrNotExist):
			e.removed = true
		default:
			result.Errors = append(result.Errors, CleanupError{Path: e.artifact.Path, Error: err})
			logging.WarnWithContext(t.logger, "failed to remove temporary artifact", "artifact_cleanup_failed",
				logging.String("path", e.artifact.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check destination directory permissions"),
				logging.String(logging.FieldImpact, "temporary file left on disk"),
			)
		}
	}
	return result
}
