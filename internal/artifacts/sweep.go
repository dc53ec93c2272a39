package artifacts

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"fetchmedia/internal/logging"
)

// IsRunArtifact reports whether a file name belongs to the hidden namespace
// runs write into: .base_video.*, .base_audio.*, .base_intermediate.* or a
// .base.lock file. Finals never start with a dot, so a final named
// holiday_video.mp4 is not a run artifact.
func IsRunArtifact(name string) bool {
	if !strings.HasPrefix(name, ".") {
		return false
	}
	hidden := strings.TrimPrefix(name, ".")
	if hidden == "" || strings.HasPrefix(hidden, ".") {
		return false
	}
	if stem, ok := strings.CutSuffix(hidden, ".lock"); ok {
		return stem != ""
	}
	stem := strings.TrimSuffix(hidden, filepath.Ext(hidden))
	if stem == hidden {
		return false
	}
	for _, role := range []Role{RoleVideo, RoleAudio, RoleIntermediate} {
		suffix := "_" + string(role)
		if strings.HasSuffix(stem, suffix) && len(stem) > len(suffix) {
			return true
		}
	}
	return false
}

// CleanStale removes run artifacts in dir older than maxAge. Lock files still
// held by a live run are skipped, as are temporaries whose run is still live.
func CleanStale(ctx context.Context, dir string, maxAge time.Duration, logger *slog.Logger) CleanupResult {
	result := CleanupResult{}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}
	logger = logging.NewComponentLogger(logger, "artifacts")

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if entry.IsDir() || !IsRunArtifact(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		var removeErr error
		if isLockName(entry.Name()) {
			var held bool
			held, removeErr = removeUnheldLock(path)
			if held {
				continue
			}
		} else {
			if ownerLive(dir, entry.Name()) {
				continue
			}
			removeErr = os.Remove(path)
		}
		if removeErr != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: removeErr})
			logging.WarnWithContext(logger, "failed to remove stale artifact", "artifact_sweep_failed",
				logging.String("path", path),
				logging.Error(removeErr),
				logging.String(logging.FieldErrorHint, "check destination directory permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.Info("removed stale artifact",
			logging.String("path", path),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "artifact_sweep"),
		)
	}
	return result
}

func isLockName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".lock")
}

// ownerLive reports whether the run that would own a temporary still holds its
// base-name lock.
func ownerLive(dir, name string) bool {
	stem := strings.TrimSuffix(strings.TrimPrefix(name, "."), filepath.Ext(name))
	idx := strings.LastIndex(stem, "_")
	if idx <= 0 {
		return false
	}
	path := LockPath(dir, stem[:idx])
	if _, err := os.Stat(path); err != nil {
		return false
	}
	check := flock.New(path)
	ok, err := check.TryLock()
	if err != nil || !ok {
		return true
	}
	_ = check.Unlock()
	return false
}

// removeUnheldLock unlinks a lock file while holding it, so no run can be
// mid-acquire on the inode being removed. held is true when a live run owns it.
func removeUnheldLock(path string) (held bool, err error) {
	check := flock.New(path)
	ok, err := check.TryLock()
	if err != nil || !ok {
		return true, nil
	}
	defer check.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return false, err
	}
	return false, nil
}
