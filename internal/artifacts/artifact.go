package artifacts

import (
	"path/filepath"
	"strings"
)

// Role tags what a temporary artifact holds.
type Role string

const (
	RoleVideo        Role = "video"
	RoleAudio        Role = "audio"
	RoleIntermediate Role = "intermediate"
)

// Artifact is a file owned exclusively by the run that created it.
type Artifact struct {
	Path  string
	Role  Role
	Final bool
}

// TempPath names a run artifact: dir/.base_<role>.<ext>. The leading dot
// keeps temporaries out of the final-name space, which sanitized base names
// can never enter.
func TempPath(dir, base string, role Role, ext string) string {
	return filepath.Join(dir, "."+base+"_"+string(role)+"."+cleanExt(ext))
}

// FinalPath names the run output: dir/base.<ext>.
func FinalPath(dir, base, ext string) string {
	return filepath.Join(dir, base+"."+cleanExt(ext))
}

func cleanExt(ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}
