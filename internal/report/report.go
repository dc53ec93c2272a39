package report

import (
	"errors"
	"strings"

	"fetchmedia/internal/catalog"
	"fetchmedia/internal/selection"
	"fetchmedia/internal/services"
	"fetchmedia/internal/textutil"
)

const descriptionSnippetLimit = 200

// Result is the single record emitted for a download run.
type Result struct {
	Success   bool   `json:"success"`
	Path      string `json:"path,omitempty"`
	Title     string `json:"title,omitempty"`
	Quality   string `json:"quality,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// Success builds the record for a run that produced path from plan.
func Success(path string, meta catalog.Metadata, plan selection.Plan) Result {
	return Result{
		Success: true,
		Path:    path,
		Title:   meta.Title,
		Quality: plan.Quality(),
	}
}

// Failure builds the record for a run that ended with err.
func Failure(err error) Result {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Result{
		Error:     strings.TrimSpace(err.Error()),
		ErrorKind: services.Kind(err),
	}
}

// Info is the metadata record printed by the info command. Failures print a
// Result instead, so Success is always true here.
type Info struct {
	Success     bool   `json:"success"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Duration    int64  `json:"duration"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Views       int64  `json:"views"`
	Description string `json:"description,omitempty"`
}

// NewInfo converts catalog metadata into an Info record. The description is
// shortened to a snippet.
func NewInfo(meta catalog.Metadata) Info {
	return Info{
		Success:     true,
		ID:          meta.ID,
		Title:       meta.Title,
		Author:      meta.Author,
		Duration:    meta.DurationSeconds(),
		Thumbnail:   meta.Thumbnail,
		Views:       meta.Views,
		Description: textutil.Truncate(strings.TrimSpace(meta.Description), descriptionSnippetLimit),
	}
}

// Qualities is the record printed by the qualities command.
type Qualities struct {
	Info
	Qualities []selection.Quality `json:"qualities"`
}

// NewQualities combines metadata with the distinct resolution tiers on offer.
func NewQualities(meta catalog.Metadata, qualities []selection.Quality) Qualities {
	if qualities == nil {
		qualities = []selection.Quality{}
	}
	return Qualities{Info: NewInfo(meta), Qualities: qualities}
}
