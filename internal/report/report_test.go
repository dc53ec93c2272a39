package report

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"fetchmedia/internal/catalog"
	"fetchmedia/internal/selection"
	"fetchmedia/internal/services"
)

func TestSuccessUsesEffectiveQuality(t *testing.T) {
	plan := selection.Plan{
		Variant: selection.VariantSplit,
		Video:   catalog.Descriptor{Kind: catalog.KindVideoOnly, Label: "720p", Height: 720},
		Audio:   catalog.Descriptor{Kind: catalog.KindAudioOnly, Bitrate: 128000},
	}
	res := Success("/out/clip.mp4", catalog.Metadata{Title: "Clip"}, plan)
	if !res.Success || res.Path != "/out/clip.mp4" || res.Title != "Clip" || res.Quality != "720p" {
		t.Fatalf("unexpected result %+v", res)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "error") {
		t.Fatalf("success record should omit error fields: %s", data)
	}
}

func TestSuccessReportsNormalizedTier(t *testing.T) {
	plan := selection.Plan{
		Variant: selection.VariantSplit,
		Video:   catalog.Descriptor{Kind: catalog.KindVideoOnly, Label: "1080p60", Height: 1080, FPS: 60},
		Audio:   catalog.Descriptor{Kind: catalog.KindAudioOnly, Bitrate: 128000},
	}
	if got := Success("/out/clip.mp4", catalog.Metadata{}, plan).Quality; got != "1080p" {
		t.Fatalf("expected 1080p, got %q", got)
	}
}

func TestFailureCarriesKind(t *testing.T) {
	err := services.Wrap(services.ErrNoStream, "selection", "select", "no audio-only encoding offered", nil)
	res := Failure(err)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ErrorKind != services.KindNoStream {
		t.Fatalf("unexpected kind %q", res.ErrorKind)
	}
	if !strings.Contains(res.Error, "no audio-only encoding offered") {
		t.Fatalf("message lost: %q", res.Error)
	}

	data, _ := json.Marshal(res)
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["path"]; ok {
		t.Fatalf("failure record should omit path: %s", data)
	}
	if decoded["success"] != false {
		t.Fatalf("success flag missing: %s", data)
	}
}

func TestFailureHandlesUntaggedAndNilErrors(t *testing.T) {
	if got := Failure(errors.New("boom")).ErrorKind; got != services.KindInternal {
		t.Fatalf("expected internal kind, got %q", got)
	}
	if res := Failure(nil); res.Error == "" || res.Success {
		t.Fatalf("unexpected nil failure %+v", res)
	}
}

func TestNewInfoTruncatesDescription(t *testing.T) {
	meta := catalog.Metadata{
		ID:          "abc",
		Title:       "Title",
		Author:      "Author",
		Duration:    212 * time.Second,
		Views:       42,
		Description: strings.Repeat("d", 500),
	}
	info := NewInfo(meta)
	if !info.Success {
		t.Fatal("info record must carry success")
	}
	if info.Duration != 212 {
		t.Fatalf("unexpected duration %d", info.Duration)
	}
	if n := len([]rune(info.Description)); n > descriptionSnippetLimit+1 {
		t.Fatalf("description not truncated: %d runes", n)
	}
}

func TestNewQualitiesNeverNil(t *testing.T) {
	q := NewQualities(catalog.Metadata{ID: "abc"}, nil)
	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"qualities":[]`) {
		t.Fatalf("expected empty list, got %s", data)
	}
	if !strings.Contains(string(data), `"id":"abc"`) || !strings.Contains(string(data), `"success":true`) {
		t.Fatalf("expected embedded info fields, got %s", data)
	}
}
