package selection

import (
	"cmp"
	"slices"
	"strings"

	"fetchmedia/internal/catalog"
)

// DefaultContainers is the container preference applied when none is configured.
var DefaultContainers = []string{"mp4", "webm"}

func containerRank(container string, preferred []string) int {
	container = strings.ToLower(container)
	if container == "m4a" {
		container = "mp4"
	}
	if idx := slices.Index(preferred, container); idx >= 0 {
		return idx
	}
	return len(preferred)
}

// rankVideo returns descriptors of the given kind ordered best first: label
// height descending, preferred container, higher frame rate, catalog order.
func rankVideo(descriptors []catalog.Descriptor, kind catalog.Kind, preferred []string) []catalog.Descriptor {
	out := filter(descriptors, kind)
	slices.SortStableFunc(out, func(a, b catalog.Descriptor) int {
		if c := catalog.CompareLabels(a.Label, b.Label); c != 0 {
			return c
		}
		if c := cmp.Compare(containerRank(a.Container, preferred), containerRank(b.Container, preferred)); c != 0 {
			return c
		}
		return cmp.Compare(b.FPS, a.FPS)
	})
	return out
}

// rankAudio orders audio-only descriptors by bitrate descending, then
// preferred container, then catalog order.
func rankAudio(descriptors []catalog.Descriptor, preferred []string) []catalog.Descriptor {
	out := filter(descriptors, catalog.KindAudioOnly)
	slices.SortStableFunc(out, func(a, b catalog.Descriptor) int {
		if c := cmp.Compare(b.Bitrate, a.Bitrate); c != 0 {
			return c
		}
		return cmp.Compare(containerRank(a.Container, preferred), containerRank(b.Container, preferred))
	})
	return out
}

func filter(descriptors []catalog.Descriptor, kind catalog.Kind) []catalog.Descriptor {
	out := make([]catalog.Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

func firstInTier(ranked []catalog.Descriptor, label string) (catalog.Descriptor, bool) {
	for _, d := range ranked {
		if catalog.SameTier(d.Label, label) {
			return d, true
		}
	}
	return catalog.Descriptor{}, false
}

func sortByLabel(descriptors []catalog.Descriptor) {
	slices.SortStableFunc(descriptors, func(a, b catalog.Descriptor) int {
		return catalog.CompareLabels(a.Label, b.Label)
	})
}
