package selection

import (
	"fmt"
	"strings"

	"fetchmedia/internal/catalog"
)

// Policy decides between a progressive stream and a split pair when the
// highest quality is requested and both exist.
type Policy string

const (
	PolicySplitFirst       Policy = "split-first"
	PolicyProgressiveFirst Policy = "progressive-first"
)

// ParsePolicy validates a policy name. Empty selects split-first.
func ParsePolicy(value string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return PolicySplitFirst, nil
	case PolicySplitFirst, PolicyProgressiveFirst:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported selection policy %q", value)
	}
}

// Format is the requested output kind.
type Format string

const (
	FormatVideo Format = "video"
	FormatAudio Format = "audio"
)

// QualityHighest requests the best available resolution.
const QualityHighest = "highest"

// Request is what the caller asked for.
type Request struct {
	Format  Format
	Quality string
}

// Options carries the declared selection policy.
type Options struct {
	Policy                   Policy
	PreferredContainers      []string
	PreferProgressiveOnExact bool
}

func (o Options) containers() []string {
	if len(o.PreferredContainers) == 0 {
		return DefaultContainers
	}
	return o.PreferredContainers
}

// IsHighest reports whether quality requests the best available resolution.
func IsHighest(quality string) bool {
	q := strings.TrimSpace(quality)
	return q == "" || strings.EqualFold(q, QualityHighest)
}

// Select maps the offered descriptors and a request onto a plan. It never
// invents descriptors and has no side effects.
func Select(descriptors []catalog.Descriptor, req Request, opts Options) Plan {
	preferred := opts.containers()
	audio := rankAudio(descriptors, preferred)

	if req.Format == FormatAudio {
		if len(audio) == 0 {
			return noPlan([]string{"no audio-only encoding offered"})
		}
		return audioPlan(audio[0])
	}

	videos := rankVideo(descriptors, catalog.KindVideoOnly, preferred)
	progressive := rankVideo(descriptors, catalog.KindProgressive, preferred)

	var (
		notes []string
		video catalog.Descriptor
		found bool
	)
	if IsHighest(req.Quality) {
		if opts.Policy == PolicyProgressiveFirst && len(progressive) > 0 {
			return progressivePlan(progressive[0], nil)
		}
		if len(videos) > 0 {
			video, found = videos[0], true
		}
	} else {
		if opts.PreferProgressiveOnExact {
			if d, ok := firstInTier(progressive, req.Quality); ok {
				return progressivePlan(d, nil)
			}
		}
		if d, ok := firstInTier(videos, req.Quality); ok {
			video, found = d, true
		} else if len(videos) > 0 {
			video, found = videos[0], true
			notes = append(notes, fmt.Sprintf("requested quality %s unavailable; using %s", req.Quality, videos[0].Label))
		}
	}

	if found && len(audio) > 0 {
		return splitPlan(video, audio[0], notes)
	}

	if len(progressive) > 0 {
		chosen := progressive[0]
		if !IsHighest(req.Quality) {
			if d, ok := firstInTier(progressive, req.Quality); ok {
				chosen = d
			}
		}
		switch {
		case !found:
			notes = append(notes, "no video-only encoding offered; using progressive "+chosen.Label)
		default:
			notes = append(notes, "no audio-only encoding offered; using progressive "+chosen.Label)
		}
		return progressivePlan(chosen, notes)
	}

	return noPlan(append(notes, "no usable encoding offered"))
}

// Quality describes one distinct resolution tier on offer.
type Quality struct {
	Label string `json:"label"`
	FPS   int    `json:"fps"`
	Codec string `json:"codec"`
}

// Qualities lists the distinct resolution tiers of every video-bearing
// descriptor, best first, each described by its best-ranked descriptor.
func Qualities(descriptors []catalog.Descriptor, opts Options) []Quality {
	preferred := opts.containers()
	ranked := append(rankVideo(descriptors, catalog.KindVideoOnly, preferred),
		rankVideo(descriptors, catalog.KindProgressive, preferred)...)
	// Merging two ranked lists needs a final stable pass on the label alone.
	sortByLabel(ranked)

	seen := make(map[string]struct{}, len(ranked))
	out := make([]Quality, 0, len(ranked))
	for _, d := range ranked {
		tier := catalog.NormalizeLabel(d.Label)
		if tier == "" {
			continue
		}
		if _, ok := seen[tier]; ok {
			continue
		}
		seen[tier] = struct{}{}
		out = append(out, Quality{Label: tier, FPS: d.FPS, Codec: d.Codec})
	}
	return out
}
