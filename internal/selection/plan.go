package selection

import (
	"fmt"

	"fetchmedia/internal/catalog"
)

// Variant tags which shape of plan was produced.
type Variant string

const (
	VariantNone        Variant = "none"
	VariantProgressive Variant = "progressive"
	VariantSplit       Variant = "split"
	VariantAudioOnly   Variant = "audio-only"
)

// Plan is the result of a selection call. Only the descriptors relevant to
// Variant are populated: Progressive uses Video, Split uses Video and Audio,
// AudioOnly uses Audio.
type Plan struct {
	Variant Variant
	Video   catalog.Descriptor
	Audio   catalog.Descriptor
	// Notes records every fallback taken while selecting.
	Notes []string
}

// Empty reports whether no usable plan was found.
func (p Plan) Empty() bool {
	return p.Variant == "" || p.Variant == VariantNone
}

// Quality is the effective quality the plan delivers, as the normalized tier
// Qualities lists (1080p60 reports as 1080p).
func (p Plan) Quality() string {
	switch p.Variant {
	case VariantProgressive, VariantSplit:
		if p.Video.Label != "" {
			return catalog.NormalizeLabel(p.Video.Label)
		}
		return fmt.Sprintf("%dp", p.Video.Height)
	case VariantAudioOnly:
		if p.Audio.Bitrate > 0 {
			return fmt.Sprintf("%dkbps", (p.Audio.Bitrate+500)/1000)
		}
		return "audio"
	default:
		return ""
	}
}

func progressivePlan(d catalog.Descriptor, notes []string) Plan {
	return Plan{Variant: VariantProgressive, Video: d, Notes: notes}
}

func splitPlan(video, audio catalog.Descriptor, notes []string) Plan {
	return Plan{Variant: VariantSplit, Video: video, Audio: audio, Notes: notes}
}

func audioPlan(d catalog.Descriptor) Plan {
	return Plan{Variant: VariantAudioOnly, Audio: d}
}

func noPlan(notes []string) Plan {
	return Plan{Variant: VariantNone, Notes: notes}
}
