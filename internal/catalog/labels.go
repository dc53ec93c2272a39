package catalog

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

var labelFolder = cases.Fold()

// ParseHeight extracts the vertical resolution from a label such as "1080p",
// "1080P", "1080" or "1080p60". The second result is false for labels that do
// not start with a positive number.
func ParseHeight(label string) (int, bool) {
	folded := labelFolder.String(strings.TrimSpace(label))
	end := 0
	for end < len(folded) && folded[end] >= '0' && folded[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	rest := folded[end:]
	if rest != "" && !strings.HasPrefix(rest, "p") {
		return 0, false
	}
	height, err := strconv.Atoi(folded[:end])
	if err != nil || height <= 0 {
		return 0, false
	}
	return height, true
}

// NormalizeLabel maps a label onto its resolution tier ("1080p60" -> "1080p").
// Unparsable labels are returned trimmed and case-folded.
func NormalizeLabel(label string) string {
	if height, ok := ParseHeight(label); ok {
		return strconv.Itoa(height) + "p"
	}
	return labelFolder.String(strings.TrimSpace(label))
}

// SameTier reports whether two labels designate the same resolution tier.
func SameTier(a, b string) bool {
	return NormalizeLabel(a) == NormalizeLabel(b)
}

// CompareLabels orders labels by height descending with unparsable labels
// last. It returns a negative value when a sorts before b.
func CompareLabels(a, b string) int {
	ha, okA := ParseHeight(a)
	hb, okB := ParseHeight(b)
	switch {
	case okA && okB:
		return hb - ha
	case okA:
		return -1
	case okB:
		return 1
	default:
		return strings.Compare(NormalizeLabel(a), NormalizeLabel(b))
	}
}
