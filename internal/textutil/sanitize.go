package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is NFC-normalized, stripped of control
// characters, and trimmed of surrounding whitespace and dots.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, fileNameReplacer.Replace(name))
	return strings.Trim(strings.TrimSpace(name), ".")
}

// Truncate shortens text to at most limit runes, appending an ellipsis when
// anything was cut. Combining sequences are never split.
func Truncate(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	var (
		b     strings.Builder
		iter  norm.Iter
		count int
	)
	iter.InitString(norm.NFC, text)
	for !iter.Done() {
		segment := iter.Next()
		count += utf8.RuneCount(segment)
		if count > limit {
			break
		}
		b.Write(segment)
	}
	return strings.TrimSpace(b.String()) + "…"
}
