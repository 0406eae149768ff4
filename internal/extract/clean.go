package extract

import (
	"regexp"
	"strings"
)

var multiSpaceRe = regexp.MustCompile(`\s+`)

// CleanText collapses whitespace runs to single spaces and trims.
func CleanText(text string) string {
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(text, " "))
}

// Truncate returns at most n bytes of cleaned text. It never splits the
// text mid-rune.
func Truncate(text string, n int) string {
	text = CleanText(text)
	if len(text) <= n {
		return text
	}
	cut := text[:n]
	// Back off to the last rune boundary.
	for len(cut) > 0 && cut[len(cut)-1]&0xC0 == 0x80 {
		cut = cut[:len(cut)-1]
	}
	if len(cut) > 0 && cut[len(cut)-1] >= 0xC0 {
		cut = cut[:len(cut)-1]
	}
	return cut
}
