package extract

import (
	"regexp"
	"strings"
)

var (
	// unicode spaces that strings.TrimSpace trims but \s does not match
	wideSpaceRe = regexp.MustCompile(`[\p{Z}\v\x{0085}]`)
	// literal escape sequences as well as real control characters
	controlRunRe = regexp.MustCompile(`(\\n|\\r|\\t|\n|\r|\t)+`)
	glyphRe      = regexp.MustCompile(`[\x{25AA}\x{FE0F}\-\x{2013}\x{2014}\[\]|'\x{2019}%]`)
	// a period or colon is only dropped when it ends a word, so "node.js" survives
	trailingPunctRe = regexp.MustCompile(`[.:]+([\s\x{2022}\x{25CF}\x{25E6}\x{25BA}\x{00B7}]|$)`)
	bulletRe        = regexp.MustCompile(`[\x{2022}\x{25CF}\x{25E6}\x{25BA}\x{00B7}]`)
	mergedLineRe    = regexp.MustCompile(`([a-z])\s{2,}([A-Z])`)
	blankRunRe      = regexp.MustCompile(`\n{2,}`)
)

// Clean collapses control sequences and strips markup glyphs. The result is
// the text kept as a record's raw text.
func Clean(raw string) string {
	text := wideSpaceRe.ReplaceAllString(raw, " ")
	text = controlRunRe.ReplaceAllString(text, "\n")
	text = glyphRe.ReplaceAllString(text, "")
	// stripping can join a backslash with a following n, r or t
	text = controlRunRe.ReplaceAllString(text, "\n")
	text = trailingPunctRe.ReplaceAllString(text, "${1}")
	return strings.TrimSpace(text)
}

// Lines splits cleaned text into trimmed, non-empty logical lines.
func Lines(cleaned string) []string {
	text := bulletRe.ReplaceAllString(cleaned, "\n")
	text = mergedLineRe.ReplaceAllString(text, "${1}\n${2}")
	text = blankRunRe.ReplaceAllString(text, "\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Normalize is Clean followed by Lines. Normalizing the joined output of a
// previous Normalize call yields the same lines.
func Normalize(raw string) []string {
	return Lines(Clean(raw))
}
