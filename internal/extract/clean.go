package extract

import (
	"regexp"
	"strings"
)

var (
	// emptySentencePattern matches a period followed by whitespace and another period
	emptySentencePattern = regexp.MustCompile(`\.\s+\.`)

	// punctuationSpacer inserts a space after every comma and period
	punctuationSpacer = strings.NewReplacer(".", ". ", ",", ", ")
)

// Clean normalizes report text for phrase-based labeling.
//
// The steps run in a fixed order:
//
//	lower-case
//	"and/or" -> "or"
//	"x/y" -> "x or y" when both neighbours of the slash are letters
//	".." -> "."
//	space after every "," and "."
//	collapse whitespace runs, trim
//	". ." -> "."
//
// Clean is total and Clean(Clean(x)) == Clean(x).
func Clean(raw string) string {
	text := strings.ToLower(raw)
	text = strings.ReplaceAll(text, "and/or", "or")
	text = expandSlashes(text)
	text = strings.ReplaceAll(text, "..", ".")
	text = punctuationSpacer.Replace(text)
	text = strings.Join(strings.Fields(text), " ")

	// A single pass leaves ". . ." as ". ." so repeat until nothing changes
	for {
		next := emptySentencePattern.ReplaceAllString(text, ".")
		if next == text {
			break
		}
		text = next
	}

	return text
}

// expandSlashes rewrites every letter/letter slash as " or ".
// Neighbours are checked against the input, so "a/b/c" becomes "a or b or c".
func expandSlashes(text string) string {
	if !strings.Contains(text, "/") {
		return text
	}

	var buf strings.Builder
	buf.Grow(len(text) + 8)

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '/' && i > 0 && i+1 < len(text) && isLetter(text[i-1]) && isLetter(text[i+1]) {
			buf.WriteString(" or ")
			continue
		}
		buf.WriteByte(c)
	}

	return buf.String()
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
