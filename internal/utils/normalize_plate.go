package utils

import (
	"regexp"
	"strings"
)

// NormalizePlate strips everything but ASCII letters and digits and
// uppercases the rest. This is the canonical form used for watchlist
// comparison, so "AB1 234" and "ab1-234" match the same entry.
func NormalizePlate(raw string) string {
	upper := strings.ToUpper(raw)
	var b strings.Builder
	b.Grow(len(upper))
	for i := 0; i < len(upper); i++ {
		c := upper[i]
		if isLetter(c) || isDigit(c) {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isLetter(c byte) bool { return c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }

// letterForm maps a confusable digit to the letter OCR tends to mistake it
// for, and digitForm the reverse. I and L both collapse to 1.
var letterForm = map[byte]byte{'0': 'O', '1': 'I', '8': 'B', '5': 'S', '2': 'Z'}
var digitForm = map[byte]byte{'O': '0', 'I': '1', 'L': '1', 'B': '8', 'S': '5', 'Z': '2'}

// CorrectOCR resolves common OCR confusable pairs ({0,O}, {1,I,L}, {8,B},
// {5,S}, {2,Z}) from the immediate neighbors of each character. The input
// is cleaned first, so context reflects the characters that actually end
// up adjacent in the plate. Applying the pass to its own output changes
// nothing.
func CorrectOCR(raw string) string {
	return correct(NormalizePlate(raw))
}

// correct runs the confusable pass over an already cleaned string in two
// phases. Letters resolve first, each from the original pre-correction
// neighbors: a letter flanked only by digits takes its digit form, and
// I/L next to any letter collapse to I. Digits then resolve against the
// letter-phase output: a digit converts to its letter form only when both
// of its finalized neighbors are letters. A conversion is therefore
// justified by neighbors that no later conversion can change, which is
// what makes the pass converge in a single application.
func correct(cleaned string) string {
	n := len(cleaned)
	if n == 0 {
		return cleaned
	}

	letters := []byte(cleaned)
	for i := 0; i < n; i++ {
		c := cleaned[i]
		if !isLetter(c) {
			continue
		}

		var prev, next byte
		if i > 0 {
			prev = cleaned[i-1]
		}
		if i+1 < n {
			next = cleaned[i+1]
		}

		digitCtx := isDigit(prev) || isDigit(next)
		letterCtx := isLetter(prev) || isLetter(next)

		switch {
		case digitCtx && !letterCtx:
			if d, ok := digitForm[c]; ok {
				letters[i] = d
			}
		case letterCtx && (c == 'I' || c == 'L'):
			letters[i] = 'I'
		}
	}

	out := make([]byte, n)
	copy(out, letters)
	for i := 1; i < n-1; i++ {
		c := letters[i]
		if !isDigit(c) {
			continue
		}
		if isLetter(letters[i-1]) && isLetter(letters[i+1]) {
			if l, ok := letterForm[c]; ok {
				out[i] = l
			}
		}
	}

	return string(out)
}

// PlatePattern maps a string to its cleaned form and its letter/digit
// pattern ("L" per letter, "D" per digit).
func PlatePattern(raw string) (cleaned, pattern string) {
	cleaned = NormalizePlate(raw)
	var b strings.Builder
	b.Grow(len(cleaned))
	for i := 0; i < len(cleaned); i++ {
		if isLetter(cleaned[i]) {
			b.WriteByte('L')
		} else {
			b.WriteByte('D')
		}
	}
	return cleaned, b.String()
}

// spaceAfter maps a full-plate pattern to the position of the single
// formatting space, 0 meaning no space.
func spaceAfter(pattern string) int {
	switch pattern {
	case "LLLDDD", "DDDLLL":
		return 3
	case "LLLLDDD", "DLLLDDD":
		return 4
	}
	return 0
}

// FormatPlate cleans the text, truncates to maxLength raw characters and
// inserts the single formatting space for the known template patterns. It
// never rewrites characters, so confirmed text passes through unchanged
// apart from formatting. The pattern is judged on the truncated string,
// which keeps the pipeline stable under re-application.
func FormatPlate(raw string, maxLength int) string {
	cleaned := NormalizePlate(raw)

	if maxLength < 0 {
		maxLength = 0
	}
	if len(cleaned) > maxLength {
		cleaned = cleaned[:maxLength]
	}

	trimmed, pattern := PlatePattern(cleaned)
	if len(trimmed) > 3 {
		if pos := spaceAfter(pattern); pos > 0 && pos < len(trimmed) {
			trimmed = trimmed[:pos] + " " + trimmed[pos:]
		}
	}

	return trimmed
}

// AutoFormat is the raw OCR path: cleaning, truncation, confusable
// correction and formatting. Correction runs after truncation so every
// character is judged against the neighbors it keeps in the final plate.
// Confirmed text goes through FormatPlate directly so user corrections
// are never second-guessed.
func AutoFormat(raw string, maxLength int) string {
	cleaned := NormalizePlate(raw)
	if maxLength < 0 {
		maxLength = 0
	}
	if len(cleaned) > maxLength {
		cleaned = cleaned[:maxLength]
	}
	return FormatPlate(correct(cleaned), maxLength)
}

var (
	sandwichPattern = regexp.MustCompile(`L+D+L+`)
	letterRun       = regexp.MustCompile(`LLLLL`)
	digitRun        = regexp.MustCompile(`DDDDD`)
	nonPlateChar    = regexp.MustCompile(`[^A-Z0-9 ]`)
)

// ScorePlate judges how plausible a plate string looks, 0..100.
func ScorePlate(s string) int {
	cleaned, pattern := PlatePattern(s)

	score := 0

	if len(cleaned) >= 6 && len(cleaned) <= 8 {
		score += 30
	}

	switch pattern {
	case "LLLDDD", "DDDLLL", "LLLLDDD", "DLLLDDD":
		score += 40
	}

	if sandwichPattern.MatchString(pattern) {
		score += 20
	}

	if letterRun.MatchString(pattern) || digitRun.MatchString(pattern) {
		score -= 20
	}

	// The formatting space is the only non-alphanumeric character a
	// plausible plate carries.
	if nonPlateChar.MatchString(strings.ToUpper(s)) {
		score -= 50
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Normalize is the full pipeline: confusable correction, cleaning,
// auto-formatting to maxLength characters, and a confidence score for the
// result. It is deterministic, never fails, and re-applying it to its own
// output yields the same formatted string.
func Normalize(raw string, maxLength int) (formatted string, confidence int) {
	formatted = AutoFormat(raw, maxLength)
	confidence = ScorePlate(formatted)
	return formatted, confidence
}
