package utils

import (
	"testing"
)

func TestNormalizePlate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "with spaces",
			input:    "123 ABC 02",
			expected: "123ABC02",
		},
		{
			name:     "lowercase",
			input:    "123abc02",
			expected: "123ABC02",
		},
		{
			name:     "with dashes",
			input:    "123-ABC-02",
			expected: "123ABC02",
		},
		{
			name:     "already normalized",
			input:    "123ABC02",
			expected: "123ABC02",
		},
		{
			name:     "punctuation stripped",
			input:    "AB.1#2_34",
			expected: "AB1234",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizePlate(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizePlate(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCorrectOCR(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "O between digits becomes zero",
			input:    "1O2 ABC",
			expected: "102ABC",
		},
		{
			name:     "zero between letters becomes O",
			input:    "AB0CD",
			expected: "ABOCD",
		},
		{
			name:     "one-like letter in digit context",
			input:    "I23",
			expected: "123",
		},
		{
			name:     "L in letter context becomes I",
			input:    "ALB",
			expected: "AIB",
		},
		{
			name:     "eight between letters becomes B",
			input:    "A8C",
			expected: "ABC",
		},
		{
			name:     "B in digit context becomes eight",
			input:    "1B2",
			expected: "182",
		},
		{
			name:     "S and five swap by context",
			input:    "A5C 1S2",
			expected: "ASC152",
		},
		{
			name:     "Z and two swap by context",
			input:    "A2C 1Z3",
			expected: "AZC123",
		},
		{
			name:     "edge digit keeps digit form",
			input:    "1AB",
			expected: "1AB",
		},
		{
			name:     "letter between letter and digit kept",
			input:    "AB1",
			expected: "AB1",
		},
		{
			name:     "zero shielded by adjacent digit",
			input:    "AB0CD 102",
			expected: "ABOCD102",
		},
		{
			name:     "single character has no context",
			input:    "O",
			expected: "O",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CorrectOCR(tt.input)
			if result != tt.expected {
				t.Errorf("CorrectOCR(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCorrectOCRIdempotent(t *testing.T) {
	inputs := []string{
		"1O2 ABC", "AB0CD", "I23", "B52", "ABC123", "",
		"AB-12CD", "XY-8Z", "AL1A", "A5C 1S2", "AB 12CD",
	}
	for _, in := range inputs {
		once := CorrectOCR(in)
		twice := CorrectOCR(once)
		if once != twice {
			t.Errorf("CorrectOCR not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestCorrectOCRDigitsSeeFinalizedLetters(t *testing.T) {
	// The L resolves to I in the letter phase, so the 1 sits between two
	// finalized letters and takes its letter form.
	if got := CorrectOCR("AL1A"); got != "AIIA" {
		t.Errorf("CorrectOCR(%q) = %q, want %q", "AL1A", got, "AIIA")
	}

	// The S resolves to 5 in the letter phase, so the 1 keeps its digit
	// form instead of pairing with a letter that no longer exists.
	if got := CorrectOCR("C1S2"); got != "C152" {
		t.Errorf("CorrectOCR(%q) = %q, want %q", "C1S2", got, "C152")
	}
}

func TestAutoFormat(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		expected  string
	}{
		{
			name:      "three letters three digits",
			input:     "abc123",
			maxLength: 8,
			expected:  "ABC 123",
		},
		{
			name:      "three digits three letters",
			input:     "102 ABC",
			maxLength: 8,
			expected:  "102 ABC",
		},
		{
			name:      "four letters three digits",
			input:     "ABCD123",
			maxLength: 8,
			expected:  "ABCD 123",
		},
		{
			name:      "digit three letters three digits",
			input:     "1ABC234",
			maxLength: 8,
			expected:  "1ABC 234",
		},
		{
			name:      "unknown pattern gets no space",
			input:     "AJ12CD",
			maxLength: 8,
			expected:  "AJ12CD",
		},
		{
			name:      "truncated to max length then formatted",
			input:     "ABC123XYZ",
			maxLength: 6,
			expected:  "ABC 123",
		},
		{
			name:      "truncation leaving no template",
			input:     "ABCD123XY",
			maxLength: 6,
			expected:  "ABCD12",
		},
		{
			name:      "zero max length",
			input:     "ABC123",
			maxLength: 0,
			expected:  "",
		},
		{
			name:      "short input unchanged",
			input:     "AB1",
			maxLength: 8,
			expected:  "AB1",
		},
		{
			name:      "empty",
			input:     "",
			maxLength: 8,
			expected:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AutoFormat(tt.input, tt.maxLength)
			if result != tt.expected {
				t.Errorf("AutoFormat(%q, %d) = %q, want %q", tt.input, tt.maxLength, result, tt.expected)
			}
		})
	}
}

func TestScorePlate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{
			name:     "template pattern in range",
			input:    "ABC 123",
			expected: 70, // +30 length, +40 template
		},
		{
			name:     "template pattern DDDLLL",
			input:    "102 ABC",
			expected: 70,
		},
		{
			name:     "letter digit letter sandwich",
			input:    "AB12CDEF",
			expected: 50, // +30 length, +20 sandwich
		},
		{
			name:     "long digit run penalized",
			input:    "1234567",
			expected: 10, // +30 length, -20 run
		},
		{
			name:     "stray character penalized",
			input:    "ABC-123",
			expected: 20, // +30 length, +40 template, -50 stray char
		},
		{
			name:     "short string scores zero",
			input:    "AB1",
			expected: 0,
		},
		{
			name:     "empty scores zero",
			input:    "",
			expected: 0,
		},
		{
			name:     "never below zero",
			input:    "AAAAAAAAAA",
			expected: 0, // run penalty clamped at zero
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScorePlate(tt.input)
			if result != tt.expected {
				t.Errorf("ScorePlate(%q) = %d, want %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	formatted, confidence := Normalize("1O2 ABC", 8)
	if formatted != "102 ABC" {
		t.Errorf("Normalize formatted = %q, want %q", formatted, "102 ABC")
	}
	if confidence < 70 {
		t.Errorf("Normalize confidence = %d, want >= 70", confidence)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"1O2 ABC", "abc123", "ABCD123", "AJ12CD", "AB12CDEF",
		"x", "", "ABC123XYZ9",
		"AB-12CD", "AB 12CD", "XY-8Z", "AL1A", "1BAXY",
	}
	lengths := []int{0, 2, 3, 6, 8}

	for _, in := range inputs {
		for _, n := range lengths {
			first, _ := Normalize(in, n)
			second, _ := Normalize(first, n)
			if first != second {
				t.Errorf("Normalize(%q, %d) not idempotent: first %q, second %q", in, n, first, second)
			}
		}
	}
}
