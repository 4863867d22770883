package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		lang     string
		expected string
	}{
		{
			name:     "empty input",
			text:     "",
			lang:     "en",
			expected: "",
		},
		{
			name:     "english punctuation and spacing",
			text:     "Hello,  World!",
			lang:     "en",
			expected: "hello world",
		},
		{
			name:     "english leading and trailing space",
			text:     "  The   quick\tbrown fox.  ",
			lang:     "en",
			expected: "the quick brown fox",
		},
		{
			name:     "english symbols removed",
			text:     "cats & dogs $5",
			lang:     "en",
			expected: "cats dogs 5",
		},
		{
			name:     "korean whitespace removed",
			text:     "안녕, 세상!",
			lang:     "ko",
			expected: "안녕세상",
		},
		{
			name:     "korean keeps case of latin letters",
			text:     "나는 Tom 이야.",
			lang:     "ko",
			expected: "나는Tom이야",
		},
		{
			name:     "unknown language follows korean rules",
			text:     " a b ",
			lang:     "fr",
			expected: "ab",
		},
		{
			name:     "decomposed hangul is composed",
			text:     "\u1100\u1161",
			lang:     "ko",
			expected: "\uac00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize(tt.text, tt.lang)
			if result != tt.expected {
				t.Errorf("Normalize(%q, %q) = %q, want %q", tt.text, tt.lang, result, tt.expected)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"Hello,  World!",
		"안녕, 세상!",
		"  Mixed 한글 and English...  ",
		"ÉCOLE d'été",
		"가 나",
		"tabs\tand\nnewlines",
	}

	for _, lang := range []string{"en", "ko"} {
		for _, input := range inputs {
			once := Normalize(input, lang)
			twice := Normalize(once, lang)
			if once != twice {
				t.Errorf("Normalize not idempotent for %q (%s): %q then %q", input, lang, once, twice)
			}
		}
	}
}

func TestEqual(t *testing.T) {
	if !Equal("apple.", "Apple", "en") {
		t.Error("expected apple. to match Apple in english")
	}
	if Equal("aple", "apple", "en") {
		t.Error("expected misspelling not to match")
	}
	if !Equal("학교 에 가요", "학교에 가요", "ko") {
		t.Error("expected korean spacing to be ignored")
	}
}
