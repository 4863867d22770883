// Package textnorm canonicalizes typed answers so they can be compared with
// dictation items. Comparison is spelling sensitive but ignores punctuation,
// symbols and the spacing conventions of each language.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// English is the language code whose answers are compared case-insensitively
// with single spaces between words. Every other language drops whitespace.
const English = "en"

var englishLower = cases.Lower(language.English)

// Normalize returns the canonical form of text for the given language.
// It is pure and idempotent.
func Normalize(text, lang string) string {
	if text == "" {
		return ""
	}

	if lang == English {
		return norm.NFC.String(collapseSpaces(stripMarks(englishLower.String(norm.NFC.String(text)))))
	}
	return norm.NFC.String(strings.TrimSpace(removeSpaces(stripMarks(norm.NFC.String(text)))))
}

// Equal reports whether an answer matches an item once both are normalized.
func Equal(answer, item, lang string) bool {
	return Normalize(answer, lang) == Normalize(item, lang)
}

// stripMarks drops every rune in the Unicode punctuation and symbol categories.
func stripMarks(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func removeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
