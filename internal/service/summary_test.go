package service

import (
	"fmt"
	"reflect"
	"testing"

	"dictation/internal/models"
)

func TestAccuracyPercent(t *testing.T) {
	tests := []struct {
		correct, attempted, expected int
	}{
		{correct: 0, attempted: 0, expected: 0},
		{correct: 1, attempted: 3, expected: 33},
		{correct: 2, attempted: 3, expected: 67},
		{correct: 1, attempted: 8, expected: 13},
		{correct: 1, attempted: 200, expected: 1},
		{correct: 5, attempted: 5, expected: 100},
		{correct: 0, attempted: 4, expected: 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.correct, tt.attempted), func(t *testing.T) {
			if got := AccuracyPercent(tt.correct, tt.attempted); got != tt.expected {
				t.Errorf("AccuracyPercent(%d, %d) = %d, want %d", tt.correct, tt.attempted, got, tt.expected)
			}
		})
	}
}

func TestProjectSummary(t *testing.T) {
	history := make([]models.HistoryEntry, 120)
	for i := range history {
		history[i] = models.HistoryEntry{Item: fmt.Sprintf("w%d", i)}
	}

	doc := models.NewRecordDocument()
	doc.Children["Mina"] = map[string]*models.LanguageRecord{
		"en": {Attempted: 3, Correct: 1, TotalReward: 200, History: history},
		"ja": {Attempted: 1, Correct: 1, TotalReward: 0},
		"de": {Attempted: 2, Correct: 0, TotalReward: 0},
	}

	summary := ProjectSummary(doc, "Mina", []string{"ko", "en"})

	if len(summary.PerLanguage) != 4 {
		t.Fatalf("PerLanguage has %d entries, want 4", len(summary.PerLanguage))
	}
	if want := []string{"ko", "en", "de", "ja"}; !reflect.DeepEqual(summary.Languages, want) {
		t.Errorf("Languages = %v, want %v", summary.Languages, want)
	}
	for _, code := range summary.Languages {
		if _, ok := summary.PerLanguage[code]; !ok {
			t.Errorf("Languages lists %q but PerLanguage has no entry", code)
		}
	}

	ko := summary.PerLanguage["ko"]
	if ko.Attempted != 0 || ko.AccuracyPercent != 0 || ko.RecentHistory == nil || len(ko.RecentHistory) != 0 {
		t.Errorf("ko summary = %+v, want zeroed", ko)
	}

	en := summary.PerLanguage["en"]
	if en.AccuracyPercent != 33 || en.TotalReward != 200 || en.RewardLabel != "200원" {
		t.Errorf("en summary = %+v", en)
	}
	if len(en.RecentHistory) != models.RecentHistoryLimit {
		t.Fatalf("recent history length = %d, want %d", len(en.RecentHistory), models.RecentHistoryLimit)
	}
	if en.RecentHistory[0].Item != "w0" {
		t.Errorf("recent history must keep newest first, got %q", en.RecentHistory[0].Item)
	}

	en.RecentHistory[0].Item = "changed"
	if doc.Children["Mina"]["en"].History[0].Item != "w0" {
		t.Error("projection must not share history with the document")
	}

	if _, ok := summary.PerLanguage["ja"]; !ok {
		t.Error("languages with records must be projected even if not configured")
	}
}

func TestProjectSummaryUnknownChild(t *testing.T) {
	summary := ProjectSummary(models.NewRecordDocument(), "nobody", []string{"ko"})
	if summary.PerLanguage["ko"].Attempted != 0 {
		t.Errorf("summary = %+v", summary)
	}

	summary = ProjectSummary(nil, "nobody", []string{"ko"})
	if len(summary.PerLanguage) != 1 {
		t.Errorf("nil document summary = %+v", summary)
	}
}

func TestFormatReward(t *testing.T) {
	tests := []struct {
		amount   int
		expected string
	}{
		{amount: 0, expected: "0원"},
		{amount: 200, expected: "200원"},
		{amount: 1200, expected: "1,200원"},
		{amount: 1234567, expected: "1,234,567원"},
	}

	for _, tt := range tests {
		if got := FormatReward(tt.amount); got != tt.expected {
			t.Errorf("FormatReward(%d) = %q, want %q", tt.amount, got, tt.expected)
		}
	}
}
