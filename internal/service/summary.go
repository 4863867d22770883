package service

import (
	"sort"

	"dictation/internal/models"
)

// AccuracyPercent rounds correct/attempted to a whole percentage, half up.
// It is 0 when nothing has been attempted.
func AccuracyPercent(correct, attempted int) int {
	if attempted <= 0 {
		return 0
	}
	return (200*correct + attempted) / (2 * attempted)
}

// ProjectSummary builds the display view of a child's records. Every language
// in languages is present, zeroed when the child has no record for it, and
// recorded languages outside that list follow in sorted order.
// The document is only read.
func ProjectSummary(doc *models.RecordDocument, child string, languages []string) models.ChildSummary {
	summary := models.ChildSummary{
		Child:       child,
		PerLanguage: make(map[string]models.LanguageSummary),
	}

	var records map[string]*models.LanguageRecord
	if doc != nil {
		records = doc.Children[child]
	}

	codes := append([]string(nil), languages...)
	for code := range records {
		if !contains(codes, code) {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes[len(languages):])

	summary.Languages = codes
	for _, code := range codes {
		summary.PerLanguage[code] = projectLanguage(code, records[code])
	}

	return summary
}

func projectLanguage(language string, record *models.LanguageRecord) models.LanguageSummary {
	view := models.LanguageSummary{
		Language:      language,
		RewardLabel:   FormatReward(0),
		RecentHistory: []models.HistoryEntry{},
	}
	if record == nil {
		return view
	}

	view.Attempted = record.Attempted
	view.Correct = record.Correct
	view.AccuracyPercent = AccuracyPercent(record.Correct, record.Attempted)
	view.TotalReward = record.TotalReward
	view.RewardLabel = FormatReward(record.TotalReward)

	n := len(record.History)
	if n > models.RecentHistoryLimit {
		n = models.RecentHistoryLimit
	}
	view.RecentHistory = make([]models.HistoryEntry, n)
	copy(view.RecentHistory, record.History[:n])

	return view
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
