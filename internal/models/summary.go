package models

// RecentHistoryLimit caps the history shown in a summary.
const RecentHistoryLimit = 50

// LanguageSummary is the display-ready view of one language record.
type LanguageSummary struct {
	Language        string         `json:"language"`
	Attempted       int            `json:"attempted"`
	Correct         int            `json:"correct"`
	AccuracyPercent int            `json:"accuracy_percent"`
	TotalReward     int            `json:"total_reward"`
	RewardLabel     string         `json:"reward_label"`
	RecentHistory   []HistoryEntry `json:"recent_history"`
}

// ChildSummary aggregates all languages for one child. Languages gives the
// display order of the PerLanguage keys.
type ChildSummary struct {
	Child       string                     `json:"child"`
	Languages   []string                   `json:"languages"`
	PerLanguage map[string]LanguageSummary `json:"per_language"`
}
