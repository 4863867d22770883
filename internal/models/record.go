package models

import "time"

// HistoryLimit is the number of history entries kept per child and language.
const HistoryLimit = 200

// RecordsVersion is the current schema version of the persisted record document.
const RecordsVersion = 2

// HistoryEntry is one answered question. Entries are never modified.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Grade     string    `json:"grade"`
	Item      string    `json:"item"`
	Input     string    `json:"input"`
	Correct   bool      `json:"correct"`
}

// LanguageRecord holds the statistics of one child in one language.
// History is ordered newest first.
type LanguageRecord struct {
	Attempted   int            `json:"attempted"`
	Correct     int            `json:"correct"`
	TotalReward int            `json:"total_reward"`
	History     []HistoryEntry `json:"history"`
}

// RecordDocument is the persisted form of all practice records:
// child name -> language code -> record.
type RecordDocument struct {
	Version  int                                   `json:"version"`
	Children map[string]map[string]*LanguageRecord `json:"children"`
}

// NewRecordDocument returns an empty document at the current version
func NewRecordDocument() *RecordDocument {
	return &RecordDocument{
		Version:  RecordsVersion,
		Children: make(map[string]map[string]*LanguageRecord),
	}
}

// LastSelectionVersion is the current schema version of the saved selection.
const LastSelectionVersion = 1

// LastSelection is the child, language and grade used most recently.
type LastSelection struct {
	Version  int    `json:"version"`
	Name     string `json:"name"`
	Language string `json:"lang"`
	Grade    string `json:"grade"`
}
