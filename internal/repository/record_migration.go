package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"dictation/internal/models"
)

// legacyRecord is the unversioned per-language record written by the first
// release: a bare child -> language -> record mapping.
type legacyRecord struct {
	Total   int             `json:"total"`
	Correct int             `json:"correct"`
	Money   int             `json:"money"`
	History []legacyHistory `json:"history"`
}

type legacyHistory struct {
	TS    string `json:"ts"`
	Grade string `json:"grade"`
	Word  string `json:"word"`
	Input string `json:"input"`
	OK    bool   `json:"ok"`
}

// decodeRecords parses a stored document, upgrading older versions.
func decodeRecords(data []byte) (*models.RecordDocument, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	if probe == nil {
		return models.NewRecordDocument(), nil
	}

	if _, versioned := probe["version"]; !versioned {
		return migrateLegacyRecords(data)
	}

	doc := models.NewRecordDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	if doc.Version > models.RecordsVersion {
		return nil, fmt.Errorf("unsupported records version %d", doc.Version)
	}
	if doc.Children == nil {
		doc.Children = make(map[string]map[string]*models.LanguageRecord)
	}
	dropNullEntries(doc)
	doc.Version = models.RecordsVersion
	return doc, nil
}

// dropNullEntries removes children and language records stored as null.
func dropNullEntries(doc *models.RecordDocument) {
	for child, languages := range doc.Children {
		for language, record := range languages {
			if record == nil {
				delete(languages, language)
			}
		}
		if len(languages) == 0 {
			delete(doc.Children, child)
		}
	}
}

func migrateLegacyRecords(data []byte) (*models.RecordDocument, error) {
	var legacy map[string]map[string]legacyRecord
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("failed to parse legacy records: %w", err)
	}

	doc := models.NewRecordDocument()
	for child, languages := range legacy {
		doc.Children[child] = make(map[string]*models.LanguageRecord, len(languages))
		for language, old := range languages {
			record := &models.LanguageRecord{
				Attempted:   old.Total,
				Correct:     old.Correct,
				TotalReward: old.Money,
				History:     make([]models.HistoryEntry, 0, len(old.History)),
			}
			for _, h := range old.History {
				ts, _ := time.Parse(time.RFC3339, h.TS)
				record.History = append(record.History, models.HistoryEntry{
					Timestamp: ts,
					Grade:     h.Grade,
					Item:      h.Word,
					Input:     h.Input,
					Correct:   h.OK,
				})
			}
			if len(record.History) > models.HistoryLimit {
				record.History = record.History[:models.HistoryLimit]
			}
			doc.Children[child][language] = record
		}
	}
	return doc, nil
}

// ParseRecords decodes a record document from a backup or an export of
// either format version.
func ParseRecords(data []byte) (*models.RecordDocument, error) {
	return decodeRecords(data)
}
