package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"dictation/internal/kvstore"
	"dictation/internal/models"
)

// RecordsKey is the store key holding the record document.
const RecordsKey = "dictation_records_v1"

// RewardTable gives the fixed reward credited per correct answer in a language.
type RewardTable interface {
	Reward(language string) int
}

// RecordRepository is the only writer of practice records. Every read loads
// the document fresh from the store and every write replaces it whole.
type RecordRepository struct {
	store   kvstore.Store
	rewards RewardTable
	now     func() time.Time

	// mu serializes load-mutate-save so concurrent requests cannot lose updates
	mu sync.Mutex
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(store kvstore.Store, rewards RewardTable) *RecordRepository {
	return &RecordRepository{
		store:   store,
		rewards: rewards,
		now:     time.Now,
	}
}

// RecordAttempt updates the child's statistics for a language and prepends a
// history entry, keeping at most models.HistoryLimit entries.
func (r *RecordRepository) RecordAttempt(ctx context.Context, child, language, grade, item, input string, correct bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.load(ctx)

	languages := doc.Children[child]
	if languages == nil {
		languages = make(map[string]*models.LanguageRecord)
		doc.Children[child] = languages
	}
	record := languages[language]
	if record == nil {
		record = &models.LanguageRecord{}
		languages[language] = record
	}

	record.Attempted++
	if correct {
		record.Correct++
		record.TotalReward += r.rewards.Reward(language)
	}

	entry := models.HistoryEntry{
		Timestamp: r.now(),
		Grade:     grade,
		Item:      item,
		Input:     input,
		Correct:   correct,
	}
	record.History = append([]models.HistoryEntry{entry}, record.History...)
	if len(record.History) > models.HistoryLimit {
		record.History = record.History[:models.HistoryLimit]
	}

	return r.save(ctx, doc)
}

// GetLanguageRecord returns the child's record for a language, or a zeroed
// record when none exists.
func (r *RecordRepository) GetLanguageRecord(ctx context.Context, child, language string) models.LanguageRecord {
	doc := r.Load(ctx)
	if record, ok := doc.Children[child][language]; ok && record != nil {
		return *record
	}
	return models.LanguageRecord{History: []models.HistoryEntry{}}
}

// Load returns a freshly decoded copy of the whole document. Unreadable or
// corrupt data yields an empty document.
func (r *RecordRepository) Load(ctx context.Context) *models.RecordDocument {
	return r.load(ctx)
}

// ClearAll deletes every record.
func (r *RecordRepository) ClearAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Remove(ctx, RecordsKey); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	return nil
}

// Replace overwrites the whole document, used when restoring a backup.
func (r *RecordRepository) Replace(ctx context.Context, doc *models.RecordDocument) error {
	if doc == nil {
		return fmt.Errorf("record document is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	normalized := models.NewRecordDocument()
	overlayRecords(normalized, doc)
	return r.save(ctx, normalized)
}

// Merge lays doc over the stored records: each child and language present in
// doc replaces the stored record, everything else is kept.
func (r *RecordRepository) Merge(ctx context.Context, doc *models.RecordDocument) error {
	if doc == nil {
		return fmt.Errorf("record document is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.load(ctx)
	overlayRecords(existing, doc)
	return r.save(ctx, existing)
}

// overlayRecords copies every non-nil record of src into dst, capping history.
func overlayRecords(dst, src *models.RecordDocument) {
	for child, languages := range src.Children {
		for language, record := range languages {
			if record == nil {
				continue
			}
			copied := *record
			if len(copied.History) > models.HistoryLimit {
				copied.History = copied.History[:models.HistoryLimit]
			}
			if dst.Children[child] == nil {
				dst.Children[child] = make(map[string]*models.LanguageRecord)
			}
			dst.Children[child][language] = &copied
		}
	}
}

func (r *RecordRepository) load(ctx context.Context) *models.RecordDocument {
	raw, ok, err := r.store.Get(ctx, RecordsKey)
	if err != nil {
		log.Printf("Failed to read records, treating as empty: %v", err)
		return models.NewRecordDocument()
	}
	if !ok || raw == "" {
		return models.NewRecordDocument()
	}

	doc, err := decodeRecords([]byte(raw))
	if err != nil {
		log.Printf("Corrupt records payload, treating as empty: %v", err)
		return models.NewRecordDocument()
	}
	return doc
}

func (r *RecordRepository) save(ctx context.Context, doc *models.RecordDocument) error {
	doc.Version = models.RecordsVersion
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if err := r.store.Set(ctx, RecordsKey, string(data)); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}
	return nil
}
