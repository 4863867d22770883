package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"dictation/internal/kvstore"
	"dictation/internal/models"
)

// LastSelectionKey is the store key holding the last used selection.
const LastSelectionKey = "dictation_last_selection_v1"

// SelectionRepository persists the most recently used child, language and grade.
type SelectionRepository struct {
	store kvstore.Store
}

// NewSelectionRepository creates a new selection repository
func NewSelectionRepository(store kvstore.Store) *SelectionRepository {
	return &SelectionRepository{store: store}
}

// Save stores the selection, replacing any previous one
func (r *SelectionRepository) Save(ctx context.Context, name, language, grade string) error {
	data, err := json.Marshal(models.LastSelection{
		Version:  models.LastSelectionVersion,
		Name:     name,
		Language: language,
		Grade:    grade,
	})
	if err != nil {
		return fmt.Errorf("failed to encode selection: %w", err)
	}
	if err := r.store.Set(ctx, LastSelectionKey, string(data)); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}
	return nil
}

// Load returns the saved selection, or nil if there is none or it cannot be read.
func (r *SelectionRepository) Load(ctx context.Context) *models.LastSelection {
	raw, ok, err := r.store.Get(ctx, LastSelectionKey)
	if err != nil {
		log.Printf("Failed to read last selection: %v", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var selection models.LastSelection
	if err := json.Unmarshal([]byte(raw), &selection); err != nil {
		log.Printf("Corrupt last selection payload ignored: %v", err)
		return nil
	}
	if selection.Version > models.LastSelectionVersion {
		log.Printf("Unsupported last selection version %d ignored", selection.Version)
		return nil
	}
	// Unversioned payloads carry the same fields
	selection.Version = models.LastSelectionVersion
	return &selection
}
