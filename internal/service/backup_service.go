package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"dictation/internal/models"
	"dictation/internal/repository"
)

// BackupVersion is the envelope format written by Export
const BackupVersion = "2.0"

// BackupData is the exported record store
type BackupData struct {
	Version      string                `json:"version"`
	ExportedAt   time.Time             `json:"exported_at"`
	StoreBackend string                `json:"store_backend"`
	Records      json.RawMessage       `json:"records"`
	Selection    *models.LastSelection `json:"selection,omitempty"`
}

// BackupService handles record store backup and restore operations
type BackupService struct {
	records      *repository.RecordRepository
	selections   *repository.SelectionRepository
	storeBackend string
}

// NewBackupService creates a new backup service
func NewBackupService(records *repository.RecordRepository, selections *repository.SelectionRepository, storeBackend string) *BackupService {
	return &BackupService{
		records:      records,
		selections:   selections,
		storeBackend: storeBackend,
	}
}

// Export writes a complete backup to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	return s.ExportToWriter(ctx, file)
}

// ExportToWriter writes a complete backup to w
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	log.Println("Starting record export...")

	doc := s.records.Load(ctx)
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		StoreBackend: s.storeBackend,
		Records:      raw,
		Selection:    s.selections.Load(ctx),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	log.Printf("Exported records for %d children", len(doc.Children))
	return nil
}

// Import restores a backup file. With merge set, imported records are laid
// over the existing ones per child and language; otherwise they replace the
// whole store.
func (s *BackupService) Import(ctx context.Context, inputPath string, merge bool) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file, merge)
}

// ImportFromReader restores a backup from r. Besides the envelope written by
// Export, a bare record document (current or legacy format) is accepted.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader, merge bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	doc, selection, err := parseBackup(data)
	if err != nil {
		return err
	}

	if merge {
		err = s.records.Merge(ctx, doc)
	} else {
		err = s.records.Replace(ctx, doc)
	}
	if err != nil {
		return err
	}

	if selection != nil {
		if err := s.selections.Save(ctx, selection.Name, selection.Language, selection.Grade); err != nil {
			log.Printf("Warning: failed to restore last selection: %v", err)
		}
	}

	log.Printf("Imported records for %d children", len(doc.Children))
	return nil
}

// Reset deletes every record
func (s *BackupService) Reset(ctx context.Context) error {
	return s.records.ClearAll(ctx)
}

func parseBackup(data []byte) (*models.RecordDocument, *models.LastSelection, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, nil, fmt.Errorf("%w: backup is not a JSON object: %v", ErrFormat, err)
	}

	records, isEnvelope := probe["records"]
	if !isEnvelope {
		doc, err := repository.ParseRecords(data)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		return doc, nil, nil
	}

	var backup BackupData
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid backup envelope: %v", ErrFormat, err)
	}

	doc, err := repository.ParseRecords(records)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return doc, backup.Selection, nil
}
