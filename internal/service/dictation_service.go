package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"dictation/internal/config"
	"dictation/internal/models"
	"dictation/internal/repository"
)

// PoolFetcher retrieves the item list for a language and grade.
type PoolFetcher interface {
	Load(ctx context.Context, language, grade string) ([]string, error)
}

// DictationService owns the state of one practice desk: the loaded pool,
// the live session and the load sequence. Handlers share it by pointer.
type DictationService struct {
	sources    *config.Sources
	fetcher    PoolFetcher
	records    *repository.RecordRepository
	selections *repository.SelectionRepository
	engine     *SessionEngine

	mu           sync.Mutex
	pool         []string
	poolLanguage string
	poolGrade    string
	loadSeq      uint64
}

// NewDictationService creates a new dictation service
func NewDictationService(sources *config.Sources, fetcher PoolFetcher, records *repository.RecordRepository, selections *repository.SelectionRepository, engine *SessionEngine) *DictationService {
	return &DictationService{
		sources:    sources,
		fetcher:    fetcher,
		records:    records,
		selections: selections,
		engine:     engine,
	}
}

// Languages lists the configured languages in catalog order
func (s *DictationService) Languages() []string {
	return s.sources.LanguageCodes()
}

// Grades lists the grades of a language in catalog order
func (s *DictationService) Grades(language string) []string {
	return s.sources.GradeCodes(language)
}

// ResolveGrade returns grade if it is configured for language, otherwise
// the language's first grade ("" when the language has none).
func (s *DictationService) ResolveGrade(language, grade string) string {
	grades := s.sources.GradeCodes(language)
	if contains(grades, grade) {
		return grade
	}
	if len(grades) > 0 {
		return grades[0]
	}
	return ""
}

// Reward returns the per-correct-answer reward of a language
func (s *DictationService) Reward(language string) int {
	return s.sources.Reward(language)
}

// SpeechTag returns the speech synthesis tag of a language
func (s *DictationService) SpeechTag(language string) string {
	return s.sources.SpeechTag(language)
}

// LoadPool fetches the pool for (language, grade) and makes it current.
// Only the most recently issued load may replace the pool; an older load
// that finishes later returns ErrStaleLoad. On any error the previous pool
// is kept.
func (s *DictationService) LoadPool(ctx context.Context, language, grade string) ([]string, error) {
	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	s.mu.Unlock()

	items, err := s.fetcher.Load(ctx, language, grade)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.loadSeq {
		return nil, fmt.Errorf("%w: %s/%s superseded", ErrStaleLoad, language, grade)
	}

	s.pool = items
	s.poolLanguage = language
	s.poolGrade = grade
	log.Printf("Loaded %d items for %s/%s", len(items), language, grade)

	return copyItems(items), nil
}

// Pool returns the current pool and the selection it was loaded for
func (s *DictationService) Pool() (items []string, language, grade string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyItems(s.pool), s.poolLanguage, s.poolGrade
}

// StartSession begins a new session for child. The pool for (language, grade)
// is loaded first when it is not the current one. The selection is saved for
// the next visit.
func (s *DictationService) StartSession(ctx context.Context, child, language, grade string, count int) (models.SessionSnapshot, error) {
	child = strings.TrimSpace(child)
	if child == "" {
		return models.SessionSnapshot{}, fmt.Errorf("%w: child name is required", ErrValidation)
	}

	s.mu.Lock()
	loaded := s.poolLanguage == language && s.poolGrade == grade && s.pool != nil
	s.mu.Unlock()

	if !loaded {
		if _, err := s.LoadPool(ctx, language, grade); err != nil {
			return models.SessionSnapshot{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poolLanguage != language || s.poolGrade != grade {
		return models.SessionSnapshot{}, fmt.Errorf("%w: pool changed to %s/%s while starting", ErrStaleLoad, s.poolLanguage, s.poolGrade)
	}

	snapshot, err := s.engine.Start(child, language, grade, count, s.pool)
	if err != nil {
		return models.SessionSnapshot{}, err
	}

	if err := s.selections.Save(ctx, child, language, grade); err != nil {
		log.Printf("Warning: failed to save last selection: %v", err)
	}

	return snapshot, nil
}

// SubmitAnswer checks the answer to the current question
func (s *DictationService) SubmitAnswer(ctx context.Context, input string) (models.AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.SubmitAnswer(ctx, input)
}

// Advance moves the session to the next question or completes it
func (s *DictationService) Advance() (models.AdvanceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Advance()
}

// Session returns a snapshot of the live session
func (s *DictationService) Session() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// CurrentPrompt is the text to read aloud: the current session item, or the
// first pool item when no question is open.
func (s *DictationService) CurrentPrompt() (text, language string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, open := s.engine.CurrentItem(); open {
		return item, s.engine.Snapshot().Language, true
	}
	if len(s.pool) > 0 {
		return s.pool[0], s.poolLanguage, true
	}
	return "", "", false
}

// SaveSelection remembers the selection without starting a session
func (s *DictationService) SaveSelection(ctx context.Context, child, language, grade string) error {
	return s.selections.Save(ctx, strings.TrimSpace(child), language, s.ResolveGrade(language, grade))
}

// LastSelection returns the saved selection with its language and grade
// checked against the catalog, or nil when nothing usable is saved.
func (s *DictationService) LastSelection(ctx context.Context) *models.LastSelection {
	selection := s.selections.Load(ctx)
	if selection == nil {
		return nil
	}
	if _, ok := s.sources.Language(selection.Language); !ok {
		languages := s.sources.LanguageCodes()
		if len(languages) == 0 {
			return nil
		}
		selection.Language = languages[0]
	}
	selection.Grade = s.ResolveGrade(selection.Language, selection.Grade)
	return selection
}

// Summary projects the child's records for display
func (s *DictationService) Summary(ctx context.Context, child string) models.ChildSummary {
	return ProjectSummary(s.records.Load(ctx), strings.TrimSpace(child), s.sources.LanguageCodes())
}

// ResetRecords deletes every child's records
func (s *DictationService) ResetRecords(ctx context.Context) error {
	return s.records.ClearAll(ctx)
}

func copyItems(items []string) []string {
	if items == nil {
		return nil
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}
