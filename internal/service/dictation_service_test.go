package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"dictation/internal/kvstore"
	"dictation/internal/models"
	"dictation/internal/repository"
)

type fakeFetcher struct {
	mu     sync.Mutex
	pools  map[string][]string
	err    error
	gates  map[string]chan struct{}
	called []string
}

func (f *fakeFetcher) Load(ctx context.Context, language, grade string) ([]string, error) {
	key := language + "/" + grade
	f.mu.Lock()
	f.called = append(f.called, key)
	gate := f.gates[key]
	err := f.err
	items := f.pools[key]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if items == nil {
		return nil, ErrConfiguration
	}
	return append([]string(nil), items...), nil
}

func newTestDictationService(fetcher *fakeFetcher) (*DictationService, *repository.RecordRepository) {
	store := kvstore.NewMemoryStore()
	sources := testSources()
	records := repository.NewRecordRepository(store, sources)
	selections := repository.NewSelectionRepository(store)
	engine := NewSessionEngine(sources, records, rand.New(rand.NewPCG(1, 2)))
	return NewDictationService(sources, fetcher, records, selections, engine), records
}

func TestDictationServiceFullSession(t *testing.T) {
	fetcher := &fakeFetcher{pools: map[string][]string{
		"en/G1": {"apple", "banana", "cherry", "grape"},
	}}
	svc, records := newTestDictationService(fetcher)
	ctx := context.Background()

	snapshot, err := svc.StartSession(ctx, " Mina ", "en", "G1", 3)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if snapshot.Child != "Mina" || snapshot.TotalItems != 3 {
		t.Errorf("snapshot = %+v", snapshot)
	}
	if len(fetcher.called) != 1 {
		t.Errorf("expected pool to be loaded once, got %v", fetcher.called)
	}

	for i := 0; i < 3; i++ {
		prompt, language, ok := svc.CurrentPrompt()
		if !ok || language != "en" {
			t.Fatalf("CurrentPrompt = %q, %q, %v", prompt, language, ok)
		}
		answer := prompt
		if i == 1 {
			answer = "nope"
		}
		if _, err := svc.SubmitAnswer(ctx, answer); err != nil {
			t.Fatalf("SubmitAnswer failed: %v", err)
		}
		if _, err := svc.Advance(); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
	}

	final := svc.Session()
	if final.State != models.SessionCompleted || final.Score != 2 || final.EarnedReward != 400 {
		t.Errorf("final session = %+v", final)
	}

	record := records.GetLanguageRecord(ctx, "Mina", "en")
	if record.Attempted != 3 || record.Correct != 2 || record.TotalReward != 400 {
		t.Errorf("record = %+v", record)
	}

	summary := svc.Summary(ctx, "Mina")
	if summary.PerLanguage["en"].AccuracyPercent != 67 {
		t.Errorf("accuracy = %d, want 67", summary.PerLanguage["en"].AccuracyPercent)
	}

	selection := svc.LastSelection(ctx)
	if selection == nil || selection.Name != "Mina" || selection.Language != "en" || selection.Grade != "G1" {
		t.Errorf("LastSelection = %+v", selection)
	}

	if err := svc.ResetRecords(ctx); err != nil {
		t.Fatalf("ResetRecords failed: %v", err)
	}
	if got := svc.Summary(ctx, "Mina").PerLanguage["en"].Attempted; got != 0 {
		t.Errorf("Attempted after reset = %d", got)
	}
}

func TestDictationServiceStartErrors(t *testing.T) {
	fetcher := &fakeFetcher{pools: map[string][]string{"ko/G1": {}}}
	svc, _ := newTestDictationService(fetcher)
	ctx := context.Background()

	if _, err := svc.StartSession(ctx, "", "ko", "G1", 5); !errors.Is(err, ErrValidation) {
		t.Errorf("empty child error = %v", err)
	}
	if _, err := svc.StartSession(ctx, "Mina", "ko", "G1", 5); !errors.Is(err, ErrValidation) {
		t.Errorf("empty pool error = %v", err)
	}
	if _, err := svc.StartSession(ctx, "Mina", "ko", "G9", 5); !errors.Is(err, ErrConfiguration) {
		t.Errorf("unknown grade error = %v", err)
	}
	if svc.Session().State != models.SessionIdle {
		t.Errorf("State = %s, want idle", svc.Session().State)
	}
}

func TestLoadPoolFailureKeepsPreviousPool(t *testing.T) {
	fetcher := &fakeFetcher{pools: map[string][]string{"ko/G1": {"가", "나", "다"}}}
	svc, _ := newTestDictationService(fetcher)
	ctx := context.Background()

	if _, err := svc.LoadPool(ctx, "ko", "G1"); err != nil {
		t.Fatalf("LoadPool failed: %v", err)
	}

	fetcher.err = ErrFetch
	if _, err := svc.LoadPool(ctx, "ko", "G2"); !errors.Is(err, ErrFetch) {
		t.Fatalf("LoadPool error = %v, want ErrFetch", err)
	}

	items, language, grade := svc.Pool()
	if len(items) != 3 || language != "ko" || grade != "G1" {
		t.Errorf("pool after failure = %v %s/%s", items, language, grade)
	}
}

func TestLoadPoolDiscardsStaleResponse(t *testing.T) {
	slow := make(chan struct{})
	fetcher := &fakeFetcher{
		pools: map[string][]string{
			"ko/G1": {"느린"},
			"en/G1": {"fast"},
		},
		gates: map[string]chan struct{}{"ko/G1": slow},
	}
	svc, _ := newTestDictationService(fetcher)
	ctx := context.Background()

	staleErr := make(chan error, 1)
	go func() {
		_, err := svc.LoadPool(ctx, "ko", "G1")
		staleErr <- err
	}()

	// Wait until the slow load has taken its sequence number
	for {
		fetcher.mu.Lock()
		n := len(fetcher.called)
		fetcher.mu.Unlock()
		if n == 1 {
			break
		}
	}

	if _, err := svc.LoadPool(ctx, "en", "G1"); err != nil {
		t.Fatalf("LoadPool failed: %v", err)
	}
	close(slow)

	if err := <-staleErr; !errors.Is(err, ErrStaleLoad) {
		t.Errorf("stale load error = %v, want ErrStaleLoad", err)
	}

	items, language, _ := svc.Pool()
	if language != "en" || len(items) != 1 || items[0] != "fast" {
		t.Errorf("pool = %v (%s), want the latest load", items, language)
	}
}

func TestCurrentPromptFallsBackToPool(t *testing.T) {
	fetcher := &fakeFetcher{pools: map[string][]string{"ko/G1": {"가", "나", "다"}}}
	svc, _ := newTestDictationService(fetcher)

	if _, _, ok := svc.CurrentPrompt(); ok {
		t.Error("expected no prompt before any load")
	}
	if _, err := svc.LoadPool(context.Background(), "ko", "G1"); err != nil {
		t.Fatalf("LoadPool failed: %v", err)
	}
	text, language, ok := svc.CurrentPrompt()
	if !ok || text != "가" || language != "ko" {
		t.Errorf("CurrentPrompt = %q, %q, %v", text, language, ok)
	}
}

func TestLastSelectionIsValidated(t *testing.T) {
	svc, _ := newTestDictationService(&fakeFetcher{})
	ctx := context.Background()

	if svc.LastSelection(ctx) != nil {
		t.Error("expected no selection initially")
	}

	if err := svc.SaveSelection(ctx, "Jun", "en", "G7"); err != nil {
		t.Fatalf("SaveSelection failed: %v", err)
	}
	selection := svc.LastSelection(ctx)
	if selection == nil || selection.Grade != "G1" {
		t.Errorf("LastSelection = %+v, want grade fallback to G1", selection)
	}

	if err := svc.SaveSelection(ctx, "Jun", "xx", "G2"); err != nil {
		t.Fatalf("SaveSelection failed: %v", err)
	}
	selection = svc.LastSelection(ctx)
	if selection == nil || selection.Language != "ko" || selection.Grade != "G1" {
		t.Errorf("LastSelection = %+v, want ko/G1 fallback", selection)
	}
}

func TestGrades(t *testing.T) {
	svc, _ := newTestDictationService(&fakeFetcher{})

	grades := svc.Grades("ko")
	if len(grades) != 2 || grades[0] != "G1" || grades[1] != "G2" {
		t.Errorf("Grades(ko) = %v", grades)
	}
	if svc.ResolveGrade("ko", "G2") != "G2" || svc.ResolveGrade("ko", "") != "G1" {
		t.Error("ResolveGrade did not keep or fall back correctly")
	}
	if svc.ResolveGrade("zz", "G1") != "" {
		t.Error("unknown language must resolve to no grade")
	}
}
