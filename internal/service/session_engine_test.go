package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"dictation/internal/models"
)

type recordedAttempt struct {
	child, language, grade, item, input string
	correct                             bool
}

type fakeRecorder struct {
	attempts []recordedAttempt
	err      error
}

func (f *fakeRecorder) RecordAttempt(_ context.Context, child, language, grade, item, input string, correct bool) error {
	if f.err != nil {
		return f.err
	}
	f.attempts = append(f.attempts, recordedAttempt{child, language, grade, item, input, correct})
	return nil
}

type rewardMap map[string]int

func (r rewardMap) Reward(language string) int {
	return r[language]
}

func makePool(n int) []string {
	pool := make([]string, n)
	for i := range pool {
		pool[i] = fmt.Sprintf("word%02d", i)
	}
	return pool
}

func newTestEngine(seed uint64) (*SessionEngine, *fakeRecorder) {
	recorder := &fakeRecorder{}
	engine := NewSessionEngine(rewardMap{"ko": 100, "en": 200}, recorder, rand.New(rand.NewPCG(seed, seed+1)))
	return engine, recorder
}

func TestClampCount(t *testing.T) {
	tests := []struct {
		requested int
		expected  int
	}{
		{requested: -5, expected: 3},
		{requested: 1, expected: 3},
		{requested: 3, expected: 3},
		{requested: 10, expected: 10},
		{requested: 30, expected: 30},
		{requested: 1000, expected: 30},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.requested), func(t *testing.T) {
			if got := ClampCount(tt.requested); got != tt.expected {
				t.Errorf("ClampCount(%d) = %d, want %d", tt.requested, got, tt.expected)
			}
		})
	}
}

func TestStartDrawsShuffledSubset(t *testing.T) {
	pool := makePool(20)
	inPool := make(map[string]bool)
	for _, item := range pool {
		inPool[item] = true
	}

	differentOrder := 0
	for trial := 0; trial < 20; trial++ {
		engine, _ := newTestEngine(uint64(trial))
		snapshot, err := engine.Start("Mina", "en", "G1", 10, pool)
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if snapshot.TotalItems != 10 || snapshot.TargetCount != 10 {
			t.Fatalf("snapshot = %+v, want 10 items", snapshot)
		}

		items := engine.Items()
		seen := make(map[string]bool)
		for _, item := range items {
			if !inPool[item] {
				t.Fatalf("item %q not drawn from pool", item)
			}
			if seen[item] {
				t.Fatalf("duplicate item %q", item)
			}
			seen[item] = true
		}

		for i, item := range items {
			if item != pool[i] {
				differentOrder++
				break
			}
		}
	}

	if differentOrder < 19 {
		t.Errorf("order matched pool order in %d of 20 trials", 20-differentOrder)
	}
	if pool[0] != "word00" || pool[19] != "word19" {
		t.Error("Start must not reorder the caller's pool")
	}
}

func TestStartClampsCount(t *testing.T) {
	engine, _ := newTestEngine(1)

	snapshot, err := engine.Start("Mina", "en", "G1", 1, makePool(50))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if snapshot.TotalItems != 3 {
		t.Errorf("requested 1 gave %d items, want 3", snapshot.TotalItems)
	}

	snapshot, err = engine.Start("Mina", "en", "G1", 1000, makePool(50))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if snapshot.TotalItems != 30 {
		t.Errorf("requested 1000 gave %d items, want 30", snapshot.TotalItems)
	}
}

func TestStartWithSmallPool(t *testing.T) {
	engine, _ := newTestEngine(1)

	snapshot, err := engine.Start("Mina", "ko", "G1", 10, makePool(4))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if snapshot.TotalItems != 4 || snapshot.TargetCount != 10 {
		t.Errorf("snapshot = %+v, want 4 items with target 10", snapshot)
	}
}

func TestStartValidation(t *testing.T) {
	tests := []struct {
		name  string
		child string
		pool  []string
	}{
		{name: "empty child", child: "", pool: makePool(5)},
		{name: "blank child", child: "   ", pool: makePool(5)},
		{name: "empty pool", child: "Mina", pool: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := newTestEngine(1)
			_, err := engine.Start(tt.child, "en", "G1", 5, tt.pool)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Start error = %v, want ErrValidation", err)
			}
			if engine.State() != models.SessionIdle {
				t.Errorf("State = %s, want idle", engine.State())
			}
		})
	}
}

func TestSubmitAnswer(t *testing.T) {
	engine, recorder := newTestEngine(7)
	if _, err := engine.Start("Mina", "en", "G1", 3, []string{"Apple", "Banana", "Cherry"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	item, _ := engine.CurrentItem()
	result, err := engine.SubmitAnswer(context.Background(), "  "+item+"! ")
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if !result.Correct || result.CorrectItem != item {
		t.Errorf("result = %+v, want correct %q", result, item)
	}
	if result.Score != 1 || result.Reward != 200 {
		t.Errorf("score/reward = %d/%d, want 1/200", result.Score, result.Reward)
	}

	if _, err := engine.Advance(); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	result, err = engine.SubmitAnswer(context.Background(), "wrong")
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if result.Correct {
		t.Error("expected incorrect answer")
	}
	if result.Score != 1 || result.Reward != 200 {
		t.Errorf("score/reward after miss = %d/%d, want 1/200", result.Score, result.Reward)
	}

	if len(recorder.attempts) != 2 {
		t.Fatalf("recorded %d attempts, want 2", len(recorder.attempts))
	}
	miss := recorder.attempts[1]
	if miss.correct || miss.input != "wrong" || miss.child != "Mina" || miss.language != "en" || miss.grade != "G1" {
		t.Errorf("recorded miss = %+v", miss)
	}
}

func TestSubmitAnswerLocksQuestion(t *testing.T) {
	engine, recorder := newTestEngine(3)
	if _, err := engine.Start("Mina", "ko", "G1", 3, []string{"가", "나", "다"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	item, _ := engine.CurrentItem()
	if _, err := engine.SubmitAnswer(context.Background(), item); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if engine.State() != models.SessionAnswered {
		t.Errorf("State = %s, want answered", engine.State())
	}

	_, err := engine.SubmitAnswer(context.Background(), item)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("second SubmitAnswer error = %v, want ErrInvalidState", err)
	}
	if engine.Snapshot().Score != 1 || len(recorder.attempts) != 1 {
		t.Error("resubmission must not change score or history")
	}
}

func TestSubmitAnswerRecorderFailure(t *testing.T) {
	engine, recorder := newTestEngine(3)
	if _, err := engine.Start("Mina", "ko", "G1", 3, []string{"가", "나", "다"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	recorder.err = errors.New("disk full")
	item, _ := engine.CurrentItem()
	if _, err := engine.SubmitAnswer(context.Background(), item); err == nil {
		t.Fatal("expected recorder error")
	}
	if engine.State() != models.SessionActive || engine.Snapshot().Score != 0 {
		t.Error("failed recording must leave the question open and unscored")
	}
}

func TestSubmitAnswerWithoutSession(t *testing.T) {
	engine, _ := newTestEngine(1)
	if _, err := engine.SubmitAnswer(context.Background(), "x"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("SubmitAnswer error = %v, want ErrInvalidState", err)
	}
	if _, err := engine.Advance(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Advance error = %v, want ErrInvalidState", err)
	}
	if _, err := engine.Result(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Result error = %v, want ErrInvalidState", err)
	}
}

func TestAdvanceToCompletion(t *testing.T) {
	engine, _ := newTestEngine(11)
	if _, err := engine.Start("Jun", "ko", "G2", 3, []string{"하나", "둘", "셋"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		item, ok := engine.CurrentItem()
		if !ok {
			t.Fatalf("no current item at question %d", i)
		}
		if _, err := engine.SubmitAnswer(ctx, item); err != nil {
			t.Fatalf("SubmitAnswer %d failed: %v", i, err)
		}
		advance, err := engine.Advance()
		if err != nil {
			t.Fatalf("Advance %d failed: %v", i, err)
		}
		if i < 2 {
			if advance.Completed || advance.CurrentIndex != i+1 {
				t.Errorf("advance %d = %+v", i, advance)
			}
			if engine.State() != models.SessionActive {
				t.Errorf("State after advance %d = %s", i, engine.State())
			}
			continue
		}
		if !advance.Completed || advance.Result == nil {
			t.Fatalf("last advance = %+v, want completed", advance)
		}
		want := models.SessionResult{Score: 3, TotalQuestions: 3, EarnedReward: 300}
		if *advance.Result != want {
			t.Errorf("result = %+v, want %+v", *advance.Result, want)
		}
	}

	if engine.State() != models.SessionCompleted {
		t.Fatalf("State = %s, want completed", engine.State())
	}

	again, err := engine.Advance()
	if err != nil {
		t.Fatalf("Advance on completed session failed: %v", err)
	}
	if !again.Completed || again.Result.Score != 3 {
		t.Errorf("Advance on completed session = %+v", again)
	}
	if _, err := engine.SubmitAnswer(ctx, "하나"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("SubmitAnswer on completed session error = %v", err)
	}
	if _, ok := engine.CurrentItem(); ok {
		t.Error("completed session must have no current item")
	}
	if result, err := engine.Result(); err != nil || result.TotalQuestions != 3 {
		t.Errorf("Result() = %+v, %v", result, err)
	}
}

func TestAdvanceSkipsUnansweredQuestion(t *testing.T) {
	engine, recorder := newTestEngine(5)
	if _, err := engine.Start("Mina", "en", "G1", 3, makePool(3)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	advance, err := engine.Advance()
	if err != nil || advance.CurrentIndex != 1 {
		t.Fatalf("Advance = %+v, %v", advance, err)
	}
	if len(recorder.attempts) != 0 {
		t.Error("skipping must not record history")
	}
}

func TestStartReplacesPreviousSession(t *testing.T) {
	engine, _ := newTestEngine(9)
	first, err := engine.Start("Mina", "en", "G1", 3, makePool(3))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	item, _ := engine.CurrentItem()
	if _, err := engine.SubmitAnswer(context.Background(), item); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	second, err := engine.Start("Jun", "ko", "G2", 5, makePool(10))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if second.ID == first.ID {
		t.Error("expected a new session ID")
	}
	if second.Score != 0 || second.EarnedReward != 0 || second.CurrentIndex != 0 || second.State != models.SessionActive {
		t.Errorf("new session not reset: %+v", second)
	}
}
