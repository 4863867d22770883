package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"dictation/internal/models"
	"dictation/internal/repository"
	"dictation/internal/textnorm"

	"github.com/google/uuid"
)

// AttemptRecorder persists every submitted answer.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, child, language, grade, item, input string, correct bool) error
}

// session is the mutable state of one run of questions.
type session struct {
	id           string
	state        models.SessionState
	child        string
	language     string
	grade        string
	targetCount  int
	currentIndex int
	score        int
	earnedReward int
	items        []string
	startedAt    time.Time
}

// SessionEngine drives a single dictation session through
// idle -> active <-> answered -> completed. It is not safe for concurrent
// use; DictationService serializes access.
type SessionEngine struct {
	rewards  repository.RewardTable
	recorder AttemptRecorder
	rng      *rand.Rand
	now      func() time.Time

	current *session
}

// NewSessionEngine creates an idle engine. A nil rng uses a randomly seeded source.
func NewSessionEngine(rewards repository.RewardTable, recorder AttemptRecorder, rng *rand.Rand) *SessionEngine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &SessionEngine{
		rewards:  rewards,
		recorder: recorder,
		rng:      rng,
		now:      time.Now,
	}
}

// ClampCount bounds a requested question count to [MinSessionItems, MaxSessionItems].
func ClampCount(requested int) int {
	if requested < models.MinSessionItems {
		return models.MinSessionItems
	}
	if requested > models.MaxSessionItems {
		return models.MaxSessionItems
	}
	return requested
}

// Start replaces any previous session with a new one drawn from pool.
// The pool is shuffled and the first ClampCount(requested) items are used;
// a smaller pool yields a shorter session.
func (e *SessionEngine) Start(child, language, grade string, requested int, pool []string) (models.SessionSnapshot, error) {
	child = strings.TrimSpace(child)
	if child == "" {
		return models.SessionSnapshot{}, fmt.Errorf("%w: child name is required", ErrValidation)
	}
	if len(pool) == 0 {
		return models.SessionSnapshot{}, fmt.Errorf("%w: item pool is empty", ErrValidation)
	}

	target := ClampCount(requested)

	shuffled := make([]string, len(pool))
	copy(shuffled, pool)
	e.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if len(shuffled) > target {
		shuffled = shuffled[:target]
	}

	e.current = &session{
		id:          uuid.New().String(),
		state:       models.SessionActive,
		child:       child,
		language:    language,
		grade:       grade,
		targetCount: target,
		items:       shuffled,
		startedAt:   e.now(),
	}

	return e.Snapshot(), nil
}

// CurrentItem returns the item being asked, if a question is open or answered.
func (e *SessionEngine) CurrentItem() (string, bool) {
	s := e.current
	if s == nil || s.state == models.SessionCompleted {
		return "", false
	}
	return s.items[s.currentIndex], true
}

// SubmitAnswer compares the input with the current item, records the attempt
// and locks the question until Advance is called.
func (e *SessionEngine) SubmitAnswer(ctx context.Context, input string) (models.AnswerResult, error) {
	s := e.current
	if s == nil || s.state != models.SessionActive {
		return models.AnswerResult{}, fmt.Errorf("%w: no open question in state %s", ErrInvalidState, e.State())
	}

	item := s.items[s.currentIndex]
	correct := textnorm.Equal(input, item, s.language)

	if err := e.recorder.RecordAttempt(ctx, s.child, s.language, s.grade, item, input, correct); err != nil {
		return models.AnswerResult{}, fmt.Errorf("failed to record attempt: %w", err)
	}

	if correct {
		s.score++
		s.earnedReward += e.rewards.Reward(s.language)
	}
	s.state = models.SessionAnswered

	return models.AnswerResult{
		Correct:     correct,
		CorrectItem: item,
		Input:       input,
		Score:       s.score,
		Reward:      s.earnedReward,
	}, nil
}

// Advance moves to the next question, or completes the session after the
// last one. Advancing a completed session changes nothing.
func (e *SessionEngine) Advance() (models.AdvanceResult, error) {
	s := e.current
	if s == nil {
		return models.AdvanceResult{}, fmt.Errorf("%w: no session started", ErrInvalidState)
	}

	switch s.state {
	case models.SessionCompleted:
		return e.completedResult(), nil
	case models.SessionActive, models.SessionAnswered:
		if s.currentIndex < len(s.items)-1 {
			s.currentIndex++
			s.state = models.SessionActive
			return models.AdvanceResult{CurrentIndex: s.currentIndex}, nil
		}
		s.state = models.SessionCompleted
		return e.completedResult(), nil
	default:
		return models.AdvanceResult{}, fmt.Errorf("%w: cannot advance in state %s", ErrInvalidState, s.state)
	}
}

// Result returns the final tally once the session is completed.
func (e *SessionEngine) Result() (models.SessionResult, error) {
	s := e.current
	if s == nil || s.state != models.SessionCompleted {
		return models.SessionResult{}, fmt.Errorf("%w: session not completed", ErrInvalidState)
	}
	return *e.completedResult().Result, nil
}

// State reports the current lifecycle state.
func (e *SessionEngine) State() models.SessionState {
	if e.current == nil {
		return models.SessionIdle
	}
	return e.current.state
}

// Snapshot returns a copy of the session for display.
func (e *SessionEngine) Snapshot() models.SessionSnapshot {
	s := e.current
	if s == nil {
		return models.SessionSnapshot{State: models.SessionIdle}
	}
	return models.SessionSnapshot{
		ID:           s.id,
		State:        s.state,
		Child:        s.child,
		Language:     s.language,
		Grade:        s.grade,
		TargetCount:  s.targetCount,
		TotalItems:   len(s.items),
		CurrentIndex: s.currentIndex,
		Score:        s.score,
		EarnedReward: s.earnedReward,
		StartedAt:    s.startedAt,
	}
}

// Items returns a copy of the drawn items in question order.
func (e *SessionEngine) Items() []string {
	if e.current == nil {
		return nil
	}
	items := make([]string, len(e.current.items))
	copy(items, e.current.items)
	return items
}

func (e *SessionEngine) completedResult() models.AdvanceResult {
	s := e.current
	return models.AdvanceResult{
		Completed:    true,
		CurrentIndex: s.currentIndex,
		Result: &models.SessionResult{
			Score:          s.score,
			TotalQuestions: len(s.items),
			EarnedReward:   s.earnedReward,
		},
	}
}
