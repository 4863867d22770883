package models

import "time"

// SessionState is the lifecycle state of a dictation session
type SessionState string

const (
	SessionIdle      SessionState = "idle"
	SessionActive    SessionState = "active"
	SessionAnswered  SessionState = "answered"
	SessionCompleted SessionState = "completed"
)

// Session count limits; requested counts are clamped into this range.
const (
	MinSessionItems = 3
	MaxSessionItems = 30
)

// SessionSnapshot is a read-only view of the current session for display.
type SessionSnapshot struct {
	ID           string       `json:"id"`
	State        SessionState `json:"state"`
	Child        string       `json:"child"`
	Language     string       `json:"language"`
	Grade        string       `json:"grade"`
	TargetCount  int          `json:"target_count"`
	TotalItems   int          `json:"total_items"`
	CurrentIndex int          `json:"current_index"`
	Score        int          `json:"score"`
	EarnedReward int          `json:"earned_reward"`
	StartedAt    time.Time    `json:"started_at"`
}

// AnswerResult is returned for every submitted answer.
type AnswerResult struct {
	Correct     bool   `json:"correct"`
	CorrectItem string `json:"correct_item"`
	Input       string `json:"input"`
	Score       int    `json:"score"`
	Reward      int    `json:"earned_reward"`
}

// SessionResult is exposed once a session is completed.
type SessionResult struct {
	Score          int `json:"score"`
	TotalQuestions int `json:"total_questions"`
	EarnedReward   int `json:"earned_reward"`
}

// AdvanceResult reports the outcome of moving to the next question.
// Result is set only when the session has completed.
type AdvanceResult struct {
	Completed    bool           `json:"completed"`
	CurrentIndex int            `json:"current_index"`
	Result       *SessionResult `json:"result,omitempty"`
}
