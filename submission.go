package wykoj

import (
	"time"

	"github.com/shopspring/decimal"
)

type Submission struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	TaskID    int       `json:"task_id" db:"task_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Language  string    `json:"language"`
	Code      string    `json:"code,omitempty"`

	Verdict Verdict         `json:"verdict"`
	Score   decimal.Decimal `json:"score"`

	// SubtaskScores is only set for batched tasks: the i-th entry is the
	// weighted score of subtask i+1 at the moment judging completed.
	SubtaskScores []decimal.Decimal `json:"subtask_scores,omitempty" db:"subtask_scores"`

	// TimeUsed (seconds) and MemoryUsed (kilobytes) are populated only for
	// accepted submissions: worst case across all test cases.
	TimeUsed   *float64 `json:"time_used,omitempty" db:"time_used"`
	MemoryUsed *int     `json:"memory_used,omitempty" db:"memory_used"`

	FirstSolve bool `json:"first_solve" db:"first_solve"`

	// ContestID is set iff the author was a contestant and the contest was
	// ongoing at submission time.
	ContestID *int `json:"contest_id,omitempty" db:"contest_id"`
}

type SubmissionUpdate struct {
	Verdict Verdict
	Score   *decimal.Decimal

	SubtaskScores      []decimal.Decimal
	ClearSubtaskScores bool

	TimeUsed      *float64
	MemoryUsed    *int
	ClearResource bool

	FirstSolve *bool
}

type SubmissionFilter struct {
	ID        *int `json:"id"`
	TaskID    *int `json:"task_id"`
	UserID    *int `json:"user_id"`
	ContestID *int `json:"contest_id"`

	Verdict    Verdict `json:"verdict"`
	FirstSolve *bool   `json:"first_solve"`

	Ascending bool `json:"ascending"`
	Limit     int  `json:"limit"`
	Offset    int  `json:"offset"`
}

// TestCaseResult is the outcome of one (subtask, test case) pair. Rows are
// created in bulk when judging completes and never mutated afterwards.
type TestCaseResult struct {
	ID           int     `json:"id"`
	SubmissionID int     `json:"submission_id" db:"submission_id"`
	Subtask      int     `json:"subtask"`
	TestCase     int     `json:"test_case" db:"test_case"`
	Verdict      Verdict `json:"verdict"`

	Score      decimal.Decimal `json:"score"`
	TimeUsed   float64         `json:"time_used" db:"time_used"`
	MemoryUsed int             `json:"memory_used" db:"memory_used"`
}
