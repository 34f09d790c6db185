package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/wykstemteam/wykoj"
)

type dbTestCaseResult struct {
	ID           int       `db:"id"`
	CreatedAt    time.Time `db:"created_at"`
	SubmissionID int       `db:"submission_id"`
	Subtask      int       `db:"subtask"`
	TestCase     int       `db:"test_case"`

	Verdict    string          `db:"verdict"`
	Score      decimal.Decimal `db:"score"`
	TimeUsed   float64         `db:"time_used"`
	MemoryUsed int             `db:"memory_used"`
}

func (s *DB) TestCaseResults(ctx context.Context, submissionID int) ([]*wykoj.TestCaseResult, error) {
	var results []*dbTestCaseResult
	err := Select(s.conn, ctx, &results,
		"SELECT * FROM test_case_results WHERE submission_id = $1 ORDER BY subtask ASC, test_case ASC", submissionID)
	if err != nil {
		return []*wykoj.TestCaseResult{}, err
	}
	return mapper(results, internalToTestCaseResult), nil
}

// CreateTestCaseResults replaces the submissions' results in one batch,
// atomically. Rows left behind by an earlier judging attempt that failed
// before the verdict write are dropped first, so a retried report can never
// accumulate duplicates.
func (s *DB) CreateTestCaseResults(ctx context.Context, results []*wykoj.TestCaseResult) error {
	if len(results) == 0 {
		return nil
	}
	subIDs := []int{}
	seen := map[int]bool{}
	rows := make([][]any, 0, len(results))
	for _, r := range results {
		if !seen[r.SubmissionID] {
			seen[r.SubmissionID] = true
			subIDs = append(subIDs, r.SubmissionID)
		}
		rows = append(rows, []any{r.SubmissionID, r.Subtask, r.TestCase, string(r.Verdict), r.Score, r.TimeUsed, r.MemoryUsed})
	}
	return pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM test_case_results WHERE submission_id = ANY($1)", subIDs); err != nil {
			return err
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"test_case_results"},
			[]string{"submission_id", "subtask", "test_case", "verdict", "score", "time_used", "memory_used"},
			pgx.CopyFromRows(rows),
		)
		return err
	})
}

func internalToTestCaseResult(r *dbTestCaseResult) *wykoj.TestCaseResult {
	if r == nil {
		return nil
	}
	return &wykoj.TestCaseResult{
		ID:           r.ID,
		SubmissionID: r.SubmissionID,
		Subtask:      r.Subtask,
		TestCase:     r.TestCase,
		Verdict:      wykoj.Verdict(r.Verdict),
		Score:        r.Score,
		TimeUsed:     r.TimeUsed,
		MemoryUsed:   r.MemoryUsed,
	}
}
