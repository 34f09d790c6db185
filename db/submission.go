package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/wykstemteam/wykoj"
)

type dbSubmission struct {
	ID        int       `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	TaskID    int       `db:"task_id"`
	UserID    int       `db:"user_id"`
	Language  string    `db:"language"`
	Code      string    `db:"code"`

	Verdict       string            `db:"verdict"`
	Score         decimal.Decimal   `db:"score"`
	SubtaskScores []decimal.Decimal `db:"subtask_scores"`

	TimeUsed   *float64 `db:"time_used"`
	MemoryUsed *int     `db:"memory_used"`

	FirstSolve bool `db:"first_solve"`
	ContestID  *int `db:"contest_id"`
}

func (s *DB) Submission(ctx context.Context, id int) (*wykoj.Submission, error) {
	var sub dbSubmission
	err := Get(s.conn, ctx, &sub, "SELECT * FROM submissions WHERE id = $1 LIMIT 1", id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s.internalToSubmission(&sub), err
}

func (s *DB) Submissions(ctx context.Context, filter wykoj.SubmissionFilter) ([]*wykoj.Submission, error) {
	var subs []*dbSubmission
	fb := newFilterBuilder()
	subFilterQuery(&filter, fb)

	ord := "ORDER BY id DESC"
	if filter.Ascending {
		ord = "ORDER BY id ASC"
	}
	query := fmt.Sprintf("SELECT * FROM submissions WHERE %s %s %s", fb.Where(), ord, FormatLimitOffset(filter.Limit, filter.Offset))
	err := Select(s.conn, ctx, &subs, query, fb.Args()...)
	if err != nil {
		return []*wykoj.Submission{}, err
	}
	return mapper(subs, s.internalToSubmission), nil
}

func (s *DB) SubmissionCount(ctx context.Context, filter wykoj.SubmissionFilter) (int, error) {
	fb := newFilterBuilder()
	subFilterQuery(&filter, fb)
	var val int
	err := s.conn.QueryRow(ctx, "SELECT COUNT(*) FROM submissions WHERE "+fb.Where(), fb.Args()...).Scan(&val)
	if err != nil {
		return -1, err
	}
	return val, nil
}

const createSubQuery = "INSERT INTO submissions (task_id, user_id, contest_id, language, code) VALUES ($1, $2, $3, $4, $5) RETURNING id;"

func (s *DB) CreateSubmission(ctx context.Context, authorID int, task *wykoj.Task, language string, code string, contestID *int) (int, error) {
	if authorID <= 0 || task == nil || language == "" || code == "" {
		return -1, wykoj.ErrMissingRequired
	}
	var id int
	err := s.conn.QueryRow(ctx, createSubQuery, task.ID, authorID, contestID, language, code).Scan(&id)
	return id, err
}

// LastSubmissionTime returns the creation time of the author's most recent
// submission, or nil if they never submitted. Used for the cooldown check.
func (s *DB) LastSubmissionTime(ctx context.Context, userID int) (*time.Time, error) {
	var t time.Time
	err := s.conn.QueryRow(ctx, "SELECT created_at FROM submissions WHERE user_id = $1 ORDER BY id DESC LIMIT 1", userID).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *DB) UpdateSubmission(ctx context.Context, id int, upd wykoj.SubmissionUpdate) error {
	return s.BulkUpdateSubmissions(ctx, wykoj.SubmissionFilter{ID: &id}, upd)
}

func (s *DB) BulkUpdateSubmissions(ctx context.Context, filter wykoj.SubmissionFilter, upd wykoj.SubmissionUpdate) error {
	ub := newUpdateBuilder()
	subUpdateQuery(&upd, ub)
	if err := ub.CheckUpdates(); err != nil {
		return err
	}
	fb := ub.MakeFilter()
	subFilterQuery(&filter, fb)
	_, err := s.conn.Exec(ctx, "UPDATE submissions SET "+fb.WithUpdate(), fb.Args()...)
	return err
}

// ResetSubmission puts a submission back to Pending for rejudging: verdict,
// score, resources and first_solve are cleared, test case results dropped,
// and the solve counters are decremented if it had been a first solve.
func (s *DB) ResetSubmission(ctx context.Context, id int) error {
	return pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		var wasFirstSolve bool
		var taskID, userID int
		err := tx.QueryRow(ctx, "SELECT first_solve, task_id, user_id FROM submissions WHERE id = $1 FOR UPDATE", id).Scan(&wasFirstSolve, &taskID, &userID)
		if err != nil {
			return err
		}
		if wasFirstSolve {
			if err := decrementSolves(ctx, tx, taskID, userID); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `
			UPDATE submissions
			SET verdict = 'pe', score = 0, subtask_scores = NULL,
				time_used = NULL, memory_used = NULL, first_solve = FALSE
			WHERE id = $1`, id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, "DELETE FROM test_case_results WHERE submission_id = $1", id)
		return err
	})
}

// ClaimFirstSolve marks the submission as its author's first solve of the
// task and increments the denormalized solve counters, but only if no other
// submission for the (task, author) pair holds the flag. The conditional
// update and the partial unique index together make the claim race-safe: of
// two concurrent claims one succeeds and the other either matches zero rows
// or hits a unique violation, which is reported as "not first".
func (s *DB) ClaimFirstSolve(ctx context.Context, sub *wykoj.Submission) (bool, error) {
	var claimed bool
	err := pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE submissions SET first_solve = TRUE
			WHERE id = $1 AND verdict = 'ac' AND NOT EXISTS (
				SELECT 1 FROM submissions
				WHERE task_id = $2 AND user_id = $3 AND first_solve
			)`, sub.ID, sub.TaskID, sub.UserID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		claimed = true
		if _, err := tx.Exec(ctx, "UPDATE tasks SET solves = solves + 1 WHERE id = $1", sub.TaskID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, "UPDATE users SET solves = solves + 1 WHERE id = $1", sub.UserID)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Lost the race against a concurrent claim
			return false, nil
		}
		return false, err
	}
	return claimed, nil
}

// DeleteSubmission removes a submission. A deleted first solve is inherited
// by the next earliest accepted submission for the pair; the counters are
// decremented only when there is no successor.
func (s *DB) DeleteSubmission(ctx context.Context, id int) error {
	return pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		var wasFirstSolve bool
		var taskID, userID int
		err := tx.QueryRow(ctx, "SELECT first_solve, task_id, user_id FROM submissions WHERE id = $1 FOR UPDATE", id).Scan(&wasFirstSolve, &taskID, &userID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM submissions WHERE id = $1", id); err != nil {
			return err
		}
		if !wasFirstSolve {
			return nil
		}
		tag, err := tx.Exec(ctx, `
			UPDATE submissions SET first_solve = TRUE
			WHERE id = (
				SELECT id FROM submissions
				WHERE task_id = $1 AND user_id = $2 AND verdict = 'ac'
				ORDER BY id ASC LIMIT 1
			)`, taskID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return decrementSolves(ctx, tx, taskID, userID)
		}
		return nil
	})
}

func decrementSolves(ctx context.Context, tx pgx.Tx, taskID, userID int) error {
	if _, err := tx.Exec(ctx, "UPDATE tasks SET solves = solves - 1 WHERE id = $1", taskID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, "UPDATE users SET solves = solves - 1 WHERE id = $1", userID)
	return err
}

// RecalculateSolves rebuilds both denormalized solve counters from the
// first_solve flags. Used after bulk rejudges.
func (s *DB) RecalculateSolves(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, `
		UPDATE tasks SET solves = (
			SELECT COUNT(*) FROM submissions
			WHERE task_id = tasks.id AND first_solve
		)`); err != nil {
		return err
	}
	_, err := s.conn.Exec(ctx, `
		UPDATE users SET solves = (
			SELECT COUNT(*) FROM submissions
			WHERE user_id = users.id AND first_solve
		)`)
	return err
}

func subFilterQuery(filter *wykoj.SubmissionFilter, fb *filterBuilder) {
	if v := filter.ID; v != nil {
		fb.AddConstraint("id = %s", v)
	}
	if v := filter.TaskID; v != nil {
		fb.AddConstraint("task_id = %s", v)
	}
	if v := filter.UserID; v != nil {
		fb.AddConstraint("user_id = %s", v)
	}
	if v := filter.ContestID; v != nil {
		if *v == 0 { // Allow filtering for submissions from no contest
			fb.AddConstraint("contest_id IS NULL")
		} else {
			fb.AddConstraint("contest_id = %s", v)
		}
	}
	if v := filter.Verdict; v != wykoj.VerdictNone {
		fb.AddConstraint("verdict = %s", string(v))
	}
	if v := filter.FirstSolve; v != nil {
		fb.AddConstraint("first_solve = %s", v)
	}
}

func subUpdateQuery(upd *wykoj.SubmissionUpdate, b *updateBuilder) {
	if v := upd.Verdict; v != wykoj.VerdictNone {
		b.AddUpdate("verdict = %s", string(v))
	}
	if v := upd.Score; v != nil {
		b.AddUpdate("score = %s", v)
	}
	if upd.ClearSubtaskScores {
		b.AddUpdate("subtask_scores = NULL")
	} else if v := upd.SubtaskScores; v != nil {
		b.AddUpdate("subtask_scores = %s", v)
	}
	if upd.ClearResource {
		b.AddUpdate("time_used = NULL")
		b.AddUpdate("memory_used = NULL")
	} else {
		if v := upd.TimeUsed; v != nil {
			b.AddUpdate("time_used = %s", v)
		}
		if v := upd.MemoryUsed; v != nil {
			b.AddUpdate("memory_used = %s", v)
		}
	}
	if v := upd.FirstSolve; v != nil {
		b.AddUpdate("first_solve = %s", v)
	}
}

func (s *DB) internalToSubmission(sub *dbSubmission) *wykoj.Submission {
	if sub == nil {
		return nil
	}

	return &wykoj.Submission{
		ID:            sub.ID,
		CreatedAt:     sub.CreatedAt,
		TaskID:        sub.TaskID,
		UserID:        sub.UserID,
		Language:      sub.Language,
		Code:          sub.Code,
		Verdict:       wykoj.Verdict(sub.Verdict),
		Score:         sub.Score,
		SubtaskScores: sub.SubtaskScores,
		TimeUsed:      sub.TimeUsed,
		MemoryUsed:    sub.MemoryUsed,
		FirstSolve:    sub.FirstSolve,
		ContestID:     sub.ContestID,
	}
}
