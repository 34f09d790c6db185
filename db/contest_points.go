package db

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/wykstemteam/wykoj"
)

type dbContestTaskPoints struct {
	ID              int               `db:"id"`
	ParticipationID int               `db:"participation_id"`
	TaskID          int               `db:"task_id"`
	Points          []decimal.Decimal `db:"points"`
}

func (s *DB) ContestTaskPoints(ctx context.Context, participationID int) ([]*wykoj.ContestTaskPoints, error) {
	var points []*dbContestTaskPoints
	err := Select(s.conn, ctx, &points,
		"SELECT * FROM contest_task_points WHERE participation_id = $1 ORDER BY task_id ASC", participationID)
	if err != nil {
		return []*wykoj.ContestTaskPoints{}, err
	}
	return mapper(points, internalToContestTaskPoints), nil
}

// MergeContestTaskPoints folds a freshly judged point vector into the stored
// best-so-far vector, element-wise maximum, in a single statement. The upsert
// is atomic, idempotent and order-independent, so judging completions may
// race or replay freely without ever lowering a contestant's points.
func (s *DB) MergeContestTaskPoints(ctx context.Context, participationID, taskID int, points []decimal.Decimal) error {
	if len(points) == 0 {
		return wykoj.ErrMissingRequired
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO contest_task_points (participation_id, task_id, points)
		VALUES ($1, $2, $3)
		ON CONFLICT (participation_id, task_id) DO UPDATE SET points = (
			SELECT array_agg(GREATEST(COALESCE(a.elem, 0), COALESCE(b.elem, 0)) ORDER BY idx)
			FROM unnest(contest_task_points.points) WITH ORDINALITY AS a(elem, idx)
			FULL OUTER JOIN unnest(excluded.points) WITH ORDINALITY AS b(elem, idx) USING (idx)
		)`, participationID, taskID, points)
	return err
}

// ReplaceContestTaskPoints overwrites the stored vector. Only used by the
// full recompute path (rejudge, submission deletion), where points may
// legitimately decrease.
func (s *DB) ReplaceContestTaskPoints(ctx context.Context, participationID, taskID int, points []decimal.Decimal) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO contest_task_points (participation_id, task_id, points)
		VALUES ($1, $2, $3)
		ON CONFLICT (participation_id, task_id) DO UPDATE SET points = excluded.points`,
		participationID, taskID, points)
	return err
}

func internalToContestTaskPoints(p *dbContestTaskPoints) *wykoj.ContestTaskPoints {
	if p == nil {
		return nil
	}
	return &wykoj.ContestTaskPoints{
		ID:              p.ID,
		ParticipationID: p.ParticipationID,
		TaskID:          p.TaskID,
		Points:          p.Points,
	}
}
