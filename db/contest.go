package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/wykstemteam/wykoj"
)

type dbContest struct {
	ID        int       `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	Title     string    `db:"title"`
	Public    bool      `db:"public"`

	StartTime time.Time `db:"start_time"`
	Duration  int       `db:"duration"`

	TaskIDs []int `db:"task_ids"`
}

const contestQuery = `
SELECT contests.*, COALESCE(tasks.ids, '{}') AS task_ids
FROM contests
LEFT JOIN LATERAL (
	SELECT array_agg(task_id ORDER BY task_id) AS ids
	FROM contest_tasks WHERE contest_id = contests.id
) tasks ON TRUE
`

func (s *DB) Contest(ctx context.Context, id int) (*wykoj.Contest, error) {
	var contest dbContest
	err := Get(s.conn, ctx, &contest, contestQuery+" WHERE contests.id = $1 LIMIT 1", id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return internalToContest(&contest), err
}

// RunningContest returns the contest that is ongoing at the given time, if
// any. Contests are assumed not to overlap, matching how they are scheduled.
func (s *DB) RunningContest(ctx context.Context, now time.Time) (*wykoj.Contest, error) {
	var contest dbContest
	err := Get(s.conn, ctx, &contest, contestQuery+`
		WHERE contests.start_time <= $1
			AND $1 < contests.start_time + contests.duration * interval '1 minute'
		ORDER BY contests.start_time DESC LIMIT 1`, now)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return internalToContest(&contest), err
}

func (s *DB) CreateContest(ctx context.Context, contest *wykoj.Contest) error {
	if contest.Title == "" || contest.Duration <= 0 {
		return wykoj.ErrMissingRequired
	}
	return pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			"INSERT INTO contests (title, public, start_time, duration) VALUES ($1, $2, $3, $4) RETURNING id",
			contest.Title, contest.Public, contest.StartTime, contest.Duration,
		).Scan(&contest.ID); err != nil {
			return err
		}
		for _, taskID := range contest.TaskIDs {
			if _, err := tx.Exec(ctx,
				"INSERT INTO contest_tasks (contest_id, task_id) VALUES ($1, $2)",
				contest.ID, taskID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Participation returns the contestant's registration row, nil if they are
// not a contestant.
func (s *DB) Participation(ctx context.Context, contestID, userID int) (*wykoj.ContestParticipation, error) {
	var p wykoj.ContestParticipation
	err := s.conn.QueryRow(ctx,
		"SELECT id, contest_id, user_id FROM contest_participations WHERE contest_id = $1 AND user_id = $2 LIMIT 1",
		contestID, userID,
	).Scan(&p.ID, &p.ContestID, &p.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *DB) CreateParticipation(ctx context.Context, contestID, userID int) (*wykoj.ContestParticipation, error) {
	p := wykoj.ContestParticipation{ContestID: contestID, UserID: userID}
	err := s.conn.QueryRow(ctx, `
		INSERT INTO contest_participations (contest_id, user_id) VALUES ($1, $2)
		ON CONFLICT (contest_id, user_id) DO UPDATE SET user_id = excluded.user_id
		RETURNING id`, contestID, userID,
	).Scan(&p.ID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func internalToContest(contest *dbContest) *wykoj.Contest {
	if contest == nil {
		return nil
	}
	return &wykoj.Contest{
		ID:        contest.ID,
		CreatedAt: contest.CreatedAt,
		Title:     contest.Title,
		Public:    contest.Public,
		StartTime: contest.StartTime,
		Duration:  contest.Duration,
		TaskIDs:   contest.TaskIDs,
	}
}
