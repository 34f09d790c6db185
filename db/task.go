package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/wykstemteam/wykoj"
)

type dbTask struct {
	ID        int       `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	TaskID    string    `db:"task_id"`
	Title     string    `db:"title"`

	TimeLimit   float64 `db:"time_limit"`
	MemoryLimit int     `db:"memory_limit"`

	Solves int `db:"solves"`
}

func (s *DB) Task(ctx context.Context, id int) (*wykoj.Task, error) {
	var task dbTask
	err := Get(s.conn, ctx, &task, "SELECT * FROM tasks WHERE id = $1 LIMIT 1", id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return internalToTask(&task), err
}

// TaskByName looks a task up by its short identifier, case-insensitively.
func (s *DB) TaskByName(ctx context.Context, taskID string) (*wykoj.Task, error) {
	var task dbTask
	err := Get(s.conn, ctx, &task, "SELECT * FROM tasks WHERE lower(task_id) = lower($1) LIMIT 1", taskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return internalToTask(&task), err
}

func (s *DB) Tasks(ctx context.Context) ([]*wykoj.Task, error) {
	var tasks []*dbTask
	err := Select(s.conn, ctx, &tasks, "SELECT * FROM tasks ORDER BY task_id ASC")
	if err != nil {
		return []*wykoj.Task{}, err
	}
	return mapper(tasks, internalToTask), nil
}

func (s *DB) CreateTask(ctx context.Context, task *wykoj.Task) error {
	if task.TaskID == "" || task.TimeLimit <= 0 || task.MemoryLimit <= 0 {
		return wykoj.ErrMissingRequired
	}
	return s.conn.QueryRow(ctx,
		"INSERT INTO tasks (task_id, title, time_limit, memory_limit) VALUES ($1, $2, $3, $4) RETURNING id",
		task.TaskID, task.Title, task.TimeLimit, task.MemoryLimit,
	).Scan(&task.ID)
}

func (s *DB) UpdateTask(ctx context.Context, id int, upd wykoj.TaskUpdate) error {
	ub := newUpdateBuilder()
	if v := upd.Title; v != nil {
		ub.AddUpdate("title = %s", v)
	}
	if v := upd.TimeLimit; v != nil {
		ub.AddUpdate("time_limit = %s", v)
	}
	if v := upd.MemoryLimit; v != nil {
		ub.AddUpdate("memory_limit = %s", v)
	}
	if err := ub.CheckUpdates(); err != nil {
		return err
	}
	fb := ub.MakeFilter()
	fb.AddConstraint("id = %s", id)
	_, err := s.conn.Exec(ctx, "UPDATE tasks SET "+fb.WithUpdate(), fb.Args()...)
	return err
}

func internalToTask(task *dbTask) *wykoj.Task {
	if task == nil {
		return nil
	}
	return &wykoj.Task{
		ID:          task.ID,
		CreatedAt:   task.CreatedAt,
		TaskID:      task.TaskID,
		Title:       task.Title,
		TimeLimit:   task.TimeLimit,
		MemoryLimit: task.MemoryLimit,
		Solves:      task.Solves,
	}
}
