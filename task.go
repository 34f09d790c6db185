package wykoj

import "time"

type Task struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// TaskID is the short human identifier ("B001"), unique case-insensitively.
	TaskID string `json:"task_id" db:"task_id"`
	Title  string `json:"title"`

	TimeLimit   float64 `json:"time_limit" db:"time_limit"`     // seconds
	MemoryLimit int     `json:"memory_limit" db:"memory_limit"` // MB

	// Solves counts submissions with first_solve = true for this task.
	Solves int `json:"solves"`
}

type TaskUpdate struct {
	Title       *string
	TimeLimit   *float64
	MemoryLimit *int
}
