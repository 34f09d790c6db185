package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/wykstemteam/wykoj"
)

type dbUser struct {
	ID        int       `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	Username  string    `db:"username"`
	Admin     bool      `db:"admin"`
	Solves    int       `db:"solves"`
}

func (s *DB) User(ctx context.Context, id int) (*wykoj.User, error) {
	var user dbUser
	err := Get(s.conn, ctx, &user, "SELECT * FROM users WHERE id = $1 LIMIT 1", id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return internalToUser(&user), err
}

func (s *DB) UserByName(ctx context.Context, username string) (*wykoj.User, error) {
	var user dbUser
	err := Get(s.conn, ctx, &user, "SELECT * FROM users WHERE lower(username) = lower($1) LIMIT 1", username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return internalToUser(&user), err
}

func (s *DB) CreateUser(ctx context.Context, user *wykoj.User) error {
	if user.Username == "" {
		return wykoj.ErrMissingRequired
	}
	return s.conn.QueryRow(ctx,
		"INSERT INTO users (username, admin) VALUES ($1, $2) RETURNING id",
		user.Username, user.Admin,
	).Scan(&user.ID)
}

func internalToUser(user *dbUser) *wykoj.User {
	if user == nil {
		return nil
	}
	return &wykoj.User{
		ID:        user.ID,
		CreatedAt: user.CreatedAt,
		Username:  user.Username,
		Admin:     user.Admin,
		Solves:    user.Solves,
	}
}
