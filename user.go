package wykoj

import "time"

type User struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Username  string    `json:"username"`
	Admin     bool      `json:"admin"`

	// Solves counts submissions with first_solve = true by this user.
	Solves int `json:"solves"`
}
