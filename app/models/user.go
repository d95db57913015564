package models

import "time"

// User is an account that signed in at least once through a magic link.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
