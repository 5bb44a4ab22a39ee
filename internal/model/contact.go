package model

import "time"

// Contact is a discovered person, de-duplicated per user by email.
type Contact struct {
	ID             int64     `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Email          string    `db:"email" json:"email"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Position       string    `db:"position" json:"position"`
	Company        string    `db:"company" json:"company"`
	Domain         string    `db:"domain" json:"domain"`
	RelevanceScore int       `db:"relevance_score" json:"relevance_score"`
	Verified       bool      `db:"verified" json:"verified"`
	Reasoning      string    `db:"reasoning" json:"reasoning"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
