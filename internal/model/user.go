package model

import "time"

// Plan tiers. Admin is assigned manually, never via webhook.
const (
	PlanFree  = "free"
	PlanAdmin = "admin"
)

// User represents an account provisioned by the identity-provider webhook.
type User struct {
	UserID    string    `db:"user_id" json:"user_id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Credits   int       `db:"credits" json:"credits"`
	Plan      string    `db:"plan" json:"plan"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
