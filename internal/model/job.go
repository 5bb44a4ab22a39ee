package model

import "time"

// Job is a denormalized external job listing synced from the board.
// Immutable once archived.
type Job struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Company     string    `db:"company" json:"company"`
	Location    string    `db:"location" json:"location"`
	SalaryMin   *int      `db:"salary_min" json:"salary_min,omitempty"`
	SalaryMax   *int      `db:"salary_max" json:"salary_max,omitempty"`
	URL         string    `db:"url" json:"url"`
	Description string    `db:"description" json:"description"`
	Archived    bool      `db:"archived" json:"archived"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
