package model

import "time"

// Note is one entry in an application's notes array.
type Note struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	Date time.Time `json:"date"`
}

// Application is a tracked job application. Job fields are denormalized from
// the listing at creation time so the row survives job archival.
type Application struct {
	ID          int64      `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	JobID       string     `db:"job_id" json:"job_id"`
	Title       string     `db:"title" json:"title"`
	Company     string     `db:"company" json:"company"`
	Location    string     `db:"location" json:"location"`
	Stage       string     `db:"stage" json:"stage"`
	Notes       []Note     `db:"notes" json:"notes"`
	AppliedAt   *time.Time `db:"applied_at" json:"applied_at,omitempty"`
	InterviewAt *time.Time `db:"interview_at" json:"interview_at,omitempty"`
	OfferAt     *time.Time `db:"offer_at" json:"offer_at,omitempty"`
	ResolvedAt  *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
