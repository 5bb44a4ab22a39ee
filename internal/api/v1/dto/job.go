package dto

import "app/internal/model"

// JobSyncRequest is the scraper's batch push of job-board listings.
type JobSyncRequest struct {
	Jobs []model.Job `json:"jobs" validate:"required,min=1,dive"`
}
