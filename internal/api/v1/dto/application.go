package dto

import (
	"time"

	"app/internal/service"
)

// ApplicationCreateRequest tracks a job for the authenticated user.
type ApplicationCreateRequest struct {
	JobID string `json:"jobId" validate:"required"`
}

// ApplicationPatchRequest partially updates an application. Nil fields are
// left untouched.
type ApplicationPatchRequest struct {
	Stage *string `json:"stage,omitempty"`
	Note  *string `json:"note,omitempty"`
}

// Workflow-engine application webhook actions.
const (
	ActionUpdateStage    = "update_stage"
	ActionAddNote        = "add_note"
	ActionSetInterview   = "set_interview"
	ActionClearInterview = "clear_interview"
	ActionBulkUpdate     = "bulk_update"
)

// ApplicationWebhookRequest is one workflow-engine action against a user's
// applications. Fields beyond Action are read per action.
type ApplicationWebhookRequest struct {
	Action        string                    `json:"action" validate:"required,oneof=update_stage add_note set_interview clear_interview bulk_update"`
	UserID        string                    `json:"user_id" validate:"required"`
	ApplicationID int64                     `json:"application_id"`
	Stage         string                    `json:"stage"`
	Note          string                    `json:"note"`
	InterviewAt   *time.Time                `json:"interview_at"`
	Updates       []service.BulkStageUpdate `json:"updates"`
}
