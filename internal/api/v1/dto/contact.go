package dto

import (
	"app/internal/model"
	"app/internal/service"
)

// ContactSearchRequest starts a credit-gated contact search.
type ContactSearchRequest struct {
	Domain      string `json:"domain"`
	CompanyName string `json:"companyName" validate:"required"`
	JobID       string `json:"jobId" validate:"required"`
}

// ContactSearchResponse reports the contacts found and what the search cost.
type ContactSearchResponse struct {
	Contacts         []model.Contact `json:"contacts"`
	Cached           bool            `json:"cached"`
	CreditsDeducted  int             `json:"creditsDeducted"`
	RemainingCredits int             `json:"remainingCredits"`
}

// ContactWebhookRequest is the workflow engine's contact push payload.
type ContactWebhookRequest struct {
	UserID   string                   `json:"user_id" validate:"required"`
	Contacts []service.WebhookContact `json:"contacts" validate:"required,min=1,dive"`
}

// FinderTriggerRequest starts the asynchronous contact-finder flow.
type FinderTriggerRequest struct {
	ApplicationID int64 `json:"applicationId" validate:"required"`
}

// FinderTriggerResponse acknowledges the trigger and reports the charge.
type FinderTriggerResponse struct {
	Triggered        bool `json:"triggered"`
	CreditsDeducted  int  `json:"creditsDeducted"`
	RemainingCredits int  `json:"remainingCredits"`
}
