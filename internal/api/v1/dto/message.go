package dto

// MessageGenerateRequest drafts an outreach message for a contact and a
// tracked application.
type MessageGenerateRequest struct {
	ContactID     int64  `json:"contactId" validate:"required"`
	ApplicationID int64  `json:"applicationId" validate:"required"`
	Tone          string `json:"tone" validate:"omitempty,oneof=warm direct formal"`
}
