package dto

// IdentityWebhookRequest is the identity provider's account lifecycle event.
type IdentityWebhookRequest struct {
	Type string              `json:"type" validate:"required,oneof=user.created user.deleted"`
	Data IdentityWebhookData `json:"data" validate:"required"`
}

// IdentityWebhookData identifies the affected account.
type IdentityWebhookData struct {
	ID    string `json:"id" validate:"required"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
