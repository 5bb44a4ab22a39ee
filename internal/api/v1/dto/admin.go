package dto

// CacheActionRequest runs an admin cache operation.
type CacheActionRequest struct {
	Action string `json:"action" validate:"required,oneof=cleanup invalidate"`
	Domain string `json:"domain"`
}

// CreditGrantRequest sets a user's balance to an absolute value (admin).
type CreditGrantRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	NewBalance int    `json:"new_balance" validate:"gte=0"`
	Reason     string `json:"reason" validate:"required"`
}
