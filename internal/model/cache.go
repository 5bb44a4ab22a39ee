package model

import "time"

// Cache table names. Both tables share the same shape; company rows memoize
// LLM company research, contact rows memoize whole search results.
const (
	CacheTableCompany = "company_cache"
	CacheTableContact = "contact_cache"
)

// CacheEntry is a memoized domain lookup with an absolute expiry.
type CacheEntry struct {
	Domain    string    `db:"domain" json:"domain"`
	Payload   []byte    `db:"payload" json:"payload"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
