package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisURL    string `envconfig:"REDIS_URL" required:"true"`

	// End-user session tokens are minted by the identity provider; the key
	// material may be an HMAC secret or a PEM-encoded public key.
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Static bearer credentials for service-to-service calls.
	WebhookSecret string `envconfig:"WEBHOOK_SECRET" required:"true"`
	CronSecret    string `envconfig:"CRON_SECRET" required:"true"`

	// LLM settings
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `envconfig:"ANTHROPIC_MODEL" default:"claude-haiku-4-5"`

	// Contact search provider (Snov-style OAuth client credentials)
	SnovAPIBaseURL   string `envconfig:"SNOV_API_BASE_URL" default:"https://api.snov.io"`
	SnovClientID     string `envconfig:"SNOV_CLIENT_ID"`
	SnovClientSecret string `envconfig:"SNOV_CLIENT_SECRET"`

	// Outbound trigger for the workflow engine's contact-finder flow.
	WorkflowTriggerURL string `envconfig:"WORKFLOW_TRIGGER_URL"`

	// Credit costs per paid operation, in credits.
	ContactSearchCost int `envconfig:"CONTACT_SEARCH_COST" default:"1"`
	ContactFinderCost int `envconfig:"CONTACT_FINDER_COST" default:"3"`
	StarterCredits    int `envconfig:"STARTER_CREDITS" default:"25"`

	// Cache freshness windows, in days.
	CompanyCacheTTLDays int `envconfig:"COMPANY_CACHE_TTL_DAYS" default:"30"`
	ContactCacheTTLDays int `envconfig:"CONTACT_CACHE_TTL_DAYS" default:"14"`

	// Contact ranking
	MaxRankedContacts int `envconfig:"MAX_RANKED_CONTACTS" default:"4"`
	MinRelevanceScore int `envconfig:"MIN_RELEVANCE_SCORE" default:"70"`

	// Optional in-process cleanup schedule (robfig/cron spec, e.g. "@daily").
	// Empty disables the scheduler; the /admin/cache-cleanup endpoint is the
	// externally-triggered path either way.
	CacheCleanupSpec string `envconfig:"CACHE_CLEANUP_SPEC"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
