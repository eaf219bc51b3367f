package domain

import (
	"time"

	"github.com/google/uuid"
)

// Theming holds the colors and glyph a tenant site is rendered with.
type Theming struct {
	PrimaryColor string `json:"primary_color"`
	AccentColor  string `json:"accent_color"`
	Icon         string `json:"icon"`
}

// VerticalDefinition is one entry of the static vertical taxonomy.
type VerticalDefinition struct {
	Key               string
	Keywords          []string // empty only for the fallback vertical
	Theming           Theming
	TitleSuffix       string
	Description       string
	AIContext         string
	ImpactPrograms    []string
	Features          FeatureFlags
	SuggestedProducts []string
}

// IsFallback reports whether the definition is the catch-all vertical.
func (v VerticalDefinition) IsFallback() bool {
	return len(v.Keywords) == 0
}

// TenantConfig is the configuration derived from a hostname alone.
// It is recomputed on demand and only persisted through TenantRecord on creation.
type TenantConfig struct {
	Vertical          string       `json:"vertical"`
	Topic             string       `json:"topic"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	Theming           Theming      `json:"theming"`
	AIContext         string       `json:"ai_context"`
	ImpactPrograms    []string     `json:"impact_programs"`
	Features          FeatureFlags `json:"features"`
	SuggestedProducts []string     `json:"suggested_products"`
}

// Counters are mutated in place by feature modules, never by tenant resolution.
type Counters struct {
	Subscribers int64 `json:"subscribers"`
	Completions int64 `json:"completions"`
}

// Counter names a single counter column.
type Counter string

const (
	CounterSubscribers Counter = "subscribers"
	CounterCompletions Counter = "completions"
)

// TenantRecord is the persisted tenant, one row per normalized hostname.
// Topic, title, description and vertical are frozen at creation.
type TenantRecord struct {
	ID             uuid.UUID    `json:"id"`
	Hostname       string       `json:"hostname"`
	Topic          string       `json:"topic"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Vertical       string       `json:"vertical"`
	PrimaryColor   string       `json:"primary_color"`
	SecondaryColor string       `json:"secondary_color"`
	Features       FeatureFlags `json:"features"`
	Counters       Counters     `json:"counters"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
