package model

import "time"

// Provider identifies an external identity provider.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGoogle Provider = "google"
)

// OAuthLink records that an email signed in through a provider.
// There is at most one link per (Email, Provider).
type OAuthLink struct {
	Email      string    `json:"email"`
	Provider   Provider  `json:"provider"`
	ProviderID string    `json:"providerId"` // provider-assigned subject id
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
