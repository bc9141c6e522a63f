package biz

import (
	"context"

	"OAuthDropins/internal/data"
)

// PendingRequestRepo stores the server-side half of an issued state.
type PendingRequestRepo interface {
	// Issue generates a fresh state and reserves it.
	Issue(ctx context.Context, provider string) (*data.PendingAuthRequest, error)
	// Save stores a caller-chosen state, replacing an earlier one.
	Save(ctx context.Context, provider, state string) (*data.PendingAuthRequest, error)
	// Consume reads and deletes the request for state in one step.
	Consume(ctx context.Context, provider, state string) (*data.PendingAuthRequest, error)
}

// CredentialRepo persists credentials keyed by provider identity.
type CredentialRepo interface {
	Upsert(ctx context.Context, auth *data.RedditAuth) error
	Get(ctx context.Context, id string) (*data.RedditAuth, error)
}
