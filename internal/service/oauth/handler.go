// Package oauth routes OAuth drop-in requests to provider flows.
package oauth

import (
	"context"

	"OAuthDropins/internal/biz"
	"OAuthDropins/internal/data"
)

// Flow defines the stages one provider implements.
type Flow interface {
	// Provider returns the route name, e.g. "reddit".
	Provider() string

	// CallbackPath is the path the provider redirects back to.
	CallbackPath() string

	// BuildAuthorizationURL persists a pending request and returns the provider authorize URL.
	BuildAuthorizationURL(ctx context.Context, req biz.StartRequest) (string, error)

	// HandleCallback validates the returned state and exchanges the code.
	HandleCallback(ctx context.Context, params biz.CallbackParams) (*biz.CallbackResult, error)

	// GetCredential loads a stored credential by provider identity.
	GetCredential(ctx context.Context, id string) (*data.RedditAuth, error)
}
