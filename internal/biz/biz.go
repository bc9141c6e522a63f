// Package biz contains business logic layer implementations.
// This layer holds the OAuth handshake rules for each provider.
package biz

import (
	"OAuthDropins/internal/data"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewRedditClientFactory,
	NewRedditFlow,
	// Import data layer providers
	data.NewPendingRequestStore,
	data.NewCredentialRepo,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(PendingRequestRepo), new(*data.PendingRequestStore)),
	wire.Bind(new(CredentialRepo), new(*data.CredentialRepo)),
)
