// Package service exposes the biz flows over HTTP.
package service

import (
	"OAuthDropins/internal/service/oauth"

	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(
	oauth.NewDefaultRegistry,
	oauth.NewRedirectFinisher,
	wire.Bind(new(oauth.Finisher), new(*oauth.RedirectFinisher)),
	NewOAuthService,
)
