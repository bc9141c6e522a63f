package biz

import (
	"net/http"

	"github.com/go-kratos/kratos/v2/errors"
)

// Error reasons returned to HTTP clients.
const (
	ReasonProtocolError       = "OAUTH_PROTOCOL_ERROR"
	ReasonInvalidState        = "INVALID_OAUTH_STATE"
	ReasonInvalidRedirectPath = "INVALID_REDIRECT_PATH"
	ReasonInvalidToken        = "INVALID_OAUTH_TOKEN"
	ReasonUpstreamExchange    = "UPSTREAM_EXCHANGE_FAILED"
	ReasonPendingStore        = "PENDING_STORE_UNAVAILABLE"
	ReasonCredentialStore     = "CREDENTIAL_STORE_FAILED"
	ReasonProviderNotFound    = "PROVIDER_NOT_FOUND"
	ReasonCredentialNotFound  = "CREDENTIAL_NOT_FOUND"
)

// ErrorProtocol reports an error parameter sent back by the provider.
func ErrorProtocol(providerError string) *errors.Error {
	return errors.BadRequest(ReasonProtocolError, "Error: "+providerError)
}

// ErrorInvalidState reports a state blob that failed to decode or verify.
func ErrorInvalidState(cause error) *errors.Error {
	return errors.BadRequest(ReasonInvalidState, "invalid oauth state").WithCause(cause)
}

// ErrorInvalidRedirectPath reports a to_path that is not a local absolute path.
func ErrorInvalidRedirectPath(toPath string) *errors.Error {
	return errors.BadRequest(ReasonInvalidRedirectPath, "to_path must be a local path: "+toPath)
}

// ErrorInvalidToken reports a state token with no live pending request.
func ErrorInvalidToken(token string) *errors.Error {
	return errors.BadRequest(ReasonInvalidToken, "invalid oauth token: "+token)
}

// ErrorUpstreamExchange reports a failed token exchange or profile fetch.
func ErrorUpstreamExchange(cause error) *errors.Error {
	return errors.New(http.StatusBadGateway, ReasonUpstreamExchange, "provider exchange failed").WithCause(cause)
}

// ErrorPendingStore reports that the pending request store could not be reached.
func ErrorPendingStore(cause error) *errors.Error {
	return errors.ServiceUnavailable(ReasonPendingStore, "pending request store unavailable").WithCause(cause)
}

// ErrorCredentialStore reports a failed credential read or write.
func ErrorCredentialStore(cause error) *errors.Error {
	return errors.InternalServer(ReasonCredentialStore, "credential store failed").WithCause(cause)
}

// ErrorProviderNotFound reports a route for a provider with no registered flow.
func ErrorProviderNotFound(provider string) *errors.Error {
	return errors.NotFound(ReasonProviderNotFound, "unknown provider: "+provider)
}

// ErrorCredentialNotFound reports a lookup for an unknown credential id.
func ErrorCredentialNotFound(id string) *errors.Error {
	return errors.NotFound(ReasonCredentialNotFound, "credential not found: "+id)
}
