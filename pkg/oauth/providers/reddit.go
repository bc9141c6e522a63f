package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// RedditAuthURL reddit 授权端点
	RedditAuthURL = "https://www.reddit.com/api/v1/authorize"
	// RedditTokenURL reddit token 端点（HTTP Basic 认证）
	//nolint:gosec // G101: public endpoint URL, not a credential
	RedditTokenURL = "https://www.reddit.com/api/v1/access_token"
	// RedditAPIBaseURL serves authenticated API calls.
	RedditAPIBaseURL = "https://oauth.reddit.com"

	// RedditScope is the only scope requested: enough to learn who the user is.
	RedditScope = "identity"
)

// ErrMissingRefreshToken is returned when reddit grants a token without a refresh token.
var ErrMissingRefreshToken = errors.New("reddit token response has no refresh_token")

// RedditEndpoints groups the reddit URLs so tests can point them at a fake server.
type RedditEndpoints struct {
	AuthURL    string
	TokenURL   string
	APIBaseURL string
}

// DefaultRedditEndpoints returns the production reddit endpoints.
func DefaultRedditEndpoints() RedditEndpoints {
	return RedditEndpoints{
		AuthURL:    RedditAuthURL,
		TokenURL:   RedditTokenURL,
		APIBaseURL: RedditAPIBaseURL,
	}
}

// RedditUser is the whitelisted subset of /api/v1/me kept as the profile snapshot.
type RedditUser struct {
	Name         string  `json:"name"`
	ID           string  `json:"id"`
	CommentKarma int64   `json:"comment_karma"`
	LinkKarma    int64   `json:"link_karma"`
	CreatedUTC   float64 `json:"created_utc"`
	IconImg      string  `json:"icon_img"`
}

// Token is the result of a code exchange.
type Token struct {
	AccessToken  string
	RefreshToken string
	Scope        string
	Expiry       time.Time
}

// RedditClientConfig configures one RedditClient.
type RedditClientConfig struct {
	AppKey      string
	AppSecret   string
	RedirectURI string
	Endpoints   RedditEndpoints
}

// RedditClient speaks reddit's OAuth2 dialect for a single redirect URI.
// Build one per request; the underlying HTTP client is shared.
type RedditClient struct {
	*BaseProvider
	config     oauth2.Config
	apiBaseURL string
}

// NewRedditClient creates a RedditClient on top of base.
func NewRedditClient(base *BaseProvider, cfg RedditClientConfig) *RedditClient {
	endpoints := cfg.Endpoints
	if endpoints == (RedditEndpoints{}) {
		endpoints = DefaultRedditEndpoints()
	}

	return &RedditClient{
		BaseProvider: base,
		config: oauth2.Config{
			ClientID:     cfg.AppKey,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{RedditScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   endpoints.AuthURL,
				TokenURL:  endpoints.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiBaseURL: strings.TrimRight(endpoints.APIBaseURL, "/"),
	}
}

// AuthCodeURL builds the authorize URL. duration=permanent asks reddit for a refresh token.
func (c *RedditClient) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.SetAuthURLParam("duration", "permanent"))
}

// Exchange trades an authorization code for tokens.
func (c *RedditClient) Exchange(ctx context.Context, code string) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient())

	tok, err := c.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			c.logger.Warnf("reddit token exchange rejected: status=%d error=%s",
				retrieveErr.Response.StatusCode, retrieveErr.ErrorCode)
		}
		return nil, fmt.Errorf("reddit token exchange failed: %w", err)
	}

	if tok.RefreshToken == "" {
		return nil, ErrMissingRefreshToken
	}

	scope, _ := tok.Extra("scope").(string)
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Scope:        scope,
		Expiry:       tok.Expiry,
	}, nil
}

// Me fetches the identity of the user owning accessToken.
func (c *RedditClient) Me(ctx context.Context, accessToken string) (*RedditUser, error) {
	var user RedditUser
	err := c.DoJSONRequest(ctx, http.MethodGet, c.apiBaseURL+"/api/v1/me",
		map[string]string{"Authorization": "bearer " + accessToken}, &user)
	if err != nil {
		return nil, fmt.Errorf("reddit profile fetch failed: %w", err)
	}
	if user.Name == "" {
		return nil, errors.New("reddit profile has no name")
	}
	return &user, nil
}
