package biz

import (
	"context"
	"errors"
	"strings"

	"OAuthDropins/internal/conf"
	"OAuthDropins/internal/data"
	pkglog "OAuthDropins/pkg/log"
	"OAuthDropins/pkg/oauth"
	"OAuthDropins/pkg/oauth/providers"
	"OAuthDropins/pkg/oauth/util"

	"github.com/go-kratos/kratos/v2/log"
)

// AccessDenied is the error reddit reports when the user clicks "decline".
const AccessDenied = "access_denied"

const defaultToPath = "/"

// RedditClient is the subset of the reddit OAuth client used by the flow.
type RedditClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*providers.Token, error)
	Me(ctx context.Context, accessToken string) (*providers.RedditUser, error)
}

// RedditClientFactory builds a client bound to one redirect URI.
type RedditClientFactory func(redirectURI string) RedditClient

// NewRedditClientFactory creates a factory sharing one HTTP client across requests.
func NewRedditClientFactory(c *conf.Reddit, logger log.Logger) (RedditClientFactory, error) {
	return newRedditClientFactory(c, providers.DefaultRedditEndpoints(), logger)
}

func newRedditClientFactory(c *conf.Reddit, endpoints providers.RedditEndpoints, logger log.Logger) (RedditClientFactory, error) {
	if c == nil {
		return nil, errors.New("reddit configuration is required")
	}
	userAgent := c.UserAgent
	if userAgent == "" {
		userAgent = conf.DefaultUserAgent
	}

	client, err := util.CreateHTTPClient(util.ClientOptions{
		ProxyURL:  c.ProxyURL,
		Timeout:   c.Timeout,
		UserAgent: userAgent,
	})
	if err != nil {
		return nil, err
	}
	base := providers.NewBaseProvider(client, logger)

	return func(redirectURI string) RedditClient {
		return providers.NewRedditClient(base, providers.RedditClientConfig{
			AppKey:      c.AppKey,
			AppSecret:   c.AppSecret,
			RedirectURI: redirectURI,
			Endpoints:   endpoints,
		})
	}, nil
}

// StartRequest carries the start stage inputs.
type StartRequest struct {
	// BaseURL is the scheme and host the callback must return to, e.g. https://example.com.
	BaseURL string
	State   string
	ToPath  string
}

// CallbackParams carries the query parameters reddit sends to the callback.
type CallbackParams struct {
	BaseURL          string
	Error            string
	ErrorDescription string
	State            string
	Code             string
}

// CallbackResult is what the finish step receives.
// Credential is nil when the user declined.
type CallbackResult struct {
	Credential *data.RedditAuth
	State      *oauth.State
	Declined   bool
}

// RedditFlow runs the reddit authorization-state handshake.
type RedditFlow struct {
	pending      PendingRequestRepo
	credentials  CredentialRepo
	newClient    RedditClientFactory
	codec        *oauth.StateCodec
	callbackPath string
	defaultPath  string
	log          *pkglog.LogHelper
}

// NewRedditFlow creates a RedditFlow.
func NewRedditFlow(rc *conf.Reddit, oc *conf.OAuth, pending PendingRequestRepo, credentials CredentialRepo,
	factory RedditClientFactory, logger log.Logger) (*RedditFlow, error) {
	if rc == nil || oc == nil {
		return nil, errors.New("reddit and oauth configuration are required")
	}

	signingKey := oc.StateSigningKey
	if signingKey == "" {
		signingKey = rc.AppSecret
	}
	codec, err := oauth.NewStateCodec(signingKey)
	if err != nil {
		return nil, err
	}

	defaultPath := oc.DefaultToPath
	if defaultPath == "" {
		defaultPath = defaultToPath
	}

	return &RedditFlow{
		pending:      pending,
		credentials:  credentials,
		newClient:    factory,
		codec:        codec,
		callbackPath: rc.CallbackPath,
		defaultPath:  defaultPath,
		log:          pkglog.NewLogHelper(logger),
	}, nil
}

// Provider returns the route name of this flow.
func (f *RedditFlow) Provider() string {
	return data.SiteReddit
}

// CallbackPath is the path reddit redirects back to.
func (f *RedditFlow) CallbackPath() string {
	return f.callbackPath
}

func (f *RedditFlow) redirectURI(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + f.callbackPath
}

// validToPath accepts only local absolute paths so the finish redirect cannot leave the site.
func validToPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, `\`)
}

// BuildAuthorizationURL persists a pending request and returns the reddit authorize URL.
func (f *RedditFlow) BuildAuthorizationURL(ctx context.Context, req StartRequest) (string, error) {
	toPath := req.ToPath
	if toPath == "" {
		toPath = f.defaultPath
	}
	if !validToPath(toPath) {
		return "", ErrorInvalidRedirectPath(toPath)
	}

	var (
		pending *data.PendingAuthRequest
		err     error
	)
	if req.State == "" {
		pending, err = f.pending.Issue(ctx, f.Provider())
	} else {
		pending, err = f.pending.Save(ctx, f.Provider(), req.State)
	}
	if err != nil {
		f.log.Errorw(log.DefaultMessageKey, "failed to persist pending request", "provider", f.Provider(), "error", err)
		return "", ErrorPendingStore(err)
	}

	blob, err := f.codec.Encode(oauth.State{Token: pending.ID, ToPath: toPath})
	if err != nil {
		return "", err
	}

	redirectURI := f.redirectURI(req.BaseURL)
	authURL := f.newClient(redirectURI).AuthCodeURL(blob)

	f.log.OAuth("authorization started",
		"provider", f.Provider(),
		"state", pending.ID,
		"redirect_uri", redirectURI,
		"request_id", pkglog.GetRequestID(ctx))
	return authURL, nil
}

// HandleCallback verifies the returned state against a pending request,
// exchanges the code and stores the resulting credential.
func (f *RedditFlow) HandleCallback(ctx context.Context, p CallbackParams) (*CallbackResult, error) {
	state, err := f.codec.Decode(p.State)
	if err != nil {
		f.log.Security("rejected malformed state", "provider", f.Provider(), "error", err)
		return nil, ErrorInvalidState(err)
	}

	if p.Error != "" || state.Token == "" || p.Code == "" {
		if p.Error == AccessDenied {
			f.log.OAuth("user declined authorization",
				"provider", f.Provider(), "state", state.Token, "error_description", p.ErrorDescription)
			return &CallbackResult{State: state, Declined: true}, nil
		}
		f.log.Security("oauth protocol error",
			"provider", f.Provider(), "oauth_error", p.Error, "error_description", p.ErrorDescription)
		return nil, ErrorProtocol(p.Error)
	}

	if _, err := f.pending.Consume(ctx, f.Provider(), state.Token); err != nil {
		if errors.Is(err, data.ErrPendingRequestNotFound) {
			f.log.Security("unknown or reused oauth state", "provider", f.Provider(), "state", state.Token)
			return nil, ErrorInvalidToken(state.Token)
		}
		f.log.Errorw(log.DefaultMessageKey, "failed to load pending request", "provider", f.Provider(), "error", err)
		return nil, ErrorPendingStore(err)
	}

	client := f.newClient(f.redirectURI(p.BaseURL))

	token, err := client.Exchange(ctx, p.Code)
	if err != nil {
		f.log.Errorw(log.DefaultMessageKey, "token exchange failed", "provider", f.Provider(), "error", err)
		return nil, ErrorUpstreamExchange(err)
	}

	user, err := client.Me(ctx, token.AccessToken)
	if err != nil {
		f.log.Errorw(log.DefaultMessageKey, "profile fetch failed", "provider", f.Provider(), "error", err)
		return nil, ErrorUpstreamExchange(err)
	}

	auth, err := data.NewRedditAuth(user, token.RefreshToken)
	if err != nil {
		return nil, ErrorUpstreamExchange(err)
	}

	if err := f.credentials.Upsert(ctx, auth); err != nil {
		f.log.Errorw(log.DefaultMessageKey, "failed to store credential", "provider", f.Provider(), "id", auth.ID, "error", err)
		return nil, ErrorCredentialStore(err)
	}

	f.log.Credential("credential stored", "provider", f.Provider(), "id", auth.ID, "scope", token.Scope)
	return &CallbackResult{Credential: auth, State: state}, nil
}

// GetCredential loads a stored credential by reddit username.
func (f *RedditFlow) GetCredential(ctx context.Context, id string) (*data.RedditAuth, error) {
	auth, err := f.credentials.Get(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrCredentialNotFound) {
			return nil, ErrorCredentialNotFound(id)
		}
		return nil, ErrorCredentialStore(err)
	}
	return auth, nil
}
