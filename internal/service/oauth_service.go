package service

import (
	"context"
	"net/http"

	"OAuthDropins/internal/biz"
	"OAuthDropins/internal/service/oauth"
	"OAuthDropins/pkg/oauth/providers"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// OAuthService exposes the drop-in routes for every registered provider.
type OAuthService struct {
	registry *oauth.Registry
	finisher oauth.Finisher
	logger   *log.Helper
}

// NewOAuthService creates a new OAuthService.
func NewOAuthService(registry *oauth.Registry, finisher oauth.Finisher, logger log.Logger) *OAuthService {
	return &OAuthService{
		registry: registry,
		finisher: finisher,
		logger:   log.NewHelper(logger),
	}
}

// CredentialReply is the public view of a stored credential. It never carries the token.
type CredentialReply struct {
	Site        string                `json:"site"`
	ID          string                `json:"id"`
	DisplayName string                `json:"display_name"`
	Profile     *providers.RedditUser `json:"profile"`
}

// redirectReply lets the logging middleware report the real status of a redirect.
type redirectReply struct {
	location string
}

func (redirectReply) StatusCode() int { return http.StatusFound }

type callbackReply struct {
	result *biz.CallbackResult
}

func (callbackReply) StatusCode() int { return http.StatusFound }

// RegisterHTTP mounts the routes on srv. A flow whose callback path differs
// from /{provider}/oauth_callback also gets that path, registered first.
func (s *OAuthService) RegisterHTTP(srv *khttp.Server) {
	r := srv.Route("/")
	for _, flow := range s.registry.Flows() {
		provider, path := flow.Provider(), flow.CallbackPath()
		if path == "" || path == "/"+provider+"/oauth_callback" {
			continue
		}
		r.GET(path, func(ctx khttp.Context) error {
			return s.callback(ctx, provider)
		})
		s.logger.Infof("Registered callback route %s for provider: %s", path, provider)
	}
	r.GET("/{provider}/start", s.Start)
	r.GET("/{provider}/oauth_callback", s.Callback)
	r.GET("/{provider}/credentials/{id}", s.Credential)
}

// baseURL rebuilds the externally visible scheme and host of the request.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// Start handles GET /{provider}/start.
func (s *OAuthService) Start(ctx khttp.Context) error {
	provider := ctx.Vars().Get("provider")
	query := ctx.Query()
	req := biz.StartRequest{
		BaseURL: baseURL(ctx.Request()),
		State:   query.Get("state"),
		ToPath:  query.Get("to_path"),
	}

	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		flow, err := s.registry.Get(provider)
		if err != nil {
			return nil, err
		}
		authURL, err := flow.BuildAuthorizationURL(c, req)
		if err != nil {
			return nil, err
		}
		return redirectReply{location: authURL}, nil
	})
	out, err := h(ctx, nil)
	if err != nil {
		return err
	}

	http.Redirect(ctx.Response(), ctx.Request(), out.(redirectReply).location, http.StatusFound)
	return nil
}

// Callback handles GET /{provider}/oauth_callback.
func (s *OAuthService) Callback(ctx khttp.Context) error {
	return s.callback(ctx, ctx.Vars().Get("provider"))
}

func (s *OAuthService) callback(ctx khttp.Context, provider string) error {
	query := ctx.Query()
	params := biz.CallbackParams{
		BaseURL:          baseURL(ctx.Request()),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
		State:            query.Get("state"),
		Code:             query.Get("code"),
	}

	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		flow, err := s.registry.Get(provider)
		if err != nil {
			return nil, err
		}
		res, err := flow.HandleCallback(c, params)
		if err != nil {
			return nil, err
		}
		return callbackReply{result: res}, nil
	})
	out, err := h(ctx, nil)
	if err != nil {
		return err
	}

	res := out.(callbackReply).result
	if err := s.finisher.Finish(ctx.Response(), ctx.Request(), res.Credential, res.State); err != nil {
		s.logger.Errorw("msg", "finish step failed", "provider", provider, "error", err)
		return err
	}
	return nil
}

// Credential handles GET /{provider}/credentials/{id}.
func (s *OAuthService) Credential(ctx khttp.Context) error {
	vars := ctx.Vars()
	provider, id := vars.Get("provider"), vars.Get("id")

	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		flow, err := s.registry.Get(provider)
		if err != nil {
			return nil, err
		}
		auth, err := flow.GetCredential(c, id)
		if err != nil {
			return nil, err
		}
		profile, err := auth.Profile()
		if err != nil {
			return nil, biz.ErrorCredentialStore(err)
		}
		return &CredentialReply{
			Site:        auth.SiteName(),
			ID:          auth.ID,
			DisplayName: auth.UserDisplayName(),
			Profile:     profile,
		}, nil
	})
	out, err := h(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, out)
}
