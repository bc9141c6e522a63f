package oauth

import (
	"net/http"
	"net/url"

	"OAuthDropins/internal/conf"
	"OAuthDropins/internal/data"
	pkgoauth "OAuthDropins/pkg/oauth"
)

// Finisher owns the response once a callback has been handled.
// cred is nil when the user declined.
type Finisher interface {
	Finish(w http.ResponseWriter, r *http.Request, cred *data.RedditAuth, state *pkgoauth.State) error
}

// RedirectFinisher sends the user back to the requested local path.
//
// The target receives auth_entity=<site>:<id> (empty on decline),
// declined=true on decline, and the original state token.
type RedirectFinisher struct {
	defaultPath string
}

// NewRedirectFinisher creates a RedirectFinisher.
func NewRedirectFinisher(c *conf.OAuth) *RedirectFinisher {
	path := "/"
	if c != nil && c.DefaultToPath != "" {
		path = c.DefaultToPath
	}
	return &RedirectFinisher{defaultPath: path}
}

// Finish implements Finisher.
func (f *RedirectFinisher) Finish(w http.ResponseWriter, r *http.Request, cred *data.RedditAuth, state *pkgoauth.State) error {
	target := f.defaultPath
	token := ""
	if state != nil {
		token = state.Token
		if state.ToPath != "" {
			target = state.ToPath
		}
	}

	u, err := url.Parse(target)
	if err != nil {
		return err
	}

	q := u.Query()
	if cred != nil {
		q.Set("auth_entity", cred.SiteName()+":"+cred.UserDisplayName())
	} else {
		q.Set("auth_entity", "")
		q.Set("declined", "true")
	}
	if token != "" {
		q.Set("state", token)
	}
	u.RawQuery = q.Encode()

	http.Redirect(w, r, u.String(), http.StatusFound)
	return nil
}
