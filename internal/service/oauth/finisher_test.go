package oauth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"OAuthDropins/internal/conf"
	"OAuthDropins/internal/data"
	pkgoauth "OAuthDropins/pkg/oauth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finish(t *testing.T, f *RedirectFinisher, cred *data.RedditAuth, state *pkgoauth.State) *url.URL {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/reddit/oauth_callback", nil)

	require.NoError(t, f.Finish(rec, req, cred, state))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return loc
}

func TestRedirectFinisher_Success(t *testing.T) {
	f := NewRedirectFinisher(&conf.OAuth{DefaultToPath: "/home"})

	loc := finish(t, f, &data.RedditAuth{ID: "alice"}, &pkgoauth.State{Token: "123456", ToPath: "/profile?tab=links"})

	assert.Equal(t, "/profile", loc.Path)
	q := loc.Query()
	assert.Equal(t, "links", q.Get("tab"))
	assert.Equal(t, "reddit:alice", q.Get("auth_entity"))
	assert.Equal(t, "123456", q.Get("state"))
	assert.NotContains(t, q, "declined")
}

func TestRedirectFinisher_Declined(t *testing.T) {
	f := NewRedirectFinisher(&conf.OAuth{DefaultToPath: "/home"})

	loc := finish(t, f, nil, &pkgoauth.State{})

	assert.Equal(t, "/home", loc.Path)
	q := loc.Query()
	assert.Equal(t, "true", q.Get("declined"))
	assert.Contains(t, q, "auth_entity")
	assert.Empty(t, q.Get("auth_entity"))
	assert.NotContains(t, q, "state")
}

func TestRedirectFinisher_Defaults(t *testing.T) {
	f := NewRedirectFinisher(nil)
	loc := finish(t, f, nil, nil)
	assert.Equal(t, "/", loc.Path)
}
