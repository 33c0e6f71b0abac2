package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// newFakeGitHub serves the token endpoint and the two user endpoints.
func newFakeGitHub(t *testing.T, userJSON, emailsJSON string) *GitHubProvider {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_test", r.Header.Get("Authorization"))
		w.Write([]byte(userJSON))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(emailsJSON))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewGitHubProvider("client", "secret", "http://localhost/auth/github/callback")
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/login/oauth/authorize",
		TokenURL: srv.URL + "/login/oauth/access_token",
	}
	p.apiBase = srv.URL
	return p
}

func TestGitHubProvider_AuthURL(t *testing.T) {
	p := NewGitHubProvider("client-id", "secret", "http://localhost:8080/auth/github/callback")

	u, err := url.Parse(p.AuthURL("state-123"))
	require.NoError(t, err)

	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "client-id", u.Query().Get("client_id"))
}

func TestGitHubProvider_Exchange_PublicEmail(t *testing.T) {
	p := newFakeGitHub(t, `{"id":42,"login":"octocat","email":"octo@netlution.de"}`, `[]`)

	u, err := p.Exchange(context.Background(), "code")
	require.NoError(t, err)

	assert.Equal(t, int64(42), u.ID)
	assert.Equal(t, "octo@netlution.de", u.Email)
}

func TestGitHubProvider_Exchange_HiddenEmail(t *testing.T) {
	p := newFakeGitHub(t,
		`{"id":42,"login":"octocat","email":null}`,
		`[{"email":"old@x.de","primary":false,"verified":true},
		  {"email":"octo@netlution.de","primary":true,"verified":true}]`)

	u, err := p.Exchange(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "octo@netlution.de", u.Email)
}

func TestGitHubProvider_Exchange_InvalidUser(t *testing.T) {
	p := newFakeGitHub(t, `{"id":0}`, `[]`)

	_, err := p.Exchange(context.Background(), "code")
	assert.Error(t, err)
}
