package server

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/krankmeldung/internal/auth"
	"github.com/sakif/krankmeldung/internal/config"
	"github.com/sakif/krankmeldung/internal/metrics"
	sqliteRepo "github.com/sakif/krankmeldung/internal/repository/sqlite"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Database.Path = ":memory:"
	cfg.Auth.JWTSecret = "test-secret-at-least-16-chars!!"
	cfg.Auth.BcryptCost = 4
	cfg.Notify.Inbox = "org@inbox"
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()

	db, err := sqliteRepo.New(cfg.Database.Path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := New(cfg, db, metrics.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func serve(s *Server, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestNew_RequiresDB(t *testing.T) {
	_, err := New(testConfig(), nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestNew_RejectsShortSecret(t *testing.T) {
	cfg := testConfig()
	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	cfg.Auth.JWTSecret = "short"
	_, err = New(cfg, db, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/sick-leaves", http.StatusUnauthorized},
		{http.MethodPost, "/sick-leaves/preview", http.StatusUnauthorized},
		{http.MethodGet, "/auth/me", http.StatusUnauthorized},
		{http.MethodGet, "/auth/github/login", http.StatusNotFound},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		rr := serve(s, tt.method, tt.path, "")
		assert.Equal(t, tt.want, rr.Code, "%s %s", tt.method, tt.path)
	}
}

func TestGitHubRoutes_WhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.GitHub.ClientID = "id"
	cfg.Auth.GitHub.ClientSecret = "secret"
	cfg.Auth.GitHub.CallbackURL = "http://localhost/auth/github/callback"
	s := newTestServer(t, cfg)

	rr := serve(s, http.MethodGet, "/auth/github/login", "")
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Contains(t, rr.Header().Get("Location"), "github.com")

	rr = serve(s, http.MethodGet, "/auth/github/callback?state=x&code=y", "")
	assert.Equal(t, http.StatusForbidden, rr.Code, "missing state cookie")
	assert.Contains(t, rr.Body.String(), `"error":"forbidden"`)
}

func TestSessionCookie_SecureInProduction(t *testing.T) {
	tests := []struct {
		name   string
		env    string
		secure bool
		want   bool
	}{
		{"development", "development", false, false},
		{"development with flag", "development", true, true},
		{"production", "production", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Server.Env = tt.env
			cfg.Server.CookieSecure = tt.secure
			s := newTestServer(t, cfg)

			rr := serve(s, http.MethodPost, "/auth/signup",
				`{"name":"Anna","email":"anna@netlution.de","password":"pw"}`)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			rr = serve(s, http.MethodPost, "/auth/login", `{"email":"anna@netlution.de","password":"pw"}`)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			var session *http.Cookie
			for _, c := range rr.Result().Cookies() {
				if c.Name == auth.CookieName {
					session = c
				}
			}
			require.NotNil(t, session)
			assert.Equal(t, tt.want, session.Secure)
		})
	}
}

func TestFullFlow(t *testing.T) {
	s := newTestServer(t, testConfig())

	rr := serve(s, http.MethodPost, "/auth/signup",
		`{"name":"John Smith","email":"john@netlution.de","password":"pw","manager":"m@x.de"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = serve(s, http.MethodPost, "/auth/login", `{"email":"john@netlution.de","password":"pw"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)

	body := `{"startDate":"2024-03-01","endDate":"2024-03-05","customerInfoType":"informed",
		"substituteName":"Jane Doe","projects":[{"customer":"Acme","project":"Website"}]}`

	rr = serve(s, http.MethodPost, "/sick-leaves/preview", body, cookies...)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"recipients":["org@inbox","m@x.de"]`)

	rr = serve(s, http.MethodPost, "/sick-leaves", body, cookies...)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = serve(s, http.MethodGet, "/metrics", "")
	assert.Contains(t, rr.Body.String(), "krankmeldung_sick_leaves_created_total 1")
	assert.Contains(t, rr.Body.String(), `route="/sick-leaves/preview"`)
}

func TestStart_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = 18089
	s := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
