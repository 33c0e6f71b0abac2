package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/krankmeldung/internal/apperror"
	"github.com/sakif/krankmeldung/internal/auth"
	"github.com/sakif/krankmeldung/internal/metrics"
	"github.com/sakif/krankmeldung/internal/model"
	"github.com/sakif/krankmeldung/internal/service"
)

const stateCookieName = "oauth_state"

// AuthHandler serves signup, password login, logout, the current user and
// the optional GitHub sign-in.
type AuthHandler struct {
	auth    *service.AuthService
	github  *auth.GitHubProvider // nil when GitHub sign-in is not configured
	metrics *metrics.Metrics
	logger  *slog.Logger

	sessionTTL   time.Duration
	cookieSecure bool
}

// AuthHandlerConfig carries the cookie settings of the session.
type AuthHandlerConfig struct {
	SessionTTL   time.Duration
	CookieSecure bool
}

func NewAuthHandler(
	svc *service.AuthService,
	github *auth.GitHubProvider,
	m *metrics.Metrics,
	cfg AuthHandlerConfig,
	logger *slog.Logger,
) *AuthHandler {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = auth.DefaultSessionTTL
	}
	return &AuthHandler{
		auth:         svc,
		github:       github,
		metrics:      m,
		logger:       logger,
		sessionTTL:   cfg.SessionTTL,
		cookieSecure: cfg.CookieSecure,
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Manager  string `json:"manager"`
}

// userResponse is the public view of a user.
type userResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Manager string `json:"manager"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Manager: u.Manager}
}

// HandleSignup registers a user and responds with {"user": {...}}. It does
// not sign the user in.
//
// HTTP: POST /auth/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.auth.Signup(r.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Manager:  req.Manager,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.metrics.UserSignedUp()

	writeJSON(w, http.StatusOK, map[string]userResponse{"user": newUserResponse(user)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

// HandleLogin checks the credentials, sets the session cookie and returns
// the token for clients that prefer a Bearer header.
//
// HTTP: POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.Login("password", false)
		writeError(w, r, err)
		return
	}
	h.metrics.Login("password", true)

	h.setSessionCookie(w, res.Token)
	writeJSON(w, http.StatusOK, loginResponse{User: newUserResponse(res.User), Token: res.Token})
}

// HandleLogout deletes the session cookie. The token itself stays valid
// until it expires.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "Abgemeldet"})
}

// HandleMe returns {"user": {...}} for the session.
//
// HTTP: GET /auth/me (behind RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	user, err := h.auth.Me(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]userResponse{"user": newUserResponse(user)})
}

// HandleGitHubLogin redirects to GitHub. The random state is kept in a
// short-lived cookie and checked on callback.
//
// HTTP: GET /auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, r, apperror.NotFound("route", r.URL.Path))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback finishes GitHub sign-in for an already registered
// user and redirects to "/".
//
// HTTP: GET /auth/github/callback?code=..&state=..
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, r, apperror.NotFound("route", r.URL.Path))
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		writeError(w, r, apperror.Forbidden("Ungültiger OAuth-Status"))
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, r, apperror.ValidationFailed("code", "OAuth-Code fehlt"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		h.metrics.Login("github", false)
		writeError(w, r, apperror.Unauthorized("GitHub-Anmeldung fehlgeschlagen"))
		return
	}

	res, err := h.auth.LoginWithGitHub(r.Context(), ghUser)
	if err != nil {
		h.metrics.Login("github", false)
		if errors.Is(err, apperror.ErrUnauthorized) {
			http.Redirect(w, r, "/?auth=unknown", http.StatusSeeOther)
			return
		}
		writeError(w, r, err)
		return
	}
	h.metrics.Login("github", true)

	h.setSessionCookie(w, res.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
