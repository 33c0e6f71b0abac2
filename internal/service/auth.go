// Package service holds the business rules of the application.
//
//	Handler (HTTP) → Service (rules) → Repository (Record Store)
//
// Services never see HTTP types. They return *apperror.AppError values that
// the handler layer maps to status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/krankmeldung/internal/apperror"
	"github.com/sakif/krankmeldung/internal/auth"
	"github.com/sakif/krankmeldung/internal/model"
	"github.com/sakif/krankmeldung/internal/repository"
)

// User-facing messages.
const (
	msgSignupRequired     = "Name, E-Mail und Passwort sind erforderlich"
	msgPasswordTooLong    = "Das Passwort darf höchstens 72 Zeichen lang sein"
	msgSignupFailed       = "Fehler beim Erstellen des Benutzers"
	msgInvalidCredentials = "E-Mail oder Passwort ist falsch"
	msgLoginFailed        = "Fehler bei der Anmeldung"
	msgNoAccountForGitHub = "Für diese GitHub-E-Mail-Adresse ist kein Benutzer registriert"
	msgUnauthorized       = "Nicht autorisiert"
)

// AuthService is the Identity Provider: it registers users, checks
// credentials and issues session tokens.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// SignupInput is a registration request. Manager is optional.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Manager  string
}

// AuthResult bundles the signed-in user with the issued session token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Signup registers a new user. Name, email and password are required; an
// email that is already registered is reported as apperror.ErrConflict.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, apperror.ValidationFailed("", msgSignupRequired)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", msgPasswordTooLong)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Manager:      strings.TrimSpace(in.Manager),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Storage(msgSignupFailed, err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return user, nil
}

// Login checks email and password and issues a session. Unknown emails and
// wrong passwords produce the same apperror.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		s.logger.Error("failed to load user for login", slog.String("error", err.Error()))
		return nil, apperror.Storage(msgLoginFailed, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Error("password check failed",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	return s.issue(user)
}

// LoginWithGitHub signs in the registered user whose email matches the
// GitHub account. Accounts are never created here.
func (s *AuthService) LoginWithGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil || ghUser.Email == "" {
		return nil, apperror.Unauthorized(msgNoAccountForGitHub)
	}

	user, err := s.users.GetUserByEmail(ctx, ghUser.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("GitHub sign-in without matching account",
				slog.String("login", ghUser.Login),
			)
			return nil, apperror.Unauthorized(msgNoAccountForGitHub)
		}
		s.logger.Error("failed to load user for GitHub sign-in", slog.String("error", err.Error()))
		return nil, apperror.Storage(msgLoginFailed, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
	)
	return s.issue(user)
}

// Me returns the stored user behind a session.
func (s *AuthService) Me(ctx context.Context, id *auth.Identity) (*model.User, error) {
	if id == nil || id.UserID == "" {
		return nil, apperror.Unauthorized(msgUnauthorized)
	}

	user, err := s.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// The account behind a still valid token is gone.
			return nil, apperror.Unauthorized(msgUnauthorized)
		}
		return nil, apperror.Storage(msgLoginFailed, err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(IdentityOf(user))
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// IdentityOf is the session identity of user.
func IdentityOf(user *model.User) auth.Identity {
	return auth.Identity{
		UserID:  user.ID,
		Name:    user.Name,
		Email:   user.Email,
		Manager: user.Manager,
	}
}
