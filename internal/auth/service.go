// Package auth orchestrates registration, login, refresh and logout on top
// of the credential store, password hasher, token issuer and session
// manager. It holds no persistent state of its own.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/tasknest/auth-service/internal/errors"
	"github.com/tasknest/auth-service/internal/identity"
	"github.com/tasknest/auth-service/internal/password"
	"github.com/tasknest/auth-service/internal/session"
	"github.com/tasknest/auth-service/internal/token"
)

// invalidCredentialsMessage is shared by the user-absent and wrong-password
// paths so a caller cannot probe which usernames exist.
const invalidCredentialsMessage = "invalid credentials"

type Service struct {
	users    identity.Store
	sessions *session.Manager
	tokens   *token.Issuer
	hasher   password.Hasher
	logger   *slog.Logger
}

func NewService(users identity.Store, sessions *session.Manager, tokens *token.Issuer, hasher password.Hasher, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		hasher:   hasher,
		logger:   logger,
	}
}

// TokenPair is an access/refresh token pair minted together for one identity
// snapshot.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Result is the outcome of registration and login.
type Result struct {
	TokenPair
	User identity.User `json:"user"`
}

// Register creates a new identity and logs it in. Hashing happens here,
// explicitly, before the store write.
func (s *Service) Register(ctx context.Context, username, plaintext string, role identity.Role) (Result, error) {
	if role == "" {
		role = identity.RoleUser
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return Result{}, apperrors.InternalError("failed to process credentials", err)
	}

	user := identity.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, identity.ErrDuplicateUsername) {
			return Result{}, apperrors.DuplicateIdentityError("username already exists", err)
		}
		return Result{}, apperrors.StoreUnavailableError("failed to create user", err)
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("User registered", "user_id", user.ID, "username", user.Username, "role", user.Role)

	return Result{TokenPair: pair, User: scrub(user)}, nil
}

// Login authenticates a username/password pair and issues a token pair.
func (s *Service) Login(ctx context.Context, username, plaintext string) (Result, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Result{}, apperrors.InvalidCredentialsError(invalidCredentialsMessage, nil)
		}
		return Result{}, apperrors.StoreUnavailableError("failed to look up user", err)
	}

	if !s.hasher.Verify(plaintext, user.PasswordHash) {
		return Result{}, apperrors.InvalidCredentialsError(invalidCredentialsMessage, nil)
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("User logged in", "user_id", user.ID, "username", user.Username)

	return Result{TokenPair: pair, User: scrub(user)}, nil
}

// scrub strips the password hash before an identity leaves the service.
func scrub(user identity.User) identity.User {
	user.PasswordHash = ""
	return user
}

// Refresh exchanges a valid refresh token for a new token pair. The
// presented token is consumed; it can never be refreshed again.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	sess, err := s.sessions.Verify(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return TokenPair{}, apperrors.SessionInvalidError("invalid or expired refresh token", err)
		}
		return TokenPair{}, apperrors.StoreUnavailableError("failed to verify refresh token", err)
	}

	// The identity may have been deleted after the session was created.
	user, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return TokenPair{}, apperrors.IdentityNotFoundError("user not found", err)
		}
		return TokenPair{}, apperrors.StoreUnavailableError("failed to look up user", err)
	}

	accessToken, err := s.tokens.Sign(user.ID.String(), user.Username, string(user.Role))
	if err != nil {
		return TokenPair{}, apperrors.InternalError("failed to issue access token", err)
	}

	newRefreshToken, err := s.sessions.Rotate(ctx, refreshToken, user.ID, user.Username)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			// A concurrent refresh won the rotation.
			return TokenPair{}, apperrors.SessionInvalidError("invalid or expired refresh token", err)
		}
		return TokenPair{}, apperrors.StoreUnavailableError("failed to rotate refresh token", err)
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}

// Logout deletes the presented session. An unknown token is still a
// successful logout; only store failures surface.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := s.sessions.Delete(ctx, refreshToken); err != nil {
		return apperrors.StoreUnavailableError("failed to delete refresh token", err)
	}

	return nil
}

// LogoutAll revokes every session of the identity. Already-issued access
// tokens stay valid until their natural expiry.
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return apperrors.StoreUnavailableError("failed to revoke refresh tokens", err)
	}

	return nil
}

// issueTokens is the single place a token pair is minted, so access and
// refresh tokens are always bound to the same identity snapshot.
func (s *Service) issueTokens(ctx context.Context, user identity.User) (TokenPair, error) {
	accessToken, err := s.tokens.Sign(user.ID.String(), user.Username, string(user.Role))
	if err != nil {
		return TokenPair{}, apperrors.InternalError("failed to issue access token", err)
	}

	refreshToken, err := s.sessions.GenerateToken()
	if err != nil {
		return TokenPair{}, apperrors.InternalError("failed to issue refresh token", err)
	}

	if err := s.sessions.Store(ctx, refreshToken, user.ID, user.Username); err != nil {
		return TokenPair{}, apperrors.StoreUnavailableError("failed to store refresh token", err)
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
