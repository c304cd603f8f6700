package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/repository"
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// AccountService registers users and exchanges credentials for tokens.
type AccountService struct {
	users  UserStore
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(users UserStore, tokens *auth.TokenManager, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{users: users, tokens: tokens, logger: logger}
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Username string
	Password string
	Email    string
}

// Register validates in and creates a user with a hashed password.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if in.Username == "" {
		return nil, invalid("username", msgRequired)
	}
	if !model.ValidUsername(in.Username) {
		return nil, invalid("username", fmt.Sprintf(
			"Enter a valid username of %d to %d letters, digits and @/./+/-/_ characters.",
			model.MinUsernameLength, model.MaxUsernameLength))
	}
	if len(in.Password) < model.MinPasswordLength {
		return nil, invalid("password", fmt.Sprintf(
			"Ensure this field has at least %d characters.", model.MinPasswordLength))
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return nil, invalid("email", "Enter a valid email address.")
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// Login verifies a username and password and issues a token pair.
// Unknown users and wrong passwords are indistinguishable.
func (s *AccountService) Login(ctx context.Context, username, password string) (*auth.TokenPair, error) {
	var hash, userID string

	user, err := s.users.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		hash, userID = user.PasswordHash, user.ID
	case errors.Is(err, repository.ErrUserNotFound):
	default:
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !auth.CheckPassword(password, hash) {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return pair, nil
}

// Refresh exchanges a refresh token for a new access token. The account
// must still exist.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return "", ErrInvalidToken
	}

	if _, err := s.users.GetUserByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	access, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		return "", ErrInvalidToken
	}
	return access, nil
}
