// Package auth implements the single-user journal login with bcrypt
// password hashes and opaque bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/trade-journal/internal/models"
	"github.com/trogers1052/trade-journal/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is the session lifetime when none is configured
const DefaultTokenTTL = 24 * time.Hour

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthorized is returned for a missing, expired or revoked token.
	ErrUnauthorized = errors.New("unauthorized")
)

// Authenticator issues and validates session tokens
type Authenticator struct {
	users  storage.UserStore
	tokens TokenStore
	ttl    time.Duration
}

// NewAuthenticator creates an Authenticator
func NewAuthenticator(users storage.UserStore, tokens TokenStore, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Authenticator{users: users, tokens: tokens, ttl: ttl}
}

// EnsureUser creates the login or resets its password
func (a *Authenticator) EnsureUser(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return fmt.Errorf("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := a.users.UpsertUser(ctx, &models.User{Email: email, PasswordHash: string(hash)}); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// Login checks the credentials and returns a new token
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, error) {
	user, err := a.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := uuid.NewString()
	if err := a.tokens.Save(ctx, token, user.ID, a.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Validate returns the user a token was issued to
func (a *Authenticator) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	userID, ok, err := a.tokens.Lookup(ctx, token)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrUnauthorized
	}
	return userID, nil
}

// Logout revokes a token
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	return a.tokens.Revoke(ctx, token)
}
