// Package auth registers users, checks passwords and issues bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/bosocmputer/doubtsolver/internal/storage"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// UserStore is the slice of storage the auth service needs
type UserStore interface {
	CreateUser(ctx context.Context, user *storage.User) error
	FindUserByEmail(ctx context.Context, email string) (*storage.User, error)
	FindUserByID(ctx context.Context, id string) (*storage.User, error)
}

// Service handles registration, login and token verification
type Service struct {
	store     UserStore
	users     *storage.UserCache
	secret    []byte
	expiresIn time.Duration
	cost      int
	now       func() time.Time
}

// NewService creates an auth service. cacheTTL controls how long resolved
// users are kept for the middleware.
func NewService(store UserStore, secret string, expiresIn, cacheTTL time.Duration) *Service {
	return &Service{
		store:     store,
		users:     storage.NewUserCache(store, cacheTTL),
		secret:    []byte(secret),
		expiresIn: expiresIn,
		cost:      bcrypt.DefaultCost,
		now:       time.Now,
	}
}

// Register creates a user with a hashed password
func (s *Service) Register(ctx context.Context, name, email, password string) (*storage.User, error) {
	email = strings.TrimSpace(email)

	_, err := s.store.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &storage.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.ID).Msg("👤 User registered")
	return user, nil
}

// Authenticate checks an email/password pair
func (s *Service) Authenticate(ctx context.Context, email, password string) (*storage.User, error) {
	user, err := s.store.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken signs an HS256 token whose subject is the user id
func (s *Service) IssueToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiresIn)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyToken returns the token's subject
func (s *Service) VerifyToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// UserByID resolves a user through the cache
func (s *Service) UserByID(ctx context.Context, id string) (*storage.User, error) {
	return s.users.Get(ctx, id)
}

// Logout drops the user from the cache so the next request reloads it.
// Tokens stay valid until they expire.
func (s *Service) Logout(userID string) {
	s.users.Invalidate(userID)
}
