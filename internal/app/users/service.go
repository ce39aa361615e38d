package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tubelists/internal/store"
	"tubelists/shared/go/models"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
	// DefaultSessionTTL bounds the lifetime of issued tokens.
	DefaultSessionTTL = 24 * time.Hour
)

// dummyPasswordHash keeps the response time of unknown emails in line with real ones.
var dummyPasswordHash = []byte("$2a$10$CwTycUXWue0Thq9StjUM0uJ8n4VWeNseyX2fA9DE.D7su7J6iYGTC")

// Store describes the persistence operations required by the user service.
type Store interface {
	CreateUser(ctx context.Context, username, email string, passwordHash []byte) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUUID(ctx context.Context, id string) (*models.User, error)
}

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *models.User, ttl time.Duration) (string, error)
}

// Service exposes user-related workflows.
type Service interface {
	Signup(ctx context.Context, username, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (string, error)
	Profile(ctx context.Context, id string) (models.Profile, error)
}

type service struct {
	store  Store
	issuer TokenIssuer
	ttl    time.Duration
	cost   int
}

// New wires a Service backed by the provided Store.
func New(store Store, issuer TokenIssuer, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &service{store: store, issuer: issuer, ttl: ttl, cost: bcrypt.DefaultCost}
}

func (s *service) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email are required", store.ErrInvalidInput)
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return nil, fmt.Errorf("%w: password must be %d to %d characters", store.ErrInvalidInput, minPasswordLength, maxPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.store.CreateUser(ctx, username, email, hash)
}

// Authenticate checks the password and returns a signed session token.
func (s *service) Authenticate(ctx context.Context, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issuer.Issue(user, s.ttl)
}

// Profile returns the public fields of the user identified by id.
func (s *service) Profile(ctx context.Context, id string) (models.Profile, error) {
	user, err := s.store.GetUserByUUID(ctx, id)
	if err != nil {
		return models.Profile{}, err
	}
	return models.Profile{UUID: user.UUID, Username: user.Username, CreatedAt: user.CreatedAt}, nil
}
