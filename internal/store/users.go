package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tubelists/shared/go/models"
)

const (
	insertUserQuery = `
		INSERT INTO users (uuid, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	selectUserByEmailQuery = `
		SELECT id, uuid, username, email, password_hash, created_at
		FROM users
		WHERE email = $1`

	selectUserByUUIDQuery = `
		SELECT id, uuid, username, email, password_hash, created_at
		FROM users
		WHERE uuid = $1`
)

// CreateUser registers a new account. passwordHash is stored as given.
func (s *Store) CreateUser(ctx context.Context, username, email string, passwordHash []byte) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || len(passwordHash) == 0 {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrInvalidInput)
	}

	user := models.User{UUID: uuid.NewString(), Username: username, Email: email, PasswordHash: passwordHash}
	err := s.db.QueryRowContext(ctx, insertUserQuery, user.UUID, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &user, nil
}

// GetUserByEmail looks an account up by its email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.selectUser(ctx, selectUserByEmailQuery, strings.ToLower(strings.TrimSpace(email)))
}

// GetUserByUUID looks an account up by its public identifier.
func (s *Store) GetUserByUUID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUserNotFound
	}
	return s.selectUser(ctx, selectUserByUUIDQuery, id)
}

func (s *Store) selectUser(ctx context.Context, query, arg string) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.UUID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &user, nil
}
