package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Skufu/rxguard/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingFields      = errors.New("username and password are required")
)

// UserStore persists usernames and password hashes.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) error
	PasswordHash(ctx context.Context, username string) (string, error)
}

// Service registers and verifies users. Only bcrypt hashes are stored.
type Service struct {
	users UserStore
	cost  int
}

func NewService(users UserStore) *Service {
	return NewServiceWithCost(users, bcrypt.DefaultCost)
}

// NewServiceWithCost is NewService with an explicit bcrypt work factor.
func NewServiceWithCost(users UserStore, cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{users: users, cost: cost}
}

// Register returns store.ErrUserExists for a taken username.
func (s *Service) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.CreateUser(ctx, username, string(hash)); err != nil {
		return err
	}
	return nil
}

// Login verifies the credentials and returns the canonical username.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	hash, err := s.users.PasswordHash(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return username, nil
}
