package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/andino-transportes/andino/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	sessions *SessionStore
}

// NewService constructs a new Service.
func NewService(repo Repository, sessions *SessionStore) *Service {
	return &Service{repo: repo, sessions: sessions}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and mints a bearer token for the session.
func (s *Service) Login(ctx context.Context, email, password string) (string, shared.Actor, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", shared.Actor{}, err
	}
	actor := user.Actor()
	token, err := s.sessions.Create(ctx, actor)
	if err != nil {
		return "", shared.Actor{}, err
	}
	return token, actor, nil
}

// Logout revokes the session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}
