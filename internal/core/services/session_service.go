package services

import (
	"context"
	"fmt"

	"github.com/velachio/habitsync/internal/adapters/api"
	"github.com/velachio/habitsync/internal/store"
)

// AuthAPI is the credential surface of the remote.
type AuthAPI interface {
	SignIn(ctx context.Context, creds api.Credentials) (string, error)
	SignUp(ctx context.Context, creds api.Credentials) (string, error)
}

// SessionService owns the cached bearer credential. It signs the user in or
// up against the cloud and stashes the token and account email in the local
// store so sync calls can authenticate without re-prompting.
type SessionService struct {
	store  *store.Store
	client AuthAPI
}

func NewSessionService(st *store.Store, client AuthAPI) *SessionService {
	return &SessionService{
		store:  st,
		client: client,
	}
}

func (s *SessionService) SignIn(ctx context.Context, name, email, password string) error {
	token, err := s.client.SignIn(ctx, api.Credentials{Name: name, Email: email, Password: password})
	if err != nil {
		return err
	}
	return s.cache(ctx, token, email)
}

func (s *SessionService) SignUp(ctx context.Context, name, email, password string) error {
	token, err := s.client.SignUp(ctx, api.Credentials{Name: name, Email: email, Password: password})
	if err != nil {
		return err
	}
	return s.cache(ctx, token, email)
}

func (s *SessionService) cache(ctx context.Context, token, email string) error {
	if err := s.store.SetToken(ctx, token); err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	if err := s.store.SetEmail(ctx, email); err != nil {
		return fmt.Errorf("failed to cache account email: %w", err)
	}
	return nil
}

// Token returns the cached credential, or "" when nobody is signed in.
// Callers must check this before invoking the sync engine.
func (s *SessionService) Token(ctx context.Context) string {
	return s.store.Token(ctx)
}

func (s *SessionService) Email(ctx context.Context) string {
	return s.store.Email(ctx)
}

func (s *SessionService) SignOut(ctx context.Context) error {
	return s.store.ClearSession(ctx)
}
