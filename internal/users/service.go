package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/imrishuroy/returnguard/internal/auth"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is returned on signup and login.
type Session struct {
	Token string      `json:"token"`
	User  SessionUser `json:"user"`
}

type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Service registers and authenticates merchants.
type Service struct {
	store   *Store
	tokens  *auth.JWTService
	nowFunc func() time.Time
}

func NewService(store *Store, tokens *auth.JWTService) *Service {
	return &Service{store: store, tokens: tokens, nowFunc: time.Now}
}

// Signup creates an account and returns a session for it.
func (s *Service) Signup(ctx context.Context, email, password string) (Session, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, err
	}
	u := User{
		Email:        NormalizeEmail(email),
		UserID:       uuid.NewString(),
		PasswordHash: hash,
		CreatedAt:    s.nowFunc().UTC(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return Session{}, err
	}
	return s.session(u)
}

// Login checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if u == nil || !auth.CheckPassword(password, u.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(*u)
}

func (s *Service) session(u User) (Session, error) {
	token, err := s.tokens.GenerateToken(u.UserID, u.Email)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: SessionUser{ID: u.UserID, Email: u.Email}}, nil
}
