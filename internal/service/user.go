package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rideshare/internal/auth"
	"rideshare/internal/domain"
	"rideshare/internal/redis"
	"rideshare/internal/repository"
)

// TokenIssuer mints session tokens for authenticated actors.
type TokenIssuer interface {
	Generate(subjectID string, role domain.ActorRole) (string, error)
	TTL() time.Duration
}

// PresenceInvalidator clears an actor's realtime channel binding.
type PresenceInvalidator interface {
	UnbindActor(actorID string)
}

// UserService handles rider registration, login and sessions.
type UserService struct {
	userRepo  repository.UserRepository
	tokens    TokenIssuer
	blacklist redis.BlacklistStoreInterface
	presence  PresenceInvalidator
}

// NewUserService creates a new UserService. presence may be nil.
func NewUserService(userRepo repository.UserRepository, tokens TokenIssuer, blacklist redis.BlacklistStoreInterface, presence PresenceInvalidator) *UserService {
	return &UserService{userRepo: userRepo, tokens: tokens, blacklist: blacklist, presence: presence}
}

// Register creates a rider account and returns it with a session token.
func (s *UserService) Register(ctx context.Context, fullname, email, password string) (*domain.User, string, error) {
	fullname = strings.TrimSpace(fullname)
	email = normalizeEmail(email)
	if err := validateCredentials(fullname, email, password); err != nil {
		return nil, "", err
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Fullname:     fullname,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("creating user: %w", err)
	}

	token, err := s.tokens.Generate(user.ID, domain.RoleUser)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login authenticates a rider and returns a session token.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, domain.RoleUser)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout blacklists the session token for the remainder of its lifetime
// and clears the rider's realtime channel binding.
func (s *UserService) Logout(ctx context.Context, userID, token string) error {
	if s.presence != nil && userID != "" {
		s.presence.UnbindActor(userID)
	}
	if token == "" {
		return nil
	}
	return s.blacklist.Add(ctx, token, s.tokens.TTL())
}

// Profile retrieves the rider's account.
func (s *UserService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return s.userRepo.GetByID(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(fullname, email, password string) error {
	if len(fullname) < 3 {
		return fmt.Errorf("%w: fullname must be at least 3 characters", ErrMissingFields)
	}
	if len(email) < 5 || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrMissingFields)
	}
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrMissingFields)
	}
	return nil
}
