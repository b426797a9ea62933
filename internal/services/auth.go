package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"e_store/internal/common"
	"e_store/internal/models"
	"e_store/internal/utils"
)

type RegisterInput struct {
	FullName string
	Email    string
	Password string
	City     string
	Phone    string
}

type AuthService struct {
	deps Deps
}

func NewAuthService(deps Deps) *AuthService {
	return &AuthService{deps: deps}
}

// Register creates an account. Every field is required; an email that is
// already taken leaves the existing account untouched.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.City = strings.TrimSpace(in.City)
	in.Phone = strings.TrimSpace(in.Phone)

	switch {
	case in.FullName == "":
		return nil, fmt.Errorf("%w: full name is required", ErrInvalidInput)
	case in.Email == "":
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	case in.Password == "":
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	case in.City == "":
		return nil, fmt.Errorf("%w: city is required", ErrInvalidInput)
	case in.Phone == "":
		return nil, fmt.Errorf("%w: phone is required", ErrInvalidInput)
	}

	repo := s.deps.Repos.Users(s.deps.DB)

	if _, err := repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		City:         in.City,
		Phone:        in.Phone,
		CreatedAt:    s.deps.now(),
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.deps.log().Info("user registered", zap.Int64("user_id", user.ID))
	return user, nil
}

// Login checks the credentials and on success signs the session in.
// Unknown emails and wrong passwords are indistinguishable.
func (s *AuthService) Login(ctx context.Context, sess Session, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)

	user, err := s.deps.Repos.Users(s.deps.DB).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			utils.DummyVerify(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	ok, err := utils.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.deps.log().Warn("unreadable password hash", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	sess.SetUserEmail(user.Email)
	return user, nil
}

// Authenticate resolves the signed-in user from the session.
func (s *AuthService) Authenticate(ctx context.Context, sess Session) (*models.User, error) {
	email := sess.UserEmail()
	if email == "" {
		return nil, ErrNotAuthenticated
	}

	user, err := s.deps.Repos.Users(s.deps.DB).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}
	return user, nil
}

// Logout is idempotent. Clearing the session also detaches its cart.
func (s *AuthService) Logout(sess Session) {
	sess.Clear()
}
