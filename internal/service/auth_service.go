package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"campus_api/internal/model"
	"campus_api/internal/repository"
	"campus_api/internal/utils"

	"github.com/google/uuid"
)

// AuthService provides authentication related services
type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.Account, string, error)
	Login(ctx context.Context, login, password string) (*model.Account, string, error)
	// Anonymous issues a token for a caller without an account.
	Anonymous(ctx context.Context) (string, error)
}

type authService struct {
	accounts          repository.AccountRepository
	jwtUtil           *utils.JWTUtil
	initialAdminEmail string
	logger            *slog.Logger
}

// NewAuthService creates a new AuthService. An account registered with
// initialAdminEmail is granted the admin role.
func NewAuthService(accounts repository.AccountRepository, jwtUtil *utils.JWTUtil, initialAdminEmail string, logger *slog.Logger) AuthService {
	return &authService{
		accounts:          accounts,
		jwtUtil:           jwtUtil,
		initialAdminEmail: strings.ToLower(strings.TrimSpace(initialAdminEmail)),
		logger:            logger,
	}
}

// Register creates a new account
func (s *authService) Register(ctx context.Context, req model.RegisterRequest) (*model.Account, string, error) {
	email := normalizeEmail(req.Email)
	phone := trimmed(req.Phone)
	if email == nil && phone == nil {
		return nil, "", ErrMissingLogin
	}

	role := req.Role
	isInitialAdmin := s.initialAdminEmail != "" && email != nil && *email == s.initialAdminEmail
	switch {
	case isInitialAdmin:
		role = model.RoleAdmin
		s.logger.Info("registering initial admin account", "email", *email)
	case role == model.RoleAdmin || role == model.RoleAnonymous:
		return nil, "", ErrRoleNotAllowed
	}

	if email != nil {
		existing, err := s.accounts.FindByEmail(ctx, *email)
		if err != nil {
			return nil, "", fmt.Errorf("failed to check existing account: %w", err)
		}
		if existing != nil {
			return nil, "", ErrAccountExists
		}
	}
	if phone != nil {
		existing, err := s.accounts.FindByPhone(ctx, *phone)
		if err != nil {
			return nil, "", fmt.Errorf("failed to check existing account: %w", err)
		}
		if existing != nil {
			return nil, "", ErrAccountExists
		}
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	countryCode := req.CountryCode
	if countryCode == "" {
		countryCode = model.DefaultCountryCode
	}
	now := time.Now().UTC()
	account := &model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     trimmed(req.Username),
		Phone:        phone,
		CountryCode:  countryCode,
		Role:         role,
		PasswordHash: hashedPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", ErrAccountExists
		}
		return nil, "", fmt.Errorf("failed to create account in repository: %w", err)
	}

	token, err := s.jwtUtil.GenerateToken(account.ID, account.Role)
	if err != nil {
		s.logger.Error("account created but token generation failed", "account", account.ID, "error", err)
		return account, "", fmt.Errorf("account created, but failed to generate token: %w", err)
	}

	return account, token, nil
}

// Login authenticates by email (when login contains "@") or phone and returns a token
func (s *authService) Login(ctx context.Context, login, password string) (*model.Account, string, error) {
	login = strings.TrimSpace(login)

	var (
		account *model.Account
		err     error
	)
	if strings.Contains(login, "@") {
		account, err = s.accounts.FindByEmail(ctx, strings.ToLower(login))
	} else {
		account, err = s.accounts.FindByPhone(ctx, login)
	}
	if err != nil {
		return nil, "", fmt.Errorf("error finding account: %w", err)
	}
	if account == nil {
		return nil, "", ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(password, account.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwtUtil.GenerateToken(account.ID, account.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return account, token, nil
}

func (s *authService) Anonymous(_ context.Context) (string, error) {
	token, err := s.jwtUtil.GenerateToken(uuid.NewString(), model.RoleAnonymous)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

func normalizeEmail(email *string) *string {
	email = trimmed(email)
	if email == nil {
		return nil
	}
	lower := strings.ToLower(*email)
	return &lower
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
