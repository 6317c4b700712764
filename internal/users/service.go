package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caribcell/caribcell-backend/internal/access"
	"github.com/caribcell/caribcell-backend/pkg/auth"
	"github.com/caribcell/caribcell-backend/pkg/auth/session"
	"github.com/caribcell/caribcell-backend/pkg/config"
	"github.com/caribcell/caribcell-backend/pkg/db"
	"github.com/caribcell/caribcell-backend/pkg/db/models"
	"github.com/caribcell/caribcell-backend/pkg/enums"
	pkgerrors "github.com/caribcell/caribcell-backend/pkg/errors"
	"github.com/caribcell/caribcell-backend/pkg/logger"
	"github.com/caribcell/caribcell-backend/pkg/security"
)

type sessionStore interface {
	Create(ctx context.Context, accessID string) error
	Revoke(ctx context.Context, accessID string) error
}

// Service defines identity operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*Profile, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, accessID string) error
	Me(ctx context.Context, userID uuid.UUID) (*Profile, error)
	SetStatus(ctx context.Context, actor access.Actor, userID uuid.UUID, status enums.AccountStatus) error
	GrantRole(ctx context.Context, actor access.Actor, input GrantRoleInput) error
	RevokeRole(ctx context.Context, actor access.Actor, userID uuid.UUID, role enums.UserRole) error
	AddAddress(ctx context.Context, input AddressInput) (*models.Address, error)
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
}

type service struct {
	repo     Repository
	sessions sessionStore
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
	logger   *logger.Logger
	now      func() time.Time
}

// NewService builds the identity service.
func NewService(repo Repository, sessions sessionStore, jwtCfg config.JWTConfig, pwCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	return &service{
		repo:     repo,
		sessions: sessions,
		jwtCfg:   jwtCfg,
		pwCfg:    pwCfg,
		logger:   logg,
		now:      time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*Profile, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	if !input.Territory.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported territory")
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        input.Phone,
		Role:         enums.UserRoleCustomer,
		Status:       enums.AccountStatusActive,
		Territory:    input.Territory,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	profile := ProfileFrom(user, s.now())
	return &profile, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	if user.Status != enums.AccountStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is not active")
	}

	now := s.now()
	jti := session.NewAccessID()
	token, err := auth.MintAccessToken(s.jwtCfg, now, auth.AccessTokenPayload{
		UserID:    user.ID,
		Role:      user.Role,
		Territory: user.Territory,
		JTI:       jti,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}

	if err := s.sessions.Create(ctx, jti); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, now.UTC()); err != nil && s.logger != nil {
		s.logger.Error(ctx, "update last login", err)
	}

	return &LoginResult{
		AccessToken: token,
		Profile:     ProfileFrom(user, now),
	}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access id required")
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	profile := ProfileFrom(user, s.now())
	return &profile, nil
}

func (s *service) SetStatus(ctx context.Context, actor access.Actor, userID uuid.UUID, status enums.AccountStatus) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown account status")
	}
	if actor.UserID == userID {
		return pkgerrors.New(pkgerrors.CodeConflict, "cannot change own account status")
	}
	if err := s.repo.UpdateStatus(ctx, userID, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update account status")
	}
	return nil
}

func (s *service) GrantRole(ctx context.Context, actor access.Actor, input GrantRoleInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown role")
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(s.now()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "expiry must be in the future")
	}

	user, err := s.repo.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user.Role == input.Role {
		return pkgerrors.New(pkgerrors.CodeConflict, "role already held as primary")
	}
	for _, grant := range user.SecondaryRoles {
		if grant.Role == input.Role && grant.Active(s.now()) {
			return pkgerrors.New(pkgerrors.CodeConflict, "role already granted")
		}
	}

	grant := &models.UserRoleGrant{
		UserID:    input.UserID,
		Role:      input.Role,
		ExpiresAt: input.ExpiresAt,
	}
	if err := s.repo.CreateRoleGrant(ctx, grant); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create role grant")
	}
	return nil
}

func (s *service) AddAddress(ctx context.Context, input AddressInput) (*models.Address, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Line1) == "" || strings.TrimSpace(input.City) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, line1 and city required")
	}
	if !input.Territory.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported territory")
	}

	address := &models.Address{
		UserID:    input.UserID,
		Name:      strings.TrimSpace(input.Name),
		Line1:     strings.TrimSpace(input.Line1),
		Line2:     input.Line2,
		City:      strings.TrimSpace(input.City),
		Parish:    input.Parish,
		Territory: input.Territory,
		Phone:     input.Phone,
	}
	if err := s.repo.CreateAddress(ctx, address); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
	}
	return address, nil
}

func (s *service) ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListAddresses(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return list, nil
}

func (s *service) RevokeRole(ctx context.Context, actor access.Actor, userID uuid.UUID, role enums.UserRole) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown role")
	}
	if err := s.repo.DeleteRoleGrant(ctx, userID, role); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete role grant")
	}
	return nil
}
