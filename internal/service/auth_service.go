package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/cardmarket/internal/auth"
	"github.com/spec-kit/cardmarket/internal/config"
	"github.com/spec-kit/cardmarket/internal/domain"
	"github.com/spec-kit/cardmarket/internal/repository"
	"github.com/spec-kit/cardmarket/internal/session"
	apperrors "github.com/spec-kit/cardmarket/pkg/util"
)

// AuthService coordinates registration, login and password flows.
type AuthService struct {
	users       repository.UserRepository
	resets      repository.PasswordResetRepository
	tx          repository.TxRunner
	sessions    *session.Manager
	tokenMgr    *auth.TokenManager
	bcryptCost  int
	minPassword int
	resetTTL    time.Duration
	logger      *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Repos    repository.Set
	Sessions *session.Manager
	Tokens   *auth.TokenManager
	Logger   *zap.Logger
}

// LoginResult is what a successful login or registration hands back.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:       deps.Repos.Users,
		resets:      deps.Repos.PasswordResets,
		tx:          deps.Repos.Tx,
		sessions:    deps.Sessions,
		tokenMgr:    deps.Tokens,
		bcryptCost:  cfg.Auth.BcryptCost,
		minPassword: cfg.Auth.MinPasswordLength,
		resetTTL:    time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
		logger:      logger,
	}
}

// Register creates a buyer account and logs it in.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	problems := map[string]any{}
	if l := len(username); l < 3 || l > 32 {
		problems["username"] = "username must be 3 to 32 characters"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		problems["email"] = "email is invalid"
	}
	if err := auth.CheckPasswordPolicy(password, s.minPassword); err != nil {
		problems["password"] = err.Error()
	}
	if len(problems) > 0 {
		return nil, apperrors.NewValidationError("invalid registration", problems)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        domain.NewRoleSet(domain.RoleBuyer),
		Status:       domain.UserStatusActive,
		BuyerBalance: decimal.Zero,
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ensureFree(ctx, username, email); err != nil {
			return err
		}
		return s.users.Create(ctx, user)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.startSession(ctx, user)
}

func (s *AuthService) ensureFree(ctx context.Context, username, email string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return apperrors.NewConflict("email already registered", map[string]any{"email": "email already registered"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return apperrors.NewConflict("username already taken", map[string]any{"username": "username already taken"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// Login authenticates by email and password. Blocked accounts are refused.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if user.IsBlocked() {
		return nil, apperrors.NewForbidden("account blocked")
	}

	loggedIn := utcNow()
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		fresh, err := s.users.GetByID(ctx, user.ID)
		if err != nil {
			return err
		}
		fresh.LastLoginAt = &loggedIn
		user = fresh
		return s.users.Update(ctx, fresh)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.startSession(ctx, user)
}

func (s *AuthService) startSession(ctx context.Context, user *domain.User) (*LoginResult, error) {
	sess, err := s.sessions.Start(ctx, user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	token, exp, err := s.tokenMgr.GenerateToken(user, sess)
	if err != nil {
		_ = s.sessions.End(ctx, sess.ID)
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// Logout revokes the session the caller authenticated with.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.End(ctx, sessionID); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// RequestPasswordReset issues a reset token. Unknown emails yield a nil
// token and no error so callers cannot probe for accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*domain.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if user.IsBlocked() {
		return nil, nil
	}

	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: utcNow().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("password reset requested", zap.String("user_id", user.ID))
	return token, nil
}

// ConfirmPasswordReset consumes a reset token and sets a new password.
// Existing sessions are revoked.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if err := auth.CheckPasswordPolicy(newPassword, s.minPassword); err != nil {
		return apperrors.NewFieldError("password", err.Error())
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	var userID string
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		token, err := s.resets.GetByToken(ctx, tokenStr)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewFieldError("token", "reset token is invalid")
			}
			return err
		}
		if !token.Usable(utcNow()) {
			return apperrors.NewFieldError("token", "reset token expired or used")
		}
		user, err := s.users.GetByID(ctx, token.UserID)
		if err != nil {
			return apperrors.MapNotFound(err, "user", token.UserID)
		}
		user.PasswordHash = hash
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		userID = user.ID
		return s.resets.MarkUsed(ctx, token.ID)
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	return s.revokeAll(ctx, userID)
}

// ChangePassword verifies the current password before updating it. Other
// sessions of the user are revoked; keepSession survives.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.User, keepSession *domain.Session, currentPassword, newPassword string) error {
	if err := auth.CheckPasswordPolicy(newPassword, s.minPassword); err != nil {
		return apperrors.NewFieldError("new_password", err.Error())
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, actor.ID)
		if err != nil {
			return apperrors.MapNotFound(err, "user", actor.ID)
		}
		if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
			return apperrors.NewFieldError("current_password", "current password is incorrect")
		}
		user.PasswordHash = hash
		return s.users.Update(ctx, user)
	})
	if err != nil {
		return apperrors.MapError(err)
	}

	if err := s.revokeAll(ctx, actor.ID); err != nil {
		return err
	}
	if keepSession != nil {
		if err := s.sessions.Restore(ctx, *keepSession); err != nil {
			return apperrors.NewInternalError(err)
		}
	}
	return nil
}

func (s *AuthService) revokeAll(ctx context.Context, userID string) error {
	if err := s.sessions.EndAll(ctx, userID); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// Me reloads the caller's own record.
func (s *AuthService) Me(ctx context.Context, actor *domain.User) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapNotFound(err, "user", actor.ID)
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
