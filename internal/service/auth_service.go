package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"backoffice/internal/authz"
	"backoffice/internal/logger"
	"backoffice/internal/metrics"
	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/internal/security"
	"backoffice/internal/session"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type LoginRequest struct {
	// Username accepts either the username or the email address
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Nickname string `json:"nickname" binding:"omitempty,max=100"`
}

type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        UserResponse `json:"user"`
	Permissions []string     `json:"permissions"`
}

type MeResponse struct {
	User        UserResponse `json:"user"`
	Permissions []string     `json:"permissions"`
	Roles       []string     `json:"roles"`
}

type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	Me(ctx context.Context, current *model.User) (*MeResponse, error)
	Logout(ctx context.Context, sess *security.Session) error
}

type authService struct {
	users    repository.UserRepository
	hasher   *security.PasswordHasher
	codec    *security.TokenCodec
	resolver *authz.Resolver
	denylist *session.Denylist
	metrics  *metrics.Metrics
	log      logrus.FieldLogger

	// digest compared against when the login is unknown, so timing does not reveal account existence
	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(
	users repository.UserRepository,
	hasher *security.PasswordHasher,
	codec *security.TokenCodec,
	resolver *authz.Resolver,
	denylist *session.Denylist,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) AuthService {
	if log == nil {
		log = logger.Discard()
	}
	return &authService{
		users:    users,
		hasher:   hasher,
		codec:    codec,
		resolver: resolver,
		denylist: denylist,
		metrics:  m,
		log:      log,
	}
}

func (s *authService) burnPasswordCheck(password string) {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.hasher.Hash("timing-equalizer")
	})
	s.hasher.Verify(password, s.dummyDigest)
}

func (s *authService) fail(ctx context.Context, reason string) error {
	s.metrics.Login("failure")
	logger.WithContext(s.log, ctx).WithField("reason", reason).Info("login rejected")
	return ErrInvalidCredentials
}

// Login authenticates by username or email. Every rejection is the same ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	login := strings.TrimSpace(req.Username)

	user, err := s.users.FindByLogin(ctx, login)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		s.burnPasswordCheck(req.Password)
		return nil, s.fail(ctx, "unknown login")
	}

	if !s.hasher.Verify(req.Password, user.Password) {
		return nil, s.fail(ctx, "wrong password")
	}
	if !user.IsActive {
		return nil, s.fail(ctx, "inactive account")
	}

	issued, err := s.codec.Issue(user.ID, 0)
	if err != nil {
		return nil, err
	}

	perms, err := s.resolver.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, time.Now()); err != nil {
		logger.WithContext(s.log, ctx).WithError(err).Warn("failed to record last login")
	}

	full, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, notFound(err, "user")
	}

	s.metrics.Login("success")
	return &TokenResponse{
		AccessToken: issued.Token,
		TokenType:   "bearer",
		ExpiresIn:   int64(time.Until(issued.ExpiresAt).Seconds()),
		User:        toUserResponse(full),
		Permissions: perms.Codes(),
	}, nil
}

// Register creates an ordinary active account with no roles
func (s *authService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return nil, conflict("username %q is taken", username)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, conflict("email %q is registered", email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: username,
		Email:    email,
		Password: digest,
		Nickname: strings.TrimSpace(req.Nickname),
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	res := toUserResponse(user)
	return &res, nil
}

// Me returns the current principal with its effective permissions and active role codes
func (s *authService) Me(ctx context.Context, current *model.User) (*MeResponse, error) {
	user, err := s.users.FindByID(ctx, current.ID)
	if err != nil {
		return nil, notFound(err, "user")
	}

	perms, err := s.resolver.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}

	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		if r.IsActive {
			roles = append(roles, r.Code)
		}
	}

	return &MeResponse{User: toUserResponse(user), Permissions: perms.Codes(), Roles: roles}, nil
}

// Logout revokes the presented token until it would have expired anyway
func (s *authService) Logout(ctx context.Context, sess *security.Session) error {
	if sess == nil {
		return nil
	}
	return s.denylist.Revoke(ctx, sess.TokenID, sess.ExpiresAt)
}
