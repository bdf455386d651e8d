package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/hash"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
)

type AuthService struct {
	Repo          *repo.GormRepo
	Events        events.Publisher
	AccessSecret  []byte
	RefreshSecret []byte
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := domain.ValidateCredentials(username, email, req.Password); err != nil {
		return nil, err
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		Role:         tokens.RoleUser,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.Events.Publish(ctx, events.TopicUsers, user.ID.String(), "user_registered", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
	l.Info("user_registered", "user_id", user.ID.String())
	return user, nil
}

// Login accepts either the username or the email as login.
func (s *AuthService) Login(ctx context.Context, login, password string) (tokens.Pair, *models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return tokens.Pair{}, nil, fmt.Errorf("invalid login or password: %w", domain.ErrUnauthorized)
		}
		return tokens.Pair{}, nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return tokens.Pair{}, nil, fmt.Errorf("invalid login or password: %w", domain.ErrUnauthorized)
	}

	pair, rt, err := s.issue(user)
	if err != nil {
		return tokens.Pair{}, nil, err
	}
	if err := s.Repo.AddRefreshToken(ctx, rt); err != nil {
		return tokens.Pair{}, nil, err
	}

	l.Info("login_successful", "user_id", user.ID.String())
	return pair, user, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (tokens.Pair, error) {
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("refresh token: %v: %w", err, domain.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("refresh token subject: %w", domain.ErrUnauthorized)
	}
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return tokens.Pair{}, fmt.Errorf("refresh token owner gone: %w", domain.ErrUnauthorized)
		}
		return tokens.Pair{}, err
	}

	pair, next, err := s.issue(user)
	if err != nil {
		return tokens.Pair{}, err
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, tokens.Sha256Hex(refreshToken), next); err != nil {
		return tokens.Pair{}, err
	}
	logging.FromContext(ctx).Debug("refresh_rotated", "svc", "auth.refresh", "user_id", user.ID.String())
	return pair, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Repo.RevokeRefreshToken(ctx, tokens.Sha256Hex(refreshToken))
}

// Authenticate resolves an access token into the caller's identity.
func (s *AuthService) Authenticate(_ context.Context, accessToken string) (tokens.Identity, error) {
	claims, err := tokens.AccessClaimsFromToken(accessToken, s.AccessSecret)
	if err != nil {
		return tokens.Identity{}, fmt.Errorf("access token: %v: %w", err, domain.ErrUnauthorized)
	}
	id, err := claims.Identity()
	if err != nil {
		return tokens.Identity{}, fmt.Errorf("access token: %v: %w", err, domain.ErrUnauthorized)
	}
	return id, nil
}

func (s *AuthService) Me(ctx context.Context, id tokens.Identity) (*models.User, error) {
	return s.Repo.GetUserByID(ctx, id.UserID)
}

// BootstrapAdmin makes sure the configured administrator exists.
func (s *AuthService) BootstrapAdmin(ctx context.Context, username, email, password string) error {
	l := logging.FromContext(ctx).With("svc", "auth.bootstrap_admin")

	email = strings.ToLower(strings.TrimSpace(email))
	if err := domain.ValidateCredentials(username, email, password); err != nil {
		return err
	}
	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &models.User{Username: username, Email: email, PasswordHash: pwHash, Role: tokens.RoleAdmin}
	created, err := s.Repo.EnsureAdmin(ctx, admin)
	if err != nil {
		return err
	}
	l.Info("admin_ready", "user_id", admin.ID.String(), "created", created)
	return nil
}

func (s *AuthService) issue(user *models.User) (tokens.Pair, *models.RefreshToken, error) {
	now := time.Now()
	accessExp := now.Add(AccessTTL)
	refreshExp := now.Add(RefreshTTL)

	access, err := tokens.SignAccessToken(user.ID, user.Role, accessExp, s.AccessSecret)
	if err != nil {
		return tokens.Pair{}, nil, fmt.Errorf("sign access token: %w", err)
	}
	jti := tokens.NewJTI()
	refresh, err := tokens.SignRefreshToken(user.ID, jti, refreshExp, s.RefreshSecret)
	if err != nil {
		return tokens.Pair{}, nil, fmt.Errorf("sign refresh token: %w", err)
	}

	rt := &models.RefreshToken{
		Token:     tokens.Sha256Hex(refresh),
		JTI:       jti,
		UserID:    user.ID,
		ExpiresAt: refreshExp.UTC(),
	}
	return tokens.Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, rt, nil
}
