package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"food-rescue-backend/internal/cache"
	"food-rescue-backend/internal/config"
	"food-rescue-backend/internal/metrics"
	"food-rescue-backend/internal/models"
	"food-rescue-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	purposeSession = "session"
	purposeConfirm = "confirm"

	confirmationTTL = 24 * time.Hour
)

type accountStore interface {
	Create(ctx context.Context, acc *repository.AuthAccount) (*repository.AuthAccount, error)
	GetByEmail(ctx context.Context, email string) (*repository.AuthAccount, error)
	GetByID(ctx context.Context, id string) (*repository.AuthAccount, error)
	Confirm(ctx context.Context, id string, at time.Time) error
}

// RateLimitStore counts attempts within a window.
type RateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// SessionStore tracks issued sessions so they can be revoked.
type SessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// AuthParams bundles the dependencies of an AuthService. Limiter and
// Sessions are optional.
type AuthParams struct {
	Accounts accountStore
	Limiter  RateLimitStore
	Sessions SessionStore
	Config   config.AuthConfig
	Metrics  *metrics.Metrics
}

// AuthService handles sign-up, sign-in and session tokens
type AuthService struct {
	accounts accountStore
	limiter  RateLimitStore
	sessions SessionStore
	cfg      config.AuthConfig
	argon    argonParams
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(p AuthParams) *AuthService {
	return &AuthService{
		accounts: p.Accounts,
		limiter:  p.Limiter,
		sessions: p.Sessions,
		cfg:      p.Config,
		argon:    argonParamsFrom(p.Config),
		metrics:  p.Metrics,
		now:      time.Now,
	}
}

// RegisterRequest represents a sign-up request
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"required,max=120"`
	Role     string `json:"role" validate:"required,oneof=donor volunteer recipient"`
}

// SignInRequest represents a sign-in request
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is an issued access token
type Session struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresAt   time.Time       `json:"expires_at"`
	User        models.Identity `json:"user"`
}

// RegisterResult carries either a session or, when the email must be
// confirmed first, a confirmation token.
type RegisterResult struct {
	User              models.Identity `json:"user"`
	Session           *Session        `json:"session,omitempty"`
	ConfirmationToken string          `json:"confirmation_token,omitempty"`
}

// Claims are the validated contents of a session token
type Claims struct {
	Identity  models.Identity
	JTI       string
	ExpiresAt time.Time
}

// Register creates a new account.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := ValidateStruct(req); err != nil {
		s.metrics.AuthAttempt("register", "invalid")
		return nil, err
	}
	if len(req.Password) < s.cfg.MinPasswordLength {
		s.metrics.AuthAttempt("register", "invalid")
		return nil, fmt.Errorf("%w: at least %d characters required", ErrWeakPassword, s.cfg.MinPasswordLength)
	}

	hash, err := hashPassword(req.Password, s.argon)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	acc := &repository.AuthAccount{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		CreatedAt:    now,
	}
	if !s.cfg.RequireConfirmation {
		acc.ConfirmedAt = &now
	}

	created, err := s.accounts.Create(ctx, acc)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.AuthAttempt("register", "duplicate")
			return nil, ErrEmailTaken
		}
		s.metrics.AuthAttempt("register", "error")
		return nil, err
	}

	s.metrics.AuthAttempt("register", "ok")
	log.Info().Str("user_id", created.ID).Str("role", created.Role).Msg("Account registered")

	result := &RegisterResult{User: identityOf(created)}
	if !created.Confirmed() {
		token, _, err := s.sign(created, purposeConfirm, "", confirmationTTL)
		if err != nil {
			return nil, err
		}
		result.ConfirmationToken = token
		return result, nil
	}

	session, err := s.issueSession(ctx, created)
	if err != nil {
		return nil, err
	}
	result.Session = session
	return result, nil
}

// Confirm marks the account named by a confirmation token as confirmed.
func (s *AuthService) Confirm(ctx context.Context, token string) error {
	claims, err := s.parse(token, purposeConfirm)
	if err != nil {
		return err
	}
	if err := s.accounts.Confirm(ctx, claims.Identity.ID, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	log.Info().Str("user_id", claims.Identity.ID).Msg("Account confirmed")
	return nil
}

// SignIn checks credentials and issues a session. Attempts are limited per
// email and per client IP when a rate limit store is configured.
func (s *AuthService) SignIn(ctx context.Context, req SignInRequest, clientIP string) (*Session, error) {
	email := normalizeEmail(req.Email)
	req.Email = email
	if err := ValidateStruct(req); err != nil {
		s.metrics.AuthAttempt("signin", "invalid")
		return nil, err
	}

	if !s.allow(ctx, "ip", clientIP, s.cfg.RateLimitPerIP) || !s.allow(ctx, "email", hashValue(email), s.cfg.RateLimitPerEmail) {
		s.metrics.AuthAttempt("signin", "rate_limited")
		return nil, ErrRateLimited
	}

	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.AuthAttempt("signin", "invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		s.metrics.AuthAttempt("signin", "error")
		return nil, err
	}

	ok, err := verifyPassword(req.Password, acc.PasswordHash)
	if err != nil {
		log.Error().Err(err).Str("user_id", acc.ID).Msg("Stored password hash is unreadable")
	}
	if !ok {
		s.metrics.AuthAttempt("signin", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if !acc.Confirmed() {
		s.metrics.AuthAttempt("signin", "unconfirmed")
		return nil, ErrEmailNotConfirmed
	}

	session, err := s.issueSession(ctx, acc)
	if err != nil {
		s.metrics.AuthAttempt("signin", "error")
		return nil, err
	}
	s.metrics.AuthAttempt("signin", "ok")
	return session, nil
}

// SignOut revokes the session identified by claims.
func (s *AuthService) SignOut(ctx context.Context, claims *Claims) error {
	if s.sessions == nil || claims == nil || claims.JTI == "" {
		return nil
	}
	if err := s.sessions.Del(ctx, cache.SessionKey(claims.JTI)); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	log.Info().Str("user_id", claims.Identity.ID).Msg("Signed out")
	return nil
}

// ValidateToken validates a session token and checks it was not revoked.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.parse(token, purposeSession)
	if err != nil {
		return nil, err
	}
	if s.sessions != nil {
		active, err := s.sessions.Exists(ctx, cache.SessionKey(claims.JTI))
		if err != nil {
			return nil, fmt.Errorf("failed to check session: %w", err)
		}
		if !active {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

func (s *AuthService) issueSession(ctx context.Context, acc *repository.AuthAccount) (*Session, error) {
	jti := uuid.New().String()
	token, expiresAt, err := s.sign(acc, purposeSession, jti, s.cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	if s.sessions != nil {
		if err := s.sessions.Set(ctx, cache.SessionKey(jti), acc.ID, s.cfg.TokenTTL); err != nil {
			return nil, fmt.Errorf("failed to store session: %w", err)
		}
	}
	return &Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        identityOf(acc),
	}, nil
}

func (s *AuthService) sign(acc *repository.AuthAccount, purpose, jti string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	claims := jwt.MapClaims{
		"user_id":   acc.ID,
		"email":     acc.Email,
		"full_name": acc.FullName,
		"role":      acc.Role,
		"purpose":   purpose,
		"exp":       expiresAt.Unix(),
		"iat":       now.Unix(),
	}
	if jti != "" {
		claims["jti"] = jti
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

func (s *AuthService) parse(tokenString, purpose string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if p, _ := mc["purpose"].(string); p != purpose {
		return nil, ErrInvalidToken
	}
	userID, _ := mc["user_id"].(string)
	if userID == "" {
		return nil, ErrInvalidToken
	}
	jti, _ := mc["jti"].(string)
	if purpose == purposeSession && jti == "" {
		return nil, ErrInvalidToken
	}

	email, _ := mc["email"].(string)
	fullName, _ := mc["full_name"].(string)
	role, _ := mc["role"].(string)

	claims := &Claims{
		Identity: models.Identity{
			ID:       userID,
			Email:    email,
			Metadata: models.IdentityMetadata{FullName: fullName, Role: role},
		},
		JTI: jti,
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// allow reports whether another attempt fits in the limit. Limiter failures
// are logged and let the attempt through.
func (s *AuthService) allow(ctx context.Context, scope, subject string, limit int) bool {
	if s.limiter == nil || limit <= 0 || subject == "" || s.cfg.RateLimitWindow <= 0 {
		return true
	}
	count, err := s.limiter.IncrWithTTL(ctx, cache.RateLimitKey("signin:"+scope, subject), s.cfg.RateLimitWindow)
	if err != nil {
		log.Warn().Err(err).Str("scope", scope).Msg("Rate limiter unavailable")
		return true
	}
	if count > int64(limit) {
		log.Warn().Str("scope", scope).Int64("attempts", count).Int("limit", limit).Msg("Sign-in rate limited")
		return false
	}
	return true
}

func identityOf(acc *repository.AuthAccount) models.Identity {
	return models.Identity{
		ID:    acc.ID,
		Email: acc.Email,
		Metadata: models.IdentityMetadata{
			FullName: acc.FullName,
			Role:     acc.Role,
		},
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
