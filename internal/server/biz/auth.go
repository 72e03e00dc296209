package biz

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
	"golang.org/x/crypto/bcrypt"

	"github.com/loopdocs/docdesk/internal/contexts"
	"github.com/loopdocs/docdesk/internal/log"
	"github.com/loopdocs/docdesk/internal/pkg/xcache"
	"github.com/loopdocs/docdesk/internal/store"
)

type AuthConfig struct {
	// SecretKey signs session tokens. When empty a random key is generated
	// at startup, which invalidates all sessions on restart.
	SecretKey string `conf:"secret_key" yaml:"secret_key" json:"secret_key"`

	TokenTTL time.Duration `conf:"token_ttl" yaml:"token_ttl" json:"token_ttl"`

	SessionCache xcache.Config `conf:"session_cache" yaml:"session_cache" json:"session_cache"`
}

func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		TokenTTL: 7 * 24 * time.Hour,
		SessionCache: xcache.Config{
			Mode: xcache.ModeMemory,
			Memory: xcache.MemoryConfig{
				Expiration:      5 * time.Minute,
				CleanupInterval: 10 * time.Minute,
			},
		},
	}
}

type AuthServiceParams struct {
	fx.In

	Store  *store.Store
	Config AuthConfig
}

func NewAuthService(params AuthServiceParams) (*AuthService, error) {
	config := params.Config

	if config.SecretKey == "" {
		key, err := GenerateSecretKey()
		if err != nil {
			return nil, err
		}

		log.Warn(context.Background(), "auth secret key not configured, generated an ephemeral one")

		config.SecretKey = key
	}

	if config.TokenTTL <= 0 {
		config.TokenTTL = DefaultAuthConfig().TokenTTL
	}

	return &AuthService{
		AbstractService: &AbstractService{store: params.Store},
		config:          config,
		sessions:        xcache.NewFromConfig[*contexts.Session](config.SessionCache),
	}, nil
}

type AuthService struct {
	*AbstractService

	config   AuthConfig
	sessions xcache.Cache[*contexts.Session]
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return hex.EncodeToString(hashedPassword), nil
}

// VerifyPassword verifies a password against a hash.
func VerifyPassword(hashedPassword, password string) error {
	decodedHashedPassword, err := hex.DecodeString(hashedPassword)
	if err != nil {
		return fmt.Errorf("failed to decode hashed password: %w", err)
	}

	return bcrypt.CompareHashAndPassword(decodedHashedPassword, []byte(password))
}

// GenerateSecretKey generates a random secret key for JWT.
func GenerateSecretKey() (string, error) {
	bytes := make([]byte, 32)

	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return hex.EncodeToString(bytes), nil
}

// AuthenticateUser authenticates a user with email and password.
func (s *AuthService) AuthenticateUser(ctx context.Context, email, password string) (*store.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("invalid email or password: %w", ErrInvalidPassword)
		}

		log.Error(ctx, "failed to get user", log.Cause(err))

		return nil, ErrInternal
	}

	if !user.Active {
		return nil, fmt.Errorf("account is disabled: %w", ErrInvalidPassword)
	}

	if err := VerifyPassword(user.Password, password); err != nil {
		return nil, fmt.Errorf("invalid email or password: %w", ErrInvalidPassword)
	}

	log.Debug(ctx, "user authenticated", log.Int64("user_id", user.ID))

	return user, nil
}

// GenerateJWTToken generates a JWT token for a user.
func (s *AuthService) GenerateJWTToken(ctx context.Context, user *store.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"exp":     time.Now().Add(s.config.TokenTTL).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.config.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// AuthenticateJWTToken validates a JWT token and returns the user.
func (s *AuthService) AuthenticateJWTToken(ctx context.Context, tokenString string) (*store.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method: %v", ErrInvalidJWT, token.Header["alg"])
		}

		return []byte(s.config.SecretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWT, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidJWT
	}

	rawUserID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: missing user_id claim", ErrInvalidJWT)
	}

	user, err := s.store.GetUser(ctx, int64(rawUserID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidJWT
		}

		log.Error(ctx, "failed to get user", log.Cause(err))

		return nil, ErrInternal
	}

	if !user.Active {
		return nil, ErrInvalidJWT
	}

	return user, nil
}

// Session builds the acting session for a user within a department view,
// serving from the session cache when possible.
func (s *AuthService) Session(ctx context.Context, user *store.User, department string) (*contexts.Session, error) {
	key := sessionKey(user.ID, department)

	if session, err := s.sessions.Get(ctx, key); err == nil && session != nil {
		return session, nil
	}

	codes, err := s.store.UserPermissions(ctx, user.ID, department)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}

	session := &contexts.Session{
		UserID:      strconv.FormatInt(user.ID, 10),
		Email:       user.Email,
		Permissions: codes,
	}

	if err := s.sessions.Set(ctx, key, session, xcache.WithTags([]string{sessionTag(user.ID)})); err != nil {
		log.Warn(ctx, "failed to cache session", log.Cause(err))
	}

	return session, nil
}

// InvalidateSessions drops the cached sessions of the given users, in every
// department view, so their next request reflects the new permission state.
func (s *AuthService) InvalidateSessions(ctx context.Context, userIDs ...int64) {
	for _, id := range userIDs {
		err := s.sessions.Invalidate(ctx, xcache.WithInvalidateTags([]string{sessionTag(id)}))
		if err != nil {
			log.Warn(ctx, "failed to invalidate sessions",
				log.Int64("user_id", id), log.Cause(err))
		}
	}
}

func sessionTag(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func sessionKey(userID int64, department string) string {
	return fmt.Sprintf("session:%d:%s", userID, department)
}
