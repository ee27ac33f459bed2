package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kendall-kelly/hostel-management-api/config"
)

// TokenClaims are the claims carried by access and refresh tokens. Subject is
// the user ID and ID (jti) identifies the token for revocation.
type TokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token together with its identity and expiry
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenService signs HS256 access and refresh tokens. Access tokens are
// verified by the auth middleware; refresh tokens only by ParseRefreshToken.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenService creates a token service from the JWT settings in cfg
func NewTokenService(cfg *config.Config) *TokenService {
	return &TokenService{
		accessSecret:  []byte(cfg.JWTSecret),
		refreshSecret: []byte(cfg.JWTRefreshSecret),
		issuer:        cfg.JWTIssuer,
		audience:      cfg.JWTAudience,
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           time.Now,
	}
}

// IssueAccessToken signs a short-lived token for the user
func (s *TokenService) IssueAccessToken(userID uint, role string) (*IssuedToken, error) {
	return s.issue(s.accessSecret, s.accessTTL, userID, role)
}

// IssueRefreshToken signs a long-lived token used to obtain new access tokens
func (s *TokenService) IssueRefreshToken(userID uint, role string) (*IssuedToken, error) {
	return s.issue(s.refreshSecret, s.refreshTTL, userID, role)
}

func (s *TokenService) issue(secret []byte, ttl time.Duration, userID uint, role string) (*IssuedToken, error) {
	now := s.now().UTC()
	expiresAt := now.Add(ttl)
	id := uuid.NewString()

	claims := TokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &IssuedToken{Token: signed, ID: id, ExpiresAt: expiresAt}, nil
}

// ParseRefreshToken verifies a refresh token and returns its claims
func (s *TokenService) ParseRefreshToken(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.refreshSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &ServiceError{Kind: KindUnauthenticated, Message: "Refresh token expired", Err: err}
		}
		return nil, &ServiceError{Kind: KindUnauthenticated, Message: "Invalid refresh token", Err: err}
	}
	return claims, nil
}

// UserID returns the subject as a user ID
func (c *TokenClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", c.Subject, err)
	}
	return uint(id), nil
}
