package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/kendall-kelly/hostel-management-api/models"
	"github.com/kendall-kelly/hostel-management-api/services"
)

// AccessTokenCookie and RefreshTokenCookie name the cookies the tokens are set in
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// Keys under which the authenticated identity is stored in the Gin context
const (
	ContextUserID      = "user_id"
	ContextRole        = "role"
	ContextTokenID     = "token_id"
	ContextTokenExpiry = "token_expiry"
	ContextClaims      = "validated_claims"
)

// CustomClaims contains the custom data carried in our access tokens.
type CustomClaims struct {
	Role string `json:"role"`
}

// Validate rejects tokens that carry an unknown role.
func (c *CustomClaims) Validate(ctx context.Context) error {
	if !models.ValidRole(c.Role) {
		return fmt.Errorf("unknown role %q", c.Role)
	}
	return nil
}

// cookieOrHeaderExtractor reads the access token cookie first and falls back
// to the Authorization header
func cookieOrHeaderExtractor(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return jwtmiddleware.AuthHeaderTokenExtractor(r)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(gin.H{"error": message}); err != nil {
		config.Errorf("Failed to write error response: %v", err)
	}
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
// Tokens are HS256, signed with cfg.JWTSecret, and must not have been
// revoked by logout.
func EnsureValidToken(cfg *config.Config) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)

	jwtValidator, err := validator.New(
		func(ctx context.Context) (interface{}, error) {
			return secret, nil
		},
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		config.Errorf("Failed to set up the jwt validator: %v", err)
		panic(err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			writeJSONError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		config.Debugf("Encountered error while validating JWT: %v", err)
		writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
		jwtmiddleware.WithTokenExtractor(cookieOrHeaderExtractor),
	)

	return func(c *gin.Context) {
		authenticated := false

		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			userID, err := strconv.ParseUint(claims.RegisteredClaims.Subject, 10, 64)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			custom, _ := claims.CustomClaims.(*CustomClaims)
			if custom == nil {
				writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			tokenID := claims.RegisteredClaims.ID
			if tokenID != "" {
				revoked, err := services.GetRevocationStore().IsRevoked(r.Context(), tokenID)
				if err != nil {
					// the revocation store being down must not lock every user out
					config.Warnf("Token revocation check failed: %v", err)
				} else if revoked {
					writeJSONError(w, http.StatusUnauthorized, "Token has been revoked")
					return
				}
			}

			c.Set(ContextUserID, uint(userID))
			c.Set(ContextRole, custom.Role)
			c.Set(ContextTokenID, tokenID)
			c.Set(ContextTokenExpiry, time.Unix(claims.RegisteredClaims.Expiry, 0))
			c.Set(ContextClaims, claims)

			authenticated = true
			c.Request = r
			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)

		if !authenticated {
			c.Abort()
		}
	}
}

// GetUserID extracts the authenticated user ID from the Gin context
func GetUserID(c *gin.Context) (uint, error) {
	userID, exists := c.Get(ContextUserID)
	if !exists {
		return 0, &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	id, ok := userID.(uint)
	if !ok {
		return 0, &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a number"}
	}

	return id, nil
}

// GetRole returns the authenticated user's role, or "" when unauthenticated
func GetRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}

// GetTokenID returns the ID and expiry of the access token on the request
func GetTokenID(c *gin.Context) (string, time.Time) {
	expiry, _ := c.Get(ContextTokenExpiry)
	exp, _ := expiry.(time.Time)
	return c.GetString(ContextTokenID), exp
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(ContextClaims)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
