package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fire-news/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ModeratorKey is the gin context key holding the moderator identity
const ModeratorKey = "moderator_id"

// ErrNoSecret is returned when tokens are requested without a signing key
var ErrNoSecret = errors.New("auth: moderator signing secret is not configured")

// TokenValidator resolves a bearer header to a moderator identity
type TokenValidator interface {
	ValidateToken(authHeader string) (string, bool)
}

// JWTVerifier signs and verifies HMAC moderator tokens
type JWTVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTVerifier creates a verifier for the given secret and issuer
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// Issue mints a token whose subject is the moderator identity
func (v *JWTVerifier) Issue(moderatorID string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNoSecret
	}
	moderatorID = strings.TrimSpace(moderatorID)
	if moderatorID == "" {
		return "", fmt.Errorf("auth: moderator id is required")
	}

	now := v.now()
	claims := jwt.RegisteredClaims{
		Subject:   moderatorID,
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// ExtractModeratorFromToken verifies the token and returns its subject
func (v *JWTVerifier) ExtractModeratorFromToken(tokenString string) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNoSecret
	}
	// Remove "Bearer " prefix if present
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to verify token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("token is not valid")
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", fmt.Errorf("no sub claim in token")
	}
	return sub, nil
}

// ValidateToken is a middleware-friendly function that validates a JWT token
func (v *JWTVerifier) ValidateToken(authHeader string) (string, bool) {
	if authHeader == "" {
		return "", false
	}

	moderator, err := v.ExtractModeratorFromToken(authHeader)
	if err != nil {
		logging.Logger.Debug().Err(err).Msg("moderator token rejected")
		return "", false
	}
	return moderator, true
}

// RequireModerator rejects requests without a valid bearer token and
// stores the moderator identity under ModeratorKey.
func RequireModerator(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			// browsers cannot set headers on websocket upgrades
			if token := c.Query("access_token"); token != "" {
				header = "Bearer " + token
			}
		}
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Moderator token required"})
			return
		}

		moderator, ok := v.ValidateToken(header)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid moderator token"})
			return
		}

		c.Set(ModeratorKey, moderator)
		c.Next()
	}
}

// ModeratorID returns the identity set by RequireModerator
func ModeratorID(c *gin.Context) string {
	return c.GetString(ModeratorKey)
}
