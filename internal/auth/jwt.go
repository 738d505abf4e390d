// Package auth issues and verifies the HMAC-signed JWTs guarding the data
// endpoints.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"workmate/internal/config"
)

// ErrNoSecret means the manager was built without a signing secret.
var ErrNoSecret = errors.New("jwt secret not configured")

var signingMethods = map[string]jwt.SigningMethod{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// Claims are the verified contents of an access token.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Manager issues and verifies access tokens with the configured HMAC method.
type Manager struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

// NewManager builds a token manager from the settings. Only HMAC signing
// methods are supported; anything else is rejected up front.
func NewManager(settings *config.Settings) (*Manager, error) {
	method, ok := signingMethods[settings.JWTAlgorithm]
	if !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm: %s", settings.JWTAlgorithm)
	}
	return &Manager{
		secret: []byte(settings.JWTSecret),
		method: method,
		ttl:    time.Duration(settings.JWTExpireMinutes) * time.Minute,
	}, nil
}

// Issue signs a token for the given subject.
func (m *Manager) Issue(subject string) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}
	expiresAt := time.Now().Add(m.ttl)
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(m.method, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token, returning its claims.
func (m *Manager) Verify(tokenString string) (Claims, error) {
	if len(m.secret) == 0 {
		return Claims{}, ErrNoSecret
	}
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	expValue, _ := claims["exp"].(float64)
	return Claims{Subject: sub, ExpiresAt: time.Unix(int64(expValue), 0)}, nil
}

// Middleware rejects requests without a valid Bearer token. The verified
// subject is stored in the gin context under "subject".
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "missing bearer token",
			})
			return
		}
		claims, err := m.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid token",
			})
			return
		}
		c.Set("subject", claims.Subject)
		c.Next()
	}
}
