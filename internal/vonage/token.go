package vonage

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// RolePublisher allows publishing streams into the session.
	RolePublisher = "publisher"

	// clientTokenTTL matches the 7-day expiry the frontend expects.
	clientTokenTTL = 7 * 24 * time.Hour
	// projectJWTTTL is the provider's maximum for API auth tokens.
	projectJWTTTL = 3 * time.Minute
)

// GenerateToken issues a client token for connecting to a session.
func (c *Client) GenerateToken(sessionID, role string) (string, error) {
	if role == "" {
		role = RolePublisher
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":        c.apiKey,
		"ist":        "project",
		"session_id": sessionID,
		"role":       role,
		"scope":      "session.connect",
		"iat":        now.Unix(),
		"exp":        now.Add(clientTokenTTL).Unix(),
		"jti":        uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.secret))
}

// projectJWT signs a short-lived JWT for authenticating REST API calls.
func (c *Client) projectJWT() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": c.apiKey,
		"ist": "project",
		"iat": now.Unix(),
		"exp": now.Add(projectJWTTTL).Unix(),
		"jti": uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.secret))
}
