// Package jwttoken signs and verifies the session tokens handed to clients.
// A valid signature is necessary but not sufficient for access: the embedded
// session must also resolve in the session store, which keeps tokens
// server-side revocable.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "factgate/pkg/domain"
	dErrors "factgate/pkg/domain-errors"
)

// Claims are the stateless half of a session token.
type Claims struct {
	SessionID   string   `json:"session_id"`
	TenantID    string   `json:"tenant_id,omitempty"`
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// Service handles token creation and validation with a shared HMAC key.
type Service struct {
	signingKey []byte
	issuer     string
}

func New(signingKey string, issuer string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// Generate signs a token for the session. exp/iat are taken from the session
// record so the stateless claim and the stored record agree.
func (s *Service) Generate(sessionID id.SessionID, tenantID id.TenantID, userID id.UserID, permissions []string, issuedAt, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID:   sessionID.String(),
		TenantID:    tenantID.String(),
		UserID:      userID.String(),
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Validate verifies signature and expiry and returns the claims. Every
// failure mode collapses to the same unauthorized error so callers cannot
// branch on the reason.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil || !parsed.Valid {
		return nil, unauthorized()
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, unauthorized()
	}
	if _, err := id.ParseSessionID(claims.SessionID); err != nil {
		return nil, unauthorized()
	}
	if _, err := id.ParseUserID(claims.UserID); err != nil {
		return nil, unauthorized()
	}
	return claims, nil
}

func unauthorized() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
}

// IsUnauthorized reports whether err is the uniform validation failure.
func IsUnauthorized(err error) bool {
	var de *dErrors.Error
	return errors.As(err, &de) && de.Code == dErrors.CodeUnauthorized
}
