package jwttoken

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "factgate/pkg/domain"
	dErrors "factgate/pkg/domain-errors"
)

type TokenSuite struct {
	suite.Suite

	service   *Service
	sessionID id.SessionID
	userID    id.UserID
	now       time.Time
}

func TestTokenSuite(t *testing.T) {
	suite.Run(t, new(TokenSuite))
}

func (s *TokenSuite) SetupTest() {
	s.service = New("unit-test-signing-key", "factgate-test")
	s.sessionID = id.SessionID(uuid.New())
	s.userID = id.UserID(uuid.New())
	// Expiry is checked against the wall clock by the JWT library, so tokens
	// in these tests are issued relative to the real now.
	s.now = time.Now().UTC().Truncate(time.Second)
}

func (s *TokenSuite) generate(expiresAt time.Time) string {
	token, err := s.service.Generate(s.sessionID, id.TenantID("tenant_acme"), s.userID,
		[]string{"financial_facts:read"}, s.now, expiresAt)
	s.Require().NoError(err)
	return token
}

func (s *TokenSuite) TestRoundTrip() {
	token := s.generate(s.now.Add(time.Hour))

	claims, err := s.service.Validate(token)
	s.Require().NoError(err)
	s.Equal(s.sessionID.String(), claims.SessionID)
	s.Equal("tenant_acme", claims.TenantID)
	s.Equal(s.userID.String(), claims.UserID)
	s.Equal([]string{"financial_facts:read"}, claims.Permissions)
	s.Equal("factgate-test", claims.Issuer)
	s.NotEmpty(claims.ID)
}

func (s *TokenSuite) TestValidationFailures() {
	s.Run("expired token", func() {
		token := s.generate(s.now.Add(-time.Minute))
		_, err := s.service.Validate(token)
		s.True(IsUnauthorized(err))
	})

	s.Run("tampered payload", func() {
		token := s.generate(s.now.Add(time.Hour))
		parts := strings.Split(token, ".")
		s.Require().Len(parts, 3)
		tampered := parts[0] + "." + parts[1][:len(parts[1])-2] + "xx." + parts[2]
		_, err := s.service.Validate(tampered)
		s.True(IsUnauthorized(err))
	})

	s.Run("token signed with a different key", func() {
		foreign := New("some-other-key", "factgate-test")
		token, err := foreign.Generate(s.sessionID, "", s.userID, nil, s.now, s.now.Add(time.Hour))
		s.Require().NoError(err)
		_, err = s.service.Validate(token)
		s.True(IsUnauthorized(err))
	})

	s.Run("garbage input", func() {
		_, err := s.service.Validate("not-a-token")
		s.True(IsUnauthorized(err))
	})

	s.Run("failure carries no reason beyond unauthorized", func() {
		_, err := s.service.Validate("not-a-token")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.EqualError(err, "unauthorized: invalid token")
	})
}

func (s *TokenSuite) TestEmptyTenantOmitted() {
	token, err := s.service.Generate(s.sessionID, "", s.userID, nil, s.now, s.now.Add(time.Hour))
	s.Require().NoError(err)

	claims, err := s.service.Validate(token)
	s.Require().NoError(err)
	s.Empty(claims.TenantID)
}
