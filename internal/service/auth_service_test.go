package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/crewdesk/crewdesk-backend/internal/config"
	"github.com/crewdesk/crewdesk-backend/internal/repository"
)

type AuthServiceSuite struct {
	suite.Suite
	ctx  context.Context
	auth AuthService
}

func (s *AuthServiceSuite) SetupTest() {
	s.ctx = context.Background()
	repos := repository.NewMemoryRepositories().Repositories
	s.auth = NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: 1}, repos.UserRepo)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) TestRegister() {
	s.Run("returns the user with a usable token", func() {
		user, token, err := s.auth.Register(s.ctx, "Morgan", "Morgan@X.com", "password123")
		s.Require().NoError(err)
		s.Equal("morgan@x.com", user.Email, "email is normalized")
		s.NotEqual("password123", user.Password, "password is hashed")

		parsed, err := s.auth.ValidateToken(token)
		s.Require().NoError(err)
		userID, err := s.auth.GetUserIDFromToken(parsed)
		s.Require().NoError(err)
		s.Equal(user.ID, userID)
	})

	s.Run("rejects duplicate emails case-insensitively", func() {
		_, _, err := s.auth.Register(s.ctx, "Other", "MORGAN@x.com", "password123")
		s.Require().ErrorIs(err, ErrUserExists)
		s.ErrorIs(err, ErrConflict)
	})

	s.Run("rejects short passwords", func() {
		_, _, err := s.auth.Register(s.ctx, "Short", "short@x.com", "tiny")
		s.Require().ErrorIs(err, ErrInvalidInput)
	})
}

func (s *AuthServiceSuite) TestLogin() {
	_, _, err := s.auth.Register(s.ctx, "Morgan", "morgan@x.com", "password123")
	s.Require().NoError(err)

	s.Run("valid credentials return a token", func() {
		user, token, err := s.auth.Login(s.ctx, "morgan@x.com", "password123")
		s.Require().NoError(err)
		s.NotEmpty(token)
		s.Equal("morgan@x.com", user.Email)
	})

	s.Run("a wrong password and an unknown email fail alike", func() {
		_, _, err := s.auth.Login(s.ctx, "morgan@x.com", "wrong-password")
		s.Require().ErrorIs(err, ErrInvalidCredentials)

		_, _, err = s.auth.Login(s.ctx, "nobody@x.com", "password123")
		s.Require().ErrorIs(err, ErrInvalidCredentials)
	})
}

func (s *AuthServiceSuite) TestValidateToken() {
	s.Run("garbage tokens fail", func() {
		_, err := s.auth.ValidateToken("not-a-token")
		s.Error(err)
	})

	s.Run("tokens signed with another secret fail", func() {
		repos := repository.NewMemoryRepositories().Repositories
		other := NewAuthService(&config.Config{JWTSecret: "different", JWTExpiry: 1}, repos.UserRepo)
		_, token, err := other.Register(s.ctx, "Eve", "eve@x.com", "password123")
		s.Require().NoError(err)

		_, err = s.auth.ValidateToken(token)
		s.Error(err)
	})
}
