package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/crewdesk/crewdesk-backend/internal/repository"
)

// ============================================
// User Service
// ============================================

type UserService interface {
	Get(ctx context.Context, userID string) (*repository.User, error)
	GetByEmail(ctx context.Context, email string) (*repository.User, error)
	Search(ctx context.Context, query string, limit int) ([]*repository.User, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) Get(ctx context.Context, userID string) (*repository.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *userService) Search(ctx context.Context, query string, limit int) ([]*repository.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*repository.User{}, nil
	}
	return s.userRepo.Search(ctx, query, limit)
}
