package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/crewdesk/crewdesk-backend/internal/repository"
	"github.com/crewdesk/crewdesk-backend/internal/types"
)

// ============================================
// Chat Service
// ============================================

// ChatService guards and persists channel traffic. It satisfies
// socket.ChatGateway, so the hub's clients route every join and post
// through the same authorization engine as the REST surface.
type ChatService interface {
	VerifyChannelAccess(ctx context.Context, userID, channelType, channelID string) error
	RecentChannelMessages(ctx context.Context, channelType, channelID string, limit int) ([]map[string]interface{}, error)
	SaveChannelMessage(ctx context.Context, userID, channelType, channelID, content string) (map[string]interface{}, error)

	History(ctx context.Context, userID, channelType, channelID string, limit, offset int) ([]*repository.Message, error)
}

type chatService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	permissions PermissionService
}

func NewChatService(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	permissions PermissionService,
) ChatService {
	return &chatService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		permissions: permissions,
	}
}

func (s *chatService) VerifyChannelAccess(ctx context.Context, userID, channelType, channelID string) error {
	if !types.IsValidChannelType(channelType) {
		return fmt.Errorf("%w: unknown channel type %q", ErrInvalidInput, channelType)
	}
	ok, err := s.permissions.CanAccessChannel(ctx, userID, channelType, channelID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// RecentChannelMessages returns the newest messages in chronological
// order with sender names resolved, ready for private replay to a
// joining session.
func (s *chatService) RecentChannelMessages(ctx context.Context, channelType, channelID string, limit int) ([]map[string]interface{}, error) {
	messages, err := s.messageRepo.FindRecent(ctx, channelType, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	// storage order is newest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	names, err := s.senderNames(ctx, messages)
	if err != nil {
		return nil, err
	}

	payloads := make([]map[string]interface{}, 0, len(messages))
	for _, m := range messages {
		payloads = append(payloads, messagePayload(m, names[m.SenderID]))
	}
	return payloads, nil
}

func (s *chatService) SaveChannelMessage(ctx context.Context, userID, channelType, channelID, content string) (map[string]interface{}, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrInvalidInput)
	}
	if err := s.VerifyChannelAccess(ctx, userID, channelType, channelID); err != nil {
		return nil, err
	}

	message := &repository.Message{
		ChannelType: channelType,
		ChannelID:   channelID,
		SenderID:    userID,
		Content:     content,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	sender, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sender: %w", err)
	}
	name := ""
	if sender != nil {
		name = sender.Name
	}
	return messagePayload(message, name), nil
}

// History is the REST view of a channel, newest first with paging.
func (s *chatService) History(ctx context.Context, userID, channelType, channelID string, limit, offset int) ([]*repository.Message, error) {
	if err := s.VerifyChannelAccess(ctx, userID, channelType, channelID); err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.FindByChannel(ctx, channelType, channelID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return messages, nil
}

func (s *chatService) senderNames(ctx context.Context, messages []*repository.Message) (map[string]string, error) {
	ids := make([]string, 0, len(messages))
	seen := make(map[string]bool, len(messages))
	for _, m := range messages {
		if !seen[m.SenderID] {
			seen[m.SenderID] = true
			ids = append(ids, m.SenderID)
		}
	}
	users, err := s.userRepo.FindAllByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load senders: %w", err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}

func messagePayload(m *repository.Message, senderName string) map[string]interface{} {
	return map[string]interface{}{
		"id":          m.ID,
		"channelType": m.ChannelType,
		"channelId":   m.ChannelID,
		"senderId":    m.SenderID,
		"senderName":  senderName,
		"content":     m.Content,
		"createdAt":   m.CreatedAt,
	}
}
