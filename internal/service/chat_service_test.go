package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/crewdesk/crewdesk-backend/internal/config"
	"github.com/crewdesk/crewdesk-backend/internal/notification"
	"github.com/crewdesk/crewdesk-backend/internal/repository"
	"github.com/crewdesk/crewdesk-backend/internal/types"
)

type ChatServiceSuite struct {
	suite.Suite
	ctx   context.Context
	repos *repository.Repositories
	svc   *Services

	manager  *repository.User
	member   *repository.User
	outsider *repository.User
	team     *repository.Team
}

func (s *ChatServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.repos = repository.NewMemoryRepositories().Repositories
	notifSvc := notification.NewService(s.repos.NotificationRepo)
	s.svc = NewServices(&ServiceDeps{
		Config:   &config.Config{JWTSecret: "test-secret", JWTExpiry: 1},
		Repos:    s.repos,
		NotifSvc: notifSvc,
	})

	s.manager = s.newUser("Morgan", "morgan@x.com")
	s.member = s.newUser("Riley", "riley@x.com")
	s.outsider = s.newUser("Out", "out@x.com")

	var err error
	s.team, err = s.svc.Team.Create(s.ctx, s.manager.ID, "Platform", types.JoinModeEither)
	s.Require().NoError(err)
	_, err = s.svc.Team.Join(s.ctx, s.team.ID, s.member.ID, true)
	s.Require().NoError(err)
}

func TestChatServiceSuite(t *testing.T) {
	suite.Run(t, new(ChatServiceSuite))
}

func (s *ChatServiceSuite) newUser(name, email string) *repository.User {
	user := &repository.User{Name: name, Email: email, Password: "x"}
	s.Require().NoError(s.repos.UserRepo.Create(s.ctx, user))
	return user
}

func (s *ChatServiceSuite) post(userID, content string) map[string]interface{} {
	payload, err := s.svc.Chat.SaveChannelMessage(s.ctx, userID, types.ChannelTeam, s.team.ID, content)
	s.Require().NoError(err)
	// memory timestamps need to differ for ordering assertions
	time.Sleep(time.Millisecond)
	return payload
}

func (s *ChatServiceSuite) TestVerifyChannelAccess() {
	s.Run("team members pass", func() {
		s.Require().NoError(s.svc.Chat.VerifyChannelAccess(s.ctx, s.member.ID, types.ChannelTeam, s.team.ID))
	})

	s.Run("outsiders are refused", func() {
		err := s.svc.Chat.VerifyChannelAccess(s.ctx, s.outsider.ID, types.ChannelTeam, s.team.ID)
		s.Require().ErrorIs(err, ErrForbidden)
	})

	s.Run("unknown channel types are refused", func() {
		err := s.svc.Chat.VerifyChannelAccess(s.ctx, s.manager.ID, "workspace", s.team.ID)
		s.Require().ErrorIs(err, ErrInvalidInput)
	})
}

func (s *ChatServiceSuite) TestSaveChannelMessage() {
	s.Run("a member's message is persisted with a resolved payload", func() {
		payload := s.post(s.member.ID, "hello team")
		s.Equal("hello team", payload["content"])
		s.Equal(s.member.ID, payload["senderId"])
		s.Equal("Riley", payload["senderName"])
		s.Equal(types.ChannelTeam, payload["channelType"])

		stored, err := s.repos.MessageRepo.FindRecent(s.ctx, types.ChannelTeam, s.team.ID, 10)
		s.Require().NoError(err)
		s.Require().Len(stored, 1)
		s.Equal("hello team", stored[0].Content)
	})

	s.Run("an outsider's message never reaches storage", func() {
		_, err := s.svc.Chat.SaveChannelMessage(s.ctx, s.outsider.ID, types.ChannelTeam, s.team.ID, "let me in")
		s.Require().ErrorIs(err, ErrForbidden)

		stored, err := s.repos.MessageRepo.FindRecent(s.ctx, types.ChannelTeam, s.team.ID, 10)
		s.Require().NoError(err)
		s.Len(stored, 1)
	})

	s.Run("blank content is refused", func() {
		_, err := s.svc.Chat.SaveChannelMessage(s.ctx, s.member.ID, types.ChannelTeam, s.team.ID, "   ")
		s.Require().ErrorIs(err, ErrInvalidInput)
	})
}

func (s *ChatServiceSuite) TestRecentChannelMessages() {
	s.post(s.manager.ID, "first")
	s.post(s.member.ID, "second")
	s.post(s.manager.ID, "third")

	s.Run("replay is chronological with sender names", func() {
		payloads, err := s.svc.Chat.RecentChannelMessages(s.ctx, types.ChannelTeam, s.team.ID, 50)
		s.Require().NoError(err)
		s.Require().Len(payloads, 3)
		s.Equal("first", payloads[0]["content"])
		s.Equal("third", payloads[2]["content"])
		s.Equal("Morgan", payloads[0]["senderName"])
		s.Equal("Riley", payloads[1]["senderName"])
	})

	s.Run("the limit keeps the newest messages", func() {
		payloads, err := s.svc.Chat.RecentChannelMessages(s.ctx, types.ChannelTeam, s.team.ID, 2)
		s.Require().NoError(err)
		s.Require().Len(payloads, 2)
		s.Equal("second", payloads[0]["content"])
		s.Equal("third", payloads[1]["content"])
	})
}

func (s *ChatServiceSuite) TestHistory() {
	s.post(s.manager.ID, "first")
	s.post(s.member.ID, "second")
	s.post(s.manager.ID, "third")

	s.Run("newest first with paging", func() {
		page, err := s.svc.Chat.History(s.ctx, s.member.ID, types.ChannelTeam, s.team.ID, 2, 0)
		s.Require().NoError(err)
		s.Require().Len(page, 2)
		s.Equal("third", page[0].Content)
		s.Equal("second", page[1].Content)

		rest, err := s.svc.Chat.History(s.ctx, s.member.ID, types.ChannelTeam, s.team.ID, 2, 2)
		s.Require().NoError(err)
		s.Require().Len(rest, 1)
		s.Equal("first", rest[0].Content)
	})

	s.Run("access is guarded like the live channel", func() {
		_, err := s.svc.Chat.History(s.ctx, s.outsider.ID, types.ChannelTeam, s.team.ID, 10, 0)
		s.Require().ErrorIs(err, ErrForbidden)
	})
}
