package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/crewdesk/crewdesk-backend/internal/config"
	"github.com/crewdesk/crewdesk-backend/internal/notification"
	"github.com/crewdesk/crewdesk-backend/internal/repository"
	"github.com/crewdesk/crewdesk-backend/internal/types"
)

type TeamServiceSuite struct {
	suite.Suite
	ctx   context.Context
	repos *repository.Repositories
	svc   *Services
}

func (s *TeamServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.repos = repository.NewMemoryRepositories().Repositories
	notifSvc := notification.NewService(s.repos.NotificationRepo)
	s.svc = NewServices(&ServiceDeps{
		Config:   &config.Config{JWTSecret: "test-secret", JWTExpiry: 1},
		Repos:    s.repos,
		NotifSvc: notifSvc,
	})
}

func TestTeamServiceSuite(t *testing.T) {
	suite.Run(t, new(TeamServiceSuite))
}

func (s *TeamServiceSuite) newUser(name, email string) *repository.User {
	user := &repository.User{Name: name, Email: email, Password: "x"}
	s.Require().NoError(s.repos.UserRepo.Create(s.ctx, user))
	return user
}

func (s *TeamServiceSuite) newTeam(managerID string, mode types.JoinMode) *repository.Team {
	team, err := s.svc.Team.Create(s.ctx, managerID, "Platform", mode)
	s.Require().NoError(err)
	return team
}

func (s *TeamServiceSuite) TestCreate() {
	manager := s.newUser("Morgan", "morgan@x.com")
	team := s.newTeam(manager.ID, types.JoinModeEither)

	s.Equal(manager.ID, team.ManagerID)
	s.True(team.HasMember(manager.ID), "manager is auto-added as member")
	s.Empty(team.LeaderIDs)
}

func (s *TeamServiceSuite) TestInviteAndJoin() {
	manager := s.newUser("Morgan", "morgan@x.com")
	userA := s.newUser("Ada", "a@x.com")
	userB := s.newUser("Bram", "b@x.com")
	team := s.newTeam(manager.ID, types.JoinModeEither)

	s.Run("only the manager may invite", func() {
		_, err := s.svc.Team.Invite(s.ctx, team.ID, userA.ID, "a@x.com")
		s.Require().ErrorIs(err, ErrForbidden)
	})

	s.Run("invited user joins and the invite is consumed", func() {
		_, err := s.svc.Team.Invite(s.ctx, team.ID, manager.ID, "A@X.com")
		s.Require().NoError(err)

		joined, err := s.svc.Team.Join(s.ctx, team.ID, userA.ID, false)
		s.Require().NoError(err)
		s.True(joined.HasMember(userA.ID))
		s.Empty(joined.InviteEmails)
	})

	s.Run("uninvited join without code is rejected", func() {
		_, err := s.svc.Team.Join(s.ctx, team.ID, userB.ID, false)
		s.Require().ErrorIs(err, ErrNotInvited)
		s.ErrorIs(err, ErrForbidden)
	})

	s.Run("uninvited join by code succeeds", func() {
		joined, err := s.svc.Team.Join(s.ctx, team.ID, userB.ID, true)
		s.Require().NoError(err)
		s.True(joined.HasMember(userB.ID))
	})

	s.Run("joining twice is rejected", func() {
		_, err := s.svc.Team.Join(s.ctx, team.ID, userB.ID, true)
		s.Require().ErrorIs(err, ErrAlreadyMember)
	})
}

func (s *TeamServiceSuite) TestJoinModeOnlyEmail() {
	manager := s.newUser("Morgan", "morgan@x.com")
	invited := s.newUser("Ada", "a@x.com")
	team := s.newTeam(manager.ID, types.JoinModeOnlyEmail)

	_, err := s.svc.Team.Invite(s.ctx, team.ID, manager.ID, "a@x.com")
	s.Require().NoError(err)

	// ONLY_EMAIL closes self-join entirely, invite or not
	_, err = s.svc.Team.Join(s.ctx, team.ID, invited.ID, false)
	s.Require().ErrorIs(err, ErrJoinClosed)

	_, err = s.svc.Team.Join(s.ctx, team.ID, invited.ID, true)
	s.Require().ErrorIs(err, ErrJoinClosed)
}

func (s *TeamServiceSuite) TestCapacity() {
	manager := s.newUser("Morgan", "morgan@x.com")
	team := s.newTeam(manager.ID, types.JoinModeEither)

	for i := 0; i < maxTeamMembers-1; i++ {
		u := s.newUser(fmt.Sprintf("User%d", i), fmt.Sprintf("u%d@x.com", i))
		_, err := s.svc.Team.Join(s.ctx, team.ID, u.ID, true)
		s.Require().NoError(err)
	}

	extra := s.newUser("Extra", "extra@x.com")
	_, err := s.svc.Team.Join(s.ctx, team.ID, extra.ID, true)
	s.Require().ErrorIs(err, ErrTeamFull)
	s.ErrorIs(err, ErrInvalidState)

	current, err := s.repos.TeamRepo.FindByID(s.ctx, team.ID)
	s.Require().NoError(err)
	s.Len(current.MemberIDs, maxTeamMembers)
}

func (s *TeamServiceSuite) TestPromoteAndDemote() {
	manager := s.newUser("Morgan", "morgan@x.com")
	member := s.newUser("Ada", "a@x.com")
	outsider := s.newUser("Out", "out@x.com")
	team := s.newTeam(manager.ID, types.JoinModeEither)
	_, err := s.svc.Team.Join(s.ctx, team.ID, member.ID, true)
	s.Require().NoError(err)

	s.Run("only the manager promotes", func() {
		_, err := s.svc.Team.Promote(s.ctx, team.ID, member.ID, member.ID)
		s.Require().ErrorIs(err, ErrForbidden)
	})

	s.Run("promoting a non-member fails", func() {
		_, err := s.svc.Team.Promote(s.ctx, team.ID, manager.ID, outsider.ID)
		s.Require().ErrorIs(err, ErrInvalidState)
	})

	s.Run("the manager cannot promote themself", func() {
		_, err := s.svc.Team.Promote(s.ctx, team.ID, manager.ID, manager.ID)
		s.Require().ErrorIs(err, ErrSelfTarget)
	})

	s.Run("promote then demote round-trips", func() {
		promoted, err := s.svc.Team.Promote(s.ctx, team.ID, manager.ID, member.ID)
		s.Require().NoError(err)
		s.True(promoted.HasLeader(member.ID))

		_, err = s.svc.Team.Promote(s.ctx, team.ID, manager.ID, member.ID)
		s.Require().ErrorIs(err, ErrInvalidState, "double promote rejected")

		demoted, err := s.svc.Team.Demote(s.ctx, team.ID, manager.ID, member.ID)
		s.Require().NoError(err)
		s.False(demoted.HasLeader(member.ID))
		s.True(demoted.HasMember(member.ID), "demote keeps membership")
	})

	s.Run("leaders are always members", func() {
		promoted, err := s.svc.Team.Promote(s.ctx, team.ID, manager.ID, member.ID)
		s.Require().NoError(err)
		for _, leaderID := range promoted.LeaderIDs {
			s.True(promoted.HasMember(leaderID))
		}
	})
}

func (s *TeamServiceSuite) TestLeave() {
	manager := s.newUser("Morgan", "morgan@x.com")
	leader := s.newUser("Lee", "lee@x.com")
	team := s.newTeam(manager.ID, types.JoinModeEither)
	_, err := s.svc.Team.Join(s.ctx, team.ID, leader.ID, true)
	s.Require().NoError(err)
	_, err = s.svc.Team.Promote(s.ctx, team.ID, manager.ID, leader.ID)
	s.Require().NoError(err)

	s.Run("the manager may never leave", func() {
		err := s.svc.Team.Leave(s.ctx, team.ID, manager.ID)
		s.Require().ErrorIs(err, ErrManagerImmutable)
	})

	s.Run("leave removes membership but keeps the leader flag", func() {
		s.Require().NoError(s.svc.Team.Leave(s.ctx, team.ID, leader.ID))

		current, err := s.repos.TeamRepo.FindByID(s.ctx, team.ID)
		s.Require().NoError(err)
		s.False(current.HasMember(leader.ID))
		s.True(current.HasLeader(leader.ID))
	})

	s.Run("leaving twice fails", func() {
		err := s.svc.Team.Leave(s.ctx, team.ID, leader.ID)
		s.Require().ErrorIs(err, ErrInvalidState)
	})
}

func (s *TeamServiceSuite) TestKick() {
	manager := s.newUser("Morgan", "morgan@x.com")
	leaderA := s.newUser("Lee", "lee@x.com")
	leaderB := s.newUser("Lena", "lena@x.com")
	member := s.newUser("Riley", "riley@x.com")
	team := s.newTeam(manager.ID, types.JoinModeEither)
	for _, u := range []*repository.User{leaderA, leaderB, member} {
		_, err := s.svc.Team.Join(s.ctx, team.ID, u.ID, true)
		s.Require().NoError(err)
	}
	for _, u := range []*repository.User{leaderA, leaderB} {
		_, err := s.svc.Team.Promote(s.ctx, team.ID, manager.ID, u.ID)
		s.Require().NoError(err)
	}

	s.Run("nobody kicks the manager", func() {
		_, err := s.svc.Team.Kick(s.ctx, team.ID, leaderA.ID, manager.ID)
		s.Require().ErrorIs(err, ErrManagerImmutable)
	})

	s.Run("nobody kicks themself", func() {
		_, err := s.svc.Team.Kick(s.ctx, team.ID, leaderA.ID, leaderA.ID)
		s.Require().ErrorIs(err, ErrSelfTarget)
	})

	s.Run("a member cannot kick", func() {
		_, err := s.svc.Team.Kick(s.ctx, team.ID, member.ID, leaderA.ID)
		s.Require().ErrorIs(err, ErrForbidden)
	})

	s.Run("a leader cannot kick another leader", func() {
		_, err := s.svc.Team.Kick(s.ctx, team.ID, leaderA.ID, leaderB.ID)
		s.Require().ErrorIs(err, ErrForbidden)
	})

	s.Run("a leader kicks a plain member", func() {
		updated, err := s.svc.Team.Kick(s.ctx, team.ID, leaderA.ID, member.ID)
		s.Require().NoError(err)
		s.False(updated.HasMember(member.ID))
	})

	s.Run("the manager kicks a leader and the flag is cleared", func() {
		updated, err := s.svc.Team.Kick(s.ctx, team.ID, manager.ID, leaderB.ID)
		s.Require().NoError(err)
		s.False(updated.HasMember(leaderB.ID))
		s.False(updated.HasLeader(leaderB.ID))
	})
}

func (s *TeamServiceSuite) TestDeleteCascade() {
	manager := s.newUser("Morgan", "morgan@x.com")
	member := s.newUser("Riley", "riley@x.com")
	team := s.newTeam(manager.ID, types.JoinModeEither)
	_, err := s.svc.Team.Join(s.ctx, team.ID, member.ID, true)
	s.Require().NoError(err)

	project, err := s.svc.Project.Create(s.ctx, manager.ID, "Launch", "", &team.ID)
	s.Require().NoError(err)
	tag, err := s.svc.Project.CreateTag(s.ctx, project.ID, manager.ID, "infra", nil)
	s.Require().NoError(err)
	task, err := s.svc.Task.Create(s.ctx, project.ID, manager.ID, CreateTaskInput{Title: "Ship it"})
	s.Require().NoError(err)
	_, err = s.svc.Task.AddComment(s.ctx, task.ID, manager.ID, "on it")
	s.Require().NoError(err)

	s.Run("only the manager deletes the team", func() {
		err := s.svc.Team.Delete(s.ctx, team.ID, member.ID)
		s.Require().ErrorIs(err, ErrForbidden)
	})

	s.Run("delete cascades through projects, tasks, tags and comments", func() {
		s.Require().NoError(s.svc.Team.Delete(s.ctx, team.ID, manager.ID))

		gone, err := s.repos.TeamRepo.FindByID(s.ctx, team.ID)
		s.Require().NoError(err)
		s.Nil(gone)

		p, err := s.repos.ProjectRepo.FindByID(s.ctx, project.ID)
		s.Require().NoError(err)
		s.Nil(p)

		t, err := s.repos.TaskRepo.FindByID(s.ctx, task.ID)
		s.Require().NoError(err)
		s.Nil(t)

		tg, err := s.repos.TagRepo.FindByID(s.ctx, tag.ID)
		s.Require().NoError(err)
		s.Nil(tg)

		comments, err := s.repos.CommentRepo.FindByTaskID(s.ctx, task.ID)
		s.Require().NoError(err)
		s.Empty(comments)
	})
}
