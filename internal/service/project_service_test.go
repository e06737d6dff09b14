package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/crewdesk/crewdesk-backend/internal/config"
	"github.com/crewdesk/crewdesk-backend/internal/notification"
	"github.com/crewdesk/crewdesk-backend/internal/repository"
	"github.com/crewdesk/crewdesk-backend/internal/types"
)

type ProjectServiceSuite struct {
	suite.Suite
	ctx   context.Context
	repos *repository.Repositories
	svc   *Services

	manager *repository.User
	leader  *repository.User
	member  *repository.User
	team    *repository.Team
}

func (s *ProjectServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.repos = repository.NewMemoryRepositories().Repositories
	notifSvc := notification.NewService(s.repos.NotificationRepo)
	s.svc = NewServices(&ServiceDeps{
		Config:   &config.Config{JWTSecret: "test-secret", JWTExpiry: 1},
		Repos:    s.repos,
		NotifSvc: notifSvc,
	})

	s.manager = s.newUser("Morgan", "morgan@x.com")
	s.leader = s.newUser("Lee", "lee@x.com")
	s.member = s.newUser("Riley", "riley@x.com")

	var err error
	s.team, err = s.svc.Team.Create(s.ctx, s.manager.ID, "Platform", types.JoinModeEither)
	s.Require().NoError(err)
	for _, u := range []*repository.User{s.leader, s.member} {
		_, err = s.svc.Team.Join(s.ctx, s.team.ID, u.ID, true)
		s.Require().NoError(err)
	}
	_, err = s.svc.Team.Promote(s.ctx, s.team.ID, s.manager.ID, s.leader.ID)
	s.Require().NoError(err)
}

func TestProjectServiceSuite(t *testing.T) {
	suite.Run(t, new(ProjectServiceSuite))
}

func (s *ProjectServiceSuite) newUser(name, email string) *repository.User {
	user := &repository.User{Name: name, Email: email, Password: "x"}
	s.Require().NoError(s.repos.UserRepo.Create(s.ctx, user))
	return user
}

func (s *ProjectServiceSuite) newProject(ownerID string, teamID *string) *repository.Project {
	project, err := s.svc.Project.Create(s.ctx, ownerID, "Launch", "beta checklist", teamID)
	s.Require().NoError(err)
	return project
}

func (s *ProjectServiceSuite) TestCreate() {
	s.Run("the owner is always a member", func() {
		project := s.newProject(s.manager.ID, &s.team.ID)
		s.True(project.HasMember(s.manager.ID))
	})

	s.Run("a dangling team reference is refused", func() {
		missing := "no-such-team"
		_, err := s.svc.Project.Create(s.ctx, s.manager.ID, "Launch", "", &missing)
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("blank names are refused", func() {
		_, err := s.svc.Project.Create(s.ctx, s.manager.ID, "   ", "", nil)
		s.Require().ErrorIs(err, ErrInvalidInput)
	})

	s.Run("a team-linked creation notifies overseers, not the creator", func() {
		s.newProject(s.manager.ID, &s.team.ID)

		mine, err := s.repos.NotificationRepo.FindByUserID(s.ctx, s.manager.ID, false)
		s.Require().NoError(err)
		s.Empty(mine, "the acting user never notifies themself")

		theirs, err := s.repos.NotificationRepo.FindByUserID(s.ctx, s.leader.ID, false)
		s.Require().NoError(err)
		s.NotEmpty(theirs)
	})
}

func (s *ProjectServiceSuite) TestListForUser() {
	linked := s.newProject(s.manager.ID, &s.team.ID)
	solo := s.newProject(s.member.ID, nil)

	s.Run("leaders see linked projects without direct membership", func() {
		projects, err := s.svc.Project.ListForUser(s.ctx, s.leader.ID)
		s.Require().NoError(err)
		s.Require().Len(projects, 1)
		s.Equal(linked.ID, projects[0].ID)
	})

	s.Run("plain members see only what they own or joined", func() {
		projects, err := s.svc.Project.ListForUser(s.ctx, s.member.ID)
		s.Require().NoError(err)
		s.Require().Len(projects, 1)
		s.Equal(solo.ID, projects[0].ID)
	})

	s.Run("no duplicates when owner and overseer coincide", func() {
		projects, err := s.svc.Project.ListForUser(s.ctx, s.manager.ID)
		s.Require().NoError(err)
		s.Len(projects, 1)
	})
}

func (s *ProjectServiceSuite) TestUpdate() {
	project := s.newProject(s.manager.ID, &s.team.ID)

	s.Run("only the owner updates", func() {
		_, err := s.svc.Project.Update(s.ctx, project.ID, s.leader.ID, "Renamed", "")
		s.Require().ErrorIs(err, ErrForbidden)

		updated, err := s.svc.Project.Update(s.ctx, project.ID, s.manager.ID, "Renamed", "")
		s.Require().NoError(err)
		s.Equal("Renamed", updated.Name)
		s.Equal("beta checklist", updated.Description, "empty fields keep old values")
	})
}

func (s *ProjectServiceSuite) TestMembership() {
	project := s.newProject(s.manager.ID, &s.team.ID)
	outsider := s.newUser("Out", "out@x.com")

	s.Run("a plain member cannot add members", func() {
		_, err := s.svc.Project.AddMember(s.ctx, project.ID, s.member.ID, s.member.ID)
		s.Require().ErrorIs(err, ErrForbidden)
	})

	s.Run("team-linked projects only take team members", func() {
		_, err := s.svc.Project.AddMember(s.ctx, project.ID, s.manager.ID, outsider.ID)
		s.Require().ErrorIs(err, ErrInvalidState)
	})

	s.Run("a leader adds a teammate", func() {
		updated, err := s.svc.Project.AddMember(s.ctx, project.ID, s.leader.ID, s.member.ID)
		s.Require().NoError(err)
		s.True(updated.HasMember(s.member.ID))

		_, err = s.svc.Project.AddMember(s.ctx, project.ID, s.leader.ID, s.member.ID)
		s.Require().ErrorIs(err, ErrAlreadyMember)
	})

	s.Run("the owner is never removable", func() {
		_, err := s.svc.Project.RemoveMember(s.ctx, project.ID, s.manager.ID, s.manager.ID)
		s.Require().ErrorIs(err, ErrForbidden)
	})

	s.Run("removal works for everyone else", func() {
		updated, err := s.svc.Project.RemoveMember(s.ctx, project.ID, s.manager.ID, s.member.ID)
		s.Require().NoError(err)
		s.False(updated.HasMember(s.member.ID))

		_, err = s.svc.Project.RemoveMember(s.ctx, project.ID, s.manager.ID, s.member.ID)
		s.Require().ErrorIs(err, ErrInvalidState)
	})
}

func (s *ProjectServiceSuite) TestAvailableTeamMembers() {
	project := s.newProject(s.manager.ID, &s.team.ID)

	s.Run("lists teammates not yet on the project", func() {
		users, err := s.svc.Project.AvailableTeamMembers(s.ctx, project.ID, s.manager.ID)
		s.Require().NoError(err)

		ids := make([]string, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		s.ElementsMatch([]string{s.leader.ID, s.member.ID}, ids)
	})

	s.Run("shrinks as members join", func() {
		_, err := s.svc.Project.AddMember(s.ctx, project.ID, s.manager.ID, s.member.ID)
		s.Require().NoError(err)

		users, err := s.svc.Project.AvailableTeamMembers(s.ctx, project.ID, s.manager.ID)
		s.Require().NoError(err)
		s.Require().Len(users, 1)
		s.Equal(s.leader.ID, users[0].ID)
	})

	s.Run("unlinked projects have no candidate pool", func() {
		solo := s.newProject(s.member.ID, nil)
		_, err := s.svc.Project.AvailableTeamMembers(s.ctx, solo.ID, s.member.ID)
		s.Require().ErrorIs(err, ErrInvalidState)
	})
}

func (s *ProjectServiceSuite) TestTags() {
	project := s.newProject(s.manager.ID, &s.team.ID)
	_, err := s.svc.Project.AddMember(s.ctx, project.ID, s.manager.ID, s.member.ID)
	s.Require().NoError(err)

	s.Run("managers create tags, members only list them", func() {
		_, err := s.svc.Project.CreateTag(s.ctx, project.ID, s.member.ID, "infra", nil)
		s.Require().ErrorIs(err, ErrForbidden)

		tag, err := s.svc.Project.CreateTag(s.ctx, project.ID, s.leader.ID, "infra", nil)
		s.Require().NoError(err)

		tags, err := s.svc.Project.ListTags(s.ctx, project.ID, s.member.ID)
		s.Require().NoError(err)
		s.Require().Len(tags, 1)
		s.Equal(tag.ID, tags[0].ID)
	})

	s.Run("tag names are unique case-insensitively", func() {
		_, err := s.svc.Project.CreateTag(s.ctx, project.ID, s.manager.ID, "INFRA", nil)
		s.Require().ErrorIs(err, ErrConflict)
	})

	s.Run("deleting a foreign tag is a not-found", func() {
		other := s.newProject(s.manager.ID, nil)
		foreign, err := s.svc.Project.CreateTag(s.ctx, other.ID, s.manager.ID, "misc", nil)
		s.Require().NoError(err)

		err = s.svc.Project.DeleteTag(s.ctx, project.ID, s.manager.ID, foreign.ID)
		s.Require().ErrorIs(err, ErrNotFound)
	})
}

func (s *ProjectServiceSuite) TestDeleteCascade() {
	project := s.newProject(s.manager.ID, &s.team.ID)
	tag, err := s.svc.Project.CreateTag(s.ctx, project.ID, s.manager.ID, "infra", nil)
	s.Require().NoError(err)
	task, err := s.svc.Task.Create(s.ctx, project.ID, s.manager.ID, CreateTaskInput{Title: "Ship it"})
	s.Require().NoError(err)
	_, err = s.svc.Task.AddComment(s.ctx, task.ID, s.manager.ID, "note")
	s.Require().NoError(err)

	s.Run("only the owner deletes", func() {
		err := s.svc.Project.Delete(s.ctx, project.ID, s.leader.ID)
		s.Require().ErrorIs(err, ErrForbidden)
	})

	s.Run("children go with the project", func() {
		s.Require().NoError(s.svc.Project.Delete(s.ctx, project.ID, s.manager.ID))

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
