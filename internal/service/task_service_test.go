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

type TaskServiceSuite struct {
	suite.Suite
	ctx   context.Context
	repos *repository.Repositories
	svc   *Services

	manager *repository.User
	leader  *repository.User
	member  *repository.User
	team    *repository.Team
	project *repository.Project
}

func (s *TaskServiceSuite) SetupTest() {
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

	s.project, err = s.svc.Project.Create(s.ctx, s.manager.ID, "Launch", "", &s.team.ID)
	s.Require().NoError(err)
	_, err = s.svc.Project.AddMember(s.ctx, s.project.ID, s.manager.ID, s.member.ID)
	s.Require().NoError(err)
}

func TestTaskServiceSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceSuite))
}

func (s *TaskServiceSuite) newUser(name, email string) *repository.User {
	user := &repository.User{Name: name, Email: email, Password: "x"}
	s.Require().NoError(s.repos.UserRepo.Create(s.ctx, user))
	return user
}

func (s *TaskServiceSuite) newTask(title string, assignees ...string) *repository.Task {
	task, err := s.svc.Task.Create(s.ctx, s.project.ID, s.manager.ID, CreateTaskInput{
		Title:       title,
		AssigneeIDs: assignees,
	})
	s.Require().NoError(err)
	return task
}

func strPtr(v string) *string { return &v }

func (s *TaskServiceSuite) TestCreate() {
	s.Run("defaults are applied", func() {
		task := s.newTask("Ship it")
		s.Equal(types.StatusTodo, task.Status)
		s.Equal(types.PriorityMedium, task.Priority)
	})

	s.Run("any project member may create tasks", func() {
		task, err := s.svc.Task.Create(s.ctx, s.project.ID, s.member.ID, CreateTaskInput{Title: "Member work"})
		s.Require().NoError(err)
		s.Equal(s.member.ID, task.CreatedBy)
	})

	s.Run("a team leader without direct membership can too", func() {
		_, err := s.svc.Task.Create(s.ctx, s.project.ID, s.leader.ID, CreateTaskInput{Title: "Lead work"})
		s.Require().NoError(err)
	})

	s.Run("an outsider cannot", func() {
		out := s.newUser("Out", "out@x.com")
		_, err := s.svc.Task.Create(s.ctx, s.project.ID, out.ID, CreateTaskInput{Title: "Nope"})
		s.Require().ErrorIs(err, ErrForbidden)
	})

	s.Run("blank titles and unknown enums are rejected", func() {
		_, err := s.svc.Task.Create(s.ctx, s.project.ID, s.manager.ID, CreateTaskInput{Title: "  "})
		s.Require().ErrorIs(err, ErrInvalidInput)

		_, err = s.svc.Task.Create(s.ctx, s.project.ID, s.manager.ID, CreateTaskInput{Title: "X", Status: "WAITING"})
		s.Require().ErrorIs(err, ErrInvalidInput)
	})

	s.Run("tags must belong to the project", func() {
		_, err := s.svc.Task.Create(s.ctx, s.project.ID, s.manager.ID, CreateTaskInput{
			Title:  "Tagged",
			TagIDs: []string{"no-such-tag"},
		})
		s.Require().ErrorIs(err, ErrInvalidInput)
	})

	s.Run("duplicate assignees collapse", func() {
		task := s.newTask("Dup", s.member.ID, s.member.ID)
		s.Equal([]string{s.member.ID}, task.AssigneeIDs)
	})
}

func (s *TaskServiceSuite) TestGet() {
	task := s.newTask("Ship it", s.member.ID)

	s.Run("assignee and overseers see the task", func() {
		for _, u := range []*repository.User{s.member, s.manager, s.leader} {
			got, err := s.svc.Task.Get(s.ctx, task.ID, u.ID)
			s.Require().NoError(err)
			s.Equal(task.ID, got.ID)
		}
	})

	s.Run("an unassigned project member does not", func() {
		other := s.newUser("Dana", "dana@x.com")
		_, err := s.svc.Team.Join(s.ctx, s.team.ID, other.ID, true)
		s.Require().NoError(err)
		_, err = s.svc.Project.AddMember(s.ctx, s.project.ID, s.manager.ID, other.ID)
		s.Require().NoError(err)

		_, err = s.svc.Task.Get(s.ctx, task.ID, other.ID)
		s.Require().ErrorIs(err, ErrForbidden)
	})
}

func (s *TaskServiceSuite) TestList() {
	mine := s.newTask("Mine", s.member.ID)
	s.newTask("Theirs", s.leader.ID)
	s.newTask("Unassigned")

	s.Run("managers see everything", func() {
		tasks, err := s.svc.Task.List(s.ctx, s.project.ID, s.manager.ID, repository.TaskFilter{})
		s.Require().NoError(err)
		s.Len(tasks, 3)
	})

	s.Run("a plain member sees only their own tasks", func() {
		tasks, err := s.svc.Task.List(s.ctx, s.project.ID, s.member.ID, repository.TaskFilter{})
		s.Require().NoError(err)
		s.Require().Len(tasks, 1)
		s.Equal(mine.ID, tasks[0].ID)
	})

	s.Run("a member cannot filter around the restriction", func() {
		leaderID := s.leader.ID
		tasks, err := s.svc.Task.List(s.ctx, s.project.ID, s.member.ID, repository.TaskFilter{AssigneeID: &leaderID})
		s.Require().NoError(err)
		s.Require().Len(tasks, 1)
		s.Equal(mine.ID, tasks[0].ID)
	})

	s.Run("outsiders are refused", func() {
		out := s.newUser("Out", "out@x.com")
		_, err := s.svc.Task.List(s.ctx, s.project.ID, out.ID, repository.TaskFilter{})
		s.Require().ErrorIs(err, ErrForbidden)
	})
}

func (s *TaskServiceSuite) TestUpdate() {
	task := s.newTask("Ship it", s.member.ID)

	s.Run("a member may change the status alone", func() {
		updated, err := s.svc.Task.Update(s.ctx, task.ID, s.member.ID, UpdateTaskInput{
			Status: strPtr(types.StatusInProgress),
		})
		s.Require().NoError(err)
		s.Equal(types.StatusInProgress, updated.Status)
	})

	s.Run("anything beyond status needs management", func() {
		_, err := s.svc.Task.Update(s.ctx, task.ID, s.member.ID, UpdateTaskInput{
			Status: strPtr(types.StatusDone),
			Title:  strPtr("Renamed"),
		})
		s.Require().ErrorIs(err, ErrForbidden)

		_, err = s.svc.Task.Update(s.ctx, task.ID, s.member.ID, UpdateTaskInput{
			Priority: strPtr(types.PriorityHigh),
		})
		s.Require().ErrorIs(err, ErrForbidden)
	})

	s.Run("a leader edits any field", func() {
		updated, err := s.svc.Task.Update(s.ctx, task.ID, s.leader.ID, UpdateTaskInput{
			Title:    strPtr("Renamed"),
			Priority: strPtr(types.PriorityHigh),
		})
		s.Require().NoError(err)
		s.Equal("Renamed", updated.Title)
		s.Equal(types.PriorityHigh, updated.Priority)
	})

	s.Run("newly assigned users are notified", func() {
		assignees := []string{s.member.ID, s.leader.ID}
		_, err := s.svc.Task.Update(s.ctx, task.ID, s.manager.ID, UpdateTaskInput{
			AssigneeIDs: &assignees,
		})
		s.Require().NoError(err)

		notifs, err := s.repos.NotificationRepo.FindByUserID(s.ctx, s.leader.ID, false)
		s.Require().NoError(err)
		var assigned int
		for _, n := range notifs {
			if n.Type == notification.TypeTaskAssigned {
				assigned++
			}
		}
		s.Equal(1, assigned, "only the new assignee is notified, once")

		memberNotifs, err := s.repos.NotificationRepo.FindByUserID(s.ctx, s.member.ID, false)
		s.Require().NoError(err)
		for _, n := range memberNotifs {
			s.NotEqual(notification.TypeTaskAssigned, n.Type, "existing assignee not re-notified")
		}
	})

	s.Run("clearing the due date", func() {
		updated, err := s.svc.Task.Update(s.ctx, task.ID, s.manager.ID, UpdateTaskInput{ClearDue: true})
		s.Require().NoError(err)
		s.Nil(updated.DueDate)
	})

	s.Run("unknown task", func() {
		_, err := s.svc.Task.Update(s.ctx, "nope", s.manager.ID, UpdateTaskInput{Status: strPtr(types.StatusDone)})
		s.Require().ErrorIs(err, ErrNotFound)
	})
}

func (s *TaskServiceSuite) TestDelete() {
	task := s.newTask("Ship it", s.member.ID)
	_, err := s.svc.Task.AddComment(s.ctx, task.ID, s.member.ID, "working on it")
	s.Require().NoError(err)

	s.Run("an assignee cannot delete", func() {
		err := s.svc.Task.Delete(s.ctx, task.ID, s.member.ID)
		s.Require().ErrorIs(err, ErrForbidden)
	})

	s.Run("deletion removes the task and its comments", func() {
		s.Require().NoError(s.svc.Task.Delete(s.ctx, task.ID, s.leader.ID))

		gone, err := s.repos.TaskRepo.FindByID(s.ctx, task.ID)
		s.Require().NoError(err)
		s.Nil(gone)

		comments, err := s.repos.CommentRepo.FindByTaskID(s.ctx, task.ID)
		s.Require().NoError(err)
		s.Empty(comments)
	})
}

func (s *TaskServiceSuite) TestComments() {
	task := s.newTask("Ship it", s.member.ID)

	s.Run("anyone who sees the project may comment", func() {
		other := s.newUser("Dana", "dana@x.com")
		_, err := s.svc.Team.Join(s.ctx, s.team.ID, other.ID, true)
		s.Require().NoError(err)
		_, err = s.svc.Project.AddMember(s.ctx, s.project.ID, s.manager.ID, other.ID)
		s.Require().NoError(err)

		_, err = s.svc.Task.AddComment(s.ctx, task.ID, other.ID, "looks good")
		s.Require().NoError(err)
	})

	s.Run("outsiders may not", func() {
		out := s.newUser("Out", "out@x.com")
		_, err := s.svc.Task.AddComment(s.ctx, task.ID, out.ID, "hi")
		s.Require().ErrorIs(err, ErrForbidden)
	})

	s.Run("authors delete their own, managers delete any", func() {
		c, err := s.svc.Task.AddComment(s.ctx, task.ID, s.member.ID, "mine")
		s.Require().NoError(err)

		other := s.newUser("Eve", "eve@x.com")
		_, err = s.svc.Team.Join(s.ctx, s.team.ID, other.ID, true)
		s.Require().NoError(err)
		_, err = s.svc.Project.AddMember(s.ctx, s.project.ID, s.manager.ID, other.ID)
		s.Require().NoError(err)

		err = s.svc.Task.DeleteComment(s.ctx, task.ID, other.ID, c.ID)
		s.Require().ErrorIs(err, ErrForbidden)

		s.Require().NoError(s.svc.Task.DeleteComment(s.ctx, task.ID, s.member.ID, c.ID))

		c2, err := s.svc.Task.AddComment(s.ctx, task.ID, s.member.ID, "another")
		s.Require().NoError(err)
		s.Require().NoError(s.svc.Task.DeleteComment(s.ctx, task.ID, s.manager.ID, c2.ID))
	})
}
