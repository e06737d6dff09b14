package service

import (
	"context"
	"fmt"

	"github.com/crewdesk/crewdesk-backend/internal/repository"
	"github.com/crewdesk/crewdesk-backend/internal/types"
)

// ============================================
// Authorization Predicates
// ============================================

// The predicates below are the single source of truth for who may see or
// mutate a team, a project, a task, or a chat channel. They are pure
// functions over just-fetched aggregates; callers fetch, then ask.

// IsTeamMember reports whether userID belongs to the team. The manager
// always counts as a member.
func IsTeamMember(userID string, team *repository.Team) bool {
	if team == nil {
		return false
	}
	return team.ManagerID == userID || team.HasMember(userID)
}

// IsTeamOverseer reports whether userID is the manager or a leader.
func IsTeamOverseer(userID string, team *repository.Team) bool {
	if team == nil {
		return false
	}
	return team.ManagerID == userID || team.HasLeader(userID)
}

// HasProjectAccess is the project visibility rule: the owner, any
// explicit member, and, when the project is linked to a team, that
// team's manager and leaders. Plain team members do NOT see a linked
// project unless explicitly added.
func HasProjectAccess(userID string, project *repository.Project, team *repository.Team) bool {
	if project == nil {
		return false
	}
	if project.OwnerID == userID || project.HasMember(userID) {
		return true
	}
	if project.TeamLinked() {
		return IsTeamOverseer(userID, team)
	}
	return false
}

// CanManageProjectTasks is the task mutation rule: the project owner
// and, for team-linked projects, the team's manager and leaders.
// Membership alone grants visibility, not management.
func CanManageProjectTasks(userID string, project *repository.Project, team *repository.Team) bool {
	if project == nil {
		return false
	}
	if project.OwnerID == userID {
		return true
	}
	if project.TeamLinked() {
		return IsTeamOverseer(userID, team)
	}
	return false
}

// HasTaskAccess is the task visibility rule: its assignees, the project
// owner and the team's manager and leaders. Plain project members do not
// qualify here; the chat guard falls back to project access separately.
func HasTaskAccess(userID string, task *repository.Task, project *repository.Project, team *repository.Team) bool {
	if task == nil || project == nil {
		return false
	}
	if task.HasAssignee(userID) || project.OwnerID == userID {
		return true
	}
	if project.TeamLinked() {
		return IsTeamOverseer(userID, team)
	}
	return false
}

// CanKickFromTeam encodes the removal hierarchy: the manager may kick
// anyone but themself; a leader may kick only plain members.
func CanKickFromTeam(actorID, targetID string, team *repository.Team) bool {
	if team == nil || targetID == team.ManagerID || actorID == targetID {
		return false
	}
	if actorID == team.ManagerID {
		return true
	}
	return team.HasLeader(actorID) && !team.HasLeader(targetID)
}

// ============================================
// Permission Service
// ============================================

// PermissionService answers authorization questions against current
// registry state. Derivations are local computations over the fetched
// aggregates; no decision involves external I/O beyond the fetch itself.
type PermissionService interface {
	CanAccessTeam(ctx context.Context, userID, teamID string) (bool, error)
	CanManageTeam(ctx context.Context, userID, teamID string) (bool, error)
	CanAccessProject(ctx context.Context, userID, projectID string) (bool, error)
	CanManageTasks(ctx context.Context, userID, projectID string) (bool, error)
	CanAccessTask(ctx context.Context, userID, taskID string) (bool, error)
	CanAccessChannel(ctx context.Context, userID, channelType, channelID string) (bool, error)

	// ProjectWithTeam loads a project together with its linked team, if
	// any. Returns (nil, nil, nil) when the project does not exist.
	ProjectWithTeam(ctx context.Context, projectID string) (*repository.Project, *repository.Team, error)
}

type permissionService struct {
	projectRepo repository.ProjectRepository
	teamRepo    repository.TeamRepository
	taskRepo    repository.TaskRepository
}

func NewPermissionService(
	projectRepo repository.ProjectRepository,
	teamRepo repository.TeamRepository,
	taskRepo repository.TaskRepository,
) PermissionService {
	return &permissionService{
		projectRepo: projectRepo,
		teamRepo:    teamRepo,
		taskRepo:    taskRepo,
	}
}

func (s *permissionService) CanAccessTeam(ctx context.Context, userID, teamID string) (bool, error) {
	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return false, fmt.Errorf("failed to load team: %w", err)
	}
	return IsTeamMember(userID, team), nil
}

func (s *permissionService) CanManageTeam(ctx context.Context, userID, teamID string) (bool, error) {
	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return false, fmt.Errorf("failed to load team: %w", err)
	}
	return team != nil && team.ManagerID == userID, nil
}

func (s *permissionService) CanAccessProject(ctx context.Context, userID, projectID string) (bool, error) {
	project, team, err := s.ProjectWithTeam(ctx, projectID)
	if err != nil {
		return false, err
	}
	return HasProjectAccess(userID, project, team), nil
}

func (s *permissionService) CanManageTasks(ctx context.Context, userID, projectID string) (bool, error) {
	project, team, err := s.ProjectWithTeam(ctx, projectID)
	if err != nil {
		return false, err
	}
	return CanManageProjectTasks(userID, project, team), nil
}

func (s *permissionService) CanAccessTask(ctx context.Context, userID, taskID string) (bool, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to load task: %w", err)
	}
	if task == nil {
		return false, nil
	}
	project, team, err := s.ProjectWithTeam(ctx, task.ProjectID)
	if err != nil {
		return false, err
	}
	return HasTaskAccess(userID, task, project, team), nil
}

// CanAccessChannel applies the visibility rules to chat channels. A task
// channel admits anyone with task access, and falls back to project
// access so unassigned project members can still discuss a task they
// can see. Unknown channel types are always rejected.
func (s *permissionService) CanAccessChannel(ctx context.Context, userID, channelType, channelID string) (bool, error) {
	switch channelType {
	case types.ChannelTeam:
		return s.CanAccessTeam(ctx, userID, channelID)
	case types.ChannelProject:
		return s.CanAccessProject(ctx, userID, channelID)
	case types.ChannelTask:
		task, err := s.taskRepo.FindByID(ctx, channelID)
		if err != nil {
			return false, fmt.Errorf("failed to load task: %w", err)
		}
		if task == nil {
			return false, nil
		}
		project, team, err := s.ProjectWithTeam(ctx, task.ProjectID)
		if err != nil {
			return false, err
		}
		if HasTaskAccess(userID, task, project, team) {
			return true, nil
		}
		return HasProjectAccess(userID, project, team), nil
	default:
		return false, nil
	}
}

func (s *permissionService) ProjectWithTeam(ctx context.Context, projectID string) (*repository.Project, *repository.Team, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return nil, nil, nil
	}

	var team *repository.Team
	if project.TeamLinked() {
		team, err = s.teamRepo.FindByID(ctx, *project.TeamID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load team: %w", err)
		}
	}
	return project, team, nil
}
