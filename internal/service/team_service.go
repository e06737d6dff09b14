package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/crewdesk/crewdesk-backend/internal/repository"
	"github.com/crewdesk/crewdesk-backend/internal/types"
)

// Teams are capped at this many members, manager included.
const maxTeamMembers = 10

// ============================================
// Team Service
// ============================================

type TeamService interface {
	Create(ctx context.Context, managerID, name string, joinMode types.JoinMode) (*repository.Team, error)
	Get(ctx context.Context, userID, teamID string) (*repository.Team, error)
	ListForUser(ctx context.Context, userID string) ([]*repository.Team, error)
	Members(ctx context.Context, userID, teamID string) ([]*repository.User, error)

	Invite(ctx context.Context, teamID, actingID, email string) (*repository.Team, error)
	Join(ctx context.Context, teamID, userID string, byCode bool) (*repository.Team, error)
	Leave(ctx context.Context, teamID, userID string) error
	Promote(ctx context.Context, teamID, actingID, targetID string) (*repository.Team, error)
	Demote(ctx context.Context, teamID, actingID, targetID string) (*repository.Team, error)
	Kick(ctx context.Context, teamID, actingID, targetID string) (*repository.Team, error)
	Delete(ctx context.Context, teamID, actingID string) error
}

type teamService struct {
	teamRepo    repository.TeamRepository
	projectRepo repository.ProjectRepository
	taskRepo    repository.TaskRepository
	tagRepo     repository.TagRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	locks       *keyedLocks
}

func NewTeamService(
	teamRepo repository.TeamRepository,
	projectRepo repository.ProjectRepository,
	taskRepo repository.TaskRepository,
	tagRepo repository.TagRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	locks *keyedLocks,
) TeamService {
	return &teamService{
		teamRepo:    teamRepo,
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		tagRepo:     tagRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		locks:       locks,
	}
}

func (s *teamService) Create(ctx context.Context, managerID, name string, joinMode types.JoinMode) (*repository.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}

	team := &repository.Team{
		Name:      name,
		ManagerID: managerID,
		JoinMode:  joinMode,
		MemberIDs: []string{managerID},
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	log.Printf("[Team] Created: id=%s manager=%s", team.ID, managerID)
	return team, nil
}

func (s *teamService) Get(ctx context.Context, userID, teamID string) (*repository.Team, error) {
	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	if team == nil {
		return nil, ErrNotFound
	}
	if !IsTeamMember(userID, team) {
		return nil, ErrForbidden
	}
	return team, nil
}

func (s *teamService) ListForUser(ctx context.Context, userID string) ([]*repository.Team, error) {
	teams, err := s.teamRepo.FindByMemberID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

func (s *teamService) Members(ctx context.Context, userID, teamID string) ([]*repository.User, error) {
	team, err := s.Get(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.FindAllByIDs(ctx, team.MemberIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	return users, nil
}

// Invite records a pending invitation. It never adds a member and is
// idempotent for an already-invited email.
func (s *teamService) Invite(ctx context.Context, teamID, actingID, email string) (*repository.Team, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	unlock := s.locks.Lock("team:" + teamID)
	defer unlock()

	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	if team == nil {
		return nil, ErrNotFound
	}
	if team.ManagerID != actingID {
		return nil, ErrForbidden
	}

	for _, invited := range team.InviteEmails {
		if strings.EqualFold(invited, email) {
			return team, nil
		}
	}
	team.InviteEmails = append(team.InviteEmails, email)
	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to save invite: %w", err)
	}
	return team, nil
}

// Join admits a user under the team's join mode. The capacity check and
// the write happen under the team lock so two joins racing on the last
// slot cannot both succeed.
func (s *teamService) Join(ctx context.Context, teamID, userID string, byCode bool) (*repository.Team, error) {
	unlock := s.locks.Lock("team:" + teamID)
	defer unlock()

	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	if team == nil {
		return nil, ErrNotFound
	}
	if team.JoinMode == types.JoinModeOnlyEmail {
		return nil, ErrJoinClosed
	}
	if IsTeamMember(userID, team) {
		return nil, ErrAlreadyMember
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	if !byCode && !containsFold(team.InviteEmails, user.Email) {
		return nil, ErrNotInvited
	}
	if len(team.MemberIDs) >= maxTeamMembers {
		return nil, ErrTeamFull
	}

	team.MemberIDs = append(team.MemberIDs, userID)
	team.InviteEmails = removeFold(team.InviteEmails, user.Email)

	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to save team: %w", err)
	}

	log.Printf("[Team] Member joined: team=%s user=%s byCode=%v", teamID, userID, byCode)
	return team, nil
}

// Leave removes the caller from the roster. The leader flag is left in
// place; only Kick clears it.
func (s *teamService) Leave(ctx context.Context, teamID, userID string) error {
	unlock := s.locks.Lock("team:" + teamID)
	defer unlock()

	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to load team: %w", err)
	}
	if team == nil {
		return ErrNotFound
	}
	if team.ManagerID == userID {
		return ErrManagerImmutable
	}
	if !team.HasMember(userID) {
		return fmt.Errorf("%w: not a member", ErrInvalidState)
	}

	team.MemberIDs = removeID(team.MemberIDs, userID)
	if err := s.teamRepo.Update(ctx, team); err != nil {
		return fmt.Errorf("failed to save team: %w", err)
	}
	return nil
}

func (s *teamService) Promote(ctx context.Context, teamID, actingID, targetID string) (*repository.Team, error) {
	unlock := s.locks.Lock("team:" + teamID)
	defer unlock()

	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	if team == nil {
		return nil, ErrNotFound
	}
	if team.ManagerID != actingID {
		return nil, ErrForbidden
	}
	if targetID == team.ManagerID {
		return nil, ErrSelfTarget
	}
	if !team.HasMember(targetID) {
		return nil, fmt.Errorf("%w: target is not a member", ErrInvalidState)
	}
	if team.HasLeader(targetID) {
		return nil, fmt.Errorf("%w: already a leader", ErrInvalidState)
	}

	team.LeaderIDs = append(team.LeaderIDs, targetID)
	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to save team: %w", err)
	}
	return team, nil
}

func (s *teamService) Demote(ctx context.Context, teamID, actingID, targetID string) (*repository.Team, error) {
	unlock := s.locks.Lock("team:" + teamID)
	defer unlock()

	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	if team == nil {
		return nil, ErrNotFound
	}
	if team.ManagerID != actingID {
		return nil, ErrForbidden
	}
	if !team.HasLeader(targetID) {
		return nil, fmt.Errorf("%w: target is not a leader", ErrInvalidState)
	}

	team.LeaderIDs = removeID(team.LeaderIDs, targetID)
	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to save team: %w", err)
	}
	return team, nil
}

// Kick removes a member and clears their leader flag. The manager may
// kick anyone else; a leader may kick plain members only.
func (s *teamService) Kick(ctx context.Context, teamID, actingID, targetID string) (*repository.Team, error) {
	unlock := s.locks.Lock("team:" + teamID)
	defer unlock()

	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	if team == nil {
		return nil, ErrNotFound
	}
	if actingID == targetID {
		return nil, ErrSelfTarget
	}
	if targetID == team.ManagerID {
		return nil, ErrManagerImmutable
	}
	if !team.HasMember(targetID) {
		return nil, fmt.Errorf("%w: target is not a member", ErrInvalidState)
	}
	if !CanKickFromTeam(actingID, targetID, team) {
		return nil, ErrForbidden
	}

	team.MemberIDs = removeID(team.MemberIDs, targetID)
	team.LeaderIDs = removeID(team.LeaderIDs, targetID)
	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to save team: %w", err)
	}

	log.Printf("[Team] Member kicked: team=%s actor=%s target=%s", teamID, actingID, targetID)
	return team, nil
}

// Delete tears the team down, manager only. Child records go before
// their parents: per linked project the members are cleared, then task
// comments, tasks, tags and the project itself, then the team.
func (s *teamService) Delete(ctx context.Context, teamID, actingID string) error {
	unlock := s.locks.Lock("team:" + teamID)
	defer unlock()

	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to load team: %w", err)
	}
	if team == nil {
		return ErrNotFound
	}
	if team.ManagerID != actingID {
		return ErrForbidden
	}

	projects, err := s.projectRepo.FindByTeamID(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to list team projects: %w", err)
	}
	for _, project := range projects {
		if err := s.deleteProjectCascade(ctx, project); err != nil {
			return err
		}
	}

	if err := s.teamRepo.Delete(ctx, teamID); err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}

	log.Printf("[Team] Deleted: id=%s projects=%d", teamID, len(projects))
	return nil
}

func (s *teamService) deleteProjectCascade(ctx context.Context, project *repository.Project) error {
	project.MemberIDs = nil
	if err := s.projectRepo.Update(ctx, project); err != nil {
		return fmt.Errorf("failed to clear project members: %w", err)
	}

	tasks, err := s.taskRepo.FindByProjectID(ctx, project.ID, repository.TaskFilter{})
	if err != nil {
		return fmt.Errorf("failed to list project tasks: %w", err)
	}
	for _, task := range tasks {
		if err := s.commentRepo.DeleteByTaskID(ctx, task.ID); err != nil {
			return fmt.Errorf("failed to delete task comments: %w", err)
		}
	}
	if err := s.taskRepo.DeleteByProjectID(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete project tasks: %w", err)
	}
	if err := s.tagRepo.DeleteByProjectID(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete project tags: %w", err)
	}
	if err := s.projectRepo.Delete(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// ============================================
// Slice Helpers
// ============================================

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsFold(values []string, v string) bool {
	for _, s := range values {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func removeFold(values []string, v string) []string {
	out := values[:0]
	for _, s := range values {
		if !strings.EqualFold(s, v) {
			out = append(out, s)
		}
	}
	return out
}
