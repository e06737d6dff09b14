package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/crewdesk/crewdesk-backend/internal/notification"
	"github.com/crewdesk/crewdesk-backend/internal/repository"
)

// ============================================
// Project Service
// ============================================

type ProjectService interface {
	Create(ctx context.Context, ownerID, name, description string, teamID *string) (*repository.Project, error)
	Get(ctx context.Context, userID, projectID string) (*repository.Project, error)
	ListForUser(ctx context.Context, userID string) ([]*repository.Project, error)
	Update(ctx context.Context, projectID, actingID, name, description string) (*repository.Project, error)
	Delete(ctx context.Context, projectID, actingID string) error

	AddMember(ctx context.Context, projectID, actingID, targetID string) (*repository.Project, error)
	RemoveMember(ctx context.Context, projectID, actingID, targetID string) (*repository.Project, error)
	AvailableTeamMembers(ctx context.Context, projectID, actingID string) ([]*repository.User, error)

	CreateTag(ctx context.Context, projectID, actingID, name string, color *string) (*repository.Tag, error)
	ListTags(ctx context.Context, projectID, actingID string) ([]*repository.Tag, error)
	DeleteTag(ctx context.Context, projectID, actingID, tagID string) error
}

type projectService struct {
	projectRepo repository.ProjectRepository
	teamRepo    repository.TeamRepository
	taskRepo    repository.TaskRepository
	tagRepo     repository.TagRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	permissions PermissionService
	notifSvc    *notification.Service
	locks       *keyedLocks
}

func NewProjectService(
	projectRepo repository.ProjectRepository,
	teamRepo repository.TeamRepository,
	taskRepo repository.TaskRepository,
	tagRepo repository.TagRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	permissions PermissionService,
	notifSvc *notification.Service,
	locks *keyedLocks,
) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		teamRepo:    teamRepo,
		taskRepo:    taskRepo,
		tagRepo:     tagRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		permissions: permissions,
		notifSvc:    notifSvc,
		locks:       locks,
	}
}

func (s *projectService) Create(ctx context.Context, ownerID, name, description string, teamID *string) (*repository.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}

	var team *repository.Team
	if teamID != nil && *teamID != "" {
		var err error
		team, err = s.teamRepo.FindByID(ctx, *teamID)
		if err != nil {
			return nil, fmt.Errorf("failed to load team: %w", err)
		}
		if team == nil {
			return nil, ErrNotFound
		}
	} else {
		teamID = nil
	}

	project := &repository.Project{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		TeamID:      teamID,
		MemberIDs:   []string{ownerID},
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	log.Printf("[Project] Created: id=%s owner=%s", project.ID, ownerID)

	// notify-after-commit; never rolls the creation back
	s.notifSvc.NotifyProjectCreated(ctx, project, team, ownerID)
	return project, nil
}

func (s *projectService) Get(ctx context.Context, userID, projectID string) (*repository.Project, error) {
	project, team, err := s.permissions.ProjectWithTeam(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	if !HasProjectAccess(userID, project, team) {
		return nil, ErrForbidden
	}
	return project, nil
}

// ListForUser returns projects the user owns or belongs to, plus
// team-linked projects visible through a manager or leader role.
func (s *projectService) ListForUser(ctx context.Context, userID string) ([]*repository.Project, error) {
	projects, err := s.projectRepo.FindByOwnerOrMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	seen := make(map[string]bool, len(projects))
	for _, p := range projects {
		seen[p.ID] = true
	}

	teams, err := s.teamRepo.FindByMemberID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	for _, team := range teams {
		if !IsTeamOverseer(userID, team) {
			continue
		}
		linked, err := s.projectRepo.FindByTeamID(ctx, team.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list team projects: %w", err)
		}
		for _, p := range linked {
			if !seen[p.ID] {
				seen[p.ID] = true
				projects = append(projects, p)
			}
		}
	}
	return projects, nil
}

func (s *projectService) Update(ctx context.Context, projectID, actingID, name, description string) (*repository.Project, error) {
	unlock := s.locks.Lock("project:" + projectID)
	defer unlock()

	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return nil, ErrNotFound
	}
	if project.OwnerID != actingID {
		return nil, ErrForbidden
	}

	if name = strings.TrimSpace(name); name != "" {
		project.Name = name
	}
	if description != "" {
		project.Description = description
	}
	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to save project: %w", err)
	}
	return project, nil
}

// Delete removes the project and its children, owner only. Comments go
// before tasks, tasks and tags before the project.
func (s *projectService) Delete(ctx context.Context, projectID, actingID string) error {
	unlock := s.locks.Lock("project:" + projectID)
	defer unlock()

	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return ErrNotFound
	}
	if project.OwnerID != actingID {
		return ErrForbidden
	}

	tasks, err := s.taskRepo.FindByProjectID(ctx, projectID, repository.TaskFilter{})
	if err != nil {
		return fmt.Errorf("failed to list project tasks: %w", err)
	}
	for _, task := range tasks {
		if err := s.commentRepo.DeleteByTaskID(ctx, task.ID); err != nil {
			return fmt.Errorf("failed to delete task comments: %w", err)
		}
	}
	if err := s.taskRepo.DeleteByProjectID(ctx, projectID); err != nil {
		return fmt.Errorf("failed to delete project tasks: %w", err)
	}
	if err := s.tagRepo.DeleteByProjectID(ctx, projectID); err != nil {
		return fmt.Errorf("failed to delete project tags: %w", err)
	}
	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	log.Printf("[Project] Deleted: id=%s tasks=%d", projectID, len(tasks))
	return nil
}

// ============================================
// Membership
// ============================================

func (s *projectService) AddMember(ctx context.Context, projectID, actingID, targetID string) (*repository.Project, error) {
	unlock := s.locks.Lock("project:" + projectID)
	defer unlock()

	project, team, err := s.permissions.ProjectWithTeam(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	if !CanManageProjectTasks(actingID, project, team) {
		return nil, ErrForbidden
	}

	target, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if target == nil {
		return nil, ErrNotFound
	}
	if project.TeamLinked() && !IsTeamMember(targetID, team) {
		return nil, fmt.Errorf("%w: target is not a team member", ErrInvalidState)
	}
	if project.OwnerID == targetID || project.HasMember(targetID) {
		return nil, ErrAlreadyMember
	}

	project.MemberIDs = append(project.MemberIDs, targetID)
	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to save project: %w", err)
	}

	s.notifSvc.NotifyMemberAddedToProject(ctx, project, team, targetID, actingID)
	return project, nil
}

func (s *projectService) RemoveMember(ctx context.Context, projectID, actingID, targetID string) (*repository.Project, error) {
	unlock := s.locks.Lock("project:" + projectID)
	defer unlock()

	project, team, err := s.permissions.ProjectWithTeam(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	if !CanManageProjectTasks(actingID, project, team) {
		return nil, ErrForbidden
	}
	if targetID == project.OwnerID {
		return nil, fmt.Errorf("%w: the project owner cannot be removed", ErrForbidden)
	}
	if !project.HasMember(targetID) {
		return nil, fmt.Errorf("%w: target is not a member", ErrInvalidState)
	}

	project.MemberIDs = removeID(project.MemberIDs, targetID)
	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to save project: %w", err)
	}
	return project, nil
}

// AvailableTeamMembers lists team members not yet on the project, the
// candidate pool for AddMember. Requires a team-linked project.
func (s *projectService) AvailableTeamMembers(ctx context.Context, projectID, actingID string) ([]*repository.User, error) {
	project, team, err := s.permissions.ProjectWithTeam(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	if !CanManageProjectTasks(actingID, project, team) {
		return nil, ErrForbidden
	}
	if !project.TeamLinked() || team == nil {
		return nil, fmt.Errorf("%w: project has no linked team", ErrInvalidState)
	}

	var candidates []string
	for _, id := range team.MemberIDs {
		if id != project.OwnerID && !project.HasMember(id) {
			candidates = append(candidates, id)
		}
	}
	users, err := s.userRepo.FindAllByIDs(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return users, nil
}

// ============================================
// Tags
// ============================================

func (s *projectService) CreateTag(ctx context.Context, projectID, actingID, name string, color *string) (*repository.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tag name is required", ErrInvalidInput)
	}

	project, team, err := s.permissions.ProjectWithTeam(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	if !CanManageProjectTasks(actingID, project, team) {
		return nil, ErrForbidden
	}

	tags, err := s.tagRepo.FindByProjectID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	for _, t := range tags {
		if strings.EqualFold(t.Name, name) {
			return nil, fmt.Errorf("%w: tag %q already exists", ErrConflict, name)
		}
	}

	tag := &repository.Tag{ProjectID: projectID, Name: name, Color: color}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return tag, nil
}

func (s *projectService) ListTags(ctx context.Context, projectID, actingID string) ([]*repository.Tag, error) {
	project, team, err := s.permissions.ProjectWithTeam(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	if !HasProjectAccess(actingID, project, team) {
		return nil, ErrForbidden
	}
	return s.tagRepo.FindByProjectID(ctx, projectID)
}

func (s *projectService) DeleteTag(ctx context.Context, projectID, actingID, tagID string) error {
	project, team, err := s.permissions.ProjectWithTeam(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return ErrNotFound
	}
	if !CanManageProjectTasks(actingID, project, team) {
		return ErrForbidden
	}

	tag, err := s.tagRepo.FindByID(ctx, tagID)
	if err != nil {
		return fmt.Errorf("failed to load tag: %w", err)
	}
	if tag == nil || tag.ProjectID != projectID {
		return ErrNotFound
	}
	return s.tagRepo.Delete(ctx, tagID)
}
