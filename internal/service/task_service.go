package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/crewdesk/crewdesk-backend/internal/notification"
	"github.com/crewdesk/crewdesk-backend/internal/repository"
	"github.com/crewdesk/crewdesk-backend/internal/types"
)

// ============================================
// Task Service
// ============================================

// CreateTaskInput carries the fields accepted at task creation
type CreateTaskInput struct {
	Title       string
	Description *string
	Status      string
	Priority    string
	DueDate     *time.Time
	AssigneeIDs []string
	TagIDs      []string
}

// UpdateTaskInput carries a partial update; nil fields are untouched
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *time.Time
	ClearDue    bool
	AssigneeIDs *[]string
	TagIDs      *[]string
}

// statusOnly reports whether the update touches nothing but status.
func (in UpdateTaskInput) statusOnly() bool {
	return in.Status != nil &&
		in.Title == nil && in.Description == nil && in.Priority == nil &&
		in.DueDate == nil && !in.ClearDue && in.AssigneeIDs == nil && in.TagIDs == nil
}

type TaskService interface {
	Create(ctx context.Context, projectID, actingID string, input CreateTaskInput) (*repository.Task, error)
	Get(ctx context.Context, taskID, actingID string) (*repository.Task, error)
	List(ctx context.Context, projectID, actingID string, filter repository.TaskFilter) ([]*repository.Task, error)
	Update(ctx context.Context, taskID, actingID string, input UpdateTaskInput) (*repository.Task, error)
	Delete(ctx context.Context, taskID, actingID string) error

	AddComment(ctx context.Context, taskID, actingID, content string) (*repository.Comment, error)
	ListComments(ctx context.Context, taskID, actingID string) ([]*repository.Comment, error)
	DeleteComment(ctx context.Context, taskID, actingID, commentID string) error
}

type taskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	tagRepo     repository.TagRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	permissions PermissionService
	notifSvc    *notification.Service
	locks       *keyedLocks
}

func NewTaskService(
	taskRepo repository.TaskRepository,
	projectRepo repository.ProjectRepository,
	tagRepo repository.TagRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	permissions PermissionService,
	notifSvc *notification.Service,
	locks *keyedLocks,
) TaskService {
	return &taskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		tagRepo:     tagRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		permissions: permissions,
		notifSvc:    notifSvc,
		locks:       locks,
	}
}

func (s *taskService) Create(ctx context.Context, projectID, actingID string, input CreateTaskInput) (*repository.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}
	if input.Status == "" {
		input.Status = types.StatusTodo
	}
	if input.Priority == "" {
		input.Priority = types.PriorityMedium
	}
	if !types.IsValidStatus(input.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, input.Status)
	}
	if !types.IsValidPriority(input.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, input.Priority)
	}

	project, team, err := s.permissions.ProjectWithTeam(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	// Anyone who can see the project may add work to it; editing and
	// deleting stay behind the management gate.
	if !HasProjectAccess(actingID, project, team) {
		return nil, ErrForbidden
	}
	if err := s.validateTags(ctx, projectID, input.TagIDs); err != nil {
		return nil, err
	}

	task := &repository.Task{
		ProjectID:   projectID,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		CreatedBy:   actingID,
		AssigneeIDs: dedupeIDs(input.AssigneeIDs),
		TagIDs:      dedupeIDs(input.TagIDs),
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	log.Printf("[Task] Created: id=%s project=%s by=%s", task.ID, projectID, actingID)

	s.notifSvc.NotifyTaskCreated(ctx, task, project, team, actingID)
	return task, nil
}

func (s *taskService) Get(ctx context.Context, taskID, actingID string) (*repository.Task, error) {
	task, project, team, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !HasTaskAccess(actingID, task, project, team) {
		return nil, ErrForbidden
	}
	return task, nil
}

// List applies the caller's filters when they can manage tasks in the
// project. Everyone else gets the assignee filter forced to their own
// id, whatever was requested.
func (s *taskService) List(ctx context.Context, projectID, actingID string, filter repository.TaskFilter) ([]*repository.Task, error) {
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
	if !CanManageProjectTasks(actingID, project, team) {
		self := actingID
		filter.AssigneeID = &self
	}

	tasks, err := s.taskRepo.FindByProjectID(ctx, projectID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskService) Update(ctx context.Context, taskID, actingID string, input UpdateTaskInput) (*repository.Task, error) {
	unlock := s.locks.Lock("task:" + taskID)
	defer unlock()

	task, project, team, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	// A status-only change is open to anyone who can see the project;
	// touching any other field needs the management capability.
	if input.statusOnly() {
		if !HasProjectAccess(actingID, project, team) {
			return nil, ErrForbidden
		}
	} else if !CanManageProjectTasks(actingID, project, team) {
		return nil, ErrForbidden
	}

	oldStatus := task.Status
	var newAssignees []string

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: task title is required", ErrInvalidInput)
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = input.Description
	}
	if input.Status != nil {
		if !types.IsValidStatus(*input.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *input.Status)
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !types.IsValidPriority(*input.Priority) {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *input.Priority)
		}
		task.Priority = *input.Priority
	}
	if input.ClearDue {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.AssigneeIDs != nil {
		next := dedupeIDs(*input.AssigneeIDs)
		for _, id := range next {
			if !task.HasAssignee(id) {
				newAssignees = append(newAssignees, id)
			}
		}
		task.AssigneeIDs = next
	}
	if input.TagIDs != nil {
		next := dedupeIDs(*input.TagIDs)
		if err := s.validateTags(ctx, task.ProjectID, next); err != nil {
			return nil, err
		}
		task.TagIDs = next
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	if task.Status != oldStatus {
		s.notifSvc.NotifyTaskStatusChanged(ctx, task, team, oldStatus, actingID)
	}
	if len(newAssignees) > 0 {
		s.notifSvc.NotifyTaskAssigned(ctx, task, newAssignees, actingID)
	}
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, taskID, actingID string) error {
	unlock := s.locks.Lock("task:" + taskID)
	defer unlock()

	_, project, team, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !CanManageProjectTasks(actingID, project, team) {
		return ErrForbidden
	}

	if err := s.commentRepo.DeleteByTaskID(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task comments: %w", err)
	}
	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	log.Printf("[Task] Deleted: id=%s by=%s", taskID, actingID)
	return nil
}

// ============================================
// Comments
// ============================================

func (s *taskService) AddComment(ctx context.Context, taskID, actingID, content string) (*repository.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: comment content is required", ErrInvalidInput)
	}

	task, project, team, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !HasTaskAccess(actingID, task, project, team) && !HasProjectAccess(actingID, project, team) {
		return nil, ErrForbidden
	}

	comment := &repository.Comment{TaskID: taskID, AuthorID: actingID, Content: content}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

func (s *taskService) ListComments(ctx context.Context, taskID, actingID string) ([]*repository.Comment, error) {
	task, project, team, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !HasTaskAccess(actingID, task, project, team) && !HasProjectAccess(actingID, project, team) {
		return nil, ErrForbidden
	}
	return s.commentRepo.FindByTaskID(ctx, taskID)
}

func (s *taskService) DeleteComment(ctx context.Context, taskID, actingID, commentID string) error {
	_, project, team, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}

	comments, err := s.commentRepo.FindByTaskID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to list comments: %w", err)
	}
	var comment *repository.Comment
	for _, c := range comments {
		if c.ID == commentID {
			comment = c
			break
		}
	}
	if comment == nil {
		return ErrNotFound
	}
	if comment.AuthorID != actingID && !CanManageProjectTasks(actingID, project, team) {
		return ErrForbidden
	}
	return s.commentRepo.Delete(ctx, commentID)
}

// ============================================
// Helpers
// ============================================

func (s *taskService) loadTask(ctx context.Context, taskID string) (*repository.Task, *repository.Project, *repository.Team, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load task: %w", err)
	}
	if task == nil {
		return nil, nil, nil, ErrNotFound
	}
	project, team, err := s.permissions.ProjectWithTeam(ctx, task.ProjectID)
	if err != nil {
		return nil, nil, nil, err
	}
	if project == nil {
		return nil, nil, nil, ErrNotFound
	}
	return task, project, team, nil
}

func (s *taskService) validateTags(ctx context.Context, projectID string, tagIDs []string) error {
	for _, id := range tagIDs {
		tag, err := s.tagRepo.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load tag: %w", err)
		}
		if tag == nil || tag.ProjectID != projectID {
			return fmt.Errorf("%w: unknown tag %q", ErrInvalidInput, id)
		}
	}
	return nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
