package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/crewdesk/crewdesk-backend/internal/db"
	"github.com/crewdesk/crewdesk-backend/internal/repository"
	"github.com/crewdesk/crewdesk-backend/internal/socket"
)

// Notification types
const (
	TypeProjectCreated    = "PROJECT_CREATED"
	TypeProjectMemberNew  = "PROJECT_MEMBER_ADDED"
	TypeTaskCreated       = "TASK_CREATED"
	TypeTaskAssigned      = "TASK_ASSIGNED"
	TypeTaskStatusChanged = "TASK_STATUS_CHANGED"
	TypeTaskDueSoon       = "TASK_DUE_SOON"
)

var (
	ErrNotFound  = errors.New("notification not found")
	ErrForbidden = errors.New("notification belongs to another user")
)

const countCacheTTL = 5 * time.Minute

// Service computes recipient sets for domain events and emits one
// notification record per recipient. Fan-out is fire-and-forget relative
// to the mutation that triggered it: emission failures are logged, never
// propagated back to the caller.
type Service struct {
	notificationRepo repository.NotificationRepository
	broadcaster      *socket.Broadcaster
	cache            *db.RedisDB
}

func NewService(notificationRepo repository.NotificationRepository) *Service {
	return &Service{notificationRepo: notificationRepo}
}

// SetBroadcaster wires the WebSocket broadcaster after hub startup
func (s *Service) SetBroadcaster(b *socket.Broadcaster) {
	s.broadcaster = b
}

// SetCache wires the optional Redis counter cache
func (s *Service) SetCache(cache *db.RedisDB) {
	s.cache = cache
}

// ============================================
// Recipient Sets
// ============================================

type pending struct {
	userID  string
	title   string
	message string
}

// recipients accumulates a deduplicated, actor-excluded recipient set.
// The first qualifying role for a user wins; later adds for the same
// user are ignored, so an assignee who is also a leader gets exactly
// one record with the assignee wording.
type recipients struct {
	actorID string
	seen    map[string]bool
	list    []pending
}

func newRecipients(actorID string) *recipients {
	return &recipients{actorID: actorID, seen: map[string]bool{}}
}

func (r *recipients) add(userID, title, message string) {
	if userID == "" || userID == r.actorID || r.seen[userID] {
		return
	}
	r.seen[userID] = true
	r.list = append(r.list, pending{userID: userID, title: title, message: message})
}

func (r *recipients) addAll(userIDs []string, title, message string) {
	for _, id := range userIDs {
		r.add(id, title, message)
	}
}

// overseers returns the team manager followed by the leaders. Nil-safe
// for projects with no linked team.
func overseers(team *repository.Team) []string {
	if team == nil {
		return nil
	}
	out := make([]string, 0, len(team.LeaderIDs)+1)
	out = append(out, team.ManagerID)
	out = append(out, team.LeaderIDs...)
	return out
}

func (s *Service) emit(ctx context.Context, notifType, referenceID, referenceType string, rs *recipients) int {
	emitted := 0
	for _, p := range rs.list {
		n := &repository.Notification{
			UserID:        p.userID,
			Type:          notifType,
			Title:         p.title,
			Message:       p.message,
			ReferenceID:   &referenceID,
			ReferenceType: &referenceType,
		}
		if err := s.notificationRepo.Create(ctx, n); err != nil {
			log.Printf("[Notification] Failed to create %s for user %s: %v", notifType, p.userID, err)
			continue
		}
		emitted++
		s.invalidateCounts(ctx, p.userID)
		s.push(ctx, n)
	}
	return emitted
}

func (s *Service) push(ctx context.Context, n *repository.Notification) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.SendNotification(n.UserID, map[string]interface{}{
		"id":        n.ID,
		"type":      n.Type,
		"title":     n.Title,
		"message":   n.Message,
		"read":      n.Read,
		"createdAt": n.CreatedAt,
	})
	if total, unread, err := s.Counts(ctx, n.UserID); err == nil {
		s.broadcaster.SendNotificationCount(n.UserID, total, unread)
	}
}

// ============================================
// Fan-out
// ============================================

// NotifyProjectCreated notifies team overseers plus explicit members,
// excluding the creator.
func (s *Service) NotifyProjectCreated(ctx context.Context, project *repository.Project, team *repository.Team, actorID string) int {
	rs := newRecipients(actorID)
	title := "New Project"
	message := fmt.Sprintf("Project %q was created", project.Name)
	rs.addAll(overseers(team), title, message)
	rs.addAll(project.MemberIDs, title, message)
	return s.emit(ctx, TypeProjectCreated, project.ID, "project", rs)
}

// NotifyMemberAddedToProject gives the new member a distinct message and
// a generic one to the team overseers.
func (s *Service) NotifyMemberAddedToProject(ctx context.Context, project *repository.Project, team *repository.Team, addedUserID, actorID string) int {
	rs := newRecipients(actorID)
	rs.add(addedUserID, "Added to Project",
		fmt.Sprintf("You were added to project %q", project.Name))
	rs.addAll(overseers(team), "Project Member Added",
		fmt.Sprintf("A member joined project %q", project.Name))
	return s.emit(ctx, TypeProjectMemberNew, project.ID, "project", rs)
}

// NotifyTaskCreated notifies assignees with the assignment wording and
// team overseers with the generic one. A leader who is also an assignee
// receives a single record.
func (s *Service) NotifyTaskCreated(ctx context.Context, task *repository.Task, project *repository.Project, team *repository.Team, actorID string) int {
	rs := newRecipients(actorID)
	rs.addAll(task.AssigneeIDs, "Task Assigned",
		fmt.Sprintf("You were assigned to task %q", task.Title))
	rs.addAll(overseers(team), "New Task",
		fmt.Sprintf("Task %q was created in project %q", task.Title, project.Name))
	return s.emit(ctx, TypeTaskCreated, task.ID, "task", rs)
}

// NotifyTaskStatusChanged notifies team overseers and current assignees.
func (s *Service) NotifyTaskStatusChanged(ctx context.Context, task *repository.Task, team *repository.Team, oldStatus, actorID string) int {
	rs := newRecipients(actorID)
	title := "Task Status Changed"
	message := fmt.Sprintf("Task %q moved from %s to %s", task.Title, oldStatus, task.Status)
	rs.addAll(overseers(team), title, message)
	rs.addAll(task.AssigneeIDs, title, message)
	return s.emit(ctx, TypeTaskStatusChanged, task.ID, "task", rs)
}

// NotifyTaskAssigned notifies only the newly added assignees.
func (s *Service) NotifyTaskAssigned(ctx context.Context, task *repository.Task, newAssigneeIDs []string, actorID string) int {
	rs := newRecipients(actorID)
	rs.addAll(newAssigneeIDs, "Task Assigned",
		fmt.Sprintf("You were assigned to task %q", task.Title))
	return s.emit(ctx, TypeTaskAssigned, task.ID, "task", rs)
}

// NotifyTaskDueSoon notifies all current assignees. Called by the
// scheduler, there is no acting user to exclude.
func (s *Service) NotifyTaskDueSoon(ctx context.Context, task *repository.Task) int {
	rs := newRecipients("")
	rs.addAll(task.AssigneeIDs, "Task Due Soon",
		fmt.Sprintf("Task %q is due %s", task.Title, task.DueDate.Format("Jan 2")))
	return s.emit(ctx, TypeTaskDueSoon, task.ID, "task", rs)
}

// ============================================
// Read Side
// ============================================

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]*repository.Notification, error) {
	return s.notificationRepo.FindByUserID(ctx, userID, unreadOnly)
}

type cachedCounts struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
}

// Counts returns total and unread notification counts for a user,
// serving from Redis when the cache is warm.
func (s *Service) Counts(ctx context.Context, userID string) (int, int, error) {
	key := "notifcount:" + userID
	if s.cache != nil {
		var c cachedCounts
		if err := s.cache.GetCache(ctx, key, &c); err == nil {
			return c.Total, c.Unread, nil
		}
	}

	total, unread, err := s.notificationRepo.CountByUserID(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	if s.cache != nil {
		if err := s.cache.SetCache(ctx, key, cachedCounts{Total: total, Unread: unread}, countCacheTTL); err != nil {
			log.Printf("[Notification] Count cache write failed for user %s: %v", userID, err)
		}
	}
	return total, unread, nil
}

func (s *Service) invalidateCounts(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteCache(ctx, "notifcount:"+userID); err != nil {
		log.Printf("[Notification] Count cache invalidation failed for user %s: %v", userID, err)
	}
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	n, err := s.notificationRepo.FindByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n == nil {
		return ErrNotFound
	}
	if n.UserID != userID {
		return ErrForbidden
	}
	if err := s.notificationRepo.MarkAsRead(ctx, notificationID); err != nil {
		return err
	}
	s.invalidateCounts(ctx, userID)
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.notificationRepo.MarkAllAsRead(ctx, userID); err != nil {
		return err
	}
	s.invalidateCounts(ctx, userID)
	return nil
}

func (s *Service) Remove(ctx context.Context, userID, notificationID string) error {
	n, err := s.notificationRepo.FindByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n == nil {
		return ErrNotFound
	}
	if n.UserID != userID {
		return ErrForbidden
	}
	if err := s.notificationRepo.Delete(ctx, notificationID); err != nil {
		return err
	}
	s.invalidateCounts(ctx, userID)
	return nil
}

func (s *Service) RemoveAll(ctx context.Context, userID string) error {
	if err := s.notificationRepo.DeleteAll(ctx, userID); err != nil {
		return err
	}
	s.invalidateCounts(ctx, userID)
	return nil
}
