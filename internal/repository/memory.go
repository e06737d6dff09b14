package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// In-memory implementations of the repository interfaces. They back the
// service test suites and carry the same contract as the pgx versions:
// missing rows yield (nil, nil), and returned aggregates are copies so
// callers never share mutable state with the store.

type MemoryRepositories struct {
	*Repositories
}

func NewMemoryRepositories() *MemoryRepositories {
	return &MemoryRepositories{
		Repositories: &Repositories{
			UserRepo:         NewMemoryUserRepository(),
			TeamRepo:         NewMemoryTeamRepository(),
			ProjectRepo:      NewMemoryProjectRepository(),
			TaskRepo:         NewMemoryTaskRepository(),
			TagRepo:          NewMemoryTagRepository(),
			CommentRepo:      NewMemoryCommentRepository(),
			MessageRepo:      NewMemoryMessageRepository(),
			NotificationRepo: NewMemoryNotificationRepository(),
		},
	}
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// ============================================
// Users
// ============================================

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]*User)}
}

func (r *memoryUserRepository) Create(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	c := *user
	r.users[user.ID] = &c
	return nil
}

func (r *memoryUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	c := *user
	return &c, nil
}

func (r *memoryUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			c := *user
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepository) FindAllByIDs(ctx context.Context, ids []string) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := []*User{}
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			c := *user
			users = append(users, &c)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (r *memoryUserRepository) Search(ctx context.Context, query string, limit int) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(query)
	var users []*User
	for _, user := range r.users {
		if strings.Contains(strings.ToLower(user.Name), q) ||
			strings.Contains(strings.ToLower(user.Email), q) {
			c := *user
			users = append(users, &c)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// ============================================
// Teams
// ============================================

type memoryTeamRepository struct {
	mu    sync.RWMutex
	teams map[string]*Team
}

func NewMemoryTeamRepository() TeamRepository {
	return &memoryTeamRepository{teams: make(map[string]*Team)}
}

func copyTeam(t *Team) *Team {
	c := *t
	c.MemberIDs = copyStrings(t.MemberIDs)
	c.LeaderIDs = copyStrings(t.LeaderIDs)
	c.InviteEmails = copyStrings(t.InviteEmails)
	return &c
}

func (r *memoryTeamRepository) Create(ctx context.Context, team *Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	team.ID = uuid.New().String()
	team.CreatedAt = time.Now()
	team.UpdatedAt = team.CreatedAt
	r.teams[team.ID] = copyTeam(team)
	return nil
}

func (r *memoryTeamRepository) FindByID(ctx context.Context, id string) (*Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	team, ok := r.teams[id]
	if !ok {
		return nil, nil
	}
	return copyTeam(team), nil
}

func (r *memoryTeamRepository) FindByManagerID(ctx context.Context, managerID string) ([]*Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var teams []*Team
	for _, team := range r.teams {
		if team.ManagerID == managerID {
			teams = append(teams, copyTeam(team))
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams, nil
}

func (r *memoryTeamRepository) FindByMemberID(ctx context.Context, userID string) ([]*Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var teams []*Team
	for _, team := range r.teams {
		if team.HasMember(userID) {
			teams = append(teams, copyTeam(team))
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams, nil
}

func (r *memoryTeamRepository) Update(ctx context.Context, team *Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.teams[team.ID]; !ok {
		return nil
	}
	team.UpdatedAt = time.Now()
	r.teams[team.ID] = copyTeam(team)
	return nil
}

func (r *memoryTeamRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.teams, id)
	return nil
}

func (r *memoryTeamRepository) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	team, ok := r.teams[teamID]
	if !ok {
		return false, nil
	}
	return team.HasMember(userID), nil
}

// ============================================
// Projects
// ============================================

type memoryProjectRepository struct {
	mu       sync.RWMutex
	projects map[string]*Project
}

func NewMemoryProjectRepository() ProjectRepository {
	return &memoryProjectRepository{projects: make(map[string]*Project)}
}

func copyProject(p *Project) *Project {
	c := *p
	c.MemberIDs = copyStrings(p.MemberIDs)
	return &c
}

func (r *memoryProjectRepository) Create(ctx context.Context, project *Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	project.ID = uuid.New().String()
	project.CreatedAt = time.Now()
	project.UpdatedAt = project.CreatedAt
	r.projects[project.ID] = copyProject(project)
	return nil
}

func (r *memoryProjectRepository) FindByID(ctx context.Context, id string) (*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, ok := r.projects[id]
	if !ok {
		return nil, nil
	}
	return copyProject(project), nil
}

func (r *memoryProjectRepository) FindByTeamID(ctx context.Context, teamID string) ([]*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var projects []*Project
	for _, project := range r.projects {
		if project.TeamID != nil && *project.TeamID == teamID {
			projects = append(projects, copyProject(project))
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

func (r *memoryProjectRepository) FindByOwnerOrMember(ctx context.Context, userID string) ([]*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var projects []*Project
	for _, project := range r.projects {
		if project.OwnerID == userID || project.HasMember(userID) {
			projects = append(projects, copyProject(project))
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

func (r *memoryProjectRepository) Update(ctx context.Context, project *Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[project.ID]; !ok {
		return nil
	}
	project.UpdatedAt = time.Now()
	r.projects[project.ID] = copyProject(project)
	return nil
}

func (r *memoryProjectRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.projects, id)
	return nil
}

func (r *memoryProjectRepository) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, ok := r.projects[projectID]
	if !ok {
		return false, nil
	}
	return project.HasMember(userID), nil
}

// ============================================
// Tasks
// ============================================

type memoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

func NewMemoryTaskRepository() TaskRepository {
	return &memoryTaskRepository{tasks: make(map[string]*Task)}
}

func copyTask(t *Task) *Task {
	c := *t
	c.AssigneeIDs = copyStrings(t.AssigneeIDs)
	c.TagIDs = copyStrings(t.TagIDs)
	return &c
}

func (r *memoryTaskRepository) Create(ctx context.Context, task *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task.ID = uuid.New().String()
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	r.tasks[task.ID] = copyTask(task)
	return nil
}

func (r *memoryTaskRepository) FindByID(ctx context.Context, id string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	return copyTask(task), nil
}

func (r *memoryTaskRepository) FindByProjectID(ctx context.Context, projectID string, filter TaskFilter) ([]*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tasks []*Task
	for _, task := range r.tasks {
		if task.ProjectID != projectID || !matchesFilter(task, filter) {
			continue
		}
		tasks = append(tasks, copyTask(task))
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return tasks, nil
}

func matchesFilter(task *Task, filter TaskFilter) bool {
	if filter.Status != nil && task.Status != *filter.Status {
		return false
	}
	if filter.AssigneeID != nil && !task.HasAssignee(*filter.AssigneeID) {
		return false
	}
	if filter.TagID != nil && !containsID(task.TagIDs, *filter.TagID) {
		return false
	}
	if filter.Priority != nil && task.Priority != *filter.Priority {
		return false
	}
	if filter.DueStart != nil && (task.DueDate == nil || task.DueDate.Before(*filter.DueStart)) {
		return false
	}
	if filter.DueEnd != nil && (task.DueDate == nil || task.DueDate.After(*filter.DueEnd)) {
		return false
	}
	if filter.Search != nil {
		q := strings.ToLower(*filter.Search)
		title := strings.ToLower(task.Title)
		desc := ""
		if task.Description != nil {
			desc = strings.ToLower(*task.Description)
		}
		if !strings.Contains(title, q) && !strings.Contains(desc, q) {
			return false
		}
	}
	return true
}

func (r *memoryTaskRepository) Update(ctx context.Context, task *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[task.ID]; !ok {
		return nil
	}
	task.UpdatedAt = time.Now()
	r.tasks[task.ID] = copyTask(task)
	return nil
}

func (r *memoryTaskRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tasks, id)
	return nil
}

func (r *memoryTaskRepository) DeleteByProjectID(ctx context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, task := range r.tasks {
		if task.ProjectID == projectID {
			delete(r.tasks, id)
		}
	}
	return nil
}

func (r *memoryTaskRepository) FindDueBetween(ctx context.Context, from, to time.Time) ([]*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tasks []*Task
	for _, task := range r.tasks {
		if task.DueDate == nil || task.Status == "DONE" {
			continue
		}
		if !task.DueDate.Before(from) && task.DueDate.Before(to) {
			tasks = append(tasks, copyTask(task))
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].DueDate.Before(*tasks[j].DueDate) })
	return tasks, nil
}

// ============================================
// Tags
// ============================================

type memoryTagRepository struct {
	mu   sync.RWMutex
	tags map[string]*Tag
}

func NewMemoryTagRepository() TagRepository {
	return &memoryTagRepository{tags: make(map[string]*Tag)}
}

func (r *memoryTagRepository) Create(ctx context.Context, tag *Tag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tag.ID = uuid.New().String()
	tag.CreatedAt = time.Now()
	c := *tag
	r.tags[tag.ID] = &c
	return nil
}

func (r *memoryTagRepository) FindByID(ctx context.Context, id string) (*Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tag, ok := r.tags[id]
	if !ok {
		return nil, nil
	}
	c := *tag
	return &c, nil
}

func (r *memoryTagRepository) FindByProjectID(ctx context.Context, projectID string) ([]*Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tags []*Tag
	for _, tag := range r.tags {
		if tag.ProjectID == projectID {
			c := *tag
			tags = append(tags, &c)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (r *memoryTagRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tags, id)
	return nil
}

func (r *memoryTagRepository) DeleteByProjectID(ctx context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, tag := range r.tags {
		if tag.ProjectID == projectID {
			delete(r.tags, id)
		}
	}
	return nil
}

// ============================================
// Comments
// ============================================

type memoryCommentRepository struct {
	mu       sync.RWMutex
	comments map[string]*Comment
}

func NewMemoryCommentRepository() CommentRepository {
	return &memoryCommentRepository{comments: make(map[string]*Comment)}
}

func (r *memoryCommentRepository) Create(ctx context.Context, comment *Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	comment.ID = uuid.New().String()
	comment.CreatedAt = time.Now()
	c := *comment
	r.comments[comment.ID] = &c
	return nil
}

func (r *memoryCommentRepository) FindByTaskID(ctx context.Context, taskID string) ([]*Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var comments []*Comment
	for _, comment := range r.comments {
		if comment.TaskID == taskID {
			c := *comment
			comments = append(comments, &c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments, nil
}

func (r *memoryCommentRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.comments, id)
	return nil
}

func (r *memoryCommentRepository) DeleteByTaskID(ctx context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, comment := range r.comments {
		if comment.TaskID == taskID {
			delete(r.comments, id)
		}
	}
	return nil
}

// ============================================
// Messages
// ============================================

type memoryMessageRepository struct {
	mu       sync.RWMutex
	messages []*Message
}

func NewMemoryMessageRepository() MessageRepository {
	return &memoryMessageRepository{}
}

func (r *memoryMessageRepository) Create(ctx context.Context, message *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	message.ID = uuid.New().String()
	message.CreatedAt = time.Now()
	c := *message
	r.messages = append(r.messages, &c)
	return nil
}

func (r *memoryMessageRepository) FindRecent(ctx context.Context, channelType, channelID string, limit int) ([]*Message, error) {
	return r.FindByChannel(ctx, channelType, channelID, limit, 0)
}

func (r *memoryMessageRepository) FindByChannel(ctx context.Context, channelType, channelID string, limit, offset int) ([]*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	var matched []*Message
	for _, m := range r.messages {
		if m.ChannelType == channelType && m.ChannelID == channelID {
			c := *m
			matched = append(matched, &c)
		}
	}
	// newest first, matching the pg ORDER BY created_at DESC
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if offset >= len(matched) {
		return []*Message{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *memoryMessageRepository) DeleteByChannel(ctx context.Context, channelType, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.messages[:0]
	for _, m := range r.messages {
		if m.ChannelType != channelType || m.ChannelID != channelID {
			kept = append(kept, m)
		}
	}
	r.messages = kept
	return nil
}

// ============================================
// Notifications
// ============================================

type memoryNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*Notification
}

func NewMemoryNotificationRepository() NotificationRepository {
	return &memoryNotificationRepository{notifications: make(map[string]*Notification)}
}

func (r *memoryNotificationRepository) Create(ctx context.Context, notification *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	notification.ID = uuid.New().String()
	notification.CreatedAt = time.Now()
	c := *notification
	r.notifications[notification.ID] = &c
	return nil
}

func (r *memoryNotificationRepository) FindByID(ctx context.Context, id string) (*Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.notifications[id]
	if !ok {
		return nil, nil
	}
	c := *n
	return &c, nil
}

func (r *memoryNotificationRepository) FindByUserID(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var notifications []*Notification
	for _, n := range r.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		c := *n
		notifications = append(notifications, &c)
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	if len(notifications) > 100 {
		notifications = notifications[:100]
	}
	return notifications, nil
}

func (r *memoryNotificationRepository) CountByUserID(ctx context.Context, userID string) (int, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total, unread := 0, 0
	for _, n := range r.notifications {
		if n.UserID != userID {
			continue
		}
		total++
		if !n.Read {
			unread++
		}
	}
	return total, unread, nil
}

func (r *memoryNotificationRepository) MarkAsRead(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n, ok := r.notifications[id]; ok {
		n.Read = true
	}
	return nil
}

func (r *memoryNotificationRepository) MarkAllAsRead(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.notifications {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (r *memoryNotificationRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.notifications, id)
	return nil
}

func (r *memoryNotificationRepository) DeleteAll(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, n := range r.notifications {
		if n.UserID == userID {
			delete(r.notifications, id)
		}
	}
	return nil
}
