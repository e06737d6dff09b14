package socket

import "fmt"

// Broadcaster provides high-level methods for broadcasting domain events
type Broadcaster struct {
	hub *Hub
}

func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

func projectRoom(projectID string) string { return fmt.Sprintf("project:%s", projectID) }
func teamRoom(teamID string) string       { return fmt.Sprintf("team:%s", teamID) }

// ============================================
// Notification Broadcasting
// ============================================

// SendNotification pushes a persisted notification to a specific user
func (b *Broadcaster) SendNotification(userID string, notification map[string]interface{}) {
	b.hub.SendToUser(userID, MessageNotification, notification)
}

// SendNotificationCount updates notification counters for a user
func (b *Broadcaster) SendNotificationCount(userID string, total, unread int) {
	b.hub.SendToUser(userID, MessageNotificationCount, map[string]interface{}{
		"total":  total,
		"unread": unread,
	})
}

// ============================================
// Task Broadcasting
// ============================================

func (b *Broadcaster) BroadcastTaskCreated(projectID string, task map[string]interface{}, excludeUserID string) {
	b.hub.SendToRoom(projectRoom(projectID), MessageTaskCreated, task, excludeUserID)
}

func (b *Broadcaster) BroadcastTaskUpdated(projectID string, task map[string]interface{}, excludeUserID string) {
	b.hub.SendToRoom(projectRoom(projectID), MessageTaskUpdated, map[string]interface{}{
		"task":          task,
		"changedByUser": excludeUserID,
		"projectId":     projectID,
	}, excludeUserID)
}

func (b *Broadcaster) BroadcastTaskDeleted(projectID, taskID, excludeUserID string) {
	b.hub.SendToRoom(projectRoom(projectID), MessageTaskDeleted, map[string]interface{}{
		"taskId":    taskID,
		"projectId": projectID,
	}, excludeUserID)
}

func (b *Broadcaster) BroadcastTaskStatusChanged(projectID string, task map[string]interface{}, oldStatus, newStatus, excludeUserID string) {
	b.hub.SendToRoom(projectRoom(projectID), MessageTaskStatusChanged, map[string]interface{}{
		"task":          task,
		"oldStatus":     oldStatus,
		"newStatus":     newStatus,
		"changedByUser": excludeUserID,
	}, excludeUserID)
}

// ============================================
// Team Broadcasting
// ============================================

func (b *Broadcaster) BroadcastTeamUpdated(teamID string, team map[string]interface{}, excludeUserID string) {
	b.hub.SendToRoom(teamRoom(teamID), MessageTeamUpdated, team, excludeUserID)
}

func (b *Broadcaster) BroadcastTeamDeleted(teamID string) {
	b.hub.SendToRoom(teamRoom(teamID), MessageTeamDeleted, map[string]interface{}{
		"teamId": teamID,
	}, "")
}

func (b *Broadcaster) BroadcastTeamMemberAdded(teamID, userID string) {
	b.hub.SendToRoom(teamRoom(teamID), MessageMemberAdded, map[string]interface{}{
		"teamId": teamID,
		"userId": userID,
	}, "")
}

func (b *Broadcaster) BroadcastTeamMemberRemoved(teamID, userID string) {
	b.hub.SendToRoom(teamRoom(teamID), MessageMemberRemoved, map[string]interface{}{
		"teamId": teamID,
		"userId": userID,
	}, "")
}

// ============================================
// Project Broadcasting
// ============================================

func (b *Broadcaster) BroadcastProjectUpdated(projectID string, project map[string]interface{}, excludeUserID string) {
	b.hub.SendToRoom(projectRoom(projectID), MessageProjectUpdated, project, excludeUserID)
}

func (b *Broadcaster) BroadcastProjectDeleted(projectID string) {
	b.hub.SendToRoom(projectRoom(projectID), MessageProjectDeleted, map[string]interface{}{
		"projectId": projectID,
	}, "")
}

func (b *Broadcaster) BroadcastProjectMemberAdded(projectID, userID string) {
	b.hub.SendToRoom(projectRoom(projectID), MessageMemberAdded, map[string]interface{}{
		"projectId": projectID,
		"userId":    userID,
	}, "")
}

func (b *Broadcaster) BroadcastProjectMemberRemoved(projectID, userID string) {
	b.hub.SendToRoom(projectRoom(projectID), MessageMemberRemoved, map[string]interface{}{
		"projectId": projectID,
		"userId":    userID,
	}, "")
}
