package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crewdesk/crewdesk-backend/internal/models"
	"github.com/crewdesk/crewdesk-backend/internal/notification"
	"github.com/crewdesk/crewdesk-backend/internal/repository"
	"github.com/crewdesk/crewdesk-backend/internal/service"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Team         *TeamHandler
	Project      *ProjectHandler
	Task         *TaskHandler
	Chat         *ChatHandler
	Notification *NotificationHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Auth:         &AuthHandler{authSvc: services.Auth},
		User:         &UserHandler{userSvc: services.User},
		Team:         &TeamHandler{teamSvc: services.Team},
		Project:      &ProjectHandler{projectSvc: services.Project},
		Task:         &TaskHandler{taskSvc: services.Task},
		Chat:         &ChatHandler{chatSvc: services.Chat},
		Notification: &NotificationHandler{notifSvc: services.Notification},
	}
}

// handleServiceError maps service errors to HTTP responses
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, notification.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, service.ErrForbidden), errors.Is(err, notification.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// ============================================
// Response Mappers
// ============================================

func toUserResponse(u *repository.User) models.UserResponse {
	return models.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

func toUserResponses(users []*repository.User) []models.UserResponse {
	out := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

// toTeamResponse maps a team. Invite emails are only included when the
// requester is the manager.
func toTeamResponse(t *repository.Team, requesterID string) models.TeamResponse {
	resp := models.TeamResponse{
		ID:        t.ID,
		Name:      t.Name,
		ManagerID: t.ManagerID,
		JoinMode:  int(t.JoinMode),
		MemberIDs: safeStringSlice(t.MemberIDs),
		LeaderIDs: safeStringSlice(t.LeaderIDs),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if requesterID == t.ManagerID {
		resp.InviteEmails = safeStringSlice(t.InviteEmails)
	}
	return resp
}

func toProjectResponse(p *repository.Project) models.ProjectResponse {
	return models.ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		TeamID:      p.TeamID,
		MemberIDs:   safeStringSlice(p.MemberIDs),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toTaskResponse(t *repository.Task) models.TaskResponse {
	return models.TaskResponse{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		CreatedBy:   t.CreatedBy,
		AssigneeIDs: safeStringSlice(t.AssigneeIDs),
		TagIDs:      safeStringSlice(t.TagIDs),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTaskResponses(tasks []*repository.Task) []models.TaskResponse {
	out := make([]models.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	return out
}

func toTagResponse(t *repository.Tag) models.TagResponse {
	return models.TagResponse{ID: t.ID, ProjectID: t.ProjectID, Name: t.Name, Color: t.Color}
}

func toCommentResponse(cm *repository.Comment) models.CommentResponse {
	return models.CommentResponse{
		ID:        cm.ID,
		TaskID:    cm.TaskID,
		AuthorID:  cm.AuthorID,
		Content:   cm.Content,
		CreatedAt: cm.CreatedAt,
	}
}

func toMessageResponse(m *repository.Message) models.MessageResponse {
	return models.MessageResponse{
		ID:          m.ID,
		ChannelType: m.ChannelType,
		ChannelID:   m.ChannelID,
		SenderID:    m.SenderID,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
	}
}

func toNotificationResponse(n *repository.Notification) models.NotificationResponse {
	return models.NotificationResponse{
		ID:            n.ID,
		Type:          n.Type,
		Title:         n.Title,
		Message:       n.Message,
		ReferenceID:   n.ReferenceID,
		ReferenceType: n.ReferenceType,
		Read:          n.Read,
		CreatedAt:     n.CreatedAt,
	}
}

// Helper to ensure nil slices serialize as empty arrays
func safeStringSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
