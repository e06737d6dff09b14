package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crewdesk/crewdesk-backend/internal/api/middleware"
	"github.com/crewdesk/crewdesk-backend/internal/models"
	"github.com/crewdesk/crewdesk-backend/internal/repository"
	"github.com/crewdesk/crewdesk-backend/internal/service"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskSvc service.TaskService
}

type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	AssigneeIDs []string   `json:"assigneeIds"`
	TagIDs      []string   `json:"tagIds"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	ClearDue    bool       `json:"clearDueDate"`
	AssigneeIDs *[]string  `json:"assigneeIds"`
	TagIDs      *[]string  `json:"tagIds"`
}

type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskSvc.Create(c.Request.Context(), c.Param("id"), userID, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		AssigneeIDs: req.AssigneeIDs,
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTaskResponse(task))
}

// ListByProject applies the caller's filters; non-managers are scoped to
// their own tasks inside the service layer.
func (h *TaskHandler) ListByProject(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	filter := parseTaskFilter(c)
	tasks, err := h.taskSvc.List(c.Request.Context(), c.Param("id"), userID, filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponses(tasks))
}

func parseTaskFilter(c *gin.Context) repository.TaskFilter {
	var filter repository.TaskFilter
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("assigneeId"); v != "" {
		filter.AssigneeID = &v
	}
	if v := c.Query("tagId"); v != "" {
		filter.TagID = &v
	}
	if v := c.Query("priority"); v != "" {
		filter.Priority = &v
	}
	if v := c.Query("dueStart"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.DueStart = &t
		}
	}
	if v := c.Query("dueEnd"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.DueEnd = &t
		}
	}
	if v := c.Query("q"); v != "" {
		filter.Search = &v
	}
	return filter
}

func (h *TaskHandler) Get(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	task, err := h.taskSvc.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskSvc.Update(c.Request.Context(), c.Param("id"), userID, service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		ClearDue:    req.ClearDue,
		AssigneeIDs: req.AssigneeIDs,
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.taskSvc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ============================================
// Comments
// ============================================

func (h *TaskHandler) AddComment(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.taskSvc.AddComment(c.Request.Context(), c.Param("id"), userID, req.Content)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCommentResponse(comment))
}

func (h *TaskHandler) ListComments(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	comments, err := h.taskSvc.ListComments(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	out := make([]models.CommentResponse, 0, len(comments))
	for _, cm := range comments {
		out = append(out, toCommentResponse(cm))
	}
	c.JSON(http.StatusOK, out)
}

func (h *TaskHandler) DeleteComment(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.taskSvc.DeleteComment(c.Request.Context(), c.Param("id"), userID, c.Param("commentId")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
