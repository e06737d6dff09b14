package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crewdesk/crewdesk-backend/internal/api/middleware"
	"github.com/crewdesk/crewdesk-backend/internal/models"
	"github.com/crewdesk/crewdesk-backend/internal/service"
	"github.com/crewdesk/crewdesk-backend/internal/types"
)

// TeamHandler handles team-related HTTP requests
type TeamHandler struct {
	teamSvc service.TeamService
}

type CreateTeamRequest struct {
	Name     string `json:"name" binding:"required"`
	JoinMode int    `json:"joinMode"`
}

type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type JoinTeamRequest struct {
	ByCode bool `json:"byCode"`
}

func (h *TeamHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team, err := h.teamSvc.Create(c.Request.Context(), userID, req.Name, types.JoinModeFromCode(req.JoinMode))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTeamResponse(team, userID))
}

func (h *TeamHandler) Get(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	team, err := h.teamSvc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTeamResponse(team, userID))
}

func (h *TeamHandler) List(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	teams, err := h.teamSvc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	out := make([]models.TeamResponse, 0, len(teams))
	for _, t := range teams {
		out = append(out, toTeamResponse(t, userID))
	}
	c.JSON(http.StatusOK, out)
}

func (h *TeamHandler) Members(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	users, err := h.teamSvc.Members(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponses(users))
}

func (h *TeamHandler) Invite(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team, err := h.teamSvc.Invite(c.Request.Context(), c.Param("id"), userID, req.Email)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTeamResponse(team, userID))
}

func (h *TeamHandler) Join(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req JoinTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team, err := h.teamSvc.Join(c.Request.Context(), c.Param("id"), userID, req.ByCode)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTeamResponse(team, userID))
}

func (h *TeamHandler) Leave(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.teamSvc.Leave(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TeamHandler) Promote(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	team, err := h.teamSvc.Promote(c.Request.Context(), c.Param("id"), userID, c.Param("userId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTeamResponse(team, userID))
}

func (h *TeamHandler) Demote(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	team, err := h.teamSvc.Demote(c.Request.Context(), c.Param("id"), userID, c.Param("userId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTeamResponse(team, userID))
}

func (h *TeamHandler) Kick(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	team, err := h.teamSvc.Kick(c.Request.Context(), c.Param("id"), userID, c.Param("userId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTeamResponse(team, userID))
}

func (h *TeamHandler) Delete(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.teamSvc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
