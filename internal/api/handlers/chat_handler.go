package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/crewdesk/crewdesk-backend/internal/api/middleware"
	"github.com/crewdesk/crewdesk-backend/internal/models"
	"github.com/crewdesk/crewdesk-backend/internal/service"
)

// ChatHandler exposes channel history over REST. Live traffic goes
// through the WebSocket hub; both paths share the same access guard.
type ChatHandler struct {
	chatSvc service.ChatService
}

func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := h.chatSvc.History(c.Request.Context(),
		userID, c.Param("type"), c.Param("id"), limit, offset)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	out := make([]models.MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessageResponse(m))
	}
	c.JSON(http.StatusOK, out)
}
