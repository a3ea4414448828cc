package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/quocanhngo/gotalk-core/internal/service"
)

// PresenceHandler exposes online visibility
type PresenceHandler struct {
	presenceService *service.PresenceService
}

func NewPresenceHandler(presenceService *service.PresenceService) *PresenceHandler {
	return &PresenceHandler{presenceService: presenceService}
}

// SetVisibility godoc
// @Summary Show or hide your online status
// @Tags Presence
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.VisibilityRequest true "Visibility"
// @Success 200 {object} model.SuccessResponse
// @Router /presence/visibility [put]
func (h *PresenceHandler) SetVisibility(c *gin.Context) {
	var req model.VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}

	if err := h.presenceService.SetVisibility(c.Request.Context(), currentUser(c), *req.Visible); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Visibility updated", Data: req})
}

// GetOnlineUsers godoc
// @Summary List users who are online and visible
// @Tags Presence
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.OnlineUsersResponse
// @Router /presence/online [get]
func (h *PresenceHandler) GetOnlineUsers(c *gin.Context) {
	ids := h.presenceService.OnlineUsers()
	c.JSON(http.StatusOK, model.OnlineUsersResponse{Count: len(ids), UserIDs: ids})
}
