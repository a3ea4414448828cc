package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/quocanhngo/gotalk-core/internal/service"
)

// RelationHandler handles block and restrict endpoints
type RelationHandler struct {
	relationService *service.RelationService
}

func NewRelationHandler(relationService *service.RelationService) *RelationHandler {
	return &RelationHandler{relationService: relationService}
}

func (h *RelationHandler) apply(c *gin.Context, fn func(ctx context.Context, actorID, targetID uuid.UUID) error, done string) {
	targetID, ok := pathID(c, "user")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), currentUser(c), targetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: done})
}

// Block godoc
// @Summary Block a user
// @Description Denies direct messages both ways and removes the friendship. History is kept.
// @Tags Relations
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} model.SuccessResponse
// @Router /users/{id}/block [post]
func (h *RelationHandler) Block(c *gin.Context) {
	h.apply(c, h.relationService.Block, "User blocked")
}

// Unblock godoc
// @Summary Unblock a user
// @Tags Relations
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} model.SuccessResponse
// @Router /users/{id}/block [delete]
func (h *RelationHandler) Unblock(c *gin.Context) {
	h.apply(c, h.relationService.Unblock, "User unblocked")
}

// Restrict godoc
// @Summary Restrict a user
// @Tags Relations
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} model.SuccessResponse
// @Router /users/{id}/restrict [post]
func (h *RelationHandler) Restrict(c *gin.Context) {
	h.apply(c, h.relationService.Restrict, "User restricted")
}

// Unrestrict godoc
// @Summary Lift a restriction
// @Tags Relations
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} model.SuccessResponse
// @Router /users/{id}/restrict [delete]
func (h *RelationHandler) Unrestrict(c *gin.Context) {
	h.apply(c, h.relationService.Unrestrict, "Restriction removed")
}
