package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/quocanhngo/gotalk-core/internal/service"
)

// ChatHandler handles conversation and message endpoints
type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// GetConversations godoc
// @Summary Get all conversations for the current user
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.ConversationSnapshot
// @Router /conversations [get]
func (h *ChatHandler) GetConversations(c *gin.Context) {
	conversations, err := h.chatService.ListConversations(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversations)
}

// CreateGroup godoc
// @Summary Create a group conversation
// @Tags Conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreateGroupRequest true "Group name and members"
// @Success 201 {object} model.ConversationSnapshot
// @Failure 400 {object} model.ErrorResponse
// @Router /conversations [post]
func (h *ChatHandler) CreateGroup(c *gin.Context) {
	var req model.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}

	conv, err := h.chatService.CreateGroup(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, conv)
}

// GetOrCreateDirect godoc
// @Summary Get or create direct conversation
// @Description Find the 1-1 conversation with a user, or create an empty one.
// @Tags Conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.DirectConversationRequest true "Partner ID"
// @Success 200 {object} model.ConversationSnapshot
// @Success 201 {object} model.ConversationSnapshot
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/direct [post]
func (h *ChatHandler) GetOrCreateDirect(c *gin.Context) {
	var req model.DirectConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}

	conv, created, err := h.chatService.GetOrCreateDirect(c.Request.Context(), currentUser(c), req.ReceiverID)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, conv)
}

// GetConversation godoc
// @Summary Get a specific conversation
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.ConversationSnapshot
// @Failure 404 {object} model.ErrorResponse
// @Router /conversations/{id} [get]
func (h *ChatHandler) GetConversation(c *gin.Context) {
	convID, ok := pathID(c, "conversation")
	if !ok {
		return
	}

	conv, err := h.chatService.GetConversation(c.Request.Context(), currentUser(c), convID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

// ClearConversation godoc
// @Summary Delete a direct conversation and its history for both participants
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /conversations/{id} [delete]
func (h *ChatHandler) ClearConversation(c *gin.Context) {
	convID, ok := pathID(c, "conversation")
	if !ok {
		return
	}

	if err := h.chatService.ClearConversation(c.Request.Context(), currentUser(c), convID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Conversation cleared"})
}

// SendMessage godoc
// @Summary Send a message to a conversation
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param body body model.SendMessageRequest true "Send message request"
// @Success 201 {object} model.SendMessageResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Router /conversations/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	convID, ok := pathID(c, "conversation")
	if !ok {
		return
	}

	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}

	resp, err := h.chatService.SendMessage(c.Request.Context(), currentUser(c), convID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// SendDirect godoc
// @Summary Send a direct message to a user
// @Description Creates the conversation (as a message request for non-friends) on the first message.
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Recipient user ID"
// @Param body body model.SendMessageRequest true "Send message request"
// @Success 201 {object} model.SendMessageResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Router /users/{id}/messages [post]
func (h *ChatHandler) SendDirect(c *gin.Context) {
	recipientID, ok := pathID(c, "user")
	if !ok {
		return
	}

	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}

	resp, err := h.chatService.SendDirect(c.Request.Context(), currentUser(c), recipientID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetMessages godoc
// @Summary Get messages for a conversation
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param before query string false "Cursor: message ID to get messages before"
// @Param limit query int false "Number of messages to return (default: 50)"
// @Success 200 {array} model.Message
// @Router /conversations/{id}/messages [get]
func (h *ChatHandler) GetMessages(c *gin.Context) {
	convID, ok := pathID(c, "conversation")
	if !ok {
		return
	}

	var req model.MessageListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}

	var before *uuid.UUID
	if req.Before != "" {
		parsed, err := uuid.Parse(req.Before)
		if err != nil {
			badRequest(c, "Invalid cursor", err)
			return
		}
		before = &parsed
	}

	messages, err := h.chatService.GetMessages(c.Request.Context(), currentUser(c), convID, before, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// MarkSeen godoc
// @Summary Mark a conversation as seen
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.ConversationSnapshot
// @Router /conversations/{id}/seen [post]
func (h *ChatHandler) MarkSeen(c *gin.Context) {
	convID, ok := pathID(c, "conversation")
	if !ok {
		return
	}

	conv, err := h.chatService.MarkSeen(c.Request.Context(), currentUser(c), convID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

// AcceptRequest godoc
// @Summary Accept a message request
// @Tags Requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.ConversationSnapshot
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/request/accept [post]
func (h *ChatHandler) AcceptRequest(c *gin.Context) {
	convID, ok := pathID(c, "conversation")
	if !ok {
		return
	}

	conv, err := h.chatService.AcceptRequest(c.Request.Context(), currentUser(c), convID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

// RejectRequest godoc
// @Summary Reject a message request
// @Description Deletes the conversation and all its messages for both participants.
// @Tags Requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/request/reject [post]
func (h *ChatHandler) RejectRequest(c *gin.Context) {
	convID, ok := pathID(c, "conversation")
	if !ok {
		return
	}

	if err := h.chatService.RejectRequest(c.Request.Context(), currentUser(c), convID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Message request rejected"})
}
