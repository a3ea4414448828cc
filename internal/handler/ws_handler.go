package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quocanhngo/gotalk-core/internal/middleware"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/quocanhngo/gotalk-core/internal/service"
	"github.com/quocanhngo/gotalk-core/internal/ws"
	"github.com/quocanhngo/gotalk-core/pkg/auth"
	appErrors "github.com/quocanhngo/gotalk-core/pkg/errors"
)

// Upper bound for one inbound frame's service call
const wsRequestTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, validate origin
	},
}

// WSHandler handles WebSocket connections
type WSHandler struct {
	hub             *ws.Hub
	chatService     *service.ChatService
	presenceService *service.PresenceService
	jwtManager      *auth.JWTManager
	revocations     middleware.Revocations
}

// NewWSHandler wires the handshake to the same token checks as the REST API.
// revocations may be nil.
func NewWSHandler(hub *ws.Hub, chatService *service.ChatService, presenceService *service.PresenceService, jwtManager *auth.JWTManager, revocations middleware.Revocations) *WSHandler {
	return &WSHandler{
		hub:             hub,
		chatService:     chatService,
		presenceService: presenceService,
		jwtManager:      jwtManager,
		revocations:     revocations,
	}
}

// HandleWebSocket upgrades HTTP to WebSocket and manages the connection
// Client connects with: ws://host/ws?token=<jwt_token>
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	// WebSocket can't use the Authorization header
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Token required"})
		return
	}

	if h.revocations != nil {
		revoked, err := h.revocations.IsRevoked(c.Request.Context(), tokenString)
		if err != nil {
			// Fail closed
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Auth server error"})
			return
		}
		if revoked {
			c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Token has been revoked"})
			return
		}
	}

	claims, err := h.jwtManager.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID, claims.Name)
	h.hub.Register(client)
	h.presenceService.Connect(context.Background(), client.UserID, client.ID)

	log.Printf("✅ WS Connected: UserID=%s Name=%s Conn=%s", claims.UserID, claims.Name, client.ID)

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleWSMessage)
		h.presenceService.Disconnect(context.Background(), client.UserID, client.ID)
		log.Printf("👋 WS Disconnected: UserID=%s Conn=%s (local connections left: %d)", client.UserID, client.ID, h.hub.ConnectionCount(client.UserID))
	}()
}

// handleWSMessage processes incoming WebSocket messages from clients
func (h *WSHandler) handleWSMessage(client *ws.Client, event model.WSEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), wsRequestTimeout)
	defer cancel()

	var err error
	switch event.Type {
	case model.WSEventSendMessage:
		err = h.handleSendMessage(ctx, client, event)
	case model.WSEventMarkSeen:
		err = h.handleMarkSeen(ctx, client, event)
	case model.WSEventTyping, model.WSEventStopTyping:
		err = h.handleTyping(ctx, client, event)
	default:
		err = appErrors.InvalidArg("", "unknown event type: "+event.Type)
	}

	if err != nil {
		_, resp := errorResponse(err)
		client.Reply(&model.WSEvent{
			Type: model.WSEventError,
			Payload: model.ErrorEvent{
				Code:    resp.Code,
				Reason:  resp.Reason,
				Message: resp.Error,
			},
		})
	}
}

func decodePayload(event model.WSEvent, dst interface{}) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err == nil {
		err = json.Unmarshal(payloadBytes, dst)
	}
	if err != nil {
		return appErrors.InvalidArg("", "malformed "+event.Type+" payload")
	}
	return nil
}

// handleSendMessage sends into an existing conversation or, with recipient_id,
// into the direct conversation with that user. Recipients learn about it from
// the service's new-message event.
func (h *WSHandler) handleSendMessage(ctx context.Context, client *ws.Client, event model.WSEvent) error {
	var payload struct {
		ConversationID *uuid.UUID `json:"conversation_id"`
		RecipientID    *uuid.UUID `json:"recipient_id"`
		model.SendMessageRequest
	}
	if err := decodePayload(event, &payload); err != nil {
		return err
	}

	switch {
	case payload.ConversationID != nil:
		_, err := h.chatService.SendMessage(ctx, client.UserID, *payload.ConversationID, payload.SendMessageRequest)
		return err
	case payload.RecipientID != nil:
		_, err := h.chatService.SendDirect(ctx, client.UserID, *payload.RecipientID, payload.SendMessageRequest)
		return err
	default:
		return appErrors.InvalidArg("", "conversation_id or recipient_id is required")
	}
}

func (h *WSHandler) handleMarkSeen(ctx context.Context, client *ws.Client, event model.WSEvent) error {
	var payload struct {
		ConversationID uuid.UUID `json:"conversation_id"`
	}
	if err := decodePayload(event, &payload); err != nil {
		return err
	}

	_, err := h.chatService.MarkSeen(ctx, client.UserID, payload.ConversationID)
	return err
}

// handleTyping relays typing indicators to the other members
func (h *WSHandler) handleTyping(ctx context.Context, client *ws.Client, event model.WSEvent) error {
	var payload struct {
		ConversationID uuid.UUID `json:"conversation_id"`
	}
	if err := decodePayload(event, &payload); err != nil {
		return err
	}

	memberIDs, err := h.chatService.ParticipantIDs(ctx, client.UserID, payload.ConversationID)
	if err != nil {
		return err
	}

	typingEvent := &model.WSEvent{
		Type: event.Type,
		Payload: model.TypingEvent{
			ConversationID: payload.ConversationID,
			UserID:         client.UserID,
			Name:           client.Name,
		},
	}

	others := make([]uuid.UUID, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		if memberID != client.UserID {
			others = append(others, memberID)
		}
	}
	h.hub.SendToUsers(others, typingEvent)
	return nil
}
