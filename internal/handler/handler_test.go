package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/calendar"
	"github.com/quocanhngo/gotalk-core/internal/delivery"
	"github.com/quocanhngo/gotalk-core/internal/middleware"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/quocanhngo/gotalk-core/internal/presence"
	"github.com/quocanhngo/gotalk-core/internal/repository/memory"
	"github.com/quocanhngo/gotalk-core/internal/service"
	"github.com/quocanhngo/gotalk-core/internal/ws"
	"github.com/quocanhngo/gotalk-core/pkg/auth"
	appErrors "github.com/quocanhngo/gotalk-core/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type presenceUsers struct {
	mu     sync.Mutex
	hidden map[uuid.UUID]bool
}

func (u *presenceUsers) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return &model.User{ID: id, ShowOnlineStatus: !u.hidden[id]}, nil
}

func (u *presenceUsers) UpdateOnlineStatus(ctx context.Context, id uuid.UUID, isOnline bool) error {
	return nil
}

func (u *presenceUsers) UpdateOnlineVisibility(ctx context.Context, id uuid.UUID, visible bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.hidden[id] = !visible
	return nil
}

type revocationList struct {
	mu      sync.Mutex
	revoked map[string]bool
	err     error
}

func (r *revocationList) IsRevoked(ctx context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked[token], r.err
}

type testServer struct {
	router      *gin.Engine
	store       *memory.Store
	presence    *service.PresenceService
	jwt         *auth.JWTManager
	revocations *revocationList
	alice       uuid.UUID
	bob         uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		store:       memory.New(),
		jwt:         auth.NewJWTManager("test-secret", time.Hour),
		revocations: &revocationList{revoked: map[string]bool{}},
		alice:       uuid.New(),
		bob:         uuid.New(),
	}
	s.store.AddUser(s.alice, s.bob)

	hub := ws.NewHub(nil)
	registry := presence.NewMemoryRegistry()
	chat := service.NewChatService(service.ChatDeps{
		Store:     s.store,
		Relations: s.store,
		Users:     s.store,
		Tracker:   delivery.NewTracker(registry),
		Calendar:  calendar.NewWithLocation(time.FixedZone("ICT", 7*3600)),
		Events:    hub,
	})
	s.presence = service.NewPresenceService(registry, &presenceUsers{hidden: map[uuid.UUID]bool{}}, chat, hub)

	chatHandler := NewChatHandler(chat)
	relationHandler := NewRelationHandler(service.NewRelationService(s.store, s.store))
	presenceHandler := NewPresenceHandler(s.presence)
	wsHandler := NewWSHandler(hub, chat, s.presence, s.jwt, s.revocations)

	r := gin.New()
	r.GET("/ws", wsHandler.HandleWebSocket)
	api := r.Group("/api/v1", middleware.AuthMiddleware(s.jwt, nil))
	api.GET("/conversations", chatHandler.GetConversations)
	api.POST("/conversations", chatHandler.CreateGroup)
	api.POST("/conversations/direct", chatHandler.GetOrCreateDirect)
	api.GET("/conversations/:id", chatHandler.GetConversation)
	api.DELETE("/conversations/:id", chatHandler.ClearConversation)
	api.GET("/conversations/:id/messages", chatHandler.GetMessages)
	api.POST("/conversations/:id/messages", chatHandler.SendMessage)
	api.POST("/conversations/:id/seen", chatHandler.MarkSeen)
	api.POST("/conversations/:id/request/accept", chatHandler.AcceptRequest)
	api.POST("/conversations/:id/request/reject", chatHandler.RejectRequest)
	api.POST("/users/:id/messages", chatHandler.SendDirect)
	api.POST("/users/:id/block", relationHandler.Block)
	api.DELETE("/users/:id/block", relationHandler.Unblock)
	api.POST("/users/:id/restrict", relationHandler.Restrict)
	api.DELETE("/users/:id/restrict", relationHandler.Unrestrict)
	api.PUT("/presence/visibility", presenceHandler.SetVisibility)
	api.GET("/presence/online", presenceHandler.GetOnlineUsers)
	s.router = r
	return s
}

func (s *testServer) do(t *testing.T, as uuid.UUID, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	token, err := s.jwt.GenerateToken(as, "user@example.com", "User")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestDirectRequestFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, s.alice, http.MethodPost, "/users/"+s.bob.String()+"/messages", gin.H{"content": "hi bob"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sent := decode[model.SendMessageResponse](t, w)
	convID := sent.Conversation.ID
	require.NotNil(t, sent.Conversation.DirectRequest)
	assert.Equal(t, model.RequestStatusPending, sent.Conversation.DirectRequest.Status)

	for _, content := range []string{"hello?", "still there?"} {
		w = s.do(t, s.alice, http.MethodPost, "/users/"+s.bob.String()+"/messages", gin.H{"content": content})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	assert.Equal(t, 3, decode[model.SendMessageResponse](t, w).Conversation.DirectRequest.RequesterMessageCount)

	w = s.do(t, s.alice, http.MethodPost, "/users/"+s.bob.String()+"/messages", gin.H{"content": "one more"})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	errResp := decode[model.ErrorResponse](t, w)
	assert.Equal(t, "LIMIT_REACHED", errResp.Code)
	assert.Equal(t, "request_limit_reached", errResp.Reason)
	assert.Equal(t, 3, s.store.MessageCount(convID))

	w = s.do(t, s.alice, http.MethodPost, "/conversations/"+convID.String()+"/request/accept", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not_responder", decode[model.ErrorResponse](t, w).Reason)

	w = s.do(t, s.bob, http.MethodPost, "/conversations/"+convID.String()+"/request/accept", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decode[model.ConversationSnapshot](t, w)
	assert.Equal(t, model.RequestStatusAccepted, snap.DirectRequest.Status)

	w = s.do(t, s.alice, http.MethodPost, "/conversations/"+convID.String()+"/messages", gin.H{"content": "thanks"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, s.bob, http.MethodGet, "/conversations/"+convID.String()+"/messages?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	messages := decode[[]model.Message](t, w)
	require.Len(t, messages, 4)
	assert.Equal(t, "thanks", messages[0].Content)
	assert.Equal(t, "hi bob", messages[3].Content)
}

func TestRejectRequestRemovesConversation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, s.alice, http.MethodPost, "/users/"+s.bob.String()+"/messages", gin.H{"content": "hi"})
	require.Equal(t, http.StatusCreated, w.Code)
	convID := decode[model.SendMessageResponse](t, w).Conversation.ID

	w = s.do(t, s.bob, http.MethodPost, "/conversations/"+convID.String()+"/request/reject", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, s.alice, http.MethodGet, "/conversations/"+convID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, s.store.MessageCount(convID))
}

func TestBlockDeniesDirectSend(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, s.bob, http.MethodPost, "/users/"+s.alice.String()+"/block", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, s.alice, http.MethodPost, "/users/"+s.bob.String()+"/messages", gin.H{"content": "hi"})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "blocked", decode[model.ErrorResponse](t, w).Reason)

	w = s.do(t, s.bob, http.MethodDelete, "/users/"+s.alice.String()+"/block", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, s.alice, http.MethodPost, "/users/"+s.bob.String()+"/messages", gin.H{"content": "hi"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRelation_SelfAndUnknownTarget(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, s.alice, http.MethodPost, "/users/"+s.alice.String()+"/restrict", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, s.alice, http.MethodPost, "/users/"+uuid.NewString()+"/restrict", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"conversation id", http.MethodGet, "/conversations/not-a-uuid", nil},
		{"user id", http.MethodPost, "/users/not-a-uuid/messages", gin.H{"content": "x"}},
		{"empty message", http.MethodPost, "/users/" + s.bob.String() + "/messages", gin.H{}},
		{"cursor", http.MethodGet, "/conversations/" + uuid.NewString() + "/messages?before=nope", nil},
		{"visibility", http.MethodPut, "/presence/visibility", gin.H{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, s.alice, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "INVALID_ARGUMENT", decode[model.ErrorResponse](t, w).Code)
		})
	}
}

func TestUnauthenticated(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPresenceEndpoints(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	s.presence.Connect(ctx, s.alice, "conn-1")
	s.presence.Connect(ctx, s.bob, "conn-2")

	w := s.do(t, s.alice, http.MethodGet, "/presence/online", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[model.OnlineUsersResponse](t, w).Count)

	w = s.do(t, s.bob, http.MethodPut, "/presence/visibility", gin.H{"visible": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, s.alice, http.MethodGet, "/presence/online", nil)
	require.Equal(t, http.StatusOK, w.Code)
	online := decode[model.OnlineUsersResponse](t, w)
	assert.Equal(t, []uuid.UUID{s.alice}, online.UserIDs)
}

func TestErrorResponse(t *testing.T) {
	status, resp := errorResponse(appErrors.ErrConversationBusy)
	assert.Equal(t, http.StatusConflict, status)
	assert.True(t, resp.Retryable)
	assert.Equal(t, "conversation_busy", resp.Reason)

	status, resp = errorResponse(appErrors.ErrNoPendingRequest)
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, resp.Retryable)

	status, resp = errorResponse(errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL", resp.Code)
	assert.Equal(t, "Internal server error", resp.Error)
}

func TestWebSocketHandshakeAuth(t *testing.T) {
	s := newTestServer(t)
	token, err := s.jwt.GenerateToken(s.alice, "alice@example.com", "Alice")
	require.NoError(t, err)
	revoked, err := s.jwt.GenerateToken(s.bob, "bob@example.com", "Bob")
	require.NoError(t, err)
	s.revocations.revoked[revoked] = true

	handshake := func(query string) int {
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws"+query, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, handshake(""))
	assert.Equal(t, http.StatusUnauthorized, handshake("?token=garbage"))
	assert.Equal(t, http.StatusUnauthorized, handshake("?token="+revoked))
	// Token checks pass; the plain GET then fails the upgrade itself
	assert.Equal(t, http.StatusBadRequest, handshake("?token="+token))

	s.revocations.err = errors.New("redis down")
	assert.Equal(t, http.StatusInternalServerError, handshake("?token="+token))
}
