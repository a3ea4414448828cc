package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/calendar"
	"github.com/quocanhngo/gotalk-core/internal/delivery"
	"github.com/quocanhngo/gotalk-core/internal/directrequest"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/quocanhngo/gotalk-core/internal/repository"
	"github.com/quocanhngo/gotalk-core/internal/streak"
	appErrors "github.com/quocanhngo/gotalk-core/pkg/errors"
	"github.com/quocanhngo/gotalk-core/pkg/keylock"
)

// UserDirectory checks that referenced accounts exist
type UserDirectory interface {
	Exists(ctx context.Context, ids []uuid.UUID) (bool, error)
}

// ChatDeps wires the collaborators of ChatService. Pusher and Media are optional.
type ChatDeps struct {
	Store       repository.Store
	Relations   repository.RelationStore
	Users       UserDirectory
	Tracker     *delivery.Tracker
	Calendar    calendar.Calendar
	Events      Broadcaster
	Pusher      Pusher
	Media       MediaRemover
	RetryBudget int
	Now         func() time.Time
}

// ChatService handles chat business logic
type ChatService struct {
	store       repository.Store
	relations   repository.RelationStore
	users       UserDirectory
	tracker     *delivery.Tracker
	calendar    calendar.Calendar
	streaks     *streak.Engine
	events      Broadcaster
	pusher      Pusher
	media       MediaRemover
	locks       *keylock.KeyLock
	retryBudget int
	now         func() time.Time
}

func NewChatService(deps ChatDeps) *ChatService {
	s := &ChatService{
		store:       deps.Store,
		relations:   deps.Relations,
		users:       deps.Users,
		tracker:     deps.Tracker,
		calendar:    deps.Calendar,
		streaks:     streak.NewEngine(deps.Calendar),
		events:      deps.Events,
		pusher:      deps.Pusher,
		media:       deps.Media,
		locks:       keylock.New(),
		retryBudget: deps.RetryBudget,
		now:         deps.Now,
	}
	if s.retryBudget <= 0 {
		s.retryBudget = DefaultRetryBudget
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// relation looks up the friend-graph state between two users
func (s *ChatService) relation(ctx context.Context, a, b uuid.UUID) (directrequest.Relation, error) {
	var rel directrequest.Relation
	var err error

	if rel.Friends, err = s.relations.AreFriends(ctx, a, b); err != nil {
		return rel, appErrors.Internal("failed to check friendship", err)
	}
	if rel.Blocked, err = s.relations.IsBlocked(ctx, a, b); err != nil {
		return rel, appErrors.Internal("failed to check block", err)
	}
	if rel.Restricted, err = s.relations.IsRestricted(ctx, a, b); err != nil {
		return rel, appErrors.Internal("failed to check restriction", err)
	}
	return rel, nil
}

func (s *ChatService) ensureUsers(ctx context.Context, ids ...uuid.UUID) error {
	ok, err := s.users.Exists(ctx, ids)
	if err != nil {
		return appErrors.Internal("failed to look up users", err)
	}
	if !ok {
		return appErrors.ErrUserNotFound
	}
	return nil
}

// CreateGroup creates a group conversation with the creator as admin
func (s *ChatService) CreateGroup(ctx context.Context, creatorID uuid.UUID, req model.CreateGroupRequest) (*model.ConversationSnapshot, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len([]rune(name)) > 100 {
		return nil, appErrors.ErrGroupName
	}

	now := s.now()
	members := []model.Participant{{UserID: creatorID, Role: model.MemberRoleAdmin, JoinedAt: now}}
	seen := map[uuid.UUID]bool{creatorID: true}
	others := []uuid.UUID{}
	for _, id := range req.MemberIDs {
		if seen[id] {
			continue // Skip duplicates and the creator
		}
		seen[id] = true
		others = append(others, id)
		members = append(members, model.Participant{UserID: id, Role: model.MemberRoleMember, JoinedAt: now})
	}
	if len(others) == 0 {
		return nil, appErrors.ErrInvalidParticipants
	}
	if err := s.ensureUsers(ctx, others...); err != nil {
		return nil, err
	}

	conv := &model.Conversation{
		Type:         model.ConversationTypeGroup,
		Name:         name,
		CreatorID:    &creatorID,
		Participants: members,
		CreatedAt:    now,
	}
	if err := s.store.Conversations().Create(ctx, conv); err != nil {
		return nil, appErrors.Internal("failed to create conversation", err)
	}

	snap := conv.Snapshot()
	return &snap, nil
}

// GetOrCreateDirect returns the direct conversation between two users,
// creating an empty one when none exists yet.
func (s *ChatService) GetOrCreateDirect(ctx context.Context, callerID, otherID uuid.UUID) (*model.ConversationSnapshot, bool, error) {
	if callerID == otherID {
		return nil, false, appErrors.ErrSelfTarget
	}
	if err := s.ensureUsers(ctx, otherID); err != nil {
		return nil, false, err
	}

	unlock := s.locks.Lock(pairKey(callerID, otherID))
	defer unlock()

	conv, err := s.store.Conversations().FindDirect(ctx, callerID, otherID)
	if err == nil {
		snap, err := s.normalized(ctx, conv, callerID)
		return snap, false, err
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, appErrors.Internal("failed to find conversation", err)
	}

	rel, err := s.relation(ctx, callerID, otherID)
	if err != nil {
		return nil, false, err
	}
	if rel.Blocked {
		return nil, false, appErrors.ErrBlocked
	}
	if rel.Restricted {
		return nil, false, appErrors.ErrRestricted
	}

	conv = s.newDirect(callerID, otherID, directrequest.Initial(rel))
	if err := s.store.Conversations().Create(ctx, conv); err != nil {
		return nil, false, appErrors.Internal("failed to create conversation", err)
	}

	snap := conv.Snapshot()
	return &snap, true, nil
}

func (s *ChatService) newDirect(a, b uuid.UUID, req model.DirectRequest) *model.Conversation {
	now := s.now()
	return &model.Conversation{
		Type:      model.ConversationTypeDirect,
		CreatorID: &a,
		Request:   req,
		Participants: []model.Participant{
			{UserID: a, Role: model.MemberRoleMember, JoinedAt: now},
			{UserID: b, Role: model.MemberRoleMember, JoinedAt: now},
		},
		CreatedAt: now,
	}
}

// SendDirect sends a message to another user, creating the direct
// conversation on the first message.
func (s *ChatService) SendDirect(ctx context.Context, senderID, recipientID uuid.UUID, req model.SendMessageRequest) (*model.SendMessageResponse, error) {
	if senderID == recipientID {
		return nil, appErrors.ErrSelfTarget
	}
	if err := validateMessage(req); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(pairKey(senderID, recipientID))
	defer unlock()

	conv, err := s.store.Conversations().FindDirect(ctx, senderID, recipientID)
	if err == nil {
		return s.SendMessage(ctx, senderID, conv.ID, req)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, appErrors.Internal("failed to find conversation", err)
	}
	if err := s.ensureUsers(ctx, recipientID); err != nil {
		return nil, err
	}

	rel, err := s.relation(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	decision, err := directrequest.AuthorizeSend(directrequest.Initial(rel), senderID, recipientID, rel)
	if err != nil {
		return nil, err
	}

	var resp *model.SendMessageResponse
	err = s.transact(ctx, func(tx repository.Store, out *outbox) error {
		conv := s.newDirect(senderID, recipientID, decision.Next)
		if err := tx.Conversations().Create(ctx, conv); err != nil {
			return err
		}
		resp, err = s.persistMessage(ctx, tx, conv, senderID, req, out)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// SendMessage sends a message to an existing conversation
func (s *ChatService) SendMessage(ctx context.Context, senderID, convID uuid.UUID, req model.SendMessageRequest) (*model.SendMessageResponse, error) {
	if err := validateMessage(req); err != nil {
		return nil, err
	}

	var resp *model.SendMessageResponse
	err := s.mutate(ctx, convID, func(tx repository.Store, conv *model.Conversation, out *outbox) error {
		if !conv.IsParticipant(senderID) {
			return appErrors.ErrNotMember
		}

		if conv.IsDirect() {
			recipientID, _ := conv.OtherParticipant(senderID)
			rel, err := s.relation(ctx, senderID, recipientID)
			if err != nil {
				return err
			}
			decision, err := directrequest.AuthorizeSend(conv.Request, senderID, recipientID, rel)
			if err != nil {
				return err
			}
			statusChanged := decision.Next.Status != conv.Request.Status
			conv.Request = decision.Next
			if statusChanged {
				out.emit(conv.ParticipantIDs(), model.WSEventDirectRequestUpdated, model.DirectRequestEvent{
					ConversationID: conv.ID,
					Request:        conv.Request,
				})
			}
		}

		var err error
		resp, err = s.persistMessage(ctx, tx, conv, senderID, req, out)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func validateMessage(req model.SendMessageRequest) error {
	if strings.TrimSpace(req.Content) == "" && len(req.Attachments) == 0 {
		return appErrors.ErrEmptyMessage
	}
	return nil
}

// persistMessage stores the message and applies delivery, unread and streak
// bookkeeping to conv before saving it.
func (s *ChatService) persistMessage(ctx context.Context, tx repository.Store, conv *model.Conversation, senderID uuid.UUID, req model.SendMessageRequest, out *outbox) (*model.SendMessageResponse, error) {
	now := s.now()

	msgType := req.Type
	if msgType == "" {
		msgType = model.MessageTypeText
		if len(req.Attachments) > 0 {
			msgType = req.Attachments[0].Type.MessageType()
		}
	}

	msg := &model.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        req.Content,
		Type:           msgType,
		ReplyToID:      req.ReplyToID,
		CreatedAt:      now,
	}
	for _, att := range req.Attachments {
		msg.Attachments = append(msg.Attachments, model.MessageAttachment{
			Type:      att.Type,
			URL:       att.URL,
			FileName:  att.FileName,
			FileSize:  att.FileSize,
			MimeType:  att.MimeType,
			CreatedAt: now,
		})
	}

	s.tracker.StampOnCreate(conv, msg)
	if err := tx.Messages().Create(ctx, msg); err != nil {
		return nil, err
	}

	delivery.RecordMessage(conv, msg)
	s.applyStreak(conv, senderID, now, out)

	if err := tx.Conversations().Save(ctx, conv); err != nil {
		return nil, err
	}

	snap := conv.Snapshot()
	out.emit(conv.ParticipantIDs(), model.WSEventNewMessage, model.NewMessageEvent{
		Conversation: snap,
		Message:      *msg,
	})
	for _, id := range s.tracker.Unreachable(conv, senderID) {
		out.notify(id, msg)
	}

	return &model.SendMessageResponse{Conversation: snap, Message: *msg}, nil
}

// applyStreak runs the streak engine for a persisted message. Failures are
// logged and leave the counter untouched so the message still goes out.
func (s *ChatService) applyStreak(conv *model.Conversation, senderID uuid.UUID, at time.Time, out *outbox) {
	today := s.calendar.DayKey(at)

	days := make(map[uuid.UUID]string, len(conv.Participants))
	for _, p := range conv.Participants {
		if p.LastMessageDay != "" {
			days[p.UserID] = p.LastMessageDay
		}
	}

	res, err := s.streaks.Apply(streak.State{
		Count:          conv.Streak.Count,
		LastCountedDay: conv.Streak.LastCountedDay,
		MissLevel:      conv.Streak.MissLevel,
	}, streak.Activity{
		Today:        today,
		SenderID:     senderID,
		Participants: conv.ParticipantIDs(),
		Days:         days,
		Direct:       conv.IsDirect(),
	})
	if err != nil {
		log.Printf("⚠️ Streak frozen for conversation %s: %v", conv.ID, err)
		if p := conv.Participant(senderID); p != nil {
			p.LastMessageDay = today
		}
		return
	}

	conv.Streak = model.Streak{
		Count:          res.State.Count,
		LastCountedDay: res.State.LastCountedDay,
		MissLevel:      res.State.MissLevel,
	}
	for id, day := range res.Days {
		if p := conv.Participant(id); p != nil {
			p.LastMessageDay = day
		}
	}

	ids := conv.ParticipantIDs()
	if res.Lost {
		out.emit(ids, model.WSEventStreakLost, model.StreakLostEvent{ConversationID: conv.ID})
	}
	out.emit(ids, model.WSEventStreakUpdated, model.StreakUpdatedEvent{
		ConversationID: conv.ID,
		Count:          res.State.Count,
		MissLevel:      res.State.MissLevel,
		LastCountedDay: res.State.LastCountedDay,
		AtRisk:         res.AtRisk,
		Deadline:       res.Deadline,
		RecoveryMode:   string(res.Recovery),
	})
	if res.Milestone > 0 {
		out.emit(ids, model.WSEventStreakMilestone, model.StreakMilestoneEvent{
			ConversationID: conv.ID,
			Count:          res.Milestone,
		})
	}
}

// AcceptRequest accepts a pending direct request as its responder
func (s *ChatService) AcceptRequest(ctx context.Context, callerID, convID uuid.UUID) (*model.ConversationSnapshot, error) {
	var snap model.ConversationSnapshot
	err := s.mutate(ctx, convID, func(tx repository.Store, conv *model.Conversation, out *outbox) error {
		if !conv.IsParticipant(callerID) {
			return appErrors.ErrNotMember
		}
		if !conv.IsDirect() {
			return appErrors.ErrNotDirect
		}

		otherID, _ := conv.OtherParticipant(callerID)
		rel, err := s.relation(ctx, callerID, otherID)
		if err != nil {
			return err
		}

		next, changed, err := directrequest.Accept(conv.Request, callerID, rel, s.now())
		if err != nil {
			return err
		}
		if changed {
			conv.Request = next
			if err := tx.Conversations().Save(ctx, conv); err != nil {
				return err
			}
			out.emit(conv.ParticipantIDs(), model.WSEventDirectRequestUpdated, model.DirectRequestEvent{
				ConversationID: conv.ID,
				Request:        conv.Request,
			})
		}

		snap = conv.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// RejectRequest rejects a pending direct request. The conversation and its
// messages are deleted for both participants.
func (s *ChatService) RejectRequest(ctx context.Context, callerID, convID uuid.UUID) error {
	return s.mutate(ctx, convID, func(tx repository.Store, conv *model.Conversation, out *outbox) error {
		if !conv.IsParticipant(callerID) {
			return appErrors.ErrNotMember
		}
		if !conv.IsDirect() {
			return appErrors.ErrNotDirect
		}

		otherID, _ := conv.OtherParticipant(callerID)
		rel, err := s.relation(ctx, callerID, otherID)
		if err != nil {
			return err
		}
		if err := directrequest.CanReject(conv.Request, callerID, rel); err != nil {
			return err
		}

		return s.destroy(ctx, tx, conv, callerID, model.WSEventConversationRemoved, out)
	})
}

// ClearConversation deletes a direct conversation and its history for both sides
func (s *ChatService) ClearConversation(ctx context.Context, callerID, convID uuid.UUID) error {
	return s.mutate(ctx, convID, func(tx repository.Store, conv *model.Conversation, out *outbox) error {
		if !conv.IsParticipant(callerID) {
			return appErrors.ErrNotMember
		}
		if !conv.IsDirect() {
			return appErrors.ErrNotDirect
		}
		return s.destroy(ctx, tx, conv, callerID, model.WSEventConversationCleared, out)
	})
}

func (s *ChatService) destroy(ctx context.Context, tx repository.Store, conv *model.Conversation, by uuid.UUID, eventType string, out *outbox) error {
	urls, err := tx.Messages().AttachmentURLs(ctx, conv.ID)
	if err != nil {
		return fmt.Errorf("failed to list attachments: %w", err)
	}
	if err := tx.Conversations().Delete(ctx, conv.ID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	out.media = append(out.media, urls...)
	out.emit(conv.ParticipantIDs(), eventType, model.ConversationRemovedEvent{
		ConversationID: conv.ID,
		By:             by,
	})
	return nil
}

// MarkSeen marks everything the caller received in a conversation as seen.
// It does nothing when the caller wrote the last message.
func (s *ChatService) MarkSeen(ctx context.Context, readerID, convID uuid.UUID) (*model.ConversationSnapshot, error) {
	var snap model.ConversationSnapshot
	err := s.mutate(ctx, convID, func(tx repository.Store, conv *model.Conversation, out *outbox) error {
		if !conv.IsParticipant(readerID) {
			return appErrors.ErrNotMember
		}

		batch, ok, err := s.tracker.MarkSeen(ctx, tx.Messages(), conv, readerID, s.now())
		if err != nil {
			return err
		}
		if ok {
			if err := tx.Conversations().Save(ctx, conv); err != nil {
				return err
			}
			last := conv.LastMessage
			out.emit(batch.Participants, model.WSEventReadMessage, model.ReadMessageEvent{
				ConversationID: conv.ID,
				UserID:         readerID,
				LastMessage:    &last,
			})
			if len(batch.MessageIDs) > 0 {
				out.emit(batch.Participants, model.WSEventMessagesSeen, model.MessagesSeenEvent{
					ConversationID: conv.ID,
					MessageIDs:     batch.MessageIDs,
					SeenBy:         readerID,
					SeenAt:         batch.At,
				})
			}
		}

		snap = conv.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// HandleConnect delivers messages that piled up while the user was away
func (s *ChatService) HandleConnect(ctx context.Context, userID uuid.UUID) error {
	convs, err := s.store.Conversations().ListDirectByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list direct conversations: %w", err)
	}

	batches, err := s.tracker.DeliverPending(ctx, s.store.Messages(), convs, userID, s.now())
	for _, b := range batches {
		s.events.SendToUsers(b.Participants, &model.WSEvent{
			Type: model.WSEventMessagesDelivered,
			Payload: model.MessagesDeliveredEvent{
				ConversationID: b.ConversationID,
				MessageIDs:     b.MessageIDs,
				DeliveredAt:    b.At,
			},
		})
	}
	return err
}

// NormalizeFriendship forces the direct conversation between two new
// friends to accepted
func (s *ChatService) NormalizeFriendship(ctx context.Context, a, b uuid.UUID) error {
	conv, err := s.store.Conversations().FindDirect(ctx, a, b)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return appErrors.Internal("failed to find conversation", err)
	}
	_, err = s.normalized(ctx, conv, a)
	return err
}

// normalized returns the snapshot of a direct conversation, first moving its
// request to accepted when the participants have become friends.
func (s *ChatService) normalized(ctx context.Context, conv *model.Conversation, viewerID uuid.UUID) (*model.ConversationSnapshot, error) {
	if !conv.IsDirect() || conv.Request.Status == model.RequestStatusAccepted {
		snap := conv.Snapshot()
		return &snap, nil
	}

	otherID, _ := conv.OtherParticipant(viewerID)
	rel, err := s.relation(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}
	if !rel.Friends {
		snap := conv.Snapshot()
		return &snap, nil
	}

	var snap model.ConversationSnapshot
	err = s.mutate(ctx, conv.ID, func(tx repository.Store, fresh *model.Conversation, out *outbox) error {
		next, changed := directrequest.Normalize(fresh.Request, rel)
		if changed {
			fresh.Request = next
			if err := tx.Conversations().Save(ctx, fresh); err != nil {
				return err
			}
			out.emit(fresh.ParticipantIDs(), model.WSEventDirectRequestUpdated, model.DirectRequestEvent{
				ConversationID: fresh.ID,
				Request:        fresh.Request,
			})
		}
		snap = fresh.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListConversations returns all conversations of a user, most recent first
func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID) ([]model.ConversationSnapshot, error) {
	convs, err := s.store.Conversations().ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal("failed to list conversations", err)
	}

	result := make([]model.ConversationSnapshot, 0, len(convs))
	for i := range convs {
		snap, err := s.normalized(ctx, &convs[i], userID)
		if err != nil {
			return nil, err
		}
		result = append(result, *snap)
	}
	return result, nil
}

// GetConversation returns a conversation the user belongs to
func (s *ChatService) GetConversation(ctx context.Context, userID, convID uuid.UUID) (*model.ConversationSnapshot, error) {
	conv, err := s.member(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	return s.normalized(ctx, conv, userID)
}

// GetMessages returns paginated messages for a conversation, newest first
func (s *ChatService) GetMessages(ctx context.Context, userID, convID uuid.UUID, before *uuid.UUID, limit int) ([]model.Message, error) {
	if _, err := s.member(ctx, userID, convID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	msgs, err := s.store.Messages().ListByConversation(ctx, convID, before, limit)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, appErrors.ErrInvalidCursor
	}
	if err != nil {
		return nil, appErrors.Internal("failed to list messages", err)
	}
	return msgs, nil
}

// ParticipantIDs returns the member IDs of a conversation the user belongs to
func (s *ChatService) ParticipantIDs(ctx context.Context, userID, convID uuid.UUID) ([]uuid.UUID, error) {
	conv, err := s.member(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	return conv.ParticipantIDs(), nil
}

func (s *ChatService) member(ctx context.Context, userID, convID uuid.UUID) (*model.Conversation, error) {
	conv, err := s.store.Conversations().FindByID(ctx, convID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, appErrors.ErrConversationNotFound
	}
	if err != nil {
		return nil, appErrors.Internal("failed to load conversation", err)
	}
	if !conv.IsParticipant(userID) {
		return nil, appErrors.ErrNotMember
	}
	return conv, nil
}
