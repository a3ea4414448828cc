// Package memory is an in-process implementation of the repository stores
// for service and handler tests. Transactions snapshot and restore state.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/quocanhngo/gotalk-core/internal/repository"
)

type pair [2]uuid.UUID

func directed(a, b uuid.UUID) pair { return pair{a, b} }

func unordered(a, b uuid.UUID) pair {
	lo, hi := model.OrderedPair(a, b)
	return pair{lo, hi}
}

type state struct {
	conversations map[uuid.UUID]*model.Conversation
	messages      map[uuid.UUID][]*model.Message
	users         map[uuid.UUID]bool
	friends       map[pair]bool
	blocks        map[pair]bool
	restrictions  map[pair]bool
}

func newState() state {
	return state{
		conversations: map[uuid.UUID]*model.Conversation{},
		messages:      map[uuid.UUID][]*model.Message{},
		users:         map[uuid.UUID]bool{},
		friends:       map[pair]bool{},
		blocks:        map[pair]bool{},
		restrictions:  map[pair]bool{},
	}
}

func (s state) clone() state {
	cp := newState()
	for id, c := range s.conversations {
		cp.conversations[id] = c.Clone()
	}
	for id, msgs := range s.messages {
		list := make([]*model.Message, len(msgs))
		for i, m := range msgs {
			list[i] = cloneMessage(m)
		}
		cp.messages[id] = list
	}
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.friends {
		cp.friends[k] = v
	}
	for k, v := range s.blocks {
		cp.blocks[k] = v
	}
	for k, v := range s.restrictions {
		cp.restrictions[k] = v
	}
	return cp
}

func cloneMessage(m *model.Message) *model.Message {
	cp := *m
	cp.Attachments = append([]model.MessageAttachment(nil), m.Attachments...)
	return &cp
}

// Store keeps everything in maps guarded by one mutex. Transactions are
// serialized and roll back by restoring a snapshot taken on entry.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data state

	conflicts int
}

func New() *Store {
	return &Store{data: newState()}
}

// AddUser registers known account IDs
func (s *Store) AddUser(ids ...uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.data.users[id] = true
	}
}

// AddFriendship records an accepted friendship
func (s *Store) AddFriendship(a, b uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.friends[unordered(a, b)] = true
}

// RemoveFriendship deletes a friendship, as the friend-graph service would
func (s *Store) RemoveFriendship(a, b uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.friends, unordered(a, b))
}

// InjectConflicts makes the next n Save calls fail with ErrConflict
func (s *Store) InjectConflicts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = n
}

// MessageCount returns how many messages a conversation holds
func (s *Store) MessageCount(conversationID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.messages[conversationID])
}

func (s *Store) Conversations() repository.ConversationStore { return conversationStore{s} }

func (s *Store) Messages() repository.MessageStore { return messageStore{s} }

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Exists reports whether every ID was registered with AddUser
func (s *Store) Exists(ctx context.Context, ids []uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if !s.data.users[id] {
			return false, nil
		}
	}
	return true, nil
}

type conversationStore struct{ s *Store }

func (c conversationStore) Create(ctx context.Context, conv *model.Conversation) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	now := time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now
	for i := range conv.Participants {
		conv.Participants[i].ConversationID = conv.ID
	}
	c.s.data.conversations[conv.ID] = conv.Clone()
	return nil
}

func (c conversationStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	conv, ok := c.s.data.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return conv.Clone(), nil
}

func (c conversationStore) FindDirect(ctx context.Context, userA, userB uuid.UUID) (*model.Conversation, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	for _, conv := range c.s.data.conversations {
		if conv.IsDirect() && conv.IsParticipant(userA) && conv.IsParticipant(userB) {
			return conv.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (c conversationStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	return c.list(userID, false), nil
}

func (c conversationStore) ListDirectByUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	return c.list(userID, true), nil
}

func (c conversationStore) list(userID uuid.UUID, directOnly bool) []model.Conversation {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	out := []model.Conversation{}
	for _, conv := range c.s.data.conversations {
		if !conv.IsParticipant(userID) || (directOnly && !conv.IsDirect()) {
			continue
		}
		out = append(out, *conv.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return activity(&out[i]).After(activity(&out[j]))
	})
	return out
}

func activity(c *model.Conversation) time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

func (c conversationStore) Save(ctx context.Context, conv *model.Conversation) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	stored, ok := c.s.data.conversations[conv.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if c.s.conflicts > 0 {
		c.s.conflicts--
		return repository.ErrConflict
	}
	if stored.Version != conv.Version {
		return repository.ErrConflict
	}

	conv.Version++
	conv.UpdatedAt = time.Now()
	c.s.data.conversations[conv.ID] = conv.Clone()
	return nil
}

func (c conversationStore) Delete(ctx context.Context, id uuid.UUID) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.data.conversations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(c.s.data.conversations, id)
	delete(c.s.data.messages, id)
	return nil
}

type messageStore struct{ s *Store }

func (m messageStore) Create(ctx context.Context, msg *model.Message) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	for i := range msg.Attachments {
		if msg.Attachments[i].ID == uuid.Nil {
			msg.Attachments[i].ID = uuid.New()
		}
		msg.Attachments[i].MessageID = msg.ID
	}
	m.s.data.messages[msg.ConversationID] = append(m.s.data.messages[msg.ConversationID], cloneMessage(msg))
	return nil
}

// ListByConversation returns newest first, paging by insertion order
func (m messageStore) ListByConversation(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]model.Message, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	msgs := m.s.data.messages[conversationID]
	end := len(msgs)
	if before != nil {
		end = -1
		for i, msg := range msgs {
			if msg.ID == *before {
				end = i
				break
			}
		}
		if end < 0 {
			return nil, repository.ErrNotFound
		}
	}

	out := []model.Message{}
	for i := end - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *cloneMessage(msgs[i]))
	}
	return out, nil
}

func (m messageStore) MarkDelivered(ctx context.Context, conversationID, recipientID uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	ids := []uuid.UUID{}
	for _, msg := range m.s.data.messages[conversationID] {
		if msg.SenderID == recipientID || msg.DeliveredAt != nil {
			continue
		}
		t := at
		msg.DeliveredAt = &t
		ids = append(ids, msg.ID)
	}
	return ids, nil
}

func (m messageStore) MarkSeen(ctx context.Context, conversationID, readerID uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	ids := []uuid.UUID{}
	for _, msg := range m.s.data.messages[conversationID] {
		if msg.SenderID == readerID || msg.SeenAt != nil {
			continue
		}
		t := at
		msg.SeenAt = &t
		if msg.DeliveredAt == nil {
			msg.DeliveredAt = &t
		}
		ids = append(ids, msg.ID)
	}
	return ids, nil
}

func (m messageStore) AttachmentURLs(ctx context.Context, conversationID uuid.UUID) ([]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	urls := []string{}
	for _, msg := range m.s.data.messages[conversationID] {
		for _, a := range msg.Attachments {
			urls = append(urls, a.URL)
		}
	}
	return urls, nil
}

func (s *Store) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.friends[unordered(a, b)], nil
}

func (s *Store) IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.blocks[directed(a, b)] || s.data.blocks[directed(b, a)], nil
}

func (s *Store) IsRestricted(ctx context.Context, a, b uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.restrictions[directed(a, b)] || s.data.restrictions[directed(b, a)], nil
}

func (s *Store) Block(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.blocks[directed(blockerID, blockedID)] = true
	delete(s.data.friends, unordered(blockerID, blockedID))
	return nil
}

func (s *Store) Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.blocks, directed(blockerID, blockedID))
	return nil
}

func (s *Store) Restrict(ctx context.Context, restrictorID, restrictedID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.restrictions[directed(restrictorID, restrictedID)] = true
	return nil
}

func (s *Store) Unrestrict(ctx context.Context, restrictorID, restrictedID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.restrictions, directed(restrictorID, restrictedID))
	return nil
}

var (
	_ repository.Store         = (*Store)(nil)
	_ repository.RelationStore = (*Store)(nil)
)
