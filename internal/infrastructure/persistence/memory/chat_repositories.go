package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vitalroute/v1/internal/domain/chat"
	"github.com/vitalroute/v1/internal/ports/outbound"
)

var (
	errSessionNotFound = errors.New("session not found")
	errMessageNotFound = errors.New("message not found")
)

// SessionRepository is an in-memory session store
type SessionRepository struct {
	sessions map[uuid.UUID]*chat.Session
	mutex    sync.RWMutex
}

// NewSessionRepository creates an in-memory session repository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[uuid.UUID]*chat.Session)}
}

// Save stores or replaces a session
func (r *SessionRepository) Save(ctx context.Context, session *chat.Session) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.sessions[session.ID()] = session
	return nil
}

// FindByID retrieves a session by ID
func (r *SessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*chat.Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, errSessionNotFound
	}
	return session, nil
}

// FindReusableByUser returns the most recently active reusable session of
// the given type, or an error when none qualifies
func (r *SessionRepository) FindReusableByUser(ctx context.Context, userID uuid.UUID, sessionType chat.SessionType) (*chat.Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	now := time.Now()
	var best *chat.Session
	for _, s := range r.sessions {
		if s.UserID() != userID || !s.IsReusable(now) {
			continue
		}
		if sessionType != "" && s.Type() != sessionType {
			continue
		}
		if best == nil || s.LastActivityAt().After(best.LastActivityAt()) {
			best = s
		}
	}
	if best == nil {
		return nil, errSessionNotFound
	}
	return best, nil
}

// ListByUser lists a user's sessions, most recently active first
func (r *SessionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*chat.Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*chat.Session
	for _, s := range r.sessions {
		if s.UserID() == userID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastActivityAt().After(result[j].LastActivityAt())
	})
	return result, nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.sessions, id)
	return nil
}

// MessageRepository is an in-memory append-only message store
type MessageRepository struct {
	messages map[uuid.UUID]*chat.Message
	mutex    sync.RWMutex
}

// NewMessageRepository creates an in-memory message repository
func NewMessageRepository() *MessageRepository {
	return &MessageRepository{messages: make(map[uuid.UUID]*chat.Message)}
}

// Save stores or replaces a message
func (r *MessageRepository) Save(ctx context.Context, message *chat.Message) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.messages[message.ID()] = message
	return nil
}

// FindByID retrieves a message by ID
func (r *MessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*chat.Message, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	message, exists := r.messages[id]
	if !exists {
		return nil, errMessageNotFound
	}
	return message, nil
}

// ListBySession lists a session's messages in creation order
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*chat.Message, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*chat.Message
	for _, m := range r.messages {
		if m.SessionID() == sessionID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt().Before(result[j].CreatedAt())
	})
	return result, nil
}

var (
	_ outbound.SessionRepository = (*SessionRepository)(nil)
	_ outbound.MessageRepository = (*MessageRepository)(nil)
)
