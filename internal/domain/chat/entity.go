// Package chat contains the core domain logic for chat sessions and messages.
// This follows Domain-Driven Design principles with rich domain models.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a chat session
type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusPaused   SessionStatus = "paused"
	SessionStatusArchived SessionStatus = "archived"
	SessionStatusExpired  SessionStatus = "expired"
)

// SessionType categorizes what a session is for
type SessionType string

const (
	SessionTypeGeneral      SessionType = "general"
	SessionTypeHealthReview SessionType = "health_review"
	SessionTypeMealPlanning SessionType = "meal_planning"
)

// MessageRole identifies the author of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleError     MessageRole = "error"
)

// ProcessingStatus represents where a message is in the pipeline
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
	ProcessingOutOfScope ProcessingStatus = "out_of_scope"
)

// RoutingTier is the accuracy/cost class for a routed AI call.
// L1 is used for health-critical interpretation, L2 for general advice.
type RoutingTier string

const (
	TierL1 RoutingTier = "L1"
	TierL2 RoutingTier = "L2"
)

// AnswerSource identifies which stage of the pipeline produced an answer
type AnswerSource string

const (
	SourceSmartCache    AnswerSource = "smart_cache"
	SourceHealthProfile AnswerSource = "health_profile"
	SourceProvider      AnswerSource = "provider"
	SourceLocal         AnswerSource = "local"
)

// Preferences holds per-session user preferences
type Preferences struct {
	Language      string   `json:"language"`
	ResponseStyle string   `json:"response_style"`
	DomainFocus   []string `json:"domain_focus"`
}

// RoutingDecision records how a single external call was routed.
// Written once per call for audit; never mutated.
type RoutingDecision struct {
	RequestType         string      `json:"request_type"`
	Domain              string      `json:"domain"`
	Tier                RoutingTier `json:"tier"`
	Provider            string      `json:"provider"`
	Model               string      `json:"model"`
	AccuracyRequirement string      `json:"accuracy_requirement"`
	EstimatedTokens     int         `json:"estimated_tokens"`
	EstimatedCostCents  float64     `json:"estimated_cost_cents"`
	ForceFreeTier       bool        `json:"force_free_tier"`
	DecidedAt           time.Time   `json:"decided_at"`
}

// Classification is the scope classifier output for a query
type Classification struct {
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence"`
	IsInScope  bool    `json:"is_in_scope"`
}

// MessageMetadata carries pipeline audit data attached to a message
type MessageMetadata struct {
	RoutingDecision      *RoutingDecision `json:"routing_decision,omitempty"`
	DomainClassification *Classification  `json:"domain_classification,omitempty"`
	LanguageTag          string           `json:"language_tag,omitempty"`
	RAGSources           []string         `json:"rag_sources,omitempty"`
	AnswerSource         AnswerSource     `json:"answer_source,omitempty"`
	ProcessingTime       time.Duration    `json:"processing_time,omitempty"`
}

// ActionProposal is a side-effecting suggestion embedded in an assistant
// message (e.g. "log this meal"). It fires only after explicit confirmation.
type ActionProposal struct {
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Payload     map[string]string `json:"payload,omitempty"`
	Executed    bool              `json:"executed"`
}

// Session is the aggregate root for a user's conversation.
// It is owned exclusively by one user; there is no cross-user sharing.
type Session struct {
	id             uuid.UUID
	userID         uuid.UUID
	sessionType    SessionType
	status         SessionStatus
	preferences    Preferences
	messageCount   int
	lastActivityAt time.Time
	createdAt      time.Time
	expiresAt      time.Time
}

// NewSession creates a new active session for a user
func NewSession(userID uuid.UUID, sessionType SessionType, prefs Preferences, ttl time.Duration) *Session {
	now := time.Now()
	if sessionType == "" {
		sessionType = SessionTypeGeneral
	}
	if prefs.Language == "" {
		prefs.Language = "en"
	}
	return &Session{
		id:             uuid.New(),
		userID:         userID,
		sessionType:    sessionType,
		status:         SessionStatusActive,
		preferences:    prefs,
		lastActivityAt: now,
		createdAt:      now,
		expiresAt:      now.Add(ttl),
	}
}

// RestoreSession rebuilds a session from persisted state
func RestoreSession(
	id, userID uuid.UUID,
	sessionType SessionType,
	status SessionStatus,
	prefs Preferences,
	messageCount int,
	lastActivityAt, createdAt, expiresAt time.Time,
) *Session {
	return &Session{
		id:             id,
		userID:         userID,
		sessionType:    sessionType,
		status:         status,
		preferences:    prefs,
		messageCount:   messageCount,
		lastActivityAt: lastActivityAt,
		createdAt:      createdAt,
		expiresAt:      expiresAt,
	}
}

// ID returns the session ID
func (s *Session) ID() uuid.UUID { return s.id }

// UserID returns the owning user's ID
func (s *Session) UserID() uuid.UUID { return s.userID }

// Type returns the session type
func (s *Session) Type() SessionType { return s.sessionType }

// Status returns the session status
func (s *Session) Status() SessionStatus { return s.status }

// Preferences returns the session preferences
func (s *Session) Preferences() Preferences { return s.preferences }

// MessageCount returns the number of completed message exchanges
func (s *Session) MessageCount() int { return s.messageCount }

// LastActivityAt returns the time of the last completed exchange
func (s *Session) LastActivityAt() time.Time { return s.lastActivityAt }

// CreatedAt returns when the session was created
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// ExpiresAt returns the session expiry deadline
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// IsExpired reports whether the session passed its expiry deadline
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.expiresAt)
}

// IsReusable reports whether a new message may reuse this session.
// Only active, unexpired sessions accept messages; otherwise the caller
// creates a fresh session transparently.
func (s *Session) IsReusable(now time.Time) bool {
	return s.status == SessionStatusActive && !s.IsExpired(now)
}

// RecordExchange updates activity bookkeeping after a completed exchange
func (s *Session) RecordExchange(now time.Time) {
	s.messageCount++
	s.lastActivityAt = now
}

// Pause suspends an active session. New tasks tied to the session stop
// starting; in-flight tasks run to completion.
func (s *Session) Pause() error {
	if s.status != SessionStatusActive {
		return ErrInvalidSessionTransition
	}
	s.status = SessionStatusPaused
	return nil
}

// Resume reactivates a paused session
func (s *Session) Resume(now time.Time) error {
	if s.status != SessionStatusPaused {
		return ErrInvalidSessionTransition
	}
	if s.IsExpired(now) {
		s.status = SessionStatusExpired
		return ErrSessionExpired
	}
	s.status = SessionStatusActive
	return nil
}

// Archive terminates the session. Archived is terminal.
func (s *Session) Archive() error {
	switch s.status {
	case SessionStatusArchived:
		return ErrInvalidSessionTransition
	default:
		s.status = SessionStatusArchived
		return nil
	}
}

// MarkExpired flips an overdue active session to the expired terminal state
func (s *Session) MarkExpired(now time.Time) bool {
	if s.status == SessionStatusActive && s.IsExpired(now) {
		s.status = SessionStatusExpired
		return true
	}
	return false
}

// Message is an immutable-once-completed conversation entry.
// Ordering invariant: strictly increasing creation timestamps per session.
type Message struct {
	id               uuid.UUID
	sessionID        uuid.UUID
	role             MessageRole
	content          string
	processingStatus ProcessingStatus
	metadata         MessageMetadata
	actions          []ActionProposal
	tokenCount       int
	costCents        float64
	createdAt        time.Time
}

// NewMessage creates a pending message in a session
func NewMessage(sessionID uuid.UUID, role MessageRole, content string) *Message {
	return &Message{
		id:               uuid.New(),
		sessionID:        sessionID,
		role:             role,
		content:          content,
		processingStatus: ProcessingPending,
		createdAt:        time.Now(),
	}
}

// RestoreMessage rebuilds a message from persisted state
func RestoreMessage(
	id, sessionID uuid.UUID,
	role MessageRole,
	content string,
	status ProcessingStatus,
	metadata MessageMetadata,
	actions []ActionProposal,
	tokenCount int,
	costCents float64,
	createdAt time.Time,
) *Message {
	return &Message{
		id:               id,
		sessionID:        sessionID,
		role:             role,
		content:          content,
		processingStatus: status,
		metadata:         metadata,
		actions:          actions,
		tokenCount:       tokenCount,
		costCents:        costCents,
		createdAt:        createdAt,
	}
}

// ID returns the message ID
func (m *Message) ID() uuid.UUID { return m.id }

// SessionID returns the owning session ID
func (m *Message) SessionID() uuid.UUID { return m.sessionID }

// Role returns the message author role
func (m *Message) Role() MessageRole { return m.role }

// Content returns the message text
func (m *Message) Content() string { return m.content }

// ProcessingStatus returns the pipeline status
func (m *Message) ProcessingStatus() ProcessingStatus { return m.processingStatus }

// Metadata returns the pipeline audit metadata
func (m *Message) Metadata() MessageMetadata { return m.metadata }

// Actions returns embedded action proposals
func (m *Message) Actions() []ActionProposal { return m.actions }

// TokenCount returns the tokens consumed answering this message
func (m *Message) TokenCount() int { return m.tokenCount }

// CostCents returns the cost incurred answering this message
func (m *Message) CostCents() float64 { return m.costCents }

// CreatedAt returns the message creation time
func (m *Message) CreatedAt() time.Time { return m.createdAt }

// StartProcessing marks the message as in the pipeline
func (m *Message) StartProcessing() error {
	if m.processingStatus != ProcessingPending {
		return ErrInvalidMessageTransition
	}
	m.processingStatus = ProcessingInProgress
	return nil
}

// Complete finalizes the message with its pipeline results.
// A completed message is immutable.
func (m *Message) Complete(content string, meta MessageMetadata, tokens int, costCents float64) error {
	if m.processingStatus == ProcessingCompleted {
		return ErrMessageImmutable
	}
	m.content = content
	m.metadata = meta
	m.tokenCount = tokens
	m.costCents = costCents
	m.processingStatus = ProcessingCompleted
	return nil
}

// MarkOutOfScope finalizes the message as a successful out-of-scope redirect.
// Out-of-scope is a first-class response, not an error.
func (m *Message) MarkOutOfScope(meta MessageMetadata) error {
	if m.processingStatus == ProcessingCompleted {
		return ErrMessageImmutable
	}
	m.metadata = meta
	m.processingStatus = ProcessingOutOfScope
	return nil
}

// Fail marks the message as failed; the session remains usable
func (m *Message) Fail(meta MessageMetadata) error {
	if m.processingStatus == ProcessingCompleted {
		return ErrMessageImmutable
	}
	m.metadata = meta
	m.processingStatus = ProcessingFailed
	return nil
}

// AttachActions embeds action proposals into an assistant message
func (m *Message) AttachActions(actions []ActionProposal) error {
	if m.processingStatus == ProcessingCompleted {
		return ErrMessageImmutable
	}
	m.actions = actions
	return nil
}

// MarkActionExecuted flags a confirmed, fired action proposal
func (m *Message) MarkActionExecuted(index int) error {
	if index < 0 || index >= len(m.actions) {
		return ErrActionIndexOutOfRange
	}
	m.actions[index].Executed = true
	return nil
}
