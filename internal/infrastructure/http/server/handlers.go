package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	chatapp "github.com/vitalroute/v1/internal/application/chat"
	"github.com/vitalroute/v1/internal/domain/chat"
	"github.com/vitalroute/v1/internal/domain/dietplan"
	"github.com/vitalroute/v1/pkg/errors"
)

// sendMessageRequest is the inbound body for one chat exchange
type sendMessageRequest struct {
	SessionID   string           `json:"session_id,omitempty" validate:"omitempty,uuid4"`
	SessionType string           `json:"session_type,omitempty" validate:"omitempty,oneof=general health_review meal_planning"`
	Content     string           `json:"content" validate:"required,min=1,max=4000"`
	Preferences chat.Preferences `json:"preferences,omitempty"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.NewBadRequestError("invalid JSON body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, errors.NewValidationError(err.Error()))
		return
	}

	cmd := chatapp.SendMessageCommand{
		UserID:      userIDFrom(r.Context()),
		SessionType: chat.SessionType(req.SessionType),
		Content:     req.Content,
		Preferences: req.Preferences,
	}
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			s.writeError(w, errors.NewValidationError("session_id must be a UUID"))
			return
		}
		cmd.SessionID = &id
	}

	result, err := s.chat.SendMessage(r.Context(), cmd)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.ObserveMessage(result.Domain, string(result.Tier),
			string(result.AnswerSource), result.TokensUsed, result.CostCents, result.ProcessingTime)
	}
	s.writeJSON(w, http.StatusOK, result)
}

type executeActionRequest struct {
	Confirmed bool `json:"confirmed"`
}

func (s *Server) handleExecuteAction(w http.ResponseWriter, r *http.Request) {
	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		s.writeError(w, errors.NewValidationError("messageID must be a UUID"))
		return
	}
	actionIndex, err := strconv.Atoi(chi.URLParam(r, "actionIndex"))
	if err != nil {
		s.writeError(w, errors.NewValidationError("actionIndex must be an integer"))
		return
	}

	var req executeActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.NewBadRequestError("invalid JSON body"))
		return
	}

	action, err := s.chat.ExecuteAction(r.Context(), userIDFrom(r.Context()), messageID, actionIndex, req.Confirmed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, action)
}

type sessionView struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	MessageCount   int    `json:"message_count"`
	LastActivityAt string `json:"last_activity_at"`
	ExpiresAt      string `json:"expires_at"`
}

func toSessionView(session *chat.Session) sessionView {
	return sessionView{
		ID:             session.ID().String(),
		Type:           string(session.Type()),
		Status:         string(session.Status()),
		MessageCount:   session.MessageCount(),
		LastActivityAt: session.LastActivityAt().Format(timeFormat),
		ExpiresAt:      session.ExpiresAt().Format(timeFormat),
	}
}

type createSessionRequest struct {
	SessionType string           `json:"session_type,omitempty" validate:"omitempty,oneof=general health_review meal_planning"`
	Preferences chat.Preferences `json:"preferences,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.NewBadRequestError("invalid JSON body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, errors.NewValidationError(err.Error()))
		return
	}

	session, err := s.chat.CreateSession(r.Context(), userIDFrom(r.Context()), chat.SessionType(req.SessionType), req.Preferences)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toSessionView(session))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.chat.Sessions(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, toSessionView(session))
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": views})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, errors.NewValidationError("sessionID must be a UUID"))
		return
	}
	session, err := s.chat.Session(r.Context(), userIDFrom(r.Context()), sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSessionView(session))
}

func (s *Server) handlePauseSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, errors.NewValidationError("sessionID must be a UUID"))
		return
	}
	if err := s.chat.PauseSession(r.Context(), userIDFrom(r.Context()), sessionID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, errors.NewValidationError("sessionID must be a UUID"))
		return
	}
	if err := s.chat.ResumeSession(r.Context(), userIDFrom(r.Context()), sessionID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, errors.NewValidationError("sessionID must be a UUID"))
		return
	}

	messages, err := s.chat.History(r.Context(), userIDFrom(r.Context()), sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	type messageView struct {
		ID        string                `json:"id"`
		Role      string                `json:"role"`
		Content   string                `json:"content"`
		Status    string                `json:"status"`
		Actions   []chat.ActionProposal `json:"actions,omitempty"`
		Tokens    int                   `json:"tokens,omitempty"`
		CostCents float64               `json:"cost_cents,omitempty"`
		CreatedAt string                `json:"created_at"`
	}
	views := make([]messageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, messageView{
			ID:        m.ID().String(),
			Role:      string(m.Role()),
			Content:   m.Content(),
			Status:    string(m.ProcessingStatus()),
			Actions:   m.Actions(),
			Tokens:    m.TokenCount(),
			CostCents: m.CostCents(),
			CreatedAt: m.CreatedAt().Format(timeFormat),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"messages": views})
}

func (s *Server) handleArchiveSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, errors.NewValidationError("sessionID must be a UUID"))
		return
	}
	if err := s.chat.ArchiveSession(r.Context(), userIDFrom(r.Context()), sessionID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.plans.CreateFromProfile(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.History(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
}

func (s *Server) handleActivePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.plans.ActivePlan(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

type transitionRequest struct {
	Choice string `json:"choice" validate:"required,oneof=continue maintain recheck"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.NewBadRequestError("invalid JSON body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, errors.NewValidationError(err.Error()))
		return
	}

	plan, err := s.plans.Transition(r.Context(), userIDFrom(r.Context()), dietplan.TransitionChoice(req.Choice))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

type indexContextRequest struct {
	ContextType string `json:"context_type,omitempty" validate:"omitempty,max=64"`
	Text        string `json:"text" validate:"required,min=1,max=2000"`
}

func (s *Server) handleIndexContext(w http.ResponseWriter, r *http.Request) {
	var req indexContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.NewBadRequestError("invalid JSON body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, errors.NewValidationError(err.Error()))
		return
	}

	if err := s.snippets.Index(r.Context(), userIDFrom(r.Context()), req.ContextType, req.Text); err != nil {
		s.writeError(w, errors.NewPersistenceFailureError("index context", err))
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"status": "indexed"})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.ledger.Snapshot(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ledger":   snapshot,
		"coverage": s.cache.Coverage(r.Context()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Response encoding failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	appErr := errors.Wrap(err, "request failed")
	s.writeJSON(w, appErr.StatusCode(), map[string]interface{}{"error": appErr})
}
