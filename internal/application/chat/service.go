package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	dietplanapp "github.com/vitalroute/v1/internal/application/dietplan"
	healthapp "github.com/vitalroute/v1/internal/application/health"
	"github.com/vitalroute/v1/internal/domain/chat"
	"github.com/vitalroute/v1/internal/domain/health"
	"github.com/vitalroute/v1/internal/ports/outbound"
	"github.com/vitalroute/v1/pkg/errors"
)

// ProviderRegistry resolves language model providers by name
type ProviderRegistry interface {
	Provider(name string) (outbound.LLMProvider, bool)
}

// Action types the pipeline can propose. Actions never fire without an
// explicit confirmation round trip.
const (
	ActionCreateDietPlan = "create_diet_plan"
	ActionSaveMealPlan   = "save_meal_plan"
)

const outOfScopeReply = "I can help with health, nutrition, meal planning, and fitness questions. " +
	"That one is outside what I cover - is there anything about your health or diet I can help with?"

// SendMessageCommand is the inbound request for one chat exchange
type SendMessageCommand struct {
	UserID      uuid.UUID
	SessionID   *uuid.UUID
	SessionType chat.SessionType
	Content     string
	Preferences chat.Preferences
}

// SendMessageResult is everything the caller gets back from one exchange
type SendMessageResult struct {
	SessionID         uuid.UUID                             `json:"session_id"`
	MessageID         uuid.UUID                             `json:"message_id"`
	Answer            string                                `json:"answer"`
	AnswerSource      chat.AnswerSource                     `json:"answer_source"`
	Domain            string                                `json:"domain,omitempty"`
	Tier              chat.RoutingTier                      `json:"tier,omitempty"`
	OutOfScope        bool                                  `json:"out_of_scope,omitempty"`
	TokensUsed        int                                   `json:"tokens_used"`
	CostCents         float64                               `json:"cost_cents"`
	Citations         []string                              `json:"citations,omitempty"`
	FollowUpQuestions []string                              `json:"follow_up_questions,omitempty"`
	Actions           []chat.ActionProposal                 `json:"actions,omitempty"`
	TransitionPrompt  *dietplanapp.TransitionRecommendation `json:"transition_prompt,omitempty"`
	ProcessingTime    time.Duration                         `json:"processing_time"`
}

// ChatService orchestrates the full routing pipeline for one message:
// session resolution, classification, the cheap local answer paths, paid
// routing, extraction, and plan follow-up. Every stage after a candidate
// answer exists degrades instead of failing.
type ChatService struct {
	sessions   outbound.SessionRepository
	messages   outbound.MessageRepository
	normalizer outbound.Normalizer
	classifier *ScopeClassifier
	smartCache *SmartQueryCache
	profiles   *healthapp.ProfileService
	retriever  *ContextRetriever
	router     *RoutingEngine
	providers  ProviderRegistry
	plans      *dietplanapp.PlanService
	sessionTTL time.Duration
	retrieval  RetrievalOptions
	logger     *zap.Logger
	now        func() time.Time
}

// NewChatService wires the pipeline
func NewChatService(
	sessions outbound.SessionRepository,
	messages outbound.MessageRepository,
	normalizer outbound.Normalizer,
	classifier *ScopeClassifier,
	smartCache *SmartQueryCache,
	profiles *healthapp.ProfileService,
	retriever *ContextRetriever,
	router *RoutingEngine,
	providers ProviderRegistry,
	plans *dietplanapp.PlanService,
	sessionTTL time.Duration,
	retrieval RetrievalOptions,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		sessions:   sessions,
		messages:   messages,
		normalizer: normalizer,
		classifier: classifier,
		smartCache: smartCache,
		profiles:   profiles,
		retriever:  retriever,
		router:     router,
		providers:  providers,
		plans:      plans,
		sessionTTL: sessionTTL,
		retrieval:  retrieval,
		logger:     logger.Named("chat-service"),
		now:        time.Now,
	}
}

// SendMessage runs one query through the pipeline
func (s *ChatService) SendMessage(ctx context.Context, cmd SendMessageCommand) (*SendMessageResult, error) {
	start := s.now()

	if cmd.Content == "" {
		return nil, errors.NewValidationError("message content must not be empty")
	}

	session, err := s.resolveSession(ctx, cmd)
	if err != nil {
		return nil, err
	}

	userMsg := chat.NewMessage(session.ID(), chat.RoleUser, cmd.Content)
	if err := s.messages.Save(ctx, userMsg); err != nil {
		return nil, errors.NewPersistenceFailureError("save user message", err)
	}

	assistantMsg := chat.NewMessage(session.ID(), chat.RoleAssistant, "")
	assistantMsg.StartProcessing()

	normalized, languageTag := s.normalizer.Normalize(cmd.Content)
	classification := s.classifier.Classify(normalized)

	meta := chat.MessageMetadata{
		DomainClassification: &classification,
		LanguageTag:          languageTag,
	}

	if !classification.IsInScope {
		meta.AnswerSource = chat.SourceLocal
		meta.ProcessingTime = s.now().Sub(start)
		assistantMsg.MarkOutOfScope(meta)
		s.finishExchange(ctx, session, assistantMsg, outOfScopeReply)

		return &SendMessageResult{
			SessionID:      session.ID(),
			MessageID:      assistantMsg.ID(),
			Answer:         outOfScopeReply,
			AnswerSource:   chat.SourceLocal,
			OutOfScope:     true,
			ProcessingTime: meta.ProcessingTime,
		}, nil
	}

	// Cheap path 1: a previously cached answer for this exact pattern.
	if cached, _ := s.smartCache.Lookup(ctx, cmd.UserID, normalized); cached != nil {
		cached.HitCount++
		s.smartCache.Store(ctx, cmd.UserID, normalized, *cached)
		s.smartCache.Record(ctx, cmd.UserID, normalized, chat.SourceSmartCache)

		meta.AnswerSource = chat.SourceSmartCache
		meta.ProcessingTime = s.now().Sub(start)
		assistantMsg.Complete(cached.Answer, meta, 0, 0)
		s.saveAssistant(ctx, session, assistantMsg)

		return s.result(session, assistantMsg, cached.Answer, classification, meta, nil), nil
	}

	// Cheap path 2: render the answer straight from the health profile.
	if insight, _ := s.profiles.InsightForQuery(ctx, cmd.UserID, normalized); insight != nil {
		s.smartCache.Store(ctx, cmd.UserID, normalized, CachedAnswer{
			Answer:     insight.Answer,
			DataSource: chat.SourceHealthProfile,
			Confidence: 1.0,
			Metrics:    []string{insight.Metric},
		})
		s.smartCache.Record(ctx, cmd.UserID, normalized, chat.SourceHealthProfile)

		meta.AnswerSource = chat.SourceHealthProfile
		meta.RAGSources = []string{insight.Source}
		meta.ProcessingTime = s.now().Sub(start)
		assistantMsg.Complete(insight.Answer, meta, 0, 0)
		s.saveAssistant(ctx, session, assistantMsg)

		result := s.result(session, assistantMsg, insight.Answer, classification, meta, nil)
		result.Citations = []string{insight.Source}
		return result, nil
	}

	// Paid path: retrieve context, route, call the model.
	ranked := s.retriever.Retrieve(ctx, cmd.UserID, normalized, classification.Domain, s.retrieval)

	decision, request := s.router.Decide(ctx, cmd.UserID, classification.Domain, cmd.Content, ranked)
	meta.RoutingDecision = decision
	meta.RAGSources = ranked.SourceNames()

	response, err := s.invoke(ctx, decision, request)
	if err != nil {
		meta.ProcessingTime = s.now().Sub(start)
		assistantMsg.Fail(meta)
		s.saveAssistant(ctx, session, assistantMsg)
		return nil, err
	}

	costCents, tokens := s.router.Settle(ctx, cmd.UserID, decision, response.Usage)

	// Extraction pays the call forward. Failures never reach the user;
	// the answer already exists.
	extracted := 0
	if n, extractErr := s.profiles.ExtractAndStore(
		ctx, cmd.UserID, response.Text, string(decision.Tier), classification.Confidence, health.SourceAIAnalysis,
	); extractErr != nil {
		s.logger.Warn("Profile extraction failed",
			zap.String("user_id", cmd.UserID.String()),
			zap.Error(errors.NewExtractionFailureError(extractErr)),
		)
	} else {
		extracted = n
	}

	actions := s.proposeActions(classification.Domain, extracted)
	assistantMsg.AttachActions(actions)

	answerSource := chat.SourceProvider
	if decision.ForceFreeTier {
		answerSource = chat.SourceLocal
	}
	s.smartCache.Record(ctx, cmd.UserID, normalized, answerSource)
	meta.AnswerSource = answerSource
	meta.ProcessingTime = s.now().Sub(start)

	assistantMsg.Complete(response.Text, meta, tokens, costCents)
	s.saveAssistant(ctx, session, assistantMsg)

	result := s.result(session, assistantMsg, response.Text, classification, meta, actions)
	result.TokensUsed = tokens
	result.CostCents = costCents
	result.Citations = ranked.SourceNames()
	result.FollowUpQuestions = followUpsFor(classification.Domain)

	// Surface a due plan transition alongside the answer.
	if prompt, err := s.plans.CheckTransition(ctx, cmd.UserID); err == nil && prompt != nil {
		result.TransitionPrompt = prompt
	}
	return result, nil
}

// ExecuteAction fires a previously proposed action after explicit user
// confirmation. Unconfirmed requests are rejected outright.
func (s *ChatService) ExecuteAction(ctx context.Context, userID, messageID uuid.UUID, actionIndex int, confirmed bool) (*chat.ActionProposal, error) {
	if !confirmed {
		return nil, errors.New(errors.CodeActionNotConfirmed,
			"Action requires confirmation",
			"Pass confirmed=true to execute a proposed action")
	}

	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, errors.New(errors.CodeNotFound, "Message not found", messageID.String())
	}

	session, err := s.sessions.FindByID(ctx, msg.SessionID())
	if err != nil {
		return nil, errors.NewSessionNotFoundError(msg.SessionID().String())
	}
	if session.UserID() != userID {
		return nil, errors.NewSessionAccessDeniedError(session.ID().String())
	}

	actions := msg.Actions()
	if actionIndex < 0 || actionIndex >= len(actions) {
		return nil, errors.NewValidationError("action index out of range")
	}
	action := actions[actionIndex]
	if action.Executed {
		return nil, errors.New(errors.CodeConflict, "Action already executed", "")
	}

	switch action.Type {
	case ActionCreateDietPlan:
		if _, err := s.plans.CreateFromProfile(ctx, userID); err != nil {
			return nil, err
		}
	case ActionSaveMealPlan:
		// The proposal payload is already the saved artifact; nothing
		// external to call yet.
	default:
		return nil, errors.NewValidationError("unknown action type: " + action.Type)
	}

	if err := msg.MarkActionExecuted(actionIndex); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if err := s.messages.Save(ctx, msg); err != nil {
		return nil, errors.NewPersistenceFailureError("save executed action", err)
	}

	executed := msg.Actions()[actionIndex]
	s.logger.Info("Action executed",
		zap.String("user_id", userID.String()),
		zap.String("type", executed.Type),
	)
	return &executed, nil
}

// History returns a session's messages in creation order
func (s *ChatService) History(ctx context.Context, userID, sessionID uuid.UUID) ([]*chat.Message, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, errors.NewSessionNotFoundError(sessionID.String())
	}
	if session.UserID() != userID {
		return nil, errors.NewSessionAccessDeniedError(sessionID.String())
	}
	msgs, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, errors.NewPersistenceFailureError("list messages", err)
	}
	return msgs, nil
}

// Sessions lists a user's sessions
func (s *ChatService) Sessions(ctx context.Context, userID uuid.UUID) ([]*chat.Session, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.NewPersistenceFailureError("list sessions", err)
	}
	return sessions, nil
}

// CreateSession explicitly opens a fresh session ahead of the first
// message. Messages sent without a session id still create one implicitly.
func (s *ChatService) CreateSession(ctx context.Context, userID uuid.UUID, sessionType chat.SessionType, prefs chat.Preferences) (*chat.Session, error) {
	session := chat.NewSession(userID, sessionType, prefs, s.sessionTTL)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, errors.NewPersistenceFailureError("create session", err)
	}
	s.logger.Debug("Session created",
		zap.String("user_id", userID.String()),
		zap.String("session_id", session.ID().String()),
	)
	return session, nil
}

// Session returns one of the user's sessions
func (s *ChatService) Session(ctx context.Context, userID, sessionID uuid.UUID) (*chat.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, errors.NewSessionNotFoundError(sessionID.String())
	}
	if session.UserID() != userID {
		return nil, errors.NewSessionAccessDeniedError(sessionID.String())
	}
	return session, nil
}

// PauseSession suspends an active session. New messages sent while paused
// open a fresh session instead of reusing this one.
func (s *ChatService) PauseSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, err := s.Session(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if err := session.Pause(); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return s.sessions.Save(ctx, session)
}

// ResumeSession reactivates a paused session
func (s *ChatService) ResumeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, err := s.Session(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if err := session.Resume(s.now()); err != nil {
		if err == chat.ErrSessionExpired {
			s.sessions.Save(ctx, session)
			return errors.New(errors.CodeSessionExpired,
				"Session expired",
				"The session expired while paused; a new message starts a fresh one")
		}
		return errors.NewValidationError(err.Error())
	}
	return s.sessions.Save(ctx, session)
}

// ArchiveSession terminates a session
func (s *ChatService) ArchiveSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return errors.NewSessionNotFoundError(sessionID.String())
	}
	if session.UserID() != userID {
		return errors.NewSessionAccessDeniedError(sessionID.String())
	}
	if err := session.Archive(); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return s.sessions.Save(ctx, session)
}

// resolveSession finds a usable session or transparently creates one.
// The only hard rejection is a session owned by another user.
func (s *ChatService) resolveSession(ctx context.Context, cmd SendMessageCommand) (*chat.Session, error) {
	now := s.now()

	if cmd.SessionID != nil {
		session, err := s.sessions.FindByID(ctx, *cmd.SessionID)
		if err != nil {
			return nil, errors.NewSessionNotFoundError(cmd.SessionID.String())
		}
		if session.UserID() != cmd.UserID {
			return nil, errors.NewSessionAccessDeniedError(cmd.SessionID.String())
		}
		if session.IsReusable(now) {
			return session, nil
		}
		if session.MarkExpired(now) {
			s.sessions.Save(ctx, session)
		}
		// Fall through to a fresh session; the stale one stays readable.
	}

	if existing, err := s.sessions.FindReusableByUser(ctx, cmd.UserID, cmd.SessionType); err == nil && existing != nil && existing.IsReusable(now) {
		return existing, nil
	}

	session := chat.NewSession(cmd.UserID, cmd.SessionType, cmd.Preferences, s.sessionTTL)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, errors.NewPersistenceFailureError("create session", err)
	}
	s.logger.Debug("Session created",
		zap.String("user_id", cmd.UserID.String()),
		zap.String("session_id", session.ID().String()),
	)
	return session, nil
}

// invoke calls the routed provider, falling back to the free local provider
// when the paid one fails. Only a double failure surfaces as an error.
func (s *ChatService) invoke(ctx context.Context, decision *chat.RoutingDecision, request *outbound.ProviderRequest) (*outbound.ProviderResponse, error) {
	provider, ok := s.providers.Provider(decision.Provider)
	if !ok {
		return nil, errors.NewProviderFailureError(decision.Provider, fmt.Errorf("provider not registered"))
	}

	response, err := provider.Invoke(ctx, *request)
	if err == nil {
		return response, nil
	}
	s.logger.Warn("Provider call failed, trying free fallback",
		zap.String("provider", decision.Provider),
		zap.Error(err),
	)

	if decision.Provider != FreeProviderName {
		if fallback, ok := s.providers.Provider(FreeProviderName); ok {
			if response, fbErr := fallback.Invoke(ctx, *request); fbErr == nil {
				decision.ForceFreeTier = true
				decision.Provider = FreeProviderName
				return response, nil
			}
		}
	}
	return nil, errors.NewProviderFailureError(decision.Provider, err)
}

func (s *ChatService) saveAssistant(ctx context.Context, session *chat.Session, msg *chat.Message) {
	if err := s.messages.Save(ctx, msg); err != nil {
		s.logger.Error("Assistant message save failed", zap.Error(err))
	}
	session.RecordExchange(s.now())
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("Session save failed", zap.Error(err))
	}
}

func (s *ChatService) finishExchange(ctx context.Context, session *chat.Session, msg *chat.Message, content string) {
	// Out-of-scope replies keep their content outside Complete so the
	// out_of_scope processing status survives.
	restored := chat.RestoreMessage(
		msg.ID(), msg.SessionID(), msg.Role(), content,
		msg.ProcessingStatus(), msg.Metadata(), msg.Actions(),
		0, 0, msg.CreatedAt(),
	)
	s.saveAssistant(ctx, session, restored)
}

func (s *ChatService) result(
	session *chat.Session,
	msg *chat.Message,
	answer string,
	classification chat.Classification,
	meta chat.MessageMetadata,
	actions []chat.ActionProposal,
) *SendMessageResult {
	r := &SendMessageResult{
		SessionID:      session.ID(),
		MessageID:      msg.ID(),
		Answer:         answer,
		AnswerSource:   meta.AnswerSource,
		Domain:         classification.Domain,
		Actions:        actions,
		ProcessingTime: meta.ProcessingTime,
	}
	if meta.RoutingDecision != nil {
		r.Tier = meta.RoutingDecision.Tier
	}
	return r
}

// proposeActions derives confirmation-gated side effects from the exchange
func (s *ChatService) proposeActions(domain string, extractedMetrics int) []chat.ActionProposal {
	var actions []chat.ActionProposal
	if domain == DomainHealthReports && extractedMetrics > 0 {
		actions = append(actions, chat.ActionProposal{
			Type:        ActionCreateDietPlan,
			Description: "Create a diet plan targeting the findings from this analysis",
		})
	}
	if domain == DomainMealPlanning {
		actions = append(actions, chat.ActionProposal{
			Type:        ActionSaveMealPlan,
			Description: "Save this meal plan to your collection",
		})
	}
	return actions
}

// followUpsFor suggests next questions per domain
func followUpsFor(domain string) []string {
	switch domain {
	case DomainHealthReports:
		return []string{
			"What foods help improve these values?",
			"When should I retest?",
		}
	case DomainNutrition:
		return []string{
			"Can you suggest a meal plan around this?",
			"How does this fit my health profile?",
		}
	case DomainMealPlanning:
		return []string{
			"Can you make a grocery list for this plan?",
			"Can you swap in vegetarian options?",
		}
	case DomainFitness:
		return []string{
			"What should I eat around workouts?",
			"How do I track progress?",
		}
	case DomainSupplements:
		return []string{
			"Can I get this from food instead?",
			"Are there interactions I should know about?",
		}
	default:
		return []string{
			"Is there a habit change that would help most?",
			"Can you check this against my health profile?",
		}
	}
}
