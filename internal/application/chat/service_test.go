package chat

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	dietplanapp "github.com/vitalroute/v1/internal/application/dietplan"
	healthapp "github.com/vitalroute/v1/internal/application/health"
	"github.com/vitalroute/v1/internal/domain/chat"
	"github.com/vitalroute/v1/internal/domain/dietplan"
	"github.com/vitalroute/v1/internal/infrastructure/persistence/memory"
	"github.com/vitalroute/v1/internal/ports/outbound"
	"github.com/vitalroute/v1/pkg/errors"
)

type scriptedProvider struct {
	name  string
	text  string
	usage outbound.TokenUsage
	err   error
	calls int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Invoke(ctx context.Context, req outbound.ProviderRequest) (*outbound.ProviderResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &outbound.ProviderResponse{
		Text:     p.text,
		Provider: p.name,
		Model:    req.Model,
		Usage:    p.usage,
	}, nil
}

type stubRegistry map[string]outbound.LLMProvider

func (r stubRegistry) Provider(name string) (outbound.LLMProvider, bool) {
	p, ok := r[name]
	return p, ok
}

type cacheInvalidator struct {
	cache *SmartQueryCache
}

func (c cacheInvalidator) MetricChanged(ctx context.Context, userID uuid.UUID, metric string) {
	c.cache.InvalidateMetric(ctx, userID, metric)
}

type pipelineEnv struct {
	svc         *ChatService
	ledger      *UsageLedger
	plans       *dietplanapp.PlanService
	profiles    *healthapp.ProfileService
	profileRepo *memory.ProfileRepository
	openai      *scriptedProvider
	local       *scriptedProvider
}

func newPipelineEnv(t *testing.T, dailyLimit int64) *pipelineEnv {
	logger := zaptest.NewLogger(t)
	cache := memory.NewCacheRepository()
	profileRepo := memory.NewProfileRepository()

	profiles := healthapp.NewProfileService(profileRepo, healthapp.FreshnessWindows{
		Biomarker:     90 * 24 * time.Hour,
		Micronutrient: 180 * 24 * time.Hour,
		Condition:     365 * 24 * time.Hour,
	}, logger)

	smartCache := NewSmartQueryCache(cache, time.Hour, logger)
	profiles.AddListener(cacheInvalidator{smartCache})

	plans := dietplanapp.NewPlanService(memory.NewDietPlanRepository(), profiles, logger)
	ledger := NewUsageLedger(cache, dailyLimit, logger)

	openai := &scriptedProvider{
		name:  "openai",
		text:  "General guidance goes here.",
		usage: outbound.TokenUsage{TotalTokens: 800},
	}
	local := &scriptedProvider{name: "local", text: "Template answer from local data."}

	svc := NewChatService(
		memory.NewSessionRepository(),
		memory.NewMessageRepository(),
		NewTextNormalizer(),
		NewScopeClassifier(),
		smartCache,
		profiles,
		NewContextRetriever(nil, 600, 30*24*time.Hour, 100*time.Millisecond, logger),
		NewRoutingEngine(ledger, testAIConfig(), logger),
		stubRegistry{"openai": openai, "local": local},
		plans,
		30*time.Minute,
		RetrievalOptions{MaxDocuments: 5, RelevanceThreshold: 0.15},
		logger,
	)

	return &pipelineEnv{
		svc:         svc,
		ledger:      ledger,
		plans:       plans,
		profiles:    profiles,
		profileRepo: profileRepo,
		openai:      openai,
		local:       local,
	}
}

func send(t *testing.T, env *pipelineEnv, userID uuid.UUID, content string) *SendMessageResult {
	t.Helper()
	result, err := env.svc.SendMessage(context.Background(), SendMessageCommand{
		UserID:  userID,
		Content: content,
	})
	require.NoError(t, err)
	return result
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	env := newPipelineEnv(t, 0)

	_, err := env.svc.SendMessage(context.Background(), SendMessageCommand{UserID: uuid.New()})
	assert.True(t, errors.Is(err, errors.CodeValidationFailed))
}

func TestSendMessageOutOfScopeRedirects(t *testing.T) {
	env := newPipelineEnv(t, 0)
	userID := uuid.New()

	result := send(t, env, userID, "what is the weather forecast for tomorrow")

	assert.True(t, result.OutOfScope)
	assert.Equal(t, chat.SourceLocal, result.AnswerSource)
	assert.Equal(t, outOfScopeReply, result.Answer)
	assert.Zero(t, result.TokensUsed)
	assert.Zero(t, env.openai.calls, "out-of-scope must never reach a provider")

	// The session survives the redirect and keeps working.
	followUp := send(t, env, userID, "how much protein do i need each day")
	assert.Equal(t, result.SessionID, followUp.SessionID)
	assert.False(t, followUp.OutOfScope)
}

func TestSendMessagePaidPath(t *testing.T) {
	env := newPipelineEnv(t, 0)
	userID := uuid.New()

	faker := gofakeit.New(11)
	answer := faker.Sentence(12)
	env.openai.text = answer

	result := send(t, env, userID, "how much protein do i need each day")

	assert.Equal(t, answer, result.Answer)
	assert.Equal(t, chat.SourceProvider, result.AnswerSource)
	assert.Equal(t, DomainNutrition, result.Domain)
	assert.Equal(t, chat.TierL2, result.Tier)
	assert.Equal(t, 800, result.TokensUsed)
	assert.InDelta(t, 800*0.0006, result.CostCents, 1e-9)
	assert.NotEmpty(t, result.FollowUpQuestions)
	assert.Equal(t, 1, env.openai.calls)

	snapshot, err := env.ledger.Snapshot(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(800), snapshot.TokensUsed)
}

func TestSendMessageReusesSession(t *testing.T) {
	env := newPipelineEnv(t, 0)
	userID := uuid.New()

	first := send(t, env, userID, "how much protein do i need each day")
	second := send(t, env, userID, "suggest a high fiber breakfast")

	assert.Equal(t, first.SessionID, second.SessionID)

	sessions, err := env.svc.Sessions(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 2, sessions[0].MessageCount())
}

func TestSendMessageExpiredSessionGetsReplaced(t *testing.T) {
	env := newPipelineEnv(t, 0)
	userID := uuid.New()

	first := send(t, env, userID, "how much protein do i need each day")

	env.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	sessionID := first.SessionID
	result, err := env.svc.SendMessage(context.Background(), SendMessageCommand{
		UserID:    userID,
		SessionID: &sessionID,
		Content:   "suggest a high fiber breakfast",
	})
	require.NoError(t, err, "an expired session is replaced, not an error")
	assert.NotEqual(t, first.SessionID, result.SessionID)
}

func TestSendMessageRejectsForeignSession(t *testing.T) {
	env := newPipelineEnv(t, 0)

	owner := send(t, env, uuid.New(), "how much protein do i need each day")

	sessionID := owner.SessionID
	_, err := env.svc.SendMessage(context.Background(), SendMessageCommand{
		UserID:    uuid.New(),
		SessionID: &sessionID,
		Content:   "suggest a high fiber breakfast",
	})
	assert.True(t, errors.Is(err, errors.CodeAccessDenied))
}

func TestSendMessageHealthReportExtractsAndProposes(t *testing.T) {
	env := newPipelineEnv(t, 0)
	userID := uuid.New()
	env.openai.text = "Your vitamin D level of 18 ng/mL is deficient. Add fatty fish and daily sun exposure."

	result := send(t, env, userID, "can you interpret my blood test results")

	assert.Equal(t, DomainHealthReports, result.Domain)
	assert.Equal(t, chat.TierL1, result.Tier)

	entry, err := env.profileRepo.Get(context.Background(), userID, "vitamin_d")
	require.NoError(t, err, "the paid answer is mined for profile data")
	assert.Equal(t, 18.0, entry.CurrentValue)

	require.Len(t, result.Actions, 1)
	assert.Equal(t, ActionCreateDietPlan, result.Actions[0].Type)
	assert.False(t, result.Actions[0].Executed)
}

func TestRepeatQuestionBecomesFreeThenCached(t *testing.T) {
	env := newPipelineEnv(t, 0)
	userID := uuid.New()
	env.openai.text = "Your vitamin D level of 18 ng/mL is deficient. Add fatty fish and daily sun exposure."

	first := send(t, env, userID, "what is my vitamin d level")
	assert.Equal(t, chat.SourceProvider, first.AnswerSource, "no local data yet, so the call is paid")
	require.Equal(t, 1, env.openai.calls)

	second := send(t, env, userID, "what is my vitamin d level")
	assert.Equal(t, chat.SourceHealthProfile, second.AnswerSource)
	assert.Contains(t, second.Answer, "18.0 ng/mL")
	assert.Zero(t, second.TokensUsed)
	assert.Equal(t, 1, env.openai.calls, "the repeat is answered without a provider call")

	third := send(t, env, userID, "what is my vitamin d level")
	assert.Equal(t, chat.SourceSmartCache, third.AnswerSource)
	assert.Equal(t, 1, env.openai.calls)
}

func TestCachedAnswerInvalidatedByNewMeasurement(t *testing.T) {
	env := newPipelineEnv(t, 0)
	userID := uuid.New()
	env.openai.text = "Your vitamin D level of 18 ng/mL is deficient."

	send(t, env, userID, "what is my vitamin d level")
	send(t, env, userID, "what is my vitamin d level")
	cached := send(t, env, userID, "what is my vitamin d level")
	require.Equal(t, chat.SourceSmartCache, cached.AnswerSource)
	require.Contains(t, cached.Answer, "18.0")

	// A new lab value lands; the cached answer for the old value must go.
	env.openai.text = "Good news, your vitamin D improved to 32 ng/mL but is still low."
	send(t, env, userID, "can you interpret my blood test results")

	refreshed := send(t, env, userID, "what is my vitamin d level")
	assert.Equal(t, chat.SourceHealthProfile, refreshed.AnswerSource, "stale cache entry was dropped")
	assert.Contains(t, refreshed.Answer, "32.0")
}

func TestSendMessageDegradesWhenBudgetExhausted(t *testing.T) {
	env := newPipelineEnv(t, 1000)
	userID := uuid.New()
	require.NoError(t, env.ledger.Commit(context.Background(), userID, 1000))

	result := send(t, env, userID, "how much protein do i need each day")

	assert.Equal(t, chat.SourceLocal, result.AnswerSource, "budget exhaustion degrades, never rejects")
	assert.Equal(t, 0.0, result.CostCents)
	assert.Zero(t, env.openai.calls)
	assert.Equal(t, 1, env.local.calls)

	snapshot, err := env.ledger.Snapshot(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), snapshot.TokensUsed, "free answers must not consume budget")
}

func TestSendMessageFallsBackWhenProviderFails(t *testing.T) {
	env := newPipelineEnv(t, 0)
	env.openai.err = stderrors.New("rate limited")

	result := send(t, env, uuid.New(), "how much protein do i need each day")

	assert.Equal(t, chat.SourceLocal, result.AnswerSource)
	assert.Equal(t, 0.0, result.CostCents)
	assert.Equal(t, 1, env.openai.calls)
	assert.Equal(t, 1, env.local.calls)
}

func TestSendMessageDoubleProviderFailure(t *testing.T) {
	env := newPipelineEnv(t, 0)
	env.openai.err = stderrors.New("rate limited")
	env.local.err = stderrors.New("broken template")

	_, err := env.svc.SendMessage(context.Background(), SendMessageCommand{
		UserID:  uuid.New(),
		Content: "how much protein do i need each day",
	})
	assert.True(t, errors.Is(err, errors.CodeProviderFailure))
}

func TestSendMessageMealPlanAction(t *testing.T) {
	env := newPipelineEnv(t, 0)

	result := send(t, env, uuid.New(), "build me a weekly menu with meal prep for breakfast and dinner")

	assert.Equal(t, DomainMealPlanning, result.Domain)
	require.Len(t, result.Actions, 1)
	assert.Equal(t, ActionSaveMealPlan, result.Actions[0].Type)
}

func TestExecuteActionRequiresConfirmation(t *testing.T) {
	env := newPipelineEnv(t, 0)
	userID := uuid.New()
	env.openai.text = "Your vitamin D level of 18 ng/mL is deficient."

	result := send(t, env, userID, "can you interpret my blood test results")
	require.NotEmpty(t, result.Actions)

	_, err := env.svc.ExecuteAction(context.Background(), userID, result.MessageID, 0, false)
	assert.True(t, errors.Is(err, errors.CodeActionNotConfirmed))
}

func TestExecuteActionCreatesDietPlan(t *testing.T) {
	env := newPipelineEnv(t, 0)
	userID := uuid.New()
	env.openai.text = "Your vitamin D level of 18 ng/mL is deficient."

	result := send(t, env, userID, "can you interpret my blood test results")
	require.NotEmpty(t, result.Actions)

	executed, err := env.svc.ExecuteAction(context.Background(), userID, result.MessageID, 0, true)
	require.NoError(t, err)
	assert.True(t, executed.Executed)

	plan, err := env.plans.ActivePlan(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, dietplan.PhaseCorrection, plan.Phase)
	require.Len(t, plan.TargetConditions, 1)
	assert.Equal(t, "vitamin_d", plan.TargetConditions[0].Condition)

	// Replaying the confirmation must not create a second plan.
	_, err = env.svc.ExecuteAction(context.Background(), userID, result.MessageID, 0, true)
	assert.True(t, errors.Is(err, errors.CodeConflict))
}

func TestExecuteActionOwnershipAndBounds(t *testing.T) {
	env := newPipelineEnv(t, 0)
	userID := uuid.New()
	env.openai.text = "Your vitamin D level of 18 ng/mL is deficient."

	result := send(t, env, userID, "can you interpret my blood test results")
	require.NotEmpty(t, result.Actions)

	_, err := env.svc.ExecuteAction(context.Background(), uuid.New(), result.MessageID, 0, true)
	assert.True(t, errors.Is(err, errors.CodeAccessDenied))

	_, err = env.svc.ExecuteAction(context.Background(), userID, result.MessageID, 5, true)
	assert.True(t, errors.Is(err, errors.CodeValidationFailed))
}

func TestHistoryListsExchangeInOrder(t *testing.T) {
	env := newPipelineEnv(t, 0)
	userID := uuid.New()

	result := send(t, env, userID, "how much protein do i need each day")

	history, err := env.svc.History(context.Background(), userID, result.SessionID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, chat.RoleUser, history[0].Role())
	assert.Equal(t, chat.RoleAssistant, history[1].Role())
	assert.Equal(t, chat.ProcessingCompleted, history[1].ProcessingStatus())

	_, err = env.svc.History(context.Background(), uuid.New(), result.SessionID)
	assert.True(t, errors.Is(err, errors.CodeAccessDenied))
}

func TestCreateSessionExplicitly(t *testing.T) {
	env := newPipelineEnv(t, 1000)
	userID := uuid.New()

	session, err := env.svc.CreateSession(context.Background(), userID, chat.SessionTypeHealthReview, chat.Preferences{Language: "de"})
	require.NoError(t, err)
	assert.Equal(t, chat.SessionStatusActive, session.Status())
	assert.Equal(t, chat.SessionTypeHealthReview, session.Type())
	assert.Equal(t, "de", session.Preferences().Language)

	// The next message reuses the explicitly created session.
	result := send(t, env, userID, "what should i eat for breakfast")
	assert.Equal(t, session.ID(), result.SessionID)
}

func TestPauseAndResumeSession(t *testing.T) {
	env := newPipelineEnv(t, 0)
	userID := uuid.New()

	first := send(t, env, userID, "how much protein do i need each day")
	require.NoError(t, env.svc.PauseSession(context.Background(), userID, first.SessionID))

	// A paused session is left alone; new messages open a fresh one.
	second := send(t, env, userID, "suggest a high fiber breakfast")
	assert.NotEqual(t, first.SessionID, second.SessionID)

	session, err := env.svc.Session(context.Background(), userID, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, chat.SessionStatusPaused, session.Status())

	require.NoError(t, env.svc.ResumeSession(context.Background(), userID, first.SessionID))
	session, err = env.svc.Session(context.Background(), userID, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, chat.SessionStatusActive, session.Status())

	// Pausing twice is an invalid transition.
	require.NoError(t, env.svc.PauseSession(context.Background(), userID, first.SessionID))
	err = env.svc.PauseSession(context.Background(), userID, first.SessionID)
	assert.True(t, errors.Is(err, errors.CodeValidationFailed))
}

func TestResumeExpiredSession(t *testing.T) {
	env := newPipelineEnv(t, 0)
	userID := uuid.New()

	first := send(t, env, userID, "how much protein do i need each day")
	require.NoError(t, env.svc.PauseSession(context.Background(), userID, first.SessionID))

	env.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	err := env.svc.ResumeSession(context.Background(), userID, first.SessionID)
	assert.True(t, errors.Is(err, errors.CodeSessionExpired))
}

func TestArchiveSessionStopsReuse(t *testing.T) {
	env := newPipelineEnv(t, 0)
	userID := uuid.New()

	first := send(t, env, userID, "how much protein do i need each day")
	require.NoError(t, env.svc.ArchiveSession(context.Background(), userID, first.SessionID))

	second := send(t, env, userID, "suggest a high fiber breakfast")
	assert.NotEqual(t, first.SessionID, second.SessionID)
}
