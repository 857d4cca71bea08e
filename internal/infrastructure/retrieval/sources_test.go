package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalroute/v1/internal/domain/chat"
	"github.com/vitalroute/v1/internal/domain/dietplan"
	"github.com/vitalroute/v1/internal/domain/health"
	"github.com/vitalroute/v1/internal/infrastructure/persistence/memory"
)

func TestProfileSourceRendersEntries(t *testing.T) {
	repo := memory.NewProfileRepository()
	userID := uuid.New()
	entry := health.NewProfileEntry(userID, "vitamin_d", health.CategoryMicronutrient, health.Measurement{
		Value: 18, Unit: "ng/mL", Status: health.StatusDeficient,
		Source: health.SourceAIAnalysis, MeasuredAt: time.Now(),
	})
	require.NoError(t, repo.Put(context.Background(), entry))

	source := NewProfileSource(repo)
	candidates, err := source.Fetch(context.Background(), userID, "nutrition", time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Equal(t, TypeHealthProfile, candidates[0].ContextType)
	assert.Contains(t, candidates[0].Text, "vitamin d")
	assert.Contains(t, candidates[0].Text, "18.0")
	assert.Contains(t, candidates[0].Text, "deficient")
}

func TestHistorySourceOnlyCompletedAssistantMessages(t *testing.T) {
	sessions := memory.NewSessionRepository()
	messages := memory.NewMessageRepository()
	userID := uuid.New()

	session := chat.NewSession(userID, chat.SessionTypeGeneral, chat.Preferences{}, time.Hour)
	require.NoError(t, sessions.Save(context.Background(), session))

	user := chat.NewMessage(session.ID(), chat.RoleUser, "what about my iron")
	require.NoError(t, messages.Save(context.Background(), user))

	answered := chat.NewMessage(session.ID(), chat.RoleAssistant, "")
	answered.StartProcessing()
	require.NoError(t, answered.Complete("Your iron looks fine.", chat.MessageMetadata{}, 100, 0.1))
	require.NoError(t, messages.Save(context.Background(), answered))

	pending := chat.NewMessage(session.ID(), chat.RoleAssistant, "")
	require.NoError(t, messages.Save(context.Background(), pending))

	source := NewHistorySource(sessions, messages, 20)
	candidates, err := source.Fetch(context.Background(), userID, "nutrition", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Your iron looks fine.", candidates[0].Text)
}

func TestHistorySourceCapsCandidates(t *testing.T) {
	sessions := memory.NewSessionRepository()
	messages := memory.NewMessageRepository()
	userID := uuid.New()

	session := chat.NewSession(userID, chat.SessionTypeGeneral, chat.Preferences{}, time.Hour)
	require.NoError(t, sessions.Save(context.Background(), session))

	for i := 0; i < 10; i++ {
		msg := chat.NewMessage(session.ID(), chat.RoleAssistant, "")
		msg.StartProcessing()
		require.NoError(t, msg.Complete("answer", chat.MessageMetadata{}, 10, 0))
		require.NoError(t, messages.Save(context.Background(), msg))
	}

	source := NewHistorySource(sessions, messages, 3)
	candidates, err := source.Fetch(context.Background(), userID, "nutrition", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, candidates, 3)
}

func TestPlanSourceSummarizesActivePlan(t *testing.T) {
	repo := memory.NewDietPlanRepository()
	userID := uuid.New()

	plan := dietplan.NewPlan(userID, dietplan.PhaseCorrection, []dietplan.TargetCondition{
		{Condition: "vitamin_d", TargetImprovement: "raise vitamin D", EstimatedResolutionDays: 90},
	}, time.Now())
	require.NoError(t, repo.Save(context.Background(), plan))

	source := NewPlanSource(repo)
	candidates, err := source.Fetch(context.Background(), userID, "nutrition", time.Time{})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Contains(t, candidates[0].Text, "correction phase")
	assert.Contains(t, candidates[0].Text, "vitamin d")
}

func TestPlanSourceNoPlanIsNotAFailure(t *testing.T) {
	source := NewPlanSource(memory.NewDietPlanRepository())

	candidates, err := source.Fetch(context.Background(), uuid.New(), "nutrition", time.Time{})
	assert.NoError(t, err)
	assert.Empty(t, candidates)
}
