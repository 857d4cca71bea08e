package dietplan

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	healthapp "github.com/vitalroute/v1/internal/application/health"
	"github.com/vitalroute/v1/internal/domain/dietplan"
	"github.com/vitalroute/v1/internal/domain/health"
	"github.com/vitalroute/v1/internal/infrastructure/persistence/memory"
	"github.com/vitalroute/v1/pkg/errors"
)

func freshness() healthapp.FreshnessWindows {
	return healthapp.FreshnessWindows{
		Biomarker:     90 * 24 * time.Hour,
		Micronutrient: 180 * 24 * time.Hour,
		Condition:     365 * 24 * time.Hour,
	}
}

func newTestPlanService(t *testing.T) (*PlanService, *memory.ProfileRepository) {
	profileRepo := memory.NewProfileRepository()
	profiles := healthapp.NewProfileService(profileRepo, freshness(), zaptest.NewLogger(t))
	return NewPlanService(memory.NewDietPlanRepository(), profiles, zaptest.NewLogger(t)), profileRepo
}

func putFinding(t *testing.T, repo *memory.ProfileRepository, userID uuid.UUID, metric string, category health.MetricCategory, status health.MetricStatus) {
	t.Helper()
	entry := health.NewProfileEntry(userID, metric, category, health.Measurement{
		Value: 1, Unit: "x", Status: status,
		Source: health.SourceAIAnalysis, MeasuredAt: time.Now(),
	})
	require.NoError(t, repo.Put(context.Background(), entry))
}

func TestCreateFromProfileRequiresFindings(t *testing.T) {
	svc, _ := newTestPlanService(t)

	_, err := svc.CreateFromProfile(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, errors.CodeValidationFailed))
}

func TestCreateFromProfileBuildsCorrectionPlan(t *testing.T) {
	svc, repo := newTestPlanService(t)
	userID := uuid.New()

	putFinding(t, repo, userID, "vitamin_d", health.CategoryMicronutrient, health.StatusDeficient)
	putFinding(t, repo, userID, "iron", health.CategoryMicronutrient, health.StatusLow)
	putFinding(t, repo, userID, "glucose_fasting", health.CategoryBiomarker, health.StatusNormal)

	plan, err := svc.CreateFromProfile(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, dietplan.PhaseCorrection, plan.Phase)
	require.Len(t, plan.TargetConditions, 2, "resolved metrics are not targeted")
	assert.Equal(t, "iron", plan.TargetConditions[0].Condition, "shortest timeline first")
	assert.Equal(t, 60, plan.TargetConditions[0].EstimatedResolutionDays)
	assert.Equal(t, "vitamin_d", plan.TargetConditions[1].Condition)
	assert.Equal(t, 90, plan.Timeline.TotalDays, "longest target sets the plan length")
}

func TestCreateFromProfileCapsTargets(t *testing.T) {
	svc, repo := newTestPlanService(t)
	userID := uuid.New()

	putFinding(t, repo, userID, "magnesium", health.CategoryMicronutrient, health.StatusLow)
	putFinding(t, repo, userID, "iron", health.CategoryMicronutrient, health.StatusLow)
	putFinding(t, repo, userID, "vitamin_d", health.CategoryMicronutrient, health.StatusDeficient)
	putFinding(t, repo, userID, "cholesterol_total", health.CategoryBiomarker, health.StatusHigh)

	plan, err := svc.CreateFromProfile(context.Background(), userID)
	require.NoError(t, err)

	require.Len(t, plan.TargetConditions, dietplan.MaxTargetConditions)
	// The longest-timeline finding (cholesterol, 120d) is the one cut.
	for _, target := range plan.TargetConditions {
		assert.NotEqual(t, "cholesterol_total", target.Condition)
	}
}

func TestCreateFromProfileSupersedesExistingPlan(t *testing.T) {
	svc, repo := newTestPlanService(t)
	userID := uuid.New()
	putFinding(t, repo, userID, "vitamin_d", health.CategoryMicronutrient, health.StatusDeficient)

	first, err := svc.CreateFromProfile(context.Background(), userID)
	require.NoError(t, err)
	second, err := svc.CreateFromProfile(context.Background(), userID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	history, err := svc.History(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, history, 2, "superseded plans stay in history")

	active, err := svc.ActivePlan(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestCheckTransitionBeforeTimelineEnds(t *testing.T) {
	svc, repo := newTestPlanService(t)
	userID := uuid.New()
	putFinding(t, repo, userID, "vitamin_d", health.CategoryMicronutrient, health.StatusDeficient)

	_, err := svc.CreateFromProfile(context.Background(), userID)
	require.NoError(t, err)

	recommendation, err := svc.CheckTransition(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, recommendation, "no transition is due on day zero")
}

func TestFullTransitionFlow(t *testing.T) {
	svc, repo := newTestPlanService(t)
	userID := uuid.New()
	putFinding(t, repo, userID, "vitamin_d", health.CategoryMicronutrient, health.StatusDeficient)

	start := time.Now()
	svc.now = func() time.Time { return start }
	plan, err := svc.CreateFromProfile(context.Background(), userID)
	require.NoError(t, err)

	// Jump past the correction window.
	svc.now = func() time.Time { return start.AddDate(0, 0, plan.Timeline.TotalDays+1) }

	recommendation, err := svc.CheckTransition(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, recommendation)
	assert.Equal(t, dietplan.PhaseCorrection, recommendation.CurrentPhase)
	assert.Equal(t, dietplan.PhaseMaintenance, recommendation.NextPhase)
	assert.Len(t, recommendation.Choices, 3)

	successor, err := svc.Transition(context.Background(), userID, dietplan.ChoiceContinue)
	require.NoError(t, err)
	assert.Equal(t, dietplan.PhaseMaintenance, successor.Phase)
	assert.NotEqual(t, plan.ID, successor.ID, "continue supersedes rather than mutates")

	history, err := svc.History(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestTransitionMaintainExtendsInPlace(t *testing.T) {
	svc, repo := newTestPlanService(t)
	userID := uuid.New()
	putFinding(t, repo, userID, "vitamin_d", health.CategoryMicronutrient, health.StatusDeficient)

	plan, err := svc.CreateFromProfile(context.Background(), userID)
	require.NoError(t, err)
	originalDays := plan.Timeline.TotalDays

	extended, err := svc.Transition(context.Background(), userID, dietplan.ChoiceMaintain)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, extended.ID)
	assert.Equal(t, originalDays+dietplan.MaintainExtensionDays, extended.Timeline.TotalDays)
	assert.Equal(t, dietplan.PhaseCorrection, extended.Phase, "maintain keeps the phase")
}

func TestTransitionRecheckSchedulesWithoutPhaseChange(t *testing.T) {
	svc, repo := newTestPlanService(t)
	userID := uuid.New()
	putFinding(t, repo, userID, "vitamin_d", health.CategoryMicronutrient, health.StatusDeficient)

	_, err := svc.CreateFromProfile(context.Background(), userID)
	require.NoError(t, err)

	plan, err := svc.Transition(context.Background(), userID, dietplan.ChoiceRecheck)
	require.NoError(t, err)
	require.NotNil(t, plan.TransitionPlan)
	require.NotNil(t, plan.TransitionPlan.RecheckAt)
	assert.Equal(t, dietplan.PhaseCorrection, plan.Phase)
}

func TestTransitionUnknownChoice(t *testing.T) {
	svc, repo := newTestPlanService(t)
	userID := uuid.New()
	putFinding(t, repo, userID, "vitamin_d", health.CategoryMicronutrient, health.StatusDeficient)

	_, err := svc.CreateFromProfile(context.Background(), userID)
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), userID, "restart")
	assert.True(t, errors.Is(err, errors.CodeValidationFailed))
}

func TestTransitionWithoutPlan(t *testing.T) {
	svc, _ := newTestPlanService(t)

	_, err := svc.Transition(context.Background(), uuid.New(), dietplan.ChoiceContinue)
	assert.True(t, errors.Is(err, errors.CodePlanNotFound))
}
