package dietplan

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targets() []TargetCondition {
	return []TargetCondition{
		{Condition: "vitamin_d", TargetImprovement: "raise into range", EstimatedResolutionDays: 90},
		{Condition: "iron", TargetImprovement: "raise into range", EstimatedResolutionDays: 60},
	}
}

func TestNewPlanTimelineFromLongestTarget(t *testing.T) {
	now := time.Now()
	plan := NewPlan(uuid.New(), PhaseCorrection, targets(), now)

	assert.Equal(t, 90, plan.Timeline.TotalDays)
	assert.Equal(t, now.AddDate(0, 0, 90), plan.Timeline.EstimatedEndDate)
	assert.Equal(t, PhaseCorrection, plan.Phase)
	assert.False(t, plan.Superseded)
}

func TestNewPlanDefaultsWithoutTargets(t *testing.T) {
	plan := NewPlan(uuid.New(), PhaseCorrection, nil, time.Now())
	assert.Equal(t, DefaultTotalDays, plan.Timeline.TotalDays)
	assert.NotEmpty(t, plan.Milestones)
}

func TestMilestonesSortedAndDeduplicated(t *testing.T) {
	plan := NewPlan(uuid.New(), PhaseCorrection, targets(), time.Now())

	require.NotEmpty(t, plan.Milestones)
	seen := make(map[int]bool)
	prev := 0
	for _, m := range plan.Milestones {
		assert.GreaterOrEqual(t, m.Day, 1)
		assert.GreaterOrEqual(t, m.Day, prev, "milestones must be sorted by day")
		assert.False(t, seen[m.Day], "milestone days must be unique")
		seen[m.Day] = true
		prev = m.Day
	}
	// Both targets contribute their 100% marks.
	assert.True(t, seen[60])
	assert.True(t, seen[90])
}

func TestUpdateProgressCompletesMilestonesMonotonically(t *testing.T) {
	start := time.Now()
	plan := NewPlan(uuid.New(), PhaseCorrection, targets(), start)

	plan.UpdateProgress(start.AddDate(0, 0, 46))
	assert.Equal(t, 46, plan.Timeline.CurrentDay)

	completed := 0
	for _, m := range plan.Milestones {
		if m.Completed {
			completed++
			assert.LessOrEqual(t, m.Day, 46)
		}
	}
	require.Greater(t, completed, 0)

	// Progress never uncompletes a milestone, even if recomputed earlier.
	plan.UpdateProgress(start.AddDate(0, 0, 10))
	stillCompleted := 0
	for _, m := range plan.Milestones {
		if m.Completed {
			stillCompleted++
		}
	}
	assert.GreaterOrEqual(t, stillCompleted, completed)
}

func TestShouldTransitionAtTimelineEnd(t *testing.T) {
	start := time.Now()
	plan := NewPlan(uuid.New(), PhaseCorrection, targets(), start)

	plan.UpdateProgress(start.AddDate(0, 0, 89))
	assert.False(t, plan.ShouldTransition())

	plan.UpdateProgress(start.AddDate(0, 0, 90))
	assert.True(t, plan.ShouldTransition())
}

func TestPhaseProgressionIsForwardOnly(t *testing.T) {
	assert.Equal(t, PhaseMaintenance, PhaseCorrection.Next())
	assert.Equal(t, PhaseOptimization, PhaseMaintenance.Next())
	assert.Equal(t, PhaseOptimization, PhaseOptimization.Next(), "optimization is terminal")
}

func TestExtend(t *testing.T) {
	start := time.Now()
	plan := NewPlan(uuid.New(), PhaseCorrection, targets(), start)
	end := plan.Timeline.EstimatedEndDate

	plan.Extend(MaintainExtensionDays)
	assert.Equal(t, 120, plan.Timeline.TotalDays)
	assert.Equal(t, end.AddDate(0, 0, MaintainExtensionDays), plan.Timeline.EstimatedEndDate)
}

func TestScheduleRecheck(t *testing.T) {
	now := time.Now()
	plan := NewPlan(uuid.New(), PhaseCorrection, targets(), now)

	plan.ScheduleRecheck(now)
	require.NotNil(t, plan.TransitionPlan)
	require.NotNil(t, plan.TransitionPlan.RecheckAt)
	assert.Equal(t, now.AddDate(0, 0, RecheckTriggerDays), *plan.TransitionPlan.RecheckAt)
	assert.False(t, plan.Superseded, "recheck does not retire the plan")
}

func TestSupersedeRetainsHistory(t *testing.T) {
	plan := NewPlan(uuid.New(), PhaseCorrection, targets(), time.Now())
	plan.Supersede(PhaseMaintenance)

	assert.True(t, plan.Superseded)
	require.NotNil(t, plan.TransitionPlan)
	assert.Equal(t, PhaseMaintenance, plan.TransitionPlan.NextPhase)
	assert.False(t, plan.IsActive(time.Now()))
}
