// Package dietplan implements the plan lifecycle: creation from profile
// findings, progress tracking, and the forward-only phase transitions.
package dietplan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	healthapp "github.com/vitalroute/v1/internal/application/health"
	"github.com/vitalroute/v1/internal/domain/dietplan"
	"github.com/vitalroute/v1/internal/ports/outbound"
	"github.com/vitalroute/v1/pkg/errors"
)

// TransitionRecommendation is surfaced to the user when a plan's timeline
// is exhausted and a choice is needed.
type TransitionRecommendation struct {
	PlanID       uuid.UUID                   `json:"plan_id"`
	CurrentPhase dietplan.Phase              `json:"current_phase"`
	NextPhase    dietplan.Phase              `json:"next_phase"`
	Message      string                      `json:"message"`
	Choices      []dietplan.TransitionChoice `json:"choices"`
}

// PlanService manages diet plans for users. Plan creation reads the health
// profile; transitions always supersede rather than mutate, so history
// survives.
type PlanService struct {
	plans    outbound.DietPlanRepository
	profiles *healthapp.ProfileService
	logger   *zap.Logger
	now      func() time.Time
}

// NewPlanService creates a plan service
func NewPlanService(plans outbound.DietPlanRepository, profiles *healthapp.ProfileService, logger *zap.Logger) *PlanService {
	return &PlanService{
		plans:    plans,
		profiles: profiles,
		logger:   logger.Named("diet-plan"),
		now:      time.Now,
	}
}

// CreateFromProfile starts a correction-phase plan targeting the user's
// unresolved findings, shortest correction timeline first, capped at
// MaxTargetConditions. An existing active plan is superseded.
func (s *PlanService) CreateFromProfile(ctx context.Context, userID uuid.UUID) (*dietplan.Plan, error) {
	unresolved, err := s.profiles.UnresolvedEntries(ctx, userID)
	if err != nil {
		return nil, errors.NewPersistenceFailureError("read health profile", err)
	}
	if len(unresolved) == 0 {
		return nil, errors.NewValidationError("no unresolved health findings to build a plan from")
	}

	if len(unresolved) > dietplan.MaxTargetConditions {
		unresolved = unresolved[:dietplan.MaxTargetConditions]
	}

	targets := make([]dietplan.TargetCondition, 0, len(unresolved))
	for _, entry := range unresolved {
		days := dietplan.DefaultTotalDays
		improvement := fmt.Sprintf("bring %s back into range", entry.Metric)
		if p := healthapp.PatternFor(entry.Metric); p != nil {
			days = p.ResolutionDays
			if p.Recommendation != "" {
				improvement = p.Recommendation
			}
		}
		targets = append(targets, dietplan.TargetCondition{
			Condition:               entry.Metric,
			TargetImprovement:       improvement,
			EstimatedResolutionDays: days,
		})
	}

	now := s.now()
	if existing, err := s.plans.FindActiveByUser(ctx, userID, now); err == nil && existing != nil {
		existing.Supersede(dietplan.PhaseCorrection)
		if err := s.plans.Save(ctx, existing); err != nil {
			return nil, errors.NewPersistenceFailureError("retire previous plan", err)
		}
	}

	plan := dietplan.NewPlan(userID, dietplan.PhaseCorrection, targets, now)
	if err := s.plans.Save(ctx, plan); err != nil {
		return nil, errors.NewPersistenceFailureError("save diet plan", err)
	}

	s.logger.Info("Diet plan created",
		zap.String("user_id", userID.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.Int("targets", len(targets)),
		zap.Int("total_days", plan.Timeline.TotalDays),
	)
	return plan, nil
}

// ActivePlan returns the user's active plan with progress refreshed
func (s *PlanService) ActivePlan(ctx context.Context, userID uuid.UUID) (*dietplan.Plan, error) {
	now := s.now()
	plan, err := s.plans.FindActiveByUser(ctx, userID, now)
	if err != nil {
		return nil, errors.NewPlanNotFoundError(userID.String())
	}
	plan.UpdateProgress(now)
	if err := s.plans.Save(ctx, plan); err != nil {
		s.logger.Warn("Plan progress save failed", zap.Error(err))
	}
	return plan, nil
}

// CheckTransition refreshes progress and, when the plan timeline is
// exhausted, returns a transition recommendation. Nil means no transition
// is due yet.
func (s *PlanService) CheckTransition(ctx context.Context, userID uuid.UUID) (*TransitionRecommendation, error) {
	plan, err := s.ActivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !plan.ShouldTransition() {
		return nil, nil
	}

	next := plan.Phase.Next()
	return &TransitionRecommendation{
		PlanID:       plan.ID,
		CurrentPhase: plan.Phase,
		NextPhase:    next,
		Message: fmt.Sprintf(
			"Your %s phase is complete (day %d of %d). You can move to the %s phase, maintain the current plan for %d more days, or schedule a recheck in %d days.",
			plan.Phase, plan.Timeline.CurrentDay, plan.Timeline.TotalDays,
			next, dietplan.MaintainExtensionDays, dietplan.RecheckTriggerDays,
		),
		Choices: []dietplan.TransitionChoice{
			dietplan.ChoiceContinue,
			dietplan.ChoiceMaintain,
			dietplan.ChoiceRecheck,
		},
	}, nil
}

// Transition applies the user's choice. "continue" supersedes the current
// plan with a next-phase plan carrying the same targets; "maintain" extends
// in place; "recheck" schedules a short re-evaluation.
func (s *PlanService) Transition(ctx context.Context, userID uuid.UUID, choice dietplan.TransitionChoice) (*dietplan.Plan, error) {
	now := s.now()
	plan, err := s.plans.FindActiveByUser(ctx, userID, now)
	if err != nil {
		return nil, errors.NewPlanNotFoundError(userID.String())
	}

	switch choice {
	case dietplan.ChoiceContinue:
		next := plan.Phase.Next()
		plan.Supersede(next)
		if err := s.plans.Save(ctx, plan); err != nil {
			return nil, errors.NewPersistenceFailureError("retire plan", err)
		}

		successor := dietplan.NewPlan(userID, next, plan.TargetConditions, now)
		if err := s.plans.Save(ctx, successor); err != nil {
			return nil, errors.NewPersistenceFailureError("save successor plan", err)
		}
		s.logger.Info("Plan phase advanced",
			zap.String("user_id", userID.String()),
			zap.String("from", string(plan.Phase)),
			zap.String("to", string(next)),
		)
		return successor, nil

	case dietplan.ChoiceMaintain:
		plan.Extend(dietplan.MaintainExtensionDays)
		if err := s.plans.Save(ctx, plan); err != nil {
			return nil, errors.NewPersistenceFailureError("extend plan", err)
		}
		s.logger.Info("Plan extended",
			zap.String("user_id", userID.String()),
			zap.Int("extra_days", dietplan.MaintainExtensionDays),
		)
		return plan, nil

	case dietplan.ChoiceRecheck:
		plan.ScheduleRecheck(now)
		if err := s.plans.Save(ctx, plan); err != nil {
			return nil, errors.NewPersistenceFailureError("schedule recheck", err)
		}
		s.logger.Info("Plan recheck scheduled",
			zap.String("user_id", userID.String()),
		)
		return plan, nil

	default:
		return nil, errors.NewValidationError("unknown transition choice: " + string(choice))
	}
}

// History lists all of a user's plans, superseded included
func (s *PlanService) History(ctx context.Context, userID uuid.UUID) ([]*dietplan.Plan, error) {
	plans, err := s.plans.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.NewPersistenceFailureError("list plans", err)
	}
	return plans, nil
}
