// Package dietplan contains the multi-phase diet plan domain model.
// A plan walks a user through correction, maintenance, and optimization,
// driven by elapsed time and by values extracted into the health profile.
package dietplan

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Phase is the linear plan phase. Transitions only move forward.
type Phase string

const (
	PhaseCorrection   Phase = "correction"
	PhaseMaintenance  Phase = "maintenance"
	PhaseOptimization Phase = "optimization"
)

// Next returns the following phase, or the same phase when already terminal
func (p Phase) Next() Phase {
	switch p {
	case PhaseCorrection:
		return PhaseMaintenance
	case PhaseMaintenance:
		return PhaseOptimization
	default:
		return PhaseOptimization
	}
}

// TransitionChoice is the user's answer to a transition recommendation
type TransitionChoice string

const (
	ChoiceContinue TransitionChoice = "continue"
	ChoiceMaintain TransitionChoice = "maintain"
	ChoiceRecheck  TransitionChoice = "recheck"
)

// DefaultTotalDays applies when no target condition provides a timeline
const DefaultTotalDays = 30

// MaintainExtensionDays is the fixed in-place extension for "maintain"
const MaintainExtensionDays = 30

// RecheckTriggerDays is the short re-evaluation window for "recheck"
const RecheckTriggerDays = 7

// MaxTargetConditions caps how many profile findings a plan targets
const MaxTargetConditions = 3

// TargetCondition is one profile finding the plan works to resolve
type TargetCondition struct {
	Condition               string `json:"condition"`
	TargetImprovement       string `json:"target_improvement"`
	EstimatedResolutionDays int    `json:"estimated_resolution_days"`
}

// Milestone is a progress checkpoint on the plan timeline.
// Once completed, a milestone is never uncompleted.
type Milestone struct {
	Day         int    `json:"day"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Timeline tracks plan progress against wall-clock time
type Timeline struct {
	StartDate        time.Time `json:"start_date"`
	EstimatedEndDate time.Time `json:"estimated_end_date"`
	CurrentDay       int       `json:"current_day"`
	TotalDays        int       `json:"total_days"`
}

// TransitionPlan records the handoff when a plan is superseded
type TransitionPlan struct {
	NextPhase        Phase      `json:"next_phase"`
	NotificationSent bool       `json:"notification_sent"`
	RecheckAt        *time.Time `json:"recheck_at,omitempty"`
}

// Plan is one phase-scoped diet plan. At most one plan per user is active
// at a time; transitioning supersedes the old plan rather than mutating it.
type Plan struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"user_id"`
	Phase            Phase             `json:"phase"`
	Timeline         Timeline          `json:"timeline"`
	TargetConditions []TargetCondition `json:"target_conditions"`
	Milestones       []Milestone       `json:"milestones"`
	TransitionPlan   *TransitionPlan   `json:"transition_plan,omitempty"`
	Superseded       bool              `json:"superseded"`
	CreatedAt        time.Time         `json:"created_at"`
}

// NewPlan creates a plan for a phase from its target conditions.
// TotalDays is the longest target timeline, defaulting when none exist.
// Milestones land at the 25/50/75/100% marks of each target's timeline,
// merged and sorted by day.
func NewPlan(userID uuid.UUID, phase Phase, targets []TargetCondition, now time.Time) *Plan {
	totalDays := DefaultTotalDays
	for _, t := range targets {
		if t.EstimatedResolutionDays > totalDays {
			totalDays = t.EstimatedResolutionDays
		}
	}

	return &Plan{
		ID:     uuid.New(),
		UserID: userID,
		Phase:  phase,
		Timeline: Timeline{
			StartDate:        now,
			EstimatedEndDate: now.AddDate(0, 0, totalDays),
			CurrentDay:       0,
			TotalDays:        totalDays,
		},
		TargetConditions: targets,
		Milestones:       buildMilestones(targets, totalDays),
		CreatedAt:        now,
	}
}

func buildMilestones(targets []TargetCondition, totalDays int) []Milestone {
	fractions := []struct {
		pct   int
		label string
	}{
		{25, "Early progress check"},
		{50, "Halfway review"},
		{75, "Final stretch check"},
		{100, "Target resolution"},
	}

	seen := make(map[int]bool)
	var milestones []Milestone
	add := func(day int, desc string) {
		if day < 1 {
			day = 1
		}
		if seen[day] {
			return
		}
		seen[day] = true
		milestones = append(milestones, Milestone{Day: day, Description: desc})
	}

	for _, t := range targets {
		days := t.EstimatedResolutionDays
		if days <= 0 {
			days = totalDays
		}
		for _, f := range fractions {
			add(days*f.pct/100, f.label+": "+t.Condition)
		}
	}
	if len(targets) == 0 {
		for _, f := range fractions {
			add(totalDays*f.pct/100, f.label)
		}
	}

	sort.Slice(milestones, func(i, j int) bool { return milestones[i].Day < milestones[j].Day })
	return milestones
}

// IsActive reports whether now falls inside the plan window and the plan
// has not been superseded
func (p *Plan) IsActive(now time.Time) bool {
	return !p.Superseded && !now.Before(p.Timeline.StartDate) && now.Before(p.Timeline.EstimatedEndDate)
}

// UpdateProgress recomputes the current day from wall-clock elapsed time and
// completes every milestone whose day has passed. Completion is monotonic.
func (p *Plan) UpdateProgress(now time.Time) {
	day := int(now.Sub(p.Timeline.StartDate).Hours() / 24)
	if day < 0 {
		day = 0
	}
	p.Timeline.CurrentDay = day

	for i := range p.Milestones {
		if !p.Milestones[i].Completed && p.Milestones[i].Day <= day {
			p.Milestones[i].Completed = true
		}
	}
}

// NextMilestone returns the first incomplete milestone, or nil
func (p *Plan) NextMilestone() *Milestone {
	for i := range p.Milestones {
		if !p.Milestones[i].Completed {
			return &p.Milestones[i]
		}
	}
	return nil
}

// ShouldTransition reports whether the plan timeline is exhausted
func (p *Plan) ShouldTransition() bool {
	return p.Timeline.CurrentDay >= p.Timeline.TotalDays
}

// Extend pushes the end date and total days out in place ("maintain")
func (p *Plan) Extend(days int) {
	p.Timeline.TotalDays += days
	p.Timeline.EstimatedEndDate = p.Timeline.EstimatedEndDate.AddDate(0, 0, days)
}

// ScheduleRecheck sets a short re-evaluation trigger without changing phase
func (p *Plan) ScheduleRecheck(now time.Time) {
	at := now.AddDate(0, 0, RecheckTriggerDays)
	if p.TransitionPlan == nil {
		p.TransitionPlan = &TransitionPlan{NextPhase: p.Phase.Next()}
	}
	p.TransitionPlan.RecheckAt = &at
}

// Supersede retires this plan in favor of the next-phase plan. The old plan
// is retained for history with its transition recorded.
func (p *Plan) Supersede(nextPhase Phase) {
	p.Superseded = true
	p.TransitionPlan = &TransitionPlan{
		NextPhase:        nextPhase,
		NotificationSent: true,
	}
}
