// Package retrieval provides the concrete context sources the retriever
// fans out to: the health profile, recent conversation history, and the
// active diet plan.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vitalroute/v1/internal/domain/chat"
	"github.com/vitalroute/v1/internal/ports/outbound"
)

// Context type labels shared with retrieval filtering
const (
	TypeHealthProfile = "health_profile"
	TypeChatHistory   = "chat_history"
	TypeDietPlan      = "diet_plan"
)

// ProfileSource surfaces the user's health profile entries as candidates
type ProfileSource struct {
	profiles outbound.ProfileRepository
}

// NewProfileSource creates a profile-backed context source
func NewProfileSource(profiles outbound.ProfileRepository) *ProfileSource {
	return &ProfileSource{profiles: profiles}
}

// Name returns the source name
func (s *ProfileSource) Name() string { return TypeHealthProfile }

// Fetch returns one candidate per profile entry. Profile data ignores the
// recency cutoff; staleness is judged downstream by category.
func (s *ProfileSource) Fetch(ctx context.Context, userID uuid.UUID, domain string, since time.Time) ([]outbound.ContextCandidate, error) {
	entries, err := s.profiles.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidates := make([]outbound.ContextCandidate, 0, len(entries))
	for _, e := range entries {
		var text string
		if e.CurrentValue != 0 {
			text = fmt.Sprintf("%s: %.1f %s, status %s, trend %s",
				strings.ReplaceAll(e.Metric, "_", " "), e.CurrentValue, e.Unit, e.Status, e.Trend)
		} else {
			text = fmt.Sprintf("%s: status %s, trend %s",
				strings.ReplaceAll(e.Metric, "_", " "), e.Status, e.Trend)
		}
		candidates = append(candidates, outbound.ContextCandidate{
			SourceName:  TypeHealthProfile,
			ContextType: TypeHealthProfile,
			Text:        text,
			CreatedAt:   e.LastMeasured,
		})
	}
	return candidates, nil
}

// HistorySource surfaces recent completed assistant answers as candidates
type HistorySource struct {
	sessions outbound.SessionRepository
	messages outbound.MessageRepository
	maxMsgs  int
}

// NewHistorySource creates a conversation-history context source
func NewHistorySource(sessions outbound.SessionRepository, messages outbound.MessageRepository, maxMsgs int) *HistorySource {
	if maxMsgs <= 0 {
		maxMsgs = 20
	}
	return &HistorySource{sessions: sessions, messages: messages, maxMsgs: maxMsgs}
}

// Name returns the source name
func (s *HistorySource) Name() string { return TypeChatHistory }

// Fetch walks the user's sessions newest-first collecting completed
// assistant messages inside the recency window
func (s *HistorySource) Fetch(ctx context.Context, userID uuid.UUID, domain string, since time.Time) ([]outbound.ContextCandidate, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var candidates []outbound.ContextCandidate
	for _, session := range sessions {
		if session.LastActivityAt().Before(since) {
			continue
		}
		msgs, err := s.messages.ListBySession(ctx, session.ID())
		if err != nil {
			continue
		}
		for _, m := range msgs {
			if m.Role() != chat.RoleAssistant || m.ProcessingStatus() != chat.ProcessingCompleted {
				continue
			}
			if m.CreatedAt().Before(since) || m.Content() == "" {
				continue
			}
			candidates = append(candidates, outbound.ContextCandidate{
				SourceName:  TypeChatHistory,
				ContextType: TypeChatHistory,
				Text:        m.Content(),
				CreatedAt:   m.CreatedAt(),
			})
			if len(candidates) >= s.maxMsgs {
				return candidates, nil
			}
		}
	}
	return candidates, nil
}

// PlanSource surfaces the active diet plan as one candidate
type PlanSource struct {
	plans outbound.DietPlanRepository
}

// NewPlanSource creates a diet-plan context source
func NewPlanSource(plans outbound.DietPlanRepository) *PlanSource {
	return &PlanSource{plans: plans}
}

// Name returns the source name
func (s *PlanSource) Name() string { return TypeDietPlan }

// Fetch returns the active plan summary, or nothing when no plan exists
func (s *PlanSource) Fetch(ctx context.Context, userID uuid.UUID, domain string, since time.Time) ([]outbound.ContextCandidate, error) {
	plan, err := s.plans.FindActiveByUser(ctx, userID, time.Now())
	if err != nil || plan == nil {
		// No plan is a normal state, not a source failure.
		return nil, nil
	}

	var targets []string
	for _, t := range plan.TargetConditions {
		targets = append(targets, strings.ReplaceAll(t.Condition, "_", " "))
	}

	text := fmt.Sprintf("Active diet plan in %s phase, day %d of %d, targeting: %s",
		plan.Phase, plan.Timeline.CurrentDay, plan.Timeline.TotalDays, strings.Join(targets, ", "))
	if next := plan.NextMilestone(); next != nil {
		text += fmt.Sprintf(". Next milestone on day %d: %s", next.Day, next.Description)
	}

	return []outbound.ContextCandidate{{
		SourceName:  TypeDietPlan,
		ContextType: TypeDietPlan,
		Text:        text,
		CreatedAt:   plan.CreatedAt,
	}}, nil
}

var (
	_ outbound.ContextSource = (*ProfileSource)(nil)
	_ outbound.ContextSource = (*HistorySource)(nil)
	_ outbound.ContextSource = (*PlanSource)(nil)
)
