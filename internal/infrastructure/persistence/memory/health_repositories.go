package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vitalroute/v1/internal/domain/dietplan"
	"github.com/vitalroute/v1/internal/domain/health"
	"github.com/vitalroute/v1/internal/ports/outbound"
)

var (
	errEntryNotFound = errors.New("profile entry not found")
	errPlanNotFound  = errors.New("diet plan not found")
)

type profileKey struct {
	userID uuid.UUID
	metric string
}

// ProfileRepository is an in-memory health profile store
type ProfileRepository struct {
	entries  map[profileKey]*health.ProfileEntry
	timeline map[uuid.UUID][]health.TimelineEvent
	mutex    sync.RWMutex
}

// NewProfileRepository creates an in-memory profile repository
func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{
		entries:  make(map[profileKey]*health.ProfileEntry),
		timeline: make(map[uuid.UUID][]health.TimelineEvent),
	}
}

// Get retrieves one metric entry for a user
func (r *ProfileRepository) Get(ctx context.Context, userID uuid.UUID, metric string) (*health.ProfileEntry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, exists := r.entries[profileKey{userID, metric}]
	if !exists {
		return nil, errEntryNotFound
	}
	copied := *entry
	return &copied, nil
}

// Put stores or replaces a metric entry
func (r *ProfileRepository) Put(ctx context.Context, entry *health.ProfileEntry) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	copied := *entry
	r.entries[profileKey{entry.UserID, entry.Metric}] = &copied
	return nil
}

// ListByUser lists all of a user's entries sorted by metric name
func (r *ProfileRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*health.ProfileEntry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*health.ProfileEntry
	for key, entry := range r.entries {
		if key.userID == userID {
			copied := *entry
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Metric < result[j].Metric })
	return result, nil
}

// AppendTimeline records one extraction event
func (r *ProfileRepository) AppendTimeline(ctx context.Context, event health.TimelineEvent) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.timeline[event.UserID] = append(r.timeline[event.UserID], event)
	return nil
}

// Timeline returns a user's extraction history in order
func (r *ProfileRepository) Timeline(userID uuid.UUID) []health.TimelineEvent {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return append([]health.TimelineEvent(nil), r.timeline[userID]...)
}

// DietPlanRepository is an in-memory diet plan store
type DietPlanRepository struct {
	plans map[uuid.UUID]*dietplan.Plan
	mutex sync.RWMutex
}

// NewDietPlanRepository creates an in-memory diet plan repository
func NewDietPlanRepository() *DietPlanRepository {
	return &DietPlanRepository{plans: make(map[uuid.UUID]*dietplan.Plan)}
}

// Save stores or replaces a plan
func (r *DietPlanRepository) Save(ctx context.Context, plan *dietplan.Plan) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.plans[plan.ID] = plan
	return nil
}

// FindActiveByUser returns the user's single active plan
func (r *DietPlanRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (*dietplan.Plan, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, plan := range r.plans {
		// A plan past its window but not yet superseded still counts as
		// active so the transition flow can pick it up.
		if plan.UserID == userID && !plan.Superseded {
			return plan, nil
		}
	}
	return nil, errPlanNotFound
}

// ListByUser lists a user's plans, newest first, superseded included
func (r *DietPlanRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*dietplan.Plan, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*dietplan.Plan
	for _, plan := range r.plans {
		if plan.UserID == userID {
			result = append(result, plan)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

var (
	_ outbound.ProfileRepository  = (*ProfileRepository)(nil)
	_ outbound.DietPlanRepository = (*DietPlanRepository)(nil)
)
