package gormdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vitalroute/v1/internal/domain/chat"
	"github.com/vitalroute/v1/internal/domain/dietplan"
	"github.com/vitalroute/v1/internal/domain/health"
	"github.com/vitalroute/v1/internal/ports/outbound"
)

// SessionRepository is the GORM-backed session store
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a session repository
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save upserts a session
func (r *SessionRepository) Save(ctx context.Context, session *chat.Session) error {
	model, err := sessionToModel(session)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
}

// FindByID retrieves a session by ID
func (r *SessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*chat.Session, error) {
	var model SessionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id.String()).Error; err != nil {
		return nil, err
	}
	return model.toDomain()
}

// FindReusableByUser returns the most recently active session of the given
// type that is still active and unexpired
func (r *SessionRepository) FindReusableByUser(ctx context.Context, userID uuid.UUID, sessionType chat.SessionType) (*chat.Session, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND expires_at > ?",
			userID.String(), string(chat.SessionStatusActive), time.Now()).
		Order("last_activity_at DESC")
	if sessionType != "" {
		query = query.Where("type = ?", string(sessionType))
	}

	var model SessionModel
	if err := query.First(&model).Error; err != nil {
		return nil, err
	}
	return model.toDomain()
}

// ListByUser lists a user's sessions, most recently active first
func (r *SessionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*chat.Session, error) {
	var models []SessionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("last_activity_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	sessions := make([]*chat.Session, 0, len(models))
	for i := range models {
		session, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&SessionModel{}, "id = ?", id.String()).Error
}

// MessageRepository is the GORM-backed message store
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a message repository
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Save upserts a message
func (r *MessageRepository) Save(ctx context.Context, message *chat.Message) error {
	model, err := messageToModel(message)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
}

// FindByID retrieves a message by ID
func (r *MessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*chat.Message, error) {
	var model MessageModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id.String()).Error; err != nil {
		return nil, err
	}
	return model.toDomain()
}

// ListBySession lists a session's messages in creation order
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*chat.Message, error) {
	var models []MessageModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID.String()).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	messages := make([]*chat.Message, 0, len(models))
	for i := range models {
		message, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// ProfileRepository is the GORM-backed health profile store
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a profile repository
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get retrieves one metric entry
func (r *ProfileRepository) Get(ctx context.Context, userID uuid.UUID, metric string) (*health.ProfileEntry, error) {
	var model ProfileEntryModel
	if err := r.db.WithContext(ctx).
		First(&model, "user_id = ? AND metric = ?", userID.String(), metric).Error; err != nil {
		return nil, err
	}
	return model.toDomain()
}

// Put upserts a metric entry
func (r *ProfileRepository) Put(ctx context.Context, entry *health.ProfileEntry) error {
	model, err := profileToModel(entry)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
}

// ListByUser lists all entries for a user sorted by metric name
func (r *ProfileRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*health.ProfileEntry, error) {
	var models []ProfileEntryModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("metric ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	entries := make([]*health.ProfileEntry, 0, len(models))
	for i := range models {
		entry, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// AppendTimeline records one extraction event
func (r *ProfileRepository) AppendTimeline(ctx context.Context, event health.TimelineEvent) error {
	return r.db.WithContext(ctx).Create(&TimelineEventModel{
		UserID:      event.UserID.String(),
		Metric:      event.Metric,
		Description: event.Description,
		Source:      string(event.Source),
		OccurredAt:  event.OccurredAt,
	}).Error
}

// DietPlanRepository is the GORM-backed diet plan store
type DietPlanRepository struct {
	db *gorm.DB
}

// NewDietPlanRepository creates a diet plan repository
func NewDietPlanRepository(db *gorm.DB) *DietPlanRepository {
	return &DietPlanRepository{db: db}
}

// Save upserts a plan
func (r *DietPlanRepository) Save(ctx context.Context, plan *dietplan.Plan) error {
	model, err := planToModel(plan)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
}

// FindActiveByUser returns the user's single non-superseded plan
func (r *DietPlanRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (*dietplan.Plan, error) {
	var model DietPlanModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND superseded = ?", userID.String(), false).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		return nil, err
	}
	return model.toDomain()
}

// ListByUser lists a user's plans, newest first, superseded included
func (r *DietPlanRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*dietplan.Plan, error) {
	var models []DietPlanModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	plans := make([]*dietplan.Plan, 0, len(models))
	for i := range models {
		plan, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

var (
	_ outbound.SessionRepository  = (*SessionRepository)(nil)
	_ outbound.MessageRepository  = (*MessageRepository)(nil)
	_ outbound.ProfileRepository  = (*ProfileRepository)(nil)
	_ outbound.DietPlanRepository = (*DietPlanRepository)(nil)
)
