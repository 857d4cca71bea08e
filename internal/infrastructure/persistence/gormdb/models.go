package gormdb

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vitalroute/v1/internal/domain/chat"
	"github.com/vitalroute/v1/internal/domain/dietplan"
	"github.com/vitalroute/v1/internal/domain/health"
)

// SessionModel is the relational shape of a chat session
type SessionModel struct {
	ID             string `gorm:"primaryKey;size:36"`
	UserID         string `gorm:"size:36;index"`
	Type           string `gorm:"size:32"`
	Status         string `gorm:"size:16;index"`
	Preferences    string `gorm:"type:text"`
	MessageCount   int
	LastActivityAt time.Time
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// TableName overrides the table name
func (SessionModel) TableName() string { return "chat_sessions" }

func sessionToModel(s *chat.Session) (*SessionModel, error) {
	prefs, err := json.Marshal(s.Preferences())
	if err != nil {
		return nil, err
	}
	return &SessionModel{
		ID:             s.ID().String(),
		UserID:         s.UserID().String(),
		Type:           string(s.Type()),
		Status:         string(s.Status()),
		Preferences:    string(prefs),
		MessageCount:   s.MessageCount(),
		LastActivityAt: s.LastActivityAt(),
		CreatedAt:      s.CreatedAt(),
		ExpiresAt:      s.ExpiresAt(),
	}, nil
}

func (m *SessionModel) toDomain() (*chat.Session, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(m.UserID)
	if err != nil {
		return nil, err
	}
	var prefs chat.Preferences
	if m.Preferences != "" {
		if err := json.Unmarshal([]byte(m.Preferences), &prefs); err != nil {
			return nil, err
		}
	}
	return chat.RestoreSession(
		id, userID,
		chat.SessionType(m.Type),
		chat.SessionStatus(m.Status),
		prefs,
		m.MessageCount,
		m.LastActivityAt, m.CreatedAt, m.ExpiresAt,
	), nil
}

// MessageModel is the relational shape of a message
type MessageModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	SessionID  string `gorm:"size:36;index"`
	Role       string `gorm:"size:16"`
	Content    string `gorm:"type:text"`
	Status     string `gorm:"size:16"`
	Metadata   string `gorm:"type:text"`
	Actions    string `gorm:"type:text"`
	TokenCount int
	CostCents  float64
	CreatedAt  time.Time `gorm:"index"`
}

// TableName overrides the table name
func (MessageModel) TableName() string { return "chat_messages" }

func messageToModel(msg *chat.Message) (*MessageModel, error) {
	meta, err := json.Marshal(msg.Metadata())
	if err != nil {
		return nil, err
	}
	actions, err := json.Marshal(msg.Actions())
	if err != nil {
		return nil, err
	}
	return &MessageModel{
		ID:         msg.ID().String(),
		SessionID:  msg.SessionID().String(),
		Role:       string(msg.Role()),
		Content:    msg.Content(),
		Status:     string(msg.ProcessingStatus()),
		Metadata:   string(meta),
		Actions:    string(actions),
		TokenCount: msg.TokenCount(),
		CostCents:  msg.CostCents(),
		CreatedAt:  msg.CreatedAt(),
	}, nil
}

func (m *MessageModel) toDomain() (*chat.Message, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	sessionID, err := uuid.Parse(m.SessionID)
	if err != nil {
		return nil, err
	}
	var meta chat.MessageMetadata
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &meta); err != nil {
			return nil, err
		}
	}
	var actions []chat.ActionProposal
	if m.Actions != "" {
		if err := json.Unmarshal([]byte(m.Actions), &actions); err != nil {
			return nil, err
		}
	}
	return chat.RestoreMessage(
		id, sessionID,
		chat.MessageRole(m.Role),
		m.Content,
		chat.ProcessingStatus(m.Status),
		meta, actions,
		m.TokenCount, m.CostCents, m.CreatedAt,
	), nil
}

// ProfileEntryModel is the relational shape of one profile metric
type ProfileEntryModel struct {
	UserID       string `gorm:"primaryKey;size:36"`
	Metric       string `gorm:"primaryKey;size:64"`
	Category     string `gorm:"size:32"`
	CurrentValue float64
	Unit         string `gorm:"size:16"`
	Status       string `gorm:"size:16"`
	Trend        string `gorm:"size:16"`
	IdealRange   string `gorm:"type:text"`
	LastMeasured time.Time
	DataSource   string `gorm:"size:32"`
	History      string `gorm:"type:text"`
}

// TableName overrides the table name
func (ProfileEntryModel) TableName() string { return "health_profile_entries" }

func profileToModel(e *health.ProfileEntry) (*ProfileEntryModel, error) {
	history, err := json.Marshal(e.HistoricalValues)
	if err != nil {
		return nil, err
	}
	idealRange := ""
	if e.IdealRange != nil {
		data, err := json.Marshal(e.IdealRange)
		if err != nil {
			return nil, err
		}
		idealRange = string(data)
	}
	return &ProfileEntryModel{
		UserID:       e.UserID.String(),
		Metric:       e.Metric,
		Category:     string(e.Category),
		CurrentValue: e.CurrentValue,
		Unit:         e.Unit,
		Status:       string(e.Status),
		Trend:        string(e.Trend),
		IdealRange:   idealRange,
		LastMeasured: e.LastMeasured,
		DataSource:   string(e.DataSource),
		History:      string(history),
	}, nil
}

func (m *ProfileEntryModel) toDomain() (*health.ProfileEntry, error) {
	userID, err := uuid.Parse(m.UserID)
	if err != nil {
		return nil, err
	}
	var history []health.Measurement
	if m.History != "" {
		if err := json.Unmarshal([]byte(m.History), &history); err != nil {
			return nil, err
		}
	}
	var idealRange *health.IdealRange
	if m.IdealRange != "" {
		idealRange = &health.IdealRange{}
		if err := json.Unmarshal([]byte(m.IdealRange), idealRange); err != nil {
			return nil, err
		}
	}
	return &health.ProfileEntry{
		UserID:           userID,
		Metric:           m.Metric,
		Category:         health.MetricCategory(m.Category),
		CurrentValue:     m.CurrentValue,
		Unit:             m.Unit,
		Status:           health.MetricStatus(m.Status),
		Trend:            health.Trend(m.Trend),
		IdealRange:       idealRange,
		LastMeasured:     m.LastMeasured,
		DataSource:       health.DataSource(m.DataSource),
		HistoricalValues: history,
	}, nil
}

// TimelineEventModel is the relational shape of one timeline event
type TimelineEventModel struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	UserID      string `gorm:"size:36;index"`
	Metric      string `gorm:"size:64"`
	Description string `gorm:"type:text"`
	Source      string `gorm:"size:32"`
	OccurredAt  time.Time
}

// TableName overrides the table name
func (TimelineEventModel) TableName() string { return "health_timeline_events" }

// DietPlanModel is the relational shape of a diet plan
type DietPlanModel struct {
	ID               string `gorm:"primaryKey;size:36"`
	UserID           string `gorm:"size:36;index"`
	Phase            string `gorm:"size:16"`
	StartDate        time.Time
	EstimatedEndDate time.Time
	CurrentDay       int
	TotalDays        int
	Targets          string `gorm:"type:text"`
	Milestones       string `gorm:"type:text"`
	Transition       string `gorm:"type:text"`
	Superseded       bool   `gorm:"index"`
	CreatedAt        time.Time
}

// TableName overrides the table name
func (DietPlanModel) TableName() string { return "diet_plans" }

func planToModel(p *dietplan.Plan) (*DietPlanModel, error) {
	targets, err := json.Marshal(p.TargetConditions)
	if err != nil {
		return nil, err
	}
	milestones, err := json.Marshal(p.Milestones)
	if err != nil {
		return nil, err
	}
	transition := ""
	if p.TransitionPlan != nil {
		data, err := json.Marshal(p.TransitionPlan)
		if err != nil {
			return nil, err
		}
		transition = string(data)
	}
	return &DietPlanModel{
		ID:               p.ID.String(),
		UserID:           p.UserID.String(),
		Phase:            string(p.Phase),
		StartDate:        p.Timeline.StartDate,
		EstimatedEndDate: p.Timeline.EstimatedEndDate,
		CurrentDay:       p.Timeline.CurrentDay,
		TotalDays:        p.Timeline.TotalDays,
		Targets:          string(targets),
		Milestones:       string(milestones),
		Transition:       transition,
		Superseded:       p.Superseded,
		CreatedAt:        p.CreatedAt,
	}, nil
}

func (m *DietPlanModel) toDomain() (*dietplan.Plan, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(m.UserID)
	if err != nil {
		return nil, err
	}
	var targets []dietplan.TargetCondition
	if m.Targets != "" {
		if err := json.Unmarshal([]byte(m.Targets), &targets); err != nil {
			return nil, err
		}
	}
	var milestones []dietplan.Milestone
	if m.Milestones != "" {
		if err := json.Unmarshal([]byte(m.Milestones), &milestones); err != nil {
			return nil, err
		}
	}
	var transition *dietplan.TransitionPlan
	if m.Transition != "" {
		transition = &dietplan.TransitionPlan{}
		if err := json.Unmarshal([]byte(m.Transition), transition); err != nil {
			return nil, err
		}
	}
	return &dietplan.Plan{
		ID:     id,
		UserID: userID,
		Phase:  dietplan.Phase(m.Phase),
		Timeline: dietplan.Timeline{
			StartDate:        m.StartDate,
			EstimatedEndDate: m.EstimatedEndDate,
			CurrentDay:       m.CurrentDay,
			TotalDays:        m.TotalDays,
		},
		TargetConditions: targets,
		Milestones:       milestones,
		TransitionPlan:   transition,
		Superseded:       m.Superseded,
		CreatedAt:        m.CreatedAt,
	}, nil
}
