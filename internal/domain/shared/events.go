package shared

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened to a learner's progress record.
const (
	// Learner events
	EventLearnerCreated EventType = "learner.created"
	EventProgressReset  EventType = "learner.progress_reset"

	// Progress events
	EventXPGained           EventType = "progress.xp_gained"
	EventLevelUp            EventType = "progress.level_up"
	EventBadgeUnlocked      EventType = "progress.badge_unlocked"
	EventLessonCompleted    EventType = "progress.lesson_completed"
	EventCourseCompleted    EventType = "progress.course_completed"
	EventDailyStreakUpdated EventType = "progress.streak_updated"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventID returns the unique identifier of this event instance.
	EventID() string

	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventID implements Event interface.
func (e BaseEvent) EventID() string {
	return e.ID
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped with the given time.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Learner Events
// ═══════════════════════════════════════════════════════════════════════════

// LearnerCreatedEvent is emitted when a default progress record is first persisted.
type LearnerCreatedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
}

// Payload implements Event interface.
func (e LearnerCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
	}
}

// NewLearnerCreatedEvent creates a new LearnerCreatedEvent.
func NewLearnerCreatedEvent(learnerID string, at time.Time) LearnerCreatedEvent {
	return LearnerCreatedEvent{
		BaseEvent: NewBaseEvent(EventLearnerCreated, learnerID, at),
		LearnerID: learnerID,
	}
}

// ProgressResetEvent is emitted when a learner's record is deleted.
type ProgressResetEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
}

// Payload implements Event interface.
func (e ProgressResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
	}
}

// NewProgressResetEvent creates a new ProgressResetEvent.
func NewProgressResetEvent(learnerID string, at time.Time) ProgressResetEvent {
	return ProgressResetEvent{
		BaseEvent: NewBaseEvent(EventProgressReset, learnerID, at),
		LearnerID: learnerID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted when a learner gains XP.
type XPGainedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	Amount    int    `json:"amount"`
	NewTotal  int    `json:"new_total"`
	Source    string `json:"source"` // e.g., "lesson", "quiz", "badge"
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"amount":     e.Amount,
		"new_total":  e.NewTotal,
		"source":     e.Source,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(learnerID string, amount, newTotal int, source string, at time.Time) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, learnerID, at),
		LearnerID: learnerID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// LevelUpEvent is emitted when a learner reaches a new level.
type LevelUpEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	OldLevel  int    `json:"old_level"`
	NewLevel  int    `json:"new_level"`
	TotalXP   int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"old_level":  e.OldLevel,
		"new_level":  e.NewLevel,
		"total_xp":   e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(learnerID string, oldLevel, newLevel, totalXP int, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, learnerID, at),
		LearnerID: learnerID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// BadgeUnlockedEvent is emitted once per badge when it is unlocked.
type BadgeUnlockedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	BadgeID   string `json:"badge_id"`
	Name      string `json:"name"`
	NameKrio  string `json:"name_krio"`
	Icon      string `json:"icon"`
	Rarity    string `json:"rarity"`
	XPReward  int    `json:"xp_reward"`
}

// Payload implements Event interface.
func (e BadgeUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"badge_id":   e.BadgeID,
		"name":       e.Name,
		"name_krio":  e.NameKrio,
		"icon":       e.Icon,
		"rarity":     e.Rarity,
		"xp_reward":  e.XPReward,
	}
}

// NewBadgeUnlockedEvent creates a new BadgeUnlockedEvent.
func NewBadgeUnlockedEvent(learnerID, badgeID, name, nameKrio, icon, rarity string, xpReward int, at time.Time) BadgeUnlockedEvent {
	return BadgeUnlockedEvent{
		BaseEvent: NewBaseEvent(EventBadgeUnlocked, learnerID, at),
		LearnerID: learnerID,
		BadgeID:   badgeID,
		Name:      name,
		NameKrio:  nameKrio,
		Icon:      icon,
		Rarity:    rarity,
		XPReward:  xpReward,
	}
}

// LessonCompletedEvent is emitted when a lesson completion is recorded.
type LessonCompletedEvent struct {
	BaseEvent
	LearnerID        string `json:"learner_id"`
	LessonID         string `json:"lesson_id,omitempty"` // empty for anonymous lessons
	LessonsCompleted int    `json:"lessons_completed"`
}

// Payload implements Event interface.
func (e LessonCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":        e.LearnerID,
		"lesson_id":         e.LessonID,
		"lessons_completed": e.LessonsCompleted,
	}
}

// NewLessonCompletedEvent creates a new LessonCompletedEvent.
func NewLessonCompletedEvent(learnerID, lessonID string, total int, at time.Time) LessonCompletedEvent {
	return LessonCompletedEvent{
		BaseEvent:        NewBaseEvent(EventLessonCompleted, learnerID, at),
		LearnerID:        learnerID,
		LessonID:         lessonID,
		LessonsCompleted: total,
	}
}

// CourseCompletedEvent is emitted the first time a course is completed.
type CourseCompletedEvent struct {
	BaseEvent
	LearnerID        string `json:"learner_id"`
	CourseID         string `json:"course_id"`
	CoursesCompleted int    `json:"courses_completed"`
}

// Payload implements Event interface.
func (e CourseCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":        e.LearnerID,
		"course_id":         e.CourseID,
		"courses_completed": e.CoursesCompleted,
	}
}

// NewCourseCompletedEvent creates a new CourseCompletedEvent.
func NewCourseCompletedEvent(learnerID, courseID string, total int, at time.Time) CourseCompletedEvent {
	return CourseCompletedEvent{
		BaseEvent:        NewBaseEvent(EventCourseCompleted, learnerID, at),
		LearnerID:        learnerID,
		CourseID:         courseID,
		CoursesCompleted: total,
	}
}

// DailyStreakUpdatedEvent is emitted when the daily streak changes.
type DailyStreakUpdatedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	OldStreak int    `json:"old_streak"`
	NewStreak int    `json:"new_streak"`
	StudyDate string `json:"study_date"`
}

// Payload implements Event interface.
func (e DailyStreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"old_streak": e.OldStreak,
		"new_streak": e.NewStreak,
		"study_date": e.StudyDate,
	}
}

// NewDailyStreakUpdatedEvent creates a new DailyStreakUpdatedEvent.
func NewDailyStreakUpdatedEvent(learnerID string, oldStreak, newStreak int, studyDate string, at time.Time) DailyStreakUpdatedEvent {
	return DailyStreakUpdatedEvent{
		BaseEvent: NewBaseEvent(EventDailyStreakUpdated, learnerID, at),
		LearnerID: learnerID,
		OldStreak: oldStreak,
		NewStreak: newStreak,
		StudyDate: studyDate,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope serializes an event's payload into an envelope.
func NewEventEnvelope(e Event) (EventEnvelope, error) {
	payload, err := json.Marshal(e.Payload())
	if err != nil {
		return EventEnvelope{}, err
	}
	return EventEnvelope{
		ID:          e.EventID(),
		Type:        e.EventType(),
		AggregateID: e.AggregateID(),
		Timestamp:   e.OccurredAt(),
		Version:     1,
		Payload:     payload,
	}, nil
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
