// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/empower-sl/learnhub/internal/domain/progress"
	"github.com/empower-sl/learnhub/internal/domain/shared"
	"github.com/empower-sl/learnhub/pkg/logger"
	"github.com/empower-sl/learnhub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS ENGINE
// Owns every read-modify-write of a learner's progress record: XP awards,
// badge evaluation and the activity recorders.
// ══════════════════════════════════════════════════════════════════════════════

// Result is returned by every activity recorder.
type Result struct {
	// XPGained is the XP awarded by the activity itself (badge bonuses excluded).
	XPGained int `json:"xpGained"`

	// NewBadges lists badges unlocked by this call, in catalog order. Never nil.
	NewBadges []progress.Badge `json:"newBadges"`

	// LeveledUp is true if the level after the call is higher than before it.
	// Unlike XPGained it counts badge bonuses, so a badge reward that crosses a
	// threshold is reported as a level-up.
	LeveledUp bool `json:"leveledUp"`

	// NewLevel is the level after the call.
	NewLevel int `json:"newLevel"`
}

// XPAward is returned by AddXP.
type XPAward struct {
	LeveledUp bool `json:"leveledUp"`
	NewLevel  int  `json:"newLevel"`
	NewXP     int  `json:"newXP"`
}

// EngineConfig contains the reward table and study-time rules.
type EngineConfig struct {
	// Location is the time zone for calendar days and study hours.
	Location *time.Location

	// EarlyStudyHour: lessons finished before this local hour raise studiedEarly.
	EarlyStudyHour int

	// LateStudyHour: lessons finished at or after this local hour raise studiedLate.
	LateStudyHour int

	LessonXP      int
	QuizPassXP    int
	PerfectQuizXP int
	CourseXP      int

	// QuizPassPercent is the minimum score percentage that passes a quiz.
	QuizPassPercent int
}

// DefaultEngineConfig returns the production reward table.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Location:        timeutil.FreetownTZ,
		EarlyStudyHour:  8,
		LateStudyHour:   22,
		LessonXP:        50,
		QuizPassXP:      100,
		PerfectQuizXP:   150,
		CourseXP:        500,
		QuizPassPercent: 60,
	}
}

// Engine is the gamification engine.
type Engine struct {
	store     progress.Store
	catalog   *progress.Catalog
	publisher shared.EventPublisher
	clock     timeutil.Clock
	log       *logger.Logger
	config    EngineConfig
	locks     *learnerLocker
}

// NewEngine creates a new Engine. A nil publisher, clock or logger is replaced
// by a no-op publisher, the system clock and a no-op logger.
func NewEngine(
	store progress.Store,
	catalog *progress.Catalog,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
	config EngineConfig,
) *Engine {
	defaults := DefaultEngineConfig()
	if config.Location == nil {
		config.Location = defaults.Location
	}
	if config.LessonXP == 0 && config.QuizPassXP == 0 && config.CourseXP == 0 {
		config.LessonXP = defaults.LessonXP
		config.QuizPassXP = defaults.QuizPassXP
		config.PerfectQuizXP = defaults.PerfectQuizXP
		config.CourseXP = defaults.CourseXP
	}
	if config.QuizPassPercent <= 0 {
		config.QuizPassPercent = defaults.QuizPassPercent
	}
	if config.EarlyStudyHour == 0 && config.LateStudyHour == 0 {
		config.EarlyStudyHour = defaults.EarlyStudyHour
		config.LateStudyHour = defaults.LateStudyHour
	}
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Engine{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
		clock:     clock,
		log:       log.With(logger.Component("engine")),
		config:    config,
		locks:     newLearnerLocker(),
	}
}

// Catalog returns the badge catalog the engine evaluates.
func (e *Engine) Catalog() *progress.Catalog {
	return e.catalog
}

// Location returns the engine's study time zone.
func (e *Engine) Location() *time.Location {
	return e.config.Location
}

// ══════════════════════════════════════════════════════════════════════════════
// LOAD / STORE
// ══════════════════════════════════════════════════════════════════════════════

// CreateLearner mints a new learner ID and persists its default record.
func (e *Engine) CreateLearner(ctx context.Context) (string, *progress.UserProgress, error) {
	id := uuid.NewString()
	p, err := e.GetUserProgress(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return id, p, nil
}

// GetUserProgress returns the learner's record. On first access the default
// record is created and persisted immediately.
func (e *Engine) GetUserProgress(ctx context.Context, learnerID string) (*progress.UserProgress, error) {
	if _, err := shared.NewLearnerID(learnerID); err != nil {
		return nil, err
	}

	unlock, err := e.locks.Lock(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("engine.GetUserProgress: %w", err)
	}
	defer unlock()

	p, err := e.loadOrCreate(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("engine.GetUserProgress: %w", err)
	}
	return p, nil
}

// HasJobsAccess reports whether the learner may open the jobs board.
func (e *Engine) HasJobsAccess(ctx context.Context, learnerID string) (bool, error) {
	p, err := e.GetUserProgress(ctx, learnerID)
	if err != nil {
		return false, err
	}
	return p.HasJobsAccess(), nil
}

// Reset deletes the learner's record. The next read recreates the default.
func (e *Engine) Reset(ctx context.Context, learnerID string) error {
	if _, err := shared.NewLearnerID(learnerID); err != nil {
		return err
	}

	unlock, err := e.locks.Lock(ctx, learnerID)
	if err != nil {
		return fmt.Errorf("engine.Reset: %w", err)
	}
	defer unlock()

	if err := e.store.Delete(ctx, learnerID); err != nil {
		e.log.Error("failed to delete progress", logger.LearnerID(learnerID), logger.Err(err))
		return fmt.Errorf("engine.Reset: %w", err)
	}

	e.log.Info("progress reset", logger.LearnerID(learnerID))
	e.publish(shared.NewProgressResetEvent(learnerID, e.clock.Now()))
	return nil
}

// loadOrCreate must be called with the learner lock held.
func (e *Engine) loadOrCreate(ctx context.Context, learnerID string) (*progress.UserProgress, error) {
	p, err := e.store.Load(ctx, learnerID)
	if err == nil {
		return p, nil
	}
	if !shared.IsNotFound(err) {
		e.log.Error("failed to load progress", logger.LearnerID(learnerID), logger.Err(err))
		return nil, err
	}

	p = progress.NewUserProgress()
	if err := e.store.Save(ctx, learnerID, p); err != nil {
		e.log.Error("failed to persist default progress", logger.LearnerID(learnerID), logger.Err(err))
		return nil, err
	}

	e.log.Debug("default progress created", logger.LearnerID(learnerID))
	e.publish(shared.NewLearnerCreatedEvent(learnerID, e.clock.Now()))
	return p, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// XP AND BADGES
// ══════════════════════════════════════════════════════════════════════════════

// AddXP awards a non-negative amount of XP and recomputes the level. Badges
// are not evaluated here; recorders and CheckForNewBadges do that.
func (e *Engine) AddXP(ctx context.Context, learnerID string, amount int) (XPAward, error) {
	if amount < 0 {
		return XPAward{}, shared.ErrNegativeXP
	}
	if _, err := shared.NewLearnerID(learnerID); err != nil {
		return XPAward{}, err
	}

	unlock, err := e.locks.Lock(ctx, learnerID)
	if err != nil {
		return XPAward{}, fmt.Errorf("engine.AddXP: %w", err)
	}
	defer unlock()

	p, err := e.loadOrCreate(ctx, learnerID)
	if err != nil {
		return XPAward{}, fmt.Errorf("engine.AddXP: %w", err)
	}

	oldLevel := p.Level
	if err := p.AddXP(amount); err != nil {
		return XPAward{}, err
	}
	if err := e.save(ctx, learnerID, p); err != nil {
		return XPAward{}, fmt.Errorf("engine.AddXP: %w", err)
	}

	now := e.clock.Now()
	events := []shared.Event{shared.NewXPGainedEvent(learnerID, amount, p.XP, "manual", now)}
	if p.Level > oldLevel {
		events = append(events, shared.NewLevelUpEvent(learnerID, oldLevel, p.Level, p.XP, now))
	}
	e.publish(events...)

	return XPAward{LeveledUp: p.Level > oldLevel, NewLevel: p.Level, NewXP: p.XP}, nil
}

// CheckForNewBadges evaluates the catalog against the learner's record and
// returns the badges unlocked by this call (empty if none). The record is
// only written when something was unlocked.
func (e *Engine) CheckForNewBadges(ctx context.Context, learnerID string) ([]progress.Badge, error) {
	res, err := e.record(ctx, learnerID, "CheckForNewBadges", func(*mutation) error { return nil })
	if err != nil {
		return nil, err
	}
	return res.NewBadges, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// READ-MODIFY-WRITE
// ══════════════════════════════════════════════════════════════════════════════

// mutation is the scratch state a recorder fills in.
type mutation struct {
	p        *progress.UserProgress
	now      time.Time
	xp       int
	source   string
	events   []shared.Event
	dirty    bool
	shortcut bool
}

// award schedules base XP for the activity.
func (m *mutation) award(xp int, source string) {
	m.xp = xp
	m.source = source
	m.dirty = true
}

// skip ends the call with a zero result and no badge evaluation.
func (m *mutation) skip() {
	m.shortcut = true
}

// touch marks the record as changed without awarding XP.
func (m *mutation) touch() {
	m.dirty = true
}

// record runs fn on the learner's record under the learner lock, then awards
// XP, evaluates badges, saves once and publishes the collected events.
func (e *Engine) record(ctx context.Context, learnerID, op string, fn func(m *mutation) error) (Result, error) {
	if _, err := shared.NewLearnerID(learnerID); err != nil {
		return Result{}, err
	}

	unlock, err := e.locks.Lock(ctx, learnerID)
	if err != nil {
		return Result{}, fmt.Errorf("engine.%s: %w", op, err)
	}
	defer unlock()

	start := time.Now()
	log := e.log.With(logger.LearnerID(learnerID), logger.Operation(op))

	p, err := e.loadOrCreate(ctx, learnerID)
	if err != nil {
		return Result{}, fmt.Errorf("engine.%s: %w", op, err)
	}

	oldLevel := p.Level
	m := &mutation{p: p, now: e.clock.Now()}
	if err := fn(m); err != nil {
		return Result{}, err
	}
	if m.shortcut {
		log.Debug("activity ignored")
		return Result{NewBadges: []progress.Badge{}, NewLevel: p.Level}, nil
	}

	m.xp = p.GrantXP(m.xp)
	if m.xp > 0 {
		m.events = append(m.events, shared.NewXPGainedEvent(learnerID, m.xp, p.XP, m.source, m.now))
	}

	newBadges := p.UnlockBadges(e.catalog)
	for _, b := range newBadges {
		m.events = append(m.events, shared.NewBadgeUnlockedEvent(
			learnerID, b.ID, b.Name, b.NameKrio, b.Icon, string(b.Rarity), b.XPReward, m.now))
		log.Info("badge unlocked", logger.BadgeID(b.ID), logger.XPAmount(b.XPReward))
	}

	leveledUp := p.Level > oldLevel
	if leveledUp {
		m.events = append(m.events, shared.NewLevelUpEvent(learnerID, oldLevel, p.Level, p.XP, m.now))
		log.Info("level up", logger.NewLevel(p.Level))
	}

	if m.dirty || len(newBadges) > 0 {
		if err := e.save(ctx, learnerID, p); err != nil {
			log.Error("failed to save progress", logger.Err(err))
			return Result{}, fmt.Errorf("engine.%s: %w", op, err)
		}
	}

	e.publish(m.events...)
	log.Debug("activity recorded",
		logger.XPAmount(m.xp),
		logger.Bool("leveled_up", leveledUp),
		logger.Latency(time.Since(start)),
	)

	return Result{
		XPGained:  m.xp,
		NewBadges: newBadges,
		LeveledUp: leveledUp,
		NewLevel:  p.Level,
	}, nil
}

func (e *Engine) save(ctx context.Context, learnerID string, p *progress.UserProgress) error {
	return e.store.Save(ctx, learnerID, p)
}

// publish delivers events best-effort; a failing subscriber never fails the
// write that produced the event.
func (e *Engine) publish(events ...shared.Event) {
	for _, ev := range events {
		if err := e.publisher.Publish(ev); err != nil {
			e.log.Warn("failed to publish event",
				logger.String("event_type", string(ev.EventType())),
				logger.LearnerID(ev.AggregateID()),
				logger.Err(err),
			)
		}
	}
}
