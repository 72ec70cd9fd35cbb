package command

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empower-sl/learnhub/internal/domain/progress"
	"github.com/empower-sl/learnhub/internal/domain/shared"
	"github.com/empower-sl/learnhub/internal/infrastructure/persistence/memory"
	"github.com/empower-sl/learnhub/pkg/logger"
	"github.com/empower-sl/learnhub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

type capturePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (c *capturePublisher) Publish(e shared.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *capturePublisher) ofType(t shared.EventType) []shared.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []shared.Event
	for _, e := range c.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type failingStore struct {
	progress.Store
	failSave bool
	failLoad bool
}

var errBackendDown = errors.New("backend down")

func (f *failingStore) Load(ctx context.Context, id string) (*progress.UserProgress, error) {
	if f.failLoad {
		return nil, shared.StorageError("Load", errBackendDown)
	}
	return f.Store.Load(ctx, id)
}

func (f *failingStore) Save(ctx context.Context, id string, p *progress.UserProgress) error {
	if f.failSave {
		return shared.StorageError("Save", errBackendDown)
	}
	return f.Store.Save(ctx, id, p)
}

func testBadge(id string, req progress.Requirement, count, reward int) progress.Badge {
	return progress.Badge{
		ID: id, Name: id, NameKrio: id,
		Requirement: req, RequirementCount: count, XPReward: reward,
		Rarity: progress.RarityCommon,
	}
}

type fixture struct {
	engine *Engine
	store  *memory.ProgressStore
	clock  *timeutil.FixedClock
	events *capturePublisher
}

func newFixture(t *testing.T, badges ...progress.Badge) *fixture {
	t.Helper()
	catalog, err := progress.NewCatalog(badges)
	require.NoError(t, err)

	f := &fixture{
		store:  memory.NewProgressStore(),
		clock:  &timeutil.FixedClock{T: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
		events: &capturePublisher{},
	}
	cfg := DefaultEngineConfig()
	cfg.Location = time.UTC
	f.engine = NewEngine(f.store, catalog, f.events, f.clock, logger.Nop(), cfg)
	return f
}

func (f *fixture) load(t *testing.T, id string) *progress.UserProgress {
	t.Helper()
	p, err := f.store.Load(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) seed(t *testing.T, id string, mutate func(p *progress.UserProgress)) {
	t.Helper()
	p := progress.NewUserProgress()
	mutate(p)
	require.NoError(t, f.store.Save(context.Background(), id, p))
}

// ══════════════════════════════════════════════════════════════════════════════
// LOAD / RESET
// ══════════════════════════════════════════════════════════════════════════════

func TestGetUserProgress_CreatesAndPersistsDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.engine.GetUserProgress(ctx, "learner-1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 0, p.XP)
	assert.Equal(t, 1, f.store.Len())
	assert.Len(t, f.events.ofType(shared.EventLearnerCreated), 1)

	_, err = f.engine.GetUserProgress(ctx, "learner-1")
	require.NoError(t, err)
	assert.Len(t, f.events.ofType(shared.EventLearnerCreated), 1)
}

func TestGetUserProgress_InvalidLearnerID(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.GetUserProgress(context.Background(), "bad id!")
	assert.ErrorIs(t, err, shared.ErrInvalidLearnerID)
	assert.Zero(t, f.store.Len())
}

func TestCreateLearner(t *testing.T) {
	f := newFixture(t)
	id, p, err := f.engine.CreateLearner(context.Background())
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.Equal(t, 1, p.Level)
	_, ok := f.store.Raw(id)
	assert.True(t, ok)
}

func TestReset_DeletesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.RecordLessonComplete(ctx, "l1")
	require.NoError(t, err)

	require.NoError(t, f.engine.Reset(ctx, "l1"))
	_, ok := f.store.Raw("l1")
	assert.False(t, ok)
	assert.Len(t, f.events.ofType(shared.EventProgressReset), 1)

	p, err := f.engine.GetUserProgress(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.LessonsCompleted)
}

// ══════════════════════════════════════════════════════════════════════════════
// XP
// ══════════════════════════════════════════════════════════════════════════════

func TestAddXP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	award, err := f.engine.AddXP(ctx, "l1", 99)
	require.NoError(t, err)
	assert.Equal(t, XPAward{LeveledUp: false, NewLevel: 1, NewXP: 99}, award)

	award, err = f.engine.AddXP(ctx, "l1", 1)
	require.NoError(t, err)
	assert.Equal(t, XPAward{LeveledUp: true, NewLevel: 2, NewXP: 100}, award)
	assert.Len(t, f.events.ofType(shared.EventLevelUp), 1)
}

func TestAddXP_RejectsNegativeAndPersistsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.AddXP(ctx, "l1", 10)
	require.NoError(t, err)
	before, _ := f.store.Raw("l1")

	_, err = f.engine.AddXP(ctx, "l1", -5)
	assert.ErrorIs(t, err, shared.ErrNegativeXP)
	assert.True(t, shared.IsValidation(err))

	after, _ := f.store.Raw("l1")
	assert.Equal(t, string(before), string(after))
}

func TestAddXP_RejectsOverflowAndPersistsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.AddXP(ctx, "l1", 100)
	require.NoError(t, err)
	before, _ := f.store.Raw("l1")

	_, err = f.engine.AddXP(ctx, "l1", math.MaxInt64)
	assert.ErrorIs(t, err, shared.ErrXPLimit)
	assert.True(t, shared.IsValidation(err))

	after, _ := f.store.Raw("l1")
	assert.Equal(t, string(before), string(after))

	award, err := f.engine.AddXP(ctx, "l1", progress.MaxXP-100)
	require.NoError(t, err)
	assert.Equal(t, progress.MaxXP, award.NewXP)
	assert.Equal(t, progress.Level(progress.MaxXP), award.NewLevel)
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORDERS
// ══════════════════════════════════════════════════════════════════════════════

func TestRecorders_AtXPCeiling(t *testing.T) {
	f := newFixture(t, testBadge("first-lesson", progress.RequirementCompleteLesson, 1, 25))
	f.seed(t, "l1", func(p *progress.UserProgress) {
		p.XP = progress.MaxXP
		p.Level = progress.Level(progress.MaxXP)
	})

	res, err := f.engine.RecordLessonComplete(context.Background(), "l1")
	require.NoError(t, err)
	assert.Zero(t, res.XPGained)
	require.Len(t, res.NewBadges, 1)
	assert.False(t, res.LeveledUp)
	assert.Empty(t, f.events.ofType(shared.EventXPGained))

	p := f.load(t, "l1")
	assert.Equal(t, progress.MaxXP, p.XP)
	assert.Equal(t, 1, p.LessonsCompleted)
	assert.Equal(t, []string{"first-lesson"}, p.Badges)
}

func TestRecordLessonComplete(t *testing.T) {
	f := newFixture(t)
	res, err := f.engine.RecordLessonComplete(context.Background(), "l1")
	require.NoError(t, err)

	assert.Equal(t, 50, res.XPGained)
	assert.NotNil(t, res.NewBadges)
	assert.Empty(t, res.NewBadges)
	assert.False(t, res.LeveledUp)
	assert.Equal(t, 1, res.NewLevel)

	p := f.load(t, "l1")
	assert.Equal(t, 1, p.LessonsCompleted)
	assert.Equal(t, 50, p.XP)
	assert.Equal(t, 1, p.DailyStreak)
	assert.Equal(t, "2024-01-01", p.LastStudyDate)
}

func TestCompleteLesson_IsIdempotentPerLessonID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.engine.CompleteLesson(ctx, "l1", "L1")
	require.NoError(t, err)
	assert.Equal(t, 50, first.XPGained)

	second, err := f.engine.CompleteLesson(ctx, "l1", "L1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.XPGained)
	assert.Empty(t, second.NewBadges)
	assert.False(t, second.LeveledUp)
	assert.Equal(t, 1, second.NewLevel)

	p := f.load(t, "l1")
	assert.Equal(t, 1, p.LessonsCompleted)
	assert.Equal(t, []string{"L1"}, p.CompletedLessons)

	_, err = f.engine.CompleteLesson(ctx, "l1", "  ")
	assert.ErrorIs(t, err, shared.ErrEmptyLessonID)
}

func TestRecordQuizComplete(t *testing.T) {
	tests := []struct {
		name        string
		score, max  int
		wantXP      int
		wantPassed  int
		wantPerfect int
	}{
		{"below threshold", 59, 100, 0, 0, 0},
		{"exactly threshold", 60, 100, 100, 1, 0},
		{"perfect", 100, 100, 150, 1, 1},
		{"small quiz pass", 3, 5, 100, 1, 0},
		{"small quiz fail", 2, 5, 0, 0, 0},
		{"largest quiz fail", 5999, MaxQuizScore, 0, 0, 0},
		{"largest quiz pass", 6000, MaxQuizScore, 100, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			res, err := f.engine.RecordQuizComplete(context.Background(), "l1", tt.score, tt.max)
			require.NoError(t, err)
			assert.Equal(t, tt.wantXP, res.XPGained)
			// 100 XP is the level 2 threshold.
			assert.Equal(t, tt.wantXP >= 100, res.LeveledUp)
			assert.Equal(t, progress.Level(tt.wantXP), res.NewLevel)

			p := f.load(t, "l1")
			assert.Equal(t, tt.wantPassed, p.QuizzesPassed)
			assert.Equal(t, tt.wantPerfect, p.PerfectQuizzes)
			assert.Equal(t, tt.wantXP, p.XP)
		})
	}
}

func TestRecordQuizComplete_InvalidScores(t *testing.T) {
	f := newFixture(t)
	for _, c := range [][2]int{
		{1, 0}, {-1, 10}, {11, 10}, {0, -3},
		{1, MaxQuizScore + 1},
		{math.MaxInt64 / 500, math.MaxInt64 / 50},
	} {
		_, err := f.engine.RecordQuizComplete(context.Background(), "l1", c[0], c[1])
		assert.ErrorIs(t, err, shared.ErrInvalidQuizScore, "score=%d max=%d", c[0], c[1])
	}
	assert.Zero(t, f.store.Len())
}

func TestCompleteCourse_GatesJobsAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.engine.HasJobsAccess(ctx, "l1")
	require.NoError(t, err)
	assert.False(t, ok)

	res, err := f.engine.CompleteCourse(ctx, "l1", "digital-literacy")
	require.NoError(t, err)
	assert.Equal(t, 500, res.XPGained)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 3, res.NewLevel)

	ok, err = f.engine.HasJobsAccess(ctx, "l1")
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := f.engine.CompleteCourse(ctx, "l1", "digital-literacy")
	require.NoError(t, err)
	assert.Equal(t, 0, again.XPGained)
	assert.Equal(t, 3, again.NewLevel)
	assert.Equal(t, 1, f.load(t, "l1").CoursesCompleted)
	assert.Len(t, f.events.ofType(shared.EventCourseCompleted), 1)
}

func TestZeroXPRecorders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	recorders := []func(context.Context, string) (Result, error){
		f.engine.RecordExerciseComplete,
		f.engine.RecordAIUsage,
		f.engine.RecordVoiceUsage,
		f.engine.RecordKrioUsage,
		f.engine.RecordProjectApplication,
		f.engine.RecordProgressShared,
	}
	for _, rec := range recorders {
		res, err := rec(ctx, "l1")
		require.NoError(t, err)
		assert.Equal(t, 0, res.XPGained)
	}

	p := f.load(t, "l1")
	assert.Equal(t, 1, p.ExercisesCompleted)
	assert.Equal(t, 1, p.AIQuestionsAsked)
	assert.Equal(t, 1, p.VoiceTranslationsUsed)
	assert.Equal(t, 1, p.ProjectsApplied)
	assert.True(t, p.UsedKrio.IsRaised())
	assert.True(t, p.SharedProgress.IsRaised())
	assert.Equal(t, 0, p.XP)
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK AND STUDY HOURS
// ══════════════════════════════════════════════════════════════════════════════

func TestStreak_AcrossDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "l1", func(p *progress.UserProgress) {
		p.LastStudyDate = "2024-01-01"
		p.DailyStreak = 1
	})

	f.clock.T = time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	_, err := f.engine.RecordLessonComplete(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 2, f.load(t, "l1").DailyStreak)
	assert.Len(t, f.events.ofType(shared.EventDailyStreakUpdated), 1)

	_, err = f.engine.RecordLessonComplete(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 2, f.load(t, "l1").DailyStreak)

	f.clock.T = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	_, err = f.engine.RecordLessonComplete(ctx, "l1")
	require.NoError(t, err)
	p := f.load(t, "l1")
	assert.Equal(t, 1, p.DailyStreak)
	assert.Equal(t, "2024-01-10", p.LastStudyDate)
}

func TestStreak_ClockMovedBackwards(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "l1", func(p *progress.UserProgress) {
		p.LastStudyDate = "2024-01-05"
		p.DailyStreak = 4
	})

	f.clock.T = time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	_, err := f.engine.RecordLessonComplete(context.Background(), "l1")
	require.NoError(t, err)

	p := f.load(t, "l1")
	assert.Equal(t, 4, p.DailyStreak)
	assert.Equal(t, "2024-01-05", p.LastStudyDate)
	assert.Equal(t, 1, p.LessonsCompleted)
}

func TestStreak_UsesConfiguredTimeZone(t *testing.T) {
	catalog, err := progress.NewCatalog(nil)
	require.NoError(t, err)
	store := memory.NewProgressStore()
	clock := &timeutil.FixedClock{T: time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)}

	cfg := DefaultEngineConfig()
	cfg.Location = time.FixedZone("UTC+1", 60*60)
	e := NewEngine(store, catalog, nil, clock, nil, cfg)

	_, err = e.RecordLessonComplete(context.Background(), "l1")
	require.NoError(t, err)
	p, err := store.Load(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", p.LastStudyDate)
	// 00:30 local is before the early-study hour.
	assert.True(t, p.StudiedEarly.IsRaised())
	assert.False(t, p.StudiedLate.IsRaised())
}

func TestStudyHourFlags(t *testing.T) {
	f := newFixture(t, testBadge("early-bird", progress.RequirementStudyEarly, 1, 10))
	ctx := context.Background()

	f.clock.T = time.Date(2024, 1, 1, 7, 59, 0, 0, time.UTC)
	res, err := f.engine.RecordLessonComplete(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, "early-bird", res.NewBadges[0].ID)

	f.clock.T = time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)
	_, err = f.engine.RecordLessonComplete(ctx, "l1")
	require.NoError(t, err)

	p := f.load(t, "l1")
	assert.True(t, p.StudiedEarly.IsRaised())
	assert.True(t, p.StudiedLate.IsRaised())
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGES
// ══════════════════════════════════════════════════════════════════════════════

func TestCheckForNewBadges_Idempotent(t *testing.T) {
	f := newFixture(t, testBadge("five-lessons", progress.RequirementCompleteLesson, 5, 20))
	ctx := context.Background()
	f.seed(t, "l1", func(p *progress.UserProgress) { p.LessonsCompleted = 5 })

	got, err := f.engine.CheckForNewBadges(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "five-lessons", got[0].ID)

	before, _ := f.store.Raw("l1")
	got, err = f.engine.CheckForNewBadges(ctx, "l1")
	require.NoError(t, err)
	assert.Empty(t, got)
	after, _ := f.store.Raw("l1")
	assert.Equal(t, string(before), string(after))

	p := f.load(t, "l1")
	assert.Equal(t, []string{"five-lessons"}, p.Badges)
	assert.Equal(t, 20, p.XP)
	assert.Len(t, f.events.ofType(shared.EventBadgeUnlocked), 1)
}

func TestLeveledUp_CountsBadgeBonuses(t *testing.T) {
	f := newFixture(t, testBadge("first-lesson", progress.RequirementCompleteLesson, 1, 60))

	res, err := f.engine.RecordLessonComplete(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, 50, res.XPGained)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 2, res.NewLevel)
	assert.Equal(t, 110, f.load(t, "l1").XP)
}

func TestBadges_ChainThroughReachLevel(t *testing.T) {
	f := newFixture(t,
		testBadge("first-course", progress.RequirementCompleteCourse, 1, 400),
		testBadge("level-4", progress.RequirementReachLevel, 4, 50),
	)

	res, err := f.engine.CompleteCourse(context.Background(), "l1", "c1")
	require.NoError(t, err)
	require.Len(t, res.NewBadges, 2)
	assert.Equal(t, "first-course", res.NewBadges[0].ID)
	assert.Equal(t, "level-4", res.NewBadges[1].ID)
	assert.Equal(t, 950, f.load(t, "l1").XP)
	assert.Equal(t, 4, res.NewLevel)
}

// ══════════════════════════════════════════════════════════════════════════════
// FAILURES AND CONCURRENCY
// ══════════════════════════════════════════════════════════════════════════════

func TestStoreFailuresPropagate(t *testing.T) {
	catalog, err := progress.NewCatalog(nil)
	require.NoError(t, err)
	store := &failingStore{Store: memory.NewProgressStore(), failSave: true}
	e := NewEngine(store, catalog, nil, nil, nil, DefaultEngineConfig())

	_, err = e.RecordAIUsage(context.Background(), "l1")
	assert.True(t, shared.IsStorage(err))
	assert.ErrorIs(t, err, errBackendDown)

	store.failSave, store.failLoad = false, true
	_, err = e.GetUserProgress(context.Background(), "l1")
	assert.True(t, shared.IsStorage(err))
}

func TestConcurrentRecorders_NoLostUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.engine.RecordAIUsage(ctx, "shared-learner")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.engine.RecordLessonComplete(ctx, "shared-learner")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p := f.load(t, "shared-learner")
	assert.Equal(t, workers, p.AIQuestionsAsked)
	assert.Equal(t, workers, p.LessonsCompleted)
	assert.Equal(t, workers*50, p.XP)
	assert.Zero(t, f.engine.locks.active())
}

func TestLock_RespectsContextCancellation(t *testing.T) {
	f := newFixture(t)
	unlock, err := f.engine.locks.Lock(context.Background(), "l1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = f.engine.RecordAIUsage(ctx, "l1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
