// Package progress contains the gamification core: the per-learner progress
// record, the level curve, streak tracking, one-shot flags and the badge
// catalog with its requirement evaluators. Everything here is pure; the
// application layer loads and saves records through Store.
package progress

import (
	"encoding/json"
	"slices"

	"github.com/empower-sl/learnhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ONE-SHOT FLAGS
// ══════════════════════════════════════════════════════════════════════════════

// Flag is a ratchet: once raised it stays raised. There is deliberately no
// method that lowers it; only a full reset of the record clears it.
type Flag bool

// Raise sets the flag. It reports whether the flag was newly raised.
func (f *Flag) Raise() bool {
	if *f {
		return false
	}
	*f = true
	return true
}

// IsRaised reports whether the flag is set.
func (f Flag) IsRaised() bool {
	return bool(f)
}

// ══════════════════════════════════════════════════════════════════════════════
// USER PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// UserProgress is the whole gamification state of one learner. It is stored
// as a single JSON document; field names follow the browser client's format.
type UserProgress struct {
	XP     int      `json:"xp"`
	Level  int      `json:"level"`
	Badges []string `json:"badges"` // unlock order, no duplicates

	LessonsCompleted int    `json:"lessonsCompleted"`
	QuizzesPassed    int    `json:"quizzesPassed"`
	PerfectQuizzes   int    `json:"perfectQuizzes"`
	DailyStreak      int    `json:"dailyStreak"`
	LastStudyDate    string `json:"lastStudyDate"` // YYYY-MM-DD, empty until the first lesson

	CoursesCompleted      int `json:"coursesCompleted"`
	ExercisesCompleted    int `json:"exercisesCompleted"`
	AIQuestionsAsked      int `json:"aiQuestionsAsked"`
	VoiceTranslationsUsed int `json:"voiceTranslationsUsed"`
	ProjectsApplied       int `json:"projectsApplied"`

	UsedKrio       Flag `json:"usedKrio"`
	StudiedEarly   Flag `json:"studiedEarly"`
	StudiedLate    Flag `json:"studiedLate"`
	SharedProgress Flag `json:"sharedProgress"`

	CompletedCourses []string `json:"completedCourses"`
	CompletedLessons []string `json:"completedLessons"`
}

// NewUserProgress returns the zero-valued default record.
func NewUserProgress() *UserProgress {
	return &UserProgress{
		Level:            1,
		Badges:           []string{},
		CompletedCourses: []string{},
		CompletedLessons: []string{},
	}
}

// Normalize replaces nil lists with empty ones so a record always encodes the
// same way, whether it came from NewUserProgress or from an older document
// that omitted the completion lists.
func (p *UserProgress) Normalize() {
	if p.Badges == nil {
		p.Badges = []string{}
	}
	if p.CompletedCourses == nil {
		p.CompletedCourses = []string{}
	}
	if p.CompletedLessons == nil {
		p.CompletedLessons = []string{}
	}
	if p.Level < 1 {
		p.Level = Level(p.XP)
	}
}

// Clone returns a deep copy.
func (p *UserProgress) Clone() *UserProgress {
	c := *p
	c.Badges = slices.Clone(p.Badges)
	c.CompletedCourses = slices.Clone(p.CompletedCourses)
	c.CompletedLessons = slices.Clone(p.CompletedLessons)
	c.Normalize()
	return &c
}

// Encode serializes the record as the persisted JSON document.
func (p *UserProgress) Encode() ([]byte, error) {
	c := p.Clone()
	return json.Marshal(c)
}

// Decode parses a persisted JSON document.
func Decode(data []byte) (*UserProgress, error) {
	var p UserProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, shared.WrapError("progress", "Decode", shared.ErrInvalidFormat, "malformed progress document", err)
	}
	p.Normalize()
	return &p, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MUTATIONS
// ══════════════════════════════════════════════════════════════════════════════

// AddXP adds a non-negative amount and recomputes the level. An amount that
// would take the total past MaxXP is rejected and leaves the record as is.
func (p *UserProgress) AddXP(amount int) error {
	if amount < 0 {
		return shared.ErrNegativeXP
	}
	if amount > MaxXP-p.XP {
		return shared.ErrXPLimit
	}
	p.XP += amount
	p.Level = Level(p.XP)
	return nil
}

// GrantXP adds a non-negative amount, stopping at MaxXP, and returns how much
// was actually added. Activity and badge rewards use it so a learner at the
// ceiling can still record activity.
func (p *UserProgress) GrantXP(amount int) int {
	if amount <= 0 {
		return 0
	}
	if room := MaxXP - p.XP; amount > room {
		amount = max(room, 0)
	}
	p.XP += amount
	p.Level = Level(p.XP)
	return amount
}

// HasBadge reports whether the badge is already unlocked.
func (p *UserProgress) HasBadge(id string) bool {
	return slices.Contains(p.Badges, id)
}

// HasCompletedLesson reports whether the lesson ID was already recorded.
func (p *UserProgress) HasCompletedLesson(id string) bool {
	return slices.Contains(p.CompletedLessons, id)
}

// HasCompletedCourse reports whether the course ID was already recorded.
func (p *UserProgress) HasCompletedCourse(id string) bool {
	return slices.Contains(p.CompletedCourses, id)
}

// MarkLessonCompleted adds the lesson ID. It returns false if already present.
func (p *UserProgress) MarkLessonCompleted(id string) bool {
	if p.HasCompletedLesson(id) {
		return false
	}
	p.CompletedLessons = append(p.CompletedLessons, id)
	return true
}

// MarkCourseCompleted adds the course ID and bumps the course counter.
// It returns false (and changes nothing) if the course was already completed.
func (p *UserProgress) MarkCourseCompleted(id string) bool {
	if p.HasCompletedCourse(id) {
		return false
	}
	p.CompletedCourses = append(p.CompletedCourses, id)
	p.CoursesCompleted++
	return true
}

// RecordQuiz counts a passed quiz and, if perfect, a perfect quiz.
func (p *UserProgress) RecordQuiz(perfect bool) {
	p.QuizzesPassed++
	if perfect {
		p.PerfectQuizzes++
	}
}

// MarkStudyHour raises the early/late flags for a lesson finished at the
// given local hour.
func (p *UserProgress) MarkStudyHour(hour, earlyBefore, lateFrom int) {
	if hour < earlyBefore {
		p.StudiedEarly.Raise()
	}
	if hour >= lateFrom {
		p.StudiedLate.Raise()
	}
}

// HasJobsAccess gates the jobs board: at least one completed course.
func (p *UserProgress) HasJobsAccess() bool {
	return p.CoursesCompleted > 0
}
