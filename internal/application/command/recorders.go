package command

import (
	"context"
	"strings"

	"github.com/empower-sl/learnhub/internal/domain/shared"
	"github.com/empower-sl/learnhub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY RECORDERS
// One method per trackable learner action. Each runs as a single
// read-modify-write under the learner lock.
// ══════════════════════════════════════════════════════════════════════════════

// RecordLessonComplete counts a lesson, advances the daily streak, raises the
// early/late study flags and awards lesson XP. There is no deduplication;
// use CompleteLesson for lessons with an identity.
func (e *Engine) RecordLessonComplete(ctx context.Context, learnerID string) (Result, error) {
	return e.record(ctx, learnerID, "RecordLessonComplete", func(m *mutation) error {
		e.applyLesson(m, learnerID, "")
		return nil
	})
}

// CompleteLesson records a lesson once per lesson ID. Repeats return a zero
// result and leave the record untouched.
func (e *Engine) CompleteLesson(ctx context.Context, learnerID, lessonID string) (Result, error) {
	lessonID = strings.TrimSpace(lessonID)
	if lessonID == "" {
		return Result{}, shared.ErrEmptyLessonID
	}
	return e.record(ctx, learnerID, "CompleteLesson", func(m *mutation) error {
		if !m.p.MarkLessonCompleted(lessonID) {
			m.skip()
			return nil
		}
		e.applyLesson(m, learnerID, lessonID)
		return nil
	})
}

func (e *Engine) applyLesson(m *mutation, learnerID, lessonID string) {
	p := m.p
	p.LessonsCompleted++

	today := timeutil.FormatDay(m.now, e.config.Location)
	change := p.RecordStudyDay(today)
	if change.Changed() {
		m.events = append(m.events, shared.NewDailyStreakUpdatedEvent(learnerID, change.Old, change.New, today, m.now))
	}

	p.MarkStudyHour(timeutil.HourIn(m.now, e.config.Location), e.config.EarlyStudyHour, e.config.LateStudyHour)

	m.events = append(m.events, shared.NewLessonCompletedEvent(learnerID, lessonID, p.LessonsCompleted, m.now))
	m.award(e.config.LessonXP, "lesson")
}

// MaxQuizScore bounds maxScore so the pass check stays in integer range.
const MaxQuizScore = 10_000

// RecordQuizComplete rewards a quiz scored at or above the pass percentage:
// regular XP for a pass, perfect XP when score equals maxScore. A score below
// the threshold changes nothing and returns a zero result.
func (e *Engine) RecordQuizComplete(ctx context.Context, learnerID string, score, maxScore int) (Result, error) {
	if maxScore <= 0 || maxScore > MaxQuizScore || score < 0 || score > maxScore {
		return Result{}, shared.ErrInvalidQuizScore
	}
	return e.record(ctx, learnerID, "RecordQuizComplete", func(m *mutation) error {
		// score/max >= pct/100, kept in integers.
		if score*100 < e.config.QuizPassPercent*maxScore {
			m.skip()
			return nil
		}
		perfect := score == maxScore
		m.p.RecordQuiz(perfect)
		if perfect {
			m.award(e.config.PerfectQuizXP, "perfect_quiz")
		} else {
			m.award(e.config.QuizPassXP, "quiz")
		}
		return nil
	})
}

// CompleteCourse records a course once per course ID and awards course XP.
// Completing any course opens the jobs board.
func (e *Engine) CompleteCourse(ctx context.Context, learnerID, courseID string) (Result, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return Result{}, shared.ErrEmptyCourseID
	}
	return e.record(ctx, learnerID, "CompleteCourse", func(m *mutation) error {
		if !m.p.MarkCourseCompleted(courseID) {
			m.skip()
			return nil
		}
		m.events = append(m.events, shared.NewCourseCompletedEvent(learnerID, courseID, m.p.CoursesCompleted, m.now))
		m.award(e.config.CourseXP, "course")
		return nil
	})
}

// RecordExerciseComplete counts a finished practice exercise.
func (e *Engine) RecordExerciseComplete(ctx context.Context, learnerID string) (Result, error) {
	return e.record(ctx, learnerID, "RecordExerciseComplete", func(m *mutation) error {
		m.p.ExercisesCompleted++
		m.touch()
		return nil
	})
}

// RecordAIUsage counts a question asked to the assistant.
func (e *Engine) RecordAIUsage(ctx context.Context, learnerID string) (Result, error) {
	return e.record(ctx, learnerID, "RecordAIUsage", func(m *mutation) error {
		m.p.AIQuestionsAsked++
		m.touch()
		return nil
	})
}

// RecordVoiceUsage counts a voice translation.
func (e *Engine) RecordVoiceUsage(ctx context.Context, learnerID string) (Result, error) {
	return e.record(ctx, learnerID, "RecordVoiceUsage", func(m *mutation) error {
		m.p.VoiceTranslationsUsed++
		m.touch()
		return nil
	})
}

// RecordKrioUsage raises the usedKrio flag.
func (e *Engine) RecordKrioUsage(ctx context.Context, learnerID string) (Result, error) {
	return e.record(ctx, learnerID, "RecordKrioUsage", func(m *mutation) error {
		if m.p.UsedKrio.Raise() {
			m.touch()
		}
		return nil
	})
}

// RecordProjectApplication counts an application to a jobs-board project.
func (e *Engine) RecordProjectApplication(ctx context.Context, learnerID string) (Result, error) {
	return e.record(ctx, learnerID, "RecordProjectApplication", func(m *mutation) error {
		m.p.ProjectsApplied++
		m.touch()
		return nil
	})
}

// RecordProgressShared raises the sharedProgress flag.
func (e *Engine) RecordProgressShared(ctx context.Context, learnerID string) (Result, error) {
	return e.record(ctx, learnerID, "RecordProgressShared", func(m *mutation) error {
		if m.p.SharedProgress.Raise() {
			m.touch()
		}
		return nil
	})
}
