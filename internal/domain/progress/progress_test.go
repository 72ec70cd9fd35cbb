package progress

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empower-sl/learnhub/internal/domain/shared"
)

func TestNewUserProgress_Defaults(t *testing.T) {
	p := NewUserProgress()
	assert.Equal(t, 0, p.XP)
	assert.Equal(t, 1, p.Level)
	assert.Empty(t, p.Badges)
	assert.Equal(t, "", p.LastStudyDate)
	assert.False(t, p.HasJobsAccess())

	data, err := p.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"badges":[]`)
	assert.Contains(t, string(data), `"completedCourses":[]`)
	assert.Contains(t, string(data), `"completedLessons":[]`)
	assert.Contains(t, string(data), `"usedKrio":false`)
}

func TestEncodeDecode_RoundTripIsByteIdentical(t *testing.T) {
	p := NewUserProgress()
	require.NoError(t, p.AddXP(420))
	p.Badges = append(p.Badges, "first-lesson")
	p.LessonsCompleted = 3
	p.DailyStreak = 2
	p.LastStudyDate = "2024-01-02"
	p.UsedKrio.Raise()
	p.MarkCourseCompleted("intro-to-coding")
	p.MarkLessonCompleted("L1")

	first, err := p.Encode()
	require.NoError(t, err)

	loaded, err := Decode(first)
	require.NoError(t, err)

	second, err := loaded.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestDecode_LegacyDocumentWithoutLists(t *testing.T) {
	legacy := `{"xp":50,"level":1,"badges":["first-lesson"],"lessonsCompleted":1,"quizzesPassed":0,
		"perfectQuizzes":0,"dailyStreak":1,"lastStudyDate":"2024-01-01","coursesCompleted":0,
		"exercisesCompleted":0,"aiQuestionsAsked":0,"voiceTranslationsUsed":0,"projectsApplied":0,
		"usedKrio":false,"studiedEarly":false,"studiedLate":true,"sharedProgress":false}`

	p, err := Decode([]byte(legacy))
	require.NoError(t, err)
	assert.NotNil(t, p.CompletedCourses)
	assert.NotNil(t, p.CompletedLessons)
	assert.True(t, p.StudiedLate.IsRaised())

	_, err = Decode([]byte(`{"xp":"lots"}`))
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)
}

func TestAddXP_RejectsNegative(t *testing.T) {
	p := NewUserProgress()
	err := p.AddXP(-10)
	assert.ErrorIs(t, err, shared.ErrNegativeXP)
	assert.True(t, shared.IsValidation(err))
	assert.Equal(t, 0, p.XP)

	require.NoError(t, p.AddXP(100))
	assert.Equal(t, 2, p.Level)
}

func TestAddXP_RejectsTotalsPastCeiling(t *testing.T) {
	p := NewUserProgress()
	require.NoError(t, p.AddXP(100))

	err := p.AddXP(math.MaxInt)
	assert.ErrorIs(t, err, shared.ErrXPLimit)
	assert.True(t, shared.IsValidation(err))
	assert.Equal(t, 100, p.XP)
	assert.Equal(t, 2, p.Level)

	require.NoError(t, p.AddXP(MaxXP-100))
	assert.Equal(t, MaxXP, p.XP)
	assert.Equal(t, Level(MaxXP), p.Level)

	assert.ErrorIs(t, p.AddXP(1), shared.ErrXPLimit)
	assert.NoError(t, p.AddXP(0))
}

func TestGrantXP_StopsAtCeiling(t *testing.T) {
	p := NewUserProgress()
	p.XP = MaxXP - 10

	assert.Equal(t, 10, p.GrantXP(25))
	assert.Equal(t, MaxXP, p.XP)
	assert.Equal(t, 0, p.GrantXP(5))
	assert.Equal(t, 0, p.GrantXP(-3))
	assert.Equal(t, MaxXP, p.XP)
}

func TestFlag_OnlyRaises(t *testing.T) {
	var f Flag
	assert.True(t, f.Raise())
	assert.False(t, f.Raise())
	assert.True(t, f.IsRaised())

	data, err := json.Marshal(struct {
		F Flag `json:"f"`
	}{f})
	require.NoError(t, err)
	assert.JSONEq(t, `{"f":true}`, string(data))
}

func TestMarkCourseCompleted_Idempotent(t *testing.T) {
	p := NewUserProgress()
	assert.True(t, p.MarkCourseCompleted("c1"))
	assert.False(t, p.MarkCourseCompleted("c1"))
	assert.Equal(t, 1, p.CoursesCompleted)
	assert.Equal(t, []string{"c1"}, p.CompletedCourses)
	assert.True(t, p.HasJobsAccess())
}

func TestMarkStudyHour(t *testing.T) {
	p := NewUserProgress()
	p.MarkStudyHour(12, 8, 22)
	assert.False(t, p.StudiedEarly.IsRaised())
	assert.False(t, p.StudiedLate.IsRaised())

	p.MarkStudyHour(7, 8, 22)
	assert.True(t, p.StudiedEarly.IsRaised())

	p.MarkStudyHour(22, 8, 22)
	assert.True(t, p.StudiedLate.IsRaised())

	// Later daytime lessons never lower a raised flag.
	p.MarkStudyHour(12, 8, 22)
	assert.True(t, p.StudiedEarly.IsRaised())
	assert.True(t, p.StudiedLate.IsRaised())
}

func TestClone_IsDeep(t *testing.T) {
	p := NewUserProgress()
	p.Badges = append(p.Badges, "a")
	c := p.Clone()
	c.Badges[0] = "b"
	c.CompletedLessons = append(c.CompletedLessons, "L1")
	assert.Equal(t, "a", p.Badges[0])
	assert.Empty(t, p.CompletedLessons)
}
