package progress

import (
	"fmt"

	"github.com/empower-sl/learnhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUIREMENTS
// ══════════════════════════════════════════════════════════════════════════════

// Requirement is the closed set of conditions a badge can be tied to.
type Requirement int

const (
	RequirementCompleteLesson Requirement = iota
	RequirementPassQuiz
	RequirementPerfectQuiz
	RequirementDailyStreak
	RequirementCompleteCourse
	RequirementUseKrio
	RequirementCompleteExercise
	RequirementUseAI
	RequirementUseVoice
	RequirementStudyEarly
	RequirementStudyLate
	RequirementApplyProject
	RequirementShareProgress
	RequirementReachLevel

	requirementCount
)

// requirementTags holds the catalog spelling of every requirement.
var requirementTags = [requirementCount]string{
	RequirementCompleteLesson:   "completeLesson",
	RequirementPassQuiz:         "passQuiz",
	RequirementPerfectQuiz:      "perfectQuiz",
	RequirementDailyStreak:      "dailyStreak",
	RequirementCompleteCourse:   "completeCourse",
	RequirementUseKrio:          "useKrio",
	RequirementCompleteExercise: "completeExercise",
	RequirementUseAI:            "useAI",
	RequirementUseVoice:         "useVoice",
	RequirementStudyEarly:       "studyEarly",
	RequirementStudyLate:        "studyLate",
	RequirementApplyProject:     "applyProject",
	RequirementShareProgress:    "shareProgress",
	RequirementReachLevel:       "reachLevel",
}

// Requirements returns every requirement in declaration order.
func Requirements() []Requirement {
	out := make([]Requirement, 0, requirementCount)
	for r := Requirement(0); r < requirementCount; r++ {
		out = append(out, r)
	}
	return out
}

// ParseRequirement maps a catalog tag to a Requirement. Unknown tags are an
// error, never a silent no-op.
func ParseRequirement(tag string) (Requirement, error) {
	for r, t := range requirementTags {
		if t == tag {
			return Requirement(r), nil
		}
	}
	return 0, shared.WrapError("catalog", "ParseRequirement", shared.ErrInvalidFormat,
		fmt.Sprintf("unknown requirement %q", tag), shared.ErrUnknownRequirement)
}

// IsValid reports whether r is one of the declared requirements.
func (r Requirement) IsValid() bool {
	return r >= 0 && r < requirementCount
}

// String returns the catalog tag.
func (r Requirement) String() string {
	if !r.IsValid() {
		return fmt.Sprintf("Requirement(%d)", int(r))
	}
	return requirementTags[r]
}

// MarshalText implements encoding.TextMarshaler.
func (r Requirement) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, shared.ErrUnknownRequirement
	}
	return []byte(requirementTags[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Requirement) UnmarshalText(text []byte) error {
	parsed, err := ParseRequirement(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// IsFlag reports whether the requirement is a one-shot flag rather than a
// counter threshold. The badge's count is ignored for flags.
func (r Requirement) IsFlag() bool {
	switch r {
	case RequirementUseKrio, RequirementStudyEarly, RequirementStudyLate, RequirementShareProgress:
		return true
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATORS
// ══════════════════════════════════════════════════════════════════════════════

// evaluator decides whether a record satisfies a requirement at a threshold.
type evaluator func(p *UserProgress, threshold int) bool

func counterAtLeast(counter func(p *UserProgress) int) evaluator {
	return func(p *UserProgress, threshold int) bool {
		return counter(p) >= threshold
	}
}

func flagRaised(flag func(p *UserProgress) Flag) evaluator {
	return func(p *UserProgress, _ int) bool {
		return flag(p).IsRaised()
	}
}

// evaluators has exactly one entry per Requirement; a missing entry is caught
// by tests and by catalog validation.
var evaluators = [requirementCount]evaluator{
	RequirementCompleteLesson:   counterAtLeast(func(p *UserProgress) int { return p.LessonsCompleted }),
	RequirementPassQuiz:         counterAtLeast(func(p *UserProgress) int { return p.QuizzesPassed }),
	RequirementPerfectQuiz:      counterAtLeast(func(p *UserProgress) int { return p.PerfectQuizzes }),
	RequirementDailyStreak:      counterAtLeast(func(p *UserProgress) int { return p.DailyStreak }),
	RequirementCompleteCourse:   counterAtLeast(func(p *UserProgress) int { return p.CoursesCompleted }),
	RequirementUseKrio:          flagRaised(func(p *UserProgress) Flag { return p.UsedKrio }),
	RequirementCompleteExercise: counterAtLeast(func(p *UserProgress) int { return p.ExercisesCompleted }),
	RequirementUseAI:            counterAtLeast(func(p *UserProgress) int { return p.AIQuestionsAsked }),
	RequirementUseVoice:         counterAtLeast(func(p *UserProgress) int { return p.VoiceTranslationsUsed }),
	RequirementStudyEarly:       flagRaised(func(p *UserProgress) Flag { return p.StudiedEarly }),
	RequirementStudyLate:        flagRaised(func(p *UserProgress) Flag { return p.StudiedLate }),
	RequirementApplyProject:     counterAtLeast(func(p *UserProgress) int { return p.ProjectsApplied }),
	RequirementShareProgress:    flagRaised(func(p *UserProgress) Flag { return p.SharedProgress }),
	RequirementReachLevel:       counterAtLeast(func(p *UserProgress) int { return p.Level }),
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGE
// ══════════════════════════════════════════════════════════════════════════════

// Rarity is a decorative tier with no mechanical effect.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
	RaritySpecial   Rarity = "special"
)

// IsValid reports whether the rarity is known.
func (r Rarity) IsValid() bool {
	switch r {
	case RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary, RaritySpecial:
		return true
	}
	return false
}

// Badge is a static achievement definition from the catalog.
type Badge struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	NameKrio         string      `json:"nameKrio"`
	Description      string      `json:"description"`
	DescriptionKrio  string      `json:"descriptionKrio"`
	Icon             string      `json:"icon"`
	Requirement      Requirement `json:"requirement"`
	RequirementCount int         `json:"requirementCount"`
	XPReward         int         `json:"xpReward"`
	Rarity           Rarity      `json:"rarity"`
}

// IsSatisfiedBy evaluates the badge's requirement against a record.
func (b Badge) IsSatisfiedBy(p *UserProgress) bool {
	if !b.Requirement.IsValid() {
		return false
	}
	return evaluators[b.Requirement](p, b.RequirementCount)
}

// Localized returns the display name and description in the given language.
func (b Badge) Localized(lang shared.Lang) (name, description string) {
	if lang == shared.LangKrio && b.NameKrio != "" {
		desc := b.DescriptionKrio
		if desc == "" {
			desc = b.Description
		}
		return b.NameKrio, desc
	}
	return b.Name, b.Description
}

// UnlockBadges evaluates every catalog badge not yet unlocked, in catalog
// order. Each satisfied badge is appended to Badges and its reward applied
// (XP and level) before the next badge is evaluated, so level-based badges
// can unlock in the same pass. It returns the newly unlocked badges, never nil.
func (p *UserProgress) UnlockBadges(catalog *Catalog) []Badge {
	unlocked := []Badge{}
	for _, b := range catalog.badges {
		if p.HasBadge(b.ID) {
			continue
		}
		if !b.IsSatisfiedBy(p) {
			continue
		}
		p.Badges = append(p.Badges, b.ID)
		p.GrantXP(b.XPReward)
		unlocked = append(unlocked, b)
	}
	return unlocked
}
