package query

import (
	"context"
	"fmt"

	"github.com/empower-sl/learnhub/internal/domain/progress"
	"github.com/empower-sl/learnhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE QUERIES
// Catalog listing and a learner's earned / available / unlocked badges.
// ══════════════════════════════════════════════════════════════════════════════

// BadgeDTO is a badge localized for display.
type BadgeDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Icon             string `json:"icon"`
	Requirement      string `json:"requirement"`
	RequirementCount int    `json:"requirementCount"`
	XPReward         int    `json:"xpReward"`
	Rarity           string `json:"rarity"`
	Unlocked         bool   `json:"unlocked"`
}

// UnlockedBadgeDTO is one entry of a learner's unlock history.
type UnlockedBadgeDTO struct {
	ID       string `json:"id"`
	Sequence int    `json:"sequence"` // 1 = first badge unlocked
}

// LearnerBadgesDTO groups a learner's badges.
type LearnerBadgesDTO struct {
	Earned    []BadgeDTO         `json:"earned"`
	Available []BadgeDTO         `json:"available"`
	Unlocked  []UnlockedBadgeDTO `json:"unlocked"`
}

func toBadgeDTO(b progress.Badge, lang shared.Lang, unlocked bool) BadgeDTO {
	name, desc := b.Localized(lang)
	return BadgeDTO{
		ID:               b.ID,
		Name:             name,
		Description:      desc,
		Icon:             b.Icon,
		Requirement:      b.Requirement.String(),
		RequirementCount: b.RequirementCount,
		XPReward:         b.XPReward,
		Rarity:           string(b.Rarity),
		Unlocked:         unlocked,
	}
}

func toBadgeDTOs(badges []progress.Badge, lang shared.Lang, unlocked bool) []BadgeDTO {
	out := make([]BadgeDTO, 0, len(badges))
	for _, b := range badges {
		out = append(out, toBadgeDTO(b, lang, unlocked))
	}
	return out
}

// BadgeQueries answers badge questions for the catalog and for learners.
type BadgeQueries struct {
	reader  ProgressReader
	catalog *progress.Catalog
}

// NewBadgeQueries creates a new BadgeQueries.
func NewBadgeQueries(reader ProgressReader, catalog *progress.Catalog) *BadgeQueries {
	return &BadgeQueries{reader: reader, catalog: catalog}
}

// ListBadges returns the whole catalog, localized.
func (q *BadgeQueries) ListBadges(lang shared.Lang) []BadgeDTO {
	return toBadgeDTOs(q.catalog.Badges(), lang, false)
}

// GetEarnedBadges returns the catalog badges the learner has unlocked.
func (q *BadgeQueries) GetEarnedBadges(ctx context.Context, learnerID string, lang shared.Lang) ([]BadgeDTO, error) {
	p, err := q.reader.GetUserProgress(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("get_earned_badges: %w", err)
	}
	return toBadgeDTOs(q.catalog.Earned(p), lang, true), nil
}

// GetAvailableBadges returns the catalog badges still locked for the learner.
func (q *BadgeQueries) GetAvailableBadges(ctx context.Context, learnerID string, lang shared.Lang) ([]BadgeDTO, error) {
	p, err := q.reader.GetUserProgress(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("get_available_badges: %w", err)
	}
	return toBadgeDTOs(q.catalog.Available(p), lang, false), nil
}

// GetUnlockedBadges returns the learner's badge IDs in unlock order.
func (q *BadgeQueries) GetUnlockedBadges(ctx context.Context, learnerID string) ([]UnlockedBadgeDTO, error) {
	p, err := q.reader.GetUserProgress(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("get_unlocked_badges: %w", err)
	}
	return unlockedFrom(p), nil
}

// GetLearnerBadges returns earned, available and unlocked badges from one read.
func (q *BadgeQueries) GetLearnerBadges(ctx context.Context, learnerID string, lang shared.Lang) (*LearnerBadgesDTO, error) {
	p, err := q.reader.GetUserProgress(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("get_learner_badges: %w", err)
	}
	return &LearnerBadgesDTO{
		Earned:    toBadgeDTOs(q.catalog.Earned(p), lang, true),
		Available: toBadgeDTOs(q.catalog.Available(p), lang, false),
		Unlocked:  unlockedFrom(p),
	}, nil
}

func unlockedFrom(p *progress.UserProgress) []UnlockedBadgeDTO {
	out := make([]UnlockedBadgeDTO, 0, len(p.Badges))
	for i, id := range p.Badges {
		out = append(out, UnlockedBadgeDTO{ID: id, Sequence: i + 1})
	}
	return out
}
