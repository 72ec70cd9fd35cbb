// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"

	"github.com/empower-sl/learnhub/internal/domain/progress"
	"github.com/empower-sl/learnhub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS SUMMARY QUERY
// Everything a dashboard needs in one call: the record, the level bar,
// earned and available badges, and the jobs-board gate.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressReader loads a learner's record, creating the default on first read.
type ProgressReader interface {
	GetUserProgress(ctx context.Context, learnerID string) (*progress.UserProgress, error)
}

// GetProgressSummaryQuery contains the query parameters.
type GetProgressSummaryQuery struct {
	LearnerID string
	Lang      shared.Lang
}

// Validate checks the parameters and fills defaults.
func (q *GetProgressSummaryQuery) Validate() error {
	if _, err := shared.NewLearnerID(q.LearnerID); err != nil {
		return err
	}
	if q.Lang == "" {
		q.Lang = shared.LangEnglish
	}
	return nil
}

// LevelBarDTO describes the progress bar toward the next level.
type LevelBarDTO struct {
	Level             int     `json:"level"`
	XP                int     `json:"xp"`
	XPForCurrentLevel int     `json:"xpForCurrentLevel"`
	XPForNextLevel    int     `json:"xpForNextLevel"`
	Percent           float64 `json:"percent"`
}

// ProgressSummaryDTO is the dashboard view of a learner.
type ProgressSummaryDTO struct {
	LearnerID       string                 `json:"learnerId"`
	Progress        *progress.UserProgress `json:"progress"`
	LevelBar        LevelBarDTO            `json:"levelBar"`
	EarnedBadges    []BadgeDTO             `json:"earnedBadges"`
	AvailableBadges []BadgeDTO             `json:"availableBadges"`
	HasJobsAccess   bool                   `json:"hasJobsAccess"`
}

// GetProgressSummaryHandler handles GetProgressSummaryQuery.
type GetProgressSummaryHandler struct {
	reader  ProgressReader
	catalog *progress.Catalog
}

// NewGetProgressSummaryHandler creates a new handler.
func NewGetProgressSummaryHandler(reader ProgressReader, catalog *progress.Catalog) *GetProgressSummaryHandler {
	return &GetProgressSummaryHandler{reader: reader, catalog: catalog}
}

// Handle executes the query.
func (h *GetProgressSummaryHandler) Handle(ctx context.Context, q GetProgressSummaryQuery) (*ProgressSummaryDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	p, err := h.reader.GetUserProgress(ctx, q.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("get_progress_summary: %w", err)
	}

	return &ProgressSummaryDTO{
		LearnerID:       q.LearnerID,
		Progress:        p,
		LevelBar:        NewLevelBar(p),
		EarnedBadges:    toBadgeDTOs(h.catalog.Earned(p), q.Lang, true),
		AvailableBadges: toBadgeDTOs(h.catalog.Available(p), q.Lang, false),
		HasJobsAccess:   p.HasJobsAccess(),
	}, nil
}

// NewLevelBar builds the level bar for a record.
func NewLevelBar(p *progress.UserProgress) LevelBarDTO {
	return LevelBarDTO{
		Level:             p.Level,
		XP:                p.XP,
		XPForCurrentLevel: progress.XPForCurrentLevel(p.Level),
		XPForNextLevel:    progress.XPForNextLevel(p.Level),
		Percent:           progress.LevelProgress(p.XP, p.Level),
	}
}
