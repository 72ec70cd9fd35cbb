package progress

import (
	"errors"
	"fmt"
	"slices"

	"github.com/empower-sl/learnhub/internal/domain/shared"
)

// Catalog is the immutable, ordered set of badge definitions.
type Catalog struct {
	badges []Badge
	index  map[string]int
}

// NewCatalog validates the definitions and freezes them in the given order.
// All problems are reported together.
func NewCatalog(badges []Badge) (*Catalog, error) {
	var errs []error
	index := make(map[string]int, len(badges))

	for i, b := range badges {
		where := fmt.Sprintf("badge #%d (%q)", i, b.ID)
		if b.ID == "" {
			errs = append(errs, fmt.Errorf("%s: empty id", where))
		} else if _, dup := index[b.ID]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate id", where))
		} else {
			index[b.ID] = i
		}
		if b.Name == "" {
			errs = append(errs, fmt.Errorf("%s: empty name", where))
		}
		if !b.Requirement.IsValid() || evaluators[b.Requirement] == nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, shared.ErrUnknownRequirement))
		}
		if b.RequirementCount < 0 {
			errs = append(errs, fmt.Errorf("%s: negative requirementCount", where))
		}
		if b.Requirement.IsFlag() && b.RequirementCount > 1 {
			errs = append(errs, fmt.Errorf("%s: flag requirement cannot count above 1", where))
		}
		if b.XPReward < 0 {
			errs = append(errs, fmt.Errorf("%s: negative xpReward", where))
		} else if b.XPReward > MaxXP {
			errs = append(errs, fmt.Errorf("%s: xpReward above the xp ceiling", where))
		}
		if !b.Rarity.IsValid() {
			errs = append(errs, fmt.Errorf("%s: unknown rarity %q", where, b.Rarity))
		}
	}

	if len(errs) > 0 {
		return nil, shared.WrapError("catalog", "Validate", shared.ErrInvalidFormat,
			"invalid badge catalog", errors.Join(append([]error{shared.ErrInvalidCatalog}, errs...)...))
	}

	return &Catalog{badges: slices.Clone(badges), index: index}, nil
}

// Badges returns a copy of all badges in catalog order.
func (c *Catalog) Badges() []Badge {
	return slices.Clone(c.badges)
}

// Len returns the number of badges.
func (c *Catalog) Len() int {
	return len(c.badges)
}

// Get looks a badge up by ID.
func (c *Catalog) Get(id string) (Badge, bool) {
	i, ok := c.index[id]
	if !ok {
		return Badge{}, false
	}
	return c.badges[i], true
}

// Earned returns the catalog badges the record has unlocked, in catalog order.
func (c *Catalog) Earned(p *UserProgress) []Badge {
	out := []Badge{}
	for _, b := range c.badges {
		if p.HasBadge(b.ID) {
			out = append(out, b)
		}
	}
	return out
}

// Available returns the catalog badges the record has not unlocked yet.
func (c *Catalog) Available(p *UserProgress) []Badge {
	out := []Badge{}
	for _, b := range c.badges {
		if !p.HasBadge(b.ID) {
			out = append(out, b)
		}
	}
	return out
}
