// Package catalog loads the badge catalog from YAML.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/empower-sl/learnhub/internal/domain/progress"
	"github.com/empower-sl/learnhub/internal/domain/shared"
)

//go:embed badges.yaml
var bundled []byte

// fileBadge mirrors one YAML entry. Requirement stays a string so unknown
// tags are reported with the badge they belong to.
type fileBadge struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	NameKrio         string `yaml:"nameKrio"`
	Description      string `yaml:"description"`
	DescriptionKrio  string `yaml:"descriptionKrio"`
	Icon             string `yaml:"icon"`
	Requirement      string `yaml:"requirement"`
	RequirementCount int    `yaml:"requirementCount"`
	XPReward         int    `yaml:"xpReward"`
	Rarity           string `yaml:"rarity"`
}

type file struct {
	Badges []fileBadge `yaml:"badges"`
}

// Bundled returns the catalog compiled into the binary.
func Bundled() (*progress.Catalog, error) {
	return Parse(bytes.NewReader(bundled))
}

// Load reads the catalog from path, or the bundled catalog if path is empty.
func Load(path string) (*progress.Catalog, error) {
	if path == "" {
		return Bundled()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, shared.WrapError("catalog", "Load", shared.ErrInvalidInput, "cannot open badge catalog", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a YAML catalog. Unknown fields, unknown
// requirement tags and invalid values are all errors.
func Parse(r io.Reader) (*progress.Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc file
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, shared.WrapError("catalog", "Parse", shared.ErrInvalidFormat, "malformed badge catalog", err)
	}
	if len(doc.Badges) == 0 {
		return nil, shared.WrapError("catalog", "Parse", shared.ErrInvalidFormat, "badge catalog is empty", shared.ErrInvalidCatalog)
	}

	badges := make([]progress.Badge, 0, len(doc.Badges))
	var errs []error
	for i, fb := range doc.Badges {
		req, err := progress.ParseRequirement(fb.Requirement)
		if err != nil {
			errs = append(errs, fmt.Errorf("badge #%d (%q): %w", i, fb.ID, err))
			continue
		}
		badges = append(badges, progress.Badge{
			ID:               fb.ID,
			Name:             fb.Name,
			NameKrio:         fb.NameKrio,
			Description:      fb.Description,
			DescriptionKrio:  fb.DescriptionKrio,
			Icon:             fb.Icon,
			Requirement:      req,
			RequirementCount: fb.RequirementCount,
			XPReward:         fb.XPReward,
			Rarity:           progress.Rarity(fb.Rarity),
		})
	}
	if len(errs) > 0 {
		return nil, shared.WrapError("catalog", "Parse", shared.ErrInvalidFormat, "invalid badge catalog",
			errors.Join(append([]error{shared.ErrInvalidCatalog}, errs...)...))
	}

	return progress.NewCatalog(badges)
}
