package advancement

import (
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/richblaalid/chuckbox/internal/domain"
	"gopkg.in/yaml.v3"
)

var badgeCodeRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Catalog is the merit badge file format / Format de fichier du catalogue
//
//	badges:
//	  - code: camping
//	    name: Camping
//	    eagle_required: true
//	    requirements:
//	      - number: "9(a)"
//	        description: ...
type Catalog struct {
	Version string         `yaml:"version"`
	Badges  []CatalogBadge `yaml:"badges"`
}

// CatalogBadge is one badge entry of a catalog file.
type CatalogBadge struct {
	Code          string               `yaml:"code"`
	Name          string               `yaml:"name"`
	EagleRequired bool                 `yaml:"eagle_required"`
	Version       string               `yaml:"version"`
	Requirements  []CatalogRequirement `yaml:"requirements"`
}

// CatalogRequirement is one requirement entry of a catalog file.
type CatalogRequirement struct {
	Number      string `yaml:"number"`
	Description string `yaml:"description"`
}

// ParseCatalog decodes and validates a YAML catalog / Décode et valide un catalogue YAML
//
// Requirement numbers are normalised to canonical form and sorted naturally.
func ParseCatalog(r io.Reader) ([]domain.MeritBadge, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", domain.ErrInvalidInput, err)
	}
	if len(c.Badges) == 0 {
		return nil, fmt.Errorf("%w: catalog has no badges", domain.ErrInvalidInput)
	}

	seen := make(map[string]bool, len(c.Badges))
	out := make([]domain.MeritBadge, 0, len(c.Badges))
	for _, b := range c.Badges {
		badge, err := b.toDomain(c.Version)
		if err != nil {
			return nil, err
		}
		if seen[badge.Code] {
			return nil, fmt.Errorf("%w: duplicate badge code %q", domain.ErrInvalidInput, badge.Code)
		}
		seen[badge.Code] = true
		out = append(out, badge)
	}
	return out, nil
}

func (b CatalogBadge) toDomain(defaultVersion string) (domain.MeritBadge, error) {
	code := strings.ToLower(strings.TrimSpace(b.Code))
	if !badgeCodeRe.MatchString(code) {
		return domain.MeritBadge{}, fmt.Errorf("%w: invalid badge code %q", domain.ErrInvalidInput, b.Code)
	}
	name := strings.TrimSpace(b.Name)
	if name == "" {
		return domain.MeritBadge{}, fmt.Errorf("%w: badge %s has no name", domain.ErrInvalidInput, code)
	}

	badge := domain.MeritBadge{
		Code:          code,
		Name:          name,
		EagleRequired: b.EagleRequired,
		Version:       b.Version,
	}
	if badge.Version == "" {
		badge.Version = defaultVersion
	}

	numbers := make(map[string]bool, len(b.Requirements))
	for _, req := range b.Requirements {
		r, err := ParseReqNum(req.Number)
		if err != nil {
			return domain.MeritBadge{}, fmt.Errorf("badge %s: %w", code, err)
		}
		canonical := r.Canonical()
		if numbers[canonical] {
			return domain.MeritBadge{}, fmt.Errorf("%w: badge %s repeats requirement %s", domain.ErrInvalidInput, code, r.Display())
		}
		numbers[canonical] = true
		badge.Requirements = append(badge.Requirements, domain.Requirement{
			Number:      canonical,
			Description: strings.TrimSpace(req.Description),
			SortKey:     r.SortKey(),
		})
	}
	SortRequirements(badge.Requirements)
	return badge, nil
}

// SortRequirements orders requirements by number / Trie les exigences par numéro
func SortRequirements(reqs []domain.Requirement) {
	slices.SortFunc(reqs, func(a, b domain.Requirement) int {
		return CompareRequirementNumbers(a.Number, b.Number)
	})
}
