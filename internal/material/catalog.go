// Package material holds the immutable table of optical constants that the
// simulator and search resolve materials against.
package material

import (
	"fmt"
	"sort"
	"strings"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

// Catalog is a read-only lookup of materials by name. It is safe for
// concurrent use because it is never mutated after construction.
type Catalog struct {
	specs map[string]models.MaterialSpec
	order []string
}

// NewCatalog builds a catalog from specs. Names are normalized to upper case
// and must be unique.
func NewCatalog(specs []models.MaterialSpec) (*Catalog, error) {
	c := &Catalog{specs: make(map[string]models.MaterialSpec, len(specs))}
	for _, spec := range specs {
		if err := validateSpec(spec); err != nil {
			return nil, err
		}
		key := normalize(spec.Name)
		if _, dup := c.specs[key]; dup {
			return nil, fmt.Errorf("duplicate material name: %s", key)
		}
		spec = cloneSpec(spec)
		spec.Name = key
		c.specs[key] = spec
		c.order = append(c.order, key)
	}
	return c, nil
}

// Lookup returns a copy of the named material
func (c *Catalog) Lookup(name string) (models.MaterialSpec, error) {
	spec, ok := c.specs[normalize(name)]
	if !ok {
		return models.MaterialSpec{}, &models.MaterialNotFoundError{Name: name}
	}
	return cloneSpec(spec), nil
}

// Names returns material names in insertion order
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Specs returns copies of all materials in insertion order
func (c *Catalog) Specs() []models.MaterialSpec {
	out := make([]models.MaterialSpec, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, cloneSpec(c.specs[name]))
	}
	return out
}

// FilterBySourcing returns the names of materials whose sourcing is in allowed.
// An empty allowed list keeps every material.
func (c *Catalog) FilterBySourcing(allowed ...models.Sourcing) []string {
	if len(allowed) == 0 {
		return c.Names()
	}
	keep := make(map[models.Sourcing]bool, len(allowed))
	for _, s := range allowed {
		keep[s] = true
	}
	out := make([]string, 0, len(c.order))
	for _, name := range c.order {
		if keep[c.specs[name].Sourcing] {
			out = append(out, name)
		}
	}
	return out
}

// Merge returns a new catalog where overrides replace same-named entries and
// new names are appended.
func (c *Catalog) Merge(overrides []models.MaterialSpec) (*Catalog, error) {
	byName := make(map[string]models.MaterialSpec, len(overrides))
	var added []string
	for _, spec := range overrides {
		key := normalize(spec.Name)
		if _, dup := byName[key]; dup {
			return nil, fmt.Errorf("duplicate material override: %s", key)
		}
		byName[key] = spec
		if _, exists := c.specs[key]; !exists {
			added = append(added, key)
		}
	}

	merged := make([]models.MaterialSpec, 0, len(c.order)+len(added))
	for _, name := range c.order {
		if spec, ok := byName[name]; ok {
			merged = append(merged, spec)
			continue
		}
		merged = append(merged, c.specs[name])
	}
	sort.Strings(added)
	for _, name := range added {
		merged = append(merged, byName[name])
	}
	return NewCatalog(merged)
}

// Len returns the number of materials
func (c *Catalog) Len() int {
	return len(c.order)
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func validateSpec(spec models.MaterialSpec) error {
	name := normalize(spec.Name)
	if name == "" {
		return fmt.Errorf("material name cannot be empty")
	}
	switch spec.Model {
	case models.ResponseSaturableAbsorber, models.ResponseKerr:
	default:
		return fmt.Errorf("material %s: invalid model %q (must be saturable_absorber or kerr)", name, spec.Model)
	}
	switch spec.Sourcing {
	case models.SourcingCommercial, models.SourcingLab, models.SourcingExperimental:
	default:
		return fmt.Errorf("material %s: invalid sourcing %q", name, spec.Sourcing)
	}
	if spec.K < 0 {
		return fmt.Errorf("material %s: k cannot be negative", name)
	}
	if spec.LayerThicknessNm <= 0 {
		return fmt.Errorf("material %s: layer_thickness_nm must be positive", name)
	}
	if spec.SaturationIntensity != nil && *spec.SaturationIntensity <= 0 {
		return fmt.Errorf("material %s: isat_w_m2 must be positive", name)
	}
	if spec.RecoveryTime != nil && *spec.RecoveryTime < 0 {
		return fmt.Errorf("material %s: tau_s cannot be negative", name)
	}
	if f := spec.SaturableFraction; f != nil && (*f < 0 || *f > 1) {
		return fmt.Errorf("material %s: saturable_fraction must be between 0 and 1", name)
	}
	return nil
}

func cloneSpec(spec models.MaterialSpec) models.MaterialSpec {
	spec.SaturationIntensity = clonePtr(spec.SaturationIntensity)
	spec.RecoveryTime = clonePtr(spec.RecoveryTime)
	spec.SaturableFraction = clonePtr(spec.SaturableFraction)
	return spec
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
