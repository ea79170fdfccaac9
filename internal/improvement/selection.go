package improvement

import (
	"fmt"
	"slices"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/material"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

// SelectBest returns a copy of the highest-scoring completed record.
// Ties go to the lowest evaluation index.
func SelectBest(records []models.ScoreRecord) (*models.ScoreRecord, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records provided")
	}
	var best *models.ScoreRecord
	for i := range records {
		if records[i].Better(best) {
			best = &records[i]
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no evaluated records")
	}
	out := *best
	return &out, nil
}

// TopN returns up to n completed records ranked best first
func TopN(records []models.ScoreRecord, n int) []models.ScoreRecord {
	if n <= 0 {
		return nil
	}
	ranked := make([]models.ScoreRecord, 0, len(records))
	for _, r := range records {
		if r.Evaluated() {
			ranked = append(ranked, r)
		}
	}
	slices.SortStableFunc(ranked, func(a, b models.ScoreRecord) int {
		switch {
		case a.Better(&b):
			return -1
		case b.Better(&a):
			return 1
		default:
			return 0
		}
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// BestPerMaterial returns the best completed record of each material, in
// the order the materials were first seen
func BestPerMaterial(records []models.ScoreRecord) []models.ScoreRecord {
	var order []string
	best := make(map[string]models.ScoreRecord)
	for _, r := range records {
		if !r.Evaluated() {
			continue
		}
		cur, seen := best[r.Config.Material]
		if !seen {
			order = append(order, r.Config.Material)
		}
		if !seen || r.Better(&cur) {
			best[r.Config.Material] = r
		}
	}
	out := make([]models.ScoreRecord, 0, len(order))
	for _, m := range order {
		out = append(out, best[m])
	}
	return out
}

// SearchableMaterials applies the sourcing filter to the requested materials.
// An empty request selects every catalog material with an allowed sourcing.
// Unknown names are kept so they surface as failed records.
func SearchableMaterials(catalog *material.Catalog, requested []string, sourcing []models.Sourcing) []string {
	allowed := catalog.FilterBySourcing(sourcing...)
	if len(requested) == 0 {
		return allowed
	}
	keep := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		keep[name] = true
	}
	out := make([]string, 0, len(requested))
	for _, name := range requested {
		spec, err := catalog.Lookup(name)
		if err != nil || keep[spec.Name] {
			out = append(out, name)
		}
	}
	return out
}
