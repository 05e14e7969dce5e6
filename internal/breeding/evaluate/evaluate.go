package evaluate

import (
	"strings"

	"breedplan.ai/internal/breeding/catalogs"
	"breedplan.ai/internal/breeding/inventory"
	"breedplan.ai/internal/breeding/market"
	"breedplan.ai/internal/breeding/plan"
	"breedplan.ai/internal/breeding/tuning"
)

// SpeciesData answers reference lookups; false means no data.
type SpeciesData interface {
	EggGroups(species string) ([]string, bool)
	Gender(species string) (catalogs.GenderProfile, bool)
}

// PriceLookup answers market lookups; false means no price.
type PriceLookup interface {
	Price(key string, src market.Source, g catalogs.Gender) (int64, bool)
}

// Inputs is the read-only context shared by every evaluation of one request.
type Inputs struct {
	Species   string
	Inventory []inventory.Creature
	Catalog   SpeciesData
	Prices    PriceLookup
	Tuning    tuning.Tuning
}

// EvaluatedPlan is one plan matched against the inventory and priced.
// Plan is the evaluation's own copy, already re-oriented.
type EvaluatedPlan struct {
	Plan      *plan.Plan
	Score     float64
	Cost      int64
	Priced    bool
	Consumed  []string
	Assigned  map[plan.NodeID]string
	Decisions map[plan.NodeID]string

	satisfied map[plan.NodeID]bool
	costed    bool
}

// Satisfied reports whether id is covered by an owned creature, directly or
// through an assigned descendant.
func (e *EvaluatedPlan) Satisfied(id plan.NodeID) bool { return e.satisfied[id] }

func (e *EvaluatedPlan) Costed() bool { return e.costed }

// Evaluate assigns owned creatures to p and prices the remaining nodes.
func Evaluate(p *plan.Plan, in *Inputs) *EvaluatedPlan {
	ev := Assign(p, in)
	Price(ev, in)
	return ev
}

func (in *Inputs) universalDonor(species string) bool {
	return strings.EqualFold(strings.TrimSpace(species), in.Tuning.UniversalDonor)
}

func (in *Inputs) isTarget(species string) bool {
	return strings.EqualFold(strings.TrimSpace(species), strings.TrimSpace(in.Species))
}

func (in *Inputs) targetProfile() (catalogs.GenderProfile, bool) {
	if in.Catalog == nil {
		return catalogs.GenderProfile{}, false
	}
	return in.Catalog.Gender(in.Species)
}

func (in *Inputs) eggGroups(species string) ([]string, bool) {
	if in.Catalog == nil {
		return nil, false
	}
	return in.Catalog.EggGroups(species)
}

// compatible reports whether species can donate to the target. Missing group
// data on either side counts as compatible.
func (in *Inputs) compatible(species string) bool {
	if in.isTarget(species) || in.universalDonor(species) {
		return true
	}
	tg, ok1 := in.eggGroups(in.Species)
	cg, ok2 := in.eggGroups(species)
	if !ok1 || !ok2 {
		return true
	}
	for _, a := range tg {
		for _, b := range cg {
			if strings.EqualFold(a, b) {
				return true
			}
		}
	}
	return false
}
