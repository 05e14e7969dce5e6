package evaluate

import (
	"fmt"

	"breedplan.ai/internal/breeding/catalogs"
	"breedplan.ai/internal/breeding/inventory"
	"breedplan.ai/internal/breeding/market"
	"breedplan.ai/internal/breeding/plan"
)

// Role is what a node is asked to be for the pairing that consumes it.
type Role int

const (
	Mother Role = iota
	Father
	UniversalDonor
	Genderless
)

func (r Role) String() string {
	switch r {
	case Mother:
		return "mother"
	case Father:
		return "father"
	case UniversalDonor:
		return "universal donor"
	case Genderless:
		return "genderless"
	}
	return "?"
}

const unpricedPrefix = "unpriced: "

type memoKey struct {
	id        plan.NodeID
	mandatory bool
	role      Role
}

type outcome struct {
	cost      int64
	priced    bool
	decisions map[plan.NodeID]string
}

type option struct {
	cost int64
	desc string
}

type quote struct {
	price int64
	ok    bool
}

type costModel struct {
	in        *Inputs
	ev        *EvaluatedPlan
	p         *plan.Plan
	producers map[plan.NodeID]plan.Pairing
	owned     map[string]inventory.Creature
	profile   catalogs.GenderProfile
	profileOK bool
	groups    []string
	memo      map[memoKey]outcome
}

// Price fills ev's cost and purchase decisions. Nodes already satisfied by
// owned creatures cost nothing.
func Price(ev *EvaluatedPlan, in *Inputs) {
	m := newCostModel(ev, in)
	role := Mother
	if m.speciesNeedsDonor() {
		role = Genderless
	}
	out := m.cost(ev.Plan.Root(), true, role)
	ev.Cost = out.cost
	ev.Priced = out.priced
	ev.Decisions = out.decisions
	ev.costed = true
}

func newCostModel(ev *EvaluatedPlan, in *Inputs) *costModel {
	m := &costModel{
		in:        in,
		ev:        ev,
		p:         ev.Plan,
		producers: ev.Plan.Producers(),
		owned:     make(map[string]inventory.Creature, len(in.Inventory)),
		memo:      map[memoKey]outcome{},
	}
	for _, c := range in.Inventory {
		m.owned[c.ID] = c
	}
	m.profile, m.profileOK = in.targetProfile()
	m.groups, _ = in.eggGroups(in.Species)
	return m
}

func (m *costModel) speciesNeedsDonor() bool {
	return m.profileOK && m.profile.NeedsUniversalDonor()
}

func (m *costModel) cost(id plan.NodeID, mandatory bool, role Role) outcome {
	if m.ev.satisfied[id] {
		return outcome{priced: true, decisions: map[plan.NodeID]string{}}
	}
	k := memoKey{id, mandatory, role}
	if out, ok := m.memo[k]; ok {
		return out
	}
	var out outcome
	if pr, ok := m.producers[id]; ok {
		out = m.bred(id, pr, mandatory, role)
	} else {
		out = m.leaf(id, mandatory, role)
	}
	m.memo[k] = out
	return out
}

func (m *costModel) fee(role Role) int64 {
	g := catalogs.Male
	if role == Mother {
		g = catalogs.Female
	}
	return m.in.Tuning.GenderFees.GenderFee(m.profile, m.profileOK, g)
}

func join(extra int64, parts ...outcome) outcome {
	out := outcome{cost: extra, priced: true, decisions: map[plan.NodeID]string{}}
	for _, p := range parts {
		out.cost += p.cost
		out.priced = out.priced && p.priced
		for id, d := range p.decisions {
			out.decisions[id] = d
		}
	}
	return out
}

// bred prices a node obtained by breeding its two parents. For the species
// line the mother can be replaced by the universal donor when the father
// carries the species (Cost-B); it is chosen only when strictly cheaper.
func (m *costModel) bred(id plan.NodeID, pr plan.Pairing, mandatory bool, role Role) outcome {
	fee := m.fee(role)
	items := m.in.Tuning.Items.ItemCost(m.p.Node(id).Nature)
	extra := fee + items

	var out outcome
	if m.speciesNeedsDonor() {
		out = join(extra, m.cost(pr.Parent1, mandatory, Genderless), m.cost(pr.Parent2, false, UniversalDonor))
	} else {
		out = join(extra, m.cost(pr.Parent1, mandatory, Mother), m.cost(pr.Parent2, false, Father))
		if mandatory && m.carriesSpecies(pr.Parent2) {
			b := join(extra, m.cost(pr.Parent1, false, UniversalDonor), m.cost(pr.Parent2, true, Father))
			if b.cost < out.cost {
				out = b
			}
		}
	}
	out.decisions[id] = fmt.Sprintf("breed (fee $%d, items $%d)", fee, items)
	return out
}

// carriesSpecies reports whether id can pass on the target species. Owned
// creatures are checked; anything still to be obtained can be.
func (m *costModel) carriesSpecies(id plan.NodeID) bool {
	cid, ok := m.ev.Assigned[id]
	if !ok {
		return true
	}
	c, ok := m.owned[cid]
	return ok && m.in.isTarget(c.Species)
}

func leafKey(p *plan.Plan, r plan.Requirement) string {
	if names := p.IVNames(r); len(names) > 0 {
		return names[0]
	}
	if r.Nature {
		return market.KeyNature
	}
	return market.KeyBase
}

func (m *costModel) quote(key string, src market.Source, g catalogs.Gender) quote {
	if m.in.Prices == nil {
		return quote{}
	}
	p, ok := m.in.Prices.Price(key, src, g)
	return quote{p, ok}
}

// bestGroup is the cheapest price across the target's egg groups.
func (m *costModel) bestGroup(key string, g catalogs.Gender) (quote, string) {
	var best quote
	name := ""
	for _, grp := range m.groups {
		q := m.quote(key, market.Group(grp), g)
		if q.ok && (!best.ok || q.price < best.price) {
			best, name = q, grp
		}
	}
	return best, name
}

func (m *costModel) leaf(id plan.NodeID, mandatory bool, role Role) outcome {
	r := m.p.Node(id)
	key := leafKey(m.p, r)
	what := m.p.Describe(r)
	sp := m.in.Species
	donor := m.in.Tuning.UniversalDonor
	items := m.in.Tuning.Items.ItemCost(r.Nature)

	var opts []option
	try := func(extra int64, desc string, qs ...quote) {
		total := extra
		for _, q := range qs {
			if !q.ok {
				return
			}
			total += q.price
		}
		opts = append(opts, option{total, fmt.Sprintf("%s - $%d", desc, total)})
	}

	species := func(k string, g catalogs.Gender) quote { return m.quote(k, market.Species(), g) }
	universal := func(k string) quote { return m.quote(k, market.Donor(), catalogs.Genderless) }

	switch {
	case mandatory && m.speciesNeedsDonor():
		g := m.profile.MaternalGender()
		extra := m.fee(role) + items
		try(0, fmt.Sprintf("buy %s %s (%s)", sp, g, what), species(key, g))
		try(extra, fmt.Sprintf("buy %s (base) + %s (%s), breed", sp, donor, what), species(market.KeyBase, g), universal(key))
		try(extra, fmt.Sprintf("buy %s (%s) + %s (base), breed", sp, what, donor), species(key, g), universal(market.KeyBase))

	case mandatory:
		g := catalogs.Female
		if role == Father {
			g = catalogs.Male
		}
		extra := m.fee(role) + items
		try(0, fmt.Sprintf("buy %s %s (%s)", sp, g, what), species(key, g))
		try(extra, fmt.Sprintf("buy %s M (%s) + %s (base), breed %s", sp, what, donor, g), species(key, catalogs.Male), universal(market.KeyBase))
		try(extra, fmt.Sprintf("buy %s M (base) + %s (%s), breed %s", sp, donor, what, g), species(market.KeyBase, catalogs.Male), universal(key))
		if q, grp := m.bestGroup(key, catalogs.Male); q.ok {
			try(extra, fmt.Sprintf("buy %s F (base) + %s M (%s), breed %s", sp, grp, what, g), species(market.KeyBase, catalogs.Female), q)
		}

	case role == Father:
		try(0, fmt.Sprintf("buy %s M (%s)", sp, what), species(key, catalogs.Male))
		if q, grp := m.bestGroup(key, catalogs.Male); q.ok {
			try(0, fmt.Sprintf("buy %s M (%s)", grp, what), q)
		}
		try(0, fmt.Sprintf("buy %s (%s)", donor, what), universal(key))

	case role == Mother:
		try(0, fmt.Sprintf("buy %s F (%s)", sp, what), species(key, catalogs.Female))
		if q, grp := m.bestGroup(key, catalogs.Female); q.ok {
			try(0, fmt.Sprintf("buy %s F (%s)", grp, what), q)
		}
		if q, grp := m.bestGroup(key, catalogs.Male); q.ok {
			extra := m.fee(Mother) + items
			try(extra, fmt.Sprintf("breed %s F from %s M (%s) + %s (base)", grp, grp, what, donor), q, universal(market.KeyBase))
		}

	case role == UniversalDonor:
		try(0, fmt.Sprintf("buy %s (%s)", donor, what), universal(key))

	default:
		g := m.profile.MaternalGender()
		try(0, fmt.Sprintf("buy %s %s (%s)", sp, g, what), species(key, g))
		if q, grp := m.bestGroup(key, g); q.ok {
			try(0, fmt.Sprintf("buy %s %s (%s)", grp, g, what), q)
		}
		try(0, fmt.Sprintf("buy %s (%s)", donor, what), universal(key))
	}

	sentinel := m.in.Tuning.UnpricedCost
	if len(opts) == 0 {
		return outcome{
			cost:      sentinel,
			decisions: map[plan.NodeID]string{id: unpricedPrefix + fmt.Sprintf("no market price for %s as %s", what, role)},
		}
	}
	best := opts[0]
	for _, o := range opts[1:] {
		if o.cost < best.cost {
			best = o
		}
	}
	if best.cost >= sentinel {
		return outcome{
			cost:      sentinel,
			decisions: map[plan.NodeID]string{id: unpricedPrefix + fmt.Sprintf("%s exceeds the price ceiling", best.desc)},
		}
	}
	return outcome{cost: best.cost, priced: true, decisions: map[plan.NodeID]string{id: best.desc}}
}
