package evaluate

import (
	"sort"
	"strings"

	"breedplan.ai/internal/breeding/catalogs"
	"breedplan.ai/internal/breeding/inventory"
	"breedplan.ai/internal/breeding/plan"
)

type slot int

const (
	slotRoot slot = iota
	slotMaternal
	slotPaternal
)

type matcher struct {
	in        *Inputs
	p         *plan.Plan
	profile   catalogs.GenderProfile
	profileOK bool
}

func newMatcher(in *Inputs, p *plan.Plan) *matcher {
	m := &matcher{in: in, p: p}
	m.profile, m.profileOK = in.targetProfile()
	return m
}

// valid is the eligibility test for putting c at requirement r in slot s.
func (m *matcher) valid(r plan.Requirement, c inventory.Creature, s slot, mandatory bool) bool {
	if !c.HasAll(m.p.IVNames(r)) {
		return false
	}
	if r.Nature && !strings.EqualFold(c.Nature, m.p.TargetNature) {
		return false
	}
	if mandatory {
		if !m.in.isTarget(c.Species) {
			return false
		}
	} else if !m.in.compatible(c.Species) {
		return false
	}

	switch s {
	case slotMaternal:
		return m.profileOK && c.Gender == m.profile.MaternalGender()
	case slotPaternal:
		if m.profileOK && m.profile.NeedsUniversalDonor() {
			return m.in.universalDonor(c.Species)
		}
		if m.in.universalDonor(c.Species) {
			return true
		}
		return m.profileOK && c.Gender == catalogs.Male
	}
	return true
}

func (m *matcher) score(r plan.Requirement, c inventory.Creature) float64 {
	w := m.in.Tuning.Score
	s := w.Base + float64(r.IVs.Len())*w.PerIV
	if r.Nature && strings.EqualFold(c.Nature, m.p.TargetNature) {
		s += w.NatureMatch
	}
	if waste := len(c.IVs) - r.IVs.Len(); waste <= 0 {
		s += w.ExactFit
	} else {
		s -= float64(waste) * w.WastePenalty
	}
	return s
}

// waste orders candidates: unused traits first, then an unused nature.
func waste(r plan.Requirement, c inventory.Creature) [2]int {
	n := 0
	if !r.Nature && c.Nature != "" {
		n = 1
	}
	return [2]int{len(c.IVs) - r.IVs.Len(), n}
}

func lessWaste(a, b [2]int) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

// bestScore is the highest score any owned creature reaches at r.
func (m *matcher) bestScore(r plan.Requirement, s slot, mandatory bool) float64 {
	best := 0.0
	for _, c := range m.in.Inventory {
		if !m.valid(r, c, s, mandatory) {
			continue
		}
		if v := m.score(r, c); v > best {
			best = v
		}
	}
	return best
}

// orient swaps a pairing's parents when owned creatures fit the swapped
// roles at least as well. Ties go to the swap so owned creatures land in
// the maternal slot.
func (m *matcher) orient() {
	for gi := range m.p.Generations {
		for pi := range m.p.Generations[gi].Pairings {
			pr := &m.p.Generations[gi].Pairings[pi]
			a, b := m.p.Node(pr.Parent1), m.p.Node(pr.Parent2)
			cur := m.bestScore(a, slotMaternal, true) + m.bestScore(b, slotPaternal, false)
			swp := m.bestScore(b, slotMaternal, true) + m.bestScore(a, slotPaternal, false)
			if swp >= cur && swp > 0 {
				pr.Parent1, pr.Parent2 = pr.Parent2, pr.Parent1
			}
		}
	}
}

// MandatoryPath returns the root and every parent1 below it.
func MandatoryPath(p *plan.Plan) map[plan.NodeID]bool {
	producers := p.Producers()
	out := map[plan.NodeID]bool{}
	id := p.Root()
	for {
		out[id] = true
		pr, ok := producers[id]
		if !ok {
			return out
		}
		id = pr.Parent1
	}
}

type candidate struct {
	id        plan.NodeID
	req       plan.Requirement
	slot      slot
	level     int
	mandatory bool
}

// Assign matches owned creatures to p greedily, most constrained nodes first.
// The returned plan is re-oriented and has no cost yet.
func Assign(p *plan.Plan, in *Inputs) *EvaluatedPlan {
	q := p.Clone()
	m := newMatcher(in, q)
	m.orient()

	ev := &EvaluatedPlan{
		Plan:      q,
		Assigned:  map[plan.NodeID]string{},
		Decisions: map[plan.NodeID]string{},
		satisfied: map[plan.NodeID]bool{},
	}

	mandatory := MandatoryPath(q)
	root := q.Root()
	cands := []candidate{{id: root, req: q.Node(root), slot: slotRoot, level: len(q.Generations) + 1, mandatory: true}}
	for _, g := range q.Generations {
		for _, pr := range g.Pairings {
			cands = append(cands,
				candidate{id: pr.Parent1, req: q.Node(pr.Parent1), slot: slotMaternal, level: g.Level, mandatory: mandatory[pr.Parent1]},
				candidate{id: pr.Parent2, req: q.Node(pr.Parent2), slot: slotPaternal, level: g.Level, mandatory: mandatory[pr.Parent2]},
			)
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.mandatory != b.mandatory {
			return a.mandatory
		}
		if a.level != b.level {
			return a.level > b.level
		}
		if a.req.IVs.Len() != b.req.IVs.Len() {
			return a.req.IVs.Len() > b.req.IVs.Len()
		}
		return a.req.Nature && !b.req.Nature
	})

	producers := q.Producers()
	pool := append([]inventory.Creature(nil), in.Inventory...)
	for _, c := range cands {
		if ev.satisfied[c.id] {
			continue
		}
		best := -1
		var bestWaste [2]int
		for i, cr := range pool {
			if !m.valid(c.req, cr, c.slot, c.mandatory) {
				continue
			}
			w := waste(c.req, cr)
			if best < 0 || lessWaste(w, bestWaste) {
				best, bestWaste = i, w
			}
		}
		if best < 0 {
			continue
		}
		cr := pool[best]
		pool = append(pool[:best], pool[best+1:]...)

		ev.Score += m.score(c.req, cr)
		ev.Consumed = append(ev.Consumed, cr.ID)
		ev.Assigned[c.id] = cr.ID

		queue := []plan.NodeID{c.id}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			if ev.satisfied[id] {
				continue
			}
			ev.satisfied[id] = true
			if pr, ok := producers[id]; ok {
				queue = append(queue, pr.Parent1, pr.Parent2)
			}
		}
	}
	return ev
}
