package evaluate

import (
	"sort"
	"strings"

	"breedplan.ai/internal/breeding/plan"
)

// Rank orders plans by score, highest first, then by cost, cheapest first.
// The sort is stable and evs is left untouched.
func Rank(evs []*EvaluatedPlan) []*EvaluatedPlan {
	out := append([]*EvaluatedPlan(nil), evs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Cost < out[j].Cost
	})
	return out
}

// MissingPriceKeys lists the market keys of the leaves ev still has to
// obtain, sorted and without duplicates.
func MissingPriceKeys(ev *EvaluatedPlan) []string {
	return leafKeys(ev, func(plan.NodeID) bool { return true })
}

// UnpricedKeys lists the keys of the leaves no market price could cover.
func UnpricedKeys(ev *EvaluatedPlan) []string {
	return leafKeys(ev, func(id plan.NodeID) bool {
		return strings.HasPrefix(ev.Decisions[id], unpricedPrefix)
	})
}

func leafKeys(ev *EvaluatedPlan, keep func(plan.NodeID) bool) []string {
	p := ev.Plan
	producers := p.Producers()
	seen := map[string]bool{}
	var out []string
	var walk func(id plan.NodeID)
	walk = func(id plan.NodeID) {
		if ev.satisfied[id] {
			return
		}
		if pr, ok := producers[id]; ok {
			walk(pr.Parent1)
			walk(pr.Parent2)
			return
		}
		if !keep(id) {
			return
		}
		k := leafKey(p, p.Node(id))
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	walk(p.Root())
	sort.Strings(out)
	return out
}

// MissingAcross merges UnpricedKeys over the first n plans (all when
// n <= 0).
func MissingAcross(evs []*EvaluatedPlan, n int) []string {
	if n <= 0 || n > len(evs) {
		n = len(evs)
	}
	seen := map[string]bool{}
	var out []string
	for _, ev := range evs[:n] {
		for _, k := range UnpricedKeys(ev) {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}
