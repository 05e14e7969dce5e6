package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"breedplan.ai/internal/breeding/evaluate"
	"breedplan.ai/internal/breeding/plan"
)

// Node sources.
const (
	SourceOwned  = "owned"
	SourceBought = "bought"
	SourceBred   = "bred"
)

type NodeView struct {
	ID       int    `json:"id"`
	Roles    string `json:"roles"`
	Traits   string `json:"traits"`
	Source   string `json:"source"`
	Creature string `json:"creature,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Step is one pairing still to be performed.
type Step struct {
	Generation int      `json:"generation"`
	Parent1    NodeView `json:"parent1"`
	Parent2    NodeView `json:"parent2"`
	Child      NodeView `json:"child"`
}

// PlanView is the wire and storage form of an evaluated plan.
type PlanView struct {
	ID            int               `json:"id"`
	Template      int               `json:"template"`
	Mirrored      bool              `json:"mirrored,omitempty"`
	Score         float64           `json:"score"`
	Cost          int64             `json:"cost"`
	Priced        bool              `json:"priced"`
	Legend        map[string]string `json:"legend"`
	Consumed      []string          `json:"consumed,omitempty"`
	Steps         []Step            `json:"steps"`
	MissingPrices []string          `json:"missing_prices,omitempty"`
}

// Legend maps each role letter of p to the trait it stands for.
func Legend(p *plan.Plan) map[string]string {
	out := make(map[string]string, len(p.Legend)+1)
	for i, name := range p.Legend {
		out[plan.IVRole(i).String()] = name
	}
	if p.TargetNature != "" {
		out[plan.RoleNature.String()] = p.TargetNature
	}
	return out
}

func node(ev *evaluate.EvaluatedPlan, producers map[plan.NodeID]plan.Pairing, id plan.NodeID) NodeView {
	r := ev.Plan.Node(id)
	v := NodeView{ID: int(id), Roles: r.String(), Traits: ev.Plan.Describe(r), Detail: ev.Decisions[id]}
	switch cid, owned := ev.Assigned[id]; {
	case owned:
		v.Source, v.Creature = SourceOwned, cid
	case ev.Satisfied(id):
		v.Source = SourceOwned
	default:
		if _, bred := producers[id]; bred {
			v.Source = SourceBred
		} else {
			v.Source = SourceBought
		}
	}
	return v
}

// View flattens ev into the pairings that still have to happen, leaves first.
// Pairings whose child is already owned are left out.
func View(ev *evaluate.EvaluatedPlan) PlanView {
	p := ev.Plan
	producers := p.Producers()
	v := PlanView{
		ID:       p.ID,
		Template: p.Template,
		Mirrored: p.Mirrored,
		Score:    ev.Score,
		Cost:     ev.Cost,
		Priced:   ev.Priced,
		Legend:   Legend(p),
		Consumed: append([]string(nil), ev.Consumed...),
		Steps:    []Step{},
	}
	for _, g := range p.Generations {
		for _, pr := range g.Pairings {
			if ev.Satisfied(pr.Child) {
				continue
			}
			v.Steps = append(v.Steps, Step{
				Generation: g.Level,
				Parent1:    node(ev, producers, pr.Parent1),
				Parent2:    node(ev, producers, pr.Parent2),
				Child:      node(ev, producers, pr.Child),
			})
		}
	}
	if ev.Costed() && !ev.Priced {
		v.MissingPrices = evaluate.UnpricedKeys(ev)
	}
	return v
}

func label(n NodeView) string {
	switch n.Source {
	case SourceOwned:
		if n.Creature != "" {
			return fmt.Sprintf("%s (owned: %s)", n.Traits, n.Creature)
		}
		return fmt.Sprintf("%s (owned)", n.Traits)
	case SourceBought:
		if n.Detail != "" {
			return fmt.Sprintf("%s (%s)", n.Traits, n.Detail)
		}
		return fmt.Sprintf("%s (buy)", n.Traits)
	}
	return n.Traits
}

// Itinerary writes a human-readable shopping and breeding list for ev.
// rank is the 1-based position shown in the header.
func Itinerary(w io.Writer, rank int, ev *evaluate.EvaluatedPlan) error {
	v := View(ev)
	bw := bufio.NewWriter(w)

	head := fmt.Sprintf("#%d plan %d (template %d", rank, v.ID, v.Template)
	if v.Mirrored {
		head += ", mirrored"
	}
	fmt.Fprintf(bw, "%s) score %.1f\n", head, v.Score)

	var legend []string
	for i, name := range ev.Plan.Legend {
		legend = append(legend, fmt.Sprintf("%s=%s", plan.IVRole(i), name))
	}
	if ev.Plan.TargetNature != "" {
		legend = append(legend, fmt.Sprintf("%s=%s", plan.RoleNature, ev.Plan.TargetNature))
	}
	fmt.Fprintf(bw, "  legend: %s\n", strings.Join(legend, " "))
	if len(v.Consumed) > 0 {
		fmt.Fprintf(bw, "  uses: %s\n", strings.Join(v.Consumed, ", "))
	}

	if len(v.Steps) == 0 {
		fmt.Fprintf(bw, "  target already owned\n")
	}
	gen := -1
	for _, s := range v.Steps {
		if s.Generation != gen {
			gen = s.Generation
			fmt.Fprintf(bw, "  generation %d\n", gen)
		}
		fmt.Fprintf(bw, "    %s x %s -> %s", label(s.Parent1), label(s.Parent2), s.Child.Traits)
		if s.Child.Detail != "" {
			fmt.Fprintf(bw, " [%s]", s.Child.Detail)
		}
		fmt.Fprintln(bw)
	}

	if v.Priced {
		fmt.Fprintf(bw, "  total: $%d\n", v.Cost)
	} else {
		fmt.Fprintf(bw, "  total: not computable, missing prices for %s\n", strings.Join(v.MissingPrices, ", "))
	}
	return bw.Flush()
}
