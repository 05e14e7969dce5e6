package plan

import (
	"errors"
	"fmt"
	"strings"
)

const MinIVs = 2

var (
	ErrUnsupportedCount = errors.New("unsupported trait count")
	ErrDuplicateIV      = errors.New("duplicate or blank trait name")
)

// Generate binds every template for len(ivNames) traits to every ordering of
// ivNames, in both orientations. An empty nature requests none.
func Generate(ivNames []string, nature string) ([]*Plan, error) {
	k := len(ivNames)
	if k < MinIVs || k > MaxIVs {
		return nil, fmt.Errorf("%w: %d (want %d-%d)", ErrUnsupportedCount, k, MinIVs, MaxIVs)
	}
	names := make([]string, k)
	seen := make(map[string]bool, k)
	for i, n := range ivNames {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateIV, ivNames[i])
		}
		seen[key] = true
		names[i] = n
	}
	nature = strings.TrimSpace(nature)

	perms := permutations(k)
	var out []*Plan
	for _, tpl := range Templates(k, nature != "") {
		for _, base := range []*Plan{tpl, tpl.Mirror()} {
			for _, perm := range perms {
				p := base.Clone()
				p.ID = len(out) + 1
				p.TargetIVs = append([]string(nil), names...)
				p.TargetNature = nature
				p.Legend = make([]string, k)
				for role, src := range perm {
					p.Legend[role] = names[src]
				}
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// permutations returns all orderings of 0..n-1 in lexicographic order.
func permutations(n int) [][]int {
	var out [][]int
	cur := make([]int, 0, n)
	used := make([]bool, n)
	var rec func()
	rec = func() {
		if len(cur) == n {
			out = append(out, append([]int(nil), cur...))
			return
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			cur = append(cur, i)
			rec()
			cur = cur[:len(cur)-1]
			used[i] = false
		}
	}
	rec()
	return out
}

// Validate checks the structural invariants of a generated plan.
func Validate(p *Plan) error {
	if len(p.Generations) == 0 {
		return errors.New("plan has no generations")
	}
	produced := p.Producers()
	for _, pr := range p.Pairings() {
		a, b, c := p.Node(pr.Parent1), p.Node(pr.Parent2), p.Node(pr.Child)
		if c.IVs != a.IVs.Union(b.IVs) {
			return fmt.Errorf("pairing %s x %s -> %s: child is not the union", a, b, c)
		}
		if !a.NatureDonor() && !b.NatureDonor() && a.IVs == b.IVs {
			return fmt.Errorf("pairing %s x %s: identical parents", a, b)
		}
		if c.Nature && !a.Nature && !b.Nature {
			return fmt.Errorf("pairing %s x %s -> %s: nature has no source", a, b, c)
		}
	}
	for id, r := range p.Nodes {
		if _, bred := produced[NodeID(id)]; !bred && r.IVs.Len() > 1 {
			return fmt.Errorf("leaf %s carries more than one role", r)
		}
	}
	root := p.Node(p.Root())
	if root.IVs != FullSet(len(p.TargetIVs)) {
		return fmt.Errorf("root %s does not carry every requested trait", root)
	}
	if root.Nature != (p.TargetNature != "") {
		return fmt.Errorf("root %s nature mismatch", root)
	}
	return nil
}
