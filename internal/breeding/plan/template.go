package plan

import "sort"

type levelPairing struct {
	Pairing
	level int
}

// builder grows one template's node arena.
type builder struct {
	nodes []Requirement
	pairs []levelPairing
}

func (b *builder) add(r Requirement) NodeID {
	b.nodes = append(b.nodes, r)
	return NodeID(len(b.nodes) - 1)
}

func (b *builder) breed(p1 NodeID, h1 int, p2 NodeID, h2 int, child Requirement) (NodeID, int) {
	id := b.add(child)
	h := h1
	if h2 > h {
		h = h2
	}
	h++
	b.pairs = append(b.pairs, levelPairing{Pairing: Pairing{Parent1: p1, Parent2: p2, Child: id}, level: h})
	return id, h
}

// pure builds the tree for s by recursive halving: s is bred from s minus y
// and s minus x. drop picks (x, y) at this node; below it the two highest
// roles are dropped.
func (b *builder) pure(s RoleSet, drop *[2]int) (NodeID, int) {
	if s.Len() <= 1 {
		return b.add(Requirement{IVs: s}), 0
	}
	idx := s.Indices()
	x, y := idx[len(idx)-2], idx[len(idx)-1]
	if drop != nil {
		x, y = drop[0], drop[1]
	}
	p1, h1 := b.pure(s.Without(y), nil)
	p2, h2 := b.pure(s.Without(x), nil)
	return b.breed(p1, h1, p2, h2, Requirement{IVs: s})
}

// nature grafts a {x}+V branch onto the pure tree of the remaining roles.
func (b *builder) nature(k, x int, drop *[2]int) (NodeID, int) {
	full := FullSet(k)
	pid, ph := b.pure(full.Without(x), drop)

	lx := b.add(Requirement{IVs: RoleSetOf(x)})
	lv := b.add(Requirement{Nature: true})
	nid, nh := b.breed(lx, 0, lv, 0, Requirement{IVs: RoleSetOf(x), Nature: true})

	return b.breed(pid, ph, nid, nh, Requirement{IVs: full, Nature: true})
}

func (b *builder) finish(template int) *Plan {
	levels := map[int][]Pairing{}
	var keys []int
	for _, lp := range b.pairs {
		if _, ok := levels[lp.level]; !ok {
			keys = append(keys, lp.level)
		}
		levels[lp.level] = append(levels[lp.level], lp.Pairing)
	}
	sort.Ints(keys)
	p := &Plan{Nodes: b.nodes, Template: template}
	for _, lvl := range keys {
		p.Generations = append(p.Generations, Generation{Level: lvl, Pairings: levels[lvl]})
	}
	return p
}

// partitions lists every (x, y) choice of roles dropped at the top of s's
// pure tree. Sets below two roles have a single nil partition.
func partitions(s RoleSet) []*[2]int {
	idx := s.Indices()
	if len(idx) < 2 {
		return []*[2]int{nil}
	}
	var out []*[2]int
	for i := 0; i < len(idx); i++ {
		for j := i + 1; j < len(idx); j++ {
			out = append(out, &[2]int{idx[i], idx[j]})
		}
	}
	return out
}

// Templates returns the role-level blueprints for k traits, unbound to any
// names and unmirrored. Template numbers start at 1.
func Templates(k int, withNature bool) []*Plan {
	if k < MinIVs || k > MaxIVs {
		return nil
	}
	var out []*Plan
	if !withNature {
		for _, d := range partitions(FullSet(k)) {
			b := &builder{}
			b.pure(FullSet(k), d)
			out = append(out, b.finish(len(out)+1))
		}
		return out
	}
	for x := 0; x < k; x++ {
		for _, d := range partitions(FullSet(k).Without(x)) {
			b := &builder{}
			b.nature(k, x, d)
			out = append(out, b.finish(len(out)+1))
		}
	}
	return out
}
