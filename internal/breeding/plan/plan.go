package plan

// NodeID addresses a Requirement inside one Plan's node arena. Two nodes with
// equal role sets are still distinct positions in the tree.
type NodeID int

// Requirement is what a creature at one tree position must carry.
type Requirement struct {
	IVs    RoleSet `json:"ivs"`
	Nature bool    `json:"nature,omitempty"`
}

func (r Requirement) String() string {
	s := r.IVs.String()
	if r.Nature {
		if s == "" {
			return string(RoleNature)
		}
		return s + "+" + string(RoleNature)
	}
	if s == "" {
		return "-"
	}
	return s
}

// NatureDonor reports whether r is the pure nature leaf.
func (r Requirement) NatureDonor() bool { return r.Nature && r.IVs.Empty() }

type Pairing struct {
	Parent1 NodeID `json:"parent1"`
	Parent2 NodeID `json:"parent2"`
	Child   NodeID `json:"child"`
}

type Generation struct {
	Level    int       `json:"level"`
	Pairings []Pairing `json:"pairings"`
}

// Plan is one concrete breeding tree: a template with its roles bound to real
// trait names. Generations run from the leaves to the root.
type Plan struct {
	ID           int           `json:"id"`
	TargetIVs    []string      `json:"target_ivs"`
	TargetNature string        `json:"target_nature,omitempty"`
	Legend       []string      `json:"legend"`
	Nodes        []Requirement `json:"nodes"`
	Generations  []Generation  `json:"generations"`
	Template     int           `json:"template"`
	Mirrored     bool          `json:"mirrored,omitempty"`
}

// Root is the child of the last pairing of the last generation.
func (p *Plan) Root() NodeID {
	g := p.Generations[len(p.Generations)-1]
	return g.Pairings[len(g.Pairings)-1].Child
}

func (p *Plan) Node(id NodeID) Requirement { return p.Nodes[id] }

// Pairings returns every pairing, leaves first.
func (p *Plan) Pairings() []Pairing {
	var out []Pairing
	for _, g := range p.Generations {
		out = append(out, g.Pairings...)
	}
	return out
}

// Producers maps each bred node to the pairing that produces it.
func (p *Plan) Producers() map[NodeID]Pairing {
	out := make(map[NodeID]Pairing, len(p.Nodes))
	for _, g := range p.Generations {
		for _, pr := range g.Pairings {
			out[pr.Child] = pr
		}
	}
	return out
}

// Heights returns, per node, the level of the generation that produces it;
// leaves are 0 and the root is len(Generations).
func (p *Plan) Heights() []int {
	h := make([]int, len(p.Nodes))
	for _, g := range p.Generations {
		for _, pr := range g.Pairings {
			h[pr.Child] = g.Level
		}
	}
	return h
}

// IVNames translates the IV roles of r through the legend, in role order.
func (p *Plan) IVNames(r Requirement) []string {
	out := make([]string, 0, r.IVs.Len())
	for _, i := range r.IVs.Indices() {
		if i < len(p.Legend) {
			out = append(out, p.Legend[i])
		}
	}
	return out
}

// Describe renders r with real trait names, e.g. "HP/Atk + Adamant".
func (p *Plan) Describe(r Requirement) string {
	s := ""
	for i, n := range p.IVNames(r) {
		if i > 0 {
			s += "/"
		}
		s += n
	}
	if r.Nature {
		if s != "" {
			s += " + "
		}
		s += p.TargetNature
	}
	if s == "" {
		s = "base"
	}
	return s
}

// Clone returns a deep copy with an independent node arena.
func (p *Plan) Clone() *Plan {
	cp := *p
	cp.TargetIVs = append([]string(nil), p.TargetIVs...)
	cp.Legend = append([]string(nil), p.Legend...)
	cp.Nodes = append([]Requirement(nil), p.Nodes...)
	cp.Generations = make([]Generation, len(p.Generations))
	for i, g := range p.Generations {
		cp.Generations[i] = Generation{Level: g.Level, Pairings: append([]Pairing(nil), g.Pairings...)}
	}
	return &cp
}

// Mirror returns a copy with parent1 and parent2 swapped at every pairing.
func (p *Plan) Mirror() *Plan {
	cp := p.Clone()
	for gi := range cp.Generations {
		for pi := range cp.Generations[gi].Pairings {
			pr := &cp.Generations[gi].Pairings[pi]
			pr.Parent1, pr.Parent2 = pr.Parent2, pr.Parent1
		}
	}
	cp.Mirrored = !p.Mirrored
	return cp
}

// SwapParents flips the orientation of the pairing producing child.
func (p *Plan) SwapParents(child NodeID) bool {
	for gi := range p.Generations {
		for pi := range p.Generations[gi].Pairings {
			pr := &p.Generations[gi].Pairings[pi]
			if pr.Child == child {
				pr.Parent1, pr.Parent2 = pr.Parent2, pr.Parent1
				return true
			}
		}
	}
	return false
}
