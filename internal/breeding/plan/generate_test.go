package plan

import (
	"errors"
	"reflect"
	"testing"
)

func TestGenerate_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name  string
		ivs   []string
		want  error
	}{
		{"none", nil, ErrUnsupportedCount},
		{"one", []string{"HP"}, ErrUnsupportedCount},
		{"six", []string{"HP", "Atk", "Def", "SpA", "SpD", "Spe"}, ErrUnsupportedCount},
		{"dup", []string{"HP", "hp"}, ErrDuplicateIV},
		{"blank", []string{"HP", " "}, ErrDuplicateIV},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Generate(tc.ivs, "")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
		})
	}
}

func TestTemplates_Counts(t *testing.T) {
	cases := []struct {
		k      int
		nature bool
		want   int
	}{
		{2, false, 1},
		{3, false, 3},
		{4, false, 6},
		{5, false, 10},
		{2, true, 2},
		{3, true, 3},
		{4, true, 12},
		{5, true, 30},
	}
	for _, tc := range cases {
		got := len(Templates(tc.k, tc.nature))
		if got != tc.want {
			t.Fatalf("k=%d nature=%v: got %d templates want %d", tc.k, tc.nature, got, tc.want)
		}
	}
}

func TestGenerate_StructuralValidity(t *testing.T) {
	names := []string{"HP", "Atk", "Def", "SpA", "Spe"}
	for k := MinIVs; k <= MaxIVs; k++ {
		for _, nature := range []string{"", "Adamant"} {
			plans, err := Generate(names[:k], nature)
			if err != nil {
				t.Fatalf("Generate k=%d: %v", k, err)
			}
			if len(plans) == 0 {
				t.Fatalf("k=%d nature=%q: no plans", k, nature)
			}
			for _, p := range plans {
				if err := Validate(p); err != nil {
					t.Fatalf("k=%d nature=%q plan %d: %v", k, nature, p.ID, err)
				}
			}
		}
	}
}

func TestGenerate_RootCarriesTarget(t *testing.T) {
	plans, err := Generate([]string{"HP", "Atk", "Spe"}, "Jolly")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, p := range plans {
		root := p.Node(p.Root())
		if root.IVs != FullSet(3) || !root.Nature {
			t.Fatalf("plan %d root=%s", p.ID, root)
		}
		last := p.Generations[len(p.Generations)-1]
		if len(last.Pairings) != 1 {
			t.Fatalf("plan %d: last generation has %d pairings", p.ID, len(last.Pairings))
		}
	}

	plain, err := Generate([]string{"HP", "Atk"}, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, p := range plain {
		if p.Node(p.Root()).Nature {
			t.Fatalf("plan %d: root carries nature without a request", p.ID)
		}
	}
}

func TestGenerate_PermutationCompleteness(t *testing.T) {
	names := []string{"HP", "Atk", "Def", "Spe"}
	plans, err := Generate(names, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	type key struct {
		template int
		mirrored bool
	}
	legends := map[key]map[string]bool{}
	for _, p := range plans {
		k := key{p.Template, p.Mirrored}
		if legends[k] == nil {
			legends[k] = map[string]bool{}
		}
		l := ""
		for _, n := range p.Legend {
			l += n + ","
		}
		legends[k][l] = true
	}
	if len(legends) != 2*len(Templates(4, false)) {
		t.Fatalf("got %d template orientations", len(legends))
	}
	for k, set := range legends {
		if len(set) != 24 {
			t.Fatalf("template %d mirrored=%v: %d distinct legends want 24", k.template, k.mirrored, len(set))
		}
	}
	for i, p := range plans {
		if p.ID != i+1 {
			t.Fatalf("plan at %d has id %d", i, p.ID)
		}
	}
}

func TestGenerate_MirrorSymmetry(t *testing.T) {
	plans, err := Generate([]string{"HP", "Atk", "Def"}, "Bold")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, p := range plans {
		m := p.Mirror()
		found := false
		for _, q := range plans {
			if q.Template == p.Template && q.Mirrored == m.Mirrored &&
				reflect.DeepEqual(q.Legend, m.Legend) &&
				reflect.DeepEqual(q.Generations, m.Generations) &&
				reflect.DeepEqual(q.Nodes, m.Nodes) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("plan %d: mirror not generated", p.ID)
		}

		mm := m.Mirror()
		mm.ID = p.ID
		if !reflect.DeepEqual(mm, p) {
			t.Fatalf("plan %d: double mirror differs", p.ID)
		}
	}
}

func TestPlan_CloneIsIndependent(t *testing.T) {
	plans, err := Generate([]string{"HP", "Atk"}, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	p := plans[0]
	cp := p.Clone()
	cp.Nodes[0].IVs = FullSet(5)
	cp.Generations[0].Pairings[0].Parent1 = 99
	cp.Legend[0] = "x"
	if p.Nodes[0].IVs == FullSet(5) || p.Generations[0].Pairings[0].Parent1 == 99 || p.Legend[0] == "x" {
		t.Fatalf("clone shares storage with source")
	}
}

func TestPlan_DescribeAndHeights(t *testing.T) {
	plans, err := Generate([]string{"HP", "Atk"}, "Calm")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	p := plans[0]
	root := p.Root()
	if got := p.Heights()[root]; got != len(p.Generations) {
		t.Fatalf("root height=%d want %d", got, len(p.Generations))
	}
	got := p.Describe(p.Node(root))
	want := p.Legend[0] + "/" + p.Legend[1] + " + Calm"
	if got != want {
		t.Fatalf("Describe=%q want %q", got, want)
	}
}
