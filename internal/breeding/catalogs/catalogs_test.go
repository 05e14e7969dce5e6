package catalogs

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleSpecies = `[
  {"name":"Charmander","egg_groups":["Monster","Dragon"],"gender":{"kind":"gendered","male_ratio":0.875}},
  {"name":"Beldum","egg_groups":["Mineral"],"gender":{"kind":"genderless"}},
  {"name":"Tauros","egg_groups":["Field"],"gender":{"kind":"male_only"}},
  {"name":"Ditto","egg_groups":["Ditto"],"gender":{"kind":"genderless"}},
  {"name":"Mystery"}
]`

func writeSpecies(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "species.json"), []byte(sampleSpecies), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	c, err := Load(writeSpecies(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Digest == "" || len(c.Names) != 5 {
		t.Fatalf("digest=%q names=%v", c.Digest, c.Names)
	}

	groups, ok := c.EggGroups("charmander")
	if !ok || !reflect.DeepEqual(groups, []string{"Monster", "Dragon"}) {
		t.Fatalf("EggGroups=%v ok=%v", groups, ok)
	}
	g, ok := c.Gender("Charmander")
	if !ok || g.Kind != Gendered || g.MaleRatio != 0.875 || g.MaternalGender() != Female {
		t.Fatalf("Gender=%+v ok=%v", g, ok)
	}
	if g, _ := c.Gender("Beldum"); g.MaternalGender() != Genderless || !g.NeedsUniversalDonor() {
		t.Fatalf("Beldum profile=%+v", g)
	}
	if g, _ := c.Gender("Tauros"); g.MaternalGender() != Male || !g.NeedsUniversalDonor() {
		t.Fatalf("Tauros profile=%+v", g)
	}

	if _, ok := c.EggGroups("Mystery"); ok {
		t.Fatalf("expected missing egg groups")
	}
	if _, ok := c.Gender("Mystery"); ok {
		t.Fatalf("expected missing gender")
	}
	if _, ok := c.Gender("Nope"); ok {
		t.Fatalf("expected unknown species")
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New([]SpeciesDef{{Name: "Eevee"}, {Name: "eevee"}})
	if err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestSuggest(t *testing.T) {
	c, err := Load(writeSpecies(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := c.Suggest("Charmandr")
	if len(got) == 0 || got[0] != "Charmander" {
		t.Fatalf("Suggest=%v", got)
	}
	if got := c.Suggest("Zzzzzzzzzz"); len(got) != 0 {
		t.Fatalf("unexpected suggestions %v", got)
	}
}

func TestParseGender(t *testing.T) {
	cases := map[string]Gender{"M": Male, "female": Female, "♀": Female, "x": Genderless, "Genderless": Genderless}
	for in, want := range cases {
		got, err := ParseGender(in)
		if err != nil || got != want {
			t.Fatalf("ParseGender(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseGender("both"); err == nil {
		t.Fatalf("expected error")
	}
}
