package market

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"breedplan.ai/internal/breeding/catalogs"
)

func TestTable_Lookup(t *testing.T) {
	tb := NewTable()
	tb.Set("HP", Species(), catalogs.Female, 100)
	tb.Set("hp", Group("Monster"), catalogs.Male, 80)
	tb.Set(KeyBase, Donor(), catalogs.Genderless, 30)

	cases := []struct {
		key  string
		src  Source
		g    catalogs.Gender
		want int64
		ok   bool
	}{
		{"hp", Species(), catalogs.Female, 100, true},
		{"HP", Group("monster"), catalogs.Male, 80, true},
		{"Base", Donor(), catalogs.Genderless, 30, true},
		{"HP", Species(), catalogs.Male, 0, false},
		{"Atk", Species(), catalogs.Female, 0, false},
	}
	for _, tc := range cases {
		got, ok := tb.Price(tc.key, tc.src, tc.g)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Price(%s,%s,%s)=%d,%v want %d,%v", tc.key, tc.src, tc.g, got, ok, tc.want, tc.ok)
		}
	}

	tb.Delete("HP", Species(), catalogs.Female)
	if _, ok := tb.Price("HP", Species(), catalogs.Female); ok {
		t.Fatalf("expected deleted price")
	}

	var nilTable *Table
	if _, ok := nilTable.Price("HP", Species(), catalogs.Female); ok {
		t.Fatalf("nil table returned a price")
	}
}

func TestParseSource(t *testing.T) {
	if ParseSource("Species").Kind != FromSpecies || ParseSource("donor").Kind != FromDonor {
		t.Fatalf("reserved sources not recognised")
	}
	if s := ParseSource(" Field "); s.Kind != FromGroup || s.Group != "Field" {
		t.Fatalf("group source=%+v", s)
	}
}

func TestSaveLoad(t *testing.T) {
	tb := NewTable()
	tb.Set("Spe", Group("Field"), catalogs.Male, 4200)
	tb.Set(KeyNature, Species(), catalogs.Female, 9000)
	path := filepath.Join(t.TempDir(), "prices.json")
	if err := tb.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("Len=%d", got.Len())
	}
	if p, ok := got.Price("spe", Group("field"), catalogs.Male); !ok || p != 4200 {
		t.Fatalf("Price=%d,%v", p, ok)
	}

	b, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	again, err := Parse(b)
	if err != nil || again.Len() != 2 {
		t.Fatalf("Parse(marshal)=%v,%v", again, err)
	}
}

func TestParse_RejectsBadGender(t *testing.T) {
	_, err := Parse([]byte(`{"prices":[{"key":"HP","source":"species","gender":"Q","price":1}]}`))
	if err == nil {
		t.Fatalf("expected error")
	}
}
