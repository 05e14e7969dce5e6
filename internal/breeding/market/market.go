package market

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"breedplan.ai/internal/breeding/catalogs"
	"breedplan.ai/schemas"
)

// Keys for leaves that carry no trait.
const (
	KeyBase   = "base"
	KeyNature = "nature"
)

type SourceKind int

const (
	FromSpecies SourceKind = iota
	FromGroup
	FromDonor
)

// Source is where a priced creature comes from: the target species itself,
// a compatible egg group, or the universal donor.
type Source struct {
	Kind  SourceKind
	Group string
}

func Species() Source { return Source{Kind: FromSpecies} }
func Donor() Source { return Source{Kind: FromDonor} }
func Group(name string) Source { return Source{Kind: FromGroup, Group: name} }

const (
	sourceSpecies = "species"
	sourceDonor   = "donor"
)

func (s Source) String() string {
	switch s.Kind {
	case FromSpecies:
		return sourceSpecies
	case FromDonor:
		return sourceDonor
	default:
		return s.Group
	}
}

// ParseSource maps the reserved words to their kinds; anything else names
// an egg group.
func ParseSource(s string) Source {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case sourceSpecies:
		return Species()
	case sourceDonor:
		return Donor()
	}
	return Group(strings.TrimSpace(s))
}

type Entry struct {
	Key    string          `json:"key"`
	Source string          `json:"source"`
	Gender catalogs.Gender `json:"gender"`
	Price  int64           `json:"price"`
}

type priceKey struct {
	key    string
	source string
	gender catalogs.Gender
}

func makeKey(key string, src Source, g catalogs.Gender) priceKey {
	return priceKey{
		key:    strings.ToLower(strings.TrimSpace(key)),
		source: strings.ToLower(src.String()),
		gender: g,
	}
}

// Table is an in-memory price list. It is not safe for concurrent writes;
// lookups are read-only.
type Table struct {
	prices  map[priceKey]int64
	entries map[priceKey]Entry
}

func NewTable() *Table {
	return &Table{prices: map[priceKey]int64{}, entries: map[priceKey]Entry{}}
}

func (t *Table) Set(key string, src Source, g catalogs.Gender, price int64) {
	k := makeKey(key, src, g)
	t.prices[k] = price
	t.entries[k] = Entry{Key: strings.TrimSpace(key), Source: src.String(), Gender: g, Price: price}
}

func (t *Table) Delete(key string, src Source, g catalogs.Gender) {
	k := makeKey(key, src, g)
	delete(t.prices, k)
	delete(t.entries, k)
}

func (t *Table) Price(key string, src Source, g catalogs.Gender) (int64, bool) {
	if t == nil {
		return 0, false
	}
	p, ok := t.prices[makeKey(key, src, g)]
	return p, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.prices)
}

func (t *Table) Add(e Entry) {
	t.Set(e.Key, ParseSource(e.Source), e.Gender, e.Price)
}

// Entries lists every price ordered by key, source and gender.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Gender < b.Gender
	})
	return out
}

// Merge copies every price of o into t, overwriting existing entries.
func (t *Table) Merge(o *Table) {
	if o == nil {
		return
	}
	for _, e := range o.Entries() {
		t.Add(e)
	}
}

type file struct {
	Prices []Entry `json:"prices"`
}

func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(file{Prices: t.Entries()})
}

func FromEntries(es []Entry) *Table {
	t := NewTable()
	for _, e := range es {
		t.Add(e)
	}
	return t
}

// Parse validates a price document.
func Parse(raw []byte) (*Table, error) {
	if err := schemas.Validate(schemas.Prices, raw); err != nil {
		return nil, fmt.Errorf("prices: %w", err)
	}
	var f file
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("prices: %w", err)
	}
	return FromEntries(f.Prices), nil
}

func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func (t *Table) Save(path string) error {
	b, err := json.MarshalIndent(file{Prices: t.Entries()}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
