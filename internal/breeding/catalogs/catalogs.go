package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Catalog is the species reference data: egg groups and sex distribution.
type Catalog struct {
	ByName map[string]SpeciesDef
	Names  []string
	Digest string
}

type SpeciesDef struct {
	Name      string         `json:"name"`
	EggGroups []string       `json:"egg_groups"`
	Gender    *GenderProfile `json:"gender,omitempty"`
}

func Load(configDir string) (*Catalog, error) {
	return LoadFile(filepath.Join(configDir, "species.json"))
}

func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var defs []SpeciesDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("species.json: %w", err)
	}
	c, err := New(defs)
	if err != nil {
		return nil, fmt.Errorf("species.json: %w", err)
	}
	sum := sha256.Sum256(raw)
	c.Digest = hex.EncodeToString(sum[:])
	return c, nil
}

func New(defs []SpeciesDef) (*Catalog, error) {
	c := &Catalog{ByName: make(map[string]SpeciesDef, len(defs))}
	for _, d := range defs {
		d.Name = strings.TrimSpace(d.Name)
		if d.Name == "" {
			return nil, fmt.Errorf("empty species name")
		}
		key := norm(d.Name)
		if _, dup := c.ByName[key]; dup {
			return nil, fmt.Errorf("duplicate species %q", d.Name)
		}
		c.ByName[key] = d
		c.Names = append(c.Names, d.Name)
	}
	sort.Strings(c.Names)
	return c, nil
}

// Defs lists the species in name order.
func (c *Catalog) Defs() []SpeciesDef {
	out := make([]SpeciesDef, 0, len(c.Names))
	for _, n := range c.Names {
		out = append(out, c.ByName[norm(n)])
	}
	return out
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (c *Catalog) lookup(species string) (SpeciesDef, bool) {
	if c == nil {
		return SpeciesDef{}, false
	}
	d, ok := c.ByName[norm(species)]
	return d, ok
}

// Canonical returns the catalog spelling of species.
func (c *Catalog) Canonical(species string) (string, bool) {
	d, ok := c.lookup(species)
	return d.Name, ok
}

// EggGroups reports false when the species has no group data.
func (c *Catalog) EggGroups(species string) ([]string, bool) {
	d, ok := c.lookup(species)
	if !ok || len(d.EggGroups) == 0 {
		return nil, false
	}
	return d.EggGroups, true
}

// Gender reports false when the species has no sex data.
func (c *Catalog) Gender(species string) (GenderProfile, bool) {
	d, ok := c.lookup(species)
	if !ok || d.Gender == nil {
		return GenderProfile{}, false
	}
	return *d.Gender, true
}

// Suggest returns known species names within a small edit distance of name,
// closest first.
func (c *Catalog) Suggest(name string) []string {
	if c == nil {
		return nil
	}
	return Closest(name, c.Names)
}

// Closest ranks candidates by edit distance to name and keeps those within
// a length-dependent limit.
func Closest(name string, candidates []string) []string {
	token := norm(name)
	if token == "" {
		return nil
	}
	type hit struct {
		name string
		dist int
	}
	var hits []hit
	for _, cand := range candidates {
		dist := levenshtein.ComputeDistance(token, norm(cand))
		if dist > distanceLimit(len(cand)) {
			continue
		}
		hits = append(hits, hit{cand, dist})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
