package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"breedplan.ai/internal/breeding/catalogs"
	"breedplan.ai/schemas"
)

// Creature is one owned creature available for breeding.
type Creature struct {
	ID      string          `json:"id"`
	Species string          `json:"species"`
	Gender  catalogs.Gender `json:"gender"`
	Nature  string          `json:"nature,omitempty"`
	IVs     []string        `json:"ivs"`
}

func (c Creature) HasIV(name string) bool {
	for _, iv := range c.IVs {
		if strings.EqualFold(iv, name) {
			return true
		}
	}
	return false
}

// HasAll reports whether c carries every trait in names.
func (c Creature) HasAll(names []string) bool {
	for _, n := range names {
		if !c.HasIV(n) {
			return false
		}
	}
	return true
}

func (c Creature) String() string {
	s := fmt.Sprintf("%s %s %s", c.ID, c.Species, c.Gender)
	if len(c.IVs) > 0 {
		s += " [" + strings.Join(c.IVs, ",") + "]"
	}
	if c.Nature != "" {
		s += " " + c.Nature
	}
	return s
}

type file struct {
	Creatures []Creature `json:"creatures"`
}

func Load(path string) ([]Creature, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse validates an inventory document and normalizes its creatures.
func Parse(raw []byte) ([]Creature, error) {
	if err := schemas.Validate(schemas.Inventory, raw); err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}
	var f file
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}
	return Normalize(f.Creatures)
}

// Normalize trims fields, assigns ids to creatures without one and rejects
// duplicate ids. The input slice is not modified.
func Normalize(in []Creature) ([]Creature, error) {
	out := make([]Creature, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, c := range in {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("inventory: duplicate id %q", c.ID)
		}
		seen[c.ID] = true
		c.Species = strings.TrimSpace(c.Species)
		if c.Species == "" {
			return nil, fmt.Errorf("inventory: creature %s has no species", c.ID)
		}
		c.Nature = strings.TrimSpace(c.Nature)
		ivs := make([]string, 0, len(c.IVs))
		for _, iv := range c.IVs {
			if iv = strings.TrimSpace(iv); iv != "" {
				ivs = append(ivs, iv)
			}
		}
		c.IVs = ivs
		out = append(out, c)
	}
	return out, nil
}

func Save(path string, cs []Creature) error {
	f := file{Creatures: make([]Creature, len(cs))}
	for i, c := range cs {
		if c.IVs == nil {
			c.IVs = []string{}
		}
		f.Creatures[i] = c
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
