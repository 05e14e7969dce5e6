package tuning

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"breedplan.ai/internal/breeding/catalogs"
)

type Tuning struct {
	UniversalDonor string `yaml:"universal_donor" json:"universal_donor"`
	UnpricedCost   int64  `yaml:"unpriced_cost" json:"unpriced_cost"`

	GenderFees GenderFees `yaml:"gender_fees" json:"gender_fees"`
	Items      ItemCosts  `yaml:"items" json:"items"`
	Score      Score      `yaml:"score" json:"score"`
}

// GenderFees is the price of forcing an offspring's sex, looked up by the
// species' male ratio. Unlisted ratios pay Default.
type GenderFees struct {
	Default        int64      `yaml:"default" json:"default"`
	UnknownSpecies int64      `yaml:"unknown_species" json:"unknown_species"`
	Ratios         []RatioFee `yaml:"ratios" json:"ratios"`
}

type RatioFee struct {
	MaleRatio float64 `yaml:"male_ratio" json:"male_ratio"`
	Female    int64   `yaml:"female" json:"female"`
	Male      int64   `yaml:"male" json:"male"`
}

// ItemCosts are the held items consumed by one pairing.
type ItemCosts struct {
	Nature int64 `yaml:"nature" json:"nature"`
	IV     int64 `yaml:"iv" json:"iv"`
}

// Score weights an owned creature's fit for a requirement.
type Score struct {
	Base         float64 `yaml:"base" json:"base"`
	PerIV        float64 `yaml:"per_iv" json:"per_iv"`
	NatureMatch  float64 `yaml:"nature_match" json:"nature_match"`
	ExactFit     float64 `yaml:"exact_fit" json:"exact_fit"`
	WastePenalty float64 `yaml:"waste_penalty" json:"waste_penalty"`
}

func Defaults() Tuning {
	return Tuning{
		UniversalDonor: "Ditto",
		UnpricedCost:   999_999_999,
		GenderFees: GenderFees{
			Default:        5000,
			UnknownSpecies: 5000,
			Ratios: []RatioFee{
				{MaleRatio: 0.5, Female: 5000, Male: 5000},
				{MaleRatio: 0.875, Female: 21000, Male: 5000},
				{MaleRatio: 0.25, Female: 9000, Male: 5000},
			},
		},
		Items: ItemCosts{Nature: 15000, IV: 20000},
		Score: Score{Base: 10, PerIV: 5, NatureMatch: 15, ExactFit: 5, WastePenalty: 2},
	}
}

// Load overlays the yaml at path on Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.UniversalDonor == "" {
		return fmt.Errorf("universal_donor must be set")
	}
	if t.UnpricedCost <= 0 {
		return fmt.Errorf("unpriced_cost must be > 0")
	}
	if t.GenderFees.Default < 0 || t.GenderFees.UnknownSpecies < 0 || t.Items.Nature < 0 || t.Items.IV < 0 {
		return fmt.Errorf("fees and item costs must be >= 0")
	}
	for _, r := range t.GenderFees.Ratios {
		if r.MaleRatio < 0 || r.MaleRatio > 1 {
			return fmt.Errorf("gender_fees: male_ratio %v out of range", r.MaleRatio)
		}
		if r.Female < 0 || r.Male < 0 {
			return fmt.Errorf("gender_fees: negative fee for ratio %v", r.MaleRatio)
		}
	}
	return nil
}

// GenderFee is what forcing an offspring of the given sex costs for a species
// with profile p. ok=false means the species has no sex data.
func (f GenderFees) GenderFee(p catalogs.GenderProfile, ok bool, want catalogs.Gender) int64 {
	if !ok {
		return f.UnknownSpecies
	}
	if p.Kind != catalogs.Gendered {
		return 0
	}
	for _, r := range f.Ratios {
		if math.Abs(r.MaleRatio-p.MaleRatio) > 1e-6 {
			continue
		}
		if want == catalogs.Female {
			return r.Female
		}
		return r.Male
	}
	return f.Default
}

// ItemCost is the held-item cost of producing a node; nature breeding needs
// the cheaper item.
func (c ItemCosts) ItemCost(nature bool) int64 {
	if nature {
		return c.Nature
	}
	return c.IV
}
