package catalogs

import (
	"fmt"
	"strings"
)

type Gender int

const (
	GenderUnknown Gender = iota
	Male
	Female
	Genderless
)

func (g Gender) String() string {
	switch g {
	case Male:
		return "M"
	case Female:
		return "F"
	case Genderless:
		return "X"
	default:
		return "?"
	}
}

func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male", "♂":
		return Male, nil
	case "f", "female", "♀":
		return Female, nil
	case "x", "n", "genderless", "none":
		return Genderless, nil
	}
	return GenderUnknown, fmt.Errorf("unknown gender %q", s)
}

func (g Gender) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

func (g *Gender) UnmarshalText(b []byte) error {
	v, err := ParseGender(string(b))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// GenderKind classifies how a species' offspring are sexed.
type GenderKind int

const (
	Gendered GenderKind = iota
	GenderlessOnly
	MaleOnly
	FemaleOnly
)

var kindNames = map[GenderKind]string{
	Gendered:       "gendered",
	GenderlessOnly: "genderless",
	MaleOnly:       "male_only",
	FemaleOnly:     "female_only",
}

func (k GenderKind) String() string { return kindNames[k] }

func (k GenderKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *GenderKind) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for kk, name := range kindNames {
		if name == s {
			*k = kk
			return nil
		}
	}
	return fmt.Errorf("unknown gender kind %q", s)
}

// GenderProfile is a species' natural sex distribution. MaleRatio is only
// meaningful for Gendered species.
type GenderProfile struct {
	Kind      GenderKind `json:"kind"`
	MaleRatio float64    `json:"male_ratio,omitempty"`
}

// MaternalGender is the sex that passes the species on when breeding.
func (p GenderProfile) MaternalGender() Gender {
	switch p.Kind {
	case GenderlessOnly:
		return Genderless
	case MaleOnly:
		return Male
	default:
		return Female
	}
}

// NeedsUniversalDonor reports whether the species can only breed with the
// universal donor.
func (p GenderProfile) NeedsUniversalDonor() bool {
	return p.Kind == GenderlessOnly || p.Kind == MaleOnly
}
