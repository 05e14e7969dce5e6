package plan

import "strings"

// Role is a structural placeholder for one requested trait.
type Role byte

const (
	RoleB Role = 'B'
	RoleG Role = 'G'
	RoleR Role = 'R'
	RoleY Role = 'Y'
	RoleO Role = 'O'

	// RoleNature stands for the requested nature.
	RoleNature Role = 'V'
)

const MaxIVs = 5

var ivRoles = [MaxIVs]Role{RoleB, RoleG, RoleR, RoleY, RoleO}

// IVRole returns the canonical role at index i (0 <= i < MaxIVs).
func IVRole(i int) Role { return ivRoles[i] }

func (r Role) String() string { return string(r) }

// RoleSet is a bitmask over the canonical IV roles; bit i is IVRole(i).
type RoleSet uint8

func RoleSetOf(idx ...int) RoleSet {
	var s RoleSet
	for _, i := range idx {
		s |= 1 << uint(i)
	}
	return s
}

// FullSet is the set of the first k canonical roles.
func FullSet(k int) RoleSet { return RoleSet(1<<uint(k)) - 1 }

func (s RoleSet) Has(i int) bool { return s&(1<<uint(i)) != 0 }

func (s RoleSet) With(i int) RoleSet    { return s | 1<<uint(i) }
func (s RoleSet) Without(i int) RoleSet { return s &^ (1 << uint(i)) }

func (s RoleSet) Union(o RoleSet) RoleSet { return s | o }

// Contains reports whether o is a subset of s.
func (s RoleSet) Contains(o RoleSet) bool { return s&o == o }

func (s RoleSet) Len() int {
	n := 0
	for v := s; v != 0; v &= v - 1 {
		n++
	}
	return n
}

func (s RoleSet) Empty() bool { return s == 0 }

// Indices returns the role indices in ascending order.
func (s RoleSet) Indices() []int {
	out := make([]int, 0, MaxIVs)
	for i := 0; i < MaxIVs; i++ {
		if s.Has(i) {
			out = append(out, i)
		}
	}
	return out
}

func (s RoleSet) String() string {
	var b strings.Builder
	for _, i := range s.Indices() {
		b.WriteByte(byte(ivRoles[i]))
	}
	return b.String()
}
