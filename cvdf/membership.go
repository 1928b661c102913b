package cvdf

import (
	"fmt"
	"strings"
)

// MembershipType is the classification a tracking pipeline assigns to each
// voxel of a cloud.  The integer values are the codes stored in the "type"
// column of the voxel tables.
type MembershipType uint8

const (
	Condensed MembershipType = iota
	CondensedEdge
	CondensedEnv
	CondensedShell
	Core
	CoreEdge
	CoreEnv
	CoreShell
	Plume

	numMembershipTypes
)

var membershipNames = [numMembershipTypes]string{
	Condensed:      "condensed",
	CondensedEdge:  "condensed_edge",
	CondensedEnv:   "condensed_env",
	CondensedShell: "condensed_shell",
	Core:           "core",
	CoreEdge:       "core_edge",
	CoreEnv:        "core_env",
	CoreShell:      "core_shell",
	Plume:          "plume",
}

func (t MembershipType) String() string {
	if t < numMembershipTypes {
		return membershipNames[t]
	}
	return fmt.Sprintf("MembershipType(%d)", uint8(t))
}

// Valid returns true if t is one of the nine stored membership types.
func (t MembershipType) Valid() bool {
	return t < numMembershipTypes
}

// MembershipTypeFromCode converts a stored table code into a MembershipType.
func MembershipTypeFromCode(code int64) (MembershipType, error) {
	if code < 0 || code >= int64(numMembershipTypes) {
		return 0, fmt.Errorf("type code %d: %w", code, ErrUnknownType)
	}
	return MembershipType(code), nil
}

// MembershipTypes returns all stored membership types in code order.
func MembershipTypes() []MembershipType {
	types := make([]MembershipType, numMembershipTypes)
	for i := range types {
		types[i] = MembershipType(i)
	}
	return types
}

// SelectorKind distinguishes a request for one stored type from the two
// synthetic selectors.
type SelectorKind uint8

const (
	SelectType SelectorKind = iota
	SelectFull
	SelectBase
)

// Selector is a parsed request for a subset of a cloud's voxels.  Full
// selects every voxel of the field; Base selects the lowest layer of the
// condensed voxels.  Neither Full nor Base is ever stored in a table.
type Selector struct {
	Kind SelectorKind
	Type MembershipType // only meaningful for SelectType
}

var (
	FullSelector = Selector{Kind: SelectFull}
	BaseSelector = Selector{Kind: SelectBase}
)

// TypeSelector returns a selector for a single stored type.
func TypeSelector(t MembershipType) Selector {
	return Selector{Kind: SelectType, Type: t}
}

// ParseSelector converts a name like "core", "condensed_shell", "full" or
// "base" into a Selector.  Unknown names return ErrUnknownType.
func ParseSelector(s string) (Selector, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "full":
		return FullSelector, nil
	case "base":
		return BaseSelector, nil
	}
	for i, typeName := range membershipNames {
		if name == typeName {
			return TypeSelector(MembershipType(i)), nil
		}
	}
	return Selector{}, fmt.Errorf("selector %q: %w", s, ErrUnknownType)
}

// SubsetType returns the stored type whose voxels make up the selector's
// subset.  Full and Base both use the condensed voxels.
func (s Selector) SubsetType() MembershipType {
	if s.Kind == SelectType {
		return s.Type
	}
	return Condensed
}

func (s Selector) String() string {
	switch s.Kind {
	case SelectFull:
		return "full"
	case SelectBase:
		return "base"
	default:
		return s.Type.String()
	}
}

// MarshalText and UnmarshalText let selectors be used directly in TOML/JSON configs.
func (s Selector) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Selector) UnmarshalText(text []byte) error {
	parsed, err := ParseSelector(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
