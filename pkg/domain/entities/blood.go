package entities

import (
	"encoding/json"
	"fmt"
)

// BloodType represents one of the eight standard ABO/Rh combinations
type BloodType int

const (
	APositive BloodType = iota + 1
	ANegative
	BPositive
	BNegative
	ABPositive
	ABNegative
	OPositive
	ONegative
)

// AllBloodTypes lists every valid blood type in display order
var AllBloodTypes = []BloodType{
	APositive, ANegative,
	BPositive, BNegative,
	ABPositive, ABNegative,
	OPositive, ONegative,
}

// String method for BloodType enum
func (b BloodType) String() string {
	switch b {
	case APositive:
		return "A+"
	case ANegative:
		return "A-"
	case BPositive:
		return "B+"
	case BNegative:
		return "B-"
	case ABPositive:
		return "AB+"
	case ABNegative:
		return "AB-"
	case OPositive:
		return "O+"
	case ONegative:
		return "O-"
	default:
		return "Unknown"
	}
}

// Valid reports whether the blood type is one of the eight known values
func (b BloodType) Valid() bool {
	return b >= APositive && b <= ONegative
}

// ParseBloodType parses a wire-format blood type string such as "A+" or "AB-"
func ParseBloodType(s string) (BloodType, error) {
	for _, bt := range AllBloodTypes {
		if bt.String() == s {
			return bt, nil
		}
	}
	return 0, fmt.Errorf("unknown blood type: %q", s)
}

// MarshalJSON encodes the blood type as its wire string
func (b BloodType) MarshalJSON() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid blood type %d", int(b))
	}
	return json.Marshal(b.String())
}

// UnmarshalJSON decodes a blood type from its wire string
func (b *BloodType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	bt, err := ParseBloodType(s)
	if err != nil {
		return err
	}
	*b = bt
	return nil
}

// ComponentType represents a category of blood product derived from a donation
type ComponentType int

const (
	WholeBlood ComponentType = iota + 1
	RedBloodCells
	Plasma
	Platelets
)

// AllComponentTypes lists every valid component type
var AllComponentTypes = []ComponentType{
	WholeBlood, RedBloodCells, Plasma, Platelets,
}

// String method for ComponentType enum
func (c ComponentType) String() string {
	switch c {
	case WholeBlood:
		return "WHOLE_BLOOD"
	case RedBloodCells:
		return "RED_BLOOD_CELLS"
	case Plasma:
		return "PLASMA"
	case Platelets:
		return "PLATELETS"
	default:
		return "Unknown"
	}
}

// Valid reports whether the component type is a known value
func (c ComponentType) Valid() bool {
	return c >= WholeBlood && c <= Platelets
}

// ParseComponentType parses a wire-format component type string such as "PLASMA"
func ParseComponentType(s string) (ComponentType, error) {
	for _, ct := range AllComponentTypes {
		if ct.String() == s {
			return ct, nil
		}
	}
	return 0, fmt.Errorf("unknown component type: %q", s)
}

// MarshalJSON encodes the component type as its wire string
func (c ComponentType) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid component type %d", int(c))
	}
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a component type from its wire string
func (c *ComponentType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ct, err := ParseComponentType(s)
	if err != nil {
		return err
	}
	*c = ct
	return nil
}
