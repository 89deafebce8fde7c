package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitStatus represents the lifecycle status of a stock unit
type UnitStatus int

const (
	Available UnitStatus = iota
	Reserved
	Used
	Discarded
)

// String method for UnitStatus enum
func (s UnitStatus) String() string {
	switch s {
	case Available:
		return "Available"
	case Reserved:
		return "Reserved"
	case Used:
		return "Used"
	case Discarded:
		return "Discarded"
	default:
		return "Unknown"
	}
}

// ParseUnitStatus parses a unit status string such as "Available"
func ParseUnitStatus(s string) (UnitStatus, error) {
	switch s {
	case "Available":
		return Available, nil
	case "Reserved":
		return Reserved, nil
	case "Used":
		return Used, nil
	case "Discarded":
		return Discarded, nil
	default:
		return 0, fmt.Errorf("unknown unit status: %q", s)
	}
}

// MarshalJSON encodes the unit status as its display string
func (s UnitStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a unit status from its display string
func (s *UnitStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	us, err := ParseUnitStatus(str)
	if err != nil {
		return err
	}
	*s = us
	return nil
}

// BloodStockUnit represents one inventory record held by the blood bank:
// a specific component type and blood type with a remaining volume in
// milliliters and an expiry date
type BloodStockUnit struct {
	ID            uuid.UUID       `json:"id"`
	ComponentType ComponentType   `json:"component_type"`
	BloodType     BloodType       `json:"blood_type"`
	Volume        decimal.Decimal `json:"volume"`
	ExpiryDate    time.Time       `json:"expiry_date"`
	Status        UnitStatus      `json:"status"`
}

// NewBloodStockUnit creates a validated BloodStockUnit in Available status
func NewBloodStockUnit(componentType ComponentType, bloodType BloodType, volume decimal.Decimal, expiryDate time.Time) (*BloodStockUnit, error) {
	if !componentType.Valid() {
		return nil, fmt.Errorf("component type is required, got %d", int(componentType))
	}
	if !bloodType.Valid() {
		return nil, fmt.Errorf("blood type is required, got %d", int(bloodType))
	}
	if volume.Sign() <= 0 {
		return nil, fmt.Errorf("volume must be positive, got %s", volume)
	}
	if expiryDate.IsZero() {
		return nil, fmt.Errorf("expiry date is required")
	}

	return &BloodStockUnit{
		ID:            uuid.New(),
		ComponentType: componentType,
		BloodType:     bloodType,
		Volume:        volume,
		ExpiryDate:    expiryDate,
		Status:        Available,
	}, nil
}

// Expired reports whether the unit's expiry date is on or before asOf
func (u BloodStockUnit) Expired(asOf time.Time) bool {
	return !u.ExpiryDate.After(asOf)
}

// Matches reports whether the unit serves the given component and blood type
func (u BloodStockUnit) Matches(componentType ComponentType, bloodType BloodType) bool {
	return u.ComponentType == componentType && u.BloodType == bloodType
}
