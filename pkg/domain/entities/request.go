package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UrgencyLevel represents the triage priority of a blood request
type UrgencyLevel int

const (
	Normal UrgencyLevel = iota + 1
	Urgent
	Critical
)

// String method for UrgencyLevel enum
func (u UrgencyLevel) String() string {
	switch u {
	case Normal:
		return "Normal"
	case Urgent:
		return "Urgent"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// Valid reports whether the urgency level is a known value
func (u UrgencyLevel) Valid() bool {
	return u >= Normal && u <= Critical
}

// ParseUrgencyLevel parses an urgency level string such as "Critical"
func ParseUrgencyLevel(s string) (UrgencyLevel, error) {
	switch s {
	case "Normal":
		return Normal, nil
	case "Urgent":
		return Urgent, nil
	case "Critical":
		return Critical, nil
	default:
		return 0, fmt.Errorf("unknown urgency level: %q", s)
	}
}

// MarshalJSON encodes the urgency level as its display string
func (u UrgencyLevel) MarshalJSON() ([]byte, error) {
	if !u.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid urgency level %d", int(u))
	}
	return json.Marshal(u.String())
}

// UnmarshalJSON decodes an urgency level from its display string
func (u *UrgencyLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ul, err := ParseUrgencyLevel(s)
	if err != nil {
		return err
	}
	*u = ul
	return nil
}

// ComponentRequirement represents one requested component and the volume
// needed, in milliliters
type ComponentRequirement struct {
	ComponentType ComponentType   `json:"component_type"`
	Volume        decimal.Decimal `json:"volume"`
}

// BloodRequest represents a request for one or more blood components of a
// single blood type
type BloodRequest struct {
	ID         uuid.UUID              `json:"id"`
	BloodType  BloodType              `json:"blood_type"`
	Urgency    UrgencyLevel           `json:"urgency"`
	NeededBy   time.Time              `json:"needed_by"`
	Components []ComponentRequirement `json:"components"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewBloodRequest creates a validated BloodRequest. An empty component list
// is allowed; component volumes are validated where present.
func NewBloodRequest(bloodType BloodType, urgency UrgencyLevel, neededBy time.Time, components []ComponentRequirement) (*BloodRequest, error) {
	if !bloodType.Valid() {
		return nil, fmt.Errorf("blood type is required, got %d", int(bloodType))
	}
	if !urgency.Valid() {
		return nil, fmt.Errorf("urgency level is required, got %d", int(urgency))
	}
	for i, c := range components {
		if !c.ComponentType.Valid() {
			return nil, fmt.Errorf("component %d: component type is required", i)
		}
		if c.Volume.Sign() <= 0 {
			return nil, fmt.Errorf("component %d (%s): volume must be positive, got %s",
				i, c.ComponentType, c.Volume)
		}
	}

	return &BloodRequest{
		ID:         uuid.New(),
		BloodType:  bloodType,
		Urgency:    urgency,
		NeededBy:   neededBy,
		Components: components,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
