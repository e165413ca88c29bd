package workflow

import "fmt"

// Type is the variant tag of a deployment workflow.
type Type string

const (
	TypeStandard  Type = "standard"
	TypeEmergency Type = "emergency"
	TypeTraining  Type = "training"
)

// Types returns every supported tag in display order.
func Types() []Type {
	return []Type{TypeStandard, TypeEmergency, TypeTraining}
}

// ParseType validates a tag.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeStandard, TypeEmergency, TypeTraining:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, s)
	}
}

// Params are the construction inputs shared by every variant.
type Params struct {
	Name           string
	Commander      string
	TargetLocation string
	Units          []string
	Equipments     []string
	Description    string
	Attributes     Attributes

	// Emergency only. Empty means keep an existing attribute, else default.
	EmergencyLevel string
	ResponseTime   string
}

// New builds a fresh instance of the variant named by t. Unknown tags fail
// with ErrUnsupportedType and no instance.
func New(t Type, p Params) (*Instance, error) {
	switch t {
	case TypeStandard:
		return NewInstance(p, Standard{}), nil
	case TypeEmergency:
		in := NewInstance(p, Emergency{})
		applyEmergencyAttributes(in, p)
		return in, nil
	case TypeTraining:
		return NewInstance(p, Training{}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}
}
