// Package attribute models user profile attributes and the editor control
// each one is edited with.
package attribute

// Well-known attribute keys.
const (
	KeyBirthdate        = "birthdate"
	KeyDisplayName      = "custom:display_name"
	KeyFavoriteNumber   = "custom:favorite_number"
	KeyIsBetaUser       = "custom:is_beta_user"
	KeyStartedFreeTrial = "custom:started_free_trial"
)

// Attribute is a string-encoded profile field.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Kind identifies the editor control used for an attribute.
type Kind int

const (
	KindText Kind = iota
	KindDate
	KindDateTime
	KindStepper
	KindToggle
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindStepper:
		return "stepper"
	case KindToggle:
		return "toggle"
	default:
		return "text"
	}
}

// Label is the human facing caption of the control for key.
func Label(key string) string {
	switch key {
	case KeyBirthdate:
		return "Birthdate"
	case KeyDisplayName:
		return "Display Name"
	case KeyFavoriteNumber:
		return "Favorite Number"
	case KeyIsBetaUser:
		return "Is Beta User"
	case KeyStartedFreeTrial:
		return "Free Trial Start"
	default:
		return "New Value"
	}
}

// ResolveEditor maps a key to its editor kind. Matching is exact and
// case-sensitive; unknown keys get a free text field.
func ResolveEditor(key string) Kind {
	switch key {
	case KeyBirthdate:
		return KindDate
	case KeyDisplayName:
		return KindText
	case KeyFavoriteNumber:
		return KindStepper
	case KeyIsBetaUser:
		return KindToggle
	case KeyStartedFreeTrial:
		return KindDateTime
	default:
		return KindText
	}
}

// WellKnownKeys lists the keys with a dedicated editor, in display order.
func WellKnownKeys() []string {
	return []string{
		KeyBirthdate,
		KeyDisplayName,
		KeyFavoriteNumber,
		KeyIsBetaUser,
		KeyStartedFreeTrial,
	}
}
