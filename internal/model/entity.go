package model

import "fmt"

// EntityTier records how a manufacturer identity was established.
type EntityTier int

const (
	EntityDeterministic EntityTier = iota
	EntityExternalVerified
)

func (t EntityTier) String() string {
	if t == EntityExternalVerified {
		return "external_verified"
	}
	return "deterministic"
}

// MarshalText renders the tier by name in JSON output.
func (t EntityTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *EntityTier) UnmarshalText(b []byte) error {
	switch string(b) {
	case "deterministic":
		*t = EntityDeterministic
	case "external_verified":
		*t = EntityExternalVerified
	default:
		return fmt.Errorf("unknown entity tier %q", b)
	}
	return nil
}

// EntityIdentity is a canonical manufacturer with every raw spelling mapped to it.
type EntityIdentity struct {
	CanonicalName string     `json:"canonical_name"`
	Key           string     `json:"key"`
	Aliases       []string   `json:"aliases"`
	Tier          EntityTier `json:"tier"`
}
