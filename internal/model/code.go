package model

import (
	"fmt"
	"strings"
)

// Tier is the resolution stage at which a raw code was mapped.
type Tier int

const (
	TierUnresolved Tier = iota
	TierExact
	TierHeuristic
	TierExternalFallback
)

var tierNames = [...]string{"unresolved", "exact", "heuristic", "external_fallback"}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// MarshalText renders the tier by name in JSON output.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	for i, name := range tierNames {
		if name == string(b) {
			*t = Tier(i)
			return nil
		}
	}
	return fmt.Errorf("unknown tier %q", b)
}

// ResolvedCode is the classification outcome for one distinct raw code.
// Unresolved levels are empty strings.
type ResolvedCode struct {
	Raw        string  `json:"raw"`
	Level1     string  `json:"level1,omitempty"`
	Level2     string  `json:"level2,omitempty"`
	Level3     string  `json:"level3,omitempty"`
	Term       string  `json:"term,omitempty"` // term of the deepest resolved level
	Prefix     string  `json:"prefix,omitempty"`
	Tier       Tier    `json:"tier"`
	Confidence float64 `json:"confidence,omitempty"` // only set for TierExternalFallback
}

// Resolved reports whether any tier succeeded.
func (c ResolvedCode) Resolved() bool {
	return c.Tier != TierUnresolved
}

// Deepest returns the most specific resolved code, or "" when unresolved.
func (c ResolvedCode) Deepest() string {
	switch {
	case c.Level3 != "":
		return c.Level3
	case c.Level2 != "":
		return c.Level2
	default:
		return c.Level1
	}
}

// Node is one entry of the classification hierarchy.
type Node struct {
	Code     string
	Term     string
	Level    int // 1, 2 or 3
	Children []*Node
}

// Path returns the Level-1/2/3 codes implied by a hierarchical code.
func Path(code string) (l1, l2, l3 string) {
	code = strings.TrimSpace(code)
	switch len(code) {
	case 7:
		return code[:3], code[:5], code
	case 5:
		return code[:3], code, ""
	case 3:
		return code, "", ""
	}
	return "", "", ""
}
