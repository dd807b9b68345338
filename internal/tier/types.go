package tier

import (
	"fmt"
	"strings"
)

// Tier is a subscription level. Tiers are totally ordered: a higher value grants more.
type Tier int

const (
	Free Tier = iota
	Basic
	Standard
	Pro
	Enterprise
)

var names = [...]string{
	Free:       "FREE",
	Basic:      "BASIC",
	Standard:   "STANDARD",
	Pro:        "PRO",
	Enterprise: "ENTERPRISE",
}

// All returns every tier in ascending order.
func All() []Tier {
	return []Tier{Free, Basic, Standard, Pro, Enterprise}
}

func (t Tier) String() string {
	if t < Free || t > Enterprise {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return names[t]
}

// AtLeast reports whether t grants access to resources requiring minimum.
func (t Tier) AtLeast(minimum Tier) bool {
	return t >= minimum
}

// Parse converts a tier name, case-insensitively.
func Parse(s string) (Tier, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range names {
		if n == name {
			return Tier(i), nil
		}
	}
	return Free, &UnknownTierError{Name: s}
}

func (t Tier) MarshalText() ([]byte, error) {
	if t < Free || t > Enterprise {
		return nil, &UnknownTierError{Name: t.String()}
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UnknownTierError indicates a tier name outside the known set.
type UnknownTierError struct {
	Name string
}

func (e *UnknownTierError) Error() string {
	return fmt.Sprintf("unknown subscription tier %q", e.Name)
}

// ForbiddenError indicates the caller's tier is below the required minimum.
type ForbiddenError struct {
	Required Tier
	Actual   Tier
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("Forbidden: You need a %s tier or higher subscription to access this resource", e.Required)
}

// Lookup is the result of resolving a caller's tier.
type Lookup struct {
	Tier Tier
	// Defaulted is set when the subscription service could not be used and FREE was assumed.
	Defaulted bool
	// Cached is set when the result was served from the cache without a fetch.
	Cached bool
}
