package compositor

import (
	"strings"

	errs "github.com/matzehuels/imgstack/pkg/errors"
)

// Policy selects the common width every image is scaled to.
type Policy int

const (
	// FitToNarrowest scales every image to the smallest intrinsic width.
	FitToNarrowest Policy = iota
	// FitToWidest scales every image to the largest intrinsic width.
	FitToWidest
)

// Policies lists the valid policies.
var Policies = []Policy{FitToNarrowest, FitToWidest}

func (p Policy) String() string {
	switch p {
	case FitToNarrowest:
		return "narrowest"
	case FitToWidest:
		return "widest"
	}
	return "unknown"
}

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == FitToNarrowest || p == FitToWidest
}

// Toggle returns the other policy.
func (p Policy) Toggle() Policy {
	if p == FitToWidest {
		return FitToNarrowest
	}
	return FitToWidest
}

// ParsePolicy accepts "narrowest" or "widest", case-insensitively. An empty
// string yields the default, FitToNarrowest.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "narrowest", "narrow", "min":
		return FitToNarrowest, nil
	case "widest", "wide", "max":
		return FitToWidest, nil
	}
	return 0, errs.New(errs.ErrCodeInvalidPolicy, "unknown scaling policy %q (want narrowest or widest)", s)
}

func (p Policy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, errs.New(errs.ErrCodeInvalidPolicy, "unknown scaling policy %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
