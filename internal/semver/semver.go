// Package semver parses semantic versions and matches them against
// npm-style range expressions (^, ~, >=, >, <=, <, exact).
package semver

import (
	"errors"
	"fmt"

	mmsemver "github.com/Masterminds/semver/v3"
)

var (
	ErrInvalidVersion = errors.New("invalid version format")
	ErrInvalidRange   = errors.New("invalid version range")
)

// Version is a parsed MAJOR.MINOR.PATCH[-prerelease][+build] version.
type Version struct {
	v *mmsemver.Version
}

// Parse parses a version string. All three numeric parts are required.
func Parse(raw string) (*Version, error) {
	v, err := mmsemver.StrictNewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, raw)
	}
	return &Version{v: v}, nil
}

// IsValid reports whether raw parses as a strict semantic version.
func IsValid(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

func (v *Version) Major() uint64      { return v.v.Major() }
func (v *Version) Minor() uint64      { return v.v.Minor() }
func (v *Version) Patch() uint64      { return v.v.Patch() }
func (v *Version) Prerelease() string { return v.v.Prerelease() }
func (v *Version) Build() string      { return v.v.Metadata() }

// String renders the version in canonical form, retaining prerelease
// and build metadata.
func (v *Version) String() string { return v.v.String() }

// Compare returns -1, 0 or 1. Prerelease versions order before the
// corresponding release; build metadata is ignored.
func Compare(a, b *Version) int { return a.v.Compare(b.v) }

// Range is a parsed version constraint.
type Range struct {
	c   *mmsemver.Constraints
	raw string
}

// ParseRange parses a constraint such as "^1.2.0", "~0.3.1" or ">=2.0.0".
func ParseRange(raw string) (*Range, error) {
	c, err := mmsemver.NewConstraint(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, raw)
	}
	return &Range{c: c, raw: raw}, nil
}

func (r *Range) String() string { return r.raw }

// Matches reports whether v satisfies the range.
func (r *Range) Matches(v *Version) bool { return r.c.Check(v.v) }

// Satisfies parses both arguments and checks range membership in one call.
func Satisfies(version, rng string) (bool, error) {
	v, err := Parse(version)
	if err != nil {
		return false, err
	}
	r, err := ParseRange(rng)
	if err != nil {
		return false, err
	}
	return r.Matches(v), nil
}
