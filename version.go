package rscript

import (
	"fmt"
	"strings"

	"github.com/blang/semver/v4"
)

// Version is a semantic version triple. Pre-release and build metadata
// are accepted but only interpreted for semver ordering, never for
// routing decisions.
type Version struct {
	inner semver.Version
}

// ParseVersion parses a semver string such as "0.1.0" into a Version.
func ParseVersion(s string) (Version, error) {
	v, err := semver.Parse(s)
	if err != nil {
		return Version{}, fmt.Errorf("rscript: invalid version %q: %w", s, err)
	}
	return Version{inner: v}, nil
}

// MustParseVersion is like ParseVersion but panics on error. Intended
// for host code stamping in a version known at compile time.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version in standard semver form, e.g. "0.1.0".
func (v Version) String() string {
	return v.inner.String()
}

// MarshalCBOR implements cbor.Marshaler by encoding the version as its
// string form, keeping the wire format independent of semver's own
// internal struct layout.
func (v Version) MarshalCBOR() ([]byte, error) {
	return Encode(v.inner.String())
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (v *Version) UnmarshalCBOR(data []byte) error {
	var s string
	if err := Decode(data, &s); err != nil {
		return err
	}
	parsed, err := semver.Parse(s)
	if err != nil {
		return fmt.Errorf("rscript: invalid version on wire %q: %w", s, err)
	}
	v.inner = parsed
	return nil
}

// VersionReq is an intersection of semver comparators, e.g.
// ">=0.1.0, <0.2.0".
type VersionReq struct {
	raw   string
	inner semver.Range
}

// ParseVersionReq parses a comparator-intersection expression.
// Comparators may be separated by spaces or commas.
func ParseVersionReq(s string) (VersionReq, error) {
	r, err := semver.ParseRange(strings.ReplaceAll(s, ",", " "))
	if err != nil {
		return VersionReq{}, fmt.Errorf("rscript: invalid version requirement %q: %w", s, err)
	}
	return VersionReq{raw: s, inner: r}, nil
}

// MustParseVersionReq is like ParseVersionReq but panics on error.
func MustParseVersionReq(s string) VersionReq {
	r, err := ParseVersionReq(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Matches reports whether version satisfies this requirement.
func (r VersionReq) Matches(version Version) bool {
	if r.inner == nil {
		return false
	}
	return r.inner(version.inner)
}

// String renders the original requirement expression.
func (r VersionReq) String() string {
	return r.raw
}

// MarshalCBOR implements cbor.Marshaler.
func (r VersionReq) MarshalCBOR() ([]byte, error) {
	return Encode(r.raw)
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (r *VersionReq) UnmarshalCBOR(data []byte) error {
	var s string
	if err := Decode(data, &s); err != nil {
		return err
	}
	parsed, err := ParseVersionReq(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
