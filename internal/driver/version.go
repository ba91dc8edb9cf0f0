package driver

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Version is a driver version as written in its descriptor.
//
// Versions are totally ordered: a leading "v" is dropped and the remainder is
// split on "."; segments compare pairwise, numerically when both are digits and
// byte-wise otherwise, with numeric segments sorting before non-numeric ones.
// Missing segments count as 0, so "1" and "1.0" are equal.
type Version string

// UnmarshalYAML accepts any scalar, so `version: 2` and `version: "2"` read the same.
func (v *Version) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return &yaml.TypeError{Errors: []string{"version must be a scalar"}}
	}
	*v = Version(strings.TrimSpace(node.Value))
	return nil
}

// Compare returns -1, 0 or +1.
func (v Version) Compare(other Version) int {
	return CompareVersions(string(v), string(other))
}

// Less reports whether v orders strictly before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// CompareVersions compares two version strings using the Version order.
func CompareVersions(a, b string) int {
	as, bs := segments(a), segments(b)
	n := max(len(as), len(bs))
	for i := range n {
		if c := compareSegment(at(as, i), at(bs, i)); c != 0 {
			return c
		}
	}
	return 0
}

func segments(v string) []string {
	v = strings.TrimSpace(v)
	if v != "" && (v[0] == 'v' || v[0] == 'V') {
		v = v[1:]
	}
	if v == "" {
		return nil
	}
	return strings.Split(v, ".")
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return "0"
}

func compareSegment(a, b string) int {
	an, aErr := strconv.ParseUint(a, 10, 64)
	bn, bErr := strconv.ParseUint(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return strings.Compare(a, b)
}
