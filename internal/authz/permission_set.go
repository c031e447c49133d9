package authz

import (
	"sort"
	"strings"
)

// codeSeparator splits a permission code into resource and action ("user:create")
const codeSeparator = ":"

// PermissionSet is an immutable-by-convention set of permission codes
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from codes, ignoring blanks
func NewPermissionSet(codes ...string) PermissionSet {
	set := make(PermissionSet, len(codes))
	for _, code := range codes {
		if code = normalize(code); code != "" {
			set[code] = struct{}{}
		}
	}
	return set
}

// Satisfies reports whether the set grants code, either exactly or through a whole-module
// grant of its resource ("user" grants "user:create").
func (s PermissionSet) Satisfies(code string) bool {
	code = normalize(code)
	if _, ok := s[code]; ok {
		return true
	}
	if resource, _, found := strings.Cut(code, codeSeparator); found {
		_, ok := s[resource]
		return ok
	}
	return false
}

// Contains reports exact membership
func (s PermissionSet) Contains(code string) bool {
	_, ok := s[normalize(code)]
	return ok
}

// Codes returns the codes in ascending order
func (s PermissionSet) Codes() []string {
	codes := make([]string, 0, len(s))
	for code := range s {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Len returns the number of codes
func (s PermissionSet) Len() int {
	return len(s)
}

// Requirement is the set of codes an endpoint declares. The zero value requires nothing.
type Requirement struct {
	codes []string
}

// Require builds a Requirement from codes, deduplicated and sorted
func Require(codes ...string) Requirement {
	return Requirement{codes: NewPermissionSet(codes...).Codes()}
}

// Codes returns a copy of the required codes
func (r Requirement) Codes() []string {
	out := make([]string, len(r.codes))
	copy(out, r.codes)
	return out
}

// IsEmpty reports whether nothing beyond authentication is required
func (r Requirement) IsEmpty() bool {
	return len(r.codes) == 0
}

func (r Requirement) String() string {
	return strings.Join(r.codes, ",")
}

func normalize(code string) string {
	return strings.TrimSpace(code)
}
