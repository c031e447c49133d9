package authz

import (
	"fmt"
	"strings"
)

// Decision is the outcome of an authorization check
type Decision struct {
	Granted PermissionSet
	Missing []string
}

// Allowed reports whether nothing was missing
func (d Decision) Allowed() bool {
	return len(d.Missing) == 0
}

// Err returns nil when allowed, otherwise a *DeniedError listing the missing codes
func (d Decision) Err() error {
	if d.Allowed() {
		return nil
	}
	return &DeniedError{Missing: d.Missing}
}

// DeniedError carries the codes the principal lacks
type DeniedError struct {
	Missing []string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrPermissionDenied, strings.Join(e.Missing, ", "))
}

func (e *DeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// Authorize computes missing = required - granted, in ascending order
func Authorize(granted PermissionSet, req Requirement) Decision {
	if granted == nil {
		granted = NewPermissionSet()
	}
	var missing []string
	for _, code := range req.codes {
		if !granted.Satisfies(code) {
			missing = append(missing, code)
		}
	}
	return Decision{Granted: granted, Missing: missing}
}
