package whop

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx vendor response (or an unparseable 2xx body). The
// vendor's error text is preserved so it can be surfaced to the caller.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("whop %s: status=%d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("whop %s: %s", e.Op, e.Message)
}

// AsAPIError unwraps err into an *APIError when it is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Vendor error substrings that mean the membership is already in a terminal
// state. The wording is the vendor's; if it changes these misclassify, which is
// a known fragility of the upstream contract.
var alreadyTerminatedMarkers = []string{
	"already terminated",
	"already been terminated",
	"not found",
	"not active",
	"canceled",
	"cancelled",
}

// IsAlreadyTerminated reports whether a termination failure means the
// membership was already dead, which the upgrade protocol treats as success so
// termination stays safe to retry.
func IsAlreadyTerminated(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	for _, marker := range alreadyTerminatedMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
