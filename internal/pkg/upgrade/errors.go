package upgrade

import (
	"errors"
	"fmt"

	"github.com/madaniagency/licensee-checkout/internal/pkg/registry"
	"github.com/madaniagency/licensee-checkout/internal/pkg/whop"
)

// Kind classifies orchestrator failures; the HTTP boundary maps each kind to a
// status code.
type Kind int

const (
	KindConfigurationMissing Kind = iota + 1
	KindValidationFailed
	KindNotFound
	KindUpstreamError
	KindPermissionDenied
)

// Error is the single failure shape the orchestrator surfaces. VendorStatus is
// set when the vendor's own status code should be forwarded to the client.
type Error struct {
	Kind         Kind
	Field        string
	Message      string
	VendorStatus int
	Err          error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError unwraps err into an *Error when it is one.
func AsError(err error) (*Error, bool) {
	var flowErr *Error
	if errors.As(err, &flowErr) {
		return flowErr, true
	}
	return nil, false
}

func errConfigMissing(name string) *Error {
	return &Error{
		Kind:    KindConfigurationMissing,
		Message: "Server configuration error: Missing " + name + ".",
	}
}

func errValidation(field, message string) *Error {
	return &Error{Kind: KindValidationFailed, Field: field, Message: message}
}

func errNotFound(licenseeID string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("Licensee ID %s not found.", licenseeID),
	}
}

// errUpstream wraps a gateway or registry failure. When the underlying error
// carries a parseable vendor status it is preserved for forwarding.
func errUpstream(op string, err error) *Error {
	out := &Error{
		Kind:    KindUpstreamError,
		Message: op + " failed",
		Err:     err,
	}
	if apiErr, ok := whop.AsAPIError(err); ok {
		out.VendorStatus = apiErr.StatusCode
		out.Message = apiErr.Message
	}
	return out
}

// classifyRegistryError translates registry failures into the flow taxonomy.
func classifyRegistryError(licenseeID string, err error) *Error {
	switch {
	case errors.Is(err, registry.ErrLicenseeNotFound):
		return errNotFound(licenseeID)
	case errors.Is(err, registry.ErrPermissionDenied):
		return &Error{Kind: KindPermissionDenied, Message: "Registry access denied.", Err: err}
	default:
		return errUpstream("registry lookup", err)
	}
}
