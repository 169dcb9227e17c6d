package registry

import (
	"context"
	"errors"
)

// LicenseeRecord is one row of the customer registry: the licensee key, the
// vendor membership bound to it, how many seats it currently has, and the
// holder's display name. The registry is read-only from this service.
type LicenseeRecord struct {
	LicenseeID   string `json:"licensee_id"`
	MembershipID string `json:"membership_id"`
	AccountCount int    `json:"account_count"`
	FullName     string `json:"full_name"`
}

var (
	// ErrLicenseeNotFound means the licensee id has no row in the registry.
	ErrLicenseeNotFound = errors.New("licensee id not found in registry")

	// ErrPermissionDenied means the registry refused access to the sheet.
	ErrPermissionDenied = errors.New("registry access denied")
)

// Lookup resolves a licensee identifier to its registry record.
type Lookup interface {
	GetLicensee(ctx context.Context, licenseeID string) (*LicenseeRecord, error)
}
