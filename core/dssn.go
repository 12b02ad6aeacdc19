package core

import (
	"fmt"
	"regexp"
)

// DSSN is a Digital Social Security Number, the identity token used
// across all portal flows. It is opaque to the client beyond its shape.
type DSSN string

// dssnPattern is the shape the backend enforces: 15 to 20 alphanumeric
// characters, no separators.
var dssnPattern = regexp.MustCompile(`^[A-Za-z0-9]{15,20}$`)

// ParseDSSN validates the raw input against the DSSN shape. Malformed
// input fails locally with ErrInvalidDSSN and must never reach the wire.
func ParseDSSN(raw string) (DSSN, error) {
	if !dssnPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: must be 15-20 alphanumeric characters", ErrInvalidDSSN)
	}
	return DSSN(raw), nil
}

// String returns the raw DSSN value.
func (d DSSN) String() string {
	return string(d)
}

// Scope identifies which portal module an authentication targets.
type Scope string

const (
	// ScopePatientRecords grants access to the patient records module
	ScopePatientRecords Scope = "patient_records"

	// ScopePharmacyManagement grants access to the pharmacy management module
	ScopePharmacyManagement Scope = "pharmacy_management"
)

// ParseScope normalizes a scope string, accepting both the canonical
// underscore form and the hyphenated aliases used by older revisions of
// the portal front-end.
func ParseScope(raw string) (Scope, error) {
	switch raw {
	case "patient_records", "patient-records", "patient":
		return ScopePatientRecords, nil
	case "pharmacy_management", "pharmacy-management", "pharmacy":
		return ScopePharmacyManagement, nil
	default:
		return "", fmt.Errorf("%w: unknown scope %q", ErrInvalidScope, raw)
	}
}

// PathSegment returns the short form used in endpoint paths, e.g.
// /verify-dssn/patient and /login/pharmacy.
func (s Scope) PathSegment() string {
	if s == ScopePharmacyManagement {
		return "pharmacy"
	}
	return "patient"
}

// String returns the canonical wire form of the scope.
func (s Scope) String() string {
	return string(s)
}
