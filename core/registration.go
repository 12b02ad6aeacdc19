package core

import (
	"fmt"
	"strings"
	"time"
)

// ProfessionalType is the healthcare role being registered.
type ProfessionalType string

const (
	ProfessionalDoctor     ProfessionalType = "doctor"
	ProfessionalNurse      ProfessionalType = "nurse"
	ProfessionalPharmacist ProfessionalType = "pharmacist"
	ProfessionalLabTech    ProfessionalType = "lab_technician"
)

// FacilityType defaults to hospital when the registrant leaves it blank.
type FacilityType string

const (
	FacilityHospital FacilityType = "hospital"
	FacilityClinic   FacilityType = "clinic"
	FacilityPharmacy FacilityType = "pharmacy"
	FacilityLab      FacilityType = "laboratory"
)

// RegistrationDraft is the transient state of the professional registration
// wizard. It is mutated across wizard steps and submitted once.
type RegistrationDraft struct {
	DSSN             string           `json:"dssn"`
	ProfessionalType ProfessionalType `json:"professionalType"`
	Specialization   string           `json:"specialization,omitempty"`
	LicenseNumber    string           `json:"licenseNumber"`
	LicenseExpiry    string           `json:"licenseExpiry"` // YYYY-MM-DD
	FacilityName     string           `json:"facilityName,omitempty"`
	FacilityType     FacilityType     `json:"facilityType"`
	Department       string           `json:"department,omitempty"`
}

// ValidateIdentity checks the step-one fields: DSSN shape, professional
// type and license. License expiry is compared at day granularity; a
// license expiring today is still acceptable.
func (d *RegistrationDraft) ValidateIdentity(now time.Time) error {
	if strings.TrimSpace(d.DSSN) == "" {
		return fmt.Errorf("%w: DSSN is required", ErrInvalidDraft)
	}
	if _, err := ParseDSSN(strings.TrimSpace(d.DSSN)); err != nil {
		return err
	}
	if d.ProfessionalType == "" {
		return fmt.Errorf("%w: professional type is required", ErrInvalidDraft)
	}
	if strings.TrimSpace(d.LicenseNumber) == "" {
		return fmt.Errorf("%w: license number is required", ErrInvalidDraft)
	}
	if d.LicenseExpiry == "" {
		return fmt.Errorf("%w: license expiry date is required", ErrInvalidDraft)
	}
	expiry, err := time.Parse("2006-01-02", d.LicenseExpiry)
	if err != nil {
		return fmt.Errorf("%w: license expiry must be YYYY-MM-DD", ErrInvalidDraft)
	}
	// Both sides at UTC midnight so the comparison stays day-granular in
	// every local timezone.
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if expiry.Before(today) {
		return fmt.Errorf("%w: license cannot be expired", ErrLicenseExpired)
	}
	return nil
}

// ValidateFacility checks the step-two fields. Facility name is optional;
// an unset facility type falls back to hospital.
func (d *RegistrationDraft) ValidateFacility() error {
	if d.FacilityType == "" {
		d.FacilityType = FacilityHospital
	}
	switch d.FacilityType {
	case FacilityHospital, FacilityClinic, FacilityPharmacy, FacilityLab:
		return nil
	default:
		return fmt.Errorf("%w: unknown facility type %q", ErrInvalidDraft, d.FacilityType)
	}
}

// Normalize trims free-text fields before submission.
func (d *RegistrationDraft) Normalize() {
	d.DSSN = strings.TrimSpace(d.DSSN)
	d.LicenseNumber = strings.TrimSpace(d.LicenseNumber)
	d.FacilityName = strings.TrimSpace(d.FacilityName)
	d.Department = strings.TrimSpace(d.Department)
	d.Specialization = strings.TrimSpace(d.Specialization)
}
