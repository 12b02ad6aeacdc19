package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDSSN(t *testing.T) {
	t.Run("valid 15 chars", func(t *testing.T) {
		d, err := ParseDSSN("ABC123DEF456GHI")
		require.NoError(t, err)
		assert.Equal(t, "ABC123DEF456GHI", d.String())
	})

	t.Run("valid 20 chars", func(t *testing.T) {
		_, err := ParseDSSN("ABCDEFGHIJ1234567890")
		assert.NoError(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := ParseDSSN("ABC123")
		assert.ErrorIs(t, err, ErrInvalidDSSN)
	})

	t.Run("too long", func(t *testing.T) {
		_, err := ParseDSSN("ABCDEFGHIJ12345678901")
		assert.ErrorIs(t, err, ErrInvalidDSSN)
	})

	t.Run("separators rejected", func(t *testing.T) {
		_, err := ParseDSSN("ABC123-DEF456-GHI")
		assert.ErrorIs(t, err, ErrInvalidDSSN)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseDSSN("")
		assert.ErrorIs(t, err, ErrInvalidDSSN)
	})
}

func TestParseScope(t *testing.T) {
	for _, raw := range []string{"patient_records", "patient-records", "patient"} {
		s, err := ParseScope(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, ScopePatientRecords, s)
	}
	for _, raw := range []string{"pharmacy_management", "pharmacy-management", "pharmacy"} {
		s, err := ParseScope(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, ScopePharmacyManagement, s)
	}

	_, err := ParseScope("billing")
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestScopePathSegment(t *testing.T) {
	assert.Equal(t, "patient", ScopePatientRecords.PathSegment())
	assert.Equal(t, "pharmacy", ScopePharmacyManagement.PathSegment())
}
