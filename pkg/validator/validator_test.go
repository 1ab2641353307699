package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlausibleNationalID(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"valid cnp", "1800101221144", true},
		{"valid with surrounding spaces", " 1800101221144 ", true},
		{"wrong control digit", "1800101221145", false},
		{"too short", "180010122114", false},
		{"too long", "18001012211441", false},
		{"leading zero prefix", "0800101221144", false},
		{"non-digit characters", "18001O1221144", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlausibleNationalID(tt.value))
		})
	}
}

func TestPlausibleTaxID(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"bare digits", "1234567", true},
		{"with country prefix", "RO1234567", true},
		{"lowercase prefix accepted", "ro1234567", true},
		{"minimum length", "12", true},
		{"too short", "1", false},
		{"too long", "12345678901", false},
		{"letters inside", "RO12A4567", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlausibleTaxID(tt.value))
		})
	}
}

func TestValidate_CustomTags(t *testing.T) {
	v := New()

	type payload struct {
		NationalID string `validate:"required,cnp"`
		TaxID      string `validate:"required,cui"`
	}

	assert.NoError(t, v.Validate(payload{NationalID: "1800101221144", TaxID: "RO1234567"}))
	assert.Error(t, v.Validate(payload{NationalID: "12345", TaxID: "RO1234567"}))
	assert.Error(t, v.Validate(payload{NationalID: "1800101221144", TaxID: "not-a-cui"}))
}

func TestValidateStructured_FriendlyMessages(t *testing.T) {
	v := New()

	type payload struct {
		Email      string `validate:"required,email"`
		NationalID string `validate:"required,cnp"`
	}

	errs := v.ValidateStructured(payload{Email: "not-an-email", NationalID: "12345"})

	assert.Equal(t, "Invalid email address", errs["Email"])
	assert.Equal(t, "Invalid national identification number", errs["NationalID"])
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Ion &amp; Maria", Sanitize("  Ion & Maria  "))
	assert.Equal(t, "&lt;script&gt;", Sanitize("<script>"))
}
