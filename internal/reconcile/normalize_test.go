package reconcile

import (
	"testing"

	"govdoc/pkg/domain"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCounty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"county code", "CJ", "Cluj"},
		{"lowercase code", "cj", "Cluj"},
		{"code with dot", "CJ.", "Cluj"},
		{"capital single letter", "B", "București"},
		{"capital spelled without diacritics", "BUCURESTI", "București"},
		{"already canonical", "Cluj", "Cluj"},
		{"canonical with diacritics", "Argeș", "Argeș"},
		{"unresolvable", "XX", ""},
		{"empty", "  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCounty(tt.raw))
		})
	}
}

func TestNormalizeCity_SectorComposition(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Sector 3", "București, Sector 3"},
		{"sect. 3", "București, Sector 3"},
		{"sectorul 1", "București, Sector 1"},
		{"S3", "București, Sector 3"},
		{"3", "București, Sector 3"},
		{"Bucuresti", "București"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCity(tt.raw, "București"), "raw=%q", tt.raw)
	}
}

func TestNormalizeCity_SectorOutsideCapitalIsNotComposed(t *testing.T) {
	assert.Equal(t, "Sector 3", NormalizeCity("Sector 3", "Cluj"))
}

func TestNormalizeCity_StripsRuralPrefixes(t *testing.T) {
	assert.Equal(t, "Floresti", NormalizeCity("Comuna Floresti", "Cluj"))
	assert.Equal(t, "Apahida", NormalizeCity("sat Apahida", "Cluj"))
	assert.Equal(t, "Cluj-Napoca", NormalizeCity("Municipiul Cluj-Napoca", "Cluj"))
}

func TestNormalizeCity_InvalidSectorPassesThrough(t *testing.T) {
	assert.Equal(t, "Sector 9", NormalizeCity("Sector 9", "București"))
}

func TestNormalizeStreet_ExpandsQualifiers(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"str Unirii", "Strada Unirii"},
		{"str. Unirii", "Strada Unirii"},
		{"bd. Eroilor", "Bulevardul Eroilor"},
		{"sos Pipera", "Șoseaua Pipera"},
		{"Strada Unirii", "Strada Unirii"},
		{"Unirii", "Unirii"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeStreet(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNormalizeAddress_Idempotent(t *testing.T) {
	raw := domain.Address{
		County: "cj",
		City:   "comuna Floresti",
		Street: "str Eroilor",
		Number: "10",
	}

	once := NormalizeAddress(raw)
	twice := NormalizeAddress(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, "Cluj", once.County)
	assert.Equal(t, "Floresti", once.City)
	assert.Equal(t, "Strada Eroilor", once.Street)
}

func TestNormalizeAddress_SectorIdempotent(t *testing.T) {
	raw := domain.Address{County: "B", City: "sect. 3", Street: "bd Unirii"}

	once := NormalizeAddress(raw)
	twice := NormalizeAddress(once)

	assert.Equal(t, "București, Sector 3", once.City)
	assert.Equal(t, once, twice)
}

func TestNormalizeAddress_OtherFieldsUntouched(t *testing.T) {
	raw := domain.Address{
		Street:    "str Unirii",
		Number:    "10A",
		Building:  "C2",
		Apartment: "14",
	}

	out := NormalizeAddress(raw)

	assert.Equal(t, "10A", out.Number)
	assert.Equal(t, "C2", out.Building)
	assert.Equal(t, "14", out.Apartment)
}

func TestNormalizeAddress_UnresolvedCountyDiscarded(t *testing.T) {
	out := NormalizeAddress(domain.Address{County: "Jud. Necunoscut", Street: "Strada Unirii"})
	assert.Equal(t, "", out.County)
}
