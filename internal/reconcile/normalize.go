package reconcile

import (
	"fmt"
	"strings"

	"govdoc/pkg/domain"
)

// countyNames maps abbreviated or alternate county codes to the canonical
// county name. Values not present in the table do not resolve and are
// discarded during normalization.
var countyNames = map[string]string{
	"AB": "Alba", "AR": "Arad", "AG": "Argeș", "BC": "Bacău", "BH": "Bihor",
	"BN": "Bistrița-Năsăud", "BT": "Botoșani", "BV": "Brașov", "BR": "Brăila",
	"B": "București", "BUC": "București", "BUCURESTI": "București",
	"BZ": "Buzău", "CS": "Caraș-Severin", "CL": "Călărași", "CJ": "Cluj",
	"CT": "Constanța", "CV": "Covasna", "DB": "Dâmbovița", "DJ": "Dolj",
	"GL": "Galați", "GR": "Giurgiu", "GJ": "Gorj", "HR": "Harghita",
	"HD": "Hunedoara", "IL": "Ialomița", "IS": "Iași", "IF": "Ilfov",
	"MM": "Maramureș", "MH": "Mehedinți", "MS": "Mureș", "NT": "Neamț",
	"OT": "Olt", "PH": "Prahova", "SM": "Satu Mare", "SJ": "Sălaj",
	"SB": "Sibiu", "SV": "Suceava", "TR": "Teleorman", "TM": "Timiș",
	"TL": "Tulcea", "VS": "Vaslui", "VL": "Vâlcea", "VN": "Vrancea",
}

// canonicalCounties is the fixed enumeration of acceptable county names.
var canonicalCounties = buildCanonicalSet()

func buildCanonicalSet() map[string]string {
	set := make(map[string]string, len(countyNames))
	for _, name := range countyNames {
		set[strings.ToUpper(name)] = name
	}
	return set
}

const capitalCounty = "București"

// ruralPrefixes are administrative qualifiers stripped from city names.
var ruralPrefixes = []string{
	"sat ", "sat. ", "satul ",
	"com ", "com. ", "comuna ",
	"mun ", "mun. ", "municipiul ",
	"oras ", "oraș ", "orasul ", "orașul ",
}

// streetTypeQualifiers are recognized street-type words that, when present
// separately from the street name, get concatenated in front of it.
var streetTypeQualifiers = map[string]string{
	"str":  "Strada",
	"str.": "Strada",
	"bd":   "Bulevardul",
	"bd.":  "Bulevardul",
	"blvd": "Bulevardul",
	"cal":  "Calea",
	"cal.": "Calea",
	"al":   "Aleea",
	"al.":  "Aleea",
	"sos":  "Șoseaua",
	"sos.": "Șoseaua",
	"șos.": "Șoseaua",
	"dr":   "Drumul",
	"dr.":  "Drumul",
	"int":  "Intrarea",
	"int.": "Intrarea",
}

// NormalizeCounty resolves an abbreviated or alternate county value to its
// canonical name. The empty string means the value did not resolve.
func NormalizeCounty(raw string) string {
	v := strings.ToUpper(strings.TrimSpace(raw))
	v = strings.TrimSuffix(v, ".")
	if v == "" {
		return ""
	}
	if name, ok := countyNames[v]; ok {
		return name
	}
	if name, ok := canonicalCounties[v]; ok {
		return name
	}
	return ""
}

// NormalizeCity composes "<Capital>, Sector <n>" when a sector number
// accompanies a capital-city county match; otherwise it strips known rural
// and administrative prefixes.
func NormalizeCity(raw, county string) string {
	city := strings.TrimSpace(raw)
	if city == "" {
		return ""
	}

	if county == capitalCounty {
		if n, ok := sectorNumber(city); ok {
			return fmt.Sprintf("%s, Sector %d", capitalCounty, n)
		}
		if strings.EqualFold(city, capitalCounty) || strings.EqualFold(city, "Bucuresti") {
			return capitalCounty
		}
	}

	lower := strings.ToLower(city)
	for _, prefix := range ruralPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(city[len(prefix):])
		}
	}
	return city
}

// sectorNumber extracts a district number from values like "Sector 3",
// "sect. 3", "S3" or a lone digit.
func sectorNumber(city string) (int, bool) {
	v := strings.ToLower(strings.TrimSpace(city))
	for _, prefix := range []string{"sectorul", "sector", "sect.", "sect", "s."} {
		if strings.HasPrefix(v, prefix) {
			v = strings.TrimSpace(v[len(prefix):])
			break
		}
	}
	v = strings.TrimPrefix(v, "s")
	v = strings.TrimSpace(strings.TrimPrefix(v, "."))
	if len(v) != 1 || v[0] < '1' || v[0] > '6' {
		return 0, false
	}
	return int(v[0] - '0'), true
}

// NormalizeStreet concatenates a separately-supplied street-type qualifier
// with the street name, expanding known abbreviations. Already-qualified
// streets pass through unchanged.
func NormalizeStreet(street string) string {
	s := strings.TrimSpace(street)
	if s == "" {
		return ""
	}
	parts := strings.SplitN(s, " ", 2)
	if len(parts) < 2 {
		return s
	}
	if full, ok := streetTypeQualifiers[strings.ToLower(parts[0])]; ok {
		return full + " " + strings.TrimSpace(parts[1])
	}
	return s
}

// NormalizeAddress applies the normalization rules in order: county,
// city, street; all other sub-fields are copied verbatim when present and
// never cleared when absent. Idempotent: normalizing twice equals once.
func NormalizeAddress(raw domain.Address) domain.Address {
	out := raw
	out.County = NormalizeCounty(raw.County)
	out.City = NormalizeCity(raw.City, out.County)
	out.Street = NormalizeStreet(raw.Street)
	return out
}
