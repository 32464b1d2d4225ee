package events

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// CountryCodes is an immutable country-name to ISO 3166-1 alpha-2 mapping.
// Lookups ignore case, surrounding whitespace and diacritics.
type CountryCodes struct {
	codes map[string]string
}

// NewCountryCodes copies names into a lookup table.
func NewCountryCodes(names map[string]string) CountryCodes {
	codes := make(map[string]string, len(names))
	for name, code := range names {
		codes[countryKey(name)] = strings.ToUpper(strings.TrimSpace(code))
	}
	return CountryCodes{codes: codes}
}

// Lookup returns the code for name.
func (c CountryCodes) Lookup(name string) (string, bool) {
	code, ok := c.codes[countryKey(name)]
	return code, ok
}

// Resolve returns the code for name, or fallback when name is empty or unmapped.
func (c CountryCodes) Resolve(name, fallback string) string {
	if code, ok := c.Lookup(name); ok {
		return code
	}
	return fallback
}

// Len returns the number of mapped names.
func (c CountryCodes) Len() int {
	return len(c.codes)
}

func countryKey(name string) string {
	key := unidecode.Unidecode(strings.TrimSpace(name))
	return strings.Join(strings.Fields(strings.ToLower(key)), " ")
}

// DefaultCountryCodes covers the markets the Discovery API serves.
func DefaultCountryCodes() CountryCodes {
	return NewCountryCodes(map[string]string{
		"United States":        "US",
		"USA":                  "US",
		"Canada":               "CA",
		"Mexico":               "MX",
		"United Kingdom":       "GB",
		"UK":                   "GB",
		"Ireland":              "IE",
		"Australia":            "AU",
		"New Zealand":          "NZ",
		"Germany":              "DE",
		"Austria":              "AT",
		"Switzerland":          "CH",
		"France":               "FR",
		"Belgium":              "BE",
		"Netherlands":          "NL",
		"Luxembourg":           "LU",
		"Spain":                "ES",
		"Portugal":             "PT",
		"Italy":                "IT",
		"Denmark":              "DK",
		"Norway":               "NO",
		"Sweden":               "SE",
		"Finland":              "FI",
		"Iceland":              "IS",
		"Poland":               "PL",
		"Czech Republic":       "CZ",
		"Czechia":              "CZ",
		"Slovakia":             "SK",
		"Hungary":              "HU",
		"Slovenia":             "SI",
		"Croatia":              "HR",
		"Serbia":               "RS",
		"Romania":              "RO",
		"Bulgaria":             "BG",
		"Greece":               "GR",
		"Cyprus":               "CY",
		"Malta":                "MT",
		"Estonia":              "EE",
		"Latvia":               "LV",
		"Lithuania":            "LT",
		"Turkey":               "TR",
		"Türkiye":              "TR",
		"Israel":               "IL",
		"United Arab Emirates": "AE",
		"Bahrain":              "BH",
		"Lebanon":              "LB",
		"South Africa":         "ZA",
		"Nigeria":              "NG",
		"Brazil":               "BR",
		"Argentina":            "AR",
		"Chile":                "CL",
		"Colombia":             "CO",
		"Peru":                 "PE",
		"Uruguay":              "UY",
		"Ecuador":              "EC",
		"Venezuela":            "VE",
		"Jamaica":              "JM",
		"Bahamas":              "BS",
		"Japan":                "JP",
		"South Korea":          "KR",
		"China":                "CN",
		"Hong Kong":            "HK",
		"Taiwan":               "TW",
		"Singapore":            "SG",
		"Malaysia":             "MY",
		"Thailand":             "TH",
		"India":                "IN",
	})
}
