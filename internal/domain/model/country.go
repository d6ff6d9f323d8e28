// Пакет model — доменные модели Storefront.
package model

import (
	"regexp"
	"sort"
	"strings"
)

// codePattern — канонический вид кода страны: две строчные латинские буквы.
var codePattern = regexp.MustCompile(`^[a-z]{2}$`)

// Country — страна витрины (из Country API или fallback-набора).
// Идентичность — CountryCode.
type Country struct {
	// ID — идентификатор в Country API
	ID string `json:"id"`
	// Name — отображаемое имя страны
	Name string `json:"name"`
	// CountryCode — двухбуквенный код в нижнем регистре (us, uk, ca, au)
	CountryCode string `json:"countryCode"`
	// Currency — ISO-код валюты (USD, GBP)
	Currency string `json:"currency"`
	// CurrencySymbol — символ валюты для отображения цен
	CurrencySymbol string `json:"currencySymbol"`
	// Timezone — IANA-таймзона (America/New_York)
	Timezone string `json:"timezone"`
	// IsActive — страна доступна на витрине
	IsActive bool `json:"isActive"`
	// SortOrder — порядок в переключателе стран
	SortOrder int `json:"sortOrder"`
}

// IsValidCode проверяет, что строка имеет канонический вид кода страны.
func IsValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// NormalizeCode приводит код к каноническому виду (trim + lower).
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// FallbackCountries возвращает фиксированный набор стран,
// используемый при недоступности Country API.
func FallbackCountries() []Country {
	return []Country{
		{ID: "fallback-us", Name: "United States", CountryCode: "us", Currency: "USD", CurrencySymbol: "$", Timezone: "America/New_York", IsActive: true, SortOrder: 1},
		{ID: "fallback-uk", Name: "United Kingdom", CountryCode: "uk", Currency: "GBP", CurrencySymbol: "£", Timezone: "Europe/London", IsActive: true, SortOrder: 2},
		{ID: "fallback-ca", Name: "Canada", CountryCode: "ca", Currency: "CAD", CurrencySymbol: "C$", Timezone: "America/Toronto", IsActive: true, SortOrder: 3},
		{ID: "fallback-au", Name: "Australia", CountryCode: "au", Currency: "AUD", CurrencySymbol: "A$", Timezone: "Australia/Sydney", IsActive: true, SortOrder: 4},
	}
}

// NormalizeCountries приводит список из API к инварианту витрины:
// только активные страны с валидным кодом, коды в нижнем регистре,
// сортировка по SortOrder, уникальность CountryCode (побеждает первая запись).
func NormalizeCountries(in []Country) []Country {
	out := make([]Country, 0, len(in))
	for _, c := range in {
		if !c.IsActive {
			continue
		}
		c.CountryCode = NormalizeCode(c.CountryCode)
		if !IsValidCode(c.CountryCode) {
			continue
		}
		c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortOrder < out[j].SortOrder
	})

	seen := make(map[string]bool, len(out))
	unique := out[:0]
	for _, c := range out {
		if seen[c.CountryCode] {
			continue
		}
		seen[c.CountryCode] = true
		unique = append(unique, c)
	}
	return unique
}

// FindCountry ищет страну по коду без учёта регистра.
func FindCountry(countries []Country, code string) (Country, bool) {
	code = NormalizeCode(code)
	for _, c := range countries {
		if c.CountryCode == code {
			return c, true
		}
	}
	return Country{}, false
}
