// region.go — региональные подсказки на основе golang.org/x/text:
// страна из Accept-Language и ISO-код валюты страны.
package locale

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// Витрина использует "uk", а CLDR — "GB".
var (
	codeToRegion = map[string]string{"uk": "GB"}
	regionToCode = map[string]string{"gb": "uk"}
)

// RegionFromAcceptLanguage возвращает первую страну из Accept-Language
// (в порядке q-весов), входящую в allow-list.
// "en-GB,en;q=0.8" → "uk" (если uk разрешён).
func RegionFromAcceptLanguage(header string, codes *CodeSet) (string, bool) {
	if strings.TrimSpace(header) == "" {
		return "", false
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return "", false
	}
	for _, tag := range tags {
		region, conf := tag.Region()
		// Регион, угаданный по одному языку (en → US), не считаем выбором пользователя
		if conf != language.Exact {
			continue
		}
		code := strings.ToLower(region.String())
		if alias, ok := regionToCode[code]; ok {
			code = alias
		}
		if codes.Contains(code) {
			return code, true
		}
	}
	return "", false
}

// CurrencyForCode возвращает ISO-код валюты страны ("ca" → "CAD")
// или пустую строку, если регион неизвестен CLDR.
func CurrencyForCode(code string) string {
	regionCode := strings.ToUpper(code)
	if alias, ok := codeToRegion[strings.ToLower(code)]; ok {
		regionCode = alias
	}
	region, err := language.ParseRegion(regionCode)
	if err != nil {
		return ""
	}
	unit, ok := currency.FromRegion(region)
	if !ok {
		return ""
	}
	return unit.String()
}
