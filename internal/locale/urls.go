// urls.go — Country URL Utilities: построение и разбор country-prefixed путей
// и URL каталога с параметром cn.
package locale

import (
	"net/url"
	"strings"

	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
)

// CountryParam — query-параметр страны для downstream Catalog API.
const CountryParam = "cn"

// SelectionSource — источник сохранённого клиентского выбора страны
// (cookie запроса, Store клиента).
type SelectionSource interface {
	// SelectedCountryCode возвращает сохранённый код и признак его наличия.
	SelectedCountryCode() (string, bool)
}

// SelectionFunc — адаптер функции к SelectionSource.
type SelectionFunc func() (string, bool)

// SelectedCountryCode реализует SelectionSource.
func (f SelectionFunc) SelectedCountryCode() (string, bool) {
	return f()
}

// URLBuilder строит пути и URL с учётом страны.
// Все методы чистые и никогда не возвращают ошибок:
// любая неудача разрешения деградирует к стране по умолчанию.
type URLBuilder struct {
	defaultCountry string
	codes          *CodeSet
	apiBase        string
}

// NewURLBuilder создаёт построитель.
// defaultCountry — единая для всех компонентов страна по умолчанию,
// apiBase — базовый URL Catalog API (например, https://catalog.example.com/api).
func NewURLBuilder(defaultCountry string, codes *CodeSet, apiBase string) *URLBuilder {
	return &URLBuilder{
		defaultCountry: model.NormalizeCode(defaultCountry),
		codes:          codes,
		apiBase:        strings.TrimRight(apiBase, "/"),
	}
}

// DefaultCountry возвращает страну по умолчанию.
func (b *URLBuilder) DefaultCountry() string {
	return b.defaultCountry
}

// Resolve выбирает код страны: явный code → сохранённый выбор → default.
func (b *URLBuilder) Resolve(code string, sel SelectionSource) string {
	if code = model.NormalizeCode(code); model.IsValidCode(code) {
		return code
	}
	if sel != nil {
		if stored, ok := sel.SelectedCountryCode(); ok {
			if stored = model.NormalizeCode(stored); model.IsValidCode(stored) {
				return stored
			}
		}
	}
	return b.defaultCountry
}

// WithCountryPrefix возвращает путь, начинающийся с /{country}.
// Если первый сегмент уже является кодом из allow-list или совпадает
// с целевой страной, он заменяется, поэтому повторное применение
// не даёт двойного префикса. Query и fragment сохраняются.
func (b *URLBuilder) WithCountryPrefix(path, code string, sel SelectionSource) string {
	country := b.Resolve(code, sel)

	rest := ""
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path, rest = path[:i], path[i:]
	}
	path = "/" + strings.TrimLeft(path, "/")

	if seg := firstSegment(path); seg == country || b.codes.Contains(seg) {
		path = strings.TrimPrefix(path, "/"+seg)
	}
	if path == "/" {
		path = ""
	}

	return "/" + country + path + rest
}

// CountrySegment возвращает первый сегмент пути, если он имеет вид кода страны.
// В отличие от ExtractCountryFromPath не подставляет страну по умолчанию.
func CountrySegment(path string) (string, bool) {
	seg := firstSegment(cleanPath(path))
	return seg, model.IsValidCode(seg)
}

// ExtractCountryFromPath возвращает первый сегмент пути,
// если он похож на код страны, иначе страну по умолчанию.
func (b *URLBuilder) ExtractCountryFromPath(path string) string {
	if seg, ok := CountrySegment(path); ok {
		return seg
	}
	return b.defaultCountry
}

// BuildAPIURL строит URL Catalog API: endpoint + params + cn.
// Абсолютный endpoint используется как есть, относительный —
// присоединяется к apiBase.
func (b *URLBuilder) BuildAPIURL(endpoint string, params url.Values, code string, sel SelectionSource) string {
	country := b.Resolve(code, sel)

	raw := endpoint
	if !strings.Contains(endpoint, "://") {
		raw = b.apiBase + "/" + strings.TrimLeft(endpoint, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		// Некорректный endpoint — собираем строку без разбора
		q := url.Values{}
		for k, vs := range params {
			q[k] = append(q[k], vs...)
		}
		q.Set(CountryParam, country)
		return raw + "?" + q.Encode()
	}

	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set(CountryParam, country)
	u.RawQuery = q.Encode()
	return u.String()
}
