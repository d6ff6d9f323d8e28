// classify.go — единый классификатор входящих путей.
// Используется и HTTP Entry Router, и Edge Redirect Filter,
// поэтому оба уровня редиректов принимают согласованные решения.
package locale

import (
	"regexp"
	"strings"
)

// Kind — класс пути запроса.
type Kind int

const (
	// KindUnprefixed — страница без префикса страны.
	KindUnprefixed Kind = iota
	// KindAPI — API и исключённые серверные маршруты (/api, /auth, /health).
	KindAPI
	// KindAsset — статика и файлы с расширением.
	KindAsset
	// KindRoot — ровно "/".
	KindRoot
	// KindCountryPrefixed — канонический путь /{country}/...
	KindCountryPrefixed
)

// String возвращает имя класса (используется в логах и лейблах метрик).
func (k Kind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindAsset:
		return "asset"
	case KindRoot:
		return "root"
	case KindCountryPrefixed:
		return "country_prefixed"
	default:
		return "unprefixed"
	}
}

// Bypass сообщает, что путь должен проходить оба редиректора без изменений.
func (k Kind) Bypass() bool {
	return k == KindAPI || k == KindAsset
}

// Classification — результат классификации пути.
type Classification struct {
	Kind Kind
	// Country — код страны, заполнен только для KindCountryPrefixed.
	Country string
}

// Статические префиксы и файлы, которые никогда не перенаправляются.
var (
	apiPrefix = "/api"

	assetPrefixes = []string{
		"/_next/",
		"/static/",
		"/images/",
		"/uploads/",
	}

	assetFiles = map[string]bool{
		"/favicon.ico": true,
		"/robots.txt":  true,
		"/sitemap.xml": true,
	}

	// extensionPattern — последний сегмент пути с расширением 2–8 символов.
	extensionPattern = regexp.MustCompile(`\.[A-Za-z0-9]{2,8}$`)
)

// DefaultExcludedPrefixes — серверные маршруты вне витрины.
var DefaultExcludedPrefixes = []string{"/auth/", "/health/", "/metrics"}

// Classifier — чистая тотальная функция path → Classification.
type Classifier struct {
	codes    *CodeSet
	excluded []string
}

// NewClassifier создаёт классификатор.
// codes — allow-list стран, excludedPrefixes — дополнительные серверные префиксы.
func NewClassifier(codes *CodeSet, excludedPrefixes ...string) *Classifier {
	excluded := make([]string, 0, len(excludedPrefixes))
	for _, p := range excludedPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			excluded = append(excluded, p)
		}
	}
	return &Classifier{codes: codes, excluded: excluded}
}

// Codes возвращает allow-list, с которым работает классификатор.
func (c *Classifier) Codes() *CodeSet {
	return c.codes
}

// Classify относит путь ровно к одному классу.
// Порядок проверок: root → api → asset → country-prefixed → unprefixed.
func (c *Classifier) Classify(path string) Classification {
	path = cleanPath(path)

	if path == "/" {
		return Classification{Kind: KindRoot}
	}

	if path == apiPrefix || strings.HasPrefix(path, apiPrefix+"/") {
		return Classification{Kind: KindAPI}
	}
	for _, p := range c.excluded {
		if strings.HasPrefix(path, p) {
			return Classification{Kind: KindAPI}
		}
	}

	if isAsset(path) {
		return Classification{Kind: KindAsset}
	}

	if seg := firstSegment(path); c.codes.Contains(seg) {
		return Classification{Kind: KindCountryPrefixed, Country: seg}
	}

	return Classification{Kind: KindUnprefixed}
}

// isAsset проверяет статические префиксы, служебные файлы и расширение.
func isAsset(path string) bool {
	if assetFiles[path] {
		return true
	}
	for _, p := range assetPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return extensionPattern.MatchString(lastSegment(path))
}

// cleanPath отрезает query/fragment и гарантирует ведущий слэш.
func cleanPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if path[0] != '/' {
		path = "/" + path
	}
	return path
}

// firstSegment возвращает первый сегмент пути ("/us/shop" → "us").
func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

// lastSegment возвращает последний сегмент пути ("/a/logo.png" → "logo.png").
func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
