// Пакет edge — Edge Redirect Filter: stateless-редирект страниц без
// префикса страны на канонический путь /{country}/...
//
// Фильтр не изменяет состояние: единственный побочный эффект — ответ 302.
// Классификация пути общая с entry.Router (locale.Classifier).
package edge

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
	"github.com/bigkaa/goartstore/storefront/internal/locale"
)

var edgeDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sf_edge_decisions_total",
		Help: "Решения Edge Redirect Filter по классу пути",
	},
	[]string{"action", "kind"},
)

// Action — решение фильтра.
type Action int

const (
	// ActionPass — запрос передаётся дальше без изменений.
	ActionPass Action = iota
	// ActionRedirect — ответ 302 на канонический путь.
	ActionRedirect
)

// String возвращает имя решения.
func (a Action) String() string {
	if a == ActionRedirect {
		return "redirect"
	}
	return "pass"
}

// Decision — результат Decide.
type Decision struct {
	Action Action
	// Kind — класс исходного пути
	Kind locale.Kind
	// Location — целевой путь с query, только для ActionRedirect
	Location string
	// Country — страна редиректа, только для ActionRedirect
	Country string
}

// Options — параметры фильтра.
type Options struct {
	// Classifier — общий классификатор путей
	Classifier *locale.Classifier
	// DefaultCountry — страна по умолчанию
	DefaultCountry string
	// AcceptLanguageHint — учитывать регион Accept-Language при отсутствии cookie
	AcceptLanguageHint bool
	// Logger — логгер (nil — slog.Default)
	Logger *slog.Logger
}

// Filter — Edge Redirect Filter.
type Filter struct {
	classifier     *locale.Classifier
	defaultCountry string
	languageHint   bool
	logger         *slog.Logger
}

// New создаёт фильтр.
func New(opts Options) *Filter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		classifier:     opts.Classifier,
		defaultCountry: model.NormalizeCode(opts.DefaultCountry),
		languageHint:   opts.AcceptLanguageHint,
		logger:         logger.With(slog.String("component", "edge_filter")),
	}
}

// Decide принимает решение для запроса. Порядок проверок:
//  1. api / asset / исключённые префиксы — pass;
//  2. первый сегмент в allow-list — pass (путь уже канонический);
//  3. корень "/" — pass (корень обрабатывает entry.Router);
//  4. иначе — redirect на /{страна}{путь}?{query}.
func (f *Filter) Decide(r *http.Request) Decision {
	c := f.classifier.Classify(r.URL.Path)

	switch c.Kind {
	case locale.KindAPI, locale.KindAsset, locale.KindCountryPrefixed, locale.KindRoot:
		return Decision{Action: ActionPass, Kind: c.Kind}
	}

	country := f.targetCountry(r)
	location := "/" + country + r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		location += "?" + r.URL.RawQuery
	}
	return Decision{Action: ActionRedirect, Kind: c.Kind, Location: location, Country: country}
}

// targetCountry: cookie из allow-list → регион Accept-Language (если включено) → default.
func (f *Filter) targetCountry(r *http.Request) string {
	codes := f.classifier.Codes()
	if code, ok := locale.CountryFromCookie(r, codes); ok {
		return code
	}
	if f.languageHint {
		if code, ok := locale.RegionFromAcceptLanguage(r.Header.Get("Accept-Language"), codes); ok {
			return code
		}
	}
	return f.defaultCountry
}

// Middleware возвращает HTTP middleware фильтра.
func (f *Filter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := f.Decide(r)
			edgeDecisionsTotal.WithLabelValues(d.Action.String(), d.Kind.String()).Inc()

			if d.Action == ActionPass {
				next.ServeHTTP(w, r)
				return
			}

			f.logger.Debug("Редирект на путь с префиксом страны",
				slog.String("path", r.URL.Path),
				slog.String("location", d.Location),
			)
			http.Redirect(w, r, d.Location, http.StatusFound)
		})
	}
}
