// Пакет entry — HTTP Entry Router: внешний http.Handler процесса,
// оборачивающий движок страниц.
//
// Для каждого запроса выполняется ровно одно действие:
// redirect, rewrite или pass. API и статика передаются движку без изменений.
package entry

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
	"github.com/bigkaa/goartstore/storefront/internal/locale"
)

var entryDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sf_entry_decisions_total",
		Help: "Решения HTTP Entry Router",
	},
	[]string{"decision", "kind"},
)

// Decision — действие роутера для запроса.
type Decision int

const (
	// DecisionPass — запрос передаётся движку без изменений.
	DecisionPass Decision = iota
	// DecisionRedirect — ответ 302.
	DecisionRedirect
	// DecisionRewrite — путь переписан (снят legacy-префикс), запрос передан движку.
	DecisionRewrite
)

// String возвращает имя решения.
func (d Decision) String() string {
	switch d {
	case DecisionRedirect:
		return "redirect"
	case DecisionRewrite:
		return "rewrite"
	default:
		return "pass"
	}
}

// Options — параметры роутера.
type Options struct {
	// Classifier — общий с edge.Filter классификатор путей
	Classifier *locale.Classifier
	// DefaultCountry — страна по умолчанию
	DefaultCountry string
	// LegacyPrefix — legacy-префикс (/store); пустой — без redirect/rewrite по префиксу
	LegacyPrefix string
	// Logger — логгер (nil — slog.Default)
	Logger *slog.Logger
}

// Router — HTTP Entry Router.
type Router struct {
	next           http.Handler
	classifier     *locale.Classifier
	defaultCountry string
	legacyPrefix   string
	logger         *slog.Logger
}

// New создаёт роутер, оборачивающий next.
func New(next http.Handler, opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		next:           next,
		classifier:     opts.Classifier,
		defaultCountry: model.NormalizeCode(opts.DefaultCountry),
		legacyPrefix:   strings.TrimRight(opts.LegacyPrefix, "/"),
		logger:         logger.With(slog.String("component", "entry_router")),
	}
}

// ServeHTTP реализует http.Handler.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := rt.classifier.Classify(r.URL.Path)
	decision, location, rewritten := rt.route(r, c)
	entryDecisionsTotal.WithLabelValues(decision.String(), c.Kind.String()).Inc()

	switch decision {
	case DecisionRedirect:
		rt.logger.Debug("Редирект на входе",
			slog.String("path", r.URL.Path),
			slog.String("location", location),
		)
		http.Redirect(w, r, location, http.StatusFound)
	case DecisionRewrite:
		rt.next.ServeHTTP(w, rewritten)
	default:
		rt.next.ServeHTTP(w, r)
	}
}

// route вычисляет решение. Для DecisionRedirect возвращает Location,
// для DecisionRewrite — копию запроса с переписанным путём.
func (rt *Router) route(r *http.Request, c locale.Classification) (Decision, string, *http.Request) {
	if c.Kind.Bypass() {
		return DecisionPass, "", nil
	}

	if c.Kind == locale.KindRoot {
		return DecisionRedirect, rt.rootLocation(r), nil
	}

	if rt.legacyPrefix == "" {
		return DecisionPass, "", nil
	}

	path := r.URL.Path
	if path != rt.legacyPrefix && !strings.HasPrefix(path, rt.legacyPrefix+"/") {
		location := rt.legacyPrefix + r.URL.EscapedPath()
		if r.URL.RawQuery != "" {
			location += "?" + r.URL.RawQuery
		}
		return DecisionRedirect, location, nil
	}

	stripped := strings.TrimPrefix(path, rt.legacyPrefix)
	if stripped == "" || stripped == "/" {
		// Корень под префиксом — сразу на корень страны, минуя второй редирект
		return DecisionRedirect, rt.rootLocation(r), nil
	}
	return DecisionRewrite, "", rt.stripPrefix(r)
}

// rootLocation — корень страны: cookie из allow-list, иначе default.
func (rt *Router) rootLocation(r *http.Request) string {
	country := rt.defaultCountry
	if code, ok := locale.CountryFromCookie(r, rt.classifier.Codes()); ok {
		country = code
	}
	location := rt.legacyPrefix + "/" + country
	if r.URL.RawQuery != "" {
		location += "?" + r.URL.RawQuery
	}
	return location
}

// stripPrefix возвращает копию запроса без legacy-префикса в URL.Path/RawPath.
// RequestURI не меняется: внешний URL остаётся прежним.
func (rt *Router) stripPrefix(r *http.Request) *http.Request {
	r2 := new(http.Request)
	*r2 = *r
	r2.URL = new(url.URL)
	*r2.URL = *r.URL
	r2.URL.Path = strings.TrimPrefix(r.URL.Path, rt.legacyPrefix)
	if r.URL.RawPath != "" {
		r2.URL.RawPath = strings.TrimPrefix(r.URL.RawPath, rt.legacyPrefix)
	}
	return r2
}
