package pages

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/a-h/templ"

	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
	"github.com/bigkaa/goartstore/storefront/internal/locale"
	"github.com/bigkaa/goartstore/storefront/internal/service"
	"github.com/bigkaa/goartstore/storefront/internal/store"
)

// Handler — обработчик страниц /{country} и /{country}/*.
type Handler struct {
	visitors *service.VisitorService
	urls     *locale.URLBuilder
	logger   *slog.Logger
}

// NewHandler создаёт обработчик страниц.
func NewHandler(visitors *service.VisitorService, urls *locale.URLBuilder, logger *slog.Logger) *Handler {
	return &Handler{
		visitors: visitors,
		urls:     urls,
		logger:   logger.With(slog.String("component", "pages")),
	}
}

// ServeHTTP рендерит страницу. Locale Sync выполняется до записи ответа:
// cookie selected-country должна попасть в заголовки.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := h.visitors.Session(r.Context(), w, r)
	t := sess.Effect.Observe(r.Context(), r.URL.Path)

	selected, _ := sess.Store.Selected()
	data := h.pageData(r, sess.Store, selected)
	if t.Kind == store.TransitionFlagUnknown {
		data.UnknownCountry = t.Code
	}

	var body templ.Component
	if section := sectionPath(r.URL.Path); section == "" {
		body = Home(data)
	} else {
		body = Section(data)
	}

	var buf bytes.Buffer
	if err := Layout(data, body).Render(r.Context(), &buf); err != nil {
		h.logger.Error("Ошибка рендеринга страницы",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Ошибка рендеринга страницы", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) pageData(r *http.Request, s *store.Store, selected model.Country) PageData {
	section := sectionPath(r.URL.Path)

	links := make([]CountryLink, 0, len(s.Countries()))
	for _, c := range s.Countries() {
		links = append(links, CountryLink{
			Code:     c.CountryCode,
			Name:     c.Name,
			Href:     h.urls.WithCountryPrefix(r.URL.Path, c.CountryCode, nil),
			Selected: c.CountryCode == selected.CountryCode,
		})
	}

	endpoint := "/products"
	title := selected.Name
	if section != "" {
		endpoint = "/" + section
		title = sectionTitle(section)
	}

	return PageData{
		Title:          title,
		CountryCode:    selected.CountryCode,
		CountryName:    selected.Name,
		CurrencySymbol: currencySymbol(selected),
		Countries:      links,
		CatalogURL:     h.urls.BuildAPIURL(endpoint, url.Values{}, selected.CountryCode, s),
	}
}

// sectionPath — путь после сегмента страны без слэшей по краям.
func sectionPath(path string) string {
	path = strings.Trim(path, "/")
	_, rest, _ := strings.Cut(path, "/")
	return strings.Trim(rest, "/")
}

// sectionTitle — заголовок раздела из последнего сегмента пути.
func sectionTitle(section string) string {
	last := section[strings.LastIndexByte(section, '/')+1:]
	last = strings.ReplaceAll(last, "-", " ")
	if last == "" {
		return section
	}
	r, size := utf8.DecodeRuneInString(last)
	return string(unicode.ToUpper(r)) + last[size:]
}

func currencySymbol(c model.Country) string {
	if c.CurrencySymbol != "" {
		return c.CurrencySymbol
	}
	return c.Currency
}
