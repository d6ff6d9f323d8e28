// countries.go — операции выбора страны посетителя:
// набор стран, явное переключение, синхронизация страны из URL, URL Catalog API.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/goartstore/storefront/internal/api/errors"
	"github.com/bigkaa/goartstore/storefront/internal/api/generated"
	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
	"github.com/bigkaa/goartstore/storefront/internal/locale"
)

// ListCountries — набор стран и выбранная страна посетителя.
// Параметр cn сужает ответ до одной страны.
func (h *APIHandler) ListCountries(w http.ResponseWriter, r *http.Request, params generated.ListCountriesParams) {
	sess := h.visitors.Session(r.Context(), w, r)

	countries := sess.Store.Countries()
	if params.Cn != nil {
		c, ok := sess.Store.GetCountryByCode(*params.Cn)
		if !ok {
			apierrors.UnknownCountry(w, "Страна "+*params.Cn+" отсутствует в наборе стран")
			return
		}
		countries = []model.Country{c}
	}

	resp := generated.CountryListResponse{
		Countries: mapCountries(countries),
		Source:    h.catalogSource(),
	}
	if selected, ok := sess.Store.Selected(); ok {
		mapped := mapCountry(selected)
		resp.Selected = &mapped
	}
	writeJSON(w, http.StatusOK, resp)
}

// SelectCountry — явное переключение страны посетителем.
// Устанавливает cookie selected-country и возвращает путь под новой страной.
func (h *APIHandler) SelectCountry(w http.ResponseWriter, r *http.Request) {
	var req generated.SelectCountryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}
	code := model.NormalizeCode(req.CountryCode)
	if !model.IsValidCode(code) {
		apierrors.ValidationError(w, "countryCode должен состоять из двух латинских букв")
		return
	}

	sess := h.visitors.Session(r.Context(), w, r)
	country, ok := sess.Store.GetCountryByCode(code)
	if !ok {
		apierrors.UnknownCountry(w, "Страна "+code+" отсутствует в наборе стран")
		return
	}

	// Cookie записывается первой; ошибка клиентского хранилища не отменяет выбор
	if err := sess.Store.SetSelectedCountry(r.Context(), country); err != nil {
		h.logger.Warn("Выбор страны сохранён частично",
			slog.String("visitor_id", sess.VisitorID),
			slog.String("country", code),
			slog.String("error", err.Error()),
		)
	}

	path := "/"
	if req.Path != nil && *req.Path != "" {
		path = *req.Path
	}
	writeJSON(w, http.StatusOK, generated.SelectCountryResponse{
		Selected: mapCountry(country),
		Location: h.urls.WithCountryPrefix(path, country.CountryCode, sess.Store),
	})
}

// SyncLocale — один шаг Locale Sync Effect для пути страницы.
func (h *APIHandler) SyncLocale(w http.ResponseWriter, r *http.Request) {
	var req generated.LocaleSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}
	if req.Path == "" {
		apierrors.ValidationError(w, "path обязателен")
		return
	}

	sess := h.visitors.Session(r.Context(), w, r)
	t := sess.Effect.Observe(r.Context(), req.Path)

	resp := generated.LocaleSyncResponse{
		Transition: t.Kind.String(),
		Code:       t.Code,
	}
	if selected, ok := sess.Store.Selected(); ok {
		mapped := mapCountry(selected)
		resp.Selected = &mapped
	}
	writeJSON(w, http.StatusOK, resp)
}

// BuildCatalogURL — URL Catalog API с параметром cn.
// Прочие query-параметры запроса передаются в endpoint.
func (h *APIHandler) BuildCatalogURL(w http.ResponseWriter, r *http.Request, params generated.BuildCatalogURLParams) {
	forwarded := r.URL.Query()
	forwarded.Del("endpoint")
	forwarded.Del(locale.CountryParam)

	code := ""
	if params.Cn != nil {
		code = *params.Cn
	}

	sess := h.visitors.Session(r.Context(), w, r)
	writeJSON(w, http.StatusOK, generated.CatalogURLResponse{
		Url: h.urls.BuildAPIURL(params.Endpoint, forwarded, code, sess.Store),
	})
}

// catalogSource — источник текущего набора стран (api / fallback).
func (h *APIHandler) catalogSource() string {
	if src := h.catalog.Status().Source; src != "" {
		return src
	}
	return "fallback"
}
