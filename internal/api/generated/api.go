// Пакет generated — типы и chi-маршрутизация Storefront API по контракту
// openapi.yaml (в формате oapi-codegen chi-server).
// При изменении openapi.yaml типы и ServerInterface обновляются вместе с ним.
package generated

import (
	_ "embed"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

//go:embed openapi.yaml
var rawSpec []byte

// --- Схемы ---

// Country defines model for Country.
type Country struct {
	CountryCode    string `json:"countryCode"`
	Currency       string `json:"currency"`
	CurrencySymbol string `json:"currencySymbol"`
	Id             string `json:"id,omitempty"`
	IsActive       bool   `json:"isActive"`
	Name           string `json:"name"`
	SortOrder      int    `json:"sortOrder"`
	Timezone       string `json:"timezone,omitempty"`
}

// CountryListResponse defines model for CountryListResponse.
type CountryListResponse struct {
	Countries []Country `json:"countries"`
	Selected  *Country  `json:"selected,omitempty"`
	Source    string    `json:"source"`
}

// SelectCountryRequest defines model for SelectCountryRequest.
type SelectCountryRequest struct {
	CountryCode string  `json:"countryCode"`
	Path        *string `json:"path,omitempty"`
}

// SelectCountryResponse defines model for SelectCountryResponse.
type SelectCountryResponse struct {
	Location string  `json:"location"`
	Selected Country `json:"selected"`
}

// LocaleSyncRequest defines model for LocaleSyncRequest.
type LocaleSyncRequest struct {
	Path string `json:"path"`
}

// LocaleSyncResponse defines model for LocaleSyncResponse.
type LocaleSyncResponse struct {
	Code       string   `json:"code,omitempty"`
	Selected   *Country `json:"selected,omitempty"`
	Transition string   `json:"transition"`
}

// CatalogURLResponse defines model for CatalogURLResponse.
type CatalogURLResponse struct {
	Url string `json:"url"`
}

// CatalogStatusResponse defines model for CatalogStatusResponse.
type CatalogStatusResponse struct {
	Cached           bool       `json:"cached"`
	Count            int        `json:"count"`
	LoadedAt         *time.Time `json:"loadedAt,omitempty"`
	MissingInCodeSet []string   `json:"missingInCodeSet,omitempty"`
	Source           string     `json:"source"`
	UnknownToCatalog []string   `json:"unknownToCatalog,omitempty"`
}

// SelectionStatsResponse defines model for SelectionStatsResponse.
type SelectionStatsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// --- Параметры ---

// ListCountriesParams defines parameters for ListCountries.
type ListCountriesParams struct {
	Cn *string `form:"cn,omitempty" json:"cn,omitempty"`
}

// BuildCatalogURLParams defines parameters for BuildCatalogURL.
type BuildCatalogURLParams struct {
	Endpoint string  `form:"endpoint" json:"endpoint"`
	Cn       *string `form:"cn,omitempty" json:"cn,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /health/live)
	HealthLive(w http.ResponseWriter, r *http.Request)
	// (GET /health/ready)
	HealthReady(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	GetMetrics(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/countries)
	ListCountries(w http.ResponseWriter, r *http.Request, params ListCountriesParams)
	// (POST /api/v1/country)
	SelectCountry(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/locale/sync)
	SyncLocale(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/catalog/url)
	BuildCatalogURL(w http.ResponseWriter, r *http.Request, params BuildCatalogURLParams)
	// (POST /api/v1/admin/countries/reload)
	ReloadCountries(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/admin/selections/stats)
	GetSelectionStats(w http.ResponseWriter, r *http.Request)
	// (DELETE /api/v1/admin/selections/{visitorId})
	DeleteSelection(w http.ResponseWriter, r *http.Request, visitorId string)
}

// MiddlewareFunc — middleware отдельного обработчика.
type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper разбирает параметры запроса и вызывает ServerInterface.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	handler := http.Handler(fn)
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

// HealthLive operation middleware
func (siw *ServerInterfaceWrapper) HealthLive(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.HealthLive)
}

// HealthReady operation middleware
func (siw *ServerInterfaceWrapper) HealthReady(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.HealthReady)
}

// GetMetrics operation middleware
func (siw *ServerInterfaceWrapper) GetMetrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetMetrics)
}

// ListCountries operation middleware
func (siw *ServerInterfaceWrapper) ListCountries(w http.ResponseWriter, r *http.Request) {
	var params ListCountriesParams

	// ------------- Optional query parameter "cn" -------------
	if err := runtime.BindQueryParameter("form", true, false, "cn", r.URL.Query(), &params.Cn); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "cn", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListCountries(w, r, params)
	})
}

// SelectCountry operation middleware
func (siw *ServerInterfaceWrapper) SelectCountry(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.SelectCountry)
}

// SyncLocale operation middleware
func (siw *ServerInterfaceWrapper) SyncLocale(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.SyncLocale)
}

// BuildCatalogURL operation middleware
func (siw *ServerInterfaceWrapper) BuildCatalogURL(w http.ResponseWriter, r *http.Request) {
	var params BuildCatalogURLParams

	// ------------- Required query parameter "endpoint" -------------
	if paramValue := r.URL.Query().Get("endpoint"); paramValue == "" {
		siw.ErrorHandlerFunc(w, r, &RequiredParamError{ParamName: "endpoint"})
		return
	}
	if err := runtime.BindQueryParameter("form", true, true, "endpoint", r.URL.Query(), &params.Endpoint); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "endpoint", Err: err})
		return
	}

	// ------------- Optional query parameter "cn" -------------
	if err := runtime.BindQueryParameter("form", true, false, "cn", r.URL.Query(), &params.Cn); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "cn", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.BuildCatalogURL(w, r, params)
	})
}

// ReloadCountries operation middleware
func (siw *ServerInterfaceWrapper) ReloadCountries(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.ReloadCountries)
}

// GetSelectionStats operation middleware
func (siw *ServerInterfaceWrapper) GetSelectionStats(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetSelectionStats)
}

// DeleteSelection operation middleware
func (siw *ServerInterfaceWrapper) DeleteSelection(w http.ResponseWriter, r *http.Request) {
	var visitorId string

	// ------------- Path parameter "visitorId" -------------
	err := runtime.BindStyledParameterWithOptions("simple", "visitorId", chi.URLParam(r, "visitorId"), &visitorId,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "visitorId", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DeleteSelection(w, r, visitorId)
	})
}

// --- Ошибки разбора параметров ---

// RequiredParamError — обязательный параметр отсутствует.
type RequiredParamError struct {
	ParamName string
}

func (e *RequiredParamError) Error() string {
	return fmt.Sprintf("Query argument %s is required, but not found", e.ParamName)
}

// InvalidParamFormatError — параметр не удалось разобрать.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ChiServerOptions — параметры регистрации маршрутов.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerFromMux регистрирует маршруты ServerInterface на существующем chi.Router.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{
		BaseRouter: r,
	})
}

// HandlerWithOptions регистрирует маршруты с параметрами.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Get(options.BaseURL+"/health/live", wrapper.HealthLive)
	r.Get(options.BaseURL+"/health/ready", wrapper.HealthReady)
	r.Get(options.BaseURL+"/metrics", wrapper.GetMetrics)
	r.Get(options.BaseURL+"/api/v1/countries", wrapper.ListCountries)
	r.Post(options.BaseURL+"/api/v1/country", wrapper.SelectCountry)
	r.Post(options.BaseURL+"/api/v1/locale/sync", wrapper.SyncLocale)
	r.Get(options.BaseURL+"/api/v1/catalog/url", wrapper.BuildCatalogURL)
	r.Post(options.BaseURL+"/api/v1/admin/countries/reload", wrapper.ReloadCountries)
	r.Get(options.BaseURL+"/api/v1/admin/selections/stats", wrapper.GetSelectionStats)
	r.Delete(options.BaseURL+"/api/v1/admin/selections/{visitorId}", wrapper.DeleteSelection)

	return r
}

var loadSwagger = sync.OnceValues(func() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("error loading Swagger: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid Swagger: %w", err)
	}
	return doc, nil
})

// GetSwagger возвращает разобранный OpenAPI-документ.
// Документ общий: вызывающий код не должен его изменять.
func GetSwagger() (*openapi3.T, error) {
	return loadSwagger()
}

// RawSpec возвращает исходный openapi.yaml.
func RawSpec() []byte {
	return rawSpec
}
