package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goartstore/storefront/internal/api/generated"
	"github.com/bigkaa/goartstore/storefront/internal/countryclient"
	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
	"github.com/bigkaa/goartstore/storefront/internal/locale"
	"github.com/bigkaa/goartstore/storefront/internal/repository"
	"github.com/bigkaa/goartstore/storefront/internal/service"
)

// stubCountrySource — источник стран для CatalogService.
type stubCountrySource struct {
	countries []model.Country
	err       error
}

func (s *stubCountrySource) ListCountries(_ context.Context) ([]model.Country, error) {
	return s.countries, s.err
}

// stubChecker — ReadinessChecker с фиксированным результатом.
type stubChecker struct {
	name, status string
}

func (c stubChecker) Name() string                 { return c.name }
func (c stubChecker) CheckReady() (string, string) { return c.status, "" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testEnv struct {
	router  http.Handler
	catalog *service.CatalogService
	src     *stubCountrySource
	repo    repository.SelectionRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()
	codes := locale.NewCodeSet("us", "uk", "ca", "au")
	src := &stubCountrySource{err: countryclient.ErrNotConfigured}
	catalog := service.NewCatalogService(src, codes, time.Minute, logger)
	repo := repository.NewMemorySelectionRepository()
	visitors := service.NewVisitorService(catalog, repo, codes, "us", false, logger)
	urls := locale.NewURLBuilder("us", codes, "http://catalog.test/api")

	h := NewAPIHandler(NewHealthHandler(), visitors, catalog, urls, codes, repo, logger)
	r := chi.NewRouter()
	generated.HandlerFromMux(h, r)
	return &testEnv{router: r, catalog: catalog, src: src, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("тело не JSON: %v (%s)", err, w.Body.String())
	}
	return v
}

func countryCookie(code string) *http.Cookie {
	return &http.Cookie{Name: locale.CookieName, Value: code}
}

func selectedCookie(w *httptest.ResponseRecorder) string {
	for _, c := range w.Result().Cookies() {
		if c.Name == locale.CookieName {
			return c.Value
		}
	}
	return ""
}

func TestListCountries_Fallback(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/countries", "")
	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d", w.Code)
	}
	resp := decode[generated.CountryListResponse](t, w)
	if resp.Source != "fallback" || len(resp.Countries) != 4 {
		t.Errorf("source = %q, стран = %d", resp.Source, len(resp.Countries))
	}
	if resp.Selected == nil || resp.Selected.CountryCode != "us" {
		t.Errorf("selected = %+v, ожидалась us", resp.Selected)
	}
}

func TestListCountries_FromAPIWithCookie(t *testing.T) {
	env := newTestEnv(t)
	env.src.err = nil
	env.src.countries = []model.Country{
		{CountryCode: "uk", Name: "United Kingdom", IsActive: true, SortOrder: 2},
		{CountryCode: "us", Name: "United States", IsActive: true, SortOrder: 1},
		{CountryCode: "ca", Name: "Canada", IsActive: false, SortOrder: 3},
	}

	w := env.do(t, http.MethodGet, "/api/v1/countries", "", countryCookie("uk"))
	resp := decode[generated.CountryListResponse](t, w)
	if resp.Source != "api" || len(resp.Countries) != 2 || resp.Countries[0].CountryCode != "us" {
		t.Errorf("ответ = %+v", resp)
	}
	if resp.Selected == nil || resp.Selected.CountryCode != "uk" {
		t.Errorf("selected = %+v, ожидалась uk из cookie", resp.Selected)
	}
}

func TestListCountries_Filter(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/countries?cn=ca", "")
	resp := decode[generated.CountryListResponse](t, w)
	if len(resp.Countries) != 1 || resp.Countries[0].CountryCode != "ca" {
		t.Errorf("countries = %+v", resp.Countries)
	}

	w = env.do(t, http.MethodGet, "/api/v1/countries?cn=de", "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "UNKNOWN_COUNTRY") {
		t.Errorf("статус = %d, тело = %s", w.Code, w.Body.String())
	}
}

func TestSelectCountry(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/country", `{"countryCode":"CA","path":"/us/shop?page=2"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d, тело = %s", w.Code, w.Body.String())
	}
	resp := decode[generated.SelectCountryResponse](t, w)
	if resp.Selected.CountryCode != "ca" {
		t.Errorf("selected = %+v", resp.Selected)
	}
	if resp.Location != "/ca/shop?page=2" {
		t.Errorf("location = %q, ожидался /ca/shop?page=2", resp.Location)
	}
	if got := selectedCookie(w); got != "ca" {
		t.Errorf("cookie selected-country = %q, ожидалась ca", got)
	}

	stats, err := env.repo.CountByCountry(context.Background())
	if err != nil || stats["ca"] != 1 {
		t.Errorf("хранилище = %v, err = %v", stats, err)
	}
}

func TestSelectCountry_Errors(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"неизвестная страна", `{"countryCode":"de"}`, http.StatusNotFound},
		{"невалидный код", `{"countryCode":"usa"}`, http.StatusBadRequest},
		{"не JSON", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/country", tt.body)
			if w.Code != tt.want {
				t.Errorf("статус = %d, ожидался %d", w.Code, tt.want)
			}
			if got := selectedCookie(w); got != "" {
				t.Errorf("cookie не должна устанавливаться, получена %q", got)
			}
		})
	}
}

func TestSyncLocale(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		cookie       string
		want         string
		wantSelected string
		wantCookie   string
	}{
		{"страна URL принимается", "/uk/shop", "", "adopt", "uk", "uk"},
		{"совпадает с выбором", "/uk/shop", "uk", "noop", "uk", ""},
		{"неизвестная страна", "/de/shop", "ca", "flag_unknown", "ca", ""},
		{"путь без страны", "/", "", "noop", "us", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			var cookies []*http.Cookie
			if tt.cookie != "" {
				cookies = append(cookies, countryCookie(tt.cookie))
			}
			w := env.do(t, http.MethodPost, "/api/v1/locale/sync", `{"path":"`+tt.path+`"}`, cookies...)
			if w.Code != http.StatusOK {
				t.Fatalf("статус = %d, тело = %s", w.Code, w.Body.String())
			}
			resp := decode[generated.LocaleSyncResponse](t, w)
			if resp.Transition != tt.want {
				t.Errorf("transition = %q, ожидался %q", resp.Transition, tt.want)
			}
			if resp.Selected == nil || resp.Selected.CountryCode != tt.wantSelected {
				t.Errorf("selected = %+v, ожидалась %q", resp.Selected, tt.wantSelected)
			}
			if got := selectedCookie(w); got != tt.wantCookie {
				t.Errorf("cookie = %q, ожидалась %q", got, tt.wantCookie)
			}
		})
	}
}

func TestBuildCatalogURL(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/catalog/url?endpoint=/products&page=2", "", countryCookie("au"))
	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d, тело = %s", w.Code, w.Body.String())
	}
	resp := decode[generated.CatalogURLResponse](t, w)
	u, err := url.Parse(resp.Url)
	if err != nil {
		t.Fatalf("url не парсится: %v", err)
	}
	if u.Host != "catalog.test" || u.Path != "/api/products" {
		t.Errorf("url = %q", resp.Url)
	}
	if u.Query().Get("cn") != "au" || u.Query().Get("page") != "2" || u.Query().Has("endpoint") {
		t.Errorf("query = %v", u.Query())
	}

	// Явный cn приоритетнее выбора посетителя
	w = env.do(t, http.MethodGet, "/api/v1/catalog/url?endpoint=/products&cn=uk", "", countryCookie("au"))
	resp = decode[generated.CatalogURLResponse](t, w)
	if !strings.Contains(resp.Url, "cn=uk") {
		t.Errorf("url = %q, ожидался cn=uk", resp.Url)
	}

	w = env.do(t, http.MethodGet, "/api/v1/catalog/url", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("без endpoint статус = %d, ожидался 400", w.Code)
	}
}

func TestReloadCountries(t *testing.T) {
	env := newTestEnv(t)
	_ = env.do(t, http.MethodGet, "/api/v1/countries", "")
	if st := env.catalog.Status(); st.Source != service.SourceFallback {
		t.Fatalf("source = %q", st.Source)
	}

	env.src.err = nil
	env.src.countries = []model.Country{
		{CountryCode: "us", IsActive: true},
		{CountryCode: "de", IsActive: true},
	}
	w := env.do(t, http.MethodPost, "/api/v1/admin/countries/reload", "")
	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d", w.Code)
	}
	resp := decode[generated.CatalogStatusResponse](t, w)
	if resp.Source != "api" || resp.Count != 2 || !resp.Cached || resp.LoadedAt == nil {
		t.Errorf("ответ = %+v", resp)
	}
	if len(resp.MissingInCodeSet) != 1 || resp.MissingInCodeSet[0] != "de" {
		t.Errorf("missingInCodeSet = %v", resp.MissingInCodeSet)
	}
	if len(resp.UnknownToCatalog) != 3 {
		t.Errorf("unknownToCatalog = %v, ожидались uk, ca, au", resp.UnknownToCatalog)
	}
}

func TestReloadCountries_CanceledRequest(t *testing.T) {
	env := newTestEnv(t)
	env.src.err = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/admin/countries/reload", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d", w.Code)
	}
	if resp := decode[generated.CatalogStatusResponse](t, w); resp.Cached {
		t.Errorf("ответ = %+v, прерванная загрузка не должна кэшироваться", resp)
	}
	if env.catalog.Status().Cached {
		t.Error("кэш каталога должен остаться пустым")
	}
}

// failingStatsRepo — хранилище с ошибкой статистики.
type failingStatsRepo struct {
	repository.SelectionRepository
}

func (failingStatsRepo) CountByCountry(context.Context) (map[string]int, error) {
	return nil, errors.New("connection refused")
}

func TestGetSelectionStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_ = env.repo.Save(ctx, "6f1c2a7e-3b4d-4c5e-8f90-123456789abc", "uk")
	_ = env.repo.Save(ctx, "7f1c2a7e-3b4d-4c5e-8f90-123456789abc", "uk")
	_ = env.repo.Save(ctx, "8f1c2a7e-3b4d-4c5e-8f90-123456789abc", "ca")

	w := env.do(t, http.MethodGet, "/api/v1/admin/selections/stats", "")
	resp := decode[generated.SelectionStatsResponse](t, w)
	if resp.Total != 3 || resp.Counts["uk"] != 2 || resp.Counts["ca"] != 1 {
		t.Errorf("ответ = %+v", resp)
	}

	h := &APIHandler{selections: failingStatsRepo{}, logger: testLogger()}
	rec := httptest.NewRecorder()
	h.GetSelectionStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/selections/stats", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("статус = %d, ожидался 500", rec.Code)
	}
}

func TestDeleteSelection(t *testing.T) {
	env := newTestEnv(t)
	const visitor = "6f1c2a7e-3b4d-4c5e-8f90-123456789abc"
	if err := env.repo.Save(context.Background(), visitor, "uk"); err != nil {
		t.Fatalf("Save ошибка: %v", err)
	}

	w := env.do(t, http.MethodDelete, "/api/v1/admin/selections/"+visitor, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("статус = %d, ожидался 204", w.Code)
	}
	if _, err := env.repo.Get(context.Background(), visitor); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("выбор не удалён: %v", err)
	}

	tests := []struct {
		name    string
		visitor string
		want    int
	}{
		{"повторное удаление", visitor, http.StatusNotFound},
		{"visitor id не UUID", "visitor-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodDelete, "/api/v1/admin/selections/"+tt.visitor, "")
			if w.Code != tt.want {
				t.Errorf("статус = %d, ожидался %d", w.Code, tt.want)
			}
		})
	}

	h := &APIHandler{logger: testLogger()}
	rec := httptest.NewRecorder()
	h.DeleteSelection(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/selections/"+visitor, nil), visitor)
	if rec.Code != http.StatusNotFound {
		t.Errorf("без хранилища: статус = %d, ожидался 404", rec.Code)
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name     string
		checkers []ReadinessChecker
		want     int
		status   string
	}{
		{"без проверок", nil, http.StatusOK, "ok"},
		{"всё ok", []ReadinessChecker{stubChecker{"catalog", "ok"}, stubChecker{"postgresql", "ok"}}, http.StatusOK, "ok"},
		{"degraded", []ReadinessChecker{stubChecker{"catalog", "degraded"}, stubChecker{"postgresql", "ok"}}, http.StatusOK, "degraded"},
		{"fail", []ReadinessChecker{stubChecker{"catalog", "degraded"}, stubChecker{"postgresql", "fail"}}, http.StatusServiceUnavailable, "fail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checkers...)
			w := httptest.NewRecorder()
			h.HealthReady(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if w.Code != tt.want {
				t.Errorf("статус = %d, ожидался %d", w.Code, tt.want)
			}
			resp := decode[healthReadyResponse](t, w)
			if resp.Status != tt.status || len(resp.Checks) != len(tt.checkers) {
				t.Errorf("ответ = %+v", resp)
			}
		})
	}
}

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler()
	w := httptest.NewRecorder()
	h.HealthLive(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	resp := decode[healthLiveResponse](t, w)
	if w.Code != http.StatusOK || resp.Status != "ok" || resp.Service != "storefront" {
		t.Errorf("статус = %d, ответ = %+v", w.Code, resp)
	}
}
