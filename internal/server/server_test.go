package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/storefront/internal/api/generated"
	"github.com/bigkaa/goartstore/storefront/internal/api/handlers"
	"github.com/bigkaa/goartstore/storefront/internal/api/middleware"
	"github.com/bigkaa/goartstore/storefront/internal/config"
	"github.com/bigkaa/goartstore/storefront/internal/countryclient"
	"github.com/bigkaa/goartstore/storefront/internal/locale"
	"github.com/bigkaa/goartstore/storefront/internal/pages"
	"github.com/bigkaa/goartstore/storefront/internal/repository"
	"github.com/bigkaa/goartstore/storefront/internal/service"
)

func testConfig(legacyPrefix string) *config.Config {
	return &config.Config{
		Port:             8080,
		DefaultCountry:   "us",
		ValidCountries:   []string{"us", "uk", "ca", "au"},
		LegacyPrefix:     legacyPrefix,
		ExcludedPrefixes: []string{"/auth/", "/health/", "/metrics"},
		CatalogAPIURL:    "http://catalog.test/api",
		CountryCacheTTL:  time.Minute,
		ReadTimeout:      time.Second,
		WriteTimeout:     time.Second,
		IdleTimeout:      time.Second,
		ShutdownTimeout:  time.Second,
	}
}

// newTestHandler собирает полный обработчик без внешних зависимостей:
// Country API не сконфигурирован, хранилище выбора в памяти, без JWT.
func newTestHandler(t *testing.T, legacyPrefix string) http.Handler {
	t.Helper()
	cfg := testConfig(legacyPrefix)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	codes := locale.NewCodeSet(cfg.ValidCountries...)
	classifier := locale.NewClassifier(codes, cfg.ExcludedPrefixes...)
	client, err := countryclient.New(countryclient.Options{}, logger)
	if err != nil {
		t.Fatalf("countryclient.New: %v", err)
	}
	catalog := service.NewCatalogService(client, codes, cfg.CountryCacheTTL, logger)
	repo := repository.NewMemorySelectionRepository()
	visitors := service.NewVisitorService(catalog, repo, codes, cfg.DefaultCountry, false, logger)
	urls := locale.NewURLBuilder(cfg.DefaultCountry, codes, cfg.CatalogAPIURL)

	doc, err := generated.GetSwagger()
	if err != nil {
		t.Fatalf("GetSwagger: %v", err)
	}
	validator, err := middleware.OpenAPIValidator(doc)
	if err != nil {
		t.Fatalf("OpenAPIValidator: %v", err)
	}

	return NewHandler(cfg, logger, Deps{
		API:        handlers.NewAPIHandler(handlers.NewHealthHandler(), visitors, catalog, urls, codes, repo, logger),
		Pages:      pages.NewHandler(visitors, urls, logger),
		Classifier: classifier,
		Validator:  validator,
	})
}

func request(h http.Handler, method, target, cookie string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	if cookie != "" {
		r.AddCookie(&http.Cookie{Name: locale.CookieName, Value: cookie})
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestServer_Redirects(t *testing.T) {
	h := newTestHandler(t, "")
	tests := []struct {
		name   string
		target string
		cookie string
		want   string
	}{
		{"без префикса страны", "/shop?x=1", "", "/us/shop?x=1"},
		{"без префикса с cookie", "/cart", "uk", "/uk/cart"},
		{"корень с cookie", "/", "ca", "/ca"},
		{"корень без cookie", "/", "", "/us"},
		{"страна вне allow-list", "/de/shop", "", "/us/de/shop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(h, http.MethodGet, tt.target, tt.cookie)
			if w.Code != http.StatusFound {
				t.Fatalf("статус = %d, ожидался 302", w.Code)
			}
			if loc := w.Header().Get("Location"); loc != tt.want {
				t.Errorf("Location = %q, ожидался %q", loc, tt.want)
			}
		})
	}
}

// TestServer_CanonicalPathServed — редирект ведёт на путь, который отдаётся без редиректа.
func TestServer_CanonicalPathServed(t *testing.T) {
	h := newTestHandler(t, "")
	w := request(h, http.MethodGet, "/shop?x=1", "")
	loc := w.Header().Get("Location")

	w = request(h, http.MethodGet, loc, "")
	if w.Code != http.StatusOK {
		t.Fatalf("%s: статус = %d, ожидался 200", loc, w.Code)
	}
	if !strings.Contains(w.Body.String(), "<h1>Shop</h1>") {
		t.Errorf("страница раздела не отрендерена:\n%s", w.Body.String())
	}
}

func TestServer_AssetsAndAPINeverRedirected(t *testing.T) {
	h := newTestHandler(t, "")
	tests := []struct {
		target string
		want   int
	}{
		{"/logo.png", http.StatusNotFound},
		{"/uk/logo.png", http.StatusNotFound},
		{"/_next/static/app.js", http.StatusNotFound},
		{"/api/v1/countries", http.StatusOK},
		{"/api/v1/unknown", http.StatusNotFound},
		{"/health/live", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/static/css/storefront.css", http.StatusOK},
	}
	for _, tt := range tests {
		w := request(h, http.MethodGet, tt.target, "")
		if w.Code != tt.want {
			t.Errorf("%s: статус = %d, ожидался %d", tt.target, w.Code, tt.want)
		}
		if loc := w.Header().Get("Location"); loc != "" {
			t.Errorf("%s: неожиданный редирект на %q", tt.target, loc)
		}
	}
}

func TestServer_APIValidationAndAdmin(t *testing.T) {
	h := newTestHandler(t, "")

	w := request(h, http.MethodGet, "/api/v1/countries?cn=USA", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("cn=USA: статус = %d, ожидался 400", w.Code)
	}

	w = request(h, http.MethodGet, "/api/v1/admin/selections/stats", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("admin без JWT: статус = %d, ожидался 401", w.Code)
	}

	w = request(h, http.MethodDelete, "/api/v1/admin/selections/6f1c2a7e-3b4d-4c5e-8f90-123456789abc", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("удаление выбора без JWT: статус = %d, ожидался 401", w.Code)
	}
}

func TestServer_PageSetsCookie(t *testing.T) {
	h := newTestHandler(t, "")
	w := request(h, http.MethodGet, "/au/collections", "us")
	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d", w.Code)
	}
	var got string
	for _, c := range w.Result().Cookies() {
		if c.Name == locale.CookieName {
			got = c.Value
		}
	}
	if got != "au" {
		t.Errorf("cookie selected-country = %q, ожидалась au", got)
	}
}

func TestServer_LegacyPrefix(t *testing.T) {
	h := newTestHandler(t, "/store")

	w := request(h, http.MethodGet, "/uk/shop", "")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/store/uk/shop" {
		t.Errorf("статус = %d, Location = %q", w.Code, w.Header().Get("Location"))
	}

	w = request(h, http.MethodGet, "/store/uk/shop", "")
	if w.Code != http.StatusOK {
		t.Fatalf("/store/uk/shop: статус = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "cn=uk") {
		t.Errorf("страница не под uk:\n%s", w.Body.String())
	}

	w = request(h, http.MethodGet, "/", "au")
	if loc := w.Header().Get("Location"); loc != "/store/au" {
		t.Errorf("Location = %q, ожидался /store/au", loc)
	}

	w = request(h, http.MethodGet, "/api/v1/countries", "")
	if w.Code != http.StatusOK {
		t.Errorf("API под legacy-префиксом: статус = %d", w.Code)
	}
}
