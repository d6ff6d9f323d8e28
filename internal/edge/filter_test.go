package edge

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/bigkaa/goartstore/storefront/internal/locale"
)

func newTestFilter(hint bool) *Filter {
	codes := locale.NewCodeSet("us", "uk", "ca", "au")
	return New(Options{
		Classifier:         locale.NewClassifier(codes, locale.DefaultExcludedPrefixes...),
		DefaultCountry:     "us",
		AcceptLanguageHint: hint,
		Logger:             slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	})
}

func TestFilter_Decide(t *testing.T) {
	f := newTestFilter(false)

	tests := []struct {
		name     string
		target   string
		cookie   string
		wantAct  Action
		wantLoc  string
		wantKind locale.Kind
	}{
		{"api", "/api/v1/products", "", ActionPass, "", locale.KindAPI},
		{"auth", "/auth/callback", "", ActionPass, "", locale.KindAPI},
		{"health", "/health/ready", "", ActionPass, "", locale.KindAPI},
		{"_next", "/_next/static/chunk.js", "", ActionPass, "", locale.KindAsset},
		{"файл с расширением", "/logo.png", "", ActionPass, "", locale.KindAsset},
		{"файл с расширением под страной", "/uk/logo.png", "", ActionPass, "", locale.KindAsset},
		{"favicon", "/favicon.ico", "", ActionPass, "", locale.KindAsset},
		{"канонический путь", "/us/shop?x=1", "", ActionPass, "", locale.KindCountryPrefixed},
		{"корень", "/", "ca", ActionPass, "", locale.KindRoot},
		{"без префикса, нет cookie", "/shop?x=1", "", ActionRedirect, "/us/shop?x=1", locale.KindUnprefixed},
		{"без префикса, cookie uk", "/cart", "uk", ActionRedirect, "/uk/cart", locale.KindUnprefixed},
		{"cookie вне allow-list", "/cart", "de", ActionRedirect, "/us/cart", locale.KindUnprefixed},
		{"неизвестная страна в пути", "/de/shop", "", ActionRedirect, "/us/de/shop", locale.KindUnprefixed},
		{"вложенный путь", "/collections/summer", "au", ActionRedirect, "/au/collections/summer", locale.KindUnprefixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: locale.CookieName, Value: tt.cookie})
			}
			d := f.Decide(r)
			if d.Action != tt.wantAct {
				t.Errorf("Action = %s, ожидался %s", d.Action, tt.wantAct)
			}
			if d.Location != tt.wantLoc {
				t.Errorf("Location = %q, ожидался %q", d.Location, tt.wantLoc)
			}
			if d.Kind != tt.wantKind {
				t.Errorf("Kind = %s, ожидался %s", d.Kind, tt.wantKind)
			}
		})
	}
}

// TestFilter_RedirectIsCanonical — повторная отправка Location проходит без редиректа.
func TestFilter_RedirectIsCanonical(t *testing.T) {
	f := newTestFilter(false)

	for _, target := range []string{"/shop?x=1", "/de/shop", "/collections/summer?sort=asc&page=2"} {
		first := f.Decide(httptest.NewRequest(http.MethodGet, target, nil))
		if first.Action != ActionRedirect {
			t.Fatalf("%s: ожидался redirect", target)
		}
		second := f.Decide(httptest.NewRequest(http.MethodGet, first.Location, nil))
		if second.Action != ActionPass || second.Kind != locale.KindCountryPrefixed {
			t.Errorf("%s → %s: повторное решение %s/%s, ожидался pass/country_prefixed",
				target, first.Location, second.Action, second.Kind)
		}
	}
}

func TestFilter_AcceptLanguageHint(t *testing.T) {
	tests := []struct {
		name   string
		hint   bool
		cookie string
		want   string
	}{
		{"подсказка выключена", false, "", "/us/shop"},
		{"подсказка включена", true, "", "/ca/shop"},
		{"cookie важнее подсказки", true, "au", "/au/shop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFilter(tt.hint)
			r := httptest.NewRequest(http.MethodGet, "/shop", nil)
			r.Header.Set("Accept-Language", "en-CA,en;q=0.8")
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: locale.CookieName, Value: tt.cookie})
			}
			if d := f.Decide(r); d.Location != tt.want {
				t.Errorf("Location = %q, ожидался %q", d.Location, tt.want)
			}
		})
	}
}

func TestFilter_Middleware(t *testing.T) {
	f := newTestFilter(false)
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	h := f.Middleware()(next)

	// Редирект
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/shop?x=1", nil))
	if w.Code != http.StatusFound {
		t.Fatalf("статус = %d, ожидался 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/us/shop?x=1" {
		t.Errorf("Location = %q, ожидался /us/shop?x=1", loc)
	}
	if called {
		t.Error("следующий handler не должен вызываться при редиректе")
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("фильтр не должен устанавливать cookie")
	}

	// Pass
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/us/shop", nil))
	if w.Code != http.StatusOK || !called {
		t.Errorf("статус = %d, called = %v; ожидался проход к handler", w.Code, called)
	}
}
