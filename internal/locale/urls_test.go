package locale

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
)

func testBuilder() *URLBuilder {
	return NewURLBuilder("us", NewCodeSet("us", "uk", "ca", "au"), "https://catalog.example.com/api/")
}

func storedSelection(code string) SelectionSource {
	return SelectionFunc(func() (string, bool) { return code, code != "" })
}

func TestWithCountryPrefix(t *testing.T) {
	b := testBuilder()

	tests := []struct {
		name string
		path string
		code string
		sel  SelectionSource
		want string
	}{
		{"добавление префикса", "/cart", "uk", nil, "/uk/cart"},
		{"идемпотентность", "/uk/cart", "uk", nil, "/uk/cart"},
		{"без ведущего слэша", "cart", "uk", nil, "/uk/cart"},
		{"корень", "/", "ca", nil, "/ca"},
		{"пустой путь", "", "ca", nil, "/ca"},
		{"замена другой страны", "/us/cart", "uk", nil, "/uk/cart"},
		{"query сохраняется", "/shop?x=1", "au", nil, "/au/shop?x=1"},
		{"похожий сегмент не срезается", "/ukulele", "uk", nil, "/uk/ukulele"},
		{"из сохранённого выбора", "/cart", "", storedSelection("ca"), "/ca/cart"},
		{"регистр кода", "/cart", "UK", nil, "/uk/cart"},
		{"нет выбора — default", "/cart", "", storedSelection(""), "/us/cart"},
		{"битый выбор — default", "/cart", "", storedSelection("c@"), "/us/cart"},
		{"nil-источник — default", "/cart", "", nil, "/us/cart"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.WithCountryPrefix(tt.path, tt.code, tt.sel)
			if got != tt.want {
				t.Errorf("WithCountryPrefix(%q, %q) = %q, ожидался %q", tt.path, tt.code, got, tt.want)
			}
			// Повторное применение не меняет результат
			if again := b.WithCountryPrefix(got, tt.code, tt.sel); again != got {
				t.Errorf("повторное применение: %q → %q", got, again)
			}
		})
	}
}

func TestExtractCountryFromPath(t *testing.T) {
	b := testBuilder()

	tests := []struct {
		path string
		want string
	}{
		{"/ca/collections", "ca"},
		{"/collections", "us"},
		{"/", "us"},
		{"", "us"},
		{"/de/shop", "de"},
		{"/DE/shop", "us"},
		{"/uk?x=1", "uk"},
	}
	for _, tt := range tests {
		if got := b.ExtractCountryFromPath(tt.path); got != tt.want {
			t.Errorf("ExtractCountryFromPath(%q) = %q, ожидался %q", tt.path, got, tt.want)
		}
	}
}

func TestBuildAPIURL(t *testing.T) {
	b := testBuilder()

	got := b.BuildAPIURL("/products", url.Values{"limit": {"20"}, "tag": {"a", "b"}}, "uk", nil)
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("результат не парсится: %v", err)
	}
	if u.Host != "catalog.example.com" || u.Path != "/api/products" {
		t.Errorf("URL = %q, ожидался https://catalog.example.com/api/products", got)
	}
	q := u.Query()
	if q.Get(CountryParam) != "uk" {
		t.Errorf("cn = %q, ожидался uk", q.Get(CountryParam))
	}
	if q.Get("limit") != "20" || len(q["tag"]) != 2 {
		t.Errorf("параметры потеряны: %v", q)
	}
}

func TestBuildAPIURL_AbsoluteEndpointAndSelection(t *testing.T) {
	b := testBuilder()

	got := b.BuildAPIURL("https://other.example.com/v2/orders?page=2", nil, "", storedSelection("au"))
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("результат не парсится: %v", err)
	}
	if u.Host != "other.example.com" {
		t.Errorf("host = %q, ожидался other.example.com", u.Host)
	}
	if u.Query().Get("page") != "2" || u.Query().Get(CountryParam) != "au" {
		t.Errorf("query = %v", u.Query())
	}
}

func TestBuildAPIURL_OverridesExistingCountryParam(t *testing.T) {
	b := testBuilder()

	got := b.BuildAPIURL("/products?cn=ca", nil, "uk", nil)
	u, _ := url.Parse(got)
	if vals := u.Query()[CountryParam]; len(vals) != 1 || vals[0] != "uk" {
		t.Errorf("cn = %v, ожидался единственный uk", vals)
	}
}

func TestCountryFromCookie(t *testing.T) {
	codes := NewCodeSet("us", "ca")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := CountryFromCookie(r, codes); ok {
		t.Error("без cookie ожидался false")
	}

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "CA"})
	if code, ok := CountryFromCookie(r, codes); !ok || code != "ca" {
		t.Errorf("CountryFromCookie = %q, %v; ожидался ca", code, ok)
	}

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(&http.Cookie{Name: CookieName, Value: "de"})
	if _, ok := CountryFromCookie(r2, codes); ok {
		t.Error("страна вне allow-list не должна приниматься")
	}
}

func TestNewCountryCookie(t *testing.T) {
	c := NewCountryCookie("UK", true)
	if c.Name != CookieName || c.Value != "uk" || c.Path != "/" {
		t.Errorf("cookie = %+v", c)
	}
	if c.MaxAge != 31536000 {
		t.Errorf("MaxAge = %d, ожидался 31536000", c.MaxAge)
	}
	if !c.Secure {
		t.Error("Secure = false, ожидался true")
	}
}

func TestReconcile(t *testing.T) {
	codes := NewCodeSet("us", "uk", "nz")
	d := codes.Reconcile(model.FallbackCountries())

	if len(d.MissingInSet) != 2 || d.MissingInSet[0] != "au" || d.MissingInSet[1] != "ca" {
		t.Errorf("MissingInSet = %v, ожидался [au ca]", d.MissingInSet)
	}
	if len(d.UnknownToCatalog) != 1 || d.UnknownToCatalog[0] != "nz" {
		t.Errorf("UnknownToCatalog = %v, ожидался [nz]", d.UnknownToCatalog)
	}
	if NewCodeSet("us", "uk", "ca", "au").Reconcile(model.FallbackCountries()).Empty() != true {
		t.Error("ожидалось отсутствие расхождений для совпадающих наборов")
	}
}

func TestRegionFromAcceptLanguage(t *testing.T) {
	codes := NewCodeSet("us", "uk", "ca", "au")

	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"en-GB,en;q=0.8", "uk", true},
		{"fr-CA;q=0.9,en-AU;q=0.5", "ca", true},
		{"de-DE,en-AU;q=0.5", "au", true},
		{"en", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := RegionFromAcceptLanguage(tt.header, codes)
		if got != tt.want || ok != tt.ok {
			t.Errorf("RegionFromAcceptLanguage(%q) = %q, %v; ожидалось %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCurrencyForCode(t *testing.T) {
	tests := map[string]string{
		"us": "USD",
		"ca": "CAD",
		"uk": "GBP",
		"au": "AUD",
	}
	for code, want := range tests {
		if got := CurrencyForCode(code); got != want {
			t.Errorf("CurrencyForCode(%q) = %q, ожидался %q", code, got, want)
		}
	}
}
