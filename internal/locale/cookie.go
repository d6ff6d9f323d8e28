// cookie.go — cookie выбранной страны: единственный канал согласования
// между клиентским Store и следующими серверными решениями о редиректе.
package locale

import (
	"net/http"
	"time"

	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
)

// CookieName — имя cookie выбранной страны.
const CookieName = "selected-country"

// CookieMaxAge — срок жизни cookie (1 год).
const CookieMaxAge = 365 * 24 * 60 * 60

// CountryFromCookie возвращает страну из cookie, если она входит в allow-list.
func CountryFromCookie(r *http.Request, codes *CodeSet) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	code := model.NormalizeCode(cookie.Value)
	if !codes.Contains(code) {
		return "", false
	}
	return code, true
}

// NewCountryCookie создаёт cookie выбранной страны.
// HttpOnly=false: cookie читается клиентским кодом для гидратации Store.
func NewCountryCookie(code string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    model.NormalizeCode(code),
		Path:     "/",
		MaxAge:   CookieMaxAge,
		Expires:  time.Now().Add(CookieMaxAge * time.Second),
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// RequestSelection — SelectionSource поверх cookie входящего запроса.
type RequestSelection struct {
	r     *http.Request
	codes *CodeSet
}

// NewRequestSelection создаёт источник выбора из cookie запроса.
func NewRequestSelection(r *http.Request, codes *CodeSet) *RequestSelection {
	return &RequestSelection{r: r, codes: codes}
}

// SelectedCountryCode реализует SelectionSource.
func (s *RequestSelection) SelectedCountryCode() (string, bool) {
	return CountryFromCookie(s.r, s.codes)
}
