// Пакет pages — серверные страницы витрины на templ-компонентах.
// Страницы минимальны: переключатель стран, символ валюты и ссылки
// на Catalog API с параметром cn.
package pages

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// CountryLink — пункт переключателя стран.
type CountryLink struct {
	Code     string
	Name     string
	Href     string
	Selected bool
}

// PageData — данные страницы витрины.
type PageData struct {
	// Title — заголовок раздела
	Title string
	// CountryCode, CountryName, CurrencySymbol — выбранная страна
	CountryCode    string
	CountryName    string
	CurrencySymbol string
	// Countries — переключатель стран
	Countries []CountryLink
	// CatalogURL — URL Catalog API для раздела (с cn)
	CatalogURL string
	// UnknownCountry — страна из URL, отсутствующая в наборе стран
	UnknownCountry string
}

// writer накапливает первую ошибку записи.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

func esc(s string) string {
	return templ.EscapeString(s)
}

func href(s string) string {
	return templ.EscapeString(string(templ.URL(s)))
}

// Layout — HTML-каркас страницы.
func Layout(data PageData, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		out := &writer{w: w}
		out.printf(`<!DOCTYPE html><html lang="%s"><head><meta charset="utf-8">`, esc(data.CountryCode))
		out.printf(`<title>%s · Storefront</title>`, esc(data.Title))
		out.printf(`<link rel="stylesheet" href="/static/css/storefront.css"></head><body>`)
		if out.err != nil {
			return out.err
		}
		if err := CountrySwitcher(data.Countries).Render(ctx, w); err != nil {
			return err
		}
		if data.UnknownCountry != "" {
			out.printf(`<p class="notice" role="status">Страна %s недоступна, показана витрина %s</p>`,
				esc(strings.ToUpper(data.UnknownCountry)), esc(data.CountryName))
		}
		out.printf(`<main>`)
		if out.err != nil {
			return out.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		out.printf(`</main></body></html>`)
		return out.err
	})
}

// CountrySwitcher — список стран со ссылками на текущий раздел под каждой страной.
func CountrySwitcher(links []CountryLink) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		out := &writer{w: w}
		out.printf(`<nav class="country-switcher"><ul>`)
		for _, l := range links {
			if l.Selected {
				out.printf(`<li aria-current="true"><a href="%s" data-country="%s"><strong>%s</strong></a></li>`,
					href(l.Href), esc(l.Code), esc(l.Name))
				continue
			}
			out.printf(`<li><a href="%s" data-country="%s">%s</a></li>`,
				href(l.Href), esc(l.Code), esc(l.Name))
		}
		out.printf(`</ul></nav>`)
		return out.err
	})
}

// Home — главная страница страны.
func Home(data PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		out := &writer{w: w}
		out.printf(`<h1>%s</h1>`, esc(data.CountryName))
		out.printf(`<p>Цены в %s</p>`, esc(data.CurrencySymbol))
		out.printf(`<a class="catalog" href="%s">Каталог</a>`, href(data.CatalogURL))
		return out.err
	})
}

// Section — страница раздела витрины (/{country}/...).
func Section(data PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		out := &writer{w: w}
		out.printf(`<h1>%s</h1>`, esc(data.Title))
		out.printf(`<p>%s · %s</p>`, esc(data.CountryName), esc(data.CurrencySymbol))
		out.printf(`<a class="catalog" href="%s">Товары раздела</a>`, href(data.CatalogURL))
		return out.err
	})
}
