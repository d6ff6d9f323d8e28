// Пакет static — встроенные статические ресурсы витрины.
// Раздаются по /static/*; префикс входит в bypass классификатора,
// поэтому Entry Router и Edge Filter их не трогают.
package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed css/*.css
var content embed.FS

// FileSystem возвращает http.FileSystem для обработки запросов к /static/*.
// Файлы доступны по путям вида /static/css/storefront.css.
func FileSystem() http.FileSystem {
	return http.FS(content)
}

// FS возвращает fs.FS для прямого доступа к встроенным файлам.
func FS() fs.FS {
	return content
}
