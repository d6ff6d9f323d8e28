// Пакет locale — чистые функции маршрутизации по стране:
// статический allow-list кодов, единый классификатор путей,
// построение и разбор country-prefixed URL.
// Пакет не выполняет I/O и не хранит изменяемого состояния.
package locale

import (
	"sort"

	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
)

// CodeSet — статический набор допустимых кодов стран (Valid Country Code Set).
// Используется редиректорами без обращения к Country API.
// После создания только читается, безопасен для конкурентного использования.
type CodeSet struct {
	codes   map[string]struct{}
	ordered []string
}

// NewCodeSet создаёт набор из переданных кодов.
// Коды нормализуются к нижнему регистру, невалидные отбрасываются.
func NewCodeSet(codes ...string) *CodeSet {
	s := &CodeSet{codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		c = model.NormalizeCode(c)
		if !model.IsValidCode(c) {
			continue
		}
		if _, ok := s.codes[c]; ok {
			continue
		}
		s.codes[c] = struct{}{}
		s.ordered = append(s.ordered, c)
	}
	return s
}

// Contains проверяет точное (каноническое, lowercase) вхождение кода.
func (s *CodeSet) Contains(code string) bool {
	if s == nil {
		return false
	}
	_, ok := s.codes[code]
	return ok
}

// Codes возвращает коды в порядке добавления.
func (s *CodeSet) Codes() []string {
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Len возвращает количество кодов.
func (s *CodeSet) Len() int {
	return len(s.ordered)
}

// Drift — расхождение allow-list и загруженного набора стран.
type Drift struct {
	// MissingInSet — страны каталога, которых нет в allow-list
	// (их страницы будут перенаправляться на страну по умолчанию).
	MissingInSet []string
	// UnknownToCatalog — коды allow-list, отсутствующие в каталоге
	// (Locale Sync пометит их как неизвестные).
	UnknownToCatalog []string
}

// Empty сообщает об отсутствии расхождений.
func (d Drift) Empty() bool {
	return len(d.MissingInSet) == 0 && len(d.UnknownToCatalog) == 0
}

// Reconcile сравнивает allow-list с набором стран каталога.
func (s *CodeSet) Reconcile(countries []model.Country) Drift {
	var d Drift
	catalog := make(map[string]bool, len(countries))
	for _, c := range countries {
		catalog[c.CountryCode] = true
		if !s.Contains(c.CountryCode) {
			d.MissingInSet = append(d.MissingInSet, c.CountryCode)
		}
	}
	for _, code := range s.ordered {
		if !catalog[code] {
			d.UnknownToCatalog = append(d.UnknownToCatalog, code)
		}
	}
	sort.Strings(d.MissingInSet)
	sort.Strings(d.UnknownToCatalog)
	return d
}
