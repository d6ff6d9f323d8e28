// Пакет store — Country Resolution Store: набор известных стран
// и выбранная страна клиента, с сохранением выбора в cookie
// и клиентском хранилище.
//
// Один Store принадлежит одному клиенту (вкладке / запросу),
// изменяют его только Locale Sync Effect и явное переключение страны.
// Потокобезопасен через sync.RWMutex.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
	"github.com/bigkaa/goartstore/storefront/internal/locale"
)

// ErrUnknownCountry — страна отсутствует в загруженном наборе.
var ErrUnknownCountry = errors.New("страна отсутствует в наборе стран")

// Loader — источник набора стран (CatalogService или Country API).
type Loader interface {
	LoadCountries(ctx context.Context) ([]model.Country, error)
}

// Persister сохраняет выбранную страну (cookie, клиентское хранилище).
type Persister interface {
	Persist(ctx context.Context, code string) error
}

// Options — параметры Store.
type Options struct {
	// Loader — источник стран
	Loader Loader
	// Persisters — вызываются после каждого изменения выбора, по порядку
	Persisters []Persister
	// Persisted — ранее сохранённый выбор для гидратации после загрузки
	Persisted locale.SelectionSource
	// DefaultCountry — страна по умолчанию (общая константа конфигурации)
	DefaultCountry string
	// Logger — логгер (nil — slog.Default)
	Logger *slog.Logger
}

// Store — состояние выбора страны одного клиента.
type Store struct {
	mu        sync.RWMutex
	countries []model.Country
	selected  *model.Country
	loaded    bool
	// version увеличивается при каждой замене набора стран.
	version uint64

	loader         Loader
	persisters     []Persister
	persisted      locale.SelectionSource
	defaultCountry string
	logger         *slog.Logger
}

// New создаёт пустой Store. Набор стран загружается через LoadCountries.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		loader:         opts.Loader,
		persisters:     opts.Persisters,
		persisted:      opts.Persisted,
		defaultCountry: model.NormalizeCode(opts.DefaultCountry),
		logger:         logger.With(slog.String("component", "country_store")),
	}
}

// LoadCountries загружает набор стран один раз.
// При ошибке или пустом ответе подставляется fallback-набор, поэтому
// после вызова Store никогда не пуст и выбранная страна не nil.
func (s *Store) LoadCountries(ctx context.Context) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return
	}

	var countries []model.Country
	if s.loader != nil {
		var err error
		countries, err = s.loader.LoadCountries(ctx)
		if err != nil {
			s.logger.Warn("Ошибка загрузки стран, используется fallback-набор",
				slog.String("error", err.Error()),
			)
			countries = nil
		}
	}
	countries = model.NormalizeCountries(countries)
	if len(countries) == 0 {
		countries = model.FallbackCountries()
	}

	// Сохранённый выбор читается до захвата lock: источник может обращаться к I/O
	persistedCode := ""
	if s.persisted != nil {
		if code, ok := s.persisted.SelectedCountryCode(); ok {
			persistedCode = model.NormalizeCode(code)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return
	}

	s.countries = countries
	s.loaded = true
	s.version++
	s.selected = s.initialSelectionLocked(persistedCode)
}

// initialSelectionLocked выбирает страну после загрузки:
// текущий выбор → сохранённый → default → первая в наборе.
func (s *Store) initialSelectionLocked(persistedCode string) *model.Country {
	candidates := []string{persistedCode, s.defaultCountry}
	if s.selected != nil {
		candidates = append([]string{s.selected.CountryCode}, candidates...)
	}
	for _, code := range candidates {
		if code == "" {
			continue
		}
		if c, ok := model.FindCountry(s.countries, code); ok {
			return &c
		}
	}
	c := s.countries[0]
	return &c
}

// GetCountryByCode ищет страну без учёта регистра.
func (s *Store) GetCountryByCode(code string) (model.Country, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.FindCountry(s.countries, code)
}

// SetSelectedCountry заменяет выбранную страну и затем сохраняет выбор
// во все Persisters. Сохранение всегда следует за изменением в памяти,
// никогда не предшествует ему (last-writer-wins).
// Повторный вызов с той же страной безопасен: меняется только запись в хранилища.
func (s *Store) SetSelectedCountry(ctx context.Context, country model.Country) error {
	s.mu.Lock()
	c, ok := model.FindCountry(s.countries, country.CountryCode)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownCountry, country.CountryCode)
	}
	prev := ""
	if s.selected != nil {
		prev = s.selected.CountryCode
	}
	s.selected = &c
	s.mu.Unlock()

	if prev != c.CountryCode {
		s.logger.Debug("Выбрана страна",
			slog.String("from", prev),
			slog.String("to", c.CountryCode),
		)
	}

	var errs []error
	for _, p := range s.persisters {
		if err := p.Persist(ctx, c.CountryCode); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("Ошибка сохранения выбранной страны",
			slog.String("country", c.CountryCode),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("сохранение выбранной страны: %w", err)
	}
	return nil
}

// Selected возвращает выбранную страну.
func (s *Store) Selected() (model.Country, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return model.Country{}, false
	}
	return *s.selected, true
}

// SelectedCountryCode реализует locale.SelectionSource.
func (s *Store) SelectedCountryCode() (string, bool) {
	c, ok := s.Selected()
	if !ok {
		return "", false
	}
	return c.CountryCode, true
}

// Countries возвращает копию набора стран.
func (s *Store) Countries() []model.Country {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Country, len(s.countries))
	copy(out, s.countries)
	return out
}

// Loaded сообщает, загружен ли набор стран.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Version возвращает номер версии набора стран.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
