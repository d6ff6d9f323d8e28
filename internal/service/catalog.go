// Пакет service — бизнес-логика Storefront.
// CatalogService — общий для процесса кэш набора стран с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/storefront/internal/countryclient"
	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
	"github.com/bigkaa/goartstore/storefront/internal/locale"
)

// Prometheus-метрики каталога стран.
var (
	catalogHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sf_catalog_cache_hits_total",
		Help: "Общее количество попаданий в кэш набора стран.",
	})
	catalogMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sf_catalog_cache_misses_total",
		Help: "Общее количество промахов кэша набора стран.",
	})
	catalogFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sf_catalog_fallback_total",
		Help: "Количество подстановок fallback-набора стран по причине.",
	}, []string{"reason"})
)

// catalogKey — единственный ключ кэша.
const catalogKey = "countries"

// Источник набора стран в кэше.
const (
	SourceAPI      = "api"
	SourceFallback = "fallback"
)

// CountrySource — источник стран (Country API).
type CountrySource interface {
	ListCountries(ctx context.Context) ([]model.Country, error)
}

// catalogEntry — закэшированный набор стран.
type catalogEntry struct {
	countries []model.Country
	source    string
	loadedAt  time.Time
}

// CatalogStatus — состояние каталога для readiness и диагностики.
type CatalogStatus struct {
	Source   string
	Count    int
	LoadedAt time.Time
	Cached   bool
}

// CatalogService — кэш набора стран, общий для всех запросов процесса.
// Неудачная загрузка деградирует к fallback-набору на время TTL,
// внутренних повторов нет.
type CatalogService struct {
	source CountrySource
	codes  *locale.CodeSet
	cache  *expirable.LRU[string, *catalogEntry]
	logger *slog.Logger

	// loadMu — только один запрос к Country API одновременно.
	loadMu sync.Mutex
}

// NewCatalogService создаёт каталог.
// ttl — время жизни набора стран в кэше.
func NewCatalogService(source CountrySource, codes *locale.CodeSet, ttl time.Duration, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		source: source,
		codes:  codes,
		cache:  expirable.NewLRU[string, *catalogEntry](1, nil, ttl),
		logger: logger.With(slog.String("component", "catalog")),
	}
}

// LoadCountries возвращает нормализованный набор стран.
// Никогда не возвращает пустой набор: при ошибке источника — fallback.
// Если ctx отменён во время загрузки, fallback отдаётся только этому
// вызову вместе с ctx.Err() и в кэш не попадает.
// Реализует store.Loader.
func (s *CatalogService) LoadCountries(ctx context.Context) ([]model.Country, error) {
	if entry, ok := s.cache.Get(catalogKey); ok {
		catalogHitsTotal.Inc()
		return entry.countries, nil
	}
	catalogMissesTotal.Inc()

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	// Double-check: набор мог загрузить конкурентный запрос
	if entry, ok := s.cache.Get(catalogKey); ok {
		return entry.countries, nil
	}

	entry := s.fetch(ctx)
	if ctx.Err() != nil && entry.source == SourceFallback {
		return entry.countries, fmt.Errorf("загрузка стран прервана: %w", ctx.Err())
	}
	s.cache.Add(catalogKey, entry)
	s.reportDrift(entry.countries)
	return entry.countries, nil
}

// Status возвращает состояние закэшированного набора.
func (s *CatalogService) Status() CatalogStatus {
	entry, ok := s.cache.Peek(catalogKey)
	if !ok {
		return CatalogStatus{}
	}
	return CatalogStatus{
		Source:   entry.source,
		Count:    len(entry.countries),
		LoadedAt: entry.loadedAt,
		Cached:   true,
	}
}

// Invalidate сбрасывает кэш; следующий запрос перезагрузит набор.
func (s *CatalogService) Invalidate() {
	s.cache.Remove(catalogKey)
	s.logger.Info("Кэш набора стран сброшен")
}

// fetch запрашивает страны у источника и приводит их к инвариантам витрины.
func (s *CatalogService) fetch(ctx context.Context) *catalogEntry {
	raw, err := s.source.ListCountries(ctx)
	switch {
	case errors.Is(err, countryclient.ErrNotConfigured):
		catalogFallbackTotal.WithLabelValues("not_configured").Inc()
		s.logger.Info("Country API не сконфигурирован, используется fallback-набор стран")
		return s.fallback()
	case err != nil && ctx.Err() != nil:
		catalogFallbackTotal.WithLabelValues("canceled").Inc()
		s.logger.Debug("Загрузка стран прервана вызывающим, fallback не кэшируется",
			slog.String("error", err.Error()),
		)
		return s.fallback()
	case err != nil:
		catalogFallbackTotal.WithLabelValues("fetch_error").Inc()
		s.logger.Warn("Ошибка загрузки стран, используется fallback-набор",
			slog.String("error", err.Error()),
		)
		return s.fallback()
	}

	countries := model.NormalizeCountries(raw)
	if len(countries) == 0 {
		catalogFallbackTotal.WithLabelValues("empty").Inc()
		s.logger.Warn("Country API вернул пустой набор активных стран, используется fallback-набор",
			slog.Int("raw_count", len(raw)),
		)
		return s.fallback()
	}

	for i := range countries {
		if countries[i].Currency == "" {
			countries[i].Currency = locale.CurrencyForCode(countries[i].CountryCode)
		}
	}

	s.logger.Info("Набор стран загружен", slog.Int("count", len(countries)))
	return &catalogEntry{countries: countries, source: SourceAPI, loadedAt: time.Now()}
}

func (s *CatalogService) fallback() *catalogEntry {
	return &catalogEntry{countries: model.FallbackCountries(), source: SourceFallback, loadedAt: time.Now()}
}

// reportDrift логирует расхождение allow-list и набора стран.
func (s *CatalogService) reportDrift(countries []model.Country) {
	drift := s.codes.Reconcile(countries)
	if drift.Empty() {
		return
	}
	s.logger.Warn("Allow-list стран расходится с каталогом",
		slog.Any("missing_in_allow_list", drift.MissingInSet),
		slog.Any("unknown_to_catalog", drift.UnknownToCatalog),
	)
}
