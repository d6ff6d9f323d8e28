// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Storefront мониторит до двух зависимостей:
//   - Country API — HTTP checker к endpoint списка стран (не critical: есть fallback-набор)
//   - PostgreSQL — SQL checker через существующий pgxpool (critical, если БД включена)
//
// Метрики app_dependency_* доступны на /metrics.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker для Country API
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrNoDependencies — ни одна зависимость не сконфигурирована.
var ErrNoDependencies = errors.New("нет зависимостей для мониторинга")

// Имена зависимостей в метриках.
const (
	DepCountryAPI = "country-api"
	DepPostgres   = "postgresql"
)

// DephealthOptions — параметры мониторинга зависимостей.
type DephealthOptions struct {
	// ServiceID — имя вершины графа (storefront)
	ServiceID string
	// Group — группа в метриках (SF_DEPHEALTH_GROUP)
	Group string
	// CountryAPIURL — базовый URL Country API (пустой — не мониторится)
	CountryAPIURL string
	// DB — *sql.DB из pgxpool (nil — PostgreSQL не мониторится)
	DB *sql.DB
	// PostgresURL — URL PostgreSQL для лейблов метрик
	PostgresURL string
	// CheckInterval — интервал проверки (SF_DEPHEALTH_CHECK_INTERVAL)
	CheckInterval time.Duration
	// TLSSkipVerify — не проверять сертификат Country API
	TLSSkipVerify bool
	// Registerer — Prometheus registerer (nil — глобальный)
	Registerer prometheus.Registerer
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	deps   []string
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга.
// Возвращает ErrNoDependencies, если не задан ни Country API, ни БД.
func NewDephealthService(opts DephealthOptions, logger *slog.Logger) (*DephealthService, error) {
	dhOpts := []dephealth.Option{dephealth.WithLogger(logger)}
	var deps []string

	if opts.CountryAPIURL != "" {
		dhOpts = append(dhOpts, dephealth.HTTP(DepCountryAPI,
			dephealth.FromURL(opts.CountryAPIURL),
			dephealth.WithHTTPHealthPath(countryHealthPath(opts.CountryAPIURL)),
			dephealth.CheckInterval(opts.CheckInterval),
			dephealth.Critical(false),
			dephealth.WithHTTPTLSSkipVerify(opts.TLSSkipVerify),
		))
		deps = append(deps, DepCountryAPI)
	}

	if opts.DB != nil {
		dhOpts = append(dhOpts, dephealth.AddDependency(DepPostgres, dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(opts.DB)),
			dephealth.FromURL(opts.PostgresURL),
			dephealth.CheckInterval(opts.CheckInterval),
			dephealth.Critical(true),
		))
		deps = append(deps, DepPostgres)
	}

	if len(deps) == 0 {
		return nil, ErrNoDependencies
	}
	if opts.Registerer != nil {
		dhOpts = append(dhOpts, dephealth.WithRegisterer(opts.Registerer))
	}

	dh, err := dephealth.New(opts.ServiceID, opts.Group, dhOpts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		deps:   deps,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// countryHealthPath — путь endpoint списка стран относительно хоста Country API.
func countryHealthPath(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "/countries"
	}
	return strings.TrimRight(parsed.Path, "/") + "/countries"
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен", slog.Any("dependencies", ds.deps))
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — "имя:host:port", значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

// DependencyHealthy сообщает состояние зависимости name.
// known=false — проверка ещё не выполнялась или зависимость не мониторится.
func (ds *DephealthService) DependencyHealthy(name string) (healthy, known bool) {
	for key, ok := range ds.dh.Health() {
		if strings.HasPrefix(key, name+":") {
			return ok, true
		}
	}
	return false, false
}
