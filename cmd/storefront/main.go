// Точка входа Storefront — витрина с маршрутизацией по стране в URL.
// Загружает конфигурацию, опционально подключается к PostgreSQL (хранилище
// выбора страны), создаёт каталог стран, Entry Router, Edge Filter,
// API и страницы, запускает мониторинг зависимостей и HTTP-сервер
// с graceful shutdown.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/bigkaa/goartstore/storefront/internal/api/generated"
	"github.com/bigkaa/goartstore/storefront/internal/api/handlers"
	"github.com/bigkaa/goartstore/storefront/internal/api/middleware"
	"github.com/bigkaa/goartstore/storefront/internal/config"
	"github.com/bigkaa/goartstore/storefront/internal/countryclient"
	"github.com/bigkaa/goartstore/storefront/internal/database"
	"github.com/bigkaa/goartstore/storefront/internal/locale"
	"github.com/bigkaa/goartstore/storefront/internal/pages"
	"github.com/bigkaa/goartstore/storefront/internal/repository"
	"github.com/bigkaa/goartstore/storefront/internal/server"
	"github.com/bigkaa/goartstore/storefront/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Storefront запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("default_country", cfg.DefaultCountry),
		slog.Any("valid_countries", cfg.ValidCountries),
		slog.String("legacy_prefix", cfg.LegacyPrefix),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Клиентское хранилище выбора страны: PostgreSQL или память
	var (
		selections repository.SelectionRepository
		checkers   []handlers.ReadinessChecker
		depOpts    = service.DephealthOptions{
			ServiceID:     "storefront",
			Group:         cfg.DephealthGroup,
			CheckInterval: cfg.DephealthCheckInterval,
		}
	)
	if cfg.DatabaseEnabled() {
		// 3.1 Миграции
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		// 3.2 Подключение (pgxpool)
		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		// 3.3 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
		pgDB := database.OpenDB(pool)
		defer pgDB.Close()

		selections = repository.NewSelectionRepository(pool)
		checkers = append(checkers, database.NewReadinessChecker(pool))
		depOpts.DB = pgDB
		depOpts.PostgresURL = cfg.DatabaseURL("postgres")
	} else {
		logger.Warn("SF_DB_HOST не задан, выбор страны хранится в памяти процесса",
			slog.Int("max_visitors", cfg.SelectionMemorySize),
			slog.Duration("ttl", cfg.SelectionMemoryTTL),
		)
		selections = repository.NewBoundedMemorySelectionRepository(cfg.SelectionMemorySize, cfg.SelectionMemoryTTL)
	}

	// 4. Country API клиент и общий каталог стран
	countryClient, err := countryclient.New(countryclient.Options{
		BaseURL:      cfg.CountryAPIURL,
		CACertPath:   cfg.CountryAPICACertPath,
		Timeout:      cfg.CountryAPITimeout,
		ClientID:     cfg.CountryAPIClientID,
		ClientSecret: cfg.CountryAPIClientSecret,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента Country API", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if !countryClient.Configured() {
		logger.Warn("SF_COUNTRY_API_URL не задан, используется fallback-набор стран")
	}

	codes := locale.NewCodeSet(cfg.ValidCountries...)
	catalog := service.NewCatalogService(countryClient, codes, cfg.CountryCacheTTL, logger)
	checkers = append(checkers, service.NewCatalogReadinessChecker(catalog))

	// Прогрев кэша: расхождение allow-list и каталога видно в логе сразу
	if _, err := catalog.LoadCountries(ctx); err != nil {
		logger.Warn("Ошибка прогрева каталога стран", slog.String("error", err.Error()))
	}

	// 5. Общие компоненты маршрутизации по стране
	classifier := locale.NewClassifier(codes, cfg.ExcludedPrefixes...)
	urls := locale.NewURLBuilder(cfg.DefaultCountry, codes, cfg.CatalogAPIURL)
	visitors := service.NewVisitorService(catalog, selections, codes, cfg.DefaultCountry, cfg.CookieSecure, logger)

	// 6. topologymetrics — мониторинг зависимостей (Country API + PostgreSQL)
	depOpts.CountryAPIURL = cfg.CountryAPIURL
	dephealthSvc, err := service.NewDephealthService(depOpts, logger)
	switch {
	case errors.Is(err, service.ErrNoDependencies):
		logger.Info("Мониторинг зависимостей не запущен: нет внешних зависимостей")
	case err != nil:
		logger.Warn("Ошибка создания topologymetrics, мониторинг зависимостей отключён",
			slog.String("error", err.Error()),
		)
	default:
		if err := dephealthSvc.Start(ctx); err != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		} else {
			defer dephealthSvc.Stop()
			if cfg.CountryAPIURL != "" {
				checkers = append(checkers, service.NewDependencyReadinessChecker(dephealthSvc, service.DepCountryAPI, false))
			}
		}
	}

	// 7. API handler (реализует generated.ServerInterface)
	healthHandler := handlers.NewHealthHandler(checkers...)
	apiHandler := handlers.NewAPIHandler(healthHandler, visitors, catalog, urls, codes, selections, logger)

	// 8. Проверка запросов по OpenAPI-контракту
	doc, err := generated.GetSwagger()
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI-контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}
	validator, err := middleware.OpenAPIValidator(doc)
	if err != nil {
		logger.Error("Ошибка создания OpenAPI validator", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. JWT middleware для admin API (опционально)
	var jwtAuth *middleware.JWTAuth
	if cfg.AdminAPIEnabled() {
		jwtAuth, err = middleware.NewJWTAuth(
			cfg.JWTJWKSURL,
			cfg.JWTCACertPath,
			cfg.JWTIssuer,
			cfg.RoleAdminGroups,
			logger,
		)
		if err != nil {
			logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("JWT middleware инициализирован",
			slog.String("jwks_url", cfg.JWTJWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)
	} else {
		logger.Info("SF_JWT_JWKS_URL не задан, admin API отключён")
	}

	// 10. HTTP-сервер
	srv := server.New(cfg, logger, server.Deps{
		API:        apiHandler,
		Pages:      pages.NewHandler(visitors, urls, logger),
		Classifier: classifier,
		JWTAuth:    jwtAuth,
		Validator:  validator,
	})
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Storefront остановлен")
}
