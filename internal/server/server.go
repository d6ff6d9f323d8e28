// Пакет server — HTTP-сервер Storefront с graceful shutdown.
// Снаружи — HTTP Entry Router, внутри — chi-движок страниц и API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/storefront/internal/api/errors"
	"github.com/bigkaa/goartstore/storefront/internal/api/generated"
	"github.com/bigkaa/goartstore/storefront/internal/api/middleware"
	"github.com/bigkaa/goartstore/storefront/internal/config"
	"github.com/bigkaa/goartstore/storefront/internal/edge"
	"github.com/bigkaa/goartstore/storefront/internal/entry"
	"github.com/bigkaa/goartstore/storefront/internal/locale"
	"github.com/bigkaa/goartstore/storefront/internal/pages/static"
)

// adminPrefix — служебный API, требующий JWT с ролью admin.
const adminPrefix = "/api/v1/admin/"

// apiPrefix — API, проверяемый по OpenAPI-контракту.
const apiPrefix = "/api/v1/"

// Deps — компоненты, из которых собирается сервер.
type Deps struct {
	// API — реализация generated.ServerInterface
	API generated.ServerInterface
	// Pages — обработчик страниц /{country} и /{country}/*
	Pages http.Handler
	// Classifier — общий классификатор путей для Entry Router и Edge Filter
	Classifier *locale.Classifier
	// JWTAuth — JWT middleware admin API (nil — admin API отключён)
	JWTAuth *middleware.JWTAuth
	// Validator — проверка запросов по OpenAPI (nil — без проверки)
	Validator func(http.Handler) http.Handler
}

// Server — HTTP-сервер Storefront.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      NewHandler(cfg, logger, deps),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger,
		cfg:    cfg,
	}
}

// NewHandler собирает цепочку обработки запроса:
// Entry Router → chi (метрики, лог, Edge Filter, auth, валидация) → API / страницы.
func NewHandler(cfg *config.Config, logger *slog.Logger, deps Deps) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	filter := edge.New(edge.Options{
		Classifier:         deps.Classifier,
		DefaultCountry:     cfg.DefaultCountry,
		AcceptLanguageHint: cfg.AcceptLanguageHint,
		Logger:             logger,
	})
	router.Use(filter.Middleware())

	router.Use(onlyUnder(adminPrefix, adminAuth(deps.JWTAuth)))
	if deps.Validator != nil {
		router.Use(onlyUnder(apiPrefix, deps.Validator))
	}

	// API через HandlerFromMux (oapi-codegen chi-server).
	generated.HandlerWithOptions(deps.API, generated.ChiServerOptions{
		BaseRouter: router,
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			apierrors.ValidationError(w, err.Error())
		},
	})

	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))

	// Страницы витрины. Статика под страной (/uk/logo.png) сюда не попадает.
	pages := pagesOnly(deps.Classifier, deps.Pages)
	router.Get("/{country:[a-z]{2}}", pages.ServeHTTP)
	router.Get("/{country:[a-z]{2}}/*", pages.ServeHTTP)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			apierrors.NotFound(w, "Endpoint не найден")
			return
		}
		http.NotFound(w, r)
	})

	return entry.New(router, entry.Options{
		Classifier:     deps.Classifier,
		DefaultCountry: cfg.DefaultCountry,
		LegacyPrefix:   cfg.LegacyPrefix,
		Logger:         logger,
	})
}

// onlyUnder применяет mw только к путям с префиксом prefix.
func onlyUnder(prefix string, mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, prefix) {
				wrapped.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// adminAuth — JWT + роль admin. Без JWTAuth admin API недоступен.
func adminAuth(jwtAuth *middleware.JWTAuth) func(http.Handler) http.Handler {
	if jwtAuth == nil {
		return func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				apierrors.Unauthorized(w, "Admin API отключён: не задан SF_JWT_JWKS_URL")
			})
		}
	}
	requireAdmin := middleware.RequireAdmin()
	jwtMiddleware := jwtAuth.Middleware()
	return func(next http.Handler) http.Handler {
		return jwtMiddleware(requireAdmin(next))
	}
}

// pagesOnly отдаёт 404 для статики под префиксом страны.
func pagesOnly(classifier *locale.Classifier, pages http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if classifier.Classify(r.URL.Path).Kind == locale.KindAsset {
			http.NotFound(w, r)
			return
		}
		pages.ServeHTTP(w, r)
	})
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
