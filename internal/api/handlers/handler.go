// handler.go — основной обработчик API, реализующий generated.ServerInterface.
// Объединяет health, операции выбора страны и служебный admin API.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bigkaa/goartstore/storefront/internal/api/generated"
	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
	"github.com/bigkaa/goartstore/storefront/internal/locale"
	"github.com/bigkaa/goartstore/storefront/internal/repository"
	"github.com/bigkaa/goartstore/storefront/internal/service"
)

// APIHandler — основной обработчик API Storefront.
type APIHandler struct {
	health     *HealthHandler
	visitors   *service.VisitorService
	catalog    *service.CatalogService
	urls       *locale.URLBuilder
	codes      *locale.CodeSet
	selections repository.SelectionRepository
	logger     *slog.Logger
}

// Проверка реализации интерфейса на этапе компиляции.
var _ generated.ServerInterface = (*APIHandler)(nil)

// NewAPIHandler создаёт основной обработчик API.
// selections — хранилище выбора посетителей для статистики (nil — статистика недоступна).
func NewAPIHandler(
	health *HealthHandler,
	visitors *service.VisitorService,
	catalog *service.CatalogService,
	urls *locale.URLBuilder,
	codes *locale.CodeSet,
	selections repository.SelectionRepository,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:     health,
		visitors:   visitors,
		catalog:    catalog,
		urls:       urls,
		codes:      codes,
		selections: selections,
		logger:     logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// mapCountry конвертирует model.Country в API-модель.
func mapCountry(c model.Country) generated.Country {
	return generated.Country{
		Id:             c.ID,
		Name:           c.Name,
		CountryCode:    c.CountryCode,
		Currency:       c.Currency,
		CurrencySymbol: c.CurrencySymbol,
		Timezone:       c.Timezone,
		IsActive:       c.IsActive,
		SortOrder:      c.SortOrder,
	}
}

func mapCountries(countries []model.Country) []generated.Country {
	result := make([]generated.Country, 0, len(countries))
	for _, c := range countries {
		result = append(result, mapCountry(c))
	}
	return result
}
