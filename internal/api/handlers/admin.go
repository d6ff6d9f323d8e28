// admin.go — служебный admin API: перезагрузка набора стран,
// статистика и удаление выбора стран посетителей. Доступ — роль admin (JWT).
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/goartstore/storefront/internal/api/errors"
	"github.com/bigkaa/goartstore/storefront/internal/api/generated"
	"github.com/bigkaa/goartstore/storefront/internal/api/middleware"
	"github.com/bigkaa/goartstore/storefront/internal/repository"
)

// ReloadCountries сбрасывает кэш набора стран и загружает его заново.
// В ответе — расхождение allow-list и каталога.
func (h *APIHandler) ReloadCountries(w http.ResponseWriter, r *http.Request) {
	h.catalog.Invalidate()
	countries, err := h.catalog.LoadCountries(r.Context())
	if err != nil {
		h.logger.Warn("Перезагрузка набора стран не завершена",
			slog.String("error", err.Error()),
		)
	}
	st := h.catalog.Status()
	drift := h.codes.Reconcile(countries)

	subject := ""
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		subject = claims.Subject
	}
	h.logger.Info("Набор стран перезагружен",
		slog.String("by", subject),
		slog.String("source", st.Source),
		slog.Int("count", st.Count),
	)

	resp := generated.CatalogStatusResponse{
		Source:           st.Source,
		Count:            st.Count,
		Cached:           st.Cached,
		MissingInCodeSet: drift.MissingInSet,
		UnknownToCatalog: drift.UnknownToCatalog,
	}
	if !st.LoadedAt.IsZero() {
		loadedAt := st.LoadedAt.UTC()
		resp.LoadedAt = &loadedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSelectionStats — распределение посетителей по выбранным странам.
func (h *APIHandler) GetSelectionStats(w http.ResponseWriter, r *http.Request) {
	if h.selections == nil {
		apierrors.NotFound(w, "Клиентское хранилище выбора не подключено")
		return
	}

	counts, err := h.selections.CountByCountry(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения статистики выбора",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка получения статистики")
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	writeJSON(w, http.StatusOK, generated.SelectionStatsResponse{Counts: counts, Total: total})
}

// DeleteSelection удаляет сохранённый выбор страны посетителя.
// Cookie selected-country у посетителя остаётся до её истечения.
func (h *APIHandler) DeleteSelection(w http.ResponseWriter, r *http.Request, visitorId string) {
	if h.selections == nil {
		apierrors.NotFound(w, "Клиентское хранилище выбора не подключено")
		return
	}

	err := h.selections.Delete(r.Context(), visitorId)
	switch {
	case errors.Is(err, repository.ErrInvalidArgument):
		apierrors.ValidationError(w, err.Error())
		return
	case errors.Is(err, repository.ErrNotFound):
		apierrors.NotFound(w, "Выбор посетителя не найден")
		return
	case err != nil:
		h.logger.Error("Ошибка удаления выбора посетителя",
			slog.String("visitor_id", visitorId),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка удаления выбора")
		return
	}

	subject := ""
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		subject = claims.Subject
	}
	h.logger.Info("Выбор посетителя удалён",
		slog.String("visitor_id", visitorId),
		slog.String("by", subject),
	)
	w.WriteHeader(http.StatusNoContent)
}
