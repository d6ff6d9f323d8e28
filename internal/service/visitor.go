// visitor.go — VisitorService: сессия посетителя на время одного запроса.
// Собирает Country Resolution Store и Locale Sync Effect поверх общего
// CatalogService, cookie выбора и клиентского хранилища.
package service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/storefront/internal/locale"
	"github.com/bigkaa/goartstore/storefront/internal/repository"
	"github.com/bigkaa/goartstore/storefront/internal/store"
)

// VisitorCookieName — cookie идентификатора посетителя (UUID).
const VisitorCookieName = "sf_visitor"

// visitorCookieMaxAge — срок жизни cookie посетителя (1 год).
const visitorCookieMaxAge = 365 * 24 * 60 * 60

// Session — состояние выбора страны посетителя в рамках запроса.
type Session struct {
	VisitorID string
	Store     *store.Store
	Effect    *store.Effect
}

// VisitorService создаёт сессии посетителей.
type VisitorService struct {
	loader         store.Loader
	repo           repository.SelectionRepository
	codes          *locale.CodeSet
	defaultCountry string
	cookieSecure   bool
	logger         *slog.Logger
}

// NewVisitorService создаёт VisitorService.
// repo — клиентское хранилище выбора (nil — только cookie).
func NewVisitorService(
	loader store.Loader,
	repo repository.SelectionRepository,
	codes *locale.CodeSet,
	defaultCountry string,
	cookieSecure bool,
	logger *slog.Logger,
) *VisitorService {
	return &VisitorService{
		loader:         loader,
		repo:           repo,
		codes:          codes,
		defaultCountry: defaultCountry,
		cookieSecure:   cookieSecure,
		logger:         logger.With(slog.String("component", "visitor_service")),
	}
}

// Session загружает набор стран и восстанавливает выбор посетителя.
// Порядок восстановления: cookie selected-country, затем клиентское хранилище.
// Может записать Set-Cookie в w, поэтому вызывается до записи ответа.
func (v *VisitorService) Session(ctx context.Context, w http.ResponseWriter, r *http.Request) *Session {
	visitorID := v.visitorID(w, r)

	persisters := []store.Persister{store.NewCookiePersister(w, v.cookieSecure)}
	sources := []locale.SelectionSource{locale.NewRequestSelection(r, v.codes)}
	if v.repo != nil {
		rp := store.NewRepositoryPersister(v.repo, visitorID)
		persisters = append(persisters, rp)
		sources = append(sources, rp.Selection(ctx, func(err error) {
			v.logger.Warn("Ошибка чтения выбора посетителя",
				slog.String("visitor_id", visitorID),
				slog.String("error", err.Error()),
			)
		}))
	}

	s := store.New(store.Options{
		Loader:         v.loader,
		Persisters:     persisters,
		Persisted:      store.FirstSelection(sources...),
		DefaultCountry: v.defaultCountry,
		Logger:         v.logger,
	})
	s.LoadCountries(ctx)

	return &Session{
		VisitorID: visitorID,
		Store:     s,
		Effect:    store.NewEffect(s, v.logger),
	}
}

// visitorID возвращает идентификатор посетителя из cookie или выдаёт новый.
func (v *VisitorService) visitorID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(VisitorCookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   visitorCookieMaxAge,
		HttpOnly: true,
		Secure:   v.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
