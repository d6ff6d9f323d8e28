// persist.go — хранилища выбора страны: cookie ответа и клиентское
// хранилище (repository.SelectionRepository по visitor id).
package store

import (
	"context"
	"errors"
	"net/http"

	"github.com/bigkaa/goartstore/storefront/internal/locale"
	"github.com/bigkaa/goartstore/storefront/internal/repository"
)

// CookiePersister записывает cookie selected-country в ответ.
// Должен вызываться до записи заголовков ответа.
type CookiePersister struct {
	w      http.ResponseWriter
	secure bool
}

// NewCookiePersister создаёт Persister поверх http.ResponseWriter.
func NewCookiePersister(w http.ResponseWriter, secure bool) *CookiePersister {
	return &CookiePersister{w: w, secure: secure}
}

// Persist реализует Persister.
func (p *CookiePersister) Persist(_ context.Context, code string) error {
	http.SetCookie(p.w, locale.NewCountryCookie(code, p.secure))
	return nil
}

// RepositoryPersister сохраняет выбор в клиентское хранилище посетителя.
type RepositoryPersister struct {
	repo      repository.SelectionRepository
	visitorID string
}

// NewRepositoryPersister создаёт Persister для посетителя visitorID.
func NewRepositoryPersister(repo repository.SelectionRepository, visitorID string) *RepositoryPersister {
	return &RepositoryPersister{repo: repo, visitorID: visitorID}
}

// Persist реализует Persister.
func (p *RepositoryPersister) Persist(ctx context.Context, code string) error {
	return p.repo.Save(ctx, p.visitorID, code)
}

// Selection возвращает ранее сохранённый выбор посетителя как SelectionSource.
// Ошибки хранилища трактуются как отсутствие выбора: onError получает
// всё, кроме repository.ErrNotFound.
func (p *RepositoryPersister) Selection(ctx context.Context, onError func(error)) locale.SelectionSource {
	return locale.SelectionFunc(func() (string, bool) {
		sel, err := p.repo.Get(ctx, p.visitorID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) && onError != nil {
				onError(err)
			}
			return "", false
		}
		return sel.CountryCode, true
	})
}

// FirstSelection возвращает первый непустой выбор из источников по порядку.
func FirstSelection(sources ...locale.SelectionSource) locale.SelectionSource {
	return locale.SelectionFunc(func() (string, bool) {
		for _, src := range sources {
			if src == nil {
				continue
			}
			if code, ok := src.SelectedCountryCode(); ok {
				return code, true
			}
		}
		return "", false
	})
}
