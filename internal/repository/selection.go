package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
)

// Selection — сохранённый выбор страны посетителя.
type Selection struct {
	// VisitorID — UUID посетителя (cookie sf_visitor)
	VisitorID string
	// CountryCode — выбранная страна
	CountryCode string
	// UpdatedAt — время последнего изменения
	UpdatedAt time.Time
}

// SelectionRepository — клиентское хранилище выбранной страны.
type SelectionRepository interface {
	// Get возвращает выбор посетителя. Если не найден — ErrNotFound.
	Get(ctx context.Context, visitorID string) (*Selection, error)
	// Save создаёт или обновляет выбор (upsert).
	Save(ctx context.Context, visitorID, countryCode string) error
	// Delete удаляет выбор посетителя.
	Delete(ctx context.Context, visitorID string) error
	// CountByCountry возвращает количество посетителей по странам.
	CountByCountry(ctx context.Context) (map[string]int, error)
}

// validateVisitor проверяет, что visitor id — UUID.
func validateVisitor(visitorID string) error {
	if _, err := uuid.Parse(visitorID); err != nil {
		return fmt.Errorf("%w: visitor id %q", ErrInvalidArgument, visitorID)
	}
	return nil
}

// validateSelection проверяет visitor id и код страны.
func validateSelection(visitorID, countryCode string) error {
	if err := validateVisitor(visitorID); err != nil {
		return err
	}
	if !model.IsValidCode(countryCode) {
		return fmt.Errorf("%w: код страны %q", ErrInvalidArgument, countryCode)
	}
	return nil
}

// --- PostgreSQL ---

// selectionRepo — реализация SelectionRepository на PostgreSQL.
type selectionRepo struct {
	db DBTX
}

// NewSelectionRepository создаёт репозиторий выбора страны.
func NewSelectionRepository(db DBTX) SelectionRepository {
	return &selectionRepo{db: db}
}

// Get возвращает выбор посетителя.
func (r *selectionRepo) Get(ctx context.Context, visitorID string) (*Selection, error) {
	if err := validateVisitor(visitorID); err != nil {
		return nil, err
	}

	query := `
		SELECT visitor_id, country_code, updated_at
		FROM visitor_selections
		WHERE visitor_id = $1`

	s := &Selection{}
	err := r.db.QueryRow(ctx, query, visitorID).Scan(&s.VisitorID, &s.CountryCode, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения visitor_selections[%s]: %w", visitorID, err)
	}
	return s, nil
}

// Save создаёт или обновляет выбор (INSERT ... ON CONFLICT DO UPDATE).
func (r *selectionRepo) Save(ctx context.Context, visitorID, countryCode string) error {
	if err := validateSelection(visitorID, countryCode); err != nil {
		return err
	}

	query := `
		INSERT INTO visitor_selections (visitor_id, country_code)
		VALUES ($1, $2)
		ON CONFLICT (visitor_id) DO UPDATE
		SET country_code = EXCLUDED.country_code,
			updated_at = NOW()`

	if _, err := r.db.Exec(ctx, query, visitorID, countryCode); err != nil {
		return fmt.Errorf("ошибка сохранения visitor_selections[%s]: %w", visitorID, err)
	}
	return nil
}

// Delete удаляет выбор посетителя.
func (r *selectionRepo) Delete(ctx context.Context, visitorID string) error {
	if err := validateVisitor(visitorID); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM visitor_selections WHERE visitor_id = $1`, visitorID)
	if err != nil {
		return fmt.Errorf("ошибка удаления visitor_selections[%s]: %w", visitorID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByCountry возвращает распределение посетителей по странам.
func (r *selectionRepo) CountByCountry(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT country_code, COUNT(*)
		FROM visitor_selections
		GROUP BY country_code`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта visitor_selections: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("ошибка сканирования visitor_selections: %w", err)
		}
		counts[code] = n
	}
	return counts, rows.Err()
}

// --- In-memory ---

// Лимиты in-memory хранилища по умолчанию.
const (
	DefaultMemorySelectionSize = 100_000
	DefaultMemorySelectionTTL  = 30 * 24 * time.Hour
)

// memorySelectionRepo — SelectionRepository в памяти процесса.
// Используется, когда PostgreSQL не сконфигурирован. Записи ограничены
// по количеству (вытесняются самые старые) и по времени жизни.
type memorySelectionRepo struct {
	data *expirable.LRU[string, Selection]
}

// NewMemorySelectionRepository создаёт in-memory репозиторий с лимитами по умолчанию.
func NewMemorySelectionRepository() SelectionRepository {
	return NewBoundedMemorySelectionRepository(DefaultMemorySelectionSize, DefaultMemorySelectionTTL)
}

// NewBoundedMemorySelectionRepository создаёт in-memory репозиторий
// не более чем на size посетителей; выбор живёт ttl с последнего Save.
func NewBoundedMemorySelectionRepository(size int, ttl time.Duration) SelectionRepository {
	if size <= 0 {
		size = DefaultMemorySelectionSize
	}
	if ttl <= 0 {
		ttl = DefaultMemorySelectionTTL
	}
	return &memorySelectionRepo{data: expirable.NewLRU[string, Selection](size, nil, ttl)}
}

func (r *memorySelectionRepo) Get(_ context.Context, visitorID string) (*Selection, error) {
	if err := validateVisitor(visitorID); err != nil {
		return nil, err
	}
	s, ok := r.data.Get(visitorID)
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *memorySelectionRepo) Save(_ context.Context, visitorID, countryCode string) error {
	if err := validateSelection(visitorID, countryCode); err != nil {
		return err
	}
	r.data.Add(visitorID, Selection{VisitorID: visitorID, CountryCode: countryCode, UpdatedAt: time.Now()})
	return nil
}

func (r *memorySelectionRepo) Delete(_ context.Context, visitorID string) error {
	if err := validateVisitor(visitorID); err != nil {
		return err
	}
	if !r.data.Remove(visitorID) {
		return ErrNotFound
	}
	return nil
}

func (r *memorySelectionRepo) CountByCountry(_ context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, s := range r.data.Values() {
		counts[s.CountryCode]++
	}
	return counts, nil
}
