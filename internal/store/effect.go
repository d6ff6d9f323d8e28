// effect.go — Locale Sync Effect: согласование страны из URL
// с выбранной страной Store.
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
	"github.com/bigkaa/goartstore/storefront/internal/locale"
)

var syncTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sf_locale_sync_transitions_total",
		Help: "Количество переходов Locale Sync Effect",
	},
	[]string{"transition"},
)

// TransitionKind — результат одного наблюдения URL.
type TransitionKind int

const (
	// TransitionNoOp — страна URL совпадает с выбранной или отсутствует в URL.
	TransitionNoOp TransitionKind = iota
	// TransitionAdopt — выбрана страна из URL.
	TransitionAdopt
	// TransitionFlagUnknown — страна URL отсутствует в наборе, Store не изменён.
	TransitionFlagUnknown
	// TransitionPending — набор стран ещё не загружен.
	TransitionPending
)

// String возвращает имя перехода (используется в метриках и логах).
func (k TransitionKind) String() string {
	switch k {
	case TransitionAdopt:
		return "adopt"
	case TransitionFlagUnknown:
		return "flag_unknown"
	case TransitionPending:
		return "pending"
	default:
		return "noop"
	}
}

// Transition — переход с кодом страны из URL.
type Transition struct {
	Kind TransitionKind
	Code string
}

// Effect наблюдает страну в URL и переносит её в Store.
// Повторно выполняется только при изменении пары (страна URL, версия набора стран).
type Effect struct {
	store  *Store
	logger *slog.Logger

	mu          sync.Mutex
	observed    bool
	lastCode    string
	lastVersion uint64
}

// NewEffect создаёт Effect для Store.
func NewEffect(s *Store, logger *slog.Logger) *Effect {
	if logger == nil {
		logger = slog.Default()
	}
	return &Effect{
		store:  s,
		logger: logger.With(slog.String("component", "locale_sync")),
	}
}

// Observe обрабатывает путь текущего URL.
// Если с прошлого вызова не изменились ни страна URL, ни версия набора стран,
// возвращает TransitionNoOp без обращения к Store.
func (e *Effect) Observe(ctx context.Context, urlPath string) Transition {
	code, ok := locale.CountrySegment(urlPath)
	if !ok {
		code = ""
	}
	version := e.store.Version()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.observed && e.lastCode == code && e.lastVersion == version {
		return Transition{Kind: TransitionNoOp, Code: code}
	}
	e.observed = true
	e.lastCode = code
	e.lastVersion = version

	return e.Reconcile(ctx, code)
}

// Reconcile выполняет один шаг согласования для кода страны без мемоизации.
func (e *Effect) Reconcile(ctx context.Context, code string) Transition {
	t := e.reconcile(ctx, model.NormalizeCode(code))
	syncTransitionsTotal.WithLabelValues(t.Kind.String()).Inc()
	return t
}

func (e *Effect) reconcile(ctx context.Context, code string) Transition {
	if !model.IsValidCode(code) {
		return Transition{Kind: TransitionNoOp, Code: code}
	}
	if !e.store.Loaded() {
		return Transition{Kind: TransitionPending, Code: code}
	}

	country, found := e.store.GetCountryByCode(code)
	if !found {
		e.logger.Warn("Страна из URL отсутствует в наборе стран",
			slog.String("country", code),
		)
		return Transition{Kind: TransitionFlagUnknown, Code: code}
	}

	if selected, ok := e.store.Selected(); ok && selected.CountryCode == country.CountryCode {
		return Transition{Kind: TransitionNoOp, Code: code}
	}

	// Ошибка сохранения не отменяет выбор в памяти: Store уже изменён
	if err := e.store.SetSelectedCountry(ctx, country); err != nil {
		e.logger.Warn("Страна из URL выбрана, но не сохранена",
			slog.String("country", code),
			slog.String("error", err.Error()),
		)
	}
	return Transition{Kind: TransitionAdopt, Code: code}
}
