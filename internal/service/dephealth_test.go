package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewDephealthService_NoDependencies(t *testing.T) {
	_, err := NewDephealthService(DephealthOptions{
		ServiceID:     "storefront",
		Group:         "storefront",
		CheckInterval: time.Second,
		Registerer:    prometheus.NewRegistry(),
	}, testLogger())
	if !errors.Is(err, ErrNoDependencies) {
		t.Fatalf("ошибка = %v, ожидалась ErrNoDependencies", err)
	}
}

func TestCountryHealthPath(t *testing.T) {
	tests := map[string]string{
		"http://countries:8080":         "/countries",
		"http://countries:8080/":        "/countries",
		"https://gw.example.com/api/v1": "/api/v1/countries",
	}
	for in, want := range tests {
		if got := countryHealthPath(in); got != want {
			t.Errorf("countryHealthPath(%q) = %q, ожидался %q", in, got, want)
		}
	}
}

func TestDephealthService_CountryAPI(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantHealthy bool
	}{
		{"Country API доступен", http.StatusOK, true},
		{"Country API отвечает 500", http.StatusInternalServerError, false},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath atomic.Value
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath.Store(r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			ds, err := NewDephealthService(DephealthOptions{
				ServiceID:     "storefront-test-" + string(rune('a'+i)),
				Group:         "storefront",
				CountryAPIURL: srv.URL + "/api",
				CheckInterval: time.Second,
				Registerer:    prometheus.NewRegistry(),
			}, testLogger())
			if err != nil {
				t.Fatalf("Ошибка создания DephealthService: %v", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if err := ds.Start(ctx); err != nil {
				t.Fatalf("Ошибка запуска: %v", err)
			}
			defer ds.Stop()

			// Даём время на первую проверку (интервал 1s + запас)
			time.Sleep(3 * time.Second)

			healthy, known := ds.DependencyHealthy(DepCountryAPI)
			if !known {
				t.Fatalf("нет записи %s в Health(): %v", DepCountryAPI, ds.Health())
			}
			if healthy != tt.wantHealthy {
				t.Errorf("healthy = %v, ожидалось %v", healthy, tt.wantHealthy)
			}
			if p, _ := gotPath.Load().(string); !strings.HasSuffix(p, "/api/countries") {
				t.Errorf("проверялся путь %q", p)
			}
		})
	}
}
