// readiness.go — проверки готовности для /health/ready:
// состояние каталога стран и Country API по данным dephealth.
package service

import (
	"fmt"
	"time"
)

// Статусы проверок готовности.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusFail     = "fail"
)

// CatalogReadinessChecker — готовность каталога стран.
// Fallback-набор — degraded: витрина работает, но без актуальных данных.
type CatalogReadinessChecker struct {
	catalog *CatalogService
}

// NewCatalogReadinessChecker создаёт проверку каталога.
func NewCatalogReadinessChecker(catalog *CatalogService) *CatalogReadinessChecker {
	return &CatalogReadinessChecker{catalog: catalog}
}

// Name возвращает имя проверки.
func (c *CatalogReadinessChecker) Name() string {
	return "catalog"
}

// CheckReady реализует ReadinessChecker.
func (c *CatalogReadinessChecker) CheckReady() (status, message string) {
	st := c.catalog.Status()
	switch {
	case !st.Cached:
		return StatusOK, "набор стран ещё не загружен"
	case st.Source == SourceFallback:
		return StatusDegraded, fmt.Sprintf("используется fallback-набор (%d стран)", st.Count)
	default:
		return StatusOK, fmt.Sprintf("загружено стран: %d, %s назад",
			st.Count, time.Since(st.LoadedAt).Truncate(time.Second))
	}
}

// DependencyReadinessChecker — готовность зависимости по результатам dephealth.
type DependencyReadinessChecker struct {
	dh       *DephealthService
	name     string
	critical bool
}

// NewDependencyReadinessChecker создаёт проверку зависимости name.
// critical=false — недоступность даёт degraded вместо fail.
func NewDependencyReadinessChecker(dh *DephealthService, name string, critical bool) *DependencyReadinessChecker {
	return &DependencyReadinessChecker{dh: dh, name: name, critical: critical}
}

// Name возвращает имя проверки.
func (c *DependencyReadinessChecker) Name() string {
	return c.name
}

// CheckReady реализует ReadinessChecker.
func (c *DependencyReadinessChecker) CheckReady() (status, message string) {
	healthy, known := c.dh.DependencyHealthy(c.name)
	switch {
	case !known:
		return StatusOK, "проверка ещё не выполнялась"
	case healthy:
		return StatusOK, "доступен"
	case c.critical:
		return StatusFail, "недоступен"
	default:
		return StatusDegraded, "недоступен"
	}
}
