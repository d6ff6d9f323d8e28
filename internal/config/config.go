// Пакет config — загрузка и валидация конфигурации Storefront
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Storefront.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймауты HTTP-сервера
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// --- Локали ---

	// Страна по умолчанию, единая для Entry Router, Edge Filter и Store
	DefaultCountry string
	// Allow-list кодов стран для маршрутизации
	ValidCountries []string
	// Legacy-префикс пути (например, /store); пустой — отключён
	LegacyPrefix string
	// Префиксы путей, которые не перенаправляются (auth, health)
	ExcludedPrefixes []string
	// Флаг Secure для cookie selected-country
	CookieSecure bool
	// Использовать регион из Accept-Language как подсказку страны для редиректа
	AcceptLanguageHint bool

	// --- Country API ---

	// Базовый URL Country API (пустой — используется fallback-набор)
	CountryAPIURL string
	// Таймаут запроса к Country API
	CountryAPITimeout time.Duration
	// Client credentials для Country API (опционально)
	CountryAPIClientID     string
	CountryAPIClientSecret string
	// Путь к CA-сертификату Country API (опционально)
	CountryAPICACertPath string
	// TTL кэша набора стран
	CountryCacheTTL time.Duration

	// --- Catalog API ---

	// Базовый URL Catalog API, к которому добавляется параметр cn
	CatalogAPIURL string

	// --- PostgreSQL (опционально: без SF_DB_HOST выбор хранится в памяти) ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// Лимиты in-memory хранилища выбора (без PostgreSQL)
	SelectionMemorySize int
	SelectionMemoryTTL  time.Duration

	// --- JWT (admin API, опционально) ---

	// URL JWKS endpoint; пустой — admin API отключён
	JWTJWKSURL string
	// Ожидаемый issuer JWT (пустой — не проверяется)
	JWTIssuer string
	// CA-сертификат для TLS к JWKS endpoint (пустой — системный пул)
	JWTCACertPath string
	// Группы, дающие доступ к admin API
	RoleAdminGroups []string

	// --- topologymetrics ---

	// Имя группы в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// её и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// SF_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("SF_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("SF_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SF_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// SF_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SF_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SF_LOG_LEVEL: %w", err)
	}

	// SF_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SF_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SF_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	if cfg.ReadTimeout, err = getEnvDuration("SF_HTTP_READ_TIMEOUT", 15*time.Second); err != nil {
		return nil, fmt.Errorf("SF_HTTP_READ_TIMEOUT: %w", err)
	}
	if cfg.WriteTimeout, err = getEnvDuration("SF_HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("SF_HTTP_WRITE_TIMEOUT: %w", err)
	}
	if cfg.IdleTimeout, err = getEnvDuration("SF_HTTP_IDLE_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("SF_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Локали ---

	// SF_VALID_COUNTRIES — allow-list стран (по умолчанию us,uk,ca,au)
	cfg.ValidCountries = parseCSV(strings.ToLower(getEnvDefault("SF_VALID_COUNTRIES", "us,uk,ca,au")))
	if len(cfg.ValidCountries) == 0 {
		return nil, fmt.Errorf("SF_VALID_COUNTRIES: список стран пуст")
	}
	for _, code := range cfg.ValidCountries {
		if !model.IsValidCode(code) {
			return nil, fmt.Errorf("SF_VALID_COUNTRIES: некорректный код страны %q", code)
		}
	}

	// SF_DEFAULT_COUNTRY — страна по умолчанию (по умолчанию us)
	cfg.DefaultCountry = model.NormalizeCode(getEnvDefault("SF_DEFAULT_COUNTRY", "us"))
	if !slices.Contains(cfg.ValidCountries, cfg.DefaultCountry) {
		return nil, fmt.Errorf("SF_DEFAULT_COUNTRY: %q отсутствует в SF_VALID_COUNTRIES", cfg.DefaultCountry)
	}

	// SF_LEGACY_PREFIX — legacy-префикс (по умолчанию отключён)
	cfg.LegacyPrefix, err = normalizePrefix(getEnvDefault("SF_LEGACY_PREFIX", ""))
	if err != nil {
		return nil, fmt.Errorf("SF_LEGACY_PREFIX: %w", err)
	}

	// SF_EXCLUDED_PREFIXES — префиксы без редиректа
	cfg.ExcludedPrefixes = parseCSV(getEnvDefault("SF_EXCLUDED_PREFIXES", "/auth/,/health/,/metrics"))
	for _, p := range cfg.ExcludedPrefixes {
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("SF_EXCLUDED_PREFIXES: префикс %q должен начинаться с /", p)
		}
	}

	if cfg.CookieSecure, err = getEnvBool("SF_COOKIE_SECURE", false); err != nil {
		return nil, fmt.Errorf("SF_COOKIE_SECURE: %w", err)
	}
	if cfg.AcceptLanguageHint, err = getEnvBool("SF_ACCEPT_LANGUAGE_HINT", false); err != nil {
		return nil, fmt.Errorf("SF_ACCEPT_LANGUAGE_HINT: %w", err)
	}

	// --- Country API ---

	cfg.CountryAPIURL = strings.TrimRight(getEnvDefault("SF_COUNTRY_API_URL", ""), "/")
	if cfg.CountryAPIURL != "" {
		if err := validateURL(cfg.CountryAPIURL); err != nil {
			return nil, fmt.Errorf("SF_COUNTRY_API_URL: %w", err)
		}
	}
	if cfg.CountryAPITimeout, err = getEnvDuration("SF_COUNTRY_API_TIMEOUT", 5*time.Second); err != nil {
		return nil, fmt.Errorf("SF_COUNTRY_API_TIMEOUT: %w", err)
	}
	cfg.CountryAPIClientID = getEnvDefault("SF_COUNTRY_API_CLIENT_ID", "")
	cfg.CountryAPIClientSecret = getEnvDefault("SF_COUNTRY_API_CLIENT_SECRET", "")
	if cfg.CountryAPIClientID != "" && cfg.CountryAPIClientSecret == "" {
		return nil, fmt.Errorf("SF_COUNTRY_API_CLIENT_SECRET: обязателен при заданном SF_COUNTRY_API_CLIENT_ID")
	}
	cfg.CountryAPICACertPath = getEnvDefault("SF_COUNTRY_API_CA_CERT_PATH", "")

	// SF_COUNTRY_CACHE_TTL — TTL кэша стран (по умолчанию 5m)
	if cfg.CountryCacheTTL, err = getEnvDuration("SF_COUNTRY_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, fmt.Errorf("SF_COUNTRY_CACHE_TTL: %w", err)
	}
	if cfg.CountryCacheTTL <= 0 {
		return nil, fmt.Errorf("SF_COUNTRY_CACHE_TTL: значение должно быть положительным")
	}

	// --- Catalog API ---

	cfg.CatalogAPIURL = strings.TrimRight(getEnvDefault("SF_CATALOG_API_URL", "http://localhost:8081/api"), "/")
	if err := validateURL(cfg.CatalogAPIURL); err != nil {
		return nil, fmt.Errorf("SF_CATALOG_API_URL: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost = getEnvDefault("SF_DB_HOST", "")
	if cfg.DBPort, err = getEnvInt("SF_DB_PORT", 5432); err != nil {
		return nil, fmt.Errorf("SF_DB_PORT: %w", err)
	}
	cfg.DBName = getEnvDefault("SF_DB_NAME", "storefront")
	cfg.DBUser = getEnvDefault("SF_DB_USER", "storefront")
	cfg.DBPassword = getEnvDefault("SF_DB_PASSWORD", "")
	cfg.DBSSLMode = getEnvDefault("SF_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("SF_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}
	if cfg.DBHost != "" {
		if cfg.DBPassword, err = getEnvRequired("SF_DB_PASSWORD"); err != nil {
			return nil, err
		}
	}

	// SF_SELECTION_MEMORY_SIZE / SF_SELECTION_MEMORY_TTL — лимиты выбора в памяти
	if cfg.SelectionMemorySize, err = getEnvInt("SF_SELECTION_MEMORY_SIZE", 100_000); err != nil {
		return nil, fmt.Errorf("SF_SELECTION_MEMORY_SIZE: %w", err)
	}
	if cfg.SelectionMemorySize <= 0 {
		return nil, fmt.Errorf("SF_SELECTION_MEMORY_SIZE: значение должно быть положительным")
	}
	if cfg.SelectionMemoryTTL, err = getEnvDuration("SF_SELECTION_MEMORY_TTL", 30*24*time.Hour); err != nil {
		return nil, fmt.Errorf("SF_SELECTION_MEMORY_TTL: %w", err)
	}
	if cfg.SelectionMemoryTTL <= 0 {
		return nil, fmt.Errorf("SF_SELECTION_MEMORY_TTL: значение должно быть положительным")
	}

	// --- JWT ---

	cfg.JWTJWKSURL = getEnvDefault("SF_JWT_JWKS_URL", "")
	cfg.JWTIssuer = getEnvDefault("SF_JWT_ISSUER", "")
	cfg.JWTCACertPath = getEnvDefault("SF_JWT_CA_CERT_PATH", "")
	cfg.RoleAdminGroups = parseCSV(getEnvDefault("SF_ROLE_ADMIN_GROUPS", "storefront-admins"))

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("SF_DEPHEALTH_GROUP", "storefront")
	if cfg.DephealthCheckInterval, err = getEnvDuration("SF_DEPHEALTH_CHECK_INTERVAL", 15*time.Second); err != nil {
		return nil, fmt.Errorf("SF_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// SF_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	if cfg.ShutdownTimeout, err = getEnvDuration("SF_SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return nil, fmt.Errorf("SF_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseEnabled сообщает, сконфигурирован ли PostgreSQL.
func (c *Config) DatabaseEnabled() bool {
	return c.DBHost != ""
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL (для golang-migrate и лейблов dephealth).
func (c *Config) DatabaseURL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// AdminAPIEnabled сообщает, включён ли admin API (задан JWKS URL).
func (c *Config) AdminAPIEnabled() bool {
	return c.JWTJWKSURL != ""
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// normalizePrefix приводит legacy-префикс к виду /segment без завершающего слэша.
func normalizePrefix(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return "", nil
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = strings.TrimRight(p, "/")
	if strings.ContainsAny(p, "?#") {
		return "", fmt.Errorf("префикс %q не должен содержать query или fragment", p)
	}
	return p, nil
}

// validateURL проверяет, что строка — абсолютный http(s) URL.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("некорректный URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q должен использовать схему http или https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q не содержит хост", raw)
	}
	return nil
}
