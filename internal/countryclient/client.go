// Пакет countryclient — HTTP-клиент внешнего Country API.
// Запрашивает активные страны витрины; при заданных client credentials
// получает SA-токен через client_credentials grant и кэширует его.
package countryclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/goartstore/storefront/internal/domain/model"
)

// ErrNotConfigured — URL Country API не задан (ConfigurationMissing).
// Вызывающая сторона подставляет fallback-набор стран.
var ErrNotConfigured = errors.New("Country API не сконфигурирован")

// ErrMalformedResponse — ответ Country API не содержит списка стран.
var ErrMalformedResponse = errors.New("некорректный ответ Country API")

// countriesResponse — тело ответа GET /countries.
type countriesResponse struct {
	Countries []model.Country `json:"countries"`
}

// tokenInfo — закэшированный SA-токен с временем истечения.
type tokenInfo struct {
	accessToken string
	expiresAt   time.Time
}

// Client — HTTP-клиент Country API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string //nolint:gosec // G101: поле структуры, не содержит секрет напрямую
	logger       *slog.Logger

	// Кэш SA-токена (thread-safe)
	mu    sync.RWMutex
	token *tokenInfo
}

// Options — параметры клиента.
type Options struct {
	// BaseURL — базовый URL Country API (пустой → ErrNotConfigured)
	BaseURL string
	// CACertPath — путь к CA-сертификату (пустой — стандартный пул)
	CACertPath string
	// Timeout — таймаут HTTP-запросов
	Timeout time.Duration
	// ClientID, ClientSecret — client credentials (опционально)
	ClientID     string
	ClientSecret string
}

// New создаёт клиент Country API.
func New(opts Options, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: opts.Timeout}

	if opts.CACertPath != "" {
		tlsConfig, err := buildTLSConfig(opts.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата Country API: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат Country API добавлен в пул доверия",
			slog.String("ca_cert", opts.CACertPath),
		)
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		logger:       logger.With(slog.String("component", "country_client")),
	}, nil
}

// Configured сообщает, задан ли URL Country API.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// BaseURL возвращает базовый URL Country API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListCountries запрашивает активные страны, отсортированные по sortOrder.
// GET /countries?isActive=true&sortBy=sortOrder&sortOrder=asc
// Возвращает сырой список; нормализация — на стороне вызывающего.
func (c *Client) ListCountries(ctx context.Context) ([]model.Country, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	q := url.Values{
		"isActive":  {"true"},
		"sortBy":    {"sortOrder"},
		"sortOrder": {"asc"},
	}
	reqURL := c.baseURL + "/countries?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса ListCountries: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.clientID != "" {
		token, err := c.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("получение токена для Country API: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return nil, fmt.Errorf("запрос ListCountries к %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("Country API вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var body countriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if body.Countries == nil {
		return nil, fmt.Errorf("%w: отсутствует поле countries", ErrMalformedResponse)
	}

	c.logger.Debug("Страны получены от Country API",
		slog.Int("count", len(body.Countries)),
	)
	return body.Countries, nil
}

// GetToken возвращает SA-токен для авторизации запросов.
// Токен кэшируется до exp - 30s.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.token != nil && time.Now().Before(c.token.expiresAt) {
		token := c.token.accessToken
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check после получения write lock
	if c.token != nil && time.Now().Before(c.token.expiresAt) {
		return c.token.accessToken, nil
	}

	return c.requestToken(ctx)
}

// requestToken запрашивает новый SA-токен через client_credentials grant.
// Вызывается под write lock.
func (c *Client) requestToken(ctx context.Context) (string, error) {
	tokenURL := c.baseURL + "/auth/token"

	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("создание запроса token: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return "", fmt.Errorf("запрос token к Country API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("token endpoint вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		Token     string `json:"access_token"` //nolint:gosec // G117: JSON-маппинг OAuth2 ответа
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("декодирование token response: %w", err)
	}
	if tokenResp.Token == "" {
		return "", fmt.Errorf("пустой access_token в ответе Country API")
	}

	c.token = &tokenInfo{
		accessToken: tokenResp.Token,
		expiresAt:   time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - 30*time.Second),
	}
	return tokenResp.Token, nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}
