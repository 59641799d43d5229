// File: internal/ordiscan/client.go
package ordiscan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.ordiscan.com"

// InscriptionSource lists the inscriptions held by an address.
type InscriptionSource interface {
	AddressInscriptions(ctx context.Context, address string) (json.RawMessage, error)
}

// Client is a read-only Ordiscan API client with a per-address response cache.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *cache.Cache
	logger     *zap.Logger
}

// Config holds the settings for NewClient.
type Config struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(ttl, 2*ttl),
		logger:     logger.Named("ordiscan"),
	}
}

// AddressInscriptions returns Ordiscan's JSON document for the address unchanged.
func (c *Client) AddressInscriptions(ctx context.Context, address string) (json.RawMessage, error) {
	if cached, ok := c.cache.Get(address); ok {
		c.logger.Debug("Inscriptions served from cache", zap.String("address", address))
		return cached.(json.RawMessage), nil
	}

	endpoint := fmt.Sprintf("%s/v1/address/%s/inscriptions", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build ordiscan request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ordiscan request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read ordiscan response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("Failed to fetch NFTs: %s", http.StatusText(res.StatusCode))
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("ordiscan returned invalid JSON")
	}

	doc := json.RawMessage(body)
	c.cache.SetDefault(address, doc)
	return doc, nil
}
