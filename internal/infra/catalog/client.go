// Package catalog implements the HTTP client for the remote Context7
// documentation service: search-by-name, fetch-by-id, and the formatting
// of raw search responses into human-readable text.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"context7mcp/internal/domain"
	"context7mcp/internal/infra/identity"
	"context7mcp/internal/infra/telemetry"
)

// Sentinel bodies the upstream returns with status 200 when a library has
// no documentation. The client maps both to an absent result so callers
// never see the placeholder text.
const (
	sentinelNoContent     = "No content available"
	sentinelNoContextData = "No context data available"
)

// settings are the hot-reloadable parts of the upstream configuration.
// The base URL and HTTP client are fixed for the life of the process.
type settings struct {
	apiKey        string
	defaultTokens int
	minimumTokens int
	encryptor     *identity.Encryptor
}

type Client struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	metrics  *telemetry.PrometheusMetrics
	tracer   trace.Tracer
	settings atomic.Pointer[settings]
}

func NewClient(cfg domain.UpstreamConfig, httpClient *http.Client, metrics *telemetry.PrometheusMetrics, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = domain.DefaultRequestTimeoutSeconds * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		logger:  logger.Named("catalog"),
		metrics: metrics,
		tracer:  telemetry.Tracer(),
	}
	if err := c.ApplySettings(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplySettings swaps the reloadable settings. Called at construction and
// by the config watcher; concurrent in-flight calls keep the snapshot
// they started with.
func (c *Client) ApplySettings(cfg domain.UpstreamConfig) error {
	encryptor, err := identity.NewEncryptor(cfg.ClientIPEncryptionKey)
	if err != nil {
		return err
	}
	c.settings.Store(&settings{
		apiKey:        cfg.APIKey,
		defaultTokens: cfg.DefaultTokens,
		minimumTokens: cfg.MinimumTokens,
		encryptor:     encryptor,
	})
	return nil
}

// DefaultTokens reports the configured default token budget, applied when
// a request does not name one.
func (c *Client) DefaultTokens() int {
	return c.settings.Load().defaultTokens
}

// Search queries the catalog by library name. A non-success status is
// absorbed into an empty result tagged with the status code; callers
// decide whether emptiness means "not found".
func (c *Client) Search(ctx context.Context, name, clientIP string) (domain.SearchResult, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.search",
		trace.WithAttributes(attribute.String("catalog.query", name)))
	defer span.End()

	snap := c.settings.Load()
	headers, err := snap.encryptor.Headers(clientIP, snap.apiKey, nil)
	if err != nil {
		return domain.SearchResult{}, err
	}

	endpoint := c.baseURL + "/v1/search?query=" + url.QueryEscape(name)
	status, body, err := c.get(ctx, "search", endpoint, headers)
	if err != nil {
		return domain.SearchResult{}, domain.E(domain.CodeUnavailable, "catalog.Search", "", err)
	}
	if status != http.StatusOK {
		c.logger.Warn("search returned non-success status",
			zap.String("query", name), zap.Int("status", status))
		return domain.SearchResult{
			Error:      strconv.Itoa(status),
			StatusCode: status,
		}, nil
	}

	var result domain.SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.SearchResult{}, domain.E(domain.CodeInternal, "catalog.Search", "decode search response", err)
	}
	result.StatusCode = status
	span.SetAttributes(attribute.Int("catalog.results", len(result.Results)))
	return result, nil
}

// FetchDocs retrieves documentation text for a library id. The id is
// normalized by stripping one leading separator and the token budget is
// clamped to the configured minimum before transmission. The second
// return value reports whether documentation was found: sentinel bodies
// and non-success statuses both yield absent.
func (c *Client) FetchDocs(ctx context.Context, req domain.DocRequest, clientIP string) (string, bool, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.fetch_docs",
		trace.WithAttributes(
			attribute.String("catalog.library_id", req.LibraryID),
			attribute.String("catalog.topic", req.Topic),
		))
	defer span.End()

	snap := c.settings.Load()
	headers, err := snap.encryptor.Headers(clientIP, snap.apiKey, map[string]string{
		domain.HeaderSource: domain.SourceName,
	})
	if err != nil {
		return "", false, err
	}

	libraryID := strings.TrimPrefix(req.LibraryID, "/")
	tokens := req.Tokens
	if tokens <= 0 {
		tokens = snap.defaultTokens
	}
	if tokens < snap.minimumTokens {
		tokens = snap.minimumTokens
	}

	query := url.Values{}
	query.Set("tokens", strconv.Itoa(tokens))
	query.Set("topic", req.Topic)
	query.Set("type", domain.DocContentType)
	endpoint := c.baseURL + "/v1/" + libraryID + "?" + query.Encode()

	status, body, err := c.get(ctx, "docs", endpoint, headers)
	if err != nil {
		return "", false, domain.E(domain.CodeUnavailable, "catalog.FetchDocs", "", err)
	}
	if status != http.StatusOK {
		c.logger.Warn("docs fetch returned non-success status",
			zap.String("library_id", libraryID), zap.Int("status", status))
		return "", false, nil
	}

	text := string(body)
	if text == sentinelNoContent || text == sentinelNoContextData {
		span.SetAttributes(attribute.Bool("catalog.sentinel", true))
		return "", false, nil
	}
	return text, true, nil
}

func (c *Client) get(ctx context.Context, endpointLabel, endpoint string, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(endpointLabel, 0, time.Since(start))
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.metrics.ObserveUpstream(endpointLabel, resp.StatusCode, time.Since(start))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}
