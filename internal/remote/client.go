package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/labs-tracker/internal/common"
)

// Config for the remote client.
type Config struct {
	BaseURL  string
	APIKey   string
	Variants []string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client calls the remote service, trying each variant in order.
type Client struct {
	cfg    Config
	http   *http.Client
	cache  Cache
	logger *slog.Logger
}

// NewClient creates a client. cache may be nil.
func NewClient(cfg Config, cache Cache, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if len(cfg.Variants) == 0 {
		cfg.Variants = []string{"v2", "v1"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		cache:  cache,
		logger: logger,
	}
}

var _ Extractor = (*Client)(nil)

// Extract returns the first usable response. Variants that answer "not
// found" or "unsupported" are skipped; a rate limit aborts with a
// *common.RateLimitedError; any other failure stops the search.
func (c *Client) Extract(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	c.logger.Info("remote.extract.start",
		"file", req.FileName,
		"text_len", len(req.Text),
		"has_document", len(req.Document) > 0,
		"variants", c.cfg.Variants,
	)

	for _, variant := range c.cfg.Variants {
		if resp, ok := c.fromCache(ctx, req, variant); ok {
			return resp, nil
		}

		resp, err := c.call(ctx, req, variant)
		if errors.Is(err, common.ErrRemoteUnsupported) {
			c.logger.Warn("remote.extract.variant_unsupported", "variant", variant, "error", err)
			continue
		}
		if err != nil {
			c.logger.Error("remote.extract.failed",
				"variant", variant, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
			return Response{}, err
		}

		c.store(ctx, req, variant, resp)
		c.logger.Info("remote.extract.ok",
			"variant", variant,
			"model", resp.ModelIdentifier,
			"markers", len(resp.Markers),
			"elapsed_ms", time.Since(start).Milliseconds())
		return resp, nil
	}
	return Response{}, fmt.Errorf("no remote variant accepted the request: %w", common.ErrRemoteUnsupported)
}

func (c *Client) call(ctx context.Context, req Request, variant string) (Response, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + variant + "/extract"
	headers := map[string]string{}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}

	res, err := sendJSON(ctx, c.http, endpoint, req, headers, c.logger)
	if err != nil {
		return Response{}, fmt.Errorf("remote %s: %w", variant, err)
	}

	switch {
	case res.Status == http.StatusTooManyRequests:
		return Response{}, &common.RateLimitedError{
			RetryAfter: parseRetryAfter(res.Header.Get("Retry-After"), time.Now()),
			Variant:    variant,
		}
	case res.Status == http.StatusNotFound || res.Status == http.StatusNotImplemented:
		return Response{}, fmt.Errorf("remote %s status %d: %w", variant, res.Status, common.ErrRemoteUnsupported)
	case res.Status/100 == 4 && strings.Contains(strings.ToLower(string(res.Body)), "unsupported"):
		return Response{}, fmt.Errorf("remote %s status %d: %w", variant, res.Status, common.ErrRemoteUnsupported)
	case res.Status/100 != 2:
		return Response{}, fmt.Errorf("remote %s non-2xx status: %d", variant, res.Status)
	}

	resp, err := decodeResponse(res.Body, c.logger)
	if err != nil {
		return Response{}, fmt.Errorf("remote %s: %w", variant, err)
	}
	resp.Variant = variant
	return resp, nil
}

// decodeResponse validates strictly first, then retries once after lenient
// sanitation.
func decodeResponse(raw []byte, logger *slog.Logger) (Response, error) {
	content := raw
	if err := ValidateResponse(content); err != nil {
		cleaned, dropped, sErr := NormalizeAndSanitizeJSON(raw, logger)
		if sErr != nil {
			return Response{}, fmt.Errorf("sanitize failed: %w", sErr)
		}
		if vErr := ValidateResponse(cleaned); vErr != nil {
			logger.Error("remote.extract.schema_validation_failed", "error", vErr)
			return Response{}, fmt.Errorf("schema validation failed: %w", vErr)
		}
		logger.Warn("remote.extract.lenient_sanitize_applied", "dropped", dropped)
		content = cleaned
	}

	var out Response
	if err := json.Unmarshal(content, &out); err != nil {
		return Response{}, fmt.Errorf("unmarshal response: %w", err)
	}
	return out, nil
}

func (c *Client) fromCache(ctx context.Context, req Request, variant string) (Response, bool) {
	if c.cache == nil {
		return Response{}, false
	}
	data, ok, err := c.cache.Get(ctx, CacheKey(req, variant))
	if err != nil {
		c.logger.Warn("remote.cache.get_failed", "variant", variant, "error", err)
		return Response{}, false
	}
	if !ok {
		return Response{}, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("remote.cache.decode_failed", "variant", variant, "error", err)
		return Response{}, false
	}
	resp.Variant = variant
	resp.Cached = true
	c.logger.Info("remote.cache.hit", "variant", variant, "markers", len(resp.Markers))
	return resp, true
}

func (c *Client) store(ctx context.Context, req Request, variant string, resp Response) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, CacheKey(req, variant), data, c.cfg.CacheTTL); err != nil {
		c.logger.Warn("remote.cache.set_failed", "variant", variant, "error", err)
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date. Unparseable or
// missing values yield zero.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}
