// Package fetcher pulls raw user metric batches from the player metrics API.
package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/playmetrics/churn-cli/internal/config"
	"github.com/playmetrics/churn-cli/internal/model"
)

// pageEnvelope is the upstream response shape: a data array plus optional
// pagination metadata.
type pageEnvelope struct {
	Data []model.RawUser `json:"data"`
	Meta struct {
		NextPageURL string `json:"next_page_url"`
		Total       int    `json:"total"`
	} `json:"meta"`
}

// Client fetches user batches over HTTP with retry and rate limiting.
type Client struct {
	http    *http.Client
	cfg     config.SourceConfig
	limiter *rate.Limiter
}

const maxRetries = 3

// NewClient creates a Client from the source configuration.
func NewClient(cfg config.SourceConfig) *Client {
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 30
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "churn-cli/1.0"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 50
	}
	ratePerSec := cfg.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 5
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 5
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		http: &http.Client{
			Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
			Transport: transport,
		},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// FetchUsers retrieves the full user batch, following pagination until the
// upstream reports no next page or the page cap is reached.
func (c *Client) FetchUsers(ctx context.Context) ([]model.RawUser, model.RunMeta, error) {
	startURL := strings.TrimRight(c.cfg.BaseURL, "/") + c.cfg.Path
	meta := model.RunMeta{
		SourceURL:  startURL,
		BaseURL:    c.cfg.BaseURL,
		DataSource: startURL,
	}
	if u, err := url.Parse(startURL); err == nil {
		meta.Domain = u.Host
	}

	var users []model.RawUser
	pageURL := startURL
	for page := 1; pageURL != ""; page++ {
		if page > c.cfg.MaxPages {
			zap.L().Warn("fetcher: page cap reached, truncating batch",
				zap.Int("max_pages", c.cfg.MaxPages),
				zap.Int("users", len(users)),
			)
			break
		}

		env, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			return nil, meta, eris.Wrapf(err, "fetcher: page %d", page)
		}
		users = append(users, env.Data...)

		zap.L().Debug("fetcher: page fetched",
			zap.Int("page", page),
			zap.Int("users", len(env.Data)),
		)

		// Self-referencing next pages would loop forever.
		if env.Meta.NextPageURL == pageURL {
			break
		}
		pageURL = env.Meta.NextPageURL
	}

	zap.L().Info("fetcher: batch complete",
		zap.Int("users", len(users)),
		zap.String("domain", meta.Domain),
	)
	return users, meta, nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (*pageEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("unexpected status %d from %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}
	return decodeEnvelope(body)
}

// decodeEnvelope accepts both upstream shapes: a bare envelope object and a
// single-element array wrapping one.
func decodeEnvelope(body []byte) (*pageEnvelope, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var wrapped []pageEnvelope
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, eris.Wrap(err, "decode wrapped envelope")
		}
		if len(wrapped) == 0 {
			return &pageEnvelope{}, nil
		}
		return &wrapped[0], nil
	}
	var env pageEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "decode envelope")
	}
	return &env, nil
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := range maxRetries {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		cloned := req.Clone(ctx)
		resp, err := c.http.Do(cloned)
		if err != nil {
			lastErr = err
			zap.L().Warn("fetcher: request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, req.URL.String())
			zap.L().Warn("fetcher: retryable status",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			backoff(ctx, attempt)
			continue
		}

		return resp, nil
	}
	return nil, eris.Wrap(lastErr, "all retries exhausted")
}

func backoff(ctx context.Context, attempt int) {
	base := time.Second
	maxBackoff := 30 * time.Second
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	jitter := time.Duration(rand.Int64N(int64(d) / 2))
	d = d + jitter

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
