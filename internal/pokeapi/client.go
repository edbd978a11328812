// Package pokeapi is the data source for evolution chains, National Dex
// numbers and form varieties, backed by the public PokeAPI REST service.
package pokeapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rohankatakam/familydex/internal/errors"
)

// DefaultBaseURL is the public PokeAPI v2 endpoint
const DefaultBaseURL = "https://pokeapi.co/api/v2/"

// ErrNotFound is returned when the API answers 404 or a payload lacks the
// requested entry
var ErrNotFound = stderrors.New("pokeapi: not found")

// Config holds client settings
type Config struct {
	BaseURL          string
	RequestInterval  time.Duration // minimum gap between requests
	Timeout          time.Duration
	MaxRetries       int
	UserAgent        string
	PayloadCacheSize int // species payloads kept in memory
}

// DefaultConfig returns settings that respect the public service's fair use policy
func DefaultConfig() Config {
	return Config{
		BaseURL:          DefaultBaseURL,
		RequestInterval:  200 * time.Millisecond,
		Timeout:          30 * time.Second,
		MaxRetries:       2,
		UserAgent:        "familydex",
		PayloadCacheSize: 256,
	}
}

// Client talks to PokeAPI with rate limiting and retries
type Client struct {
	baseURL     string
	http        *http.Client
	rateLimiter *rate.Limiter
	interval    time.Duration
	maxRetries  int
	userAgent   string
	species     *lru.Cache[string, []byte]
	logger      logrus.FieldLogger

	requests atomic.Int64
}

// NewClient creates a PokeAPI client
func NewClient(cfg Config, logger logrus.FieldLogger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.ConfigErrorf("invalid PokeAPI base URL %q: %v", cfg.BaseURL, err)
	}
	if cfg.PayloadCacheSize <= 0 {
		cfg.PayloadCacheSize = DefaultConfig().PayloadCacheSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	species, err := lru.New[string, []byte](cfg.PayloadCacheSize)
	if err != nil {
		return nil, errors.ConfigErrorf("species payload cache: %v", err)
	}

	// One request per interval, no bursts
	limit := rate.Inf
	if cfg.RequestInterval > 0 {
		limit = rate.Every(cfg.RequestInterval)
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		http:        &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(limit, 1),
		interval:    cfg.RequestInterval,
		maxRetries:  cfg.MaxRetries,
		userAgent:   cfg.UserAgent,
		species:     species,
		logger:      logger.WithField("component", "pokeapi"),
	}, nil
}

// Requests returns the number of HTTP requests sent so far
func (c *Client) Requests() int64 {
	return c.requests.Load()
}

// get fetches url and returns the body. 404 maps to ErrNotFound; 429 and 5xx
// are retried with linear backoff.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * maxDuration(c.interval, 100*time.Millisecond)
			c.logger.WithFields(logrus.Fields{
				"url":     rawURL,
				"attempt": attempt,
				"backoff": backoff.String(),
			}).Debug("Retrying request")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		body, retry, err := c.do(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, rawURL string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, errors.NetworkErrorf(err, "build request %s", rawURL)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.requests.Add(1)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, errors.NetworkErrorf(err, "GET %s", rawURL)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, errors.NetworkErrorf(err, "read %s", rawURL)
		}
		return body, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("GET %s: %w", rawURL, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, errors.NetworkErrorf(fmt.Errorf("status %d", resp.StatusCode), "GET %s", rawURL)
	default:
		return nil, false, errors.NetworkErrorf(fmt.Errorf("status %d", resp.StatusCode), "GET %s", rawURL)
	}
}

// speciesPayload returns the pokemon-species document for name, reusing a
// payload fetched earlier in the run
func (c *Client) speciesPayload(ctx context.Context, name string) ([]byte, error) {
	if body, ok := c.species.Get(name); ok {
		return body, nil
	}
	body, err := c.get(ctx, c.baseURL+"pokemon-species/"+url.PathEscape(name))
	if err != nil {
		return nil, err
	}
	c.species.Add(name, body)
	return body, nil
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
