// Package httpsource is a discount Source backed by a JSON clearance-offers
// API: one entry per store, each carrying its discounted products.
package httpsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apphttp "github.com/kosarica/deal-planner/internal/http"
	"github.com/kosarica/deal-planner/internal/http/ratelimit"
	"github.com/kosarica/deal-planner/internal/types"
)

const (
	// SourceName labels this source in errors and metrics.
	SourceName = "http"

	offersPath  = "/food-waste"
	maxBodySize = 32 << 20
)

// Config holds connection settings for the offers API.
type Config struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// Source fetches offers over HTTP. It makes one attempt per Fetch; the
// discount matcher owns retries.
type Source struct {
	baseURL *url.URL
	apiKey  string
	client  *apphttp.Client
	logger  zerolog.Logger
}

// New creates a Source. An empty API key is allowed for open endpoints.
func New(cfg Config, logger *zerolog.Logger) (*Source, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid offers API base URL %q", cfg.BaseURL)
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "http_source").Logger()
	}
	return &Source{
		baseURL: base,
		apiKey:  cfg.APIKey,
		client:  apphttp.NewClient(ratelimit.Config{RequestsPerSecond: cfg.RequestsPerSecond}, cfg.Timeout),
		logger:  l,
	}, nil
}

// Name implements discounts.Source.
func (s *Source) Name() string { return SourceName }

// Fetch implements discounts.Source.
func (s *Source) Fetch(ctx context.Context, loc types.Location, radiusKm float64) ([]types.DiscountItem, error) {
	u := *s.baseURL
	u.Path += offersPath
	q := u.Query()
	q.Set("geo", strconv.FormatFloat(loc.Latitude, 'f', 6, 64)+","+strconv.FormatFloat(loc.Longitude, 'f', 6, 64))
	q.Set("radius", strconv.FormatFloat(radiusKm, 'f', 3, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, s.permanent(0, err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		// network failures and timeouts
		return nil, &types.UpstreamError{Source: SourceName, Op: "fetch", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		upstream := &types.UpstreamError{
			Source:     SourceName,
			Op:         "fetch",
			StatusCode: resp.StatusCode,
			Transient:  ratelimit.IsRetryableStatus(resp.StatusCode),
			Err:        statusErr,
		}
		if delay, ok := ratelimit.ParseRetryAfter(resp.Header.Get("Retry-After")); ok {
			upstream.RetryAfter = delay
		}
		return nil, upstream
	}

	var payload []storeOffers
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &types.UpstreamError{Source: SourceName, Op: "fetch", StatusCode: resp.StatusCode, Transient: true, Err: err}
		}
		return nil, s.permanent(resp.StatusCode, fmt.Errorf("malformed response: %w", err))
	}

	items, skipped := convert(payload)
	if skipped > 0 {
		s.logger.Warn().Int("skipped", skipped).Int("kept", len(items)).Msg("Skipped offers that failed validation")
	}
	return items, nil
}

// HealthCheck sends a HEAD request to the base URL; any non-5xx answer counts
// as reachable.
func (s *Source) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.baseURL.String(), nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(ctx, req)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Offers API health check failed")
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

func (s *Source) permanent(status int, err error) error {
	return &types.UpstreamError{Source: SourceName, Op: "fetch", StatusCode: status, Err: err}
}
