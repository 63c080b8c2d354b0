package fx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/mmynk/brokewise/internal/currency"
)

const (
	// DefaultBaseURL is the public exchangerate-api.com endpoint.
	DefaultBaseURL = "https://api.exchangerate-api.com"

	sourceExchangeRateAPI = "exchangerate-api.com"
)

// HTTPOptions configures an HTTPProvider. Zero values pick defaults.
type HTTPOptions struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int

	// BreakerFailures consecutive failures open the circuit for
	// BreakerCooldown, during which lookups fail fast.
	BreakerFailures uint32
	BreakerCooldown time.Duration

	Client *http.Client
}

// HTTPProvider fetches snapshots from exchangerate-api.com (v4 API).
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPProvider creates an HTTPProvider.
func NewHTTPProvider(opts HTTPOptions) *HTTPProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	failures := opts.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "exchange-rates",
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("Rate provider circuit changed state",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &HTTPProvider{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		breaker: breaker,
	}
}

// latestResponse is the subset of the v4 "latest" payload we read.
type latestResponse struct {
	Base            string                     `json:"base"`
	TimeLastUpdated int64                      `json:"time_last_updated"`
	Rates           map[string]decimal.Decimal `json:"rates"`
}

// Latest fetches the latest rates for base.
func (p *HTTPProvider) Latest(ctx context.Context, base currency.Code) (*Snapshot, error) {
	res, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetch(ctx, base)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return nil, err
	}
	return res.(*Snapshot), nil
}

func (p *HTTPProvider) fetch(ctx context.Context, base currency.Code) (*Snapshot, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	url := fmt.Sprintf("%s/v4/latest/%s", p.baseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrProviderUnavailable, err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("%w: empty rates for %s", ErrProviderUnavailable, base)
	}

	snap := &Snapshot{
		Base:      base,
		Rates:     make(map[currency.Code]decimal.Decimal, len(body.Rates)),
		Timestamp: body.TimeLastUpdated,
		Source:    sourceExchangeRateAPI,
	}
	for code, r := range body.Rates {
		c := currency.Code(code)
		if c.Valid() && r.IsPositive() {
			snap.Rates[c] = r
		}
	}

	slog.Debug("Fetched exchange rates", "base", base, "count", len(snap.Rates))
	return snap, nil
}
