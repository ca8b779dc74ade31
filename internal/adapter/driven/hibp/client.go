// Package hibp implements the BreachClient port against the Have I Been Pwned v3 API.
package hibp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/credaudit/internal/domain/model"
	"github.com/ericfisherdev/credaudit/internal/domain/port/driven"
	"github.com/ericfisherdev/credaudit/internal/logger"
)

// Compile-time interface satisfaction check.
var _ driven.BreachClient = (*Client)(nil)

const (
	headerAPIKey     = "hibp-api-key"
	headerUserAgent  = "User-Agent"
	headerRetryAfter = "Retry-After"

	breachedAccountPath = "/breachedaccount/{account}"
	breachDateLayout    = "2006-01-02"

	// maxRetryDelay bounds a single backoff step regardless of attempt count.
	maxRetryDelay = 5 * time.Minute

	// maxErrorBody bounds the response text carried into a LookupError, in bytes.
	maxErrorBody = 200
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Client.
type Options struct {
	BaseURL        string
	APIKey         string
	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	DisableCache   bool

	// Sleep replaces the context-aware timer used between retries. Tests
	// inject a recorder here.
	Sleep SleepFunc
}

// Client implements driven.BreachClient with the following transport stack:
//  1. httpcache (in-memory conditional request caching, unless disabled)
//  2. resty (base URL, headers, timeout)
//  3. an explicit retry loop for 429 responses with exponential backoff
type Client struct {
	rc         *resty.Client
	apiKey     string
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	sleep      SleepFunc
	log        *logger.Logger
}

// NewClient creates a Client for the production API. It returns
// driven.ErrNotConfigured when no API key is provided.
func NewClient(opts Options, log *logger.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: opts.Timeout}
	if !opts.DisableCache {
		httpClient.Transport = httpcache.NewMemoryCacheTransport()
	}
	return NewClientWithHTTPClient(httpClient, opts, log)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, opts Options, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, driven.ErrNotConfigured
	}
	if opts.BaseURL == "" {
		return nil, errors.New("hibp: base URL is empty")
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "credaudit"
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if log == nil {
		log = logger.Nop()
	}

	rc := resty.NewWithClient(httpClient).
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}

	return &Client{
		rc:         rc,
		apiKey:     opts.APIKey,
		userAgent:  opts.UserAgent,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.RetryBaseDelay,
		sleep:      opts.Sleep,
		log:        log.Component("hibp"),
	}, nil
}

// breachJSON mirrors one element of the breachedaccount response.
type breachJSON struct {
	Name        string   `json:"Name"`
	Title       string   `json:"Title"`
	Domain      string   `json:"Domain"`
	BreachDate  string   `json:"BreachDate"`
	AddedDate   string   `json:"AddedDate"`
	PwnCount    int64    `json:"PwnCount"`
	Description string   `json:"Description"`
	DataClasses []string `json:"DataClasses"`
}

// Lookup fetches the breaches for identity. A 429 is retried up to
// maxRetries times, waiting base*2^n (or Retry-After when longer) between
// attempts; after that ErrRateLimited is returned.
func (c *Client) Lookup(ctx context.Context, identity string) ([]model.Breach, error) {
	schedule := c.newBackOff()

	for attempt := 0; ; attempt++ {
		resp, err := c.rc.R().
			SetContext(ctx).
			SetHeader(headerAPIKey, c.apiKey).
			SetHeader(headerUserAgent, c.userAgent).
			SetHeader("Accept", "application/json").
			SetPathParam("account", identity).
			SetQueryParam("truncateResponse", "false").
			Get(breachedAccountPath)
		if err != nil {
			return nil, &driven.LookupError{Identity: identity, Err: err}
		}

		switch resp.StatusCode() {
		case http.StatusOK:
			return decodeBreaches(identity, resp.Body())
		case http.StatusNotFound:
			return nil, nil
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, fmt.Errorf("%w: http %d", driven.ErrUnauthorized, resp.StatusCode())
		case http.StatusTooManyRequests:
			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("lookup %s after %d attempts: %w", identity, attempt+1, driven.ErrRateLimited)
			}

			delay := schedule.NextBackOff()
			if ra := retryAfter(resp); ra > delay {
				delay = ra
			}
			c.log.Warn().
				Str("identity", identity).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("rate limited, backing off")

			if err := c.sleep(ctx, delay); err != nil {
				return nil, &driven.LookupError{Identity: identity, Err: err}
			}
		default:
			return nil, &driven.LookupError{
				Identity:   identity,
				StatusCode: resp.StatusCode(),
				Err:        errors.New(responseMessage(resp)),
			}
		}
	}
}

// newBackOff returns a deterministic doubling schedule starting at baseDelay.
func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.baseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxRetryDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

func decodeBreaches(identity string, body []byte) ([]model.Breach, error) {
	var raw []breachJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &driven.LookupError{
			Identity:   identity,
			StatusCode: http.StatusOK,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}

	breaches := make([]model.Breach, 0, len(raw))
	for _, r := range raw {
		breaches = append(breaches, model.Breach{
			Name:          r.Name,
			Title:         r.Title,
			Domain:        r.Domain,
			Date:          parseBreachDate(r.BreachDate),
			DataTypes:     r.DataClasses,
			Description:   r.Description,
			AffectedCount: r.PwnCount,
		})
	}
	return breaches, nil
}

// parseBreachDate returns the zero time for missing or malformed dates;
// unknown dates sort as the earliest possible.
func parseBreachDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(breachDateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(resp *resty.Response) time.Duration {
	v := strings.TrimSpace(resp.Header().Get(headerRetryAfter))
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func responseMessage(resp *resty.Response) string {
	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		return http.StatusText(resp.StatusCode())
	}
	if len(body) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return body
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
