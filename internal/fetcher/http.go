package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration

	// RequestDelay is the minimum spacing between any two requests issued
	// through this fetcher, across all goroutines.
	RequestDelay time.Duration

	// MaxBodyBytes bounds a single response body. Default: 256 MiB.
	MaxBodyBytes int64

	Retry    resilience.RetryConfig
	Breakers *resilience.HostBreakers

	// HostLimiters overrides the per-host adaptive limiters.
	HostLimiters map[string]*AdaptiveLimiter
}

// HTTPFetcher implements Fetcher using net/http with pacing, per-host
// adaptive limits, circuit breaking and retry.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	pace     *rate.Limiter
	adaptive map[string]*AdaptiveLimiter
	breakers *resilience.HostBreakers
	now      func() time.Time
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 256 << 20
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	if opts.Breakers == nil {
		opts.Breakers = resilience.NewHostBreakers(resilience.DefaultCircuitBreakerConfig())
	}
	adaptive := opts.HostLimiters
	if adaptive == nil {
		adaptive = DefaultHostLimiters()
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		pace:     NewPaceLimiter(opts.RequestDelay),
		adaptive: adaptive,
		breakers: opts.Breakers,
		now:      time.Now,
	}
}

// Get fetches rawURL, retrying transient failures with backoff.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "parse url %q", rawURL)
	}

	retry := f.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("GET", rawURL)
	}

	breaker := f.breakers.Get(u.Host)
	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*Response, error) {
		if err := f.wait(ctx, u.Host); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}
		resp, err := resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (*Response, error) {
			return f.do(ctx, rawURL, u.Host)
		})
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, &model.NetworkError{URL: rawURL, Err: err}
		}
		return resp, err
	})
}

func (f *HTTPFetcher) wait(ctx context.Context, host string) error {
	if err := f.pace.Wait(ctx); err != nil {
		return err
	}
	if lim, ok := f.adaptive[host]; ok {
		return lim.Wait(ctx)
	}
	return nil
}

func (f *HTTPFetcher) do(ctx context.Context, rawURL, host string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		nerr := &model.NetworkError{URL: rawURL, Err: err}
		if resilience.IsTransient(err) {
			return nil, resilience.NewTransientError(nerr, 0)
		}
		return nil, nerr
	}
	defer resp.Body.Close() //nolint:errcheck

	lim := f.adaptive[host]
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		nerr := &model.NetworkError{URL: rawURL, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests && lim != nil {
			lim.OnRateLimit(host)
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			te := resilience.NewTransientError(nerr, resp.StatusCode)
			te.RetryAfter = resilience.ParseRetryAfter(resp.Header.Get("Retry-After"), f.now())
			return nil, te
		}
		return nil, nerr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &model.IntegrityError{
				URL:      rawURL,
				Reason:   "connection closed before declared Content-Length",
				Expected: resp.ContentLength,
				Actual:   int64(len(body)),
			}
		}
		nerr := &model.NetworkError{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
		if resilience.IsTransient(err) {
			return nil, resilience.NewTransientError(nerr, 0)
		}
		return nil, nerr
	}
	if int64(len(body)) > f.opts.MaxBodyBytes {
		return nil, &model.IntegrityError{URL: rawURL, Reason: "body exceeds size limit", Expected: f.opts.MaxBodyBytes, Actual: int64(len(body))}
	}

	if lim != nil {
		lim.OnSuccess()
	}
	zap.L().Debug("fetched",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
	)

	return &Response{
		URL:           rawURL,
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
		Body:          body,
	}, nil
}
