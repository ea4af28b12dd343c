package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/vburojevic/pricewatch/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMinGap       = 2 * time.Second
	DefaultMaxBodyBytes = 2 << 20
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config tunes the HTTP sample source. Zero values take the defaults.
type Config struct {
	Timeout      time.Duration
	UserAgent    string
	MinGap       time.Duration
	MaxBodyBytes int64
	Selector     string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MinGap < 0 {
		c.MinGap = 0
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}

// HTTPSource fetches a product page and extracts its price.
type HTTPSource struct {
	client  *http.Client
	cfg     Config
	parser  *Parser
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewHTTPSource builds a source with a shared client. logger may be nil.
func NewHTTPSource(cfg Config, logger *zap.Logger) *HTTPSource {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.MinGap > 0 {
		limit = rate.Every(cfg.MinGap)
	}
	return &HTTPSource{
		client:  NewHTTPClient(cfg.Timeout, cfg.UserAgent),
		cfg:     cfg,
		parser:  NewParser(cfg.Selector),
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// NewHTTPClient returns a reusable client that injects the user agent.
func NewHTTPClient(timeout time.Duration, userAgent string) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Transport: userAgentTransport{rt: transport, userAgent: userAgent},
		Timeout:   timeout,
	}
}

// userAgentTransport sets a browser-like identity on every request.
type userAgentTransport struct {
	rt        http.RoundTripper
	userAgent string
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}
	return t.rt.RoundTrip(req)
}

// Fetch takes one sample. Every failure is folded into an unavailable sample.
func (s *HTTPSource) Fetch(ctx context.Context, target string) domain.Sample {
	price, err := s.fetch(ctx, target)
	if err != nil {
		reason := classify(err)
		s.logger.Debug("sample unavailable", zap.String("target", target), zap.String("reason", reason))
		return domain.Unavailable(reason)
	}
	s.logger.Debug("sample", zap.String("target", target), zap.Stringer("price", price))
	return domain.SampleOf(price)
}

func (s *HTTPSource) fetch(ctx context.Context, target string) (domain.Price, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, &StatusError{Code: resp.StatusCode}
	}
	return s.parser.Parse(io.LimitReader(resp.Body, s.cfg.MaxBodyBytes))
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d", e.Code)
}

// classify produces a short, stable reason for the operator log.
func classify(err error) string {
	var statusErr *StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &statusErr):
		return statusErr.Error()
	case errors.Is(err, ErrNoPrice):
		return "no price on page"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	return err.Error()
}
