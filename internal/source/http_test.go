package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vburojevic/pricewatch/internal/domain"
)

func testConfig() Config {
	return Config{Timeout: time.Second, MinGap: 0}
}

func TestHTTPSourceFetch(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		fmt.Fprint(w, `<span class="a-price-whole">9.</span><span class="a-price-fraction">50</span>`)
	}))
	defer srv.Close()

	sample := NewHTTPSource(testConfig(), nil).Fetch(context.Background(), srv.URL)
	require.True(t, sample.OK, sample.Reason)
	assert.Equal(t, domain.Price(950), sample.Value)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "en-US,en;q=0.9", gotLang)
}

func TestHTTPSourceUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		reason  string
	}{
		{
			name:    "non 2xx",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			reason:  "status 503",
		},
		{
			name:    "no price",
			handler: func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "<p>captcha</p>") },
			reason:  "no price on page",
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			reason: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			cfg := testConfig()
			cfg.Timeout = 100 * time.Millisecond
			sample := NewHTTPSource(cfg, nil).Fetch(context.Background(), srv.URL)
			assert.False(t, sample.OK)
			assert.Contains(t, sample.Reason, tt.reason)
		})
	}
}

func TestHTTPSourceBadURL(t *testing.T) {
	sample := NewHTTPSource(testConfig(), nil).Fetch(context.Background(), "http://127.0.0.1:1/unreachable")
	assert.False(t, sample.OK)
	assert.NotEmpty(t, sample.Reason)
}

func TestHTTPSourceBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("<p>padding</p>", 200))
		fmt.Fprint(w, `<span class="a-offscreen">$1.00</span>`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxBodyBytes = 512
	sample := NewHTTPSource(cfg, nil).Fetch(context.Background(), srv.URL)
	assert.False(t, sample.OK, "price beyond the body limit is not seen")
}

func TestHTTPSourceMinGap(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `<span class="a-offscreen">$1.00</span>`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MinGap = 150 * time.Millisecond
	src := NewHTTPSource(cfg, nil)

	start := time.Now()
	require.True(t, src.Fetch(context.Background(), srv.URL).OK)
	require.True(t, src.Fetch(context.Background(), srv.URL).OK)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, int32(2), hits.Load())
}
