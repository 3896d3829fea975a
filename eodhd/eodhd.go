// Package eodhd fetches daily candles and real-time quotes from https://eodhd.com.
package eodhd

import (
	"net/http"
	"time"

	"github.com/etnz/folio/cache"
	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://eodhd.com/api"

// Client is an EODHD API client.
type Client struct {
	http        *resty.Client
	limiter     *limiter
	concurrency int
	store       cache.Store
	ttl         time.Duration
}

type options struct {
	baseURL     string
	timeout     time.Duration
	retries     int
	retryWait   time.Duration
	concurrency int
	rate        float64
	cacheDir    string
	store       cache.Store
	ttl         time.Duration
	transport   http.RoundTripper
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithRetries sets how many times a failed or throttled request is retried, and the initial
// wait between attempts.
func WithRetries(n int, wait time.Duration) Option {
	return func(o *options) { o.retries, o.retryWait = n, wait }
}

// WithConcurrency bounds the number of symbols fetched at once.
func WithConcurrency(n int) Option { return func(o *options) { o.concurrency = max(n, 1) } }

// WithRate limits the requests per second.
func WithRate(perSecond float64) Option { return func(o *options) { o.rate = perSecond } }

// WithDiskCache keeps successful responses in dir until the end of the day.
func WithDiskCache(dir string) Option { return func(o *options) { o.cacheDir = dir } }

// WithStore looks up candles in s before calling the API, and stores them for ttl.
func WithStore(s cache.Store, ttl time.Duration) Option {
	return func(o *options) { o.store, o.ttl = s, ttl }
}

// WithTransport replaces the underlying HTTP transport.
func WithTransport(t http.RoundTripper) Option { return func(o *options) { o.transport = t } }

// New returns a client authenticated with apiKey.
func New(apiKey string, opts ...Option) *Client {
	o := &options{
		baseURL:     DefaultBaseURL,
		timeout:     30 * time.Second,
		retries:     3,
		retryWait:   time.Second,
		concurrency: 4,
		rate:        5,
		transport:   http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(o)
	}

	transport := o.transport
	if o.cacheDir != "" {
		transport = &diskCache{base: transport, dir: o.cacheDir}
	}

	client := resty.New().
		SetTransport(transport).
		SetBaseURL(o.baseURL).
		SetTimeout(o.timeout).
		SetQueryParams(map[string]string{"api_token": apiKey, "fmt": "json"}).
		SetHeader("Accept", "application/json").
		SetRetryCount(o.retries).
		SetRetryWaitTime(o.retryWait).
		SetRetryMaxWaitTime(10 * o.retryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	return &Client{
		http:        client,
		limiter:     newLimiter(o.rate, max(o.rate, 1)),
		concurrency: o.concurrency,
		store:       o.store,
		ttl:         o.ttl,
	}
}
