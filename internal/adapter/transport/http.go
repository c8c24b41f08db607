// Package transport executes single blocking exchanges with the dispatch server.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/codec"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	DefaultRequestTimeout = 30 * time.Second

	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 1 << 20
)

// Response is the raw answer of one exchange. StatusCode is the HTTP status,
// or StatusTransportFailed when the server could not be reached.
type Response struct {
	StatusCode int
	Body       []byte
}

// TokenSource returns the bearer token to attach, empty for none.
type TokenSource func() string

type Options struct {
	BaseURL        string
	RequestTimeout time.Duration
	RateLimit      float64 // requests per second, <= 0 disables limiting
	RateBurst      int
	Token          TokenSource
	Client         *http.Client
}

// HTTP is the transport handle. It is guarded so concurrent callers serialize.
type HTTP struct {
	mu sync.Mutex

	baseURL string
	timeout time.Duration
	client  *http.Client
	limiter *rate.Limiter
	token   TokenSource
	log     logger.Logger
}

func New(opts Options, log logger.Logger) (*HTTP, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("transport: base url is required")
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
			},
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &HTTP{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: timeout,
		client:  client,
		limiter: limiter,
		token:   opts.Token,
		log:     log,
	}, nil
}

// Execute performs one exchange. Connectivity failures are reported both as a
// Response with StatusTransportFailed and a diagnostic body, and as a
// *types.TransportError. No retries happen here.
func (t *HTTP) Execute(ctx context.Context, method, route string, body []byte) (Response, error) {
	const op = "HTTP.Execute"

	t.mu.Lock()
	defer t.mu.Unlock()

	requestID := uuid.NewString()
	ctx = wrap.WithRequestID(ctx, requestID)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.limiter.Wait(ctx); err != nil {
		return t.failure(ctx, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+route, bytes.NewReader(body))
	if err != nil {
		return t.failure(ctx, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if t.token != nil {
		if token := t.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return t.failure(ctx, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return t.failure(ctx, op, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		t.log.Warn(ctx, "dispatch server answered with http failure", "status", resp.StatusCode, "route", route)
	} else {
		t.log.Debug(ctx, "dispatch server answered", "status", resp.StatusCode, "route", route, "bytes", len(data))
	}

	return Response{StatusCode: resp.StatusCode, Body: data}, nil
}

func (t *HTTP) failure(ctx context.Context, op string, cause error) (Response, error) {
	terr := &types.TransportError{Op: op, Err: cause}
	t.log.Warn(ctx, "cannot connect to server", "cause", cause.Error())
	return Response{
		StatusCode: types.StatusTransportFailed,
		Body:       codec.ErrorBody("Cannot connect to server: " + cause.Error()),
	}, wrap.Error(ctx, terr)
}

// Close drops idle connections. The handle stays usable.
func (t *HTTP) Close() {
	t.client.CloseIdleConnections()
}
