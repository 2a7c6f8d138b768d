// Package upstream wraps the third-party game-data APIs.
package upstream

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"chronolookup-api/internal/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// ErrMalformedResponse is returned when an upstream body lacks an expected field.
var ErrMalformedResponse = errors.New("malformed upstream response")

// StatusError is a non-OK upstream response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.StatusCode)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Route says whether a call goes through the proxy chain.
type Route int

const (
	Direct Route = iota
	Proxied
)

// Options configures a Client.
type Options struct {
	Timeout time.Duration

	// ProxyChain lists URL prefixes tried in order; the target URL is appended
	// query-escaped. An empty entry means a direct request.
	ProxyChain []string

	UserAgent string
}

// Client issues single-attempt HTTP calls. Retrying is the caller's concern.
type Client struct {
	http    *resty.Client
	proxies []string
	log     zerolog.Logger
}

// Blob is a binary response body.
type Blob struct {
	Data        []byte
	ContentType string
}

// DataURI encodes the blob as a data: URI.
func (b Blob) DataURI() string {
	ct := b.ContentType
	if ct == "" {
		ct = http.DetectContentType(b.Data)
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(b.Data)
}

// NewClient creates an upstream client.
func NewClient(opts Options, log zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "chronolookup-api"
	}

	c := &Client{
		proxies: opts.ProxyChain,
		log:     log.With().Str("component", "Upstream").Logger(),
	}

	c.http = resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
			metrics.UpstreamRequests.WithLabelValues(hostOf(r.Request.URL), strconv.Itoa(r.StatusCode())).Inc()
			return nil
		}).
		OnError(func(r *resty.Request, err error) {
			metrics.UpstreamRequests.WithLabelValues(hostOf(r.URL), "0").Inc()
		})

	return c
}

// Resty exposes the underlying client, mainly for tests.
func (c *Client) Resty() *resty.Client { return c.http }

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "unknown"
	}
	return u.Host
}

func (c *Client) targets(raw string, route Route) []string {
	if route == Direct || len(c.proxies) == 0 {
		return []string{raw}
	}
	out := make([]string, 0, len(c.proxies))
	for _, p := range c.proxies {
		if p == "" {
			out = append(out, raw)
			continue
		}
		out = append(out, p+url.QueryEscape(raw))
	}
	return out
}

// do runs one request, walking the proxy chain until a target returns 2xx.
func (c *Client) do(ctx context.Context, method, raw string, route Route, body interface{}, accept string) (*resty.Response, error) {
	var last error
	for _, target := range c.targets(raw, route) {
		req := c.http.R().SetContext(ctx).SetHeader("Accept", accept)
		if body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}

		resp, err := req.Execute(method, target)
		if err != nil {
			last = fmt.Errorf("%s %s: %w", method, raw, err)
			c.log.Debug().Err(err).Str("target", target).Msg("request failed")
			continue
		}
		if !resp.IsSuccess() {
			last = &StatusError{URL: raw, StatusCode: resp.StatusCode()}
			c.log.Debug().Int("status", resp.StatusCode()).Str("target", target).Msg("non-OK response")
			continue
		}
		return resp, nil
	}
	return nil, last
}

// Get performs a GET and returns the raw body of an OK response.
func (c *Client) Get(ctx context.Context, raw string, route Route) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, raw, route, nil, "application/json")
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// Post sends body as JSON and returns the raw body of an OK response.
func (c *Client) Post(ctx context.Context, raw string, route Route, body interface{}) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodPost, raw, route, body, "application/json")
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// GetBytes fetches a binary resource such as an image.
func (c *Client) GetBytes(ctx context.Context, raw string, route Route) (Blob, error) {
	resp, err := c.do(ctx, http.MethodGet, raw, route, nil, "image/*,*/*")
	if err != nil {
		return Blob{}, err
	}
	if len(resp.Body()) == 0 {
		return Blob{}, fmt.Errorf("%w: empty body from %s", ErrMalformedResponse, raw)
	}
	return Blob{Data: resp.Body(), ContentType: resp.Header().Get("Content-Type")}, nil
}
