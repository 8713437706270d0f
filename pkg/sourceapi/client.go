// Package sourceapi is the collaborator client: the thin wrapper around
// pkg/httpclient that speaks the contract spec §6 requires of every
// source/target REST endpoint — `GET <base>`, `GET <base>/<id>`,
// `GET <base>?<field>=<value>`, and `POST <base>`.
package sourceapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/Ramsey-B/refproxy/pkg/httpclient"
	"github.com/Ramsey-B/refproxy/pkg/metrics"
	"github.com/Ramsey-B/refproxy/pkg/ratelimit"
	"github.com/Ramsey-B/refproxy/pkg/refengine"
)

// OutboundLimiter throttles calls to a source/target collaborator,
// distinct from the core's own no-rate-limiting non-goal: this throttles
// calls this service makes to someone else's API (SPEC_FULL §11), via
// pkg/ratelimit's static-window-plus-dynamic-header Manager.
type OutboundLimiter struct {
	manager *ratelimit.Manager
	key     string
	limit   int64
	window  time.Duration
}

func NewOutboundLimiter(manager *ratelimit.Manager, key string, limit int64, window time.Duration) *OutboundLimiter {
	return &OutboundLimiter{manager: manager, key: key, limit: limit, window: window}
}

func (l *OutboundLimiter) wait(ctx context.Context) error {
	if l == nil || l.manager == nil || l.limit <= 0 {
		return nil
	}
	start := time.Now()
	for {
		result, err := l.manager.Allow(ctx, l.key, l.limit, l.window)
		if err != nil {
			return nil // fail open: a limiter outage must not block migrations
		}
		if result.Allowed {
			metrics.RateLimitWaitTime.WithLabelValues(l.key).Observe(time.Since(start).Seconds())
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(result.RetryIn):
		}
	}
}

// observe lets the limiter adjust its dynamic block from the upstream's
// own rate-limit response headers, after a call completes.
func (l *OutboundLimiter) observe(ctx context.Context, headers map[string]string) {
	if l == nil || l.manager == nil {
		return
	}
	l.manager.UpdateFromResponse(ctx, l.key, headers)
}

// Client talks to one base endpoint (a source or a target), forwarding a
// caller-supplied credential verbatim on every call (spec §6).
type Client struct {
	http    *httpclient.Client
	headers map[string]string
	limiter *OutboundLimiter
}

func New(http *httpclient.Client, forwardedHeaders map[string]string) *Client {
	return &Client{http: http, headers: forwardedHeaders}
}

// WithLimiter returns a copy of the client that waits on limiter before
// every outbound call.
func (c *Client) WithLimiter(limiter *OutboundLimiter) *Client {
	return &Client{http: c.http, headers: c.headers, limiter: limiter}
}

// RejectedError wraps a non-2xx response from a source/target call, per
// spec §7's UpstreamRejected kind.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("upstream rejected request with status %d", e.StatusCode)
}

// List issues `GET <base>` and returns the record list.
func (c *Client) List(ctx context.Context, base string) ([]refengine.Record, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.http.Get(ctx, base, c.headers)
	if err != nil {
		return nil, err
	}
	c.limiter.observe(ctx, resp.Headers)
	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	var records []refengine.Record
	if err := json.Unmarshal(resp.Body, &records); err != nil {
		return nil, fmt.Errorf("sourceapi: decoding list response: %w", err)
	}
	return records, nil
}

// Get issues `GET <base>/<id>` and returns the single record. It reports
// refengine.ErrNotFound for a 404, satisfying C3's FetchByID contract.
func (c *Client) Get(ctx context.Context, base, id string) (refengine.Record, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.http.Get(ctx, base+"/"+url.PathEscape(id), c.headers)
	if err != nil {
		return nil, err
	}
	c.limiter.observe(ctx, resp.Headers)
	if resp.StatusCode == 404 {
		return nil, refengine.ErrNotFound
	}
	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	var record refengine.Record
	if err := json.Unmarshal(resp.Body, &record); err != nil {
		return nil, fmt.Errorf("sourceapi: decoding record response: %w", err)
	}
	return record, nil
}

// Filter issues `GET <base>?<field>=<value>` and returns the matching list,
// used by C10's S1 lookup query.
func (c *Client) Filter(ctx context.Context, base, field string, value any) ([]refengine.Record, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set(field, fmt.Sprintf("%v", value))
	resp, err := c.http.Get(ctx, base+"?"+q.Encode(), c.headers)
	if err != nil {
		return nil, err
	}
	c.limiter.observe(ctx, resp.Headers)
	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	var records []refengine.Record
	if err := json.Unmarshal(resp.Body, &records); err != nil {
		return nil, fmt.Errorf("sourceapi: decoding filter response: %w", err)
	}
	return records, nil
}

// Create issues `POST <base>` with the record body and returns the created
// record (with its new `id`).
func (c *Client) Create(ctx context.Context, base string, record refengine.Record) (refengine.Record, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}
	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("sourceapi: encoding record: %w", err)
	}

	resp, err := c.http.Post(ctx, base, body, c.headers)
	if err != nil {
		return nil, err
	}
	c.limiter.observe(ctx, resp.Headers)
	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	var created refengine.Record
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		return nil, fmt.Errorf("sourceapi: decoding created record: %w", err)
	}
	return created, nil
}
