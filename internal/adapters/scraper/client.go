package scraper

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"stayscore/internal/adapters/observability"
	"stayscore/internal/domain"
)

// Client talks to the scraper agent that fronts the review platforms.
// It implements domain.AgentClient.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// FetchRecords pulls up to limit raw records for one platform. The agent
// exposes the collection under two path shapes depending on its version.
func (c *Client) FetchRecords(ctx context.Context, p domain.Platform, limit int) ([]map[string]any, error) {
	candidates := []string{
		fmt.Sprintf("%s/platforms/%s/records?limit=%d", c.base, p, limit), // preferred
		fmt.Sprintf("%s/records/%s/%d", c.base, p, limit),                 // legacy
	}
	var out []map[string]any
	return out, c.getFirst(ctx, string(p), candidates, &out)
}

var (
	ErrNotFound     = errors.New("scraper: not found")
	ErrUnauthorized = errors.New("scraper: unauthorized")
	ErrForbidden    = errors.New("scraper: forbidden")
)

func (c *Client) getFirst(ctx context.Context, endpoint string, urls []string, out any) error {
	var last error
	for _, u := range urls {
		if err := c.get(ctx, endpoint, u, out); err != nil {
			if errors.Is(err, ErrNotFound) {
				last = err
				continue // try next pattern
			}
			return err // non-404: stop early
		}
		return nil // success
	}
	if last != nil {
		return last
	}
	return errors.New("no candidate URL succeeded")
}

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, endpoint, url string, out any) error {
	// client-side rate limiting
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if c.key != "" {
			req.Header.Set("X-API-Key", c.key)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "stayscore/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("scraper", endpoint, 0, time.Since(start))
			// network error or context canceled
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("scraper", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
