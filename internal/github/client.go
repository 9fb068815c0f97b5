// Package github fetches Copilot metrics and seat data from the GitHub REST
// API for a configured scope target, handling rate limits and pagination.
// Metrics payloads are returned as raw bytes: classifying and converting
// their shape belongs to the copilot package, not this client.
package github

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Compunnel-EAB/copilot-metrics-viewer/internal/copilot"
)

const defaultAPIBase = "https://api.github.com"
const apiVersion = "2022-11-28"
const maxRetries = 3
const defaultFallbackSleep = 60 * time.Second
const rateLimitResetBuffer = 5 * time.Second

// Target names what metrics are fetched for: the scope plus the identifiers
// that scope's endpoints need. Team scope also requires the organization.
type Target struct {
	Scope        copilot.Scope
	Enterprise   string
	Organization string
	Team         string
}

type Client struct {
	httpClient         *http.Client
	apiBase            string
	token              string
	target             Target
	logger             *zap.Logger
	rateLimitRemaining int
	rateLimitReset     time.Time
}

func NewClient(token string, target Target, logger *zap.Logger) *Client {
	return &Client{
		httpClient:         &http.Client{},
		apiBase:            defaultAPIBase,
		token:              token,
		target:             target,
		logger:             logger,
		rateLimitRemaining: -1,
	}
}

func (c *Client) updateRateLimit(resp *http.Response) {
	if s := resp.Header.Get("X-RateLimit-Remaining"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			c.rateLimitRemaining = n
		}
	}
	if s := resp.Header.Get("X-RateLimit-Reset"); s != "" {
		if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
			c.rateLimitReset = time.Unix(unix, 0)
		}
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
}

// sleepSecondaryRateLimit handles a 429 response by sleeping for the duration
// specified in the Retry-After header. Falls back to defaultFallbackSleep if
// the header is absent or unparseable. Always drains and closes the body.
func sleepSecondaryRateLimit(resp *http.Response) time.Duration {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
			d := time.Duration(secs) * time.Second
			time.Sleep(d)
			return d
		}
	}
	time.Sleep(defaultFallbackSleep)
	return defaultFallbackSleep
}

// sleepPrimaryRateLimit handles a 403+X-RateLimit-Remaining=0 response by
// sleeping until the reset time from X-RateLimit-Reset (plus a small buffer).
// Falls back to defaultFallbackSleep if the header is absent or unparseable.
// Always drains and closes the body.
func sleepPrimaryRateLimit(resp *http.Response) time.Duration {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if s := resp.Header.Get("X-RateLimit-Reset"); s != "" {
		if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
			if d := time.Until(time.Unix(unix, 0)) + rateLimitResetBuffer; d > 0 {
				time.Sleep(d)
				return d
			}
		}
	}
	time.Sleep(defaultFallbackSleep)
	return defaultFallbackSleep
}

// fetch performs a GET with rate-limit handling and bounded retries,
// returning the response body.
func (c *Client) fetch(url string) ([]byte, error) {
	if c.rateLimitRemaining == 0 {
		if d := time.Until(c.rateLimitReset) + rateLimitResetBuffer; d > 0 {
			c.logger.Info("preemptively waiting for github rate limit reset",
				zap.Duration("wait", d),
				zap.Time("resetAt", c.rateLimitReset),
			)
			time.Sleep(d)
		}
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		switch resp.StatusCode {
		case http.StatusOK:
			c.updateRateLimit(resp)
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("reading response body for %s: %w", url, err)
			}
			return body, nil

		case http.StatusTooManyRequests: // 429 secondary rate limit
			retriesRemaining := maxRetries - attempt - 1
			waited := sleepSecondaryRateLimit(resp)
			c.logger.Warn("github secondary rate limit hit",
				zap.String("url", url),
				zap.Duration("waited", waited),
				zap.Int("retriesRemaining", retriesRemaining),
			)
			if retriesRemaining == 0 {
				return nil, fmt.Errorf("secondary rate limited on %s after %d retries", url, maxRetries)
			}

		case http.StatusForbidden:
			if resp.Header.Get("X-RateLimit-Remaining") != "0" {
				// Not a rate limit (auth error, permissions, etc.) — fail immediately.
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
			}
			// Primary rate limit exhausted.
			retriesRemaining := maxRetries - attempt - 1
			waited := sleepPrimaryRateLimit(resp)
			c.logger.Warn("github primary rate limit hit",
				zap.String("url", url),
				zap.Duration("waited", waited),
				zap.Int("retriesRemaining", retriesRemaining),
			)
			if retriesRemaining == 0 {
				return nil, fmt.Errorf("primary rate limited on %s after %d retries", url, maxRetries)
			}

		default:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
		}
	}
	return nil, fmt.Errorf("get %s: exceeded max retries", url)
}

func (c *Client) get(url string, out any) error {
	body, err := c.fetch(url)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *Client) metricsURL() (string, error) {
	switch c.target.Scope {
	case copilot.ScopeEnterprise:
		return fmt.Sprintf("%s/enterprises/%s/copilot/metrics", c.apiBase, c.target.Enterprise), nil
	case copilot.ScopeOrganization:
		return fmt.Sprintf("%s/orgs/%s/copilot/metrics", c.apiBase, c.target.Organization), nil
	case copilot.ScopeTeam:
		return fmt.Sprintf("%s/orgs/%s/team/%s/copilot/metrics",
			c.apiBase, c.target.Organization, c.target.Team), nil
	}
	return "", fmt.Errorf("no metrics endpoint for scope %q", c.target.Scope)
}

func (c *Client) seatsURL(perPage, page int) (string, error) {
	switch c.target.Scope {
	case copilot.ScopeEnterprise:
		return fmt.Sprintf("%s/enterprises/%s/copilot/billing/seats?per_page=%d&page=%d",
			c.apiBase, c.target.Enterprise, perPage, page), nil
	case copilot.ScopeOrganization, copilot.ScopeTeam:
		// Seat assignments are tracked at organization level; there is no
		// team seats endpoint.
		return fmt.Sprintf("%s/orgs/%s/copilot/billing/seats?per_page=%d&page=%d",
			c.apiBase, c.target.Organization, perPage, page), nil
	}
	return "", fmt.Errorf("no seats endpoint for scope %q", c.target.Scope)
}

// Metrics returns the raw metrics payload for the configured target. The
// bytes are handed to the copilot validator untouched.
func (c *Client) Metrics() ([]byte, error) {
	url, err := c.metricsURL()
	if err != nil {
		return nil, err
	}
	body, err := c.fetch(url)
	if err != nil {
		return nil, fmt.Errorf("fetching copilot metrics: %w", err)
	}
	return body, nil
}

// Seats lists every Copilot seat for the configured target, following
// page-based pagination.
func (c *Client) Seats() ([]copilot.Seat, error) {
	var seats []copilot.Seat
	page := 1
	perPage := 100

	for {
		url, err := c.seatsURL(perPage, page)
		if err != nil {
			return nil, err
		}

		var resp seatsResponse
		if err := c.get(url, &resp); err != nil {
			return nil, fmt.Errorf("listing copilot seats page %d: %w", page, err)
		}

		for _, item := range resp.Seats {
			seats = append(seats, toSeat(item))
		}

		if len(resp.Seats) < perPage {
			break
		}
		page++
	}

	return seats, nil
}

func toSeat(item seatItem) copilot.Seat {
	seat := copilot.Seat{
		Login:               item.Assignee.Login,
		CreatedAt:           item.CreatedAt,
		LastActivityAt:      item.LastActivityAt,
		PendingCancellation: item.PendingCancellationDate != nil,
	}
	if item.AssigningTeam != nil {
		seat.AssignedTeam = item.AssigningTeam.Slug
	}
	return seat
}
