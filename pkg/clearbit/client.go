// Package clearbit is a minimal client for the Clearbit company and person
// lookup APIs.
package clearbit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultCompanyURL = "https://company.clearbit.com"
	defaultPersonURL  = "https://person.clearbit.com"
)

// ErrNotFound is returned when Clearbit has no record for the lookup.
var ErrNotFound = eris.New("clearbit: not found")

// ErrPending is returned when Clearbit queued the lookup and has no data yet.
var ErrPending = eris.New("clearbit: lookup pending")

// Client looks up company and person records.
type Client interface {
	FindCompany(ctx context.Context, domain string) (map[string]any, error)
	FindPerson(ctx context.Context, email string) (map[string]any, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL points both lookups at a single host. Used for proxies and tests.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.companyURL = u
			c.personURL = u
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit throttles outbound calls to rps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey     string
	companyURL string
	personURL  string
	http       *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Clearbit client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:     apiKey,
		companyURL: defaultCompanyURL,
		personURL:  defaultPersonURL,
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) FindCompany(ctx context.Context, domain string) (map[string]any, error) {
	q := url.Values{"domain": {domain}}
	return c.get(ctx, c.companyURL+"/v2/companies/find?"+q.Encode(), "company")
}

func (c *httpClient) FindPerson(ctx context.Context, email string) (map[string]any, error) {
	q := url.Values{"email": {email}}
	return c.get(ctx, c.personURL+"/v2/people/find?"+q.Encode(), "person")
}

func (c *httpClient) get(ctx context.Context, endpoint, kind string) (map[string]any, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "clearbit: rate limit")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "clearbit: create %s request", kind)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "clearbit: %s lookup", kind)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "clearbit: read %s response", kind)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusAccepted:
		return nil, ErrPending
	default:
		return nil, eris.Errorf("clearbit: %s lookup unexpected status %d: %s", kind, resp.StatusCode, string(body))
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrapf(err, "clearbit: unmarshal %s response", kind)
	}
	return out, nil
}
