// Package culler checks saved links for dead URLs.
package culler

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/nikbrunner/tora/internal/model"
)

// Status represents the health status of a URL.
type Status int

const (
	Healthy     Status = iota // 2xx or 3xx response
	Dead                      // 404 or 410 Gone
	Unreachable               // timeout, DNS failure, connection refused, etc.
	Skipped                   // not a web address (phone entries)
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Dead:
		return "dead"
	case Unreachable:
		return "unreachable"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Defaults used when Options leaves a field zero.
const (
	DefaultConcurrency = 10
	DefaultTimeout     = 10 * time.Second
)

// Result holds the check result for a single link.
type Result struct {
	Link       model.Link
	Status     Status
	StatusCode int    // HTTP status code (0 if connection failed)
	Error      string // Error message for unreachable URLs
}

// ProgressFunc is called after each URL is checked.
// completed is the number of URLs checked so far, total is the total count.
type ProgressFunc func(completed, total int)

// Options configures a Checker.
type Options struct {
	Concurrency int
	Timeout     time.Duration
	// ExcludeDomains lists domains where 404s are treated as "possibly private"
	// instead of dead. Subdomains match too.
	ExcludeDomains []string
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
	Log    logrus.FieldLogger
}

// Checker checks links concurrently.
type Checker struct {
	concurrency int
	client      *http.Client
	exclude     mapset.Set[string]
	log         logrus.FieldLogger
}

// New creates a Checker.
func New(opts Options) *Checker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Follow redirects but limit to 10
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}

	exclude := mapset.NewSet[string]()
	for _, domain := range opts.ExcludeDomains {
		exclude.Add(strings.ToLower(domain))
	}

	return &Checker{
		concurrency: opts.Concurrency,
		client:      client,
		exclude:     exclude,
		log:         opts.Log.WithField("component", "culler"),
	}
}

// Check checks every link and returns one result per link, in input order.
// Phone entries are not requested and come back as Skipped. When ctx is
// cancelled the remaining links are reported Unreachable.
func (c *Checker) Check(ctx context.Context, links []model.Link, onProgress ProgressFunc) []Result {
	if len(links) == 0 {
		return nil
	}

	// Suppress noisy HTTP client logging (protocol errors, unsolicited responses, etc.)
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	results := make([]Result, len(links))
	jobs := make(chan int, len(links))
	var wg sync.WaitGroup

	// Progress tracking
	var progressMu sync.Mutex
	completed := 0

	for w := 0; w < c.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = c.checkLink(ctx, links[idx])

				if onProgress != nil {
					progressMu.Lock()
					completed++
					onProgress(completed, len(links))
					progressMu.Unlock()
				}
			}
		}()
	}

	for i := range links {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	c.log.WithField("links", len(links)).Debug("check finished")
	return results
}

// checkLink checks a single URL and returns the result.
func (c *Checker) checkLink(ctx context.Context, link model.Link) Result {
	result := Result{Link: link}

	if link.Platform.IsPhone() {
		result.Status = Skipped
		return result
	}

	// Try HEAD first (faster, less bandwidth)
	resp, err := c.do(ctx, http.MethodHead, link.URL)
	if err != nil {
		// HEAD failed, try GET as fallback (some servers don't support HEAD)
		resp, err = c.do(ctx, http.MethodGet, link.URL)
		if err != nil {
			result.Status = Unreachable
			result.Error = normalizeError(err.Error())
			c.log.WithError(err).WithField("url", link.URL).Debug("unreachable")
			return result
		}
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Status = Healthy
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		// Check if this domain is excluded (e.g., private repos)
		if c.isExcludedDomain(link.URL) {
			result.Status = Unreachable
			result.Error = "Possibly private (auth required)"
		} else {
			result.Status = Dead
		}
	default:
		// Other errors (500, 403, etc.) - treat as unreachable
		result.Status = Unreachable
		result.Error = http.StatusText(resp.StatusCode)
	}

	return result
}

func (c *Checker) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// isExcludedDomain checks if the URL's host or a parent domain is excluded.
func (c *Checker) isExcludedDomain(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for host != "" {
		if c.exclude.Contains(host) {
			return true
		}
		_, parent, ok := strings.Cut(host, ".")
		if !ok {
			break
		}
		host = parent
	}
	return false
}

// GroupByStatus splits results by status, keeping their order.
func GroupByStatus(results []Result) map[Status][]Result {
	groups := make(map[Status][]Result)
	for _, r := range results {
		groups[r.Status] = append(groups[r.Status], r)
	}
	return groups
}

// normalizeError simplifies verbose error messages into readable categories.
func normalizeError(errStr string) string {
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "context deadline exceeded"),
		strings.Contains(lower, "timeout"):
		return "Timeout"
	case strings.Contains(lower, "context canceled"):
		return "Cancelled"
	case strings.Contains(lower, "connection refused"):
		return "Connection refused"
	case strings.Contains(lower, "certificate"):
		return "TLS/certificate error"
	case strings.Contains(lower, "network is unreachable"):
		return "Network unreachable"
	case strings.Contains(lower, "tls:"):
		return "TLS error"
	default:
		return errStr
	}
}
