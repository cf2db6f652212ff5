// Package telescope reads the pointing target and environment readings of
// an observatory's telescopes from its status web pages.
package telescope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

const maxBodyBytes = 1 << 20

// ErrNotConfigured is returned when no status URL exists for a request.
var ErrNotConfigured = errors.New("telescope status not configured")

// ErrNoTarget is returned when the pointing page names no target.
var ErrNoTarget = errors.New("no pointing target reported")

var pointingPattern = regexp.MustCompile(`target: ?"([^"]+)"`)

// Config locates the status pages. PointingURL may contain "{tel}", which
// is replaced by the telescope name.
type Config struct {
	PointingURL string
	WeatherURL  string
	SeeingURLs  map[string]string // keyed by upper-case telescope name
}

// Client queries the status pages.
type Client struct {
	cfg    Config
	client *retryablehttp.Client
}

// NewClient returns a client with short retries; status pages are polled
// and a stale answer is worse than none.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil
	if logger != nil {
		client.Logger = logger
	}
	return &Client{cfg: cfg, client: client}
}

// CurrentTarget returns the name of the target tel is pointed at.
func (c *Client) CurrentTarget(ctx context.Context, tel string) (string, error) {
	if c.cfg.PointingURL == "" {
		return "", ErrNotConfigured
	}
	u := strings.ReplaceAll(c.cfg.PointingURL, "{tel}", strings.ToUpper(tel))
	body, err := c.get(ctx, u)
	if err != nil {
		return "", err
	}
	m := pointingPattern.FindSubmatch(body)
	if m == nil {
		return "", ErrNoTarget
	}
	return string(m[1]), nil
}

// Environment merges the latest seeing record for tel with the latest
// weather record. Weather values win on key collisions.
func (c *Client) Environment(ctx context.Context, tel string) (map[string]string, error) {
	seeing := c.cfg.SeeingURLs[strings.ToUpper(tel)]
	if seeing == "" && c.cfg.WeatherURL == "" {
		return nil, ErrNotConfigured
	}

	out := map[string]string{}
	for _, u := range []string{seeing, c.cfg.WeatherURL} {
		if u == "" {
			continue
		}
		body, err := c.get(ctx, u)
		if err != nil {
			return nil, err
		}
		if err := mergeLast(out, body); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", u, err)
		}
	}
	return out, nil
}

// mergeLast copies the fields of the last record of a JSON array into out.
func mergeLast(out map[string]string, body []byte) error {
	if !gjson.ValidBytes(body) {
		return errors.New("invalid JSON")
	}
	records := gjson.ParseBytes(body).Array()
	if len(records) == 0 {
		return errors.New("no records")
	}
	last := records[len(records)-1]
	if !last.IsObject() {
		return errors.New("last record is not an object")
	}
	last.ForEach(func(k, v gjson.Result) bool {
		out[k.String()] = v.String()
		return true
	})
	return nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, u)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}
