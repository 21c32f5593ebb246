package timebutler

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tap-timebutler/pkg/holidays"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL        = "https://timebutler.de/api/v1/"
	DefaultHolidayURL     = "https://date.nager.at/api/v3"
	DefaultHolidayCountry = "DE"
)

// Exports are framed twice: lines are comma-CSV records, and each line's
// text is split on FieldSeparator into cells.
const (
	LineSeparator  = ','
	FieldSeparator = ";"
)

// RawRow is one exported line split into cells, in column order.
type RawRow []string

// Transport is what the sync needs from the network.
type Transport interface {
	Fetch(ctx context.Context, endpoint string, params url.Values) ([]RawRow, error)
	FetchHolidays(ctx context.Context, year int) ([]holidays.PublicHoliday, error)
}

// ClientConfig configures the HTTP client.
type ClientConfig struct {
	BaseURL   string
	AuthToken string

	HolidayURL     string
	HolidayCountry string

	// Timeout per request (default: 60s).
	Timeout time.Duration

	// RateLimitCalls per RateLimitPeriod (default: 100 per 15s).
	RateLimitCalls  int
	RateLimitPeriod time.Duration

	// Transport allows injecting a custom HTTP transport (for tests/stubs).
	Transport http.RoundTripper

	Logger *logrus.Logger
}

// Client performs single, rate-limited attempts against the Timebutler API and the
// public holiday feed. Wrap it with WithRetry for backoff.
type Client struct {
	baseURL        *url.URL
	holidayURL     string
	holidayCountry string
	token          string
	http           *http.Client
	limiter        *rate.Limiter
	logger         *logrus.Logger
}

// NewClient validates cfg and builds a client.
func NewClient(cfg ClientConfig) (*Client, error) {
	token := strings.TrimSpace(cfg.AuthToken)
	if token == "" {
		return nil, fmt.Errorf("auth token is required")
	}

	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL must include a scheme and host (got %q)", raw)
	}
	base.Path = strings.TrimRight(base.Path, "/") + "/"

	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RateLimitCalls <= 0 {
		cfg.RateLimitCalls = 100
	}
	if cfg.RateLimitPeriod <= 0 {
		cfg.RateLimitPeriod = 15 * time.Second
	}
	holidayURL := strings.TrimRight(strings.TrimSpace(cfg.HolidayURL), "/")
	if holidayURL == "" {
		holidayURL = DefaultHolidayURL
	}
	country := strings.ToUpper(strings.TrimSpace(cfg.HolidayCountry))
	if country == "" {
		country = DefaultHolidayCountry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		baseURL:        base,
		holidayURL:     holidayURL,
		holidayCountry: country,
		token:          token,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		limiter: rate.NewLimiter(rate.Every(cfg.RateLimitPeriod/time.Duration(cfg.RateLimitCalls)), 1),
		logger:  logger,
	}, nil
}

// Fetch posts to the endpoint and returns the exported rows without the header line.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values) ([]RawRow, error) {
	op := "fetch " + endpoint
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(endpoint, "/")})
	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("auth", c.token)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	c.logger.Infof("POST %s", redactSecrets(u.String()))
	body, err := c.do(op, req)
	if err != nil {
		return nil, err
	}

	rows, err := DecodeRows(body)
	if err != nil {
		return nil, newDecodeError(op, err)
	}
	return rows, nil
}

// FetchHolidays downloads the configured country's public holidays for year.
func (c *Client) FetchHolidays(ctx context.Context, year int) ([]holidays.PublicHoliday, error) {
	op := "fetch holidays " + strconv.Itoa(year)
	u := fmt.Sprintf("%s/PublicHolidays/%d/%s", c.holidayURL, year, url.PathEscape(c.holidayCountry))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Infof("GET %s", u)
	body, err := c.do(op, req)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	days, err := holidays.ParseHolidaysJSON(body)
	if err != nil {
		return nil, newDecodeError(op, err)
	}
	return days, nil
}

func (c *Client) do(op string, req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, newNetworkError(op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newNetworkError(op, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode/100 != 2 {
		return nil, newHTTPError(op, resp, body)
	}
	return body, nil
}

// DecodeRows splits an export body into rows of cells and drops the header line.
// Each CSV record is rejoined on LineSeparator before splitting on FieldSeparator,
// so commas inside a cell survive whether or not the line was quoted.
func DecodeRows(body []byte) ([]RawRow, error) {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(body))
	cr.Comma = LineSeparator
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows []RawRow
	header := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if header {
			header = false
			continue
		}
		line := strings.Join(rec, string(LineSeparator))
		rows = append(rows, RawRow(strings.Split(line, FieldSeparator)))
	}
	return rows, nil
}
