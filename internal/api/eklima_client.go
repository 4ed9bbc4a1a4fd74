package api

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"metobs/internal/metrics"
	"metobs/internal/models"

	"github.com/sony/gobreaker"
)

// DefaultBaseURL is the eKlima MetDataService endpoint
const DefaultBaseURL = "http://eklima.met.no/metdata/MetDataService"

const (
	// Envelope/Body/getMetDataResponse/return
	envelopeDepth = 3

	dataTag       = "timeStamp"
	errorTag      = "error"
	fragmentTag   = "item"
	noDataMessage = "No data found"
)

// Fetcher returns the raw observation fragments for a single service query
type Fetcher interface {
	FetchObservations(ctx context.Context, params QueryParams) ([]models.Node, error)
}

// QueryParams are the parameters of one getMetData call
type QueryParams struct {
	TimeSerieTypeID string
	Stations        []string
	Elements        []string
	From            time.Time
	To              time.Time
	Hours           []int // empty means all 24 hours
	Months          []int // empty means all months
}

// BreakerSettings configures the optional circuit breaker around the transport
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// EklimaClient is a client for the eKlima MetDataService
type EklimaClient struct {
	client  *http.Client
	baseURL string
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// Option customizes an EklimaClient
type Option func(*EklimaClient)

func WithHTTPClient(client *http.Client) Option {
	return func(c *EklimaClient) { c.client = client }
}

func WithBaseURL(baseURL string) Option {
	return func(c *EklimaClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "?&")
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *EklimaClient) { c.logger = logger }
}

// WithCircuitBreaker makes consecutive transport failures short-circuit further
// calls until OpenTimeout has passed. Nothing is retried.
func WithCircuitBreaker(s BreakerSettings) Option {
	return func(c *EklimaClient) {
		if s.MaxFailures == 0 {
			return
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "eklima",
			MaxRequests: 1,
			Timeout:     s.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= s.MaxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}
}

// NewEklimaClient creates a new MetDataService client
func NewEklimaClient(opts ...Option) *EklimaClient {
	c := &EklimaClient{
		client:  &http.Client{},
		baseURL: DefaultBaseURL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "eklima-client")
	return c
}

// BuildURL builds the getMetData request URL for the given parameters
func (c *EklimaClient) BuildURL(params QueryParams) string {
	hours := params.Hours
	if len(hours) == 0 {
		hours = models.AllHours()
	}

	return fmt.Sprintf("%s?invoke=getMetData&timeserietypeid=%s&format=&from=%s&to=%s&stations=%s&elements=%s&hours=%s&months=%s&username=",
		c.baseURL,
		url.QueryEscape(params.TimeSerieTypeID),
		params.From.Format(models.DateLayout),
		params.To.Format(models.DateLayout),
		joinCodes(params.Stations),
		joinCodes(params.Elements),
		joinInts(hours),
		joinInts(params.Months),
	)
}

// FetchObservations performs one getMetData call and returns the observation
// fragments of the response. A "No data found" answer is an empty result, not an error.
func (c *EklimaClient) FetchObservations(ctx context.Context, params QueryParams) ([]models.Node, error) {
	if params.TimeSerieTypeID != models.SupportedTimeSerieType {
		return nil, &models.QueryError{
			Message: fmt.Sprintf("only timeserietype %s is supported, got %q", models.SupportedTimeSerieType, params.TimeSerieTypeID),
		}
	}
	if len(params.Hours) == 0 {
		params.Hours = models.AllHours()
	}

	reqURL := c.BuildURL(params)
	start := time.Now()
	observations, err := c.fetch(ctx, reqURL)
	metrics.RecordServiceRequest(outcome(err), time.Since(start))
	if err != nil {
		c.logger.Debug("getMetData failed", "url", reqURL, "err", err)
		return nil, err
	}

	c.logger.Debug("getMetData completed",
		"from", params.From.Format(models.DateLayout),
		"to", params.To.Format(models.DateLayout),
		"observations", len(observations),
		"duration", time.Since(start))
	return observations, nil
}

func (c *EklimaClient) fetch(ctx context.Context, reqURL string) ([]models.Node, error) {
	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	return ParseResponse(body)
}

func (c *EklimaClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	do := func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch observations: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return nil, &models.StatusError{StatusCode: resp.StatusCode}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		return body, nil
	}

	if c.breaker == nil {
		result, err := do()
		if err != nil {
			return nil, err
		}
		return result.([]byte), nil
	}

	result, err := c.breaker.Execute(do)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("met API circuit breaker open: %w", err)
		}
		return nil, err
	}
	return result.([]byte), nil
}

// ParseResponse decodes a getMetData response body and extracts its observation fragments
func ParseResponse(body []byte) ([]models.Node, error) {
	var root models.Node
	if err := xml.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("%w: response content is not XML: %w", models.ErrXMLParsing, err)
	}

	envelope := root
	for depth := 0; depth < envelopeDepth; depth++ {
		if len(envelope.Nodes) == 0 {
			return nil, fmt.Errorf("%w: could not extract observations from <%s>", models.ErrXMLParsing, root.Name())
		}
		envelope = envelope.Nodes[0]
	}
	if len(envelope.Nodes) == 0 {
		return nil, fmt.Errorf("%w: <%s> holds no payload", models.ErrXMLParsing, envelope.Name())
	}

	for _, payload := range envelope.Nodes {
		switch payload.Name() {
		case dataTag:
			return payload.Children(fragmentTag), nil
		case errorTag:
			msg := errorMessage(payload)
			if msg == noDataMessage {
				return nil, nil
			}
			return nil, &models.QueryError{Message: msg}
		}
	}

	return nil, fmt.Errorf("%w: <%s>", models.ErrUnknownResponseShape, envelope.Nodes[0].Name())
}

func errorMessage(n models.Node) string {
	if len(n.Nodes) > 0 {
		return strings.TrimSpace(n.Nodes[0].Text)
	}
	return strings.TrimSpace(n.Text)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, models.ErrServiceStatus):
		return "status_error"
	case errors.Is(err, models.ErrXMLParsing):
		return "xml_error"
	case errors.Is(err, models.ErrUnknownResponseShape):
		return "unknown_shape"
	default:
		return "transport_error"
	}
}

func joinCodes(codes []string) string {
	escaped := make([]string, len(codes))
	for i, code := range codes {
		escaped[i] = url.QueryEscape(strings.TrimSpace(code))
	}
	return strings.Join(escaped, ",")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
