package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	ErrDecode           = errors.New("malformed response body")
)

// maxBodyBytes bounds a single response; one waveform is a few thousand floats
const maxBodyBytes = 8 << 20

// StatusError carries the code of a non-2xx response
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d from %s", ErrUnexpectedStatus, e.Code, e.URL)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Config configuration for the feed client
type Config struct {
	BaseURL       string
	AggregatePath string
	// HTTPClient is optional; timeouts are applied per request through the context
	HTTPClient *http.Client
}

// Client fetches waveform payloads over HTTP GET.
type Client struct {
	baseURL       *url.URL
	aggregatePath string
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewClient creates a feed client. Relative endpoints resolve against BaseURL.
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	base, err := url.Parse(strings.TrimSuffix(config.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", config.BaseURL, err)
	}

	if config.AggregatePath == "" {
		config.AggregatePath = "/api/data/all"
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:       base,
		aggregatePath: config.AggregatePath,
		httpClient:    httpClient,
		logger:        logger.With("component", "feed_client"),
	}, nil
}

// FetchAggregate fetches every node's latest entry from the aggregate endpoint.
func (c *Client) FetchAggregate(ctx context.Context) (*domain.AggregateResponse, error) {
	var resp domain.AggregateResponse
	if err := c.getJSON(ctx, c.aggregatePath, &resp); err != nil {
		return nil, err
	}

	// A bad entry is dropped on its own; its siblings still commit.
	entries := resp.Data[:0]
	for i := range resp.Data {
		entry := resp.Data[i]
		entry.NodeID = domain.NormalizeNodeID(entry.NodeID)
		if entry.NodeID == "" {
			c.logger.Warn("Dropping aggregate entry without node_id", "index", i)
			continue
		}
		if entry.Data != nil {
			if err := entry.Data.Validate(); err != nil {
				c.logger.Warn("Dropping invalid sample", "node_id", entry.NodeID, "error", err)
				entry.Data = nil
			}
		}
		entries = append(entries, entry)
	}
	resp.Data = entries
	return &resp, nil
}

// FetchSample fetches a bare waveform sample from a per-node endpoint.
func (c *Client) FetchSample(ctx context.Context, endpoint string) (*domain.WaveformSample, error) {
	var sample domain.WaveformSample
	if err := c.getJSON(ctx, endpoint, &sample); err != nil {
		return nil, err
	}
	if err := sample.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &sample, nil
}

// FetchReading fetches a sample wrapped as {"data": ...}, the shape sensor nodes serve.
func (c *Client) FetchReading(ctx context.Context, endpoint string) (*domain.WaveformSample, error) {
	var envelope domain.ReadingEnvelope
	if err := c.getJSON(ctx, endpoint, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrDecode)
	}
	if err := envelope.Data.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return envelope.Data, nil
}

// Resolve turns an endpoint into an absolute URL.
func (c *Client) Resolve(endpoint string) (string, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	return c.baseURL.ResolveReference(&url.URL{
		Path:     strings.TrimPrefix(ref.Path, "/"),
		RawQuery: ref.RawQuery,
	}).String(), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	target, err := c.Resolve(endpoint)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, URL: target}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		// a cancelled body read is a transport failure, not a bad payload
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("failed to read %s: %w", target, ctxErr)
		}
		return fmt.Errorf("%w: %s: %v", ErrDecode, target, err)
	}
	return nil
}

// Classify maps a fetch error to an outcome label used in logs and metrics.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrUnexpectedStatus):
		return "status"
	case errors.Is(err, ErrDecode):
		return "decode"
	default:
		return "transport"
	}
}
