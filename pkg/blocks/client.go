// Package blocks resolves unix timestamps to chain block heights via an HTTP lookup service.
package blocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/screwyprof/distributor/pkg/retry"
)

var ErrBlockNotFound = errors.New("block not found for timestamp")

// Block is the first block at or after a timestamp
type Block struct {
	Height    uint64 `json:"height"`
	Timestamp int64  `json:"timestamp"`
}

// StatusError is returned for non-200 responses
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.Body)
}

func (e *StatusError) StatusCode() int { return e.Code }

// Client represents a block-by-timestamp lookup client
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	retry      retry.Config
}

// NewClient creates a lookup client. limiter may be nil for no rate limiting.
func NewClient(httpClient *http.Client, baseURL string, limiter *rate.Limiter, retryCfg retry.Config) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    limiter,
		retry:      retryCfg,
	}
}

// BlockByTimestamp returns the block closest to the given unix timestamp on chain
func (c *Client) BlockByTimestamp(ctx context.Context, chain string, timestamp int64) (Block, error) {
	url := fmt.Sprintf("%s/block/%s/%d", c.baseURL, chain, timestamp)

	var block Block
	err := retry.Do(ctx, c.retry, func() error {
		var err error
		block, err = c.get(ctx, url)
		return err
	})
	if err != nil {
		return Block{}, err
	}
	if block.Height == 0 {
		return Block{}, fmt.Errorf("%w: %s at %d", ErrBlockNotFound, chain, timestamp)
	}
	return block, nil
}

func (c *Client) get(ctx context.Context, url string) (Block, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Block{}, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Block{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Block{}, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Block{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var block Block
	if err := json.NewDecoder(resp.Body).Decode(&block); err != nil {
		return Block{}, fmt.Errorf("decoding response: %w", err)
	}
	return block, nil
}
