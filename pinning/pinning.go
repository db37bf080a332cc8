// Package pinning publishes item metadata JSON to an IPFS pinning service
// and returns the resulting content reference. The pin happens before the
// purchase is submitted, so the metadata URI the contract stores is already
// resolvable when the mint confirms.
package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mintworks/launchpadd/errors"
	"github.com/mintworks/launchpadd/metrics"
)

const requestTimeout = 30 * time.Second

// Client talks to a Pinata-compatible pinning endpoint.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	retryCfg *errors.RetryConfig
}

// New creates a pinning client. The API key is passed in by the caller,
// which reads it from the environment; it never appears in configuration.
func New(endpoint, apiKey string, m *metrics.Metrics, logger zerolog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: requestTimeout},
		metrics:  m,
		logger:   logger.With().Str("component", "pinning").Logger(),
		retryCfg: errors.DefaultRetryConfig(),
	}
}

// ItemMetadata is the JSON document pinned for one catalog item.
type ItemMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// throttled carries the server's Retry-After so the retry loop can wait the
// amount the service asked for instead of its own backoff guess.
type throttled struct {
	after time.Duration
}

func (t *throttled) Error() string             { return "pinning service throttled the request" }
func (t *throttled) RetryAfter() time.Duration { return t.after }

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// PinJSON pins the metadata document and returns its ipfs:// URI. Transient
// failures and throttling are retried with backoff before giving up.
func (c *Client) PinJSON(ctx context.Context, name string, meta ItemMetadata) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"pinataMetadata": map[string]string{"name": name},
		"pinataContent":  meta,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to encode metadata")
	}

	var uri string
	err = errors.RetryWithConfig(ctx, func() error {
		var perr error
		uri, perr = c.pinOnce(ctx, body)
		return perr
	}, c.retryCfg)

	outcome := "pinned"
	if err != nil {
		outcome = "failed"
	}
	c.metrics.PinRequests.WithLabelValues(outcome).Inc()
	if err != nil {
		return "", err
	}

	c.logger.Debug().Str("name", name).Str("uri", uri).Msg("metadata pinned")
	return uri, nil
}

func (c *Client) pinOnce(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to build pin request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.CodePinning, "pin request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", errors.Wrap(&throttled{after: retryAfter(resp)}, errors.CodePinning,
			"pinning service rate limit")
	case resp.StatusCode >= 500:
		return "", errors.Newf(errors.CodePinning, "pinning service returned %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		// Client-side errors will not improve on retry.
		return "", errors.Newf(errors.CodeValidation, "pin rejected with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, errors.CodePinning, "failed to read pin response")
	}
	var out pinResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", errors.Wrap(err, errors.CodePinning, "failed to decode pin response")
	}
	if out.IpfsHash == "" {
		return "", errors.New(errors.CodePinning, "pin response missing content hash")
	}
	return "ipfs://" + out.IpfsHash, nil
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
