// Package feishu is a typed client for the subset of the Feishu OpenAPI the
// sync engine consumes: wiki trees, docx documents and drive file events.
package feishu

import (
	"strconv"
	"time"

	"github.com/imroc/req/v3"
)

const (
	requestTimeout    = 30 * time.Second
	retryMaxAttempts  = 5
	retryBaseInterval = 1 * time.Second
	retryMaxInterval  = 8 * time.Second
	statusRateLimited = 429
	headerRetryAfter  = "Retry-After"
)

// SDK is the main client for the Feishu OpenAPI.
type SDK struct {
	client  *req.Client
	baseURL string
	Wiki    *WikiAPI
	Docs    *DocsAPI
	Drive   *DriveAPI
	Events  *EventsAPI
}

// New creates an SDK authenticated with a bearer token.
func New(baseURL, token string) (*SDK, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := req.C().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetUserAgent(UserAgent).
		SetCommonBearerAuthToken(token).
		SetCommonRetryCount(retryMaxAttempts).
		SetCommonRetryCondition(shouldRetry).
		SetCommonRetryInterval(retryInterval).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	return &SDK{
		client:  client,
		baseURL: baseURL,
		Wiki:    newWikiAPI(client),
		Docs:    newDocsAPI(client),
		Drive:   newDriveAPI(client),
		Events:  newEventsAPI(baseURL, token),
	}, nil
}

// Close terminates the event stream and releases the client.
func (s *SDK) Close() {
	if s.Events.IsConnected() {
		s.Events.Close()
	}
}

// shouldRetry retries network errors and rate limits. Non-zero API codes are
// surfaced immediately by checkResponse, never retried here.
func shouldRetry(resp *req.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode == statusRateLimited
}

// retryInterval honors Retry-After on 429, else exponential backoff starting
// at 1s, doubling, capped at 8s.
func retryInterval(resp *req.Response, attempt int) time.Duration {
	if resp != nil && resp.Response != nil && resp.StatusCode == statusRateLimited {
		if ra := resp.Header.Get(headerRetryAfter); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}

	if attempt < 1 {
		attempt = 1
	}
	interval := retryBaseInterval << (attempt - 1)
	if interval > retryMaxInterval || interval <= 0 {
		interval = retryMaxInterval
	}
	return interval
}
