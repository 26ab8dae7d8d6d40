package share

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Failure modes of relay calls that the sync layer reacts to. Anything not
// covered by a sentinel is treated as transient.
var (
	// ErrShareNotFound means the relay no longer holds the session at all:
	// it expired and was swept, or it was evicted.
	ErrShareNotFound = errors.New("share not found on relay")

	// ErrShareExpired means the session is still stored but past its TTL.
	ErrShareExpired = errors.New("share expired on relay")

	// ErrUnauthorized means the relay rejected the update token, so the
	// stored credentials cannot recover the share id.
	ErrUnauthorized = errors.New("relay rejected update token")
)

// RelayError carries the relay's error envelope for responses that don't
// map to a sentinel.
type RelayError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RelayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("relay returned %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("relay returned %d: %s", e.StatusCode, e.Message)
}

// Session is the relay's record of one published share as seen by clients.
type Session struct {
	ShareID       string `json:"shareId"`
	UpdateToken   string `json:"updateToken,omitempty"`
	EncryptedData string `json:"encryptedData,omitempty"`
	LastUpdatedAt int64  `json:"lastUpdatedAt"`
}

type shareRequest struct {
	EncryptedData string `json:"encryptedData"`
}

// Client calls the relay's share endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the relay at baseURL. Calls carry a short
// timeout so an unreachable relay cannot stall the update queue.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 4 * time.Second},
	}
}

// CreateShare publishes a new encrypted snapshot. The relay assigns the
// share id and issues the first update token.
func (c *Client) CreateShare(ctx context.Context, encryptedData string) (*Session, error) {
	return c.do(ctx, http.MethodPost, "/share", "", encryptedData)
}

// FetchShare retrieves the stored snapshot. Returns ErrShareNotFound when
// the session is gone and ErrShareExpired when it is past its TTL.
func (c *Client) FetchShare(ctx context.Context, shareID string) (*Session, error) {
	return c.do(ctx, http.MethodGet, "/share/"+shareID, "", "")
}

// UpdateShare replaces the stored snapshot. The relay rolls the update
// token on every successful write; the returned session carries the fresh
// one, which must replace the token just used.
func (c *Client) UpdateShare(ctx context.Context, shareID, updateToken, encryptedData string) (*Session, error) {
	return c.do(ctx, http.MethodPut, "/share/"+shareID, updateToken, encryptedData)
}

// ReactivateShare re-publishes under an existing share id after the relay
// expired or dropped the session, keeping links already handed out valid.
// A session the relay no longer holds at all is claimed without a token.
func (c *Client) ReactivateShare(ctx context.Context, shareID, updateToken, encryptedData string) (*Session, error) {
	return c.do(ctx, http.MethodPost, "/share/"+shareID+"/reactivate", updateToken, encryptedData)
}

const probeRetries = 2

// ShareExists probes whether the relay still serves the share. Transient
// failures are retried with backoff; a definite not-found or expired
// answer comes back as false immediately.
func (c *Client) ShareExists(ctx context.Context, shareID string) (bool, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(newRelayBackOff(), probeRetries), ctx)
	err := backoff.Retry(func() error {
		_, err := c.FetchShare(ctx, shareID)
		return classifyForRetry(err)
	}, policy)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrShareNotFound) || errors.Is(err, ErrShareExpired) {
		return false, nil
	}
	return false, err
}

func newRelayBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

// classifyForRetry wraps definitive relay answers in backoff.Permanent so
// only transport faults and 5xx responses get retried.
func classifyForRetry(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrShareNotFound) || errors.Is(err, ErrShareExpired) || errors.Is(err, ErrUnauthorized) {
		return backoff.Permanent(err)
	}
	var relayErr *RelayError
	if errors.As(err, &relayErr) && relayErr.StatusCode < http.StatusInternalServerError {
		return backoff.Permanent(err)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path, token, encryptedData string) (*Session, error) {
	var body io.Reader
	if encryptedData != "" {
		raw, err := json.Marshal(shareRequest{EncryptedData: encryptedData})
		if err != nil {
			return nil, fmt.Errorf("failed to encode relay request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build relay request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, relayErrorFrom(resp)
	}
	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode relay response: %w", err)
	}
	return &session, nil
}

func relayErrorFrom(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrShareNotFound
	case http.StatusGone:
		return ErrShareExpired
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	var envelope struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&envelope)
	message := envelope.Error
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &RelayError{StatusCode: resp.StatusCode, Code: envelope.Code, Message: message}
}
