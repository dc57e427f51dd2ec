// Package inference talks to the two external AI services: the inference
// endpoint that answers vaccine questions and the tagging endpoint that
// classifies them for the admin analytics table.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of an upstream body we buffer.
const maxResponseBytes = 1 << 20

// UpstreamError is a non-2xx reply from one of the services.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("inference: %s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// ErrEmptyAnswer means the inference endpoint replied without a
// generated_response.
var ErrEmptyAnswer = errors.New("inference: response has no generated_response")

// Answer is the part of an inference reply the chat history stores.
type Answer struct {
	GeneratedResponse string `json:"generated_response"`
	SourceURL         string `json:"source_url,omitempty"`
}

type askRequest struct {
	UserQuery string `json:"user_query"`
}

type tagRequest struct {
	Question string `json:"question"`
}

// Client calls the inference and tagging endpoints.
type Client struct {
	inferenceURL string
	taggingURL   string
	httpClient   *http.Client
}

// NewClient creates a Client. timeout bounds each call end to end.
func NewClient(inferenceURL, taggingURL string, timeout time.Duration) *Client {
	return &Client{
		inferenceURL: inferenceURL,
		taggingURL:   taggingURL,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Ask forwards the query and returns the reply body untouched, so callers
// can pass through fields this package knows nothing about. A 4xx reply
// with a JSON body is relayed as well; the upstream reports bad queries
// that way.
func (c *Client) Ask(ctx context.Context, query string) (json.RawMessage, error) {
	body, err := c.post(ctx, "inference", c.inferenceURL, askRequest{UserQuery: query})
	var upErr *UpstreamError
	if errors.As(err, &upErr) && upErr.StatusCode < 500 && json.Valid([]byte(upErr.Body)) {
		return json.RawMessage(upErr.Body), nil
	}
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("inference: reply is not valid JSON")
	}
	return json.RawMessage(body), nil
}

// Answer asks the query and extracts the generated text.
func (c *Client) Answer(ctx context.Context, query string) (*Answer, error) {
	raw, err := c.Ask(ctx, query)
	if err != nil {
		return nil, err
	}

	var a Answer
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("inference: decoding reply: %w", err)
	}
	if a.GeneratedResponse == "" {
		return nil, ErrEmptyAnswer
	}
	return &a, nil
}

// Tag submits a question for classification. The tagging service writes
// its result straight to the analytics table; the reply body is ignored.
func (c *Client) Tag(ctx context.Context, question string) error {
	_, err := c.post(ctx, "tagging", c.taggingURL, tagRequest{Question: question})
	return err
}

func (c *Client) post(ctx context.Context, service, url string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("inference: marshal %s request: %w", service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("inference: create %s request: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference: calling %s: %w", service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("inference: reading %s reply: %w", service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
