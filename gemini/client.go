// Package gemini wraps the Gemini API behind bounded request/response calls.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/genai"
)

const modelName = "models/gemini-2.5-flash"

// maxRetries caps rate-limit retries at the provider boundary.
const maxRetries = 4

// Client is a thin wrapper over the GenAI SDK. All calls are synchronous and
// return the final assembled text; rate-limited requests are retried with
// exponential backoff plus jitter before the error propagates.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient connects to the Gemini API.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Client{client: client, model: modelName}, nil
}

// GenerateText runs one generation call with a system instruction and a user
// message, returning the model's text.
func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	return c.generate(ctx, system, []*genai.Part{{Text: user}}, nil)
}

// GenerateJSON runs one generation call constrained to a JSON response body
// and returns the raw document. Decoding (and rejecting malformed payloads)
// is the caller's boundary; only the transport call itself is retried.
func (c *Client) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	return c.generate(ctx, system, []*genai.Part{{Text: user}}, cfg)
}

// DescribeImage runs one multimodal generation call over an inline image.
func (c *Client) DescribeImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	parts := []*genai.Part{
		{Text: prompt},
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
	}
	return c.generate(ctx, "", parts, nil)
}

func (c *Client) generate(ctx context.Context, system string, parts []*genai.Part, cfg *genai.GenerateContentConfig) (string, error) {
	if cfg == nil {
		cfg = &genai.GenerateContentConfig{}
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: parts},
	}

	var text string
	op := func() error {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
		if err != nil {
			if retryable(err) {
				log.Printf("⚠️ Gemini rate limited, backing off: %v", err)
				return err
			}
			return backoff.Permanent(err)
		}
		text = resp.Text()
		if strings.TrimSpace(text) == "" {
			return backoff.Permanent(errors.New("model returned an empty response"))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", fmt.Errorf("generation call failed: %w", err)
	}
	return text, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	return b
}

// retryable reports whether the provider error is a rate limit or a transient
// server failure.
func retryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
