// Package llm implements the language model collaborator over the
// OpenRouter chat completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/catalogmind/catalog-engine/internal/domain"
	"github.com/catalogmind/catalog-engine/internal/observability"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultModel   = "google/gemini-2.5-flash"
)

// Client handles communication with the OpenRouter API. It is the single
// adapter boundary for the hosted model: callers get plain text or a typed
// failure, never an SDK response object.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *observability.Logger
	retry      *RetryConfig
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the completion endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(rc *RetryConfig) Option {
	return func(c *Client) {
		if rc != nil {
			c.retry = rc
		}
	}
}

// Message represents a chat message.
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content (text or image).
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents an image URL in the message.
type ImageURL struct {
	URL string `json:"url"`
}

// Request represents the API request structure.
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Response represents the API response structure.
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice represents a single completion choice.
type Choice struct {
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// ChoiceMessage is the assistant message of a completion choice.
type ChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewClient creates a new LLM client.
func NewClient(apiKey, model string, logger *observability.Logger, opts ...Option) *Client {
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = observability.DefaultLogger()
	}

	c := &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		logger:     logger,
		retry:      DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate sends the prompt, optionally with page images, and returns the
// model's text. Implements domain.Generator.
func (c *Client) Generate(ctx context.Context, prompt string, images []domain.PageImage) (string, error) {
	req, err := c.buildRequest(prompt, images)
	if err != nil {
		return "", domain.APIError("failed to build request", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", domain.APIError("failed to marshal request", err)
	}

	resp, err := c.retryWithBackoff(ctx, func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("X-Title", "Catalog Engine")

		return c.httpClient.Do(httpReq)
	})
	if err != nil {
		return "", domain.APIError("failed to send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", domain.APIError(fmt.Sprintf("API returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var parsed Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", domain.APIError("failed to decode response", err)
	}

	if len(parsed.Choices) == 0 {
		return "", domain.APIError("response contained no choices", nil)
	}

	text := parsed.Choices[0].Message.Content
	c.logger.Debug().
		Str("model", c.model).
		Int("images", len(images)).
		Int("response_len", len(text)).
		Msg("completion received")

	return text, nil
}

// buildRequest constructs the API request with the prompt and images.
func (c *Client) buildRequest(prompt string, images []domain.PageImage) (*Request, error) {
	parts := []ContentPart{{Type: "text", Text: prompt}}

	for _, img := range images {
		data, err := os.ReadFile(img.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d image: %w", img.PageNumber, err)
		}
		parts = append(parts, ContentPart{
			Type: "image_url",
			ImageURL: &ImageURL{
				URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data),
			},
		})
	}

	return &Request{
		Model:    c.model,
		Messages: []Message{{Role: "user", Content: parts}},
		Stream:   false,
	}, nil
}

// StripCodeFences removes a surrounding Markdown code fence from model
// output. Models routinely wrap requested JSON in ```json fences despite
// being told not to.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	} else {
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
