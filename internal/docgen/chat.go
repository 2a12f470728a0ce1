package docgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"doccov/internal/analyzer"
	"doccov/internal/errors"
	"doccov/internal/version"
)

const (
	defaultMaxRetries = 2
	retryBaseDelay    = 500 * time.Millisecond
	maxRetryDelay     = 5 * time.Second
	maxResponseBytes  = 1 << 20
)

// ChatOptions configures a ChatClient.
type ChatOptions struct {
	Endpoint    string
	Model       string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// ChatClient asks an OpenAI-compatible chat completions endpoint for
// docstring content.
type ChatClient struct {
	opts   ChatOptions
	client *http.Client
	logger *slog.Logger
}

// NewChatClient creates a chat client. A zero MaxRetries uses the default.
func NewChatClient(opts ChatOptions, logger *slog.Logger) *ChatClient {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &ChatClient{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger,
	}
}

// Name implements Generator.
func (c *ChatClient) Name() string { return "chat:" + c.opts.Model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate implements Generator.
func (c *ChatClient) Generate(ctx context.Context, fn analyzer.FunctionRecord) (Content, error) {
	content, err := c.generate(ctx, fn)
	if err != nil {
		c.logger.Warn("Docstring generation failed", "function", fn.Name, "error", err.Error())
		return failure(err), errors.New(errors.GenerationFailed, "cannot generate docstring for "+fn.Name, err)
	}
	return content, nil
}

func (c *ChatClient) generate(ctx context.Context, fn analyzer.FunctionRecord) (Content, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.opts.Model,
		Temperature: c.opts.Temperature,
		Messages:    []chatMessage{{Role: "user", Content: prompt(fn)}},
	})
	if err != nil {
		return Content{}, err
	}

	data, err := c.post(ctx, payload)
	if err != nil {
		return Content{}, err
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Content{}, fmt.Errorf("invalid chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Content{}, fmt.Errorf("chat response has no choices")
	}
	return parseContent(resp.Choices[0].Message.Content)
}

// post sends payload, retrying network failures and 5xx/429 responses with
// exponential backoff.
func (c *ChatClient) post(ctx context.Context, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := min(retryBaseDelay*time.Duration(1<<uint(attempt-1)), maxRetryDelay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			c.logger.Debug("Retrying chat request", "attempt", attempt+1, "endpoint", c.opts.Endpoint)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", version.UserAgent())
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("chat endpoint returned %d: %s", resp.StatusCode, errorMessage(data))
		}
		return data, nil
	}
	return nil, fmt.Errorf("request failed after %d retries: %w", c.opts.MaxRetries, lastErr)
}

func errorMessage(data []byte) string {
	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err == nil && resp.Error != nil && resp.Error.Message != "" {
		return resp.Error.Message
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func prompt(fn analyzer.FunctionRecord) string {
	names := make([]string, len(fn.Arguments))
	for i, a := range fn.Arguments {
		names[i] = "'" + a.Name + "'"
	}
	returns := "None"
	if fn.ReturnAnnotation != nil {
		returns = *fn.ReturnAnnotation
	}

	var b strings.Builder
	b.WriteString("Analyze this Python function and return ONLY valid JSON.\n")
	fmt.Fprintf(&b, "Function: %s\n", fn.Name)
	fmt.Fprintf(&b, "Args: [%s]\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "Returns: %s\n\n", returns)
	b.WriteString(`JSON Schema:
{
  "summary": "Imperative mood description (e.g. 'Calculate the sum')",
  "args": { "arg_name": "description" },
  "returns": "description",
  "raises": { "ErrorName": "condition" }
}
`)
	return b.String()
}

// parseContent decodes the JSON object in a model reply, which may be
// wrapped in a fenced code block or surrounded by prose.
func parseContent(reply string) (Content, error) {
	raw := extractJSON(reply)
	var c Content
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Content{}, fmt.Errorf("reply is not valid JSON: %w", err)
	}
	if c.Args == nil {
		c.Args = map[string]string{}
	}
	if c.Raises == nil {
		c.Raises = map[string]string{}
	}
	return c, nil
}

func extractJSON(reply string) string {
	s := strings.TrimSpace(reply)
	if _, after, ok := strings.Cut(s, "```json"); ok {
		s = after
		if before, _, ok := strings.Cut(s, "```"); ok {
			s = before
		}
		return strings.TrimSpace(s)
	}
	if _, after, ok := strings.Cut(s, "```"); ok {
		if before, _, ok := strings.Cut(after, "```"); ok {
			s = before
		}
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return strings.TrimSpace(s)
}
