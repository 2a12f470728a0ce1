// Package docgen produces docstring content for functions and renders it in
// a docstring convention.
package docgen

import (
	"context"
	"log/slog"
	"time"

	"doccov/internal/analyzer"
	"doccov/internal/config"
	"doccov/internal/review"
)

// Content is the structured body of a docstring.
type Content struct {
	Summary string            `json:"summary"`
	Args    map[string]string `json:"args"`
	Returns string            `json:"returns"`
	Raises  map[string]string `json:"raises"`
}

// Generator produces docstring content for one function.
type Generator interface {
	// Generate returns content for fn. On failure the returned Content
	// describes the error and err is a GENERATION_FAILED error.
	Generate(ctx context.Context, fn analyzer.FunctionRecord) (Content, error)
	// Name identifies the strategy in logs and output.
	Name() string
}

// DefaultEndpoint is used when chat mode has no endpoint configured.
const DefaultEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// New picks the strategy for cfg. Mode "auto" talks to the chat endpoint
// only when an API key is configured.
func New(cfg config.GeneratorConfig, logger *slog.Logger) Generator {
	switch cfg.Mode {
	case "placeholder":
		return Placeholder{}
	case "chat":
	default:
		if cfg.APIKey == "" {
			logger.Debug("No API key configured, using placeholder docstrings")
			return Placeholder{}
		}
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return NewChatClient(ChatOptions{
		Endpoint:    endpoint,
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		Temperature: cfg.Temperature,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, logger)
}

// Placeholder fills every section with fixed text. It never fails.
type Placeholder struct{}

// Name implements Generator.
func (Placeholder) Name() string { return "placeholder" }

// Generate implements Generator.
func (Placeholder) Generate(_ context.Context, fn analyzer.FunctionRecord) (Content, error) {
	args := make(map[string]string, len(fn.Arguments))
	for _, a := range fn.Arguments {
		args[a.Name] = "Description needed"
	}
	return Content{
		Summary: "Placeholder summary for " + fn.Name + " (No API Key).",
		Args:    args,
		Returns: "Return value description",
		Raises:  map[string]string{},
	}, nil
}

// failure is the content reported in place of a generated docstring.
func failure(err error) Content {
	return Content{
		Summary: "Error generating docstring: " + err.Error(),
		Args:    map[string]string{},
		Returns: "Unknown",
		Raises:  map[string]string{},
	}
}

// Docstring generates content for fn and renders it in style. On failure
// the rendered text describes the error and err is non-nil.
func Docstring(ctx context.Context, g Generator, fn analyzer.FunctionRecord, style review.Style) (string, error) {
	c, err := g.Generate(ctx, fn)
	return Render(c, fn, style), err
}
