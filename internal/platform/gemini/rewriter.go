package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/phrazzld/augur/internal/config"
	"github.com/phrazzld/augur/internal/planner"
)

// rewritePrompt instructs the model to touch prose only. The plan payload is
// appended verbatim; structural enforcement happens in the caller, which
// validates the result against the plan schema before trusting it.
const rewritePrompt = "Operation: plan.\n" +
	"Given plan JSON, improve natural-language reasons only.\n" +
	"Return full plan JSON with same structural fields.\n" +
	"Return only valid JSON. Do not include markdown fences.\n\n"

// Rewriter implements the planner.Rewriter interface using Google's Gemini
// API to rework the natural-language content of plan payloads.
type Rewriter struct {
	// logger is used for structured logging
	logger *slog.Logger

	// client is the Gemini API client for making requests
	client *genai.Client

	// model is the name of the Gemini model to use
	model string

	// timeout bounds a single rewrite call
	timeout time.Duration
}

var _ planner.Rewriter = (*Rewriter)(nil)

// NewRewriter creates a new Rewriter with the provided dependencies.
//
// Returns an error when the logger is nil or the configuration is unusable.
// Callers that want rewriting disabled should pass a nil planner.Rewriter to
// the plan service instead of constructing one without an API key.
func NewRewriter(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Rewriter, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	if cfg.TimeoutSeconds < 1 {
		return nil, fmt.Errorf("%w: timeout must be at least one second", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return &Rewriter{
		logger:  logger.With("component", "plan_rewriter"),
		client:  client,
		model:   cfg.ModelName,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, nil
}

// Rewrite sends the payload to the model and returns the reworked JSON.
// There is no retry here: the plan service treats any error as a signal to
// keep the deterministic payload, so failing fast is the useful behavior.
func (r *Rewriter) Rewrite(ctx context.Context, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.logger.DebugContext(ctx, "requesting plan rewrite",
		"model", r.model,
		"payload_bytes", len(payload))

	resp, err := r.client.Models.GenerateContent(ctx, r.model,
		genai.Text(rewritePrompt+string(payload)),
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0)),
			ResponseMIMEType: "application/json",
		})
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	reworked, err := extractJSON(resp.Text())
	if err != nil {
		return nil, err
	}

	r.logger.DebugContext(ctx, "plan rewrite returned",
		"model", r.model,
		"response_bytes", len(reworked))

	return reworked, nil
}

// extractJSON pulls the JSON object out of a model response, tolerating the
// markdown fences models sometimes add despite instructions.
func extractJSON(text string) ([]byte, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	if !strings.HasPrefix(trimmed, "{") || !json.Valid([]byte(trimmed)) {
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrInvalidResponse)
	}

	return []byte(trimmed), nil
}
