package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/resume-insight/internal/logger"
	"github.com/spigell/resume-insight/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	// ProviderGemini names the alternate transport in logs.
	ProviderGemini = "gemini"

	defaultGeminiModel = "gemini-2.5-flash"
)

type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiOptions configures the alternate transport.
type GeminiOptions struct {
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	MaxRetries   int
	BackoffBase  time.Duration
	// Timeout bounds each attempt. Zero uses the HTTP transport default.
	Timeout      time.Duration
	MaxLogLength int
}

// Gemini sends prompts through the Google GenAI SDK instead of the local HTTP service.
type Gemini struct {
	models    contentModels
	model     string
	config    *genai.GenerateContentConfig
	policy    Policy
	timeout   time.Duration
	logger    *zap.Logger
	maxLogLen int
}

// NewGemini creates a transport configured for the Gemini API backend.
func NewGemini(ctx context.Context, opts GeminiOptions, log *zap.Logger) (*Gemini, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGemini(client.Models, opts, log), nil
}

func newGemini(models contentModels, opts GeminiOptions, log *zap.Logger) *Gemini {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	policy := NewPolicy(opts.MaxRetries, opts.BackoffBase)
	policy.Retryable = geminiRetryable

	return &Gemini{
		models:    models,
		model:     model,
		config:    config,
		policy:    policy,
		timeout:   timeout,
		logger:    logger.WithCommonFields(log, ProviderGemini, model),
		maxLogLen: maxLogLen,
	}
}

// Generate sends the prompt to Gemini and returns the joined textual parts of the reply.
func (g *Gemini) Generate(ctx context.Context, req Request) (*Response, error) {
	if g == nil || g.models == nil {
		return nil, errors.New("gemini transport is not initialized")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("prompt must not be empty")
	}

	var (
		text     string
		attempts int
	)

	policy := g.policy
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		g.logger.Warn("gemini attempt failed, backing off",
			append(logger.AttemptFields(req.Kind, attempt+1, policy.MaxAttempts),
				zap.Error(err), zap.Duration("backoff", wait))...,
		)
	}

	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt + 1
		g.logger.Info("calling gemini",
			append(logger.AttemptFields(req.Kind, attempts, policy.MaxAttempts),
				zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
				zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
			)...,
		)

		attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := g.models.GenerateContent(attemptCtx, g.model, genai.Text(prompt), g.config)
		if err != nil {
			return classifyGeminiError(err)
		}

		out := joinCandidates(resp)
		if out == "" {
			return ErrEmptyResponse
		}
		text = out
		return nil
	})
	if err != nil {
		g.logger.Error("gemini call failed",
			append(logger.AttemptFields(req.Kind, attempts, policy.MaxAttempts), zap.Error(err))...,
		)
		return nil, err
	}

	g.logger.Debug("gemini response received",
		zap.String(logger.FieldKind, req.Kind),
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", utils.TruncateForLog(text, g.maxLogLen)),
	)

	return &Response{Text: text, Attempts: attempts, Model: g.model}, nil
}

func (g *Gemini) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func (g *Gemini) Provider() string { return ProviderGemini }

func joinCandidates(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Code: apiErr.Code, Body: apiErr.Message}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// geminiRetryable retries rate limits, server errors and transport failures.
// Other API errors such as bad requests or auth failures will not improve on retry.
func geminiRetryable(err error) bool {
	if !DefaultRetryable(err) {
		return false
	}

	var status *StatusError
	if !errors.As(err, &status) {
		return true
	}

	switch status.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
