package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/resume-insight/internal/logger"
	"github.com/spigell/resume-insight/internal/utils"
	"go.uber.org/zap"
)

const (
	// ProviderHTTP names the default local HTTP transport in logs.
	ProviderHTTP = "ollama"

	defaultHost         = "http://localhost:11434/api"
	defaultModel        = "mistral"
	defaultTimeout      = 30 * time.Second
	defaultMaxLogLength = 200
	maxErrorBodyLength  = 512
)

// Request is a single prompt sent to the inference service.
type Request struct {
	// Kind is the analysis kind the prompt was built for. Used for logging only.
	Kind   string
	Prompt string
}

// Response carries the generated text together with call metadata.
type Response struct {
	Text     string
	Attempts int
	Model    string
}

// Options configures the HTTP transport.
type Options struct {
	Host         string
	Model        string
	Timeout      time.Duration
	Temperature  float64
	MaxTokens    int
	MaxRetries   int
	BackoffBase  time.Duration
	MaxLogLength int
	HTTPClient   *http.Client
}

// Client talks to a local text-generation service over HTTP.
type Client struct {
	http        *http.Client
	host        string
	model       string
	temperature float64
	maxTokens   int
	policy      Policy
	logger      *zap.Logger
	maxLogLen   int
}

type generateRequest struct {
	Model           string  `json:"model"`
	Prompt          string  `json:"prompt"`
	Stream          bool    `json:"stream"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func NewClient(opts Options, log *zap.Logger) (*Client, error) {
	host := strings.TrimRight(strings.TrimSpace(opts.Host), "/")
	if host == "" {
		host = defaultHost
	}

	parsed, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse inference host %q: %w", host, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("inference host %q must use http or https", host)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Client{
		http:        httpClient,
		host:        host,
		model:       model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		policy:      NewPolicy(opts.MaxRetries, opts.BackoffBase),
		logger:      logger.WithCommonFields(log, ProviderHTTP, model),
		maxLogLen:   maxLogLen,
	}, nil
}

// Generate sends the prompt, retrying according to the client's policy.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("prompt must not be empty")
	}

	payload, err := json.Marshal(generateRequest{
		Model:           c.model,
		Prompt:          prompt,
		Stream:          false,
		Temperature:     c.temperature,
		MaxOutputTokens: c.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	var (
		text     string
		attempts int
	)

	policy := c.policy
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		fields := logger.AttemptFields(req.Kind, attempt+1, policy.MaxAttempts)
		c.logger.Warn("inference attempt failed, backing off",
			append(fields, zap.Error(err), zap.Duration("backoff", wait))...,
		)
	}

	err = policy.Do(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt + 1
		c.logger.Info("calling inference service",
			append(logger.AttemptFields(req.Kind, attempts, policy.MaxAttempts),
				zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
				zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
			)...,
		)

		out, err := c.generateOnce(ctx, payload)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		c.logger.Error("inference call failed",
			append(logger.AttemptFields(req.Kind, attempts, policy.MaxAttempts), zap.Error(err))...,
		)
		return nil, err
	}

	c.logger.Debug("inference response received",
		zap.String(logger.FieldKind, req.Kind),
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", utils.TruncateForLog(text, c.maxLogLen)),
	)

	return &Response{Text: text, Attempts: attempts, Model: c.model}, nil
}

func (c *Client) generateOnce(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/generate", bytes.NewReader(payload))
	if err != nil {
		return "", Permanent(fmt.Errorf("build generate request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}

	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}

// Tags lists the models the service has available. It makes a single attempt.
func (c *Client) Tags(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			name = "unknown"
		}
		names = append(names, name)
	}

	return names, nil
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

func (c *Client) Provider() string { return ProviderHTTP }

func (c *Client) Host() string { return c.host }
