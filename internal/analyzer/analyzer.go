// Package analyzer orchestrates analysis calls: it consults the result cache,
// renders prompts, invokes the inference transport, normalizes the reply and
// reshapes it into stable typed records.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/resume-insight/internal/cache"
	"github.com/spigell/resume-insight/internal/inference"
	"github.com/spigell/resume-insight/internal/logger"
	"github.com/spigell/resume-insight/internal/normalize"
	"github.com/spigell/resume-insight/internal/prompts"
	"github.com/spigell/resume-insight/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultMaxLogLength = 200

// Generator is an inference transport.
type Generator interface {
	Generate(ctx context.Context, req inference.Request) (*inference.Response, error)
	Model() string
	Provider() string
}

// Prober is implemented by transports that can check their own connectivity.
type Prober interface {
	Probe(ctx context.Context) inference.ProbeResult
}

// PromptFunc builds the prompt for a subject.
type PromptFunc func(subject string) (string, error)

// ParseFunc turns a raw reply into a record. A nil ParseFunc means the
// normalizer chain followed by the sentinel check.
type ParseFunc func(raw string) (map[string]any, error)

// Request describes one analysis call.
type Request struct {
	Subject string
	Kind    prompts.Kind
	// Params take part in the cache key next to Subject and Kind.
	Params   []string
	Prompt   PromptFunc
	Parse    ParseFunc
	UseCache bool
}

// Template returns a PromptFunc rendering the catalog template for kind with
// the subject as the resume text.
func Template(kind prompts.Kind, vars prompts.Vars) PromptFunc {
	return func(subject string) (string, error) {
		v := vars
		v.Resume = subject
		return prompts.Render(kind, v)
	}
}

// Analyzer is safe for concurrent use.
type Analyzer struct {
	gen        Generator
	cache      *cache.Cache
	normalizer *normalize.Normalizer
	logger     *zap.Logger
	maxLogLen  int
	now        func() time.Time
	ledger     *Ledger
	group      singleflight.Group
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithCache enables result caching.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) { a.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithMaxLogLength(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxLogLen = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithNormalizer replaces the default extractor chain.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(a *Analyzer) {
		if n != nil {
			a.normalizer = n
		}
	}
}

func New(gen Generator, opts ...Option) *Analyzer {
	a := &Analyzer{
		gen:        gen,
		normalizer: normalize.Default(),
		logger:     zap.NewNop(),
		maxLogLen:  defaultMaxLogLength,
		now:        time.Now,
		ledger:     &Ledger{},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logger.WithCommonFields(a.logger, gen.Provider(), gen.Model())
	return a
}

// CachingEnabled reports whether results are cached by default.
func (a *Analyzer) CachingEnabled() bool {
	return a.cache != nil
}

// Cache returns the result cache, or nil when caching is disabled.
func (a *Analyzer) Cache() *cache.Cache {
	return a.cache
}

// Analyze runs a single analysis call. A reply that yields only the raw-text
// sentinel is returned as *ParseError and is never cached.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (map[string]any, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return nil, errors.New("subject text must not be empty")
	}
	if req.Prompt == nil {
		return nil, fmt.Errorf("%s: no prompt builder", req.Kind)
	}

	key := cache.Key(req.Subject, string(req.Kind), req.Params...)
	log := a.logger.With(zap.String(logger.FieldKind, string(req.Kind)), zap.String("cache_key", key[:12]))

	useCache := req.UseCache && a.cache != nil
	if useCache {
		if rec, ok := a.cache.Get(ctx, key); ok {
			log.Debug("serving analysis from cache")
			return rec, nil
		}
	}

	// The shared call outlives any single caller; each caller stops waiting
	// when its own ctx ends.
	detached := context.WithoutCancel(ctx)
	ch := a.group.DoChan(key, func() (any, error) {
		return a.compute(detached, log, key, req, useCache)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.Debug("joined in-flight analysis")
		}
		return maps.Clone(res.Val.(map[string]any)), nil
	}
}

func (a *Analyzer) compute(ctx context.Context, log *zap.Logger, key string, req Request, useCache bool) (map[string]any, error) {
	prompt, err := req.Prompt(req.Subject)
	if err != nil {
		return nil, fmt.Errorf("build %s prompt: %w", req.Kind, err)
	}

	raw, err := a.invoke(ctx, req.Kind, prompt)
	if err != nil {
		return nil, err
	}

	parse := req.Parse
	if parse == nil {
		parse = a.parseStructured(req.Kind)
	}
	rec, err := parse(raw)
	if err != nil {
		log.Warn("analysis response unusable",
			zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
		)
		return nil, err
	}

	problems, err := shapeProblems(req.Kind, rec)
	if err != nil {
		log.Warn("shape check skipped", zap.Error(err))
	}
	if len(problems) > 0 {
		log.Warn("analysis response deviates from expected shape", zap.Strings("problems", problems))
	}

	if useCache {
		// Cache.Set logs durable failures; the result is still usable.
		_ = a.cache.Set(ctx, key, string(req.Kind), rec)
	}
	return rec, nil
}

func (a *Analyzer) parseStructured(kind prompts.Kind) ParseFunc {
	return func(raw string) (map[string]any, error) {
		rec, extractor := a.normalizer.ParseWith(raw)
		if normalize.IsSentinel(rec) {
			return nil, &ParseError{Kind: kind, Raw: normalize.RawOf(rec)}
		}
		a.logger.Debug("response normalized", zap.String(logger.FieldKind, string(kind)), zap.String("extractor", extractor))
		return rec, nil
	}
}

// invoke calls the transport and records token usage for the completed call.
func (a *Analyzer) invoke(ctx context.Context, kind prompts.Kind, prompt string) (string, error) {
	resp, err := a.gen.Generate(ctx, inference.Request{Kind: string(kind), Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("%s analysis: %w", kind, err)
	}

	entry := a.ledger.add(UsageEntry{
		Timestamp:      a.now().UTC(),
		Kind:           string(kind),
		Model:          resp.Model,
		PromptTokens:   EstimateTokens(prompt),
		ResponseTokens: EstimateTokens(resp.Text),
	})
	a.logger.Info("tokens used",
		zap.String(logger.FieldKind, string(kind)),
		zap.Int("tokens", entry.TotalTokens),
		zap.Int("attempts", resp.Attempts),
		zap.Int("response_length", utf8.RuneCountInString(resp.Text)),
	)
	return resp.Text, nil
}

// TokenStats returns a snapshot of the token ledger.
func (a *Analyzer) TokenStats() TokenStats {
	return a.ledger.Snapshot()
}

// TestConnection probes the transport when it supports probing.
func (a *Analyzer) TestConnection(ctx context.Context) inference.ProbeResult {
	if p, ok := a.gen.(Prober); ok {
		return p.Probe(ctx)
	}
	return inference.ProbeResult{
		Status:  inference.ProbeSuccess,
		Message: fmt.Sprintf("%s transport configured with model %q", a.gen.Provider(), a.gen.Model()),
	}
}

// Lookup returns a cached record without calling the service.
func (a *Analyzer) Lookup(ctx context.Context, kind prompts.Kind, subject string, params ...string) (map[string]any, bool) {
	if a.cache == nil {
		return nil, false
	}
	return a.cache.Get(ctx, cache.Key(subject, string(kind), params...))
}

// Remember stores a record computed outside Analyze, such as an enriched report.
func (a *Analyzer) Remember(ctx context.Context, kind prompts.Kind, rec map[string]any, subject string, params ...string) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Set(ctx, cache.Key(subject, string(kind), params...), string(kind), rec)
}
