package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spigell/resume-insight/internal/analyzer"
	"github.com/spigell/resume-insight/internal/cache"
	"github.com/spigell/resume-insight/internal/config"
	"github.com/spigell/resume-insight/internal/document"
	"github.com/spigell/resume-insight/internal/inference"
	"github.com/spigell/resume-insight/internal/logger"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// engine bundles what every analysing command needs.
type engine struct {
	logger   *zap.Logger
	config   *config.Config
	cache    *cache.Cache
	analyzer *analyzer.Analyzer
	closers  []func()
}

// setup builds the logger, config, transport and cache. It exits the process
// on failure.
func setup(ctx context.Context) *engine {
	log, err := newLogger()
	if err != nil {
		logFatal(err)
	}

	cfg, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	log.Info("starting the resume-insight", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(cfg), "", "  ")
	log.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	e := &engine{logger: log, config: cfg}

	gen, err := newGenerator(ctx, cfg, log)
	if err != nil {
		log.Fatal("creating the inference transport", zap.Error(err), zap.String("transport", cfg.Inference.Transport))
	}

	opts := []analyzer.Option{
		analyzer.WithLogger(log),
		analyzer.WithMaxLogLength(cfg.MaxLogLength),
	}

	if cfg.Cache.Enabled {
		store, closer, err := newStore(ctx, cfg)
		if err != nil {
			log.Fatal("opening the cache", zap.Error(err), zap.String("backend", cfg.Cache.Backend))
		}
		if closer != nil {
			e.closers = append(e.closers, closer)
		}
		e.cache = cache.New(store, log.Named("cache"))
		opts = append(opts, analyzer.WithCache(e.cache))
		log.Debug("cache enabled", zap.String("backend", cfg.Cache.Backend))
	}

	e.analyzer = analyzer.New(gen, opts...)
	return e
}

// close logs token usage and releases resources.
func (e *engine) close() {
	stats := e.analyzer.TokenStats()
	e.logger.Info("token usage",
		zap.Int("total_tokens", stats.TotalTokens),
		zap.Int("requests", stats.RequestsCount),
	)
	for _, entry := range stats.Entries {
		e.logger.Debug("model call",
			zap.String("kind", entry.Kind),
			zap.String("model", entry.Model),
			zap.Int("prompt_tokens", entry.PromptTokens),
			zap.Int("response_tokens", entry.ResponseTokens),
		)
	}

	for _, c := range e.closers {
		c()
	}
	_ = e.logger.Sync()
}

func newLogger() (*zap.Logger, error) {
	return logger.New(logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
		File:  viper.GetString("log-file"),
	})
}

func logFatal(err error) {
	log.Fatalf("creating a logger: %s", err)
}

func newGenerator(ctx context.Context, cfg *config.Config, log *zap.Logger) (analyzer.Generator, error) {
	switch cfg.Inference.Transport {
	case config.TransportGemini:
		key, err := cfg.GeminiKey()
		if err != nil {
			return nil, err
		}
		return inference.NewGemini(ctx, inference.GeminiOptions{
			APIKey:       key,
			Model:        cfg.Gemini.Model,
			Temperature:  cfg.Inference.Temperature,
			MaxTokens:    cfg.Inference.MaxTokens,
			MaxRetries:   cfg.Inference.MaxRetries,
			Timeout:      cfg.Inference.Timeout(),
			MaxLogLength: cfg.MaxLogLength,
		}, log)
	default:
		return inference.NewClient(inference.Options{
			Host:         cfg.Inference.Host,
			Model:        cfg.Inference.Model,
			Timeout:      cfg.Inference.Timeout(),
			Temperature:  cfg.Inference.Temperature,
			MaxTokens:    cfg.Inference.MaxTokens,
			MaxRetries:   cfg.Inference.MaxRetries,
			MaxLogLength: cfg.MaxLogLength,
		}, log)
	}
}

// newStore opens the durable tier. A nil store means memory only.
func newStore(ctx context.Context, cfg *config.Config) (cache.Store, func(), error) {
	switch cfg.Cache.Backend {
	case config.BackendMemory:
		return nil, nil, nil
	case config.BackendRedis:
		password, err := cfg.RedisPassword()
		if err != nil {
			return nil, nil, err
		}
		store, err := cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.Redis.Addr,
			Password: password,
			DB:       cfg.Cache.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.BackendPostgres:
		dsn, err := cfg.PostgresDSN()
		if err != nil {
			return nil, nil, err
		}
		store, err := cache.NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		store, err := cache.NewFileStore(cfg.Cache.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
}

// redacted copies the config with secrets masked for debug output.
func redacted(cfg *config.Config) config.Config {
	out := *cfg
	if out.Gemini.APIKey != "" {
		out.Gemini.APIKey = "***"
	}
	if out.Cache.Redis.Password != "" {
		out.Cache.Redis.Password = "***"
	}
	if out.Cache.Postgres.DSN != "" {
		out.Cache.Postgres.DSN = "***"
	}
	return out
}

// readResume loads the resume from a file path or from stdin when path is "-".
func readResume(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading resume from stdin: %w", err)
		}
		text := document.Clean(string(data))
		if text == "" {
			return "", fmt.Errorf("resume from stdin is empty")
		}
		return text, nil
	}
	return document.Extract(path)
}

// readText returns the file content when value names an existing file and the
// value itself otherwise.
func readText(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if info, err := os.Stat(value); err == nil && !info.IsDir() {
		return document.Extract(value)
	}
	return value, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
