// Package config loads resume-insight settings from a config file, a .env
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/spigell/resume-insight/internal/secrets"
)

const EnvPrefix = "RESUME_INSIGHT"

// Transports.
const (
	TransportOllama = "ollama"
	TransportGemini = "gemini"
)

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Debug        bool   `mapstructure:"debug"`
	JSON         bool   `mapstructure:"json"`
	LogFile      string `mapstructure:"log-file"`
	MaxLogLength int    `mapstructure:"max-log-length" validate:"gte=0"`

	Inference Inference `mapstructure:"inference"`
	Gemini    Gemini    `mapstructure:"gemini"`
	Cache     Cache     `mapstructure:"cache"`
}

type Inference struct {
	Transport string `mapstructure:"transport" validate:"oneof=ollama gemini"`
	Host      string `mapstructure:"host" validate:"required,url"`
	Model     string `mapstructure:"model" validate:"required"`
	// MaxRetries is the total number of attempts per request.
	MaxRetries int `mapstructure:"max-retries" validate:"gte=1,lte=10"`
	// RequestTimeout is in seconds.
	RequestTimeout int     `mapstructure:"request-timeout" validate:"gt=0"`
	Temperature    float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens      int     `mapstructure:"max-tokens" validate:"gt=0"`
}

// Timeout returns the request timeout as a duration.
func (i Inference) Timeout() time.Duration {
	return time.Duration(i.RequestTimeout) * time.Second
}

type Gemini struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type Cache struct {
	Enabled  bool     `mapstructure:"enabled"`
	Backend  string   `mapstructure:"backend" validate:"oneof=memory file redis postgres"`
	Dir      string   `mapstructure:"dir" validate:"required_if=Backend file"`
	Redis    Redis    `mapstructure:"redis"`
	Postgres Postgres `mapstructure:"postgres"`
}

type Redis struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password-file"`
	DB           int    `mapstructure:"db" validate:"gte=0"`
}

type Postgres struct {
	DSN     string `mapstructure:"dsn"`
	DSNFile string `mapstructure:"dsn-file"`
}

// legacyEnv maps config keys to the plain environment names older
// deployments use.
var legacyEnv = map[string]string{
	"inference.host":            "OLLAMA_HOST",
	"inference.model":           "OLLAMA_MODEL",
	"inference.max-retries":     "MAX_RETRIES",
	"inference.request-timeout": "REQUEST_TIMEOUT",
	"inference.temperature":     "TEMPERATURE",
	"inference.max-tokens":      "MAX_TOKENS",
	"inference.transport":       "ALTERNATE_TRANSPORT",
	"cache.enabled":             "CACHE_ENABLED",
	"gemini.api-key":            "GEMINI_API_KEY",
	"log-file":                  "LOG_FILE",
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("json", false)
	v.SetDefault("log-file", "")
	v.SetDefault("max-log-length", 200)

	v.SetDefault("inference.transport", TransportOllama)
	v.SetDefault("inference.host", "http://localhost:11434/api")
	v.SetDefault("inference.model", "mistral")
	v.SetDefault("inference.max-retries", 3)
	v.SetDefault("inference.request-timeout", 30)
	v.SetDefault("inference.temperature", 0.2)
	v.SetDefault("inference.max-tokens", 1024)

	v.SetDefault("gemini.api-key", "")
	v.SetDefault("gemini.api-key-file", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", BackendFile)
	v.SetDefault("cache.dir", ".cache/resume-insight")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.password-file", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.postgres.dsn", "")
	v.SetDefault("cache.postgres.dsn-file", "")
}

// BindEnv binds every key to RESUME_INSIGHT_<KEY> and the legacy names.
// The prefixed name wins when both are set.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("binding %s environment variable: %w", legacy, err)
		}
	}
	return nil
}

// LoadDotenv loads variables from the given .env files into the process
// environment without overriding what is already set. Missing files are
// ignored.
func LoadDotenv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.Inference.Transport = strings.ToLower(strings.TrimSpace(cfg.Inference.Transport))
	cfg.Inference.Host = normalizeHost(cfg.Inference.Host)
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and the secrets each choice needs.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			problems := make([]string, 0, len(invalid))
			for _, fe := range invalid {
				problems = append(problems, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Inference.Transport == TransportGemini && strings.TrimSpace(cfg.Gemini.APIKey) == "" && strings.TrimSpace(cfg.Gemini.APIKeyFile) == "" {
		return errors.New("invalid config: gemini transport needs gemini.api-key or gemini.api-key-file")
	}
	if cfg.Cache.Enabled && cfg.Cache.Backend == BackendRedis && strings.TrimSpace(cfg.Cache.Redis.Addr) == "" {
		return errors.New("invalid config: redis cache needs cache.redis.addr")
	}
	if cfg.Cache.Enabled && cfg.Cache.Backend == BackendPostgres && strings.TrimSpace(cfg.Cache.Postgres.DSN) == "" && strings.TrimSpace(cfg.Cache.Postgres.DSNFile) == "" {
		return errors.New("invalid config: postgres cache needs cache.postgres.dsn or cache.postgres.dsn-file")
	}
	return nil
}

// GeminiKey resolves the Gemini API key.
func (c *Config) GeminiKey() (string, error) {
	return secrets.Load(secrets.Source{Name: "gemini api key", Value: c.Gemini.APIKey, File: c.Gemini.APIKeyFile})
}

// PostgresDSN resolves the Postgres connection string.
func (c *Config) PostgresDSN() (string, error) {
	return secrets.Load(secrets.Source{Name: "postgres dsn", Value: c.Cache.Postgres.DSN, File: c.Cache.Postgres.DSNFile})
}

// RedisPassword resolves the optional Redis password.
func (c *Config) RedisPassword() (string, error) {
	return secrets.LoadOptional(secrets.Source{Name: "redis password", Value: c.Cache.Redis.Password, File: c.Cache.Redis.PasswordFile})
}

// normalizeHost appends the /api path to bare service addresses.
func normalizeHost(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return host
	}
	if u.Path == "" {
		return host + "/api"
	}
	return host
}
