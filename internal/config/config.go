package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/spice-ingest/internal/common"
	"github.com/Veraticus/spice-ingest/internal/keypool"
	"github.com/Veraticus/spice-ingest/internal/llm"
	"github.com/Veraticus/spice-ingest/internal/server"
	"github.com/Veraticus/spice-ingest/internal/throttle"
	"github.com/Veraticus/spice-ingest/internal/validator"
)

// EnvPrefix prefixes every environment variable the application reads.
const EnvPrefix = "INGEST"

// Storage backends.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageNone     = "none"
)

// CacheConfig configures the completion cache. A non-empty RedisAddr shares
// it through Redis; otherwise it stays in memory.
type CacheConfig struct {
	RedisAddr   string
	RedisPrefix string
	MaxSize     int
	TTL         time.Duration
}

// StorageConfig selects the transaction history backend.
type StorageConfig struct {
	Driver      string
	Path        string
	PostgresDSN string
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string
	Format string
}

// Config is the assembled application configuration.
type Config struct {
	APIKeys   []string
	Logging   LoggingConfig
	Storage   StorageConfig
	Telegram  TelegramConfig
	Cache     CacheConfig
	Server    server.Config
	TLS       TLSConfig
	LLM       llm.Config
	Pool      keypool.Config
	Throttle  throttle.Config
	Validator validator.Config
	// MaxInputRunes rejects longer texts; zero means no limit.
	MaxInputRunes int
}

// TLSConfig controls HTTPS for the server. The certificate is self-signed
// and kept in CertDir.
type TLSConfig struct {
	CertDir string
	Hosts   []string
	Enabled bool
}

// TelegramConfig holds bot settings.
type TelegramConfig struct {
	Token   string
	Workers int
	Record  bool
}

// SetDefaults registers every documented default on v.
func SetDefaults(v *viper.Viper) {
	pool := keypool.DefaultConfig()
	thr := throttle.DefaultConfig()
	val := validator.DefaultConfig()
	srv := server.DefaultConfig()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.api_keys", []string{})
	v.SetDefault("llm.max_input_runes", 2000)

	v.SetDefault("pool.requests_per_window", pool.RequestsPerWindow)
	v.SetDefault("pool.window", pool.Window)
	v.SetDefault("pool.cooldown", pool.Cooldown)
	v.SetDefault("pool.failure_ceiling", pool.FailureCeiling)
	v.SetDefault("pool.sweep_interval", pool.SweepInterval)
	v.SetDefault("pool.queue_pause", pool.QueuePause)
	v.SetDefault("pool.max_retries", pool.MaxRetries)

	v.SetDefault("throttle.max_concurrency", thr.MaxConcurrency)
	v.SetDefault("throttle.base_delay", thr.BaseDelay)
	v.SetDefault("throttle.max_backoff", thr.MaxBackoff)
	v.SetDefault("throttle.jitter", thr.Jitter)
	v.SetDefault("throttle.min_interval", thr.MinInterval)

	v.SetDefault("cache.max_size", 500)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_prefix", "ingest:completion:")

	v.SetDefault("validator.large_amount", val.LargeAmount)
	v.SetDefault("validator.low_confidence", val.LowConfidence)
	v.SetDefault("validator.lookback_months", val.LookbackMonths)
	v.SetDefault("validator.min_samples", val.MinSamples)
	v.SetDefault("validator.stddev_multiplier", val.StdDevMultiplier)
	v.SetDefault("validator.average_multiplier", val.AverageMultiplier)
	v.SetDefault("validator.sanity_ceiling", val.SanityCeiling)

	v.SetDefault("storage.driver", StorageSQLite)
	v.SetDefault("storage.path", "~/.local/share/spice-ingest/history.db")
	v.SetDefault("storage.postgres_dsn", "")

	v.SetDefault("server.addr", srv.Addr)
	v.SetDefault("server.rate_limit", srv.RateLimit)
	v.SetDefault("server.rate_window", srv.RateWindow)
	v.SetDefault("server.request_timeout", srv.RequestTimeout)
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.cert_dir", "~/.config/spice-ingest/certs")
	v.SetDefault("server.tls.hosts", []string{})

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.workers", 4)
	v.SetDefault("telegram.record", true)
}

// BindEnv makes INGEST_SECTION_KEY override section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load assembles a Config from v. Defaults must already be registered.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		LLM: llm.Config{
			Provider:    strings.ToLower(strings.TrimSpace(v.GetString("llm.provider"))),
			Model:       v.GetString("llm.model"),
			BaseURL:     v.GetString("llm.base_url"),
			Timeout:     v.GetDuration("llm.timeout"),
			Temperature: v.GetFloat64("llm.temperature"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
		},
		APIKeys:       apiKeys(v),
		MaxInputRunes: v.GetInt("llm.max_input_runes"),
		Pool: keypool.Config{
			RequestsPerWindow: v.GetInt("pool.requests_per_window"),
			Window:            v.GetDuration("pool.window"),
			Cooldown:          v.GetDuration("pool.cooldown"),
			FailureCeiling:    v.GetInt("pool.failure_ceiling"),
			SweepInterval:     v.GetDuration("pool.sweep_interval"),
			QueuePause:        v.GetDuration("pool.queue_pause"),
			MaxRetries:        v.GetInt("pool.max_retries"),
		},
		Throttle: throttle.Config{
			MaxConcurrency: v.GetInt("throttle.max_concurrency"),
			BaseDelay:      v.GetDuration("throttle.base_delay"),
			MaxBackoff:     v.GetDuration("throttle.max_backoff"),
			Jitter:         v.GetFloat64("throttle.jitter"),
			MinInterval:    v.GetDuration("throttle.min_interval"),
		},
		Cache: CacheConfig{
			MaxSize:     v.GetInt("cache.max_size"),
			TTL:         v.GetDuration("cache.ttl"),
			RedisAddr:   v.GetString("cache.redis_addr"),
			RedisPrefix: v.GetString("cache.redis_prefix"),
		},
		Validator: validator.Config{
			LargeAmount:       v.GetFloat64("validator.large_amount"),
			LowConfidence:     v.GetFloat64("validator.low_confidence"),
			LookbackMonths:    v.GetInt("validator.lookback_months"),
			MinSamples:        v.GetInt("validator.min_samples"),
			StdDevMultiplier:  v.GetFloat64("validator.stddev_multiplier"),
			AverageMultiplier: v.GetFloat64("validator.average_multiplier"),
			SanityCeiling:     v.GetFloat64("validator.sanity_ceiling"),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(strings.TrimSpace(v.GetString("storage.driver"))),
			Path:        ExpandPath(v.GetString("storage.path")),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		Server: server.Config{
			Addr:           v.GetString("server.addr"),
			RateLimit:      v.GetInt("server.rate_limit"),
			RateWindow:     v.GetDuration("server.rate_window"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
		},
		TLS: TLSConfig{
			Enabled: v.GetBool("server.tls.enabled"),
			CertDir: ExpandPath(v.GetString("server.tls.cert_dir")),
			Hosts:   v.GetStringSlice("server.tls.hosts"),
		},
		Telegram: TelegramConfig{
			Token:   v.GetString("telegram.token"),
			Workers: v.GetInt("telegram.workers"),
			Record:  v.GetBool("telegram.record"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q: %w", c.Logging.Format, common.ErrInvalidConfig)
	}

	switch c.LLM.Provider {
	case "gemini", "openai", "anthropic":
	default:
		return fmt.Errorf("llm.provider %q: %w", c.LLM.Provider, common.ErrInvalidConfig)
	}

	switch c.Storage.Driver {
	case StorageSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path: %w", common.ErrMissingConfig)
		}
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn: %w", common.ErrMissingConfig)
		}
	case StorageNone:
	default:
		return fmt.Errorf("storage.driver %q: %w", c.Storage.Driver, common.ErrInvalidConfig)
	}

	if c.Throttle.Jitter < 0 || c.Throttle.Jitter > 1 {
		return fmt.Errorf("throttle.jitter must be within [0,1]: %w", common.ErrInvalidConfig)
	}
	return nil
}

// RequireAPIKeys reports a missing-configuration error when no keys are set.
func (c Config) RequireAPIKeys() error {
	if len(c.APIKeys) == 0 {
		return common.NewUserError(
			fmt.Sprintf("no API keys configured; set llm.api_keys or %s_LLM_API_KEYS", EnvPrefix),
			common.ErrMissingConfig)
	}
	return nil
}

// apiKeys accepts a YAML list or a comma separated string, as environment
// variables provide.
func apiKeys(v *viper.Viper) []string {
	var raw []string
	switch val := v.Get("llm.api_keys").(type) {
	case string:
		raw = strings.Split(val, ",")
	default:
		raw = v.GetStringSlice("llm.api_keys")
	}

	keys := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, k := range raw {
		for _, part := range strings.Split(k, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			keys = append(keys, part)
		}
	}
	return keys
}
