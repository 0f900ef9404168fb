package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ballast-systems/ballast/internal/engine"
)

// #region types
// Config is the full process configuration, assembled from defaults, an
// optional TOML file, and BALLAST__SECTION__KEY environment overrides, in
// that precedence order.
type Config struct {
	Engine  EngineConfig  `toml:"engine"`
	Audit   AuditConfig   `toml:"audit"`
	Archive ArchiveConfig `toml:"archive"`
	Metrics MetricsConfig `toml:"metrics"`
	API     APIConfig     `toml:"api"`
}

type EngineConfig struct {
	MinConfidence          float64 `toml:"min_confidence"`
	GraceConfidence        float64 `toml:"grace_confidence"`
	MinModelsRequired      int     `toml:"min_models_required"`
	SignAgreementThreshold float64 `toml:"sign_agreement_threshold"`
	FallbackWindowSize     int     `toml:"fallback_window_size"`
	FallbackPositionScale  float64 `toml:"fallback_position_scale"`
	MaxModelCount          int     `toml:"max_model_count"`
}

type AuditConfig struct {
	Path   string `toml:"path"`
	Digest string `toml:"digest"` // "fnv64" (default) or "sha256"
}

type ArchiveConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type MetricsConfig struct {
	SampleCap           int     `toml:"sample_cap"`
	HealthyFallbackRate float64 `toml:"healthy_fallback_rate"`
}

type APIConfig struct {
	BindAddress      string   `toml:"bind_address"`
	CORSOrigins      []string `toml:"cors_origins"`
	DecideRatePerSec float64  `toml:"decide_rate_per_sec"`
	DecideRateBurst  int      `toml:"decide_rate_burst"`
	EnablePrometheus bool     `toml:"enable_prometheus"`
}

// #endregion types

// #region defaults
// Default returns the built-in configuration.
func Default() Config {
	ec := engine.DefaultConfig()
	return Config{
		Engine: EngineConfig{
			MinConfidence:          ec.MinConfidence,
			GraceConfidence:        ec.GraceConfidence,
			MinModelsRequired:      ec.MinModelsRequired,
			SignAgreementThreshold: ec.SignAgreementThreshold,
			FallbackWindowSize:     ec.FallbackWindowSize,
			FallbackPositionScale:  ec.FallbackPositionScale,
			MaxModelCount:          ec.MaxModelCount,
		},
		Audit: AuditConfig{
			Path:   "ballast_audit.log",
			Digest: "fnv64",
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Path:    "ballast.db",
		},
		Metrics: MetricsConfig{
			SampleCap:           10000,
			HealthyFallbackRate: 0.5,
		},
		API: APIConfig{
			BindAddress:      "0.0.0.0:8080",
			CORSOrigins:      []string{"*"},
			DecideRatePerSec: 50,
			DecideRateBurst:  100,
			EnablePrometheus: true,
		},
	}
}

// #endregion defaults

// #region load
// Load builds the configuration. An explicit path must exist; the implicit
// default path (config/ballast.toml) is skipped silently when absent.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = "config/ballast.toml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if explicit {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints after all sources are applied.
func (c Config) Validate() error {
	if err := c.ToEngineConfig().Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	switch c.Audit.Digest {
	case "", "fnv64", "sha256":
	default:
		return fmt.Errorf("audit config: unknown digest %q", c.Audit.Digest)
	}
	if c.Metrics.SampleCap < 0 {
		return fmt.Errorf("metrics config: sample_cap must be >= 0")
	}
	if c.Metrics.HealthyFallbackRate < 0 || c.Metrics.HealthyFallbackRate > 1 {
		return fmt.Errorf("metrics config: healthy_fallback_rate must be in [0,1]")
	}
	if c.API.DecideRatePerSec <= 0 {
		return fmt.Errorf("api config: decide_rate_per_sec must be > 0")
	}
	return nil
}

// ToEngineConfig maps the engine section onto the engine's own config type.
func (c Config) ToEngineConfig() engine.Config {
	return engine.Config{
		MinConfidence:          c.Engine.MinConfidence,
		GraceConfidence:        c.Engine.GraceConfidence,
		MinModelsRequired:      c.Engine.MinModelsRequired,
		SignAgreementThreshold: c.Engine.SignAgreementThreshold,
		FallbackWindowSize:     c.Engine.FallbackWindowSize,
		FallbackPositionScale:  c.Engine.FallbackPositionScale,
		MaxModelCount:          c.Engine.MaxModelCount,
	}
}

// #endregion load

// #region env
func applyEnv(cfg *Config) {
	cfg.Engine.MinConfidence = envFloat("BALLAST__ENGINE__MIN_CONFIDENCE", cfg.Engine.MinConfidence)
	cfg.Engine.GraceConfidence = envFloat("BALLAST__ENGINE__GRACE_CONFIDENCE", cfg.Engine.GraceConfidence)
	cfg.Engine.MinModelsRequired = envInt("BALLAST__ENGINE__MIN_MODELS_REQUIRED", cfg.Engine.MinModelsRequired)
	cfg.Engine.SignAgreementThreshold = envFloat("BALLAST__ENGINE__SIGN_AGREEMENT_THRESHOLD", cfg.Engine.SignAgreementThreshold)
	cfg.Engine.FallbackWindowSize = envInt("BALLAST__ENGINE__FALLBACK_WINDOW_SIZE", cfg.Engine.FallbackWindowSize)
	cfg.Engine.FallbackPositionScale = envFloat("BALLAST__ENGINE__FALLBACK_POSITION_SCALE", cfg.Engine.FallbackPositionScale)
	cfg.Engine.MaxModelCount = envInt("BALLAST__ENGINE__MAX_MODEL_COUNT", cfg.Engine.MaxModelCount)

	cfg.Audit.Path = envOr("BALLAST__AUDIT__PATH", cfg.Audit.Path)
	cfg.Audit.Digest = envOr("BALLAST__AUDIT__DIGEST", cfg.Audit.Digest)

	cfg.Archive.Enabled = envBool("BALLAST__ARCHIVE__ENABLED", cfg.Archive.Enabled)
	cfg.Archive.Path = envOr("BALLAST__ARCHIVE__PATH", cfg.Archive.Path)

	cfg.Metrics.SampleCap = envInt("BALLAST__METRICS__SAMPLE_CAP", cfg.Metrics.SampleCap)
	cfg.Metrics.HealthyFallbackRate = envFloat("BALLAST__METRICS__HEALTHY_FALLBACK_RATE", cfg.Metrics.HealthyFallbackRate)

	cfg.API.BindAddress = envOr("BALLAST__API__BIND_ADDRESS", cfg.API.BindAddress)
	cfg.API.CORSOrigins = envSlice("BALLAST__API__CORS_ORIGINS", cfg.API.CORSOrigins)
	cfg.API.DecideRatePerSec = envFloat("BALLAST__API__DECIDE_RATE_PER_SEC", cfg.API.DecideRatePerSec)
	cfg.API.DecideRateBurst = envInt("BALLAST__API__DECIDE_RATE_BURST", cfg.API.DecideRateBurst)
	cfg.API.EnablePrometheus = envBool("BALLAST__API__ENABLE_PROMETHEUS", cfg.API.EnablePrometheus)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envSlice(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		return strings.Split(v, ",")
	}
	return fallback
}

// #endregion env
