package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the scoring service.
type Config struct {
	Environment string         `yaml:"environment"`
	Server      ServerConfig   `yaml:"server"`
	Model       ModelConfig    `yaml:"model"`
	Decision    DecisionConfig `yaml:"decision"`
	Audit       AuditConfig    `yaml:"audit"`
	API         APIConfig      `yaml:"api"`
	Logging     LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls the HTTP listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// ModelConfig locates the active model package in the registry.
type ModelConfig struct {
	RegistryDir string `yaml:"registryDir"`
	// Version pins a registered version; empty serves the registry's
	// current model.
	Version         string `yaml:"version"`
	RequireApproval bool   `yaml:"requireApproval"`
	// ReasonStrategy selects the reason-code generator: "coefficients" or "rules".
	ReasonStrategy string `yaml:"reasonStrategy"`
}

// DecisionConfig overrides the bundle thresholds when set (> 0).
type DecisionConfig struct {
	ApproveThreshold float64 `yaml:"approveThreshold"`
	ReviewThreshold  float64 `yaml:"reviewThreshold"`
}

// AuditConfig controls the append-only audit sinks.
type AuditConfig struct {
	Dir            string `yaml:"dir"`
	SQLitePath     string `yaml:"sqlitePath"`
	LogRequestBody bool   `yaml:"logRequestBody"`
	RecentLimitMax int    `yaml:"recentLimitMax"`
}

// APIConfig controls request authentication.
type APIConfig struct {
	// Key gates every route except /health when non-empty.
	Key string `yaml:"key"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ALTCREDIT_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Decision.ReviewThreshold > 0 && cfg.Decision.ApproveThreshold > 0 &&
		cfg.Decision.ReviewThreshold >= cfg.Decision.ApproveThreshold {
		return nil, fmt.Errorf("decision thresholds: review (%.2f) must be below approve (%.2f)",
			cfg.Decision.ReviewThreshold, cfg.Decision.ApproveThreshold)
	}

	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Environment: "dev",
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Model: ModelConfig{
			RegistryDir:     "models",
			RequireApproval: false,
			ReasonStrategy:  "coefficients",
		},
		Decision: DecisionConfig{},
		Audit: AuditConfig{
			Dir:            "data/audit",
			SQLitePath:     "data/audit.db",
			RecentLimitMax: 200,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALTCREDIT_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("ALTCREDIT_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("ALTCREDIT_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("ALTCREDIT_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("ALTCREDIT_REGISTRY_DIR"); v != "" {
		cfg.Model.RegistryDir = v
	}
	if v := os.Getenv("ALTCREDIT_MODEL_VERSION"); v != "" {
		cfg.Model.Version = v
	}
	if v := os.Getenv("ALTCREDIT_REQUIRE_APPROVAL"); v != "" {
		cfg.Model.RequireApproval = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("ALTCREDIT_REASON_STRATEGY"); v != "" {
		cfg.Model.ReasonStrategy = v
	}
	if v := os.Getenv("ALTCREDIT_APPROVE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Decision.ApproveThreshold = f
		}
	}
	if v := os.Getenv("ALTCREDIT_REVIEW_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Decision.ReviewThreshold = f
		}
	}
	if v := os.Getenv("ALTCREDIT_AUDIT_DIR"); v != "" {
		cfg.Audit.Dir = v
	}
	if v := os.Getenv("ALTCREDIT_AUDIT_SQLITE"); v != "" {
		cfg.Audit.SQLitePath = v
	}
	if v := os.Getenv("ALTCREDIT_AUDIT_LOG_BODY"); v != "" {
		cfg.Audit.LogRequestBody = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("ALTCREDIT_API_KEY"); v != "" {
		cfg.API.Key = v
	}
	if v := os.Getenv("ALTCREDIT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ALTCREDIT_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
