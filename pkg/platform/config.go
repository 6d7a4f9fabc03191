// Package platform assembles and orchestrates the QueryGate control
// plane: the three subsystem nodes, the wiring coordinator that
// connects them, and the shared session and user infrastructure.
package platform

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete platform configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Session  SessionConfig  `yaml:"session"`
	LLM      LLMConfig      `yaml:"llm"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Wiring   WiringConfig   `yaml:"wiring"`
}

// ServerConfig names the deployment and tunes the node runtime.
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// AskTimeout bounds every supervisor request/reply round trip.
	AskTimeout time.Duration `yaml:"ask_timeout"`
}

// AuthConfig configures the user directory and refresh tokens.
type AuthConfig struct {
	// TokenIssuer is the iss claim on minted refresh tokens. When empty
	// the server name is used.
	TokenIssuer string `yaml:"token_issuer"`

	// SigningKey is the HMAC key for refresh tokens. When empty,
	// sessions fall back to opaque random tokens.
	SigningKey string `yaml:"signing_key"`

	// Users seeds the in-memory user directory at startup.
	Users []SeedUser `yaml:"users"`
}

// SeedUser is an account created at startup.
type SeedUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// SessionConfig selects and tunes the session store.
type SessionConfig struct {
	// Store is one of "memory", "postgres", "redis".
	Store string `yaml:"store"`

	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// DSN is the PostgreSQL connection string for the postgres store.
	DSN string `yaml:"dsn"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis session store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LLMConfig configures the completion backend.
type LLMConfig struct {
	// Provider is one of "anthropic", "noop".
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	MaxTokens int    `yaml:"max_tokens"`
}

// AnalysisConfig configures the relevance backend.
type AnalysisConfig struct {
	// Provider is one of "noop". Real vector/graph backends plug in
	// through platform options.
	Provider string `yaml:"provider"`
}

// WiringConfig tunes the cross-node wiring coordinator.
type WiringConfig struct {
	// RetryInterval paces readiness polls while a node is starting.
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// DefaultConfig returns a configuration with every default applied:
// memory session store, noop providers, no seeded users.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig loads configuration from a YAML file, expanding ${VAR}
// environment references before parsing.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "querygate"
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "1.0.0"
	}
	if cfg.Server.AskTimeout == 0 {
		cfg.Server.AskTimeout = 10 * time.Second
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = "memory"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 24 * time.Hour
	}
	if cfg.Session.CleanupInterval == 0 {
		cfg.Session.CleanupInterval = 15 * time.Minute
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "noop"
	}
	if cfg.Analysis.Provider == "" {
		cfg.Analysis.Provider = "noop"
	}
	if cfg.Wiring.RetryInterval == 0 {
		cfg.Wiring.RetryInterval = 50 * time.Millisecond
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	switch c.Session.Store {
	case "memory":
	case "postgres":
		if c.Session.DSN == "" {
			errs = append(errs, "session.dsn is required for the postgres store")
		}
	case "redis":
		if c.Session.Redis.Addr == "" {
			errs = append(errs, "session.redis.addr is required for the redis store")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown session store %q", c.Session.Store))
	}

	switch c.LLM.Provider {
	case "noop":
	case "anthropic":
		if c.LLM.APIKey == "" {
			errs = append(errs, "llm.api_key is required for the anthropic provider")
		}
		if c.LLM.Model == "" {
			errs = append(errs, "llm.model is required for the anthropic provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown llm provider %q", c.LLM.Provider))
	}

	if c.Analysis.Provider != "noop" {
		errs = append(errs, fmt.Sprintf("unknown analysis provider %q", c.Analysis.Provider))
	}

	for i, u := range c.Auth.Users {
		if u.Username == "" || u.Password == "" {
			errs = append(errs, fmt.Sprintf("auth.users[%d]: username and password are required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
