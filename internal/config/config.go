// Package config loads the service configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of the gqlengine service.
type Config struct {
	Server    Server    `yaml:"server"`
	Engine    Engine    `yaml:"engine"`
	Cache     Cache     `yaml:"cache"`
	Logging   Logging   `yaml:"logging"`
	Telemetry Telemetry `yaml:"telemetry"`
	Metrics   Metrics   `yaml:"metrics"`
}

// Server configures the HTTP transport.
type Server struct {
	Addr           string        `yaml:"addr" validate:"required"`
	Path           string        `yaml:"path" validate:"required,startswith=/"`
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" validate:"gte=0"`
	Pretty         bool          `yaml:"pretty"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	// ForwardHeaders are copied into the outgoing gRPC metadata of resolvers.
	ForwardHeaders []string `yaml:"forward_headers"`
}

// Engine configures request execution.
type Engine struct {
	MaxOutputObjects     int           `yaml:"max_output_objects" validate:"gte=0"`
	MaxDepth             int           `yaml:"max_depth" validate:"gte=0"`
	ParallelQueries      bool          `yaml:"parallel_queries"`
	ResolverTimeout      time.Duration `yaml:"resolver_timeout" validate:"gte=0"`
	SlowRequestThreshold time.Duration `yaml:"slow_request_threshold" validate:"gte=0"`
}

// Cache configures the cache of mapped requests.
type Cache struct {
	Enabled  bool          `yaml:"enabled"`
	Size     int           `yaml:"size" validate:"required_if=Enabled true,gte=0"`
	EvictAge time.Duration `yaml:"evict_age" validate:"required_if=Enabled true,gte=0"`
}

// Logging configures the zap logger.
type Logging struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Telemetry configures trace export over OTLP/gRPC.
type Telemetry struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string `yaml:"service_name" validate:"required_if=Enabled true"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:         ":8080",
			Path:         "/graphql",
			Timeout:      30 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Engine: Engine{
			MaxOutputObjects: 100000,
			MaxDepth:         32,
			ParallelQueries:  true,
		},
		Cache: Cache{
			Enabled:  true,
			Size:     1000,
			EvictAge: 10 * time.Minute,
		},
		Logging: Logging{Level: "info", Format: "json"},
		Telemetry: Telemetry{
			Endpoint:    "localhost:4317",
			ServiceName: "gqlengine",
		},
		Metrics: Metrics{Enabled: true, Path: "/metrics"},
	}
}

var validate = validator.New()

// Validate checks the field constraints of c.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]error, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Errorf("%s: failed %q constraint", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %w", errors.Join(msgs...))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads the file at path over the defaults. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
