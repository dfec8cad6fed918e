// Package config provides hierarchical configuration loading for repolens.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the repolens core service.
type Config struct {
	Server    Server    `yaml:"server"`
	Postgres  Postgres  `yaml:"postgres"`
	NATS      NATS      `yaml:"nats"`
	Logging   Logging   `yaml:"logging"`
	Sync      Sync      `yaml:"sync"`
	Analysis  Analysis  `yaml:"analysis"`
	Cache     Cache     `yaml:"cache"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Postgres holds PostgreSQL connection configuration. An empty DSN selects
// the in-memory store (dev mode).
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// NATS holds event publishing configuration. An empty URL disables publishing.
type NATS struct {
	URL string `yaml:"url"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Sync holds repository synchronization configuration.
type Sync struct {
	Interval      time.Duration `yaml:"interval"`       // scheduled pass period
	OpTimeout     time.Duration `yaml:"op_timeout"`     // per git operation
	MaxConcurrent int           `yaml:"max_concurrent"` // git pool size
	ReposDir      string        `yaml:"repos_dir"`      // working-tree clones
	KeysDir       string        `yaml:"keys_dir"`       // credential vault root
}

// Analysis holds project analysis configuration.
type Analysis struct {
	FileWorkers     int   `yaml:"file_workers"`     // per-repo parse parallelism
	MaxFileSize     int64 `yaml:"max_file_size"`    // bytes; larger files are skipped
	MaxDependencies int   `yaml:"max_dependencies"` // cap per project
}

// Cache holds metadata read cache configuration.
type Cache struct {
	MaxSizeMB int64         `yaml:"max_size_mb"`
	TTL       time.Duration `yaml:"ttl"`
}

// Telemetry holds OpenTelemetry export configuration. An empty endpoint
// disables export.
type Telemetry struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		Postgres: Postgres{
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "repolens-core",
		},
		Sync: Sync{
			Interval:      5 * time.Minute,
			OpTimeout:     2 * time.Minute,
			MaxConcurrent: 4,
			ReposDir:      "repositories",
			KeysDir:       "credentials",
		},
		Analysis: Analysis{
			FileWorkers:     4,
			MaxFileSize:     1 << 20,
			MaxDependencies: 50,
		},
		Cache: Cache{
			MaxSizeMB: 64,
			TTL:       time.Hour,
		},
	}
}
