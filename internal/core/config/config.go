// Package config provides configuration management for the rules engine.
package config

import (
	"os"
	"runtime"
	"strings"
	"time"
)

// LibraryAPIKeyEnv names the environment variable holding the CDISC Library
// API key. The key is never read from config files.
const LibraryAPIKeyEnv = "CORE_LIBRARY_API_KEY"

// EngineConfig holds pipeline configuration.
type EngineConfig struct {
	PoolSize        int
	CacheURL        string
	DataDir         string
	Standard        string
	StandardVersion string
	WHODrugPath     string
	MedDRAPath      string
	RequestTimeout  time.Duration
	// OperatorOverrides maps a variable name to the operators injected into
	// every condition targeting it.
	OperatorOverrides map[string][]string
}

// ServerConfig holds configuration for the gRPC rule service.
type ServerConfig struct {
	Host string
	Port int
}

// Config is the full service configuration.
type Config struct {
	Engine EngineConfig
	Server ServerConfig
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			PoolSize:       runtime.NumCPU(),
			CacheURL:       "memory://",
			DataDir:        "./data",
			RequestTimeout: 5 * time.Minute,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 50051,
		},
	}
}

// LibraryAPIKey returns the CDISC Library API key from the environment.
func LibraryAPIKey() (string, bool) {
	key := strings.TrimSpace(os.Getenv(LibraryAPIKeyEnv))
	return key, key != ""
}
