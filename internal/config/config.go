// Package config loads engine configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is everything the binary needs to run.
type Config struct {
	Port             int
	BundleBaseURL    string
	BundleDir        string
	CachePath        string
	EssentialBundles []string
	LogLevel         string
}

// Load reads configuration from environment variables, applying defaults
// for everything except the bundle base URL, which has no sensible default.
func Load() (*Config, error) {
	baseURL, err := getEnv("bundle base URL", "FOODDEX_BUNDLE_BASE_URL")
	if err != nil {
		return nil, err
	}

	port, err := getIntEnvDefault("API port", "FOODDEX_PORT", 8080)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:          port,
		BundleBaseURL: baseURL,
		BundleDir:     getEnvDefault("FOODDEX_BUNDLE_DIR", "./data/bundles"),
		CachePath:     getEnvDefault("FOODDEX_CACHE_PATH", "./data/cache.db"),
		LogLevel:      getEnvDefault("FOODDEX_LOG_LEVEL", "info"),
	}

	for _, name := range strings.Split(getEnvDefault("FOODDEX_ESSENTIAL_BUNDLES", "core"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			cfg.EssentialBundles = append(cfg.EssentialBundles, name)
		}
	}
	return cfg, nil
}

// getEnv gets a required string value from the environment
func getEnv(name string, varName string) (string, error) {
	value, exists := os.LookupEnv(varName)
	if !exists {
		return "", fmt.Errorf("no environment variable found for the %s ('%s')", name, varName)
	}
	return value, nil
}

// getEnvDefault gets a string value from the environment with a fallback
func getEnvDefault(varName string, fallback string) string {
	if value, exists := os.LookupEnv(varName); exists {
		return value
	}
	return fallback
}

// getIntEnvDefault gets an integer value from the environment with a fallback
func getIntEnvDefault(name string, varName string, fallback int) (int, error) {
	value, exists := os.LookupEnv(varName)
	if !exists {
		return fallback, nil
	}
	asInt, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("environment variable value '%s' invalid for the %s ('%s')", value, name, varName)
	}
	return asInt, nil
}
