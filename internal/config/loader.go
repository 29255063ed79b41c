package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// configName is the base name of the config file searched for.
const configName = "cashcat-gateway"

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for cashcat-gateway.yaml/.yml in standard locations.
// The search requires an explicit YAML extension to avoid matching the binary itself,
// which Viper's built-in SetConfigName would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// Without search paths ReadInConfig returns ConfigFileNotFoundError,
		// which LoadConfig treats as env-only mode.
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	// Environment variable support: CASHCAT_GATEWAY_UPSTREAM_BASE_URL
	viper.SetEnvPrefix("CASHCAT_GATEWAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for the config file.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	return findConfigFileInPaths([]string{
		".",
		filepath.Join(home, "."+configName),
		filepath.Join("/etc", configName),
	})
}

// findConfigFileInPaths searches the given directories for cashcat-gateway.yaml or .yml.
// Returns the full path of the first match, or empty string if none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, configName+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds the scalar config keys for environment variable support.
// AutomaticEnv alone does not reach nested keys during Unmarshal.
// Example: CASHCAT_GATEWAY_SERVER_HTTP_ADDR overrides server.http_addr
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.http_addr")
	_ = viper.BindEnv("server.endpoint_path")
	_ = viper.BindEnv("server.allowed_origins")
	_ = viper.BindEnv("server.tool_timeout")
	_ = viper.BindEnv("server.max_body_bytes")
	_ = viper.BindEnv("server.trust_forwarded_headers")
	_ = viper.BindEnv("server.log_level")

	_ = viper.BindEnv("upstream.base_url")
	_ = viper.BindEnv("upstream.api_prefix")
	_ = viper.BindEnv("upstream.request_timeout")
	_ = viper.BindEnv("upstream.max_response_bytes")

	// auth.api_keys is a list of objects; configure it in the file.
	_ = viper.BindEnv("auth.mode")
	_ = viper.BindEnv("auth.verifier_url")
	_ = viper.BindEnv("auth.verifier_timeout")

	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides,
// defaults and dev defaults, and validates the result.
func LoadConfig() (*Config, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigRaw reads the configuration file and applies defaults,
// but does NOT apply dev defaults or validate.
// Use this when CLI flags may override fields before validation.
func LoadConfigRaw() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No file: environment variables only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
