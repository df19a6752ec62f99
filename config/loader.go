package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/linebridge/workerlink/logger"
)

// envPrefix scopes which environment variables override configuration.
const envPrefix = "WORKERLINK_"

// LoaderOption customizes Load.
type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	configFile string
	envFile    string
}

// WithConfigFile sets an explicit YAML config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lo *loaderOptions) { lo.configFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lo *loaderOptions) { lo.envFile = path }
}

// Load builds a Config from YAML, an optional .env file, and WORKERLINK_*
// environment variables, in increasing precedence. The result has defaults
// applied and is validated.
func Load(opts ...LoaderOption) (*Config, error) {
	var lo loaderOptions
	for _, opt := range opts {
		opt(&lo)
	}

	if lo.configFile == "" {
		lo.configFile = findFile("workerlink.yml", "config.yml")
	}
	if lo.envFile == "" {
		lo.envFile = findFile(".env.workerlink", ".env")
	}

	v := viper.New()

	if lo.configFile != "" {
		v.SetConfigFile(lo.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", lo.configFile, err)
		}
	}

	if lo.envFile != "" {
		if err := godotenv.Load(lo.envFile); err != nil {
			logger.Warn("failed to load env file", logger.Fields("path", lo.envFile, "error", err.Error()))
		}
	}
	bindEnvOverrides(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findFile returns the first existing candidate, searching the working
// directory and one level up.
func findFile(names ...string) string {
	for _, name := range names {
		for _, dir := range []string{".", ".."} {
			path := dir + "/" + name
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindEnvOverrides maps WORKERLINK_* variables onto viper keys. Underscores
// are ambiguous between nesting and multi-word leaf names, so every split
// variant is set; the config struct decides which one binds.
func bindEnvOverrides(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], envPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(pair[0], envPrefix))
		for _, variant := range keyVariants(key) {
			v.Set(variant, pair[1])
		}
	}
}

// keyVariants generates the possible nested forms of an underscore key.
// "worker_min_runtime_major" yields "worker.min_runtime_major",
// "worker.min.runtime.major", and the other progressive splits.
func keyVariants(key string) []string {
	parts := strings.Split(key, "_")
	if len(parts) <= 1 {
		return []string{key}
	}

	variants := []string{strings.ReplaceAll(key, "_", ".")}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}
	return variants
}
