package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the CLI configuration. Library callers pass option records instead.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	Workers int           `mapstructure:"workers"`
}

// StorageConfig selects and configures the filesystem backend.
type StorageConfig struct {
	Backend           string        `mapstructure:"backend"` // local | minio
	Endpoint          string        `mapstructure:"endpoint"`
	AccessKeyID       string        `mapstructure:"accesskeyid"`
	SecretAccessKey   string        `mapstructure:"secretaccesskey"`
	UseSSL            bool          `mapstructure:"usessl"`
	Region            string        `mapstructure:"region"`
	RequestsPerSecond float64       `mapstructure:"requestspersecond"`
	MaxRetries        int           `mapstructure:"maxretries"`
	RetryDelay        time.Duration `mapstructure:"retrydelay"`
}

// LogConfig mirrors logger.Config.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Backend:    "local",
			MaxRetries: 5,
			RetryDelay: 10 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "WARN",
			Format: "text",
		},
		Workers: 4,
	}
}

// Validate checks backend-specific requirements.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "", "local":
	case "minio", "s3":
		if c.Storage.Endpoint == "" {
			return errors.New("storage.endpoint is required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

// Load loads configuration from a config file and environment variables
// prefix: Environment variable prefix (e.g. "BLOCKS_")
// file: optional config file path; empty means ".env" in the working directory
// target: Pointer to the config struct to load into
func Load(prefix, file string, target interface{}) error {
	v := viper.New()

	// 1. Load from config file (if exists)
	explicit := file != ""
	if !explicit {
		file = ".env"
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil && explicit {
		// The implicit .env is optional; an explicitly named file is not.
		return fmt.Errorf("failed to read config %s: %w", file, err)
	}

	// 2. Load from environment variables
	// BLOCKS_STORAGE_ENDPOINT -> storage.endpoint, BLOCKS_STORAGE_ACCESSKEYID -> storage.accesskeyid
	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key, value := pair[0], pair[1]

		if strings.HasPrefix(key, prefixUpper) {
			propKey := strings.TrimPrefix(key, prefixUpper)
			propKey = strings.ToLower(strings.ReplaceAll(propKey, "_", "."))
			propKey = strings.TrimPrefix(propKey, ".")

			v.Set(propKey, value)
		}
	}

	// 3. Unmarshal into struct
	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}
