package seeder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete seeder configuration
type Config struct {
	Version  string         `mapstructure:"version" yaml:"version"`
	Defaults DefaultsConfig `mapstructure:"defaults" yaml:"defaults"`
}

// DefaultsConfig holds default seeder settings
type DefaultsConfig struct {
	Connector  string        `mapstructure:"connector" yaml:"connector"`
	Portfolios int           `mapstructure:"portfolios" yaml:"portfolios"`
	Seed       int64         `mapstructure:"seed" yaml:"seed"`
	Interval   time.Duration `mapstructure:"interval" yaml:"interval"`
	// FaultRate is the share of deliveries sent without a vendor id, so
	// the normalizer rejects them.
	FaultRate float64 `mapstructure:"fault_rate" yaml:"fault_rate"`
	// Redeliver sends every delivery a second time; the repeats should
	// all come back unchanged.
	Redeliver bool `mapstructure:"redeliver" yaml:"redeliver"`
}

// LoadConfig loads configuration with cascade: flags > ./seeder.yaml > ~/.pmap/seeder.yaml > defaults
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("seeder")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SEEDER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pmap"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "1.0")

	v.SetDefault("defaults.connector", "appfolio")
	v.SetDefault("defaults.portfolios", 25)
	v.SetDefault("defaults.seed", 42)
	v.SetDefault("defaults.interval", 0)
	v.SetDefault("defaults.fault_rate", 0.0)
	v.SetDefault("defaults.redeliver", false)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Defaults.Connector == "" {
		return fmt.Errorf("connector is required")
	}
	if c.Defaults.Portfolios < 1 {
		return fmt.Errorf("portfolios must be at least 1, got %d", c.Defaults.Portfolios)
	}
	if c.Defaults.FaultRate < 0 || c.Defaults.FaultRate > 1 {
		return fmt.Errorf("fault_rate must be between 0 and 1, got %v", c.Defaults.FaultRate)
	}
	if c.Defaults.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	return nil
}
