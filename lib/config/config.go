// Package config loads driver settings from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Resource   string         `yaml:"resource"`
	Terminator string         `yaml:"terminator"`
	Serial     SerialConfig   `yaml:"serial"`
	Prologix   PrologixConfig `yaml:"prologix"`
	Log        LogConfig      `yaml:"log"`
	Metrics    MetricsConfig  `yaml:"metrics"`
}

type SerialConfig struct {
	Baud        int           `yaml:"baud"`
	Driver      string        `yaml:"driver"` // bugst or tarm
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// PrologixConfig is used for GPIB resources only.
type PrologixConfig struct {
	Port       string        `yaml:"port"`
	AR488      bool          `yaml:"ar488"`
	Clear      bool          `yaml:"clear"`
	WriteDelay time.Duration `yaml:"write_delay"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Commands bool   `yaml:"commands"` // trace every command
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// Default returns the settings used for anything a file leaves out.
func Default() *Config {
	return &Config{
		Resource:   "ASRL/dev/ttyACM0::INSTR",
		Terminator: "\n",
		Serial: SerialConfig{
			Baud:        115200,
			Driver:      "bugst",
			ReadTimeout: 5 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
