package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Validate checks configuration correctness.
// It does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg.Resource == "" {
		return fmt.Errorf("resource is required")
	}
	if len(cfg.Terminator) != 1 {
		return fmt.Errorf("terminator must be a single byte, got %q", cfg.Terminator)
	}
	if cfg.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", cfg.Serial.Baud)
	}
	switch cfg.Serial.Driver {
	case "bugst", "tarm":
	default:
		return fmt.Errorf("serial.driver must be bugst or tarm, got %q", cfg.Serial.Driver)
	}
	if cfg.Serial.ReadTimeout < 0 {
		return fmt.Errorf("serial.read_timeout must not be negative")
	}
	if cfg.Prologix.WriteDelay < 0 {
		return fmt.Errorf("prologix.write_delay must not be negative")
	}
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
