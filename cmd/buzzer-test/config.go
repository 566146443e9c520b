package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Backend string `yaml:"backend"` // gpio or pwm
	Mode    string `yaml:"mode"`    // beep or melody

	// gpio backend: periph pin name, e.g. GPIO13
	Pin string `yaml:"pin"`

	// pwm backend
	PWMChip    string `yaml:"pwm_chip"`
	PWMChannel int    `yaml:"pwm_channel"`

	// beep mode
	Frequency float64       `yaml:"frequency"`
	Duration  time.Duration `yaml:"duration"`
	DutyCycle float64       `yaml:"duty_cycle"`
	Gap       time.Duration `yaml:"gap"`
}

func loadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Backend == "" {
		cfg.Backend = "gpio"
	}
	if cfg.Mode == "" {
		cfg.Mode = "beep"
	}
	if cfg.PWMChip == "" {
		cfg.PWMChip = "pwmchip0"
	}
	if cfg.Frequency == 0 {
		cfg.Frequency = 2068
	}
	if cfg.Duration == 0 {
		cfg.Duration = 150 * time.Millisecond
	}
	if cfg.DutyCycle == 0 {
		cfg.DutyCycle = 0.5
	}
	if cfg.Gap == 0 {
		cfg.Gap = 500 * time.Millisecond
	}

	if cfg.Backend != "gpio" && cfg.Backend != "pwm" {
		return Config{}, errors.Errorf("backend must be gpio or pwm, got %q", cfg.Backend)
	}
	if cfg.Mode != "beep" && cfg.Mode != "melody" {
		return Config{}, errors.Errorf("mode must be beep or melody, got %q", cfg.Mode)
	}
	if cfg.Backend == "gpio" && cfg.Pin == "" {
		return Config{}, errors.New("pin is required for the gpio backend")
	}
	if cfg.PWMChannel < 0 {
		return Config{}, errors.Errorf("pwm_channel must not be negative, got %d", cfg.PWMChannel)
	}
	if cfg.Frequency < 0 {
		return Config{}, errors.Errorf("frequency must be positive, got %v", cfg.Frequency)
	}
	if cfg.DutyCycle < 0 || cfg.DutyCycle > 1 {
		return Config{}, errors.Errorf("duty_cycle must be in (0, 1], got %v", cfg.DutyCycle)
	}
	if cfg.Duration < 0 {
		return Config{}, errors.Errorf("duration must not be negative, got %v", cfg.Duration)
	}

	return cfg, nil
}
