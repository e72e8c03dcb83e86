package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mumu-bot/teamdraft/go/internal/draft"
)

type Config struct {
	Draft draft.Config `yaml:"draft"`

	Servants struct {
		// Path to the servant pool file. Empty means the built-in roster.
		Pool string `yaml:"pool"`
	} `yaml:"servants"`

	NATS struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"nats"`

	Database struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"database"`

	Balance struct {
		Algorithm string            `yaml:"algorithm"`
		Ratings   map[int64]float64 `yaml:"ratings"`
		Default   float64           `yaml:"default_rating"`
	} `yaml:"balance"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	var config Config
	// Sensible defaults when no file is present.
	config.Draft.VotingTimeLimit = 120 * time.Second
	config.Draft.SelectionTimeLimit = 90 * time.Second
	config.Draft.ReselectionTimeLimit = 90 * time.Second
	config.NATS.Enabled = true
	config.Balance.Default = 1000

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &config, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &config, nil
}
