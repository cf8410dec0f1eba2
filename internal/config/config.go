package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Gateway struct {
		URL     string `yaml:"url"`
		Session string `yaml:"session"`
		Group   string `yaml:"group"`
	} `yaml:"gateway"`
	Game struct {
		QuestionDuration string `yaml:"question_duration"`
		Grace            string `yaml:"grace"`
		RevealDelay      string `yaml:"reveal_delay"`
		NextDelay        string `yaml:"next_delay"`
	} `yaml:"game"`
	Questions struct {
		CSVPath string `yaml:"csv_path"`
		SetID   string `yaml:"set_id"`
		TTL     string `yaml:"ttl"`
	} `yaml:"questions"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Leaderboard struct {
		CSVPath string `yaml:"csv_path"`
	} `yaml:"leaderboard"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or
// malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
