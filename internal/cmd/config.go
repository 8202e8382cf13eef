package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration. Environment variables override the
// file for anything secret or deployment-specific.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	NATS struct {
		URL                 string `yaml:"url"`
		StreamName          string `yaml:"stream_name"`
		ConsumerName        string `yaml:"consumer_name"`
		SubjectFilter       string `yaml:"subject_filter"`
		IntentSubjectPrefix string `yaml:"intent_subject_prefix"`
	} `yaml:"nats"`

	Commerce struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"commerce"`

	Payments struct {
		BaseURL    string `yaml:"base_url"`
		SuccessURL string `yaml:"success_url"`
	} `yaml:"payments"`

	Media struct {
		Endpoint      string `yaml:"endpoint"`
		Bucket        string `yaml:"bucket"`
		PublicBaseURL string `yaml:"public_base_url"`
	} `yaml:"media"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&config)
	return &config, nil
}

func applyEnvOverrides(config *Config) {
	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.NATS.URL = getEnv("NATS_URL", config.NATS.URL)
	config.Commerce.BaseURL = getEnv("COMMERCE_API_URL", config.Commerce.BaseURL)
	config.Payments.BaseURL = getEnv("PAYMENTS_API_URL", config.Payments.BaseURL)
	config.Media.Endpoint = getEnv("CLOUDFLARE_R2_ENDPOINT", config.Media.Endpoint)
	config.Media.Bucket = getEnv("CLOUDFLARE_R2_BUCKET", config.Media.Bucket)
}
