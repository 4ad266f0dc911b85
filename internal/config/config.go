package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Listen        string `json:"listen"`
	LogLevel      string `json:"log_level"`
	AppName       string `json:"app_name"`
	MaxConcurrent int    `json:"max_concurrent"`
	Agent         struct {
		BaseURL               string `json:"base_url"`
		ProjectID             string `json:"project_id"`
		Region                string `json:"region"`
		AgentID               string `json:"agent_id"`
		APIKey                string `json:"api_key"`
		RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	} `json:"agent"`
	Memory struct {
		Enabled               bool   `json:"enabled"`
		BaseURL               string `json:"base_url"`
		ProjectID             string `json:"project_id"`
		Region                string `json:"region"`
		StoreID               string `json:"store_id"`
		APIKey                string `json:"api_key"`
		RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
		RetryQueueSize        int    `json:"retry_queue_size"`
		FlushSchedule         string `json:"flush_schedule"`
	} `json:"memory"`
	Slack struct {
		BotToken                  string `json:"bot_token"`
		SigningSecret             string `json:"signing_secret"`
		TimestampToleranceSeconds int    `json:"timestamp_tolerance_seconds"`
	} `json:"slack"`
	Dedup struct {
		TTLSeconds    int    `json:"ttl_seconds"`
		SweepSchedule string `json:"sweep_schedule"`
	} `json:"dedup"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Listen:        ":8080",
		LogLevel:      "info",
		AppName:       "bobs-brain",
		MaxConcurrent: 2,
	}
	cfg.Agent.BaseURL = "https://us-central1-aiplatform.googleapis.com"
	cfg.Agent.Region = "us-central1"
	cfg.Agent.RequestTimeoutSeconds = 60
	cfg.Memory.Enabled = true
	cfg.Memory.BaseURL = "https://us-central1-aiplatform.googleapis.com"
	cfg.Memory.Region = "us-central1"
	cfg.Memory.RequestTimeoutSeconds = 30
	cfg.Memory.RetryQueueSize = 64
	cfg.Memory.FlushSchedule = "@every 5m"
	cfg.Slack.TimestampToleranceSeconds = 300
	cfg.Dedup.TTLSeconds = 3600
	cfg.Dedup.SweepSchedule = "@every 10m"

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if token := os.Getenv("SLACK_BOT_TOKEN"); token != "" {
		cfg.Slack.BotToken = token
	}
	if secret := os.Getenv("SLACK_SIGNING_SECRET"); secret != "" {
		cfg.Slack.SigningSecret = secret
	}
	if key := os.Getenv("AGENT_API_KEY"); key != "" {
		cfg.Agent.APIKey = key
	}
	if baseURL := os.Getenv("AGENT_BASE_URL"); baseURL != "" {
		cfg.Agent.BaseURL = baseURL
	}
	if key := os.Getenv("MEMORY_API_KEY"); key != "" {
		cfg.Memory.APIKey = key
	}
	if baseURL := os.Getenv("MEMORY_BASE_URL"); baseURL != "" {
		cfg.Memory.BaseURL = baseURL
	}

	return cfg, nil
}

func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename default config: %w", err)
	}
	return nil
}
