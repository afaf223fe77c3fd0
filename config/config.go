package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	CargoTrack CargoTrackConfig `yaml:"cargotrack"`
	Agent      AgentConfig      `yaml:"agent"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	ScanRecordedTopicName string `yaml:"scan_recorded_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type CargoTrackConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	TrackCacheTTLSeconds int `yaml:"track_cache_ttl_seconds"`

	// Rate limit buckets for the public surface. Zeroes fall back to
	// bootstrap defaults (tracking 30/min, auth 5/min, api 10/10s).
	RateLimitTrackingPerMinute int `yaml:"rate_limit_tracking_per_minute"`
	RateLimitAuthPerMinute     int `yaml:"rate_limit_auth_per_minute"`
	RateLimitAPIPerWindow      int `yaml:"rate_limit_api_per_window"`
	RateLimitAPIWindowSeconds  int `yaml:"rate_limit_api_window_seconds"`

	NotifyTimeoutSeconds   int    `yaml:"notify_timeout_seconds"`
	WhatsAppGatewayBaseURL string `yaml:"whatsapp_gateway_base_url"`
	WhatsAppGatewayAPIKey  string `yaml:"whatsapp_gateway_api_key"`
	WhatsAppSender         string `yaml:"whatsapp_sender"`
}

type AgentConfig struct {
	APIBaseURL           string `yaml:"api_base_url"`
	QueuePath            string `yaml:"queue_path"`
	Location             string `yaml:"location"`
	OperatorID           string `yaml:"operator_id"`
	FlushIntervalSeconds int    `yaml:"flush_interval_seconds"`
	ProbeTimeoutSeconds  int    `yaml:"probe_timeout_seconds"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
