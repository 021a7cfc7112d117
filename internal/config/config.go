package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr       string `yaml:"addr"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		TTL        string `yaml:"ttl"`
		MaxHistory int64  `yaml:"maxHistory"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		SecondsPerQuestion  int    `yaml:"secondsPerQuestion"`
		ConfirmDelay        string `yaml:"confirmDelay"`
		TickInterval        string `yaml:"tickInterval"`
		GenerationTimeout   string `yaml:"generationTimeout"`
		MaxQuestionsStudent int    `yaml:"maxQuestionsStudent"`
		MaxQuestionsTeacher int    `yaml:"maxQuestionsTeacher"`
	} `yaml:"quiz"`
	AI struct {
		Provider      string `yaml:"provider"`
		APIKey        string `yaml:"apiKey"`
		BaseURL       string `yaml:"baseURL"`
		Model         string `yaml:"model"`
		MaxConcurrent int    `yaml:"maxConcurrent"`
	} `yaml:"ai"`
	Explanations struct {
		TTL string `yaml:"ttl"`
	} `yaml:"explanations"`
	Curriculum struct {
		Path string `yaml:"path"`
	} `yaml:"curriculum"`
}

// Load reads YAML config from path. Secrets may come from the environment:
// AI_API_KEY, REDIS_PASSWORD and DATABASE_URL override the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("AI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.URL = v
	}
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// IntOr returns v when positive, otherwise fallback.
func IntOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
