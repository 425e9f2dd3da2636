package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	OpenAI struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		ShareTTL string `yaml:"share_ttl"`
	} `yaml:"redis"`
}

// Load reads YAML config from path and applies environment fallbacks. A
// missing file is not an error; the environment alone can configure the
// service.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	applyEnv(&cfg.Server.Port, "PORT")
	applyEnv(&cfg.Auth.JWTSecret, "JWT_SECRET")
	applyEnv(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	applyEnv(&cfg.Postgres.URL, "DATABASE_URL")
	applyEnv(&cfg.Redis.Addr, "REDIS_ADDR")
	return cfg, nil
}

func applyEnv(target *string, key string) {
	if *target == "" {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
}

// TTLDuration parses a duration string or returns the fallback if empty or
// malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
