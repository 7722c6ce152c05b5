package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type App struct {
	Env         string `yaml:"env"`
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
}

func (a *App) PortString() string { return fmt.Sprintf("%d", a.Port) }

type Mongo struct {
	URI string `yaml:"uri"`
	DB  string `yaml:"db"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type NATS struct {
	URL string `yaml:"url"`
}

type Kafka struct {
	Brokers   []string `yaml:"brokers"`
	SyncTopic string   `yaml:"sync_topic"`
	GroupID   string   `yaml:"group_id"`
}

type JWT struct {
	Alg           string `yaml:"alg"`
	PublicKeyPath string `yaml:"public_key_path"`
	HSSecret      string `yaml:"hs_secret"`
}

type S3 struct {
	Region     string `yaml:"region"`
	Bucket     string `yaml:"bucket"`
	PublicRead bool   `yaml:"public_read"`
}

type Sync struct {
	DebounceMS      int `yaml:"debounce_ms"`
	BaseBackoffMS   int `yaml:"base_backoff_ms"`
	MaxAttempts     int `yaml:"max_attempts"`
	ResyncIntervalS int `yaml:"resync_interval_s"`
}

func (s *Sync) Debounce() time.Duration    { return time.Duration(s.DebounceMS) * time.Millisecond }
func (s *Sync) BaseBackoff() time.Duration { return time.Duration(s.BaseBackoffMS) * time.Millisecond }
func (s *Sync) ResyncInterval() time.Duration {
	return time.Duration(s.ResyncIntervalS) * time.Second
}

type Config struct {
	App   App   `yaml:"app"`
	Mongo Mongo `yaml:"mongo"`
	Redis Redis `yaml:"redis"`
	NATS  NATS  `yaml:"nats"`
	Kafka Kafka `yaml:"kafka"`
	JWT   JWT   `yaml:"jwt"`
	S3    S3    `yaml:"s3"`
	Sync  Sync  `yaml:"sync"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat("config.yaml"); err == nil {
		b, _ := os.ReadFile("config.yaml")
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load()
	overrideFromEnv(cfg)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = p
		}
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("MONGO_DB"); v != "" {
		cfg.Mongo.DB = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_SYNC_TOPIC"); v != "" {
		cfg.Kafka.SyncTopic = v
	}
	if v := os.Getenv("JWT_HS_SECRET"); v != "" {
		cfg.JWT.HSSecret = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.S3.Bucket = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.S3.Region = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Port == 0 {
		cfg.App.Port = 8084
	}
	if cfg.App.MetricsPort == 0 {
		cfg.App.MetricsPort = 9094
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "messages"
	}
	if cfg.Kafka.SyncTopic == "" {
		cfg.Kafka.SyncTopic = "conversation.sync"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "sync-service"
	}
	if cfg.JWT.Alg == "" {
		cfg.JWT.Alg = "RS256"
	}
	if cfg.Sync.DebounceMS == 0 {
		cfg.Sync.DebounceMS = 3000
	}
	if cfg.Sync.BaseBackoffMS == 0 {
		cfg.Sync.BaseBackoffMS = 500
	}
	if cfg.Sync.MaxAttempts == 0 {
		cfg.Sync.MaxAttempts = 5
	}
}

func validate(cfg *Config) error {
	if cfg.Mongo.URI == "" {
		return errors.New("config: mongo.uri required")
	}
	if cfg.Mongo.DB == "" {
		return errors.New("config: mongo.db required")
	}
	if cfg.Redis.Addr == "" {
		return errors.New("config: redis.addr required")
	}
	switch cfg.JWT.Alg {
	case "RS256":
		if cfg.JWT.PublicKeyPath == "" {
			return errors.New("config: jwt.public_key_path required for RS256")
		}
	case "HS256":
		if cfg.JWT.HSSecret == "" {
			return errors.New("config: jwt.hs_secret required for HS256")
		}
	default:
		return fmt.Errorf("config: unsupported jwt.alg %q", cfg.JWT.Alg)
	}
	return nil
}
