package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port      int `yaml:"port"`
	AdminPort int `yaml:"admin_port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RateLimitConfig struct {
	Backend      string        `yaml:"backend"` // memory | postgres | redis
	PerMinute    int           `yaml:"per_minute"`
	Retention    time.Duration `yaml:"retention"`     // counter-log horizon
	ReapInterval time.Duration `yaml:"reap_interval"` // reaper cadence
}

type GenerationConfig struct {
	DefaultWidth     int    `yaml:"default_width"`
	DefaultHeight    int    `yaml:"default_height"`
	DefaultNumFrames int    `yaml:"default_num_frames"`
	DefaultNumSteps  int    `yaml:"default_num_steps"`
	MaxWidth         int    `yaml:"max_width"`
	MaxHeight        int    `yaml:"max_height"`
	MaxFrames        int    `yaml:"max_frames"`
	MaxSteps         int    `yaml:"max_steps"`
	TempDir          string `yaml:"temp_dir"`
}

type UploadConfig struct {
	Dir           string `yaml:"dir"`
	MaxFileSizeMB int    `yaml:"max_file_size_mb"`
	AllowedTypes  string `yaml:"allowed_types"` // comma-separated MIME list
}

func (u UploadConfig) AllowedTypeList() []string {
	parts := strings.Split(u.AllowedTypes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type WebhookConfig struct {
	Secret      string        `yaml:"-"` // WEBHOOK_SECRET env only
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	BackoffBase time.Duration `yaml:"backoff_base"`
}

type GDriveConfig struct {
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
	RefreshToken string `yaml:"-"`
	FolderID     string `yaml:"folder_id"`
}

type StorageConfig struct {
	Provider      string        `yaml:"provider"` // localfs | gdrive
	LocalRoot     string        `yaml:"local_root"`
	LocalBaseURL  string        `yaml:"local_base_url"` // prefix for signed download links
	SigningSecret string        `yaml:"-"`              // FILES_SIGNING_SECRET env only
	URLTTL        time.Duration `yaml:"url_ttl"`
	GDrive        GDriveConfig  `yaml:"gdrive"`
}

type AuthConfig struct {
	APIKeys     []string      `yaml:"-"` // API_KEYS env only, comma-separated
	AdminSecret string        `yaml:"-"` // ADMIN_JWT_SECRET env only
	AdminTTL    time.Duration `yaml:"admin_ttl"`
}

type InferenceConfig struct {
	Mode    string        `yaml:"mode"` // noop | http
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type WorkerConfig struct {
	Count        int           `yaml:"count"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Generation GenerationConfig `yaml:"generation"`
	Upload     UploadConfig     `yaml:"upload"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Storage    StorageConfig    `yaml:"storage"`
	Auth       AuthConfig       `yaml:"auth"`
	Inference  InferenceConfig  `yaml:"inference"`
	Worker     WorkerConfig     `yaml:"worker"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file, overlays secrets from the environment
// (a .env file is honored when present) and applies defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load() // optional; real env vars win

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev

	cfg.overlayEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) overlayEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("API_KEYS"); v != "" {
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				c.Auth.APIKeys = append(c.Auth.APIKeys, k)
			}
		}
	}
	c.Webhook.Secret = os.Getenv("WEBHOOK_SECRET")
	c.Auth.AdminSecret = os.Getenv("ADMIN_JWT_SECRET")
	c.Storage.SigningSecret = os.Getenv("FILES_SIGNING_SECRET")
	c.Storage.GDrive.ClientID = os.Getenv("GDRIVE_CLIENT_ID")
	c.Storage.GDrive.ClientSecret = os.Getenv("GDRIVE_CLIENT_SECRET")
	c.Storage.GDrive.RefreshToken = os.Getenv("GDRIVE_REFRESH_TOKEN")
	if v := os.Getenv("GDRIVE_FOLDER_ID"); v != "" {
		c.Storage.GDrive.FolderID = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8000
	}
	if c.Server.AdminPort <= 0 {
		c.Server.AdminPort = 9090
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "memory"
	}
	if c.RateLimit.PerMinute <= 0 {
		c.RateLimit.PerMinute = 10
	}
	if c.RateLimit.Retention <= 0 {
		c.RateLimit.Retention = time.Hour
	}
	if c.RateLimit.ReapInterval <= 0 {
		c.RateLimit.ReapInterval = 10 * time.Minute
	}
	if c.Generation.DefaultWidth <= 0 {
		c.Generation.DefaultWidth = 1280
	}
	if c.Generation.DefaultHeight <= 0 {
		c.Generation.DefaultHeight = 720
	}
	if c.Generation.DefaultNumFrames <= 0 {
		c.Generation.DefaultNumFrames = 121
	}
	if c.Generation.DefaultNumSteps <= 0 {
		c.Generation.DefaultNumSteps = 8
	}
	if c.Generation.MaxWidth <= 0 {
		c.Generation.MaxWidth = 1920
	}
	if c.Generation.MaxHeight <= 0 {
		c.Generation.MaxHeight = 1080
	}
	if c.Generation.MaxFrames <= 0 {
		c.Generation.MaxFrames = 257
	}
	if c.Generation.MaxSteps <= 0 {
		c.Generation.MaxSteps = 50
	}
	if c.Generation.TempDir == "" {
		c.Generation.TempDir = os.TempDir()
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = "uploads"
	}
	if c.Upload.MaxFileSizeMB <= 0 {
		c.Upload.MaxFileSizeMB = 10
	}
	if c.Upload.AllowedTypes == "" {
		c.Upload.AllowedTypes = "image/jpeg,image/png,image/webp"
	}
	if c.Webhook.Timeout <= 0 {
		c.Webhook.Timeout = 30 * time.Second
	}
	if c.Webhook.MaxRetries <= 0 {
		c.Webhook.MaxRetries = 3
	}
	if c.Webhook.BackoffBase <= 0 {
		c.Webhook.BackoffBase = 5 * time.Second
	}
	if c.Storage.Provider == "" {
		c.Storage.Provider = "localfs"
	}
	if c.Storage.LocalRoot == "" {
		c.Storage.LocalRoot = "videos"
	}
	if c.Storage.URLTTL <= 0 {
		c.Storage.URLTTL = 24 * time.Hour
	}
	if c.Auth.AdminTTL <= 0 {
		c.Auth.AdminTTL = 30 * time.Minute
	}
	if c.Inference.Mode == "" {
		c.Inference.Mode = "noop"
	}
	if c.Inference.Timeout <= 0 {
		c.Inference.Timeout = 10 * time.Minute
	}
	if c.Worker.Count <= 0 {
		c.Worker.Count = 2
	}
	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = 500 * time.Millisecond
	}
}

func (c *Config) validate() error {
	for name, v := range map[string]int{
		"generation.default_width":  c.Generation.DefaultWidth,
		"generation.default_height": c.Generation.DefaultHeight,
		"generation.max_width":      c.Generation.MaxWidth,
		"generation.max_height":     c.Generation.MaxHeight,
	} {
		if v%8 != 0 {
			return fmt.Errorf("%s must be a multiple of 8, got %d", name, v)
		}
	}
	switch c.RateLimit.Backend {
	case "memory", "postgres", "redis":
	default:
		return fmt.Errorf("unknown rate_limit.backend: %s", c.RateLimit.Backend)
	}
	switch c.Storage.Provider {
	case "localfs", "gdrive":
	default:
		return fmt.Errorf("unknown storage.provider: %s", c.Storage.Provider)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url (or DATABASE_URL) is required")
	}
	return nil
}
