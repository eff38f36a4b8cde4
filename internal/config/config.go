// Package config loads gateway configuration.
//
// DESIGN: Environment variables are the primary source (the gateway is
// deployed with a .env file); an optional YAML file can overlay any field.
// Load() never fails - missing values fall back to defaults.go so the
// gateway always starts, and validation of provider credentials happens
// per-request where a precise error can be returned.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the gateway.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	App        AppConfig        `yaml:"app"`
	Quota      QuotaConfig      `yaml:"quota"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	StaticDir    string        `yaml:"static_dir"`
}

// AppConfig holds display metadata returned by GET /api/config.
type AppConfig struct {
	Name   string `yaml:"name"`
	NameEn string `yaml:"name_en"`
}

// QuotaConfig holds free-tier rate limiting settings.
type QuotaConfig struct {
	DailyFreeLimit int `yaml:"daily_free_limit"`
}

// ProvidersConfig holds per-operation upstream defaults. Caller-supplied
// values always win over these.
type ProvidersConfig struct {
	Chat  ChatProviderConfig  `yaml:"chat"`
	Image ImageProviderConfig `yaml:"image"`
	Agent AgentProviderConfig `yaml:"agent"`
}

// ChatProviderConfig is the default chat upstream.
type ChatProviderConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

// ImageProviderConfig is the default image-generation upstream.
type ImageProviderConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	Size     string `yaml:"size"`
	APIKey   string `yaml:"api_key"`
	// Format optionally pins the request body format ("openai" or
	// "dashscope"). Empty means infer from the endpoint URL.
	Format string `yaml:"format"`
}

// AgentProviderConfig is the DashScope agent application upstream.
// The completion endpoint is constructed server-side; callers never
// control it.
type AgentProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	AppID   string `yaml:"app_id"`
	APIKey  string `yaml:"api_key"`
}

// MonitoringConfig holds telemetry settings.
type MonitoringConfig struct {
	Enabled     bool   `yaml:"enabled"`
	LogPath     string `yaml:"log_path"`
	SQLitePath  string `yaml:"sqlite_path"`
	LogToStdout bool   `yaml:"log_to_stdout"`
}

// Load builds a Config from environment variables and defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         envInt("PORT", DefaultServerPort),
			ReadTimeout:  DefaultServerReadTimeout,
			WriteTimeout: DefaultServerWriteTimeout,
			StaticDir:    envStr("STATIC_DIR", "static"),
		},
		App: AppConfig{
			Name:   envStr("APP_NAME", "多云聊天平台"),
			NameEn: envStr("APP_NAME_EN", "Multi-Cloud Chat"),
		},
		Quota: QuotaConfig{
			DailyFreeLimit: envInt("DAILY_FREE_LIMIT", DefaultDailyFreeLimit),
		},
		Providers: ProvidersConfig{
			Chat: ChatProviderConfig{
				Endpoint: envStr("DEFAULT_CHAT_ENDPOINT", DefaultChatEndpoint),
				Model:    envStr("DEFAULT_CHAT_MODEL", DefaultChatModel),
				APIKey:   os.Getenv("DEFAULT_CHAT_API_KEY"),
			},
			Image: ImageProviderConfig{
				Endpoint: envStr("DEFAULT_IMAGE_ENDPOINT", DefaultImageEndpoint),
				Model:    envStr("DEFAULT_IMAGE_MODEL", DefaultImageModel),
				Size:     envStr("DEFAULT_IMAGE_SIZE", DefaultImageSize),
				APIKey:   os.Getenv("DEFAULT_IMAGE_API_KEY"),
				Format:   os.Getenv("DEFAULT_IMAGE_FORMAT"),
			},
			Agent: AgentProviderConfig{
				BaseURL: envStr("AGENT_BASE_URL", DefaultAgentBaseURL),
				AppID:   os.Getenv("AGENT_APP_ID"),
				APIKey:  os.Getenv("DEFAULT_AGENT_API_KEY"),
			},
		},
		Monitoring: MonitoringConfig{
			Enabled:     envBool("TELEMETRY_ENABLED", false),
			LogPath:     os.Getenv("TELEMETRY_LOG_PATH"),
			SQLitePath:  os.Getenv("TELEMETRY_SQLITE_PATH"),
			LogToStdout: envBool("TELEMETRY_STDOUT", false),
		},
	}
}

// ApplyYAML overlays a YAML document onto the config. Zero-valued YAML
// fields leave the existing values untouched because yaml.v3 only writes
// keys present in the document.
func (c *Config) ApplyYAML(data []byte) error {
	return yaml.Unmarshal(data, c)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
