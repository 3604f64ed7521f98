package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the deepwander backend.
type Config struct {
	General  GeneralConfig  `mapstructure:"general"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	TTS      TTSConfig      `mapstructure:"tts"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug     bool   `mapstructure:"debug"`
	LogLevel  string `mapstructure:"log_level"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Listen    string `mapstructure:"listen"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// StorageConfig groups the backing stores.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig describes the relational store used for users, chats and reports.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a postgres connection string from the configured fields.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (storage.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// RedisConfig describes the redis instance backing workflow thread checkpoints.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Addr returns the host:port pair for the redis client.
func (r RedisConfig) Addr() string {
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%s:%s", r.Host, port)
}

// LLMConfig contains the model provider configuration used by the agent graph.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// WorkflowConfig bounds the agent workflow loop.
type WorkflowConfig struct {
	MaxPlanIterations int `mapstructure:"max_plan_iterations"`
	MaxStepNum        int `mapstructure:"max_step_num"`
}

// TTSConfig carries Volcengine text-to-speech credentials. AppID and
// AccessToken are required by the /api/tts endpoint; when unset the endpoint
// rejects requests with a 400 before any side effect.
type TTSConfig struct {
	AppID       string `mapstructure:"app_id"`
	AccessToken string `mapstructure:"access_token"`
	Cluster     string `mapstructure:"cluster"`
	VoiceType   string `mapstructure:"voice_type"`
}

// LoadConfig reads configuration from the given file path, or searches the
// usual locations when path is empty. Environment variables with the
// DEEPWANDER_ prefix override file values (e.g. DEEPWANDER_SERVER_LISTEN).
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("server.listen", ":8000")
	viper.SetDefault("storage.redis.db", 0)
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.timeout", time.Minute)
	viper.SetDefault("workflow.max_plan_iterations", 1)
	viper.SetDefault("workflow.max_step_num", 3)
	viper.SetDefault("tts.cluster", "volcano_tts")
	viper.SetDefault("tts.voice_type", "BV700_V2_streaming")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("DEEPWANDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file is optional; env vars and defaults may be enough.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return &config
}

// JWTSecret resolves the shared signing secret. Preference order:
// server.jwt_secret, general.jwt_secret.
func (c *Config) JWTSecret() ([]byte, error) {
	if c.Server.JWTSecret != "" {
		return []byte(c.Server.JWTSecret), nil
	}
	if c.General.JWTSecret != "" {
		return []byte(c.General.JWTSecret), nil
	}
	return nil, fmt.Errorf("jwt secret not configured (server.jwt_secret or general.jwt_secret)")
}
