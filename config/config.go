package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// Config is the root configuration of the presence server.
	Config struct {
		Server      ServerConfig     `yaml:"server"`
		Database    DatabaseConfig   `yaml:"database"`
		Redis       RedisConfig      `yaml:"redis"`
		Auth        AuthConfig       `yaml:"auth"`
		Logger      LoggerConfig     `yaml:"logger"`
		WS          WSConfig         `yaml:"ws"`
		Dispatch    DispatchConfig   `yaml:"dispatch"`
		Preference  PreferenceConfig `yaml:"preference"`
		Push        PushConfig       `yaml:"push"`
		SMTP        SMTPConfig       `yaml:"smtp"`
		Metrics     MetricsConfig    `yaml:"metrics"`
		TablePrefix string           `yaml:"table_prefix"`
	}

	ServerConfig struct {
		Addr    string `yaml:"addr"`
		Swagger bool   `yaml:"swagger"`
		// InternalKey guards the dispatch and project update routes.
		InternalKey string `yaml:"internal_key"`
	}

	DatabaseConfig struct {
		Type     string `yaml:"type"` // mysql, postgres, sqlite
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DBName   string `yaml:"dbname"` // file path for sqlite
		SSLMode  string `yaml:"sslmode"`
	}

	RedisConfig struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	}

	// AuthConfig selects how credential tokens are verified.
	// Mode "redis" looks opaque tokens up in redis, "jwt" validates signed tokens.
	AuthConfig struct {
		Mode      string        `yaml:"mode"`
		JWTSecret string        `yaml:"jwt_secret"`
		JWTIssuer string        `yaml:"jwt_issuer"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`
		Color      bool   `yaml:"color"`
		Stacktrace bool   `yaml:"stacktrace"`
		TimeFormat string `yaml:"time_format"`
	}

	WSConfig struct {
		SendBuffer     int           `yaml:"send_buffer"`
		MaxMessageSize int64         `yaml:"max_message_size"`
		AuthTimeout    time.Duration `yaml:"auth_timeout"`
		WriteWait      time.Duration `yaml:"write_wait"`
		PongWait       time.Duration `yaml:"pong_wait"`
	}

	DispatchConfig struct {
		// ChannelTimeout bounds each delivery channel of a single dispatch.
		ChannelTimeout time.Duration `yaml:"channel_timeout"`
		// MaxParallel bounds the number of users dispatched at once by DispatchToMany.
		MaxParallel int `yaml:"max_parallel"`
	}

	PreferenceConfig struct {
		CacheTTL time.Duration `yaml:"cache_ttl"` // 0 disables the redis cache
	}

	PushConfig struct {
		Endpoint string        `yaml:"endpoint"` // empty disables mobile push
		APIKey   string        `yaml:"api_key"`
		Timeout  time.Duration `yaml:"timeout"`
	}

	SMTPConfig struct {
		Host     string `yaml:"host"` // empty disables email
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	}

	MetricsConfig struct {
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}
)

var envPattern = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig(filename string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	data = resolveEnv(data)
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	cfg.SetDefaults()
	return &cfg, nil
}

// SetDefaults fills zero values. It is applied by LoadConfig and is safe to
// call on a hand-built Config.
func (c *Config) SetDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type == "sqlite" && c.Database.DBName == "" {
		c.Database.DBName = "data/presence.db"
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = "redis"
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 7 * 24 * time.Hour
	}
	if c.WS.SendBuffer <= 0 {
		c.WS.SendBuffer = 256
	}
	if c.WS.MaxMessageSize <= 0 {
		c.WS.MaxMessageSize = 4096
	}
	if c.WS.AuthTimeout <= 0 {
		c.WS.AuthTimeout = 10 * time.Second
	}
	if c.WS.WriteWait <= 0 {
		c.WS.WriteWait = 10 * time.Second
	}
	if c.WS.PongWait <= 0 {
		c.WS.PongWait = 60 * time.Second
	}
	if c.Dispatch.ChannelTimeout <= 0 {
		c.Dispatch.ChannelTimeout = 10 * time.Second
	}
	if c.Dispatch.MaxParallel <= 0 {
		c.Dispatch.MaxParallel = 16
	}
	if c.Push.Timeout <= 0 {
		c.Push.Timeout = 5 * time.Second
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "presence"
	}
	if c.TablePrefix == "" {
		c.TablePrefix = "rt_"
	}
}

// DSN returns the database connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	switch c.Type {
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	case "sqlite":
		if dir := filepath.Dir(c.DBName); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		return c.DBName
	default:
		return ""
	}
}

// resolveEnv replaces ${KEY} and ${KEY:default} placeholders in YAML content
func resolveEnv(content []byte) []byte {
	return envPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := envPattern.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string
		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}
		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
