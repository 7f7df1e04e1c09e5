package presence_sdk

import (
	"time"

	"github.com/cydxin/presence-sdk/config"
	"github.com/cydxin/presence-sdk/hub"
	"github.com/cydxin/presence-sdk/metrics"
	"github.com/cydxin/presence-sdk/service"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Config struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string
	Logger      *zap.Logger
	Metrics     *metrics.Metrics

	// Verifier resolves credential tokens. When nil, tokens are looked up in
	// redis through service.TokenService.
	Verifier hub.IdentityVerifier
	TokenTTL time.Duration

	// PushSender and Mailer override the built-in HTTP push gateway client and
	// SMTP mailer.
	PushSender service.PushSender
	Mailer     service.Mailer

	Push       config.PushConfig
	SMTP       config.SMTPConfig
	WS         config.WSConfig
	Dispatch   config.DispatchConfig
	Preference config.PreferenceConfig

	// InternalKey is the shared secret of the service-to-service routes
	// (dispatch, project update). Empty leaves them unmounted.
	InternalKey string

	AutoMigrate bool
}

type Option func(*Config)

func WithDB(db *gorm.DB) Option {
	return func(c *Config) {
		c.DB = db
	}
}

func WithRDB(rdb *redis.Client) Option {
	return func(c *Config) {
		c.RDB = rdb
	}
}

func WithTablePrefix(prefix string) Option {
	return func(c *Config) {
		c.TablePrefix = prefix
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

func WithVerifier(v hub.IdentityVerifier) Option {
	return func(c *Config) {
		c.Verifier = v
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.TokenTTL = ttl
	}
}

func WithPushSender(p service.PushSender) Option {
	return func(c *Config) {
		c.PushSender = p
	}
}

func WithMailer(m service.Mailer) Option {
	return func(c *Config) {
		c.Mailer = m
	}
}

func WithWSConfig(cfg config.WSConfig) Option {
	return func(c *Config) {
		c.WS = cfg
	}
}

func WithDispatchConfig(cfg config.DispatchConfig) Option {
	return func(c *Config) {
		c.Dispatch = cfg
	}
}

func WithInternalKey(key string) Option {
	return func(c *Config) {
		c.InternalKey = key
	}
}

// WithAutoMigrate runs AutoMigrate inside NewEngine.
func WithAutoMigrate(on bool) Option {
	return func(c *Config) {
		c.AutoMigrate = on
	}
}

// WithConfig applies every section of a loaded configuration file that the
// engine understands. Stores (DB, RDB) are opened by the caller.
func WithConfig(cfg *config.Config) Option {
	return func(c *Config) {
		if cfg == nil {
			return
		}
		c.TablePrefix = cfg.TablePrefix
		c.TokenTTL = cfg.Auth.TokenTTL
		c.Push = cfg.Push
		c.SMTP = cfg.SMTP
		c.WS = cfg.WS
		c.Dispatch = cfg.Dispatch
		c.Preference = cfg.Preference
		c.InternalKey = cfg.Server.InternalKey
	}
}
