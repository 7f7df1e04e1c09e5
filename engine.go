package presence_sdk

import (
	"errors"
	"fmt"

	"github.com/cydxin/presence-sdk/config"
	"github.com/cydxin/presence-sdk/hub"
	"github.com/cydxin/presence-sdk/middleware"
	"github.com/cydxin/presence-sdk/models"
	"github.com/cydxin/presence-sdk/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PresenceEngine wires the connection registry, the notification services and
// the WebSocket server together. Engines are independent except for the table
// prefix, which is fixed per process by the first NewEngine.
type PresenceEngine struct {
	config *Config
	logger *zap.Logger

	Registry            *hub.Registry
	Presence            *hub.Presence
	AuthService         *service.AuthService
	NotificationService *service.NotificationService
	PreferenceService   *service.PreferenceService
	ProjectService      *service.ProjectService
	DeviceService       *service.DeviceService
	Dispatcher          *service.Dispatcher
	WsServer            *WsServer
}

// NewEngine builds an engine from options. A database is required; identity
// verification needs either WithVerifier or a redis client.
func NewEngine(opts ...Option) (*PresenceEngine, error) {
	c := &Config{TablePrefix: "rt_"}
	for _, opt := range opts {
		opt(c)
	}
	if c.DB == nil {
		return nil, errors.New("presence engine: database is required")
	}
	if !isValidTableName(c.TablePrefix) {
		return nil, fmt.Errorf("presence engine: invalid table prefix %q", c.TablePrefix)
	}
	if err := models.SetTablePrefix(c.TablePrefix); err != nil {
		return nil, fmt.Errorf("presence engine: %w", err)
	}
	applyDefaults(c)

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	verifier := c.Verifier
	if verifier == nil {
		if c.RDB == nil {
			return nil, errors.New("presence engine: no identity verifier, configure WithVerifier or WithRDB")
		}
		verifier = service.NewTokenService(c.RDB, c.TokenTTL)
	}

	base := &service.Service{DB: c.DB, RDB: c.RDB, Logger: logger}
	e := &PresenceEngine{config: c, logger: logger.Named("engine")}

	e.AuthService = service.NewAuthService(verifier)
	e.ProjectService = service.NewProjectService(base)
	e.NotificationService = service.NewNotificationService(base)
	e.PreferenceService = service.NewPreferenceService(base, c.Preference.CacheTTL)
	e.DeviceService = service.NewDeviceService(base)

	e.Registry = hub.NewRegistry(e.AuthService, e.ProjectService, hub.WithLogger(logger), hub.WithMetrics(c.Metrics))
	e.Presence = hub.NewPresence(e.Registry)

	var push service.PushSender = c.PushSender
	if push == nil && c.Push.Endpoint != "" {
		push = service.NewHTTPPushSender(e.DeviceService, c.Push)
	}
	var mailer service.Mailer = c.Mailer
	if mailer == nil && c.SMTP.Host != "" {
		m, err := service.NewSMTPMailer(base, c.SMTP)
		if err != nil {
			return nil, fmt.Errorf("presence engine: %w", err)
		}
		mailer = m
	}

	e.Dispatcher = service.NewDispatcher(service.DispatcherDeps{
		Store:       e.NotificationService,
		Preferences: e.PreferenceService,
		Realtime:    e.Registry,
		Push:        push,
		Mailer:      mailer,
		Projects:    e.ProjectService,
		Logger:      logger,
		Metrics:     c.Metrics,
	}, c.Dispatch)

	e.WsServer = NewWsServer(e.Registry, e.AuthService, e.ProjectService, c.WS, logger)

	if c.AutoMigrate {
		if err := e.AutoMigrate(); err != nil {
			return nil, err
		}
	}

	e.logger.Info("engine ready",
		zap.Bool("push", push != nil),
		zap.Bool("email", mailer != nil),
		zap.Bool("redis", c.RDB != nil),
	)
	return e, nil
}

// Close disconnects every WebSocket client.
func (e *PresenceEngine) Close() {
	e.Registry.Close()
}

// GinAuthMiddleware returns the bearer-token middleware backed by the
// engine's verifier.
//
//	engine, _ := presence_sdk.NewEngine(...)
//	r := gin.Default()
//	r.Use(engine.GinAuthMiddleware(nil))
func (e *PresenceEngine) GinAuthMiddleware(opt *middleware.AuthOptions) gin.HandlerFunc {
	return middleware.GinAuthMiddleware(e.AuthService, opt)
}

func applyDefaults(c *Config) {
	d := config.Config{
		WS:         c.WS,
		Dispatch:   c.Dispatch,
		Push:       c.Push,
		SMTP:       c.SMTP,
		Auth:       config.AuthConfig{TokenTTL: c.TokenTTL},
		Preference: c.Preference,
	}
	d.SetDefaults()
	c.WS = d.WS
	c.Dispatch = d.Dispatch
	c.Push = d.Push
	c.SMTP = d.SMTP
	c.TokenTTL = d.Auth.TokenTTL
}

// DB returns the engine's database handle.
func (e *PresenceEngine) DB() *gorm.DB {
	return e.config.DB
}
