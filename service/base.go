package service

import (
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service carries the shared stores every service is built on.
type Service struct {
	DB     *gorm.DB
	RDB    *redis.Client // optional; nil disables redis-backed features
	Logger *zap.Logger
}

func (s *Service) log(name string) *zap.Logger {
	if s == nil || s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger.Named(name)
}
