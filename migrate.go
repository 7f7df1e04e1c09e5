package presence_sdk

import (
	"time"

	"github.com/cydxin/presence-sdk/models"
	"github.com/cydxin/presence-sdk/service"
	"go.uber.org/zap"
)

// AutoMigrate creates or updates the engine's tables under the configured prefix.
func (e *PresenceEngine) AutoMigrate() error {
	start := time.Now()
	if err := service.Migrate(e.config.DB); err != nil {
		e.logger.Error("auto migrate failed", zap.Error(err))
		return err
	}
	e.logger.Info("auto migrate done",
		zap.String("prefix", models.TablePrefix()),
		zap.Int("tables", len(models.All())),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// isValidTableName accepts letters, digits and underscores only, so the
// prefix can never smuggle SQL into a table name.
func isValidTableName(name string) bool {
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	return len(name) > 0 && len(name) < 32
}
