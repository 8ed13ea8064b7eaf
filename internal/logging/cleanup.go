package logging

import (
	"log/slog"
	"time"

	"github.com/consentpop/consentpop-backend/internal/models"
	"gorm.io/gorm"
)

// Retention holds the age cutoffs for the daily pruning pass.
type Retention struct {
	SystemLogDays int
	AuditLogDays  int
}

// StartCleanup runs a daily goroutine that prunes aged system logs, aged
// audit logs, and expired sessions. Each delete is an idempotent bulk delete
// by timestamp predicate; failures are logged and never propagate.
func StartCleanup(db *gorm.DB, retention Retention, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				RunCleanup(db, retention)
			case <-done:
				return
			}
		}
	}()
}

// RunCleanup performs one pruning pass. Exposed so an external scheduler can
// invoke it directly.
func RunCleanup(db *gorm.DB, retention Retention) {
	now := time.Now()

	prune := func(name string, result *gorm.DB) {
		if result.Error != nil {
			slog.Error("cleanup failed", "target", name, "error", result.Error)
		} else if result.RowsAffected > 0 {
			slog.Info("cleanup completed", "target", name, "deleted", result.RowsAffected)
		}
	}

	// A non-positive window disables pruning for that target; a zero cutoff
	// would delete every row, including ones written moments ago.
	if retention.SystemLogDays > 0 {
		prune("system_logs", db.Where("timestamp < ?", now.AddDate(0, 0, -retention.SystemLogDays)).Delete(&models.SystemLog{}))
	}
	if retention.AuditLogDays > 0 {
		prune("audit_logs", db.Where("created_at < ?", now.AddDate(0, 0, -retention.AuditLogDays)).Delete(&models.AuditLog{}))
	}
	prune("sessions", db.Where("expires_at IS NOT NULL AND expires_at < ?", now).Delete(&models.Session{}))
}
