package report

import (
	"context"
	"fmt"
	"time"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager runs the report queries. It only reads tables owned by other managers.
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for reports
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if db == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// Revenue sums what was sold per plan between from (inclusive) and to (exclusive)
func (m *Manager) Revenue(ctx context.Context, tenantID string, from, to time.Time) (*Revenue, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("empty period %s to %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	rows := make([]Row, 0, 8)
	result := m.db.WithContext(ctx).
		Table("subscriptions").
		Select("subscriptions.plan_id AS plan_id, plans.name AS plan_name, COUNT(*) AS subscriptions, "+
			"COALESCE(SUM(subscriptions.amount), 0) AS amount_charged, COALESCE(SUM(subscriptions.days_added), 0) AS days_added").
		Joins("JOIN plans ON plans.id = subscriptions.plan_id AND plans.tenant_id = subscriptions.tenant_id").
		Where("subscriptions.tenant_id = ?", tenantID).
		Where("subscriptions.status <> ?", "CANCELLED").
		Where("subscriptions.created_at >= ? AND subscriptions.created_at < ?", from, to).
		Group("subscriptions.plan_id, plans.name").
		Order("amount_charged desc").
		Scan(&rows)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.String("TenantID", tenantID),
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot compute revenue report")
	}
	return newRevenue(tenantID, from, to, rows), nil
}
