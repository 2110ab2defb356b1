package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Manager handles the database operations relating to Plans
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for plans
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if db == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	if err := db.AutoMigrate(&Plan{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize plan.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// GetByID returns the plan of the tenant, or nil if there is none
func (m *Manager) GetByID(ctx context.Context, tenantID, id string) (*Plan, error) {
	var p Plan

	result := m.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&p, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get plan by id")
	}

	return &p, nil
}

// List returns the catalog of the tenant ordered by price
func (m *Manager) List(ctx context.Context, tenantID string, activeOnly bool) ([]Plan, error) {
	results := make([]Plan, 0, 4)
	baseQuery := m.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("price asc")
	if activeOnly {
		baseQuery = baseQuery.Where("is_active = ?", true)
	}
	if result := baseQuery.Find(&results); result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot list plans")
	}
	return results, nil
}

// Seed loads plans from a JSON file into the tenant's catalog. Plans are matched
// by name; existing rows get their speed, price, day count and active flag refreshed.
func (m *Manager) Seed(ctx context.Context, tenantID, path string) (int, error) {
	plans, err := loadPlansFromFile(path)
	if err != nil {
		return 0, err
	}
	for i := range plans {
		plans[i].ID = uuid.New().String()
		plans[i].TenantID = tenantID
		if plans[i].DayCount == 0 {
			plans[i].DayCount = 30
		}
	}
	if len(plans) == 0 {
		return 0, nil
	}
	result := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"speed", "price", "day_count", "is_active", "updated_at"}),
	}).Create(&plans)
	if result.Error != nil {
		m.logger.Error("Unable to seed plans",
			zap.String("TenantID", tenantID),
			zap.Error(result.Error),
		)
		return 0, extErrors.Wrap(result.Error, "Cannot seed plans")
	}
	return len(plans), nil
}
