package network

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager handles the database operations relating to the distribution hierarchy
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for LCPs, Splitters and NAPs
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if err := db.AutoMigrate(&LCP{}, &Splitter{}, &NAP{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize network.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// GetNAP returns the tenant's NAP, or nil if there is none
func (m *Manager) GetNAP(ctx context.Context, tenantID, id string) (*NAP, error) {
	var nap NAP

	result := m.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&nap, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get NAP by id")
	}

	return &nap, nil
}

// Create persists an LCP, Splitter or NAP, assigning an id when empty
func (m *Manager) Create(ctx context.Context, record interface{}) error {
	switch r := record.(type) {
	case *LCP:
		if len(r.ID) == 0 {
			r.ID = uuid.New().String()
		}
	case *Splitter:
		if len(r.ID) == 0 {
			r.ID = uuid.New().String()
		}
	case *NAP:
		if len(r.ID) == 0 {
			r.ID = uuid.New().String()
		}
	default:
		return fmt.Errorf("unsupported network record %T", record)
	}
	if result := m.db.WithContext(ctx).Create(record); result.Error != nil {
		m.logger.Error("Unable to create network record in database",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot create network record")
	}
	return nil
}

// OccupiedPorts returns the ports of the NAP that installations are patched into
func (m *Manager) OccupiedPorts(ctx context.Context, tenantID, napID string) ([]int, error) {
	var ports []int
	result := m.db.WithContext(ctx).
		Table("installations").
		Where("tenant_id = ? AND nap_id = ? AND port IS NOT NULL", tenantID, napID).
		Order("port asc").
		Pluck("port", &ports)
	if result.Error != nil {
		return nil, extErrors.Wrap(result.Error, "Cannot list occupied ports")
	}
	return ports, nil
}
