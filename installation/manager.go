package installation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fiberline/ispbill/network"
	resp "github.com/fiberline/ispbill/response"
	"github.com/fiberline/ispbill/spec"

	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when the installation or NAP does not exist for the tenant
var ErrNotFound error = resp.NotFoundError("installation not found")

// ErrNAPNotFound is returned when a port assignment names an unknown NAP
var ErrNAPNotFound error = resp.NotFoundError("NAP not found")

// Manager handles the database operations relating to Installation
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for installations
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if err := db.AutoMigrate(&Installation{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize installation.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

func (m *Manager) Create(ctx context.Context, inst *Installation) error {
	if len(inst.TenantID) == 0 {
		return fmt.Errorf("empty TenantID is invalid")
	}
	if len(inst.ID) == 0 {
		inst.ID = uuid.New().String()
	}
	inst.Status = StatusInactive
	result := m.db.WithContext(ctx).Create(inst)
	if result.Error != nil {
		m.logger.Error("Unable to create new installation in database",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot create installation")
	}
	return nil
}

func (m *Manager) GetByID(ctx context.Context, tenantID, id string) (*Installation, error) {
	inst := Installation{}

	result := m.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", id).
		First(&inst)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get installation by id")
	}

	return &inst, nil
}

// AssignPort patches the installation into port of the NAP, or into the lowest
// free port when port is 0. The NAP row is locked so that two concurrent
// assignments cannot take the same port.
func (m *Manager) AssignPort(ctx context.Context, tenantID, id, napID string, port int) (*Installation, error) {
	var updated Installation
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var nap network.NAP
		napRes := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ?", tenantID).
			First(&nap, "id = ?", napID)
		if errors.Is(napRes.Error, gorm.ErrRecordNotFound) {
			return ErrNAPNotFound
		}
		if napRes.Error != nil {
			return napRes.Error
		}

		if err := tx.
			Where("tenant_id = ? AND id = ?", tenantID, id).
			First(&updated).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var occupied []int
		if err := tx.Model(&Installation{}).
			Where("tenant_id = ? AND nap_id = ? AND id <> ? AND port IS NOT NULL", tenantID, napID, id).
			Pluck("port", &occupied).Error; err != nil {
			return err
		}

		if port == 0 {
			next, err := network.NextFreePort(nap, occupied)
			if err != nil {
				return err
			}
			port = next
		} else if err := network.ValidatePort(nap, port, occupied); err != nil {
			return err
		}

		updated.NAPID = &nap.ID
		updated.Port = &port
		return tx.Model(&updated).Select("nap_id", "port").Updates(&updated).Error
	}, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Contact returns who to notify about the installation's subscriptions
func (m *Manager) Contact(ctx context.Context, tenantID, id string) (*spec.Contact, error) {
	var row struct {
		CustomerID string
		Name       string
		Email      string
		Phone      string
	}
	result := m.db.WithContext(ctx).
		Table("installations").
		Select("customers.id AS customer_id, customers.name, customers.email, customers.phone").
		Joins("JOIN customers ON customers.id = installations.customer_id AND customers.tenant_id = installations.tenant_id").
		Where("installations.tenant_id = ? AND installations.id = ?", tenantID, id).
		Limit(1).
		Scan(&row)
	if result.Error != nil {
		return nil, extErrors.Wrap(result.Error, "Cannot get installation contact")
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &spec.Contact{
		CustomerID: row.CustomerID,
		Name:       row.Name,
		Email:      row.Email,
		Phone:      row.Phone,
	}, nil
}
