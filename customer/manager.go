package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager handles the database operations relating to Customers
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for customers
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if err := db.AutoMigrate(&Customer{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize customer.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// NewCustomer will create a new customer record for the tenant
func (m *Manager) NewCustomer(ctx context.Context, tenantID, name, email, phone string) (*Customer, error) {
	if len(tenantID) == 0 {
		return nil, fmt.Errorf("empty tenantID is invalid")
	}
	newCustomer := &Customer{
		ID:       uuid.New().String(),
		TenantID: tenantID,
		Name:     name,
		Email:    email,
		Phone:    phone,
	}

	result := m.db.WithContext(ctx).Create(newCustomer)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot create a New Customer")
	}

	return newCustomer, nil
}

// GetByID will try to return the tenant's customer in the database by id
func (m *Manager) GetByID(ctx context.Context, tenantID, id string) (*Customer, error) {
	var cust Customer

	result := m.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&cust, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get customer by id")
	}

	return &cust, nil
}
