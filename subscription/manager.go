package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fiberline/ispbill/installation"

	"github.com/google/uuid"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Manager is the gorm backed Store
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ Store = (*Manager)(nil)

// NewManager returns a new Manager for subscriptions
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if db == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	if err := db.AutoMigrate(&Subscription{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize subscription.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

func (m *Manager) Create(ctx context.Context, sub *Subscription, now time.Time) error {
	if len(sub.ID) == 0 {
		sub.ID = uuid.New().String()
	}
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		return m.syncInstallation(tx, sub.TenantID, sub.InstallationID, now)
	})
	if err != nil {
		m.logger.Error("Unable to create new subscription in database",
			zap.Error(err),
		)
		return extErrors.Wrap(err, "Cannot create subscription")
	}
	return nil
}

func (m *Manager) Get(ctx context.Context, tenantID, id string) (*Subscription, error) {
	var sub Subscription
	result := m.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", id).
		First(&sub)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get subscription")
	}

	return &sub, nil
}

func (m *Manager) ListByInstallation(ctx context.Context, tenantID, installationID string) ([]Subscription, error) {
	results := make([]Subscription, 0, 4)
	result := m.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("installation_id = ?", installationID).
		Order("end_date desc").
		Find(&results)

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot list subscriptions of installation")
	}
	return results, nil
}

func (m *Manager) Latest(ctx context.Context, tenantID, installationID string) (*Subscription, error) {
	var sub Subscription
	result := m.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("installation_id = ?", installationID).
		Order("end_date desc").
		First(&sub)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get latest subscription")
	}

	return &sub, nil
}

func (m *Manager) ListDue(ctx context.Context, now time.Time) ([]Subscription, error) {
	results := make([]Subscription, 0, 8)
	result := m.db.WithContext(ctx).
		Where("status = ?", StateActive).
		Where("end_date < ?", now).
		Order("end_date asc").
		Find(&results)

	if result.Error != nil {
		return nil, extErrors.Wrap(result.Error, "Cannot list due subscriptions")
	}
	return results, nil
}

func (m *Manager) ListExpiring(ctx context.Context, from, to time.Time) ([]Subscription, error) {
	results := make([]Subscription, 0, 8)
	result := m.db.WithContext(ctx).
		Where("status = ?", StateActive).
		Where("end_date BETWEEN ? AND ?", from, to).
		Order("end_date asc").
		Find(&results)

	if result.Error != nil {
		return nil, extErrors.Wrap(result.Error, "Cannot list expiring subscriptions")
	}
	return results, nil
}

func (m *Manager) ListStarted(ctx context.Context, now time.Time) ([]Subscription, error) {
	results := make([]Subscription, 0, 8)
	result := m.db.WithContext(ctx).
		Select("subscriptions.*").
		Joins("JOIN installations ON installations.id = subscriptions.installation_id AND installations.tenant_id = subscriptions.tenant_id").
		Where("subscriptions.status = ?", StateActive).
		Where("subscriptions.start_date <= ? AND subscriptions.end_date >= ?", now, now).
		Where("installations.status = ?", installation.StatusInactive).
		Order("subscriptions.start_date asc").
		Find(&results)

	if result.Error != nil {
		return nil, extErrors.Wrap(result.Error, "Cannot list started subscriptions")
	}
	return results, nil
}

func (m *Manager) SyncInstallation(ctx context.Context, tenantID, installationID string, now time.Time) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return m.syncInstallation(tx, tenantID, installationID, now)
	}, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return extErrors.Wrap(err, "Cannot sync installation status")
	}
	return nil
}

// Transition will perform a transactional update based on fn. The selected
// Subscription is locked with FOR UPDATE, and when fn reports a change the
// parent installation status is recomputed before commit. Read committed lets
// a transaction that waited on the lock see the row as the winner left it,
// so racing expiries resolve to one change and one no-op.
func (m *Manager) Transition(ctx context.Context, tenantID, id string, now time.Time, fn TransitionFunc) (*Subscription, bool, error) {
	var current Subscription
	var changed bool
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lookupRes := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ?", tenantID).
			First(&current, "id = ?", id)
		if errors.Is(lookupRes.Error, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if lookupRes.Error != nil {
			return lookupRes.Error
		}

		var err error
		changed, err = fn(&current)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if saveRes := tx.Model(&current).Update("status", current.Status); saveRes.Error != nil {
			return saveRes.Error
		}
		return m.syncInstallation(tx, tenantID, current.InstallationID, now)
	}, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		// transaction failed, return nil new state
		return nil, false, err
	}
	return &current, changed, nil
}

// syncInstallation locks the installation row before reading its
// subscriptions, so concurrent writers recompute the status one at a time
// and each sees what the previous one committed.
func (m *Manager) syncInstallation(tx *gorm.DB, tenantID, installationID string, now time.Time) error {
	var insts []installation.Installation
	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", installationID).
		Limit(1).
		Find(&insts).Error; err != nil {
		return err
	}
	if len(insts) == 0 {
		return nil
	}

	var subs []Subscription
	if err := tx.
		Where("tenant_id = ?", tenantID).
		Where("installation_id = ?", installationID).
		Where("status = ?", StateActive).
		Find(&subs).Error; err != nil {
		return err
	}
	status := DeriveInstallationStatus(subs, now)
	return tx.Model(&installation.Installation{}).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", installationID).
		Update("status", status).Error
}
