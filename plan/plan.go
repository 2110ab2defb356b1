package plan

import (
	"encoding/json"
	"os"
	"time"

	extErrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Plan describes an internet plan sold by a tenant. Plans are reference data:
// billing reads them and never changes them.
type Plan struct {
	ID        string          `json:"id" gorm:"primaryKey"`
	TenantID  string          `json:"tenantId" gorm:"not null;uniqueIndex:idx_plan_tenant_name"`
	Name      string          `json:"name" gorm:"not null;uniqueIndex:idx_plan_tenant_name"`
	Speed     int             `json:"speed"`                               // Mbps
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2)"`     // Price of one reference period
	DayCount  int             `json:"dayCount" gorm:"not null;default:30"` // Reference period in days
	IsActive  bool            `json:"isActive" gorm:"not null"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// loadPlansFromFile will read the plan JSON file used to seed a tenant's catalog.
// ID and TenantID fields are populated by Seed.
func loadPlansFromFile(filename string) ([]Plan, error) {
	jsonBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot open plans JSON file")
	}
	plans := make([]Plan, 0, 1)
	if err := json.Unmarshal(jsonBytes, &plans); err != nil {
		return nil, extErrors.Wrap(err, "Invalid plan JSON file")
	}
	return plans, nil
}
