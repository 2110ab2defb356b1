// Package network models the fiber distribution hierarchy used for customer
// wiring: LCP (local convergence point) → optical Splitter → NAP (network
// access point). Customers are patched into numbered NAP ports.
package network

import "time"

// LCP is a local convergence point
type LCP struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	TenantID  string    `json:"tenantId" gorm:"not null;index"`
	Name      string    `json:"name" gorm:"not null"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

// Splitter divides the signal of an LCP
type Splitter struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	TenantID  string    `json:"tenantId" gorm:"not null;index"`
	LCPID     string    `json:"lcpId" gorm:"not null;index"`
	Name      string    `json:"name" gorm:"not null"`
	Ratio     string    `json:"ratio"` // e.g. 1:8
	CreatedAt time.Time `json:"createdAt"`
}

// NAP is the box customers are wired into. Ports are numbered 1..Capacity.
type NAP struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	TenantID   string    `json:"tenantId" gorm:"not null;index"`
	SplitterID string    `json:"splitterId" gorm:"not null;index"`
	Name       string    `json:"name" gorm:"not null"`
	Capacity   int       `json:"capacity" gorm:"not null"`
	CreatedAt  time.Time `json:"createdAt"`
}
