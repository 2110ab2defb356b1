package customer

import "time"

// Customer describes a subscriber of an ISP tenant
type Customer struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	TenantID  string    `json:"tenantId" gorm:"not null;index"`
	Name      string    `json:"name" gorm:"not null"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
