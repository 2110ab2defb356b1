// Package report aggregates sold subscriptions for operators.
package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// Row is the revenue of one plan over the period
type Row struct {
	PlanID        string          `json:"planId"`
	PlanName      string          `json:"planName"`
	Subscriptions int64           `json:"subscriptions"`
	AmountCharged decimal.Decimal `json:"amountCharged"`
	DaysAdded     decimal.Decimal `json:"daysAdded"`
}

// Revenue is the revenue of a tenant over [From, To). Cancelled subscriptions are not counted.
type Revenue struct {
	TenantID      string          `json:"tenantId"`
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	Rows          []Row           `json:"rows"`
	Subscriptions int64           `json:"subscriptions"`
	Total         decimal.Decimal `json:"total"`
}

func newRevenue(tenantID string, from, to time.Time, rows []Row) *Revenue {
	rev := &Revenue{
		TenantID: tenantID,
		From:     from,
		To:       to,
		Rows:     rows,
		Total:    decimal.Zero,
	}
	for _, row := range rows {
		rev.Subscriptions += row.Subscriptions
		rev.Total = rev.Total.Add(row.AmountCharged)
	}
	return rev
}
