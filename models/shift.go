package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shift is the local cache of a remote cash-drawer session. The remote side
// owns the record; the cache lets order entry be gated while offline.
type Shift struct {
	ID          uint                `gorm:"primaryKey;autoIncrement:false" json:"id"`
	UserID      uint                `gorm:"not null;index" json:"user_id"`
	StartTime   time.Time           `gorm:"not null" json:"start_time"`
	EndTime     *time.Time          `json:"end_time,omitempty"`
	OpeningCash decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"opening_cash"`
	ClosingCash decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"closing_cash"`
	Notes       string              `gorm:"type:text" json:"notes,omitempty"`
	IsActive    bool                `gorm:"not null;index" json:"is_active"`
	UpdatedAt   time.Time           `json:"-"`
}

// ShiftSummary is the cash reconciliation of a shift.
type ShiftSummary struct {
	ShiftID      uint                `json:"shift_id"`
	OpeningCash  decimal.Decimal     `json:"opening_cash"`
	CashSales    decimal.Decimal     `json:"cash_sales"`
	MomoSales    decimal.Decimal     `json:"momo_sales"`
	ExpectedCash decimal.Decimal     `json:"expected_cash"`
	ClosingCash  decimal.NullDecimal `json:"closing_cash"`
	Variance     decimal.NullDecimal `json:"variance"`
	OrderCount   int                 `json:"order_count"`
	VoidCount    int                 `json:"void_count"`
}
