package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusVoid      OrderStatus = "void"
)

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentMomo PaymentMethod = "momo"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentMomo
}

// Order is the local ledger record. Rows with Synced=false form the outbound
// sync queue; Revision is bumped on every local mutation so a push only marks
// the revision it actually sent.
type Order struct {
	ID              uint                `gorm:"primaryKey" json:"id"`
	SyncID          string              `gorm:"type:varchar(36);uniqueIndex" json:"sync_id"`
	RemoteID        *string             `gorm:"type:varchar(64)" json:"remote_id,omitempty"`
	ShiftID         uint                `gorm:"index" json:"shift_id"`
	OperatorID      uint                `gorm:"index" json:"operator_id"`
	Items           []OrderItem         `gorm:"serializer:json;type:text;not null" json:"items"`
	Subtotal        decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	TotalAmount     decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	TotalTax        decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"total_tax"`
	Status          OrderStatus         `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentMethod   PaymentMethod       `gorm:"type:varchar(20);not null;index" json:"payment_method"`
	AmountTendered  decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"amount_tendered"`
	ChangeDue       decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"change_due"`
	ReferenceNumber string              `gorm:"type:varchar(100)" json:"reference_number,omitempty"`
	CreatedAt       time.Time           `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Synced          bool                `gorm:"not null;default:false;index" json:"synced"`
	Revision        uint                `gorm:"not null;default:1" json:"revision"`
	VoidedBy        *uint               `json:"voided_by,omitempty"`
	VoidedAt        *time.Time          `json:"voided_at,omitempty"`
}

// DisplayRef is the short reference printed on receipts and history lists.
func (o *Order) DisplayRef() string {
	if o.ReferenceNumber != "" {
		return o.ReferenceNumber
	}
	return fmt.Sprintf("POS-%s-%05d", o.CreatedAt.Format("060102"), o.ID)
}

func (o *Order) IsVoid() bool {
	return o.Status == OrderStatusVoid
}
