package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TaxGroup string

const (
	TaxGroupStandard TaxGroup = "standard"
	TaxGroupExempt   TaxGroup = "exempt"
)

// Product is a catalog line cached from the remote catalog. The local copy is
// replaced wholesale on every successful pull and never edited locally.
type Product struct {
	ID                uint            `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name              string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Price             decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Category          string          `gorm:"type:varchar(100);index" json:"category"`
	TaxGroup          TaxGroup        `gorm:"type:varchar(20);not null;default:'standard'" json:"tax_group"`
	StockQuantity     int             `gorm:"not null;default:0" json:"stock_quantity"`
	LowStockThreshold int             `gorm:"not null;default:10" json:"low_stock_threshold"`
	Unit              string          `gorm:"type:varchar(50);not null;default:'item'" json:"unit"`
	CreatedAt         time.Time       `json:"-"`
}

// IsLowStock reports whether the cached stock is at or below the threshold.
func (p Product) IsLowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}

func (g TaxGroup) Valid() bool {
	return g == TaxGroupStandard || g == TaxGroupExempt
}
