package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/utils"
)

// SyncTrigger asks for an outbound push without waiting for it.
type SyncTrigger interface {
	Trigger()
}

type nopTrigger struct{}

func (nopTrigger) Trigger() {}

type OrderLine struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

type PlaceOrderRequest struct {
	Items           []OrderLine          `json:"items" binding:"required"`
	PaymentMethod   models.PaymentMethod `json:"payment_method" binding:"required"`
	AmountTendered  decimal.NullDecimal  `json:"amount_tendered"`
	ReferenceNumber string               `json:"reference_number"`
}

// OrderService is the order entry path. It only touches the ledger; the
// remote is reached later through the sync agent.
type OrderService struct {
	ledger   *Ledger
	shifts   *ShiftManager
	tax      TaxCalculator
	sync     SyncTrigger
	notifier Notifier
}

func NewOrderService(ledger *Ledger, shifts *ShiftManager, tax TaxCalculator, sync SyncTrigger, notifier Notifier) *OrderService {
	if sync == nil {
		sync = nopTrigger{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &OrderService{ledger: ledger, shifts: shifts, tax: tax, sync: sync, notifier: notifier}
}

// PlaceOrder prices the request against the current catalog snapshot, records
// the order under the operator's active shift and queues it for sync.
func (s *OrderService) PlaceOrder(ctx context.Context, op Operator, req PlaceOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, validationErrorf("order must contain at least one item")
	}
	if !req.PaymentMethod.Valid() {
		return nil, validationErrorf("unknown payment method %q", req.PaymentMethod)
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for i, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, validationErrorf("item %d: quantity must be positive", i)
		}
		p, ok := s.ledger.Product(line.ProductID)
		if !ok {
			return nil, validationErrorf("item %d: product %d is not in the catalog", i, line.ProductID)
		}
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  line.Quantity,
			TaxGroup:  p.TaxGroup,
		})
	}

	subtotal, taxable := orderBases(items)
	breakdown, err := s.tax.ComputeBreakdown(taxable)
	if err != nil {
		return nil, err
	}
	totalTax := breakdown.TotalTax.Round(2)
	total := subtotal.Add(breakdown.TotalTax).Round(2)
	allocateLineTax(items, totalTax)

	order := &models.Order{
		OperatorID:      op.UserID,
		Items:           items,
		Subtotal:        subtotal.Round(2),
		TotalAmount:     total,
		TotalTax:        totalTax,
		PaymentMethod:   req.PaymentMethod,
		ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
	}

	switch req.PaymentMethod {
	case models.PaymentCash:
		if !req.AmountTendered.Valid {
			return nil, validationErrorf("cash payment requires the amount tendered")
		}
		if req.AmountTendered.Decimal.LessThan(total) {
			return nil, validationErrorf("amount tendered %s is less than total %s",
				req.AmountTendered.Decimal.StringFixed(2), total.StringFixed(2))
		}
		order.AmountTendered = decimal.NewNullDecimal(req.AmountTendered.Decimal.Round(2))
		order.ChangeDue = decimal.NewNullDecimal(req.AmountTendered.Decimal.Sub(total).Round(2))
	case models.PaymentMomo:
		if order.ReferenceNumber == "" {
			return nil, validationErrorf("mobile money payment requires a reference number")
		}
	}

	err = s.shifts.Guard(ctx, op.UserID, func(shift *models.Shift) error {
		order.ShiftID = shift.ID
		return s.ledger.AddOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(EventOrderCreated, order)
	s.sync.Trigger()
	return order, nil
}

// orderBases returns the order subtotal and the taxable base. Exempt lines are
// left out of the base, unlike the central server's engine, which taxes the
// whole subtotal; carts holding exempt items carry less tax here.
func orderBases(items []models.OrderItem) (subtotal, taxable decimal.Decimal) {
	for _, it := range items {
		line := it.Subtotal()
		subtotal = subtotal.Add(line)
		if it.TaxGroup != models.TaxGroupExempt {
			taxable = taxable.Add(line)
		}
	}
	return subtotal, taxable
}

// allocateLineTax spreads the rounded order tax over the taxable lines in
// proportion to their subtotals. The last taxable line absorbs the rounding
// remainder so the shares sum to totalTax.
func allocateLineTax(items []models.OrderItem, totalTax decimal.Decimal) {
	_, taxable := orderBases(items)
	last := -1
	for i := range items {
		items[i].TaxAmount = decimal.Zero
		if items[i].TaxGroup != models.TaxGroupExempt {
			last = i
		}
	}
	if last < 0 || taxable.IsZero() {
		return
	}

	allocated := decimal.Zero
	for i := range items {
		if items[i].TaxGroup == models.TaxGroupExempt {
			continue
		}
		if i == last {
			items[i].TaxAmount = totalTax.Sub(allocated)
			break
		}
		share := items[i].Subtotal().Mul(totalTax).Div(taxable).Round(2)
		items[i].TaxAmount = share
		allocated = allocated.Add(share)
	}
}

// VoidOrder voids an order on behalf of op and queues the change for sync.
func (s *OrderService) VoidOrder(ctx context.Context, op Operator, id uint) (*VoidResult, error) {
	res, err := s.ledger.VoidOrder(ctx, id, op.Actor())
	if err != nil {
		return nil, err
	}
	if !res.AlreadyVoid {
		s.notifier.Publish(EventOrderVoided, res.Order)
		s.sync.Trigger()
	}
	return res, nil
}

type ReceiptLine struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	TaxGroup  models.TaxGroup `json:"tax_group"`
}

type Receipt struct {
	Reference      string          `json:"reference"`
	Order          *models.Order   `json:"order"`
	Lines          []ReceiptLine   `json:"lines"`
	Breakdown      TaxBreakdown    `json:"breakdown"`
	ExemptAmount   decimal.Decimal `json:"exempt_amount"`
	TotalFormatted string          `json:"total_formatted"`
}

// Receipt rebuilds the display breakdown of a stored order from its captured
// items. The stored totals stay authoritative.
func (s *OrderService) Receipt(ctx context.Context, id uint) (*Receipt, error) {
	order, err := s.ledger.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	subtotal, taxable := orderBases(order.Items)
	breakdown, err := s.tax.ComputeBreakdown(taxable)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, len(order.Items))
	copy(items, order.Items)
	allocateLineTax(items, order.TotalTax)

	lines := make([]ReceiptLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, ReceiptLine{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
			Subtotal:  it.Subtotal().Round(2),
			TaxAmount: it.TaxAmount,
			TaxGroup:  it.TaxGroup,
		})
	}

	return &Receipt{
		Reference:      order.DisplayRef(),
		Order:          order,
		Lines:          lines,
		Breakdown:      breakdown.Rounded(),
		ExemptAmount:   subtotal.Sub(taxable).Round(2),
		TotalFormatted: utils.FormatCurrencyGHS(order.TotalAmount),
	}, nil
}
