package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/utils"
	"gorm.io/gorm"
)

// Actor is the principal performing a ledger mutation.
type Actor struct {
	UserID uint
	Role   string
}

// OrderFilter selects orders from the ledger. Zero fields do not filter.
type OrderFilter struct {
	From          *time.Time
	To            *time.Time
	Status        models.OrderStatus
	PaymentMethod models.PaymentMethod
	Synced        *bool
	ShiftID       uint
	Limit         int
	OldestFirst   bool
}

// VoidResult reports the outcome of a void. AlreadyVoid is set for a repeated
// or lost concurrent void; it is not an error.
type VoidResult struct {
	Order       *models.Order
	AlreadyVoid bool
}

// SyncMark identifies one pushed order at the revision that was sent.
type SyncMark struct {
	OrderID  uint
	Revision uint
	RemoteID string
}

// Ledger is the durable local store of orders and the catalog snapshot.
// Mutations are serialized through a single writer; reads never observe a
// half-written order because every mutation is one transaction.
type Ledger struct {
	db     *gorm.DB
	policy VoidPolicy
	clock  Clock

	mu      sync.Mutex
	catalog atomic.Pointer[catalogSnapshot]
}

func NewLedger(db *gorm.DB, policy VoidPolicy, clock Clock) (*Ledger, error) {
	if clock == nil {
		clock = SystemClock
	}
	l := &Ledger{db: db, policy: policy, clock: clock}
	if err := l.loadCatalog(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return l, nil
}

// AddOrder appends a new order. It assigns the creation time, a stable sync
// id, status completed and synced=false. A storage failure is returned and no
// order exists afterwards.
func (l *Ledger) AddOrder(ctx context.Context, order *models.Order) error {
	if err := validateNewOrder(order); err != nil {
		return err
	}

	order.ID = 0
	order.Status = models.OrderStatusCompleted
	order.Synced = false
	order.Revision = 1
	order.RemoteID = nil
	if order.SyncID == "" {
		order.SyncID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = l.clock.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.db.WithContext(ctx).Create(order).Error; err != nil {
		utils.ErrorLogger.WithError(err).Error("failed to store order")
		return fmt.Errorf("failed to store order: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"sync_id":  order.SyncID,
		"total":    order.TotalAmount.StringFixed(2),
	}).Info("order recorded")
	return nil
}

func validateNewOrder(order *models.Order) error {
	if order == nil {
		return validationErrorf("order is required")
	}
	if len(order.Items) == 0 {
		return validationErrorf("order must contain at least one item")
	}
	for i, item := range order.Items {
		if item.Quantity <= 0 {
			return validationErrorf("item %d: quantity must be positive", i)
		}
		if item.Price.IsNegative() {
			return validationErrorf("item %d: price must not be negative", i)
		}
	}
	if !order.PaymentMethod.Valid() {
		return validationErrorf("unknown payment method %q", order.PaymentMethod)
	}
	if order.TotalAmount.IsNegative() || order.TotalTax.IsNegative() {
		return validationErrorf("order totals must not be negative")
	}
	return nil
}

func (l *Ledger) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := l.db.WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &order, nil
}

func (l *Ledger) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	q := l.db.WithContext(ctx).Model(&models.Order{})
	if f.From != nil {
		q = q.Where("created_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("created_at < ?", f.To.UTC())
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentMethod != "" {
		q = q.Where("payment_method = ?", f.PaymentMethod)
	}
	if f.Synced != nil {
		q = q.Where("synced = ?", *f.Synced)
	}
	if f.ShiftID != 0 {
		q = q.Where("shift_id = ?", f.ShiftID)
	}
	if f.OldestFirst {
		q = q.Order("created_at ASC, id ASC")
	} else {
		q = q.Order("created_at DESC, id DESC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UnsyncedOrders returns the outbound queue, oldest first.
func (l *Ledger) UnsyncedOrders(ctx context.Context) ([]models.Order, error) {
	unsynced := false
	return l.ListOrders(ctx, OrderFilter{Synced: &unsynced, OldestFirst: true})
}

func (l *Ledger) CountUnsynced(ctx context.Context) (int64, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&models.Order{}).Where("synced = ?", false).Count(&n).Error
	return n, err
}

// SetOrderStatus applies a post-creation status change. Void is the only
// transition allowed, and it is authorized against the clock at commit time.
func (l *Ledger) SetOrderStatus(ctx context.Context, id uint, status models.OrderStatus, actor Actor) (*VoidResult, error) {
	if status != models.OrderStatusVoid {
		return nil, policyViolationf("order status can only change to %q after creation", models.OrderStatusVoid)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var result VoidResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order %d", ErrNotFound, id)
			}
			return err
		}
		if order.IsVoid() {
			result = VoidResult{Order: &order, AlreadyVoid: true}
			return nil
		}

		now := l.clock.Now()
		if !l.policy.CanVoid(&order, actor.Role, now) {
			return policyViolationf("void window for order %d has closed for role %q", id, actor.Role)
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status <> ?", id, models.OrderStatusVoid).
			Updates(map[string]interface{}{
				"status":    models.OrderStatusVoid,
				"synced":    false,
				"revision":  gorm.Expr("revision + 1"),
				"voided_by": actor.UserID,
				"voided_at": now.UTC(),
			})
		if res.Error != nil {
			return res.Error
		}

		if err := tx.First(&order, id).Error; err != nil {
			return err
		}
		result = VoidResult{Order: &order, AlreadyVoid: res.RowsAffected == 0}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyVoid {
		utils.InfoLogger.WithFields(logrus.Fields{
			"order_id": id,
			"user_id":  actor.UserID,
			"role":     actor.Role,
		}).Info("order voided")
	}
	return &result, nil
}

func (l *Ledger) VoidOrder(ctx context.Context, id uint, actor Actor) (*VoidResult, error) {
	return l.SetOrderStatus(ctx, id, models.OrderStatusVoid, actor)
}

// EnsureSyncIDs gives a stable sync id to any order that lacks one, persisting
// it before the order is ever sent so retries reuse the same id.
func (l *Ledger) EnsureSyncIDs(ctx context.Context, orders []models.Order) error {
	var missing []int
	for i := range orders {
		if orders[i].SyncID == "" {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, i := range missing {
			id := uuid.NewString()
			res := tx.Model(&models.Order{}).
				Where("id = ? AND (sync_id IS NULL OR sync_id = '')", orders[i].ID).
				Update("sync_id", id)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Someone else assigned one first; use theirs.
				var stored models.Order
				if err := tx.Select("sync_id").First(&stored, orders[i].ID).Error; err != nil {
					return err
				}
				id = stored.SyncID
			}
			orders[i].SyncID = id
		}
		return nil
	})
}

// MarkSynced flags exactly the pushed revisions as synced. An order mutated
// after it was read for the push keeps synced=false and goes out again.
func (l *Ledger) MarkSynced(ctx context.Context, marks []SyncMark) (int, error) {
	if len(marks) == 0 {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	marked := 0
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marked = 0
		for _, m := range marks {
			res := tx.Model(&models.Order{}).
				Where("id = ? AND revision = ?", m.OrderID, m.Revision).
				Updates(map[string]interface{}{"synced": true, "remote_id": m.RemoteID})
			if res.Error != nil {
				return res.Error
			}
			marked += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// SalesSummary aggregates ledger orders for reporting and shift reconciliation.
type SalesSummary struct {
	OrderCount      int                                      `json:"order_count"`
	VoidCount       int                                      `json:"void_count"`
	UnsyncedCount   int                                      `json:"unsynced_count"`
	GrossSales      decimal.Decimal                          `json:"gross_sales"`
	TotalTax        decimal.Decimal                          `json:"total_tax"`
	NetSales        decimal.Decimal                          `json:"net_sales"`
	VoidedAmount    decimal.Decimal                          `json:"voided_amount"`
	ByPaymentMethod map[models.PaymentMethod]decimal.Decimal `json:"by_payment_method"`
}

// Summarize aggregates the orders selected by f. Void orders count toward
// VoidCount and VoidedAmount only.
func (l *Ledger) Summarize(ctx context.Context, f OrderFilter) (*SalesSummary, error) {
	f.Limit = 0
	orders, err := l.ListOrders(ctx, f)
	if err != nil {
		return nil, err
	}

	s := &SalesSummary{
		ByPaymentMethod: map[models.PaymentMethod]decimal.Decimal{
			models.PaymentCash: decimal.Zero,
			models.PaymentMomo: decimal.Zero,
		},
	}
	for _, o := range orders {
		if !o.Synced {
			s.UnsyncedCount++
		}
		if o.IsVoid() {
			s.VoidCount++
			s.VoidedAmount = s.VoidedAmount.Add(o.TotalAmount)
			continue
		}
		s.OrderCount++
		s.GrossSales = s.GrossSales.Add(o.TotalAmount)
		s.TotalTax = s.TotalTax.Add(o.TotalTax)
		s.ByPaymentMethod[o.PaymentMethod] = s.ByPaymentMethod[o.PaymentMethod].Add(o.TotalAmount)
	}
	s.NetSales = s.GrossSales.Sub(s.TotalTax)
	return s, nil
}
