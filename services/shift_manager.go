package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Operator is the authenticated person at the terminal. Token is the remote
// credential and may be empty for sessions opened offline.
type Operator struct {
	UserID   uint
	Username string
	Role     string
	Token    string
}

func (o Operator) Actor() Actor {
	return Actor{UserID: o.UserID, Role: o.Role}
}

type ShiftRemote interface {
	ActiveShift(ctx context.Context, token string) (*models.Shift, error)
	StartShift(ctx context.Context, token string, openingCash decimal.Decimal) (*models.Shift, error)
	EndShift(ctx context.Context, token string, shiftID uint, closingCash decimal.Decimal, notes string) (*models.Shift, error)
}

// ShiftManager tracks each operator's cash-drawer session. The remote owns
// shifts; a local cache of the active one gates order entry while offline.
type ShiftManager struct {
	db       *gorm.DB
	remote   ShiftRemote
	ledger   *Ledger
	clock    Clock
	notifier Notifier

	mu    sync.Mutex
	locks map[uint]*sync.RWMutex
}

func NewShiftManager(db *gorm.DB, remote ShiftRemote, ledger *Ledger, clock Clock, notifier Notifier) *ShiftManager {
	if clock == nil {
		clock = SystemClock
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ShiftManager{
		db:       db,
		remote:   remote,
		ledger:   ledger,
		clock:    clock,
		notifier: notifier,
		locks:    make(map[uint]*sync.RWMutex),
	}
}

func (m *ShiftManager) lockFor(operatorID uint) *sync.RWMutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[operatorID]
	if !ok {
		l = &sync.RWMutex{}
		m.locks[operatorID] = l
	}
	return l
}

// Active returns the operator's cached active shift, or nil when none is open.
func (m *ShiftManager) Active(ctx context.Context, operatorID uint) (*models.Shift, error) {
	var shift models.Shift
	err := m.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", operatorID, true).
		Order("start_time DESC").
		First(&shift).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

// Refresh reconciles the local cache with the remote. When the remote cannot
// be reached the cached shift is returned unchanged.
func (m *ShiftManager) Refresh(ctx context.Context, op Operator) (*models.Shift, error) {
	if op.Token == "" {
		return m.Active(ctx, op.UserID)
	}
	remote, err := m.remote.ActiveShift(ctx, op.Token)
	if err != nil {
		if errors.Is(err, ErrTransientNetwork) {
			utils.ErrorLogger.WithError(err).Warn("shift refresh failed; using cached shift")
			return m.Active(ctx, op.UserID)
		}
		return nil, err
	}

	lock := m.lockFor(op.UserID)
	lock.Lock()
	defer lock.Unlock()

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.Shift{}).Where("user_id = ? AND is_active = ?", op.UserID, true)
		if remote != nil {
			stale = stale.Where("id <> ?", remote.ID)
		}
		if err := stale.Updates(map[string]interface{}{"is_active": false, "end_time": m.clock.Now().UTC()}).Error; err != nil {
			return err
		}
		if remote == nil {
			return nil
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(remote).Error
	})
	if err != nil {
		return nil, err
	}
	return remote, nil
}

func (m *ShiftManager) StartShift(ctx context.Context, op Operator, openingCash decimal.Decimal) (*models.Shift, error) {
	if openingCash.IsNegative() {
		return nil, validationErrorf("opening cash must not be negative")
	}
	if op.Token == "" {
		return nil, fmt.Errorf("%w: starting a shift requires an online session", ErrUnauthorized)
	}

	shift, err := m.startLocked(ctx, op, openingCash)
	if err != nil {
		return nil, err
	}
	// Publish runs with the operator lock released.
	m.notifier.Publish(EventShiftStarted, shift)
	return shift, nil
}

func (m *ShiftManager) startLocked(ctx context.Context, op Operator, openingCash decimal.Decimal) (*models.Shift, error) {
	lock := m.lockFor(op.UserID)
	lock.Lock()
	defer lock.Unlock()

	current, err := m.Active(ctx, op.UserID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return nil, fmt.Errorf("%w: shift %d is already active", ErrConflict, current.ID)
	}

	shift, err := m.remote.StartShift(ctx, op.Token, openingCash)
	if err != nil {
		var remoteErr *RemoteError
		if errors.As(err, &remoteErr) && remoteErr.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", ErrConflict, remoteErr.Detail)
		}
		return nil, err
	}
	if shift.UserID == 0 {
		shift.UserID = op.UserID
	}
	shift.IsActive = true

	if err := m.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(shift).Error; err != nil {
		return nil, fmt.Errorf("failed to cache shift: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"shift_id": shift.ID,
		"user_id":  op.UserID,
		"opening":  openingCash.StringFixed(2),
	}).Info("shift started")
	return shift, nil
}

// EndShift closes the operator's active shift. It waits for in-flight order
// entry to finish, and no order can be attributed to the shift afterwards.
func (m *ShiftManager) EndShift(ctx context.Context, op Operator, closingCash decimal.NullDecimal, notes string) (*models.ShiftSummary, error) {
	if !closingCash.Valid {
		return nil, validationErrorf("closing cash is required")
	}
	if closingCash.Decimal.IsNegative() {
		return nil, validationErrorf("closing cash must not be negative")
	}
	if op.Token == "" {
		return nil, fmt.Errorf("%w: ending a shift requires an online session", ErrUnauthorized)
	}

	summary, err := m.endLocked(ctx, op, closingCash, notes)
	if err != nil {
		return nil, err
	}
	m.notifier.Publish(EventShiftEnded, summary)
	return summary, nil
}

func (m *ShiftManager) endLocked(ctx context.Context, op Operator, closingCash decimal.NullDecimal, notes string) (*models.ShiftSummary, error) {
	lock := m.lockFor(op.UserID)
	lock.Lock()
	defer lock.Unlock()

	shift, err := m.Active(ctx, op.UserID)
	if err != nil {
		return nil, err
	}
	if shift == nil {
		return nil, policyViolationf("operator %d has no active shift", op.UserID)
	}

	if _, err := m.remote.EndShift(ctx, op.Token, shift.ID, closingCash.Decimal, notes); err != nil {
		return nil, err
	}

	now := m.clock.Now().UTC()
	shift.IsActive = false
	shift.EndTime = &now
	shift.ClosingCash = closingCash
	shift.Notes = notes
	if err := m.db.WithContext(ctx).Save(shift).Error; err != nil {
		return nil, fmt.Errorf("failed to update cached shift: %w", err)
	}

	summary, err := m.Reconcile(ctx, shift)
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"shift_id": shift.ID,
		"user_id":  op.UserID,
		"expected": summary.ExpectedCash.StringFixed(2),
		"closing":  closingCash.Decimal.StringFixed(2),
	}).Info("shift ended")
	return summary, nil
}

// Guard runs fn with the operator's active shift held open. It fails with a
// policy violation when there is no active shift.
func (m *ShiftManager) Guard(ctx context.Context, operatorID uint, fn func(shift *models.Shift) error) error {
	lock := m.lockFor(operatorID)
	lock.RLock()
	defer lock.RUnlock()

	shift, err := m.Active(ctx, operatorID)
	if err != nil {
		return err
	}
	if shift == nil {
		return policyViolationf("operator %d has no active shift", operatorID)
	}
	return fn(shift)
}

// Reconcile computes the cash position of a shift from its ledger orders.
// Void orders do not count toward expected cash.
func (m *ShiftManager) Reconcile(ctx context.Context, shift *models.Shift) (*models.ShiftSummary, error) {
	sales, err := m.ledger.Summarize(ctx, OrderFilter{ShiftID: shift.ID})
	if err != nil {
		return nil, err
	}

	cash := sales.ByPaymentMethod[models.PaymentCash]
	summary := &models.ShiftSummary{
		ShiftID:      shift.ID,
		OpeningCash:  shift.OpeningCash,
		CashSales:    cash,
		MomoSales:    sales.ByPaymentMethod[models.PaymentMomo],
		ExpectedCash: shift.OpeningCash.Add(cash),
		ClosingCash:  shift.ClosingCash,
		OrderCount:   sales.OrderCount,
		VoidCount:    sales.VoidCount,
	}
	if shift.ClosingCash.Valid {
		summary.Variance = decimal.NewNullDecimal(shift.ClosingCash.Decimal.Sub(summary.ExpectedCash))
	}
	return summary, nil
}
