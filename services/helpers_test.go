package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/pos-terminal/database"
	"github.com/yeremiapane/pos-terminal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: baseTime}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testCatalog() []models.Product {
	return []models.Product{
		{ID: 1, Name: "Jollof Rice", Price: dec("45.00"), Category: "Mains", TaxGroup: models.TaxGroupStandard, StockQuantity: 20, LowStockThreshold: 5, Unit: "plate"},
		{ID: 2, Name: "Bottled Water", Price: dec("5.00"), Category: "Drinks", TaxGroup: models.TaxGroupExempt, StockQuantity: 50, LowStockThreshold: 10, Unit: "bottle"},
		{ID: 3, Name: "Kelewele", Price: dec("15.50"), Category: "Sides", TaxGroup: models.TaxGroupStandard, StockQuantity: 3, LowStockThreshold: 5, Unit: "item"},
	}
}

func newTestLedger(t *testing.T, clock Clock) (*Ledger, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	ledger, err := NewLedger(db, NewVoidPolicy(), clock)
	require.NoError(t, err)
	require.NoError(t, ledger.ReplaceCatalog(context.Background(), testCatalog()))
	return ledger, db
}

// sampleOrder is a priced single-line order ready for AddOrder.
func sampleOrder(method models.PaymentMethod) *models.Order {
	return &models.Order{
		OperatorID: 7,
		Items: []models.OrderItem{
			{ProductID: 1, Name: "Jollof Rice", Price: dec("45.00"), Quantity: 1, TaxGroup: models.TaxGroupStandard, TaxAmount: dec("9.86")},
		},
		Subtotal:        dec("45.00"),
		TotalAmount:     dec("54.86"),
		TotalTax:        dec("9.86"),
		PaymentMethod:   method,
		ReferenceNumber: "",
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Publish(event string, _ interface{}) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type countingTrigger struct {
	mu    sync.Mutex
	count int
}

func (c *countingTrigger) Trigger() {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func (c *countingTrigger) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

type fakeAccount struct {
	password string
	user     RemoteUser
}

// fakeRemote stands in for the central API. It stores pushed orders by id, so
// a retried push of the same order does not create a second record.
type fakeRemote struct {
	mu sync.Mutex

	products    []models.Product
	productsErr error

	received        map[string]WireOrder
	pushCalls       int
	pushFailures    int
	failAfterRecord bool
	pushHook         func()

	shifts      map[string]*models.Shift
	nextShiftID uint
	shiftErr    error
	endCalls    int

	kitchen      map[string]models.KitchenOrder
	kitchenCalls int
	updateCalls  int
	ackOnly      bool
	kitchenErr   error

	accounts map[string]fakeAccount
	loginErr error
	meErr    error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		products:    testCatalog(),
		received:    make(map[string]WireOrder),
		shifts:      make(map[string]*models.Shift),
		nextShiftID: 100,
		kitchen:     make(map[string]models.KitchenOrder),
		accounts:    make(map[string]fakeAccount),
	}
}

func (f *fakeRemote) FetchProducts(ctx context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	return append([]models.Product(nil), f.products...), nil
}

func (f *fakeRemote) PushOrders(ctx context.Context, orders []WireOrder) (*PushResult, error) {
	f.mu.Lock()
	hook := f.pushHook
	f.pushCalls++
	f.mu.Unlock()

	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushFailures > 0 {
		f.pushFailures--
		return nil, fmt.Errorf("%w: connection refused", ErrTransientNetwork)
	}
	for _, o := range orders {
		f.received[o.ID] = o
	}
	if f.failAfterRecord {
		f.failAfterRecord = false
		return nil, fmt.Errorf("%w: response lost", ErrTransientNetwork)
	}
	return &PushResult{SyncedCount: len(orders)}, nil
}

func (f *fakeRemote) Received() map[string]WireOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]WireOrder, len(f.received))
	for k, v := range f.received {
		out[k] = v
	}
	return out
}

func (f *fakeRemote) PushCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushCalls
}

func (f *fakeRemote) ActiveShift(ctx context.Context, token string) (*models.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shiftErr != nil {
		return nil, f.shiftErr
	}
	s, ok := f.shifts[token]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRemote) StartShift(ctx context.Context, token string, openingCash decimal.Decimal) (*models.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shiftErr != nil {
		return nil, f.shiftErr
	}
	if _, ok := f.shifts[token]; ok {
		return nil, &RemoteError{StatusCode: http.StatusBadRequest, Detail: "You already have an active shift"}
	}
	f.nextShiftID++
	s := &models.Shift{ID: f.nextShiftID, UserID: 7, StartTime: baseTime, OpeningCash: openingCash, IsActive: true}
	f.shifts[token] = s
	cp := *s
	return &cp, nil
}

func (f *fakeRemote) EndShift(ctx context.Context, token string, shiftID uint, closingCash decimal.Decimal, notes string) (*models.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endCalls++
	if f.shiftErr != nil {
		return nil, f.shiftErr
	}
	s, ok := f.shifts[token]
	if !ok || s.ID != shiftID {
		return nil, fmt.Errorf("%w: shift %d", ErrNotFound, shiftID)
	}
	delete(f.shifts, token)
	return nil, nil
}

func (f *fakeRemote) KitchenOrders(ctx context.Context, token string) ([]models.KitchenOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kitchenCalls++
	if f.kitchenErr != nil {
		return nil, f.kitchenErr
	}
	out := make([]models.KitchenOrder, 0, len(f.kitchen))
	for _, k := range f.kitchen {
		out = append(out, k)
	}
	return out, nil
}

func (f *fakeRemote) UpdateKitchenStatus(ctx context.Context, token, orderID string, status models.KitchenStatus) (*KitchenStatusUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.kitchenErr != nil {
		return nil, f.kitchenErr
	}
	k, ok := f.kitchen[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	k.Status = status
	f.kitchen[orderID] = k
	if f.ackOnly {
		return &KitchenStatusUpdate{Status: status}, nil
	}
	return &KitchenStatusUpdate{Status: status, View: &k}, nil
}

func (f *fakeRemote) Login(ctx context.Context, username, password string) (*RemoteSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	acct, ok := f.accounts[username]
	if !ok || acct.password != password {
		return nil, fmt.Errorf("%w: Incorrect username or password", ErrUnauthorized)
	}
	return &RemoteSession{Token: "remote-" + username, User: acct.user}, nil
}

func (f *fakeRemote) Me(ctx context.Context, token string) (*RemoteUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meErr != nil {
		return nil, f.meErr
	}
	for name, acct := range f.accounts {
		if "remote-"+name == token {
			u := acct.user
			return &u, nil
		}
	}
	return nil, ErrUnauthorized
}
