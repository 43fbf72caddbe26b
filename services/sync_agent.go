package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultSyncInterval   = 30 * time.Second
	DefaultSyncMaxBackoff = 5 * time.Minute
	DefaultPushBatchSize  = 100
)

// flightTimeout bounds one shared push or pull.
const flightTimeout = 2 * time.Minute

// SyncRemote is the part of the remote API the sync agent drives.
type SyncRemote interface {
	FetchProducts(ctx context.Context) ([]models.Product, error)
	PushOrders(ctx context.Context, orders []WireOrder) (*PushResult, error)
}

type SyncConfig struct {
	Interval   time.Duration
	MaxBackoff time.Duration
	BatchSize  int
}

// SyncStatus is a point-in-time view of the agent for the terminal UI.
type SyncStatus struct {
	Running             bool           `json:"running"`
	Pending             int64          `json:"pending"`
	LastPushAt          *time.Time     `json:"last_push_at,omitempty"`
	LastPullAt          *time.Time     `json:"last_pull_at,omitempty"`
	LastError           string         `json:"last_error,omitempty"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	NextCycleIn         string         `json:"next_cycle_in"`
	Attempts            map[string]int `json:"attempts"`
}

// SyncAgent drains the unsynced queue to the remote and pulls the catalog
// down, on a schedule and on demand. Failures never escape the scheduled
// loop; queued orders stay queued until a push succeeds.
type SyncAgent struct {
	ledger     *Ledger
	remote     SyncRemote
	clock      Clock
	notifier   Notifier
	interval   time.Duration
	maxBackoff time.Duration
	batchSize  int

	flights singleflight.Group
	trigger chan struct{}

	mu         sync.Mutex
	failures   int
	lastPushAt time.Time
	lastPullAt time.Time
	lastErr    error
	attempts   map[string]int

	runMu  sync.Mutex
	runCtx context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSyncAgent(ledger *Ledger, remote SyncRemote, cfg SyncConfig, clock Clock, notifier Notifier) *SyncAgent {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSyncInterval
	}
	if cfg.MaxBackoff < cfg.Interval {
		cfg.MaxBackoff = DefaultSyncMaxBackoff
		if cfg.MaxBackoff < cfg.Interval {
			cfg.MaxBackoff = cfg.Interval
		}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultPushBatchSize
	}
	if clock == nil {
		clock = SystemClock
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &SyncAgent{
		ledger:     ledger,
		remote:     remote,
		clock:      clock,
		notifier:   notifier,
		interval:   cfg.Interval,
		maxBackoff: cfg.MaxBackoff,
		batchSize:  cfg.BatchSize,
		trigger:    make(chan struct{}, 1),
		attempts:   make(map[string]int),
	}
}

// Trigger requests a push as soon as possible. It never blocks; requests made
// while one is pending collapse into it.
func (a *SyncAgent) Trigger() {
	select {
	case a.trigger <- struct{}{}:
	default:
	}
}

// PushOrders sends every unsynced order and marks the pushed revisions synced.
// Concurrent callers share one in-flight push.
func (a *SyncAgent) PushOrders(ctx context.Context) (int, error) {
	return a.share(ctx, "push", a.push)
}

// share runs fn once for all concurrent callers of key. The shared run uses a
// context owned by the agent, so one caller giving up does not fail the
// others; each caller stops waiting when its own ctx ends.
func (a *SyncAgent) share(ctx context.Context, key string, fn func(context.Context) (int, error)) (int, error) {
	ch := a.flights.DoChan(key, func() (interface{}, error) {
		flightCtx, cancel := a.flightContext(ctx)
		defer cancel()
		return fn(flightCtx)
	})
	select {
	case res := <-ch:
		n, _ := res.Val.(int)
		return n, res.Err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// flightContext is bounded by the running loop when there is one, and
// otherwise detached from the caller's cancellation.
func (a *SyncAgent) flightContext(ctx context.Context) (context.Context, context.CancelFunc) {
	a.runMu.Lock()
	base := a.runCtx
	a.runMu.Unlock()
	if base == nil {
		base = context.WithoutCancel(ctx)
	}
	return context.WithTimeout(base, flightTimeout)
}

func (a *SyncAgent) push(ctx context.Context) (int, error) {
	orders, err := a.ledger.UnsyncedOrders(ctx)
	if err != nil {
		return 0, err
	}
	if len(orders) == 0 {
		return 0, nil
	}
	if err := a.ledger.EnsureSyncIDs(ctx, orders); err != nil {
		return 0, err
	}

	pushed := 0
	for start := 0; start < len(orders); start += a.batchSize {
		end := start + a.batchSize
		if end > len(orders) {
			end = len(orders)
		}
		n, err := a.pushBatch(ctx, orders[start:end])
		pushed += n
		if err != nil {
			a.setError(err)
			return pushed, err
		}
	}

	a.mu.Lock()
	a.lastPushAt = a.clock.Now()
	a.lastErr = nil
	a.mu.Unlock()

	utils.InfoLogger.WithField("count", pushed).Info("orders synced")
	a.notifier.Publish(EventSyncCompleted, map[string]interface{}{"pushed": pushed})
	return pushed, nil
}

func (a *SyncAgent) pushBatch(ctx context.Context, batch []models.Order) (int, error) {
	wire := make([]WireOrder, 0, len(batch))
	marks := make([]SyncMark, 0, len(batch))
	a.mu.Lock()
	for _, o := range batch {
		wire = append(wire, ToWireOrder(o))
		marks = append(marks, SyncMark{OrderID: o.ID, Revision: o.Revision, RemoteID: o.SyncID})
		a.attempts[o.SyncID]++
	}
	a.mu.Unlock()

	if _, err := a.remote.PushOrders(ctx, wire); err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"batch": len(batch),
		}).WithError(err).Warn("order push failed; orders stay queued")
		return 0, err
	}

	marked, err := a.ledger.MarkSynced(ctx, marks)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	for _, o := range batch {
		delete(a.attempts, o.SyncID)
	}
	a.mu.Unlock()
	return marked, nil
}

// PullCatalog replaces the local catalog with the remote one. A malformed
// catalog leaves the current one in place.
func (a *SyncAgent) PullCatalog(ctx context.Context) (int, error) {
	return a.share(ctx, "pull", a.pull)
}

func (a *SyncAgent) pull(ctx context.Context) (int, error) {
	products, err := a.remote.FetchProducts(ctx)
	if err != nil {
		utils.ErrorLogger.WithError(err).Warn("catalog pull failed")
		a.setError(err)
		return 0, err
	}
	if err := a.ledger.ReplaceCatalog(ctx, products); err != nil {
		utils.ErrorLogger.WithError(err).Error("failed to apply pulled catalog")
		a.setError(err)
		return 0, err
	}

	a.mu.Lock()
	a.lastPullAt = a.clock.Now()
	a.mu.Unlock()

	a.notifier.Publish(EventCatalogUpdated, map[string]interface{}{"products": len(products)})
	return len(products), nil
}

// SyncNow pulls the catalog and pushes orders concurrently. Both halves run to
// completion; the first error is returned.
func (a *SyncAgent) SyncNow(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := a.PullCatalog(ctx)
		return err
	})
	g.Go(func() error {
		_, err := a.PushOrders(ctx)
		return err
	})
	return g.Wait()
}

func (a *SyncAgent) setError(err error) {
	a.mu.Lock()
	a.lastErr = err
	a.mu.Unlock()
}

// cycle is one scheduled run. Its outcome drives the backoff.
func (a *SyncAgent) cycle(ctx context.Context) {
	err := a.SyncNow(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.failures++
		utils.ErrorLogger.WithFields(logrus.Fields{
			"failures": a.failures,
			"retry_in": a.delayLocked().String(),
		}).WithError(err).Warn("sync cycle failed")
		return
	}
	a.failures = 0
}

// delayLocked doubles the interval per consecutive failure, capped at
// maxBackoff.
func (a *SyncAgent) delayLocked() time.Duration {
	d := a.interval
	for i := 0; i < a.failures && d < a.maxBackoff; i++ {
		d *= 2
	}
	if d > a.maxBackoff {
		d = a.maxBackoff
	}
	return d
}

func (a *SyncAgent) nextDelay() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.delayLocked()
}

// Start runs the scheduled loop until ctx is cancelled or Stop is called. The
// first cycle runs immediately. Starting a running agent is a no-op.
func (a *SyncAgent) Start(ctx context.Context) {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.runCtx = ctx
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.loop(ctx, a.done)
	utils.InfoLogger.WithField("interval", a.interval.String()).Info("sync agent started")
}

// Stop cancels the loop and waits for the in-progress cycle to return.
func (a *SyncAgent) Stop() {
	a.runMu.Lock()
	cancel, done := a.cancel, a.done
	a.runCtx, a.cancel, a.done = nil, nil, nil
	a.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	utils.InfoLogger.Info("sync agent stopped")
}

func (a *SyncAgent) Running() bool {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.cancel != nil
}

func (a *SyncAgent) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	a.cycle(ctx)
	timer := time.NewTimer(a.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.trigger:
			if _, err := a.PushOrders(ctx); err != nil && ctx.Err() == nil {
				utils.ErrorLogger.WithError(err).Debug("on-demand push failed")
			}
		case <-timer.C:
			a.cycle(ctx)
			timer.Reset(a.nextDelay())
		}
	}
}

func (a *SyncAgent) Status(ctx context.Context) (SyncStatus, error) {
	pending, err := a.ledger.CountUnsynced(ctx)
	if err != nil {
		return SyncStatus{}, err
	}
	running := a.Running()

	a.mu.Lock()
	defer a.mu.Unlock()
	st := SyncStatus{
		Running:             running,
		Pending:             pending,
		ConsecutiveFailures: a.failures,
		NextCycleIn:         a.delayLocked().String(),
		Attempts:            make(map[string]int, len(a.attempts)),
	}
	for k, v := range a.attempts {
		st.Attempts[k] = v
	}
	if !a.lastPushAt.IsZero() {
		t := a.lastPushAt
		st.LastPushAt = &t
	}
	if !a.lastPullAt.IsZero() {
		t := a.lastPullAt
		st.LastPullAt = &t
	}
	if a.lastErr != nil {
		st.LastError = a.lastErr.Error()
	}
	return st, nil
}
