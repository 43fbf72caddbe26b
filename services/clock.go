package services

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// Notifier receives terminal events for live views. kds.Hub satisfies it.
type Notifier interface {
	Publish(event string, data interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, interface{}) {}

// Event names published by the core.
const (
	EventOrderCreated   = "order_created"
	EventOrderVoided    = "order_voided"
	EventSyncCompleted  = "sync_completed"
	EventCatalogUpdated = "catalog_updated"
	EventShiftStarted   = "shift_started"
	EventShiftEnded     = "shift_ended"
	EventKitchenOrders  = "kitchen_orders"
)
