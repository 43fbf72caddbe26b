package models

import "time"

type KitchenStatus string

const (
	KitchenPending   KitchenStatus = "pending"
	KitchenPreparing KitchenStatus = "preparing"
	KitchenReady     KitchenStatus = "ready"
	KitchenServed    KitchenStatus = "served"
)

// Rank orders kitchen statuses along the pipeline. Unknown statuses rank -1.
func (s KitchenStatus) Rank() int {
	switch s {
	case KitchenPending:
		return 0
	case KitchenPreparing:
		return 1
	case KitchenReady:
		return 2
	case KitchenServed:
		return 3
	}
	return -1
}

func (s KitchenStatus) Valid() bool {
	return s.Rank() >= 0
}

type KitchenItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// KitchenOrder is the remote order viewed through the fulfillment lens. It is
// never stored locally.
type KitchenOrder struct {
	ID        string        `json:"id"`
	Items     []KitchenItem `json:"items"`
	CreatedAt time.Time     `json:"created_at"`
	Status    KitchenStatus `json:"kitchen_status"`
	Notes     string        `json:"notes,omitempty"`
}
