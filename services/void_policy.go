package services

import (
	"time"

	"github.com/yeremiapane/pos-terminal/models"
)

// DefaultVoidWindow is how long after creation any role may void an order.
const DefaultVoidWindow = 5 * time.Minute

// VoidPolicy decides who may void an order and when. Past the window only an
// elevated role may void, with no upper bound.
type VoidPolicy struct {
	Window        time.Duration
	ElevatedRoles []string
}

func NewVoidPolicy() VoidPolicy {
	return VoidPolicy{Window: DefaultVoidWindow, ElevatedRoles: []string{models.RoleAdmin}}
}

// CanVoid must be evaluated with the current time at the moment of the
// attempt; a cached answer may be stale.
func (p VoidPolicy) CanVoid(order *models.Order, role string, now time.Time) bool {
	if order == nil || order.IsVoid() {
		return false
	}
	window := p.Window
	if window <= 0 {
		window = DefaultVoidWindow
	}
	if now.Sub(order.CreatedAt) < window {
		return true
	}
	return p.isElevated(role)
}

func (p VoidPolicy) isElevated(role string) bool {
	for _, r := range p.ElevatedRoles {
		if r == role {
			return true
		}
	}
	return false
}
