package services

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/pos-terminal/models"
)

// wireTime accepts RFC 3339 timestamps as well as the naive UTC timestamps the
// remote emits for server-side datetimes.
type wireTime struct {
	time.Time
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t *wireTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return validationErrorf("unrecognized timestamp %q", s)
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// ---- auth ----

type wireLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type wireUser struct {
	ID       *uint  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
}

type wireLoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        *wireUser `json:"user"`
}

// RemoteUser is the operator identity reported by the remote.
type RemoteUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// RemoteSession is the result of a remote login. Token is opaque to the core.
type RemoteSession struct {
	Token string
	User  RemoteUser
}

func (w *wireUser) toRemoteUser() (RemoteUser, error) {
	if w == nil {
		return RemoteUser{}, validationErrorf("user is missing")
	}
	if w.ID == nil || *w.ID == 0 {
		return RemoteUser{}, validationErrorf("user has no id")
	}
	if strings.TrimSpace(w.Username) == "" || strings.TrimSpace(w.Role) == "" {
		return RemoteUser{}, validationErrorf("user %d has no username or role", *w.ID)
	}
	active := true
	if w.IsActive != nil {
		active = *w.IsActive
	}
	return RemoteUser{
		ID:       *w.ID,
		Username: w.Username,
		Email:    w.Email,
		Role:     strings.ToLower(w.Role),
		IsActive: active,
	}, nil
}

func (w *wireLoginResponse) toSession() (*RemoteSession, error) {
	if strings.TrimSpace(w.AccessToken) == "" {
		return nil, validationErrorf("login response has no access_token")
	}
	user, err := w.User.toRemoteUser()
	if err != nil {
		return nil, err
	}
	return &RemoteSession{Token: w.AccessToken, User: user}, nil
}

// ---- shifts ----

type wireShiftStart struct {
	OpeningCash json.Number `json:"opening_cash"`
}

type wireShiftEnd struct {
	ClosingCash json.Number `json:"closing_cash"`
	Notes       *string     `json:"notes,omitempty"`
}

type wireShift struct {
	ID          *uint            `json:"id"`
	UserID      *uint            `json:"user_id"`
	StartTime   *wireTime        `json:"start_time"`
	EndTime     *wireTime        `json:"end_time"`
	OpeningCash *decimal.Decimal `json:"opening_cash"`
	ClosingCash *decimal.Decimal `json:"closing_cash"`
	Notes       *string          `json:"notes"`
	IsActive    *bool            `json:"is_active"`
}

func (w *wireShift) toModel() (*models.Shift, error) {
	if w.ID == nil || *w.ID == 0 {
		return nil, validationErrorf("shift has no id")
	}
	if w.UserID == nil || w.StartTime == nil || w.StartTime.IsZero() || w.OpeningCash == nil || w.IsActive == nil {
		return nil, validationErrorf("shift %d is missing required fields", *w.ID)
	}
	s := &models.Shift{
		ID:          *w.ID,
		UserID:      *w.UserID,
		StartTime:   w.StartTime.Time,
		OpeningCash: *w.OpeningCash,
		IsActive:    *w.IsActive,
	}
	if w.EndTime != nil && !w.EndTime.IsZero() {
		end := w.EndTime.Time
		s.EndTime = &end
	}
	if w.ClosingCash != nil {
		s.ClosingCash = decimal.NewNullDecimal(*w.ClosingCash)
	}
	if w.Notes != nil {
		s.Notes = *w.Notes
	}
	return s, nil
}

// ---- catalog ----

type wireProduct struct {
	ID                *uint            `json:"id"`
	Name              *string          `json:"name"`
	Price             *decimal.Decimal `json:"price"`
	Category          string           `json:"category"`
	TaxGroup          string           `json:"tax_group"`
	StockQuantity     *int             `json:"stock_quantity"`
	LowStockThreshold *int             `json:"low_stock_threshold"`
	Unit              *string          `json:"unit"`
}

func parseTaxGroup(raw string) (models.TaxGroup, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "standard", "vat_standard":
		return models.TaxGroupStandard, true
	case "exempt", "vat_exempt":
		return models.TaxGroupExempt, true
	}
	return "", false
}

func (w *wireProduct) toModel() (models.Product, error) {
	if w.ID == nil || *w.ID == 0 {
		return models.Product{}, validationErrorf("product has no id")
	}
	if w.Name == nil || strings.TrimSpace(*w.Name) == "" {
		return models.Product{}, validationErrorf("product %d has no name", *w.ID)
	}
	if w.Price == nil || w.Price.IsNegative() {
		return models.Product{}, validationErrorf("product %d has a missing or negative price", *w.ID)
	}
	group, ok := parseTaxGroup(w.TaxGroup)
	if !ok {
		return models.Product{}, validationErrorf("product %d has unknown tax_group %q", *w.ID, w.TaxGroup)
	}

	p := models.Product{
		ID:                *w.ID,
		Name:              *w.Name,
		Price:             w.Price.Round(2),
		Category:          w.Category,
		TaxGroup:          group,
		StockQuantity:     0,
		LowStockThreshold: 10,
		Unit:              "item",
	}
	if w.StockQuantity != nil {
		p.StockQuantity = *w.StockQuantity
	}
	if w.LowStockThreshold != nil {
		p.LowStockThreshold = *w.LowStockThreshold
	}
	if w.Unit != nil && *w.Unit != "" {
		p.Unit = *w.Unit
	}
	return p, nil
}

// ---- order push ----

// WireOrderItem carries the product id under both keys the remote reads.
type WireOrderItem struct {
	ID        uint        `json:"id"`
	ProductID uint        `json:"product_id"`
	Name      string      `json:"name"`
	Price     json.Number `json:"price"`
	Quantity  int         `json:"quantity"`
	TaxAmount json.Number `json:"tax_amount"`
}

// WireOrder is one element of the POST /sync/orders batch. ID is the stable
// sync id, identical on every retry.
type WireOrder struct {
	ID              string          `json:"id"`
	Items           []WireOrderItem `json:"items"`
	TotalAmount     json.Number     `json:"total_amount"`
	TotalTax        json.Number     `json:"total_tax"`
	Status          string          `json:"status"`
	PaymentMethod   string          `json:"payment_method"`
	CreatedAt       time.Time       `json:"created_at"`
	AmountTendered  *json.Number    `json:"amount_tendered,omitempty"`
	ChangeDue       *json.Number    `json:"change_due,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
}

// ToWireOrder maps a ledger order to the push shape. The order must already
// have a sync id.
func ToWireOrder(o models.Order) WireOrder {
	items := make([]WireOrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, WireOrderItem{
			ID:        it.ProductID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     money(it.Price),
			Quantity:  it.Quantity,
			TaxAmount: money(it.TaxAmount),
		})
	}
	w := WireOrder{
		ID:              o.SyncID,
		Items:           items,
		TotalAmount:     money(o.TotalAmount),
		TotalTax:        money(o.TotalTax),
		Status:          string(o.Status),
		PaymentMethod:   string(o.PaymentMethod),
		CreatedAt:       o.CreatedAt.UTC(),
		ReferenceNumber: o.ReferenceNumber,
	}
	if o.AmountTendered.Valid {
		n := money(o.AmountTendered.Decimal)
		w.AmountTendered = &n
	}
	if o.ChangeDue.Valid {
		n := money(o.ChangeDue.Decimal)
		w.ChangeDue = &n
	}
	return w
}

type wirePushResponse struct {
	Status      string `json:"status"`
	SyncedCount *int   `json:"synced_count"`
}

// ---- kitchen ----

type wireKitchenItem struct {
	Name     string `json:"name"`
	Quantity *int   `json:"quantity"`
}

type wireKitchenOrder struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	KitchenStatus string            `json:"kitchen_status"`
	ItemsJSON     []wireKitchenItem `json:"items_json"`
	Items         []wireKitchenItem `json:"items"`
	CreatedAt     *wireTime         `json:"created_at"`
	Notes         *string           `json:"notes"`
}

func (w *wireKitchenOrder) toModel() (models.KitchenOrder, error) {
	if strings.TrimSpace(w.ID) == "" {
		return models.KitchenOrder{}, validationErrorf("kitchen order has no id")
	}
	status := models.KitchenStatus(w.KitchenStatus)
	if !status.Valid() {
		return models.KitchenOrder{}, validationErrorf("kitchen order %s has unknown kitchen_status %q", w.ID, w.KitchenStatus)
	}
	if w.CreatedAt == nil || w.CreatedAt.IsZero() {
		return models.KitchenOrder{}, validationErrorf("kitchen order %s has no created_at", w.ID)
	}

	raw := w.ItemsJSON
	if raw == nil {
		raw = w.Items
	}
	items := make([]models.KitchenItem, 0, len(raw))
	for _, it := range raw {
		qty := 1
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		items = append(items, models.KitchenItem{Name: it.Name, Quantity: qty})
	}

	k := models.KitchenOrder{
		ID:        w.ID,
		Items:     items,
		CreatedAt: w.CreatedAt.Time,
		Status:    status,
	}
	if w.Notes != nil {
		k.Notes = *w.Notes
	}
	return k, nil
}

type wireKitchenStatusRequest struct {
	Status models.KitchenStatus `json:"status"`
}

// The remote answers a status change either with the updated view or with a
// short acknowledgement carrying new_status.
type wireKitchenStatusResponse struct {
	wireKitchenOrder
	NewStatus string `json:"new_status"`
}

// KitchenStatusUpdate is the remote's answer to a status change. View is nil
// when the remote only acknowledged the new status.
type KitchenStatusUpdate struct {
	Status models.KitchenStatus
	View   *models.KitchenOrder
}

func (w *wireKitchenStatusResponse) toUpdate() (*KitchenStatusUpdate, error) {
	if w.ID != "" && w.KitchenStatus != "" {
		view, err := w.wireKitchenOrder.toModel()
		if err != nil {
			return nil, err
		}
		return &KitchenStatusUpdate{Status: view.Status, View: &view}, nil
	}
	status := models.KitchenStatus(w.NewStatus)
	if !status.Valid() {
		return nil, validationErrorf("kitchen status response has no recognizable status")
	}
	return &KitchenStatusUpdate{Status: status}, nil
}
