package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/pos-terminal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *RemoteClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewRemoteClient(server.URL+"/", 2*time.Second)
}

func TestRemoteClient_FetchProducts(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		check   func(t *testing.T, products []models.Product)
	}{
		{
			name: "maps snake case fields",
			body: `[
				{"id": 1, "name": "Jollof Rice", "price": 45.0, "category": "Mains", "tax_group": "VAT_standard", "stock_quantity": 12, "low_stock_threshold": 4, "unit": "plate"},
				{"id": 2, "name": "Water", "price": "5.00", "category": "Drinks", "tax_group": "exempt"}
			]`,
			check: func(t *testing.T, products []models.Product) {
				require.Len(t, products, 2)
				assert.Equal(t, models.TaxGroupStandard, products[0].TaxGroup)
				assert.Equal(t, 12, products[0].StockQuantity)
				assert.Equal(t, 4, products[0].LowStockThreshold)
				assert.True(t, products[0].Price.Equal(dec("45")))
				assert.Equal(t, models.TaxGroupExempt, products[1].TaxGroup)
				assert.Equal(t, 10, products[1].LowStockThreshold)
				assert.Equal(t, "item", products[1].Unit)
			},
		},
		{
			name:    "unknown tax group",
			body:    `[{"id": 1, "name": "Jollof Rice", "price": 45.0, "tax_group": "luxury"}]`,
			wantErr: ErrValidation,
		},
		{
			name:    "missing price",
			body:    `[{"id": 1, "name": "Jollof Rice", "tax_group": "standard"}]`,
			wantErr: ErrValidation,
		},
		{
			name:    "object instead of array",
			body:    `{"products": []}`,
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/sync/products", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			})
			products, err := client.FetchProducts(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, products)
		})
	}
}

func TestRemoteClient_PushOrdersBody(t *testing.T) {
	var got []map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sync/orders", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &got))
		w.Write([]byte(`{"status": "success", "synced_count": 1}`))
	})

	order := *sampleOrder(models.PaymentCash)
	order.SyncID = "5b7c1f9e-0000-4000-8000-000000000001"
	order.Status = models.OrderStatusCompleted
	order.CreatedAt = baseTime

	res, err := client.PushOrders(context.Background(), []WireOrder{ToWireOrder(order)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SyncedCount)

	require.Len(t, got, 1)
	assert.Equal(t, order.SyncID, got[0]["id"])
	assert.Equal(t, 54.86, got[0]["total_amount"])
	assert.Equal(t, 9.86, got[0]["total_tax"])
	assert.Equal(t, "cash", got[0]["payment_method"])
	assert.Equal(t, "2025-03-01T12:00:00Z", got[0]["created_at"])
	items := got[0]["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, float64(1), item["id"])
	assert.Equal(t, float64(1), item["quantity"])
}

func TestRemoteClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"detail": "boom"}`, ErrTransientNetwork},
		{"bad gateway", http.StatusBadGateway, ``, ErrTransientNetwork},
		{"unauthorized", http.StatusUnauthorized, `{"detail": "Could not validate credentials"}`, ErrUnauthorized},
		{"not found", http.StatusNotFound, `{"detail": "Order not found"}`, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := client.KitchenOrders(context.Background(), "tok")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("other client error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"detail": "closing_cash is required"}`))
		})
		_, err := client.KitchenOrders(context.Background(), "tok")
		var remoteErr *RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, http.StatusUnprocessableEntity, remoteErr.StatusCode)
		assert.Equal(t, "closing_cash is required", remoteErr.Detail)
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()
		_, err := NewRemoteClient(url, time.Second).FetchProducts(context.Background())
		assert.ErrorIs(t, err, ErrTransientNetwork)
	})
}

func TestRemoteClient_Login(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req wireLoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "s3cret" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail": "Incorrect username or password"}`))
			return
		}
		w.Write([]byte(`{"access_token": "abc", "token_type": "bearer", "user": {"id": 7, "username": "ama", "email": "ama@example.com", "role": "Cashier", "is_active": true}}`))
	})

	session, err := client.Login(context.Background(), "ama", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "abc", session.Token)
	assert.Equal(t, "cashier", session.User.Role)

	_, err = client.Login(context.Background(), "ama", "nope")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRemoteClient_Shifts(t *testing.T) {
	var active string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/shifts/active":
			if active == "" {
				w.Write([]byte(`null`))
				return
			}
			w.Write([]byte(active))
		case "/shifts/start":
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, 150.0, body["opening_cash"])
			active = `{"id": 3, "user_id": 7, "start_time": "2025-03-01T08:30:00.123456", "opening_cash": 150.0, "is_active": true}`
			w.Write([]byte(active))
		case "/shifts/3/end":
			active = ""
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	shift, err := client.ActiveShift(ctx, "tok")
	require.NoError(t, err)
	assert.Nil(t, shift)

	shift, err = client.StartShift(ctx, "tok", dec("150"))
	require.NoError(t, err)
	assert.Equal(t, uint(3), shift.ID)
	assert.Equal(t, time.Date(2025, 3, 1, 8, 30, 0, 123456000, time.UTC), shift.StartTime)

	shift, err = client.ActiveShift(ctx, "tok")
	require.NoError(t, err)
	require.NotNil(t, shift)
	assert.True(t, shift.OpeningCash.Equal(dec("150")))

	ended, err := client.EndShift(ctx, "tok", 3, dec("180"), "")
	require.NoError(t, err)
	assert.Nil(t, ended)
}

func TestRemoteClient_Kitchen(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/kitchen/orders":
			w.Write([]byte(`[
				{"id": "a1", "status": "completed", "kitchen_status": "pending", "created_at": "2025-03-01T12:00:00Z",
				 "items_json": [{"id": 1, "name": "Jollof Rice", "quantity": 2, "price": 45.0}]},
				{"id": "a2", "status": "completed", "kitchen_status": "ready", "created_at": "2025-03-01T11:00:00"}
			]`))
		case "/kitchen/orders/a1/status":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "preparing", body["status"])
			w.Write([]byte(`{"message": "Order status updated", "new_status": "preparing"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	orders, err := client.KitchenOrders(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, models.KitchenPending, orders[0].Status)
	assert.Equal(t, []models.KitchenItem{{Name: "Jollof Rice", Quantity: 2}}, orders[0].Items)
	assert.Empty(t, orders[1].Items)

	update, err := client.UpdateKitchenStatus(ctx, "tok", "a1", models.KitchenPreparing)
	require.NoError(t, err)
	assert.Equal(t, models.KitchenPreparing, update.Status)
	assert.Nil(t, update.View)
}

func TestRemoteClient_KitchenRejectsUnknownStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": "a1", "kitchen_status": "cooking", "created_at": "2025-03-01T12:00:00Z"}]`))
	})
	_, err := client.KitchenOrders(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrValidation)
}
