package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

type OrderController struct {
	Orders *services.OrderService
	Ledger *services.Ledger
}

func NewOrderController(orders *services.OrderService, ledger *services.Ledger) *OrderController {
	return &OrderController{Orders: orders, Ledger: ledger}
}

// parseTimeQuery accepts a date (2006-01-02) or an RFC 3339 timestamp.
func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &t, nil
}

func orderFilterFromQuery(c *gin.Context) (services.OrderFilter, error) {
	var f services.OrderFilter
	var err error
	if f.From, err = parseTimeQuery(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = parseTimeQuery(c, "to"); err != nil {
		return f, err
	}
	f.Status = models.OrderStatus(c.Query("status"))
	f.PaymentMethod = models.PaymentMethod(c.Query("payment_method"))
	if raw := c.Query("synced"); raw != "" {
		synced, err := strconv.ParseBool(raw)
		if err != nil {
			return f, fmt.Errorf("invalid synced: %q", raw)
		}
		f.Synced = &synced
	}
	if raw := c.Query("shift_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return f, fmt.Errorf("invalid shift_id: %q", raw)
		}
		f.ShiftID = uint(id)
	}
	f.Limit = 100
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return f, fmt.Errorf("invalid limit: %q", raw)
		}
		f.Limit = limit
	}
	return f, nil
}

func orderIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("order_id"), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid order id"))
		return 0, false
	}
	return uint(id), true
}

// GetAllOrders -> riwayat order dari ledger lokal
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	f, err := orderFilterFromQuery(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	orders, err := oc.Ledger.ListOrders(c.Request.Context(), f)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// GetOrderByID -> detail 1 order
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := oc.Ledger.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// CreateOrder -> catat order ke ledger lokal; sinkronisasi berjalan di belakang
func (oc *OrderController) CreateOrder(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}

	var req services.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.PlaceOrder(c.Request.Context(), op, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// VoidOrder -> batalkan order sesuai aturan void
func (oc *OrderController) VoidOrder(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	res, err := oc.Orders.VoidOrder(c.Request.Context(), op, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := "Order voided"
	if res.AlreadyVoid {
		message = "Order was already void"
	}
	utils.RespondJSON(c, http.StatusOK, message, res.Order)
}
