package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

type ReceiptController struct {
	Orders *services.OrderService
}

func NewReceiptController(orders *services.OrderService) *ReceiptController {
	return &ReceiptController{Orders: orders}
}

// GetReceipt membuat struk dari item yang tersimpan di order
func (rc *ReceiptController) GetReceipt(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	receipt, err := rc.Orders.Receipt(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Receipt", receipt)
}
