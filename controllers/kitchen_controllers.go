package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

type KitchenController struct {
	Pipeline *services.KitchenPipeline
}

func NewKitchenController(pipeline *services.KitchenPipeline) *KitchenController {
	return &KitchenController{Pipeline: pipeline}
}

// kitchenOperator requires a session that holds a remote credential. Kitchen
// views live on the server only.
func kitchenOperator(c *gin.Context) (services.Operator, bool) {
	op, ok := currentOperator(c)
	if !ok {
		return op, false
	}
	if op.Token == "" {
		utils.RespondError(c, http.StatusServiceUnavailable, fmt.Errorf("kitchen display needs an online session"))
		return op, false
	}
	return op, true
}

// GetBoard -> order aktif (pending/preparing) dan siap saji
func (kc *KitchenController) GetBoard(c *gin.Context) {
	op, ok := kitchenOperator(c)
	if !ok {
		return
	}

	board, err := kc.Pipeline.Board(c.Request.Context(), op.Token)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Kitchen board", board)
}

// AdvanceOrder memajukan status dapur satu langkah
func (kc *KitchenController) AdvanceOrder(c *gin.Context) {
	op, ok := kitchenOperator(c)
	if !ok {
		return
	}

	order, err := kc.Pipeline.AdvanceByID(c.Request.Context(), op.Token, c.Param("order_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Kitchen status updated", order)
}
