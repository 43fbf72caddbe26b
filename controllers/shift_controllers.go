package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

type ShiftController struct {
	Shifts *services.ShiftManager
}

func NewShiftController(shifts *services.ShiftManager) *ShiftController {
	return &ShiftController{Shifts: shifts}
}

// GetActiveShift -> shift aktif operator, disinkronkan dari server bila bisa
func (sc *ShiftController) GetActiveShift(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}

	shift, err := sc.Shifts.Refresh(c.Request.Context(), op)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if shift == nil {
		utils.RespondJSON(c, http.StatusOK, "No active shift", nil)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active shift", shift)
}

func (sc *ShiftController) StartShift(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}

	var input struct {
		OpeningCash decimal.NullDecimal `json:"opening_cash"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !input.OpeningCash.Valid {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("opening_cash is required"))
		return
	}

	shift, err := sc.Shifts.StartShift(c.Request.Context(), op, input.OpeningCash.Decimal)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Shift started", shift)
}

// EndShift menutup shift dan mengembalikan rekonsiliasi kas
func (sc *ShiftController) EndShift(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}

	var input struct {
		ClosingCash decimal.NullDecimal `json:"closing_cash"`
		Notes       string              `json:"notes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	summary, err := sc.Shifts.EndShift(c.Request.Context(), op, input.ClosingCash, input.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Shift ended", summary)
}

// GetShiftSummary -> rekonsiliasi sementara untuk shift yang masih berjalan
func (sc *ShiftController) GetShiftSummary(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}

	shift, err := sc.Shifts.Active(c.Request.Context(), op.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if shift == nil {
		utils.RespondError(c, http.StatusNotFound, fmt.Errorf("no active shift"))
		return
	}

	summary, err := sc.Shifts.Reconcile(c.Request.Context(), shift)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Shift summary", summary)
}
