package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

type AdminController struct {
	Ledger *services.Ledger
}

func NewAdminController(ledger *services.Ledger) *AdminController {
	return &AdminController{Ledger: ledger}
}

// GetSalesSummary mengambil ringkasan penjualan; default hari ini (UTC)
func (ac *AdminController) GetSalesSummary(c *gin.Context) {
	f, err := orderFilterFromQuery(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if f.From == nil && f.To == nil {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		tomorrow := today.Add(24 * time.Hour)
		f.From, f.To = &today, &tomorrow
	}

	summary, err := ac.Ledger.Summarize(c.Request.Context(), f)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Sales summary", gin.H{
		"from":    f.From,
		"to":      f.To,
		"summary": summary,
		"gross":   utils.FormatCurrencyGHS(summary.GrossSales),
	})
}
