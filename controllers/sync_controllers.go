package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

type SyncController struct {
	Agent *services.SyncAgent
}

func NewSyncController(agent *services.SyncAgent) *SyncController {
	return &SyncController{Agent: agent}
}

// GetStatus -> jumlah order tertunda dan hasil sinkronisasi terakhir
func (sc *SyncController) GetStatus(c *gin.Context) {
	status, err := sc.Agent.Status(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sync status", status)
}

// SyncNow menjalankan pull katalog dan push order saat itu juga
func (sc *SyncController) SyncNow(c *gin.Context) {
	syncErr := sc.Agent.SyncNow(c.Request.Context())

	status, err := sc.Agent.Status(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if syncErr != nil {
		respondServiceErrorWith(c, syncErr, status)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sync completed", status)
}
