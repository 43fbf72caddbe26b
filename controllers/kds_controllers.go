package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/pos-terminal/kds"
	"github.com/yeremiapane/pos-terminal/middlewares"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

type KDSController struct {
	Hub          *kds.Hub
	Pipeline     *services.KitchenPipeline
	PollInterval time.Duration
	Upgrader     websocket.Upgrader
}

func NewKDSController(hub *kds.Hub, pipeline *services.KitchenPipeline, pollInterval time.Duration, allowedOrigins []string) *KDSController {
	return &KDSController{
		Hub:          hub,
		Pipeline:     pipeline,
		PollInterval: pollInterval,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middlewares.OriginAllowed(allowedOrigins, origin)
			},
		},
	}
}

// KDSHandler -> endpoint WebSocket. Client menerima event terminal dan, bila
// sesi online, papan dapur yang diperbarui secara berkala.
func (kc *KDSController) KDSHandler(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}

	ws, err := kc.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	// Register dengan role
	kc.Hub.Register(ws, op.Role)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if op.Token != "" {
		poller := services.NewKitchenPoller(kc.Pipeline, op.Token, kc.PollInterval, func(board *services.KitchenBoard) {
			if err := kc.Hub.SendTo(ws, services.EventKitchenOrders, board); err != nil {
				utils.ErrorLogger.WithError(err).Warn("failed to send kitchen board")
			}
		})
		go poller.Run(ctx)
	}

	// Baca pesan sampai client disconnect
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	// Unregister saat disconnect
	cancel()
	kc.Hub.Unregister(ws)
}
