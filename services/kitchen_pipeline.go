package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/utils"
)

const DefaultKitchenPollInterval = 10 * time.Second

type KitchenRemote interface {
	KitchenOrders(ctx context.Context, token string) ([]models.KitchenOrder, error)
	UpdateKitchenStatus(ctx context.Context, token, orderID string, status models.KitchenStatus) (*KitchenStatusUpdate, error)
}

// NextKitchenStatus returns the status after s. Served is terminal and maps to
// itself.
func NextKitchenStatus(s models.KitchenStatus) (models.KitchenStatus, error) {
	switch s {
	case models.KitchenPending:
		return models.KitchenPreparing, nil
	case models.KitchenPreparing:
		return models.KitchenReady, nil
	case models.KitchenReady, models.KitchenServed:
		return models.KitchenServed, nil
	}
	return "", validationErrorf("unknown kitchen status %q", s)
}

// KitchenPipeline moves remote orders through fulfillment. It holds no state;
// the remote record is authoritative.
type KitchenPipeline struct {
	remote KitchenRemote
}

func NewKitchenPipeline(remote KitchenRemote) *KitchenPipeline {
	return &KitchenPipeline{remote: remote}
}

// Advance posts the next status for view. A served order is returned as is
// without contacting the remote.
func (p *KitchenPipeline) Advance(ctx context.Context, token string, view models.KitchenOrder) (models.KitchenOrder, error) {
	next, err := NextKitchenStatus(view.Status)
	if err != nil {
		return view, err
	}
	if next == view.Status {
		return view, nil
	}

	update, err := p.remote.UpdateKitchenStatus(ctx, token, view.ID, next)
	if err != nil {
		return view, err
	}

	result := view
	if update.View != nil {
		result = *update.View
	} else {
		result.Status = update.Status
	}
	if result.Status.Rank() < view.Status.Rank() {
		return view, validationErrorf("remote moved order %s backwards from %s to %s", view.ID, view.Status, result.Status)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": view.ID,
		"from":     view.Status,
		"to":       result.Status,
	}).Info("kitchen status advanced")
	return result, nil
}

// AdvanceByID looks the order up in the current remote list before advancing.
func (p *KitchenPipeline) AdvanceByID(ctx context.Context, token, orderID string) (models.KitchenOrder, error) {
	orders, err := p.remote.KitchenOrders(ctx, token)
	if err != nil {
		return models.KitchenOrder{}, err
	}
	for _, o := range orders {
		if o.ID == orderID {
			return p.Advance(ctx, token, o)
		}
	}
	return models.KitchenOrder{}, fmt.Errorf("%w: kitchen order %s", ErrNotFound, orderID)
}

// KitchenBoard splits the remote list into the two kitchen views. Served
// orders appear in neither.
type KitchenBoard struct {
	Active []models.KitchenOrder `json:"active"`
	Ready  []models.KitchenOrder `json:"ready"`
}

func (p *KitchenPipeline) Board(ctx context.Context, token string) (*KitchenBoard, error) {
	orders, err := p.remote.KitchenOrders(ctx, token)
	if err != nil {
		return nil, err
	}
	return PartitionKitchenOrders(orders), nil
}

func (p *KitchenPipeline) ListActive(ctx context.Context, token string) ([]models.KitchenOrder, error) {
	board, err := p.Board(ctx, token)
	if err != nil {
		return nil, err
	}
	return board.Active, nil
}

func (p *KitchenPipeline) ListReady(ctx context.Context, token string) ([]models.KitchenOrder, error) {
	board, err := p.Board(ctx, token)
	if err != nil {
		return nil, err
	}
	return board.Ready, nil
}

// PartitionKitchenOrders puts pending and preparing orders in Active and ready
// orders in Ready, each oldest first.
func PartitionKitchenOrders(orders []models.KitchenOrder) *KitchenBoard {
	board := &KitchenBoard{
		Active: []models.KitchenOrder{},
		Ready:  []models.KitchenOrder{},
	}
	for _, o := range orders {
		switch o.Status {
		case models.KitchenPending, models.KitchenPreparing:
			board.Active = append(board.Active, o)
		case models.KitchenReady:
			board.Ready = append(board.Ready, o)
		}
	}
	byAge := func(list []models.KitchenOrder) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	}
	byAge(board.Active)
	byAge(board.Ready)
	return board
}

// KitchenPoller refreshes the kitchen board on an interval and hands each
// result to a sink. It stops when its context ends.
type KitchenPoller struct {
	pipeline *KitchenPipeline
	token    string
	interval time.Duration
	sink     func(*KitchenBoard)
}

func NewKitchenPoller(pipeline *KitchenPipeline, token string, interval time.Duration, sink func(*KitchenBoard)) *KitchenPoller {
	if interval <= 0 {
		interval = DefaultKitchenPollInterval
	}
	return &KitchenPoller{pipeline: pipeline, token: token, interval: interval, sink: sink}
}

// Run polls immediately and then every interval until ctx is done. Failed
// polls are logged and skipped.
func (kp *KitchenPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(kp.interval)
	defer ticker.Stop()

	kp.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			kp.poll(ctx)
		}
	}
}

func (kp *KitchenPoller) poll(ctx context.Context) {
	board, err := kp.pipeline.Board(ctx, kp.token)
	if err != nil {
		if ctx.Err() == nil {
			utils.ErrorLogger.WithError(err).Warn("kitchen poll failed")
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	kp.sink(board)
}
