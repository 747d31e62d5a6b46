// Package sync drains the local trade queue against the remote ledger.
package sync

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/trovapay/trova/internal/clients"
	"github.com/trovapay/trova/internal/domain"
)

const defaultSubmitTimeout = 30 * time.Second

// TradeQueue is the slice of the ledger the coordinator needs.
type TradeQueue interface {
	ListPending() []domain.Trade
	MarkSynced(tradeID string) error
	MarkFailed(tradeID string) error
}

// Report aggregates the outcome of one sync pass.
type Report struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// Coordinator pushes pending trades to the backend, oldest first. A trade
// either syncs or stays queued as failed; an individual failure never
// aborts the rest of the pass.
type Coordinator struct {
	queue         TradeQueue
	backend       clients.Backend
	submitTimeout time.Duration
	l             *zap.Logger
}

// New creates a sync coordinator. submitTimeout bounds each submission so
// no trade is ever left in an ambiguous in-flight state; zero selects the
// default.
func New(queue TradeQueue, backend clients.Backend, submitTimeout time.Duration, logger *zap.Logger) *Coordinator {
	if submitTimeout <= 0 {
		submitTimeout = defaultSubmitTimeout
	}
	return &Coordinator{
		queue:         queue,
		backend:       backend,
		submitTimeout: submitTimeout,
		l:             logger,
	}
}

// SyncAll submits every pending and failed trade sequentially, oldest
// first. Trades are submitted as atomic units; there is no per-item
// granularity. The returned error reflects only ledger bookkeeping or
// context cancellation, never a single trade's submission failure.
func (c *Coordinator) SyncAll(ctx context.Context) (Report, error) {
	var report Report

	pending := c.queue.ListPending()
	if len(pending) == 0 {
		return report, nil
	}

	c.l.Info("syncing pending trades", zap.Int("count", len(pending)))

	for i := range pending {
		trade := pending[i]

		if err := ctx.Err(); err != nil {
			return report, errors.Wrap(err, "sync interrupted")
		}

		if err := c.submit(ctx, trade); err != nil {
			c.l.Warn("trade submission failed, will retry on next pass",
				zap.String("trade_id", trade.ID),
				zap.Error(err))

			if markErr := c.queue.MarkFailed(trade.ID); markErr != nil {
				return report, markErr
			}
			report.Failed++
			continue
		}

		if err := c.queue.MarkSynced(trade.ID); err != nil {
			// the backend accepted the trade; resubmission is safe because
			// the backend dedupes on trade id
			return report, err
		}

		c.l.Info("trade synced",
			zap.String("trade_id", trade.ID),
			zap.String("total", trade.TotalValue.String()))
		report.Synced++
	}

	return report, nil
}

func (c *Coordinator) submit(ctx context.Context, trade domain.Trade) error {
	submitCtx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	return c.backend.SubmitTrade(submitCtx, trade)
}
