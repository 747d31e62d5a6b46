// Package ledger is the durable local queue of trades awaiting sync.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/trovapay/trova/internal/domain"
)

const (
	// DefaultDir keeps trade history across restarts.
	DefaultDir = "./wal/trades"

	segmentLimit   = 1000
	maxSegments    = 10
	tradeKeyPrefix = "trade_"
)

var (
	// ErrTradeNotFound is returned when the referenced trade is not queued.
	ErrTradeNotFound = errors.New("trade not found in ledger")
	// ErrDuplicateTrade is returned when a trade id is recorded twice.
	ErrDuplicateTrade = errors.New("trade already recorded")
)

// Ledger persists trade records in a WAL and keeps an in-memory view of the
// pending set. Every state transition is an appended record; replay on open
// rebuilds the set with last-write-wins per trade id. The WAL runs in
// sync-disk mode, so Record returning nil means the trade survives a crash.
//
// The ledger owns all access to the persisted representation; other
// components go through its methods. A single mutex serializes the
// read-modify-write because the store itself is not transactional.
type Ledger struct {
	wal   *gowal.Wal
	dir   string
	mu    sync.Mutex
	index map[string]*domain.Trade
	order []string // trade ids, oldest first
}

// New opens (or creates) the trade WAL in dir and replays it.
func New(dir string) (*Ledger, error) {
	if dir == "" {
		dir = DefaultDir
	}

	wal, err := openWal(dir)
	if err != nil {
		return nil, err
	}

	l := &Ledger{
		wal:   wal,
		dir:   dir,
		index: make(map[string]*domain.Trade),
	}
	if err := l.replay(); err != nil {
		_ = wal.Close()
		return nil, err
	}

	return l, nil
}

func openWal(dir string) (*gowal.Wal, error) {
	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "trades_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init trade WAL")
	}
	return wal, nil
}

// replay rebuilds the pending set from the WAL. The last record per trade
// id wins; trades whose final state is synced are excluded.
func (l *Ledger) replay() error {
	for m := range l.wal.Iterator() {
		if !strings.HasPrefix(m.Key, tradeKeyPrefix) {
			continue
		}

		var trade domain.Trade
		if err := json.Unmarshal(m.Value, &trade); err != nil {
			return errors.Wrapf(err, "decode trade record %s", m.Key)
		}

		if _, seen := l.index[trade.ID]; !seen {
			l.order = append(l.order, trade.ID)
		}
		stored := trade
		l.index[trade.ID] = &stored
	}

	// drop terminally synced trades from the pending set
	kept := l.order[:0]
	for _, id := range l.order {
		if l.index[id].Status == domain.TradeStatusSynced {
			delete(l.index, id)
			continue
		}
		kept = append(kept, id)
	}
	l.order = kept

	return nil
}

// Record appends a trade with status pending. The write is flushed to disk
// before Record returns; a trade that reached Record successfully stays
// discoverable via ListPending until explicitly marked synced.
func (l *Ledger) Record(trade domain.Trade) error {
	if trade.ID == "" {
		return errors.New("trade id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index[trade.ID]; ok {
		return errors.Wrap(ErrDuplicateTrade, trade.ID)
	}

	trade.Status = domain.TradeStatusPending
	if err := l.persist(&trade); err != nil {
		return err
	}

	stored := trade
	l.index[trade.ID] = &stored
	l.order = append(l.order, trade.ID)
	return nil
}

// ListPending returns pending and failed trades, oldest first. Sync always
// processes this order to bound the age of the unsynced backlog.
func (l *Ledger) ListPending() []domain.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	trades := make([]domain.Trade, 0, len(l.order))
	for _, id := range l.order {
		trades = append(trades, *l.index[id])
	}
	return trades
}

// MarkSynced removes the trade from the pending set. The backend is
// authoritative for history, so synced trades are not retained locally.
func (l *Ledger) MarkSynced(tradeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	trade, ok := l.index[tradeID]
	if !ok {
		return errors.Wrap(ErrTradeNotFound, tradeID)
	}

	trade.Status = domain.TradeStatusSynced
	if err := l.persist(trade); err != nil {
		// keep the trade queued rather than losing it on a failed write
		trade.Status = domain.TradeStatusFailed
		return err
	}

	delete(l.index, tradeID)
	for i, id := range l.order {
		if id == tradeID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return nil
}

// MarkFailed flags the trade as failed in place; it stays queued and is
// retried on the next sync pass.
func (l *Ledger) MarkFailed(tradeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	trade, ok := l.index[tradeID]
	if !ok {
		return errors.Wrap(ErrTradeNotFound, tradeID)
	}

	trade.Status = domain.TradeStatusFailed
	return l.persist(trade)
}

// Retry moves a failed trade back to pending. Manual operation.
func (l *Ledger) Retry(tradeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	trade, ok := l.index[tradeID]
	if !ok {
		return errors.Wrap(ErrTradeNotFound, tradeID)
	}
	if trade.Status != domain.TradeStatusFailed {
		return errors.Errorf("trade %s is %s, only failed trades can be retried", tradeID, trade.Status)
	}

	trade.Status = domain.TradeStatusPending
	return l.persist(trade)
}

// ClearAll drops all local trade state unconditionally. Administrative and
// test use only.
func (l *Ledger) ClearAll() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.wal.Close(); err != nil {
		return errors.Wrap(err, "close trade WAL")
	}
	if err := os.RemoveAll(l.dir); err != nil {
		return errors.Wrap(err, "remove trade WAL dir")
	}

	wal, err := openWal(l.dir)
	if err != nil {
		return err
	}

	l.wal = wal
	l.index = make(map[string]*domain.Trade)
	l.order = nil
	return nil
}

// Close closes the underlying WAL.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wal.Close()
}

func (l *Ledger) persist(trade *domain.Trade) error {
	payload, err := json.Marshal(trade)
	if err != nil {
		return errors.Wrapf(err, "marshal trade %s", trade.ID)
	}

	key := fmt.Sprintf("%s%s", tradeKeyPrefix, trade.ID)
	if err := l.wal.Write(l.wal.CurrentIndex()+1, key, payload); err != nil {
		return errors.Wrapf(err, "persist trade %s", trade.ID)
	}
	return nil
}
