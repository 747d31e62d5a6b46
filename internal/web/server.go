// Package web exposes a local status surface for the running client:
// pending-trade inspection, a manual sync trigger, and an SSE stream of
// queue changes for UI consumption.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/trovapay/trova/internal/domain"
	syncsvc "github.com/trovapay/trova/internal/services/sync"
)

const queuePollInterval = 2 * time.Second

type tradeQueue interface {
	ListPending() []domain.Trade
	Retry(tradeID string) error
}

type syncer interface {
	SyncAll(ctx context.Context) (syncsvc.Report, error)
}

// Server exposes HTTP endpoints over the local trade queue.
type Server struct {
	Addr    string
	Queue   tradeQueue
	Syncer  syncer
	PartyID string
}

// NewServer creates a new status server instance.
func NewServer(addr, partyID string, queue tradeQueue, syncer syncer) *Server {
	return &Server{Addr: addr, PartyID: partyID, Queue: queue, Syncer: syncer}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/trades/pending", s.handlePending)
	mux.HandleFunc("/trades/retry", s.handleRetry)
	mux.HandleFunc("/sync", s.handleSync)
	mux.HandleFunc("/trades/stream", s.handleQueueStream)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	pending := s.Queue.ListPending()

	failed := 0
	for i := range pending {
		if pending[i].Status == domain.TradeStatusFailed {
			failed++
		}
	}

	writeJSON(w, map[string]any{
		"party_id": s.PartyID,
		"queued":   len(pending),
		"failed":   failed,
	})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Queue.ListPending())
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tradeID := r.URL.Query().Get("trade_id")
	if tradeID == "" {
		http.Error(w, "trade_id is required", http.StatusBadRequest)
		return
	}

	if err := s.Queue.Retry(tradeID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Syncer == nil {
		http.Error(w, "sync not available", http.StatusServiceUnavailable)
		return
	}

	report, err := s.Syncer.SyncAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, report)
}

func (s *Server) handleQueueStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// comment heartbeat every 30s so proxies keep the connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(queuePollInterval)
	defer pollTicker.Stop()

	lastSent := -1
	sendQueue := func() error {
		pending := s.Queue.ListPending()
		if len(pending) == lastSent {
			return nil
		}

		payload, err := json.Marshal(pending)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "event: queue\n")
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		lastSent = len(pending)
		return nil
	}

	if err := sendQueue(); err != nil {
		http.Error(w, "failed to load queue", http.StatusInternalServerError)
		log.Printf("queue stream initial load: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendQueue(); err != nil {
				log.Printf("queue stream poll err: %v", err)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
