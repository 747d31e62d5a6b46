package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/trovapay/trova/config"
	"github.com/trovapay/trova/internal/clients"
	"github.com/trovapay/trova/internal/domain"
	"github.com/trovapay/trova/internal/services/attest"
	"github.com/trovapay/trova/internal/services/projector"
	"github.com/trovapay/trova/internal/services/settlement"
	syncsvc "github.com/trovapay/trova/internal/services/sync"
	"github.com/trovapay/trova/internal/setup"
	"github.com/trovapay/trova/internal/storage/inventory"
	"github.com/trovapay/trova/internal/storage/ledger"
	"github.com/trovapay/trova/internal/web"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "setup":
			if err := setup.RunTUI(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		case "pay":
			if err := runPay(os.Args[2:]); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		case "register":
			if err := runRegister(os.Args[2:]); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		case "appraise":
			if err := runAppraise(os.Args[2:]); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		}
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	app, err := buildApp(cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer app.ledger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// best-effort: a fresh view makes the first settlement accurate, but
	// offline start is a supported mode
	if err := app.projector.RefreshFromBackend(ctx, app.backend, cfg.PartyID); err != nil {
		logger.Warn("initial inventory refresh failed, starting with empty view", zap.Error(err))
	}

	server := web.NewServer(cfg.ListenAddr, cfg.PartyID, app.ledger, app.sync)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("status server listening", zap.String("addr", cfg.ListenAddr))
		return server.Start(ctx)
	})
	g.Go(func() error {
		return syncLoop(ctx, cfg.SyncInterval, app.sync, logger)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("shutdown with error", zap.Error(err))
	}
}

// app bundles the wired core services. All dependencies are explicit; the
// only process-wide state is here in main.
type app struct {
	ledger    *ledger.Ledger
	backend   clients.Backend
	inventory *inventory.Store
	projector *projector.Projector
	sync      *syncsvc.Coordinator
	settle    *settlement.Service
}

func buildApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	l, err := ledger.New(cfg.WALDir)
	if err != nil {
		return nil, err
	}

	var backend clients.Backend
	if cfg.UseMock {
		backend = clients.NewFakeBackend()
		logger.Info("using in-memory mock backend")
	} else {
		backend = clients.NewHTTPBackend(cfg.BackendURL)
	}

	inv := inventory.NewStore()
	proj := projector.New(inv, logger)

	return &app{
		ledger:    l,
		backend:   backend,
		inventory: inv,
		projector: proj,
		sync:      syncsvc.New(l, backend, cfg.SubmitTimeout, logger),
		settle:    settlement.New(inv, attest.NewService(), l, proj, logger),
	}, nil
}

// syncLoop pushes pending trades on a fixed interval until ctx is done.
func syncLoop(ctx context.Context, interval time.Duration, coord *syncsvc.Coordinator, logger *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			report, err := coord.SyncAll(ctx)
			if err != nil {
				logger.Warn("sync pass interrupted", zap.Error(err))
				continue
			}
			if report.Synced > 0 || report.Failed > 0 {
				logger.Info("sync pass finished",
					zap.Int("synced", report.Synced),
					zap.Int("failed", report.Failed))
			}
		}
	}
}

// runPay settles a single payment from the command line: the in-person
// flow where both parties authenticate on this device.
func runPay(args []string) error {
	flags := newPayFlags()
	if err := flags.parse(args); err != nil {
		return err
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadFile(flags.configPath)
	if err != nil {
		return err
	}

	app, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.ledger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.projector.RefreshFromBackend(ctx, app.backend, cfg.PartyID); err != nil {
		logger.Warn("inventory refresh failed, settling against cached view", zap.Error(err))
	}

	amount, err := decimal.NewFromString(flags.amount)
	if err != nil {
		return fmt.Errorf("invalid -amount %q: %w", flags.amount, err)
	}

	strategy := cfg.Strategy
	if flags.strategy != "" {
		strategy = flags.strategy
	}

	trade, err := app.settle.Settle(ctx, settlement.Request{
		Payer:       domain.Party{ID: cfg.PartyID, Name: cfg.PartyName},
		Payee:       domain.Party{ID: flags.payeeID, Name: flags.payeeName},
		Amount:      amount,
		Strategy:    strategy,
		PayerSecret: flags.payerSecret(),
		PayeeSecret: flags.payeeSecret(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("trade %s settled locally for %s, will sync when online\n", trade.ID, trade.TotalValue)

	report, err := app.sync.SyncAll(ctx)
	if err != nil {
		return nil // settled; sync will happen on the next daemon pass
	}
	fmt.Printf("sync: %d synced, %d failed\n", report.Synced, report.Failed)
	return nil
}
