package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/trovapay/trova/internal/clients"
	"github.com/trovapay/trova/internal/services/attest"
)

const defaultBackendURL = "http://localhost:8000"

func backendURLFlag(fs *flag.FlagSet) *string {
	return fs.String("backend", "", "backend base URL, defaults to TROVA_BACKEND_URL")
}

func resolveBackendURL(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	_ = godotenv.Load()
	if env := os.Getenv("TROVA_BACKEND_URL"); env != "" {
		return env
	}
	return defaultBackendURL
}

// runRegister creates a backend account bound to a hashed PIN. It runs
// before any config exists, so it takes the backend URL directly instead
// of going through config loading.
func runRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	backendURL := backendURLFlag(fs)
	username := fs.String("username", "", "account name to register")
	pin := fs.String("pin", "", "PIN, at least 4 digits")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("-username is required")
	}

	pinHash, err := attest.HashPIN(*pin)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend := clients.NewHTTPBackend(resolveBackendURL(*backendURL))
	party, err := backend.RegisterUser(ctx, *username, pinHash)
	if err != nil {
		return err
	}

	fmt.Printf("registered %s with party id %s\n", party.Name, party.ID)
	fmt.Println("run `trova setup` and enter this party id to finish configuration")
	return nil
}

// runAppraise asks the backend for a value estimate of a described item.
func runAppraise(args []string) error {
	fs := flag.NewFlagSet("appraise", flag.ContinueOnError)
	backendURL := backendURLFlag(fs)
	category := fs.String("category", "", "item category, example: clothing")
	subcategory := fs.String("subcategory", "", "item subcategory")
	brand := fs.String("brand", "", "item brand")
	condition := fs.String("condition", "good", "condition: new, like_new, good, fair or worn")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *category == "" {
		return fmt.Errorf("-category is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend := clients.NewHTTPBackend(resolveBackendURL(*backendURL))
	value, err := backend.RequestValuation(ctx, clients.ValuationRequest{
		Category:    *category,
		Subcategory: *subcategory,
		Brand:       *brand,
		Condition:   *condition,
	})
	if err != nil {
		return err
	}

	fmt.Printf("estimated value: %s\n", value)
	return nil
}
