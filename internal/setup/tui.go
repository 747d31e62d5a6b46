// Package setup contains the first-run configuration wizard.
package setup

import (
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/trovapay/trova/config"
	"github.com/trovapay/trova/internal/services/allocator"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

func clearAndHeader(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("TROVA SETUP"))
	fmt.Println(stepStyle.Render(step))
}

// RunTUI launches the terminal configuration wizard and writes the YAML
// config to config.DefaultPath.
func RunTUI() error {
	var (
		partyName    string
		partyID      string
		backendMode  string
		backendURL   string
		strategy     string
		syncInterval string
		listenAddr   string
		confirm      bool
	)

	// defaults
	backendURL = "http://localhost:8000"
	strategy = string(allocator.SmallestFirst)
	syncInterval = "1m"
	listenAddr = ":8787"

	clearAndHeader("STEP 1: IDENTITY")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Who is this device trading as?\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Display Name").
				Value(&partyName).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("name cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Party ID").
				Description("Leave empty to generate a new id").
				Value(&partyID),
		),
	).Run()
	if err != nil {
		return err
	}

	if partyID == "" {
		partyID = uuid.New().String()
	}

	clearAndHeader("STEP 2: BACKEND")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Backend Mode").
				Options(
					huh.NewOption("Remote HTTP backend", "http"),
					huh.NewOption("In-memory mock (development)", "mock"),
				).
				Value(&backendMode),
		),
	).Run()
	if err != nil {
		return err
	}

	if backendMode == "http" {
		clearAndHeader("STEP 3: BACKEND URL")
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Backend Base URL").
					Description("Example: https://api.trovapay.example").
					Value(&backendURL).
					Validate(func(s string) error {
						if s == "" {
							return fmt.Errorf("backend URL cannot be empty")
						}
						return nil
					}),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	clearAndHeader("STEP 4: SPENDING")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default Allocation Order").
				Description("Which items are consumed first when covering an amount").
				Options(
					huh.NewOption("Smallest items first (less fragmentation)", string(allocator.SmallestFirst)),
					huh.NewOption("Largest items first (fewest items)", string(allocator.LargestFirst)),
				).
				Value(&strategy),
		),
	).Run()
	if err != nil {
		return err
	}

	clearAndHeader("STEP 5: TIMING")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sync Interval").
				Description("Duration string (e.g. 30s, 1m, 5m)").
				Value(&syncInterval).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
			huh.NewInput().
				Title("Status Server Address").
				Description("Example: :8787").
				Value(&listenAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	interval, err := time.ParseDuration(syncInterval)
	if err != nil {
		return err
	}

	cfg := config.Config{
		PartyID:       partyID,
		PartyName:     partyName,
		BackendURL:    backendURL,
		WALDir:        "./wal/trades",
		SyncInterval:  interval,
		SubmitTimeout: 30 * time.Second,
		Strategy:      allocator.Strategy(strategy),
		UseMock:       backendMode == "mock",
		ListenAddr:    listenAddr,
	}

	clearAndHeader("CONFIRM")
	fmt.Printf("party: %s (%s)\nbackend: %s\nstrategy: %s\nsync every: %s\n\n",
		cfg.PartyName, cfg.PartyID, backendMode, cfg.Strategy, cfg.SyncInterval)
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Write %s?", config.DefaultPath)).
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup aborted")
	}

	if err := cfg.Save(config.DefaultPath); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render("\nConfig written. Start trova to begin syncing."))
	return nil
}
