package main

import (
	"flag"
	"fmt"

	"github.com/trovapay/trova/config"
	"github.com/trovapay/trova/internal/services/allocator"
	"github.com/trovapay/trova/internal/services/attest"
)

type payFlags struct {
	fs          *flag.FlagSet
	configPath  string
	payeeID     string
	payeeName   string
	amount      string
	payerPIN    string
	payeePIN    string
	strategyStr string
	strategy    allocator.Strategy
}

func newPayFlags() *payFlags {
	f := &payFlags{fs: flag.NewFlagSet("pay", flag.ContinueOnError)}
	f.fs.StringVar(&f.configPath, "config", config.DefaultPath, "path to YAML config")
	f.fs.StringVar(&f.payeeID, "to", "", "payee party id")
	f.fs.StringVar(&f.payeeName, "to-name", "", "payee display name")
	f.fs.StringVar(&f.amount, "amount", "", "amount to pay, example: 35.00")
	f.fs.StringVar(&f.payerPIN, "pin", "", "payer PIN, empty means biometric assertion")
	f.fs.StringVar(&f.payeePIN, "payee-pin", "", "payee PIN, empty means biometric assertion")
	f.fs.StringVar(&f.strategyStr, "strategy", "", "allocation order override: smallest_first or largest_first")
	f.fs.Usage = func() {
		fmt.Fprintln(f.fs.Output(), "usage: trova pay -to <party-id> -amount <value> [flags]")
		f.fs.PrintDefaults()
	}
	return f
}

func (f *payFlags) parse(args []string) error {
	if err := f.fs.Parse(args); err != nil {
		return err
	}
	f.strategy = allocator.Strategy(f.strategyStr)

	if f.payeeID == "" {
		return fmt.Errorf("-to is required")
	}
	if f.amount == "" {
		return fmt.Errorf("-amount is required")
	}
	return nil
}

func (f *payFlags) payerSecret() string {
	if f.payerPIN == "" {
		return attest.SecretBiometric
	}
	return f.payerPIN
}

func (f *payFlags) payeeSecret() string {
	if f.payeePIN == "" {
		return attest.SecretBiometric
	}
	return f.payeePIN
}
