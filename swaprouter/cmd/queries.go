package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/router"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	labelColor  = color.New(color.FgCyan, color.Bold)
	amountColor = color.New(color.FgGreen, color.Bold)
	errorColor  = color.New(color.FgRed, color.Bold)
)

func printOperations(ops []models.SwapOperation) {
	labelColor.Printf("Operations (%d):\n", len(ops))
	for i, op := range ops {
		fmt.Printf("  %d. %s\n", i+1, op)
	}
}

func newSimulateCmd() *cobra.Command {
	var amount, opsRaw string
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Quote the amount a chain returns for an offer",
		Example: `  swaprouter simulate --lcd https://lcd.terra-classic.example --amount 1000000 \
    --ops '[{"native_swap":{"offer_denom":"uusd","ask_denom":"ukrw"}}]'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			offer, err := models.ParseUint128(amount)
			if err != nil {
				return fmt.Errorf("invalid --amount: %w", err)
			}
			ops, err := parseOperations(opsRaw)
			if err != nil {
				return err
			}
			b, err := newBackend(lcdURLs)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()
			out, err := b.router.SimulateSwapOperations(ctx, offer, ops)
			if err != nil {
				errorColor.Println("Simulation failed")
				return err
			}
			printOperations(ops)
			labelColor.Print("Offer:  ")
			fmt.Println(offer)
			labelColor.Print("Return: ")
			amountColor.Println(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "offer amount in base units")
	cmd.Flags().StringVar(&opsRaw, "ops", "", "operations as a JSON array, or @file")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newReverseSimulateCmd() *cobra.Command {
	var amount, opsRaw string
	cmd := &cobra.Command{
		Use:   "reverse-simulate",
		Short: "Quote the offer a chain needs to return an ask amount",
		RunE: func(cmd *cobra.Command, args []string) error {
			ask, err := models.ParseUint128(amount)
			if err != nil {
				return fmt.Errorf("invalid --amount: %w", err)
			}
			ops, err := parseOperations(opsRaw)
			if err != nil {
				return err
			}
			b, err := newBackend(lcdURLs)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()
			offer, err := b.router.ReverseSimulateSwapOperations(ctx, ask, ops)
			if err != nil {
				errorColor.Println("Reverse simulation failed")
				return err
			}
			printOperations(ops)
			labelColor.Print("Ask:   ")
			fmt.Println(ask)
			labelColor.Print("Offer: ")
			amountColor.Println(offer)
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "ask amount in base units")
	cmd.Flags().StringVar(&opsRaw, "ops", "", "operations as a JSON array, or @file")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newPlanCmd() *cobra.Command {
	var (
		sender, to, minimum, opsRaw string
		deadline                    uint64
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the continuation messages execute_swap_operations would schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := parseOperations(opsRaw)
			if err != nil {
				return err
			}
			req := models.ExecuteSwapOperations{Operations: ops}
			if minimum != "" {
				m, err := models.ParseUint128(minimum)
				if err != nil {
					return fmt.Errorf("invalid --minimum-receive: %w", err)
				}
				req.MinimumReceive = &m
			}
			if to != "" {
				req.To = &to
			}
			if deadline > 0 {
				req.Deadline = &deadline
			}

			b, err := newBackend(lcdURLs)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()
			env := models.Env{BlockTime: uint64(time.Now().Unix()), ContractAddress: b.deployment.ContractAddress}
			plan, err := b.router.Execute(ctx, env, sender, req)
			if err != nil {
				errorColor.Println("Planning failed")
				return err
			}
			out, err := json.MarshalIndent(plan, "", "  ")
			if err != nil {
				return err
			}
			labelColor.Printf("Plan (%d messages):\n", len(plan))
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "", "address submitting the chain")
	cmd.Flags().StringVar(&to, "to", "", "receiver, defaults to the sender")
	cmd.Flags().StringVar(&minimum, "minimum-receive", "", "fail unless the receiver gains at least this much")
	cmd.Flags().Uint64Var(&deadline, "deadline", 0, "unix time after which the chain is rejected")
	cmd.Flags().StringVar(&opsRaw, "ops", "", "operations as a JSON array, or @file")
	_ = cmd.MarkFlagRequired("sender")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var opsRaw string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a chain resolves to a single output asset, offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := parseOperations(opsRaw)
			if err != nil {
				return err
			}
			printOperations(ops)
			if err := router.Validate(ops); err != nil {
				errorColor.Println("Invalid")
				return err
			}
			labelColor.Print("Output: ")
			amountColor.Println(ops[len(ops)-1].TargetAssetInfo())
			return nil
		},
	}
	cmd.Flags().StringVar(&opsRaw, "ops", "", "operations as a JSON array, or @file")
	return cmd
}
