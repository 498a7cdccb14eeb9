package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"luxrent/internal/app/dto"
	"luxrent/internal/domain/refund"
	"luxrent/internal/domain/shared/money"
	"luxrent/internal/infra/config"
)

func newRootCmd(now func() time.Time) *cobra.Command {
	root := &cobra.Command{
		Use:           "refundctl",
		Short:         "Inspect the cancellation refund policy and price refunds offline",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("policy", "", "policy YAML file (defaults to the built-in policy)")
	root.AddCommand(quoteCmd(now))
	root.AddCommand(policyCmd())
	return root
}

func loadPolicy(cmd *cobra.Command) (refund.Policy, error) {
	path, _ := cmd.Flags().GetString("policy")
	return config.LoadPolicy(path)
}

func quoteCmd(now func() time.Time) *cobra.Command {
	var (
		itemType string
		amount   string
		currency string
		hours    float64
		start    string
		reason   string
		special  bool
	)
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Compute the refund for a hypothetical cancellation",
		Example: `  refundctl quote --item-type yachts --amount 5000 --hours 10
  refundctl quote --item-type jets --amount 25000 --start 2030-07-15T08:00:00Z --reason medical_emergency`,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := loadPolicy(cmd)
			if err != nil {
				return err
			}
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid --amount %q: %w", amount, err)
			}
			m, err := money.New(value, currency)
			if err != nil {
				return err
			}
			at := now()
			startAt, err := quoteStart(cmd, at, start, hours)
			if err != nil {
				return err
			}
			calc := refund.Calculate(policy, refund.BookingSnapshot{
				OriginalAmount:       m.Amount,
				Currency:             m.Currency,
				ItemType:             refund.ItemType(itemType),
				StartDateTime:        startAt,
				SpecialCircumstances: special,
			}, reason, at)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dto.NewCalculationDTO(calc))
		},
	}
	cmd.Flags().StringVar(&itemType, "item-type", "cars", "cars, yachts, jets or properties")
	cmd.Flags().StringVar(&amount, "amount", "", "original booking amount in major units")
	cmd.Flags().StringVar(&currency, "currency", "USD", "ISO 4217 currency code")
	cmd.Flags().Float64Var(&hours, "hours", 0, "hours until the rental starts")
	cmd.Flags().StringVar(&start, "start", "", "rental start as RFC 3339, instead of --hours")
	cmd.Flags().StringVar(&reason, "reason", "changed_mind", "cancellation reason")
	cmd.Flags().BoolVar(&special, "special", false, "booking flagged with special circumstances")
	_ = cmd.MarkFlagRequired("amount")
	cmd.MarkFlagsMutuallyExclusive("hours", "start")
	return cmd
}

func quoteStart(cmd *cobra.Command, at time.Time, start string, hours float64) (time.Time, error) {
	if start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --start %q: %w", start, err)
		}
		return t, nil
	}
	if !cmd.Flags().Changed("hours") {
		return time.Time{}, errors.New("one of --hours or --start is required")
	}
	return at.Add(time.Duration(hours * float64(time.Hour))), nil
}

func policyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Print the effective refund policy as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := loadPolicy(cmd)
			if err != nil {
				return err
			}
			out, err := config.MarshalPolicy(policy)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
