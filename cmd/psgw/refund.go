package main

import (
	"fmt"

	"github.com/common-repository/paymentsense-gateway/internal/services/checkout"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func refundCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "refund ORDER_ID AMOUNT",
		Short: "Refund all or part of a paid order",
		Example: `  psgw refund 1001 25.00
  psgw refund 1001 5.50 --reason "damaged item"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()

			if err := a.initStores(cmd.Context()); err != nil {
				return err
			}
			defer a.closeStores()

			ctx, cancel := a.timeouts.TransactionContext(cmd.Context())
			defer cancel()

			svc := checkout.NewRefundService(a.gateway, a.orders, a.settings(), a.logger)
			result, err := svc.Refund(ctx, args[0], amount, reason)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\ncross reference: %s\n", result.Message, result.CrossReference)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "refund reason recorded with the order")
	return cmd
}
