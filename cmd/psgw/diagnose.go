package main

import (
	"fmt"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
	"github.com/spf13/cobra"
)

func probeCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check connectivity to the gateway entry points",
		Long: `Send GetGatewayEntryPoints to every entry point and print the connection,
settings and system time messages. Exits non-zero when no entry point answered.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()

			ctx, cancel := a.timeouts.DiagnosticsContext(cmd.Context())
			defer cancel()

			report, err := a.diagnostics.Run(ctx)
			if err != nil {
				return err
			}
			if err := printInfo(cmd, report.Messages(), output); err != nil {
				return err
			}
			if !report.Connectivity() {
				return fmt.Errorf("no gateway entry point is reachable")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json)")
	return cmd
}

func diagnoseCmd() *cobra.Command {
	var (
		output         string
		connectionInfo bool
	)

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Print module information with the gateway checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()

			ctx, cancel := a.timeouts.DiagnosticsContext(cmd.Context())
			defer cancel()

			info, err := a.diagnosticsService().ModuleInfo(ctx, true, connectionInfo)
			if err != nil {
				return err
			}
			return printInfo(cmd, info, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json)")
	cmd.Flags().BoolVar(&connectionInfo, "connection-info", false, "include the raw attempt log")
	return cmd
}

func printInfo(cmd *cobra.Command, info paymentsense.Info, output string) error {
	switch output {
	case "json":
		body, err := info.MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(body))
	case "text":
		fmt.Fprintln(cmd.OutOrStdout(), info.Text())
	default:
		return fmt.Errorf("unsupported output %q", output)
	}
	return nil
}
