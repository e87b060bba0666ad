package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"airhealth/adapters/etl"
	"airhealth/internal"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "airhealth-etl",
		Short: "Consolidate raw measurement and surveillance exports into the observation stores",
	}

	rootCmd.AddCommand(
		newExposureCmd(),
		newCasesCmd(),
		newAllCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newExposureCmd() *cobra.Command {
	var dataDir, out string

	cmd := &cobra.Command{
		Use:   "exposure",
		Short: "Consolidate yearly PM2.5 measurement workbooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExposure(dataDir, out)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "data/PM25", "Directory of yearly measurement workbooks")
	cmd.Flags().StringVar(&out, "out", "data/pm25_consolidated.json", "Consolidated exposure store path")
	return cmd
}

func newCasesCmd() *cobra.Command {
	var dataDir, out string

	cmd := &cobra.Command{
		Use:   "cases",
		Short: "Consolidate weekly surveillance CSV exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCases(dataDir, out)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "data/HDC", "Directory of per-province surveillance exports")
	cmd.Flags().StringVar(&out, "out", "data/hdc_consolidated.json", "Consolidated case store path")
	return cmd
}

func newAllCmd() *cobra.Command {
	var exposureDir, casesDir, exposureOut, casesOut string

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run both consolidations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runExposure(exposureDir, exposureOut); err != nil {
				return err
			}
			return runCases(casesDir, casesOut)
		},
	}

	cmd.Flags().StringVar(&exposureDir, "exposure-dir", "data/PM25", "Directory of yearly measurement workbooks")
	cmd.Flags().StringVar(&casesDir, "cases-dir", "data/HDC", "Directory of per-province surveillance exports")
	cmd.Flags().StringVar(&exposureOut, "exposure-out", "data/pm25_consolidated.json", "Consolidated exposure store path")
	cmd.Flags().StringVar(&casesOut, "cases-out", "data/hdc_consolidated.json", "Consolidated case store path")
	return cmd
}

func runExposure(dataDir, out string) error {
	logger := internal.NewDefaultLogger().Named("etl")
	doc, err := etl.NewExposureConsolidator(dataDir, logger).Consolidate()
	if err != nil {
		return err
	}
	if err := etl.WriteDocument(out, doc); err != nil {
		return err
	}
	logger.Info("Exposure store written to %s (%d stations, %s..%s)",
		out, len(doc.Metadata.Stations), doc.Metadata.MinDate, doc.Metadata.MaxDate)
	return nil
}

func runCases(dataDir, out string) error {
	logger := internal.NewDefaultLogger().Named("etl")
	doc, err := etl.NewCaseConsolidator(dataDir, logger).Consolidate()
	if err != nil {
		return err
	}
	if err := etl.WriteDocument(out, doc); err != nil {
		return err
	}
	logger.Info("Case store written to %s (%d provinces)", out, len(doc.Data))
	return nil
}
