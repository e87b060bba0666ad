package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"airhealth/internal"
	"airhealth/internal/config"
	"airhealth/internal/container"
	apperrors "airhealth/internal/errors"
	"airhealth/internal/report"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "airhealth-cli",
		Short: "Run exposure-health analyses against the local stores without the HTTP servers",
	}

	rootCmd.AddCommand(
		newComputeCmd(),
		newReportCmd(),
		newYearsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newComputeCmd() *cobra.Command {
	var year int
	var force bool

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Run one year's analysis and persist the bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			bundle, err := c.Service.Compute(cmd.Context(), year, force)
			if err != nil {
				return err
			}
			return printJSON(bundle)
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "Target calendar year")
	cmd.Flags().BoolVar(&force, "force", false, "Recompute even when a cached bundle exists")
	return cmd
}

func newReportCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a cached bundle as a markdown report",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			bundle, err := c.Service.ReadCached(cmd.Context(), year)
			if apperrors.HasCode(err, apperrors.CodeNotFound) {
				return fmt.Errorf("no cached analysis for %d; run compute first", year)
			}
			if err != nil {
				return err
			}

			fmt.Println(report.NewBuilder().Build(bundle))
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "Target calendar year")
	return cmd
}

func newYearsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "List the years with a persisted analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			years, err := c.Service.CachedYears(cmd.Context())
			if err != nil {
				return err
			}
			if len(years) == 0 {
				fmt.Println("No cached analyses.")
				return nil
			}
			for _, y := range years {
				fmt.Println(y)
			}
			return nil
		},
	}
}

func buildContainer() (*container.Container, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return container.New(cfg, internal.NewDefaultLogger())
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
