package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"airhealth/adapters/etl"
	"airhealth/domain/analysis"
	"airhealth/domain/core"
	"airhealth/internal"
	"airhealth/internal/config"
	"airhealth/internal/container"
	"airhealth/internal/testkit"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "airhealth-dev",
		Short: "Development tools: synthetic stores, smoke and determinism checks",
	}

	rootCmd.AddCommand(
		newSeedCmd(),
		newSmokeCmd(),
		newDeterminismCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSeedCmd() *cobra.Command {
	var outDir string
	var seed int64
	var years []int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write synthetic observation stores for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := testkit.DefaultObservationConfig()
			cfg.Seed = seed
			if len(years) > 0 {
				cfg.Years = years
			}

			exposure, cases := testkit.NewObservationGenerator(cfg).Documents()

			exposurePath := filepath.Join(outDir, "pm25_consolidated.json")
			casesPath := filepath.Join(outDir, "hdc_consolidated.json")
			if err := etl.WriteDocument(exposurePath, exposure); err != nil {
				return err
			}
			if err := etl.WriteDocument(casesPath, cases); err != nil {
				return err
			}

			fmt.Printf("Seeded %s and %s (years %v, seed %d)\n", exposurePath, casesPath, cfg.Years, seed)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "data", "Directory for the generated stores")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().IntSliceVar(&years, "years", nil, "Years to generate (default 2024,2025)")
	return cmd
}

func newSmokeCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run one full analysis against synthetic stores and check the bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := devContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			bundle, err := c.Service.Compute(cmd.Context(), year, false)
			if err != nil {
				return fmt.Errorf("compute failed: %w", err)
			}

			if len(bundle.Correlations) == 0 {
				return fmt.Errorf("smoke failed: no correlations in bundle")
			}
			if len(bundle.Forecasts) == 0 {
				return fmt.Errorf("smoke failed: no forecasts in bundle")
			}
			if len(bundle.ThresholdAnalysis.Thresholds) == 0 {
				return fmt.Errorf("smoke failed: no threshold table in bundle")
			}

			fmt.Printf("✅ Smoke passed: year %d, %d correlations, %d forecasts, %d lag scans\n",
				bundle.Year, len(bundle.Correlations), len(bundle.Forecasts), len(bundle.LagAnalysis))
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 2025, "Year to analyze")
	return cmd
}

func newDeterminismCmd() *cobra.Command {
	var year int
	var runs int

	cmd := &cobra.Command{
		Use:   "determinism",
		Short: "Recompute the same year repeatedly and verify identical results",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := devContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			var reference []byte
			for i := 0; i < runs; i++ {
				bundle, err := c.Service.Compute(cmd.Context(), year, true)
				if err != nil {
					return fmt.Errorf("run %d failed: %w", i+1, err)
				}
				encoded, err := canonicalBundle(bundle)
				if err != nil {
					return err
				}
				if reference == nil {
					reference = encoded
					continue
				}
				if !bytes.Equal(reference, encoded) {
					return fmt.Errorf("run %d diverged from run 1", i+1)
				}
			}

			fmt.Printf("✅ Determinism held across %d runs for year %d\n", runs, year)
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 2025, "Year to analyze")
	cmd.Flags().IntVar(&runs, "runs", 3, "Number of recomputations to compare")
	return cmd
}

// devContainer wires the service against synthetic documents and a
// throwaway cache directory, ignoring the process environment.
func devContainer() (*container.Container, error) {
	cacheDir, err := os.MkdirTemp("", "airhealth-dev-cache-")
	if err != nil {
		return nil, err
	}

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0"},
		Data:   config.DataConfig{Backend: config.BackendSynth},
		Cache:  config.CacheConfig{Dir: cacheDir},
		Analysis: config.AnalysisConfig{
			TargetRegion:   config.DefaultTargetRegion,
			Provinces:      []string{"ชลบุรี", "ระยอง"},
			MinCommonWeeks: 5,
			MaxLag:         4,
			ForecastWeeks:  8,
			FitTimeout:     30 * time.Second,
		},
	}
	return container.New(cfg, internal.NewDefaultLogger())
}

// canonicalBundle strips the per-run identity fields so two computations
// over identical inputs compare equal.
func canonicalBundle(bundle *analysis.AnalysisBundle) ([]byte, error) {
	clone := *bundle
	clone.BundleID = core.BundleID("")
	clone.ComputedAt = core.Timestamp{}
	clone.Cached = false
	return json.Marshal(clone)
}
