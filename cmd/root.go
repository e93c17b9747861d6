package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lmm-sim/lmm-sim/lmm"
	"github.com/lmm-sim/lmm-sim/lmm/montecarlo"
	"github.com/lmm-sim/lmm-sim/lmm/scenario"
)

var (
	scenarioPath string // YAML scenario file with grid, quotes, vols, correlation
	seed         int64  // Master seed for path RNG streams
	paths        int    // Number of simulated paths
	logLevel     string // Log verbosity level
	outputPath   string // CSV destination ("" = stdout)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "lmm-sim",
	Short: "Monte-Carlo forward-curve simulator under the LIBOR Market Model",
}

// runCmd samples forward curves for the scenario and writes summary statistics
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the forward-curve simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if scenarioPath == "" {
			logrus.Fatalf("No scenario file provided. Exiting simulation.")
		}

		s, err := scenario.Load(scenarioPath)
		if err != nil {
			logrus.Fatalf("unable to read scenario: %v", err)
		}

		// CLI flags override the scenario file when set explicitly.
		if cmd.Flags().Changed("seed") {
			s.Seed = seed
		}
		if cmd.Flags().Changed("paths") || s.Paths == 0 {
			s.Paths = paths
		}

		model, err := s.Build()
		if err != nil {
			logrus.Fatalf("unable to build model: %v", err)
		}

		logrus.Infof("Starting simulation: scenario=%s, grid points=%d, paths=%d, seed=%d",
			scenarioPath, model.Size(), s.Paths, s.Seed)

		startTime := time.Now()

		runner, err := montecarlo.NewRunner(model, lmm.NewSimulationKey(s.Seed), s.Paths, s.QueryTimes)
		if err != nil {
			logrus.Fatalf("unable to configure run: %v", err)
		}
		summaries, err := runner.Run()
		if err != nil {
			logrus.Fatalf("simulation failed: %v", err)
		}

		out := os.Stdout
		if outputPath != "" {
			f, err := os.Create(outputPath)
			if err != nil {
				logrus.Fatalf("Error creating file %s: %v", outputPath, err)
			}
			defer func() {
				if closeErr := f.Close(); closeErr != nil {
					logrus.Fatalf("Error closing file %s: %v", outputPath, closeErr)
				}
			}()
			out = f
		}
		if err := montecarlo.WriteCSV(out, summaries); err != nil {
			logrus.Fatalf("Error writing results: %v", err)
		}

		logrus.Infof("Simulation complete in %s.", time.Since(startTime))
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to YAML scenario file")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for path generation (overrides scenario)")
	runCmd.Flags().IntVar(&paths, "paths", 1000, "Number of simulated paths (overrides scenario)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&outputPath, "output", "", "CSV output file (default stdout)")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
