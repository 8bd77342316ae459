// LogRelay - Asynchronous log delivery pipeline
// Buffers structured events and relays them in batches to configured sinks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	configFile string
	verbose    bool

	// Run command flags
	eventRate   int
	producers   int
	runDuration string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "logrelay",
	Short: "LogRelay - Relay structured log events to multiple sinks",
	Long: `LogRelay buffers structured log events in a bounded queue, groups them
into batches, and delivers each batch to every configured sink. Failing
sinks are isolated behind per-sink circuit breakers so one dead
destination never blocks the others.`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("logrelay %s (%s)\n", version, commit)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load and validate the configuration without starting the pipeline.

Examples:
  logrelay validate
  logrelay validate --config relay.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file path (default: standard search paths)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	runCmd.Flags().IntVar(&eventRate, "rate", 100, "Generated events per second per producer")
	runCmd.Flags().IntVar(&producers, "producers", 4, "Number of concurrent producers")
	runCmd.Flags().StringVar(&runDuration, "duration", "", "Stop after this duration (e.g. 30s); empty runs until interrupted")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, paths, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println("Configuration OK")
	if len(paths) > 0 {
		fmt.Println("Loaded from:")
		for _, p := range paths {
			fmt.Printf("  - %s\n", p)
		}
	} else {
		fmt.Println("Using defaults (no config file found)")
	}
	if verbose {
		fmt.Printf("Queue:   capacity=%d policy=%s\n", cfg.Queue.Capacity, cfg.Queue.Policy)
		fmt.Printf("Batch:   size=%d interval=%s\n", cfg.Batch.Size, cfg.Batch.Interval)
		fmt.Printf("Breaker: threshold=%d recovery=%s\n", cfg.Breaker.FailureThreshold, cfg.Breaker.RecoveryTimeout)
		fmt.Printf("Sinks:   %d configured\n", len(cfg.Sinks))
		for _, s := range cfg.Sinks {
			fmt.Printf("  - %s\n", s.Type)
		}
	}
	return nil
}
