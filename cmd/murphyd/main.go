// Command murphyd is a thin demonstration harness around the resource
// arbitration and resolver core. It is not the embedding daemon spec.md
// describes (that daemon's event loop, D-Bus transport, and plugin
// loader are out of scope) — it exists only to wire the ambient stack
// (CLI, logging, metrics) to the core library packages, the same way
// the teacher's cmd/warren is a cobra-based wrapper around its own
// library packages.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/murphy-project/murphyd/pkg/log"
	"github.com/murphy-project/murphyd/pkg/metrics"
)

// Exit codes, per spec §6.
const (
	exitOK            = 0
	exitConfigError   = 1
	exitArbiterInit   = 2
	exitResolverError = 3
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:     "murphyd",
	Short:   "murphyd - resource arbitration and resolver core",
	Version: Version,
	Long: `murphyd demonstrates the resource arbitration engine, the MDB
table store, and the dependency resolver against a small built-in
demo registry and a resolver rule file supplied on the command line.`,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("murphyd version %s\nCommit: %s\n", Version, Commit))
	metrics.SetVersion(Version)

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOutput})
}

// exitCode is implemented by errors that carry a specific process exit
// status, per spec §6 / §7 (configuration vs. initialisation vs.
// resolver-compile failures each get a distinct code).
type exitCode interface {
	ExitCode() int
}

func exitCodeFor(err error) int {
	if ec, ok := err.(exitCode); ok {
		return ec.ExitCode()
	}
	return exitConfigError
}
