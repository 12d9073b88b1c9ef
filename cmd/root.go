// Package cmd implements the CLI surface for qsh.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"qsh/logging"
	"qsh/shell"
)

// Version is set at build time.
var Version = "0.1.0"

// Global flags.
var (
	globalCommand string
	globalNoRC    bool
	globalDebug   bool
)

// rootCmd is the base command for qsh. Unlike a subcommand-driven CLI, qsh
// has no verbs: running it with no flags drops straight into the REPL.
var rootCmd = &cobra.Command{
	Use:   "qsh",
	Short: "a small POSIX-ish interactive shell",
	Long: `qsh is an interactive shell: tokenizer, parser, executor, job
table, and variable/alias/history stores, plus a Linux ptrace-based
per-process syscall profiler.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return nil
	},
	RunE: runShell,
}

func init() {
	rootCmd.Flags().StringVarP(&globalCommand, "command", "c", "", "execute STRING as one line and exit with its status")
	rootCmd.Flags().BoolVar(&globalNoRC, "norc", false, "skip loading history at startup")
	rootCmd.Flags().BoolVar(&globalDebug, "debug", false, "force debug-level logging regardless of QSH_DEBUG")
	rootCmd.Flags().Bool("version", false, "print the qsh version and exit")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetContext returns a context that cancels on SIGINT/SIGTERM. Run checks it
// before reading each line; history loading and profiler attach do not
// observe it.
func GetContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

// debugMask parses QSH_DEBUG the way spec.md §6 describes: a hex bitmask
// where a zero or unparsable value enables every category.
func debugMask() uint {
	raw := os.Getenv("QSH_DEBUG")
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseUint(raw, 0, 32)
	if err != nil {
		return ^uint(0)
	}
	if v == 0 {
		return ^uint(0)
	}
	return uint(v)
}

func runShell(cmd *cobra.Command, args []string) error {
	if v, _ := cmd.Flags().GetBool("version"); v {
		fmt.Printf("qsh version %s (%s)\n", Version, runtime.Version())
		return nil
	}

	sh := shell.New(shell.Options{
		NoRC:  globalNoRC || globalCommand != "",
		Debug: globalDebug || debugMask() != 0,
	})

	ctx := GetContext()

	if globalCommand != "" {
		status := sh.RunOne(ctx, globalCommand)
		os.Exit(status)
		return nil
	}

	status := sh.Run(ctx)
	os.Exit(status)
	return nil
}

func setupLogging() {
	level := slog.LevelInfo
	if globalDebug || debugMask() != 0 {
		level = slog.LevelDebug
	}

	logger := logging.NewLogger(logging.Config{
		Level:  level,
		Format: "text",
		Output: os.Stderr,
	})
	logging.SetDefault(logger)
}
