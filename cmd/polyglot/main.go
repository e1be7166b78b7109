package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/polyglot-bot/polyglot/internal/config"
)

const defaultConfigPath = "./config.yaml"

// getenv is replaced in tests.
var getenv = os.Getenv

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(runWithContext(ctx, os.Args[1:], os.Stderr))
}

func runWithContext(ctx context.Context, args []string, out io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return 1
	}
	return 0
}

type rootFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "polyglot",
		Short: "Discord translation bot",
		Long: `Polyglot translates Discord messages on request.

Reply to a message with "@translator <code>" and the bot posts the
translation in a new thread, or in the channel when it cannot create threads.`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", defaultConfigPath, "path to config file")
	root.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newInitCmd(flags))
	root.AddCommand(newLanguagesCmd(flags))
	root.AddCommand(newHistoryCmd(flags))
	root.AddCommand(newWatchCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// loadConfig reads the config file and applies environment overrides. The
// default path may be absent; an explicit one must exist.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		cfg = config.DefaultConfig()
	default:
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv(getenv)
	return cfg, nil
}
