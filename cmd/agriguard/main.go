// Command agriguard runs the AgriGuard Live assistant in a terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-go/agriguard-live/pkg/config"
)

type rootFlags struct {
	envFiles  []string
	logLevel  string
	logFormat string
	logFile   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "agriguard",
		Short: "Real-time camera and voice assistant for tomato farmers",
		Long: `AgriGuard Live streams the camera and microphone to Gemini Live and plays
the spoken answers back while showing a rolling transcript.

Settings come from the environment, optionally loaded from .env.local and .env.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", nil, "dotenv files to load (default .env.local,.env)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "log format: text|json")
	root.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "log file used while the terminal UI is running")

	root.AddCommand(newLiveCmd(flags), newHistoryCmd(flags), newMigrateCmd(flags))
	return root
}

// loadConfig reads dotenv files and the environment, then applies the
// logging flags.
func (f *rootFlags) loadConfig() (config.Config, error) {
	cfg, err := config.Load(f.envFiles...)
	if err != nil {
		return config.Config{}, err
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.logFormat != "" {
		cfg.LogFormat = f.logFormat
	}
	if f.logFile != "" {
		cfg.LogFile = f.logFile
	}
	return cfg, cfg.Validate()
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "agriguard: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
