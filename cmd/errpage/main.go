package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/errpage/internal/config"
	"github.com/vango-dev/errpage/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┬─┐┬─┐┌─┐┌─┐┌─┐┌─┐
  ├┤ ├┬┘├┬┘├─┘├─┤│ ┬├┤
  └─┘┴└─┴└─┴  ┴ ┴└─┘└─┘
`

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "errpage",
		Short: "Render error pages inside your root layout",
		Long: `errpage renders the root error page of an application inside its
root layout, and falls back to a plain 500 response when that fails.

The serve command runs a demo application showing every path:
rendered error pages, 404s, panics and the raw fallback.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file (default errpage.{json,yaml,toml} in the working directory)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(
		serveCmd(flags),
		renderCmd(flags),
		configCmd(flags),
		versionCmd(),
	)

	return rootCmd
}

// loadConfig reads the config named by --config, or looks for one in the
// working directory.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	if flags.configPath != "" {
		return config.LoadFile(flags.configPath)
	}
	return config.Load(".")
}

// newLogger builds the process logger from the global flags.
func newLogger(flags *globalFlags, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(flags.logLevel)); err != nil {
		return nil, errors.New("E122").WithDetail("unknown log level " + flags.logLevel)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(flags.logFormat) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, errors.New("E122").WithDetail("unknown log format " + flags.logFormat)
	}
}

// printBanner prints the ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
