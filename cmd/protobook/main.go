package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"protobook/internal/pipeline"
)

// errUnsupported makes the process exit 1 without printing anything, which
// is how the host learns a renderer is not supported.
var errUnsupported = errors.New("renderer not supported")

type app struct {
	fs      afero.Fs
	log     *logrus.Logger
	verbose bool
}

func main() {
	a := &app{fs: afero.NewOsFs(), log: logrus.New()}
	if err := newRootCmd(a).Execute(); err != nil {
		if !errors.Is(err, errUnsupported) {
			color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "protobook",
		Short: "mdbook preprocessor that links protobuf symbols into documentation",
		Long: "Without a subcommand protobook runs as an mdbook preprocessor: it reads\n" +
			"[context, book] JSON on stdin and writes the processed book to stdout.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configureLogging(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
				return cmd.Help()
			}
			_, err := pipeline.Preprocess(cmd.Context(), a.fs, in, cmd.OutOrStdout(), a.log, nil)
			return err
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newSupportsCmd())
	root.AddCommand(newBuildCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newUsagesCmd(a))
	return root
}

// configureLogging sends logs to stderr, which is never part of the
// preprocessor protocol. PROTOBOOK_LOG_LEVEL wins over --verbose.
func (a *app) configureLogging(w io.Writer) error {
	a.log.SetOutput(w)

	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	a.log.SetFormatter(&logrus.TextFormatter{DisableColors: !tty, FullTimestamp: tty})

	level := logrus.InfoLevel
	if a.verbose {
		level = logrus.DebugLevel
	}
	if raw := strings.TrimSpace(os.Getenv("PROTOBOOK_LOG_LEVEL")); raw != "" {
		parsed, err := logrus.ParseLevel(raw)
		if err != nil {
			return fmt.Errorf("invalid PROTOBOOK_LOG_LEVEL: %w", err)
		}
		level = parsed
	}
	a.log.SetLevel(level)
	return nil
}
