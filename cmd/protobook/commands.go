package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"protobook/internal/analysis"
	"protobook/internal/book"
	"protobook/internal/config"
	"protobook/internal/pipeline"
	"protobook/internal/resolver"
	"protobook/internal/storage"
)

const defaultConfig = "protobook.yaml"

func newSupportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "supports <renderer>",
		Short: "Check whether a renderer is supported by this preprocessor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "not-supported" {
				return errUnsupported
			}
			return nil
		},
	}
}

func newBuildCmd(a *app) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Rewrite a directory of markdown pages and generate package pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(a.fs, configPath, nil)
			if err != nil {
				return err
			}
			p := pipeline.New(cfg, a.fs, a.log, "build")
			res, err := p.Build(cmd.Context())
			if err != nil {
				return err
			}
			p.Report().Log(a.log)

			fmt.Fprintf(cmd.OutOrStdout(), "%s %d pages written to %s\n",
				color.GreenString("Built"), len(res.Pages), cfg.Resolve(cfg.Output))
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "Path to the configuration file (YAML or book.toml)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var configPath, dbPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the cross-reference graph to a SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, res, err := a.process(cmd, configPath, "export")
			if err != nil {
				return err
			}

			store, err := storage.NewSQLiteStore(dbPath)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()

			if err := p.Export(cmd.Context(), store, res); err != nil {
				return err
			}
			p.Report().Log(a.log)

			fmt.Fprintf(cmd.OutOrStdout(), "%s %d symbols and %d pages to %s\n",
				color.GreenString("Exported"), res.Index.Graph.Len(), len(res.Pages), dbPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "Path to the configuration file (YAML or book.toml)")
	cmd.Flags().StringVarP(&dbPath, "db", "d", "protobook.db", "Path to the SQLite database to write")
	return cmd
}

func newUsagesCmd(a *app) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "usages <query>",
		Short: "List the schema symbols and pages that use a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, res, err := a.process(cmd, configPath, "usages")
			if err != nil {
				return err
			}

			g := res.Index.Graph
			target, err := resolver.NewResolver().Resolve(args[0], g.Symbols())
			if err != nil {
				return err
			}
			report, err := analysis.NewAnalyzer(g).AnalyzeImpact(target)
			if err != nil {
				return err
			}
			printImpact(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "Path to the configuration file (YAML or book.toml)")
	return cmd
}

// process runs the pipeline in memory. Pages are included when the
// configuration names a pages directory, so citations are counted too.
func (a *app) process(cmd *cobra.Command, configPath, mode string) (*pipeline.Pipeline, *pipeline.Result, error) {
	cfg, err := config.LoadConfig(a.fs, configPath, nil)
	if err != nil {
		return nil, nil, err
	}
	p := pipeline.New(cfg, a.fs, a.log, mode)

	b := &book.Book{}
	if cfg.Pages != "" {
		if b, err = p.CollectPages(); err != nil {
			return nil, nil, err
		}
	}
	res, err := p.Process(cmd.Context(), b)
	if err != nil {
		return nil, nil, err
	}
	return p, res, nil
}

func printImpact(w io.Writer, report *analysis.ImpactReport) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, report.Target.FQSL())
	if report.Recursive {
		fmt.Fprintln(w, "  recursive: a member refers back to this symbol")
	}

	section := func(title string, lines []string) {
		fmt.Fprintf(w, "  %s (%d)\n", color.CyanString(title), len(lines))
		for _, l := range lines {
			fmt.Fprintf(w, "    %s\n", l)
		}
	}

	direct := make([]string, 0, len(report.DirectlyAffected))
	for _, l := range report.DirectlyAffected {
		direct = append(direct, l.FQSL())
	}
	indirect := make([]string, 0, len(report.IndirectlyAffected))
	for _, l := range report.IndirectlyAffected {
		indirect = append(indirect, l.FQSL())
	}
	pages := make([]string, 0, len(report.Citations))
	for _, c := range report.Citations {
		pages = append(pages, c.Label+" "+c.Href())
	}

	section("used by", direct)
	section("transitively used by", indirect)
	section("cited in", pages)
}
