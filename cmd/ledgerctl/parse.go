package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/grid"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/parser"
)

func newParseCmd(opts *rootOptions) *cobra.Command {
	var file, sheet string

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse an export and print the recovered tickets without writing anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := grid.Load(file, sheet)
			if err != nil {
				return err
			}

			a, log, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var catalog parser.Catalog
			if entries, err := a.Repo.ListCatalog(cmd.Context()); err != nil {
				log.Warn("catalog unavailable", zap.Error(err))
			} else {
				catalog = parser.NewCatalog(entries)
			}

			res := parser.Parse(g, parser.Options{Catalog: catalog})
			return opts.printJSON(map[string]any{
				"tickets": res.Tickets,
				"errors":  res.Errors,
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to a .xlsx or .csv export")
	cmd.Flags().StringVar(&sheet, "sheet", "", "worksheet name (default: first sheet)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
