package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/grid"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/parser"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/service"
)

const defaultChunkRows = 5000

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		file, sheet string
		chunkRows   int
		force       bool
		tf          tenantFlags
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an export into a tenant's sale, return and gift-card ledgers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenant, err := tf.tenant()
			if err != nil {
				return err
			}
			g, err := grid.Load(file, sheet)
			if err != nil {
				return err
			}

			a, log, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			chunks := parser.SplitAtTickets(g, chunkRows)
			log.Info("importing", zap.String("file", file), zap.Int("rows", len(g)), zap.Int("chunks", len(chunks)))

			var skip *bool
			if force {
				off := false
				skip = &off
			}
			ctx := service.WithTenant(cmd.Context(), tenant)
			resp, err := a.Service.ImportChunks(ctx, chunks, nil, skip)
			if err != nil {
				return err
			}
			return opts.printJSON(resp)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to a .xlsx or .csv export")
	cmd.Flags().StringVar(&sheet, "sheet", "", "worksheet name (default: first sheet)")
	cmd.Flags().IntVar(&chunkRows, "chunk-rows", defaultChunkRows, "split the grid into chunks of about this many rows")
	cmd.Flags().BoolVar(&force, "force", false, "write tickets already present in the sale ledger")
	_ = cmd.MarkFlagRequired("file")
	tf.register(cmd)
	return cmd
}
