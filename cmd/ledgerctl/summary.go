package main

import (
	"github.com/spf13/cobra"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/service"
)

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	var (
		from, to, store, rep string
		reps                 bool
		tf                   tenantFlags
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the metrics summary for a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenant, err := tf.tenant()
			if err != nil {
				return err
			}
			filter, err := service.ParseFilter(from, to, store, rep)
			if err != nil {
				return err
			}

			a, _, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := service.WithTenant(cmd.Context(), tenant)
			if reps {
				resp, err := a.Service.RepPerformance(ctx, filter)
				if err != nil {
					return err
				}
				return opts.printJSON(resp)
			}
			summary, err := a.Service.Summary(ctx, filter)
			if err != nil {
				return err
			}
			return opts.printJSON(summary)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day (inclusive), YYYY-MM-DD")
	cmd.Flags().StringVar(&store, "store", "", "store id")
	cmd.Flags().StringVar(&rep, "rep", "", "sales rep")
	cmd.Flags().BoolVar(&reps, "reps", false, "print the rep leaderboard and coaching view instead")
	tf.register(cmd)
	return cmd
}
