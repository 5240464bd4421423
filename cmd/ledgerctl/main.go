// Command ledgerctl is the operator tool for the sale-ticket ledgers: it
// parses exports offline, imports them for a tenant, prints summaries and
// mints API tokens.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/app"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/config"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/logger"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	logLevel string
	out      io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{out: out}

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Parse, import and summarize point-of-sale sale ticket exports",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newParseCmd(opts),
		newImportCmd(opts),
		newSummaryCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

// logger writes to stderr so stdout stays machine readable.
func (o *rootOptions) logger() (*zap.Logger, error) {
	return logger.New(logger.Config{Level: o.logLevel, Format: "console", Output: "stderr"})
}

// open loads config from the environment and builds the application.
func (o *rootOptions) open(ctx context.Context) (*app.App, *zap.Logger, error) {
	log, err := o.logger()
	if err != nil {
		return nil, nil, err
	}
	a, err := app.Build(ctx, config.Load(), log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}

func (o *rootOptions) printJSON(v any) error {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type tenantFlags struct {
	org       string
	franchise string
}

func (f *tenantFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.org, "org", "", "organization id")
	cmd.Flags().StringVar(&f.franchise, "franchise", "", "franchise id")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("franchise")
}

func (f *tenantFlags) tenant() (domain.Tenant, error) {
	t := domain.Tenant{OrgID: strings.TrimSpace(f.org), FranchiseID: strings.TrimSpace(f.franchise)}
	if !t.Valid() {
		return domain.Tenant{}, fmt.Errorf("--org and --franchise must not be blank")
	}
	return t, nil
}
