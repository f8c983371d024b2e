package main

import (
	"context"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nerdswords/azure-insights-collector/pkg/clients/azure"
	"github.com/nerdswords/azure-insights-collector/pkg/export"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
	"github.com/nerdswords/azure-insights-collector/pkg/report"
)

// newReportCommand runs the Go-native Resource Graph reports: the same
// projections the KQL assets encode, built locally from raw records.
func newReportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Build the Resource Graph backed reports",
		Subcommands: []*cli.Command{
			{
				Name:  "vulnerabilities",
				Usage: "Server vulnerability findings per machine",
				Action: func(c *cli.Context) error {
					return runReport(c, func(ctx context.Context, runner *report.Runner, cfg model.RunConfig) error {
						rows, err := runner.ServerVulnerabilities(ctx)
						if err != nil {
							return err
						}
						headers, records := export.VulnerabilityCSV(rows)
						return emitReport(cfg, "Server Vulnerability Report", export.VulnerabilityPrefix, headers, records)
					})
				},
			},
			{
				Name:  "sql-vulnerabilities",
				Usage: "SQL vulnerability findings per server and database",
				Action: func(c *cli.Context) error {
					return runReport(c, func(ctx context.Context, runner *report.Runner, cfg model.RunConfig) error {
						rows, err := runner.SQLVulnerabilities(ctx)
						if err != nil {
							return err
						}
						headers, records := export.SQLVulnerabilityCSV(rows)
						return emitReport(cfg, "SQL Vulnerability Report", export.SQLVulnerabilityPrefix, headers, records)
					})
				},
			},
			{
				Name:  "machines",
				Usage: "VM and Arc machine inventory with pending update counts",
				Action: func(c *cli.Context) error {
					return runReport(c, func(ctx context.Context, runner *report.Runner, cfg model.RunConfig) error {
						rows, err := runner.MachineInventory(ctx)
						if err != nil {
							return err
						}
						headers, records := export.MachineInventoryCSV(rows)
						return emitReport(cfg, "Machine Update Inventory", export.MachineInventoryPrefix, headers, records)
					})
				},
			},
		},
	}
}

func runReport(c *cli.Context, build func(context.Context, *report.Runner, model.RunConfig) error) error {
	cfg, err := loadRunConfig(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if timeout := runTimeout(c); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	factory, err := azure.NewFactory(ctx, logger, cfg)
	if err != nil {
		return err
	}
	runner := report.NewRunner(logger, factory.GetGraphClient(), cfg.SubscriptionID)
	return build(ctx, runner, cfg)
}

func emitReport(cfg model.RunConfig, title, prefix string, headers []string, records [][]string) error {
	if cfg.Output.Wants(model.FormatTable) {
		export.RenderTable(os.Stdout, title, headers, records)
	}
	if cfg.Output.Wants(model.FormatCSV) {
		path, err := export.WriteCSV(cfg.Output.Directory, prefix, time.Now(), headers, records)
		if err != nil {
			return err
		}
		logger.Info("Report exported", "path", path)
	}
	return nil
}
