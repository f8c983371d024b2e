package main

import (
	"context"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/nerdswords/azure-insights-collector/pkg/clients/azure"
	"github.com/nerdswords/azure-insights-collector/pkg/config"
	"github.com/nerdswords/azure-insights-collector/pkg/export"
	"github.com/nerdswords/azure-insights-collector/pkg/job"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
	"github.com/nerdswords/azure-insights-collector/pkg/promutil"
)

// startCollection is the default action: collect every enabled category,
// render tables and export CSVs. Recoverable per-resource errors do not
// affect the exit code; authentication, config and primary listing failures
// do.
func startCollection(c *cli.Context) error {
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
	ctx = config.CtxWithFlags(ctx, newFeatureFlags(c))

	logger.Info("Starting collection", "subscription_id", cfg.SubscriptionID, "cloud", string(cfg.Cloud))

	factory, err := azure.NewFactory(ctx, logger, cfg)
	if err != nil {
		return err
	}

	scraper := job.NewScraper(logger, cfg, factory, job.TimeClock{})
	result, jobErrors, err := scraper.Run(ctx)
	if err != nil {
		return err
	}
	for _, jobError := range jobErrors {
		logger.Warn(jobError.Message, jobError.ToLoggerKeyVals()...)
	}

	if err := writeOutputs(cfg, result); err != nil {
		return err
	}

	if c.Bool(debugFlag) {
		promutil.DumpRegistry(logger, promutil.NewRegistry())
	}
	return nil
}

func writeOutputs(cfg model.RunConfig, result model.RunResult) error {
	if cfg.Output.Wants(model.FormatTable) {
		if result.SubscriptionName != "" {
			logger.Info("Collected subscription", "name", result.SubscriptionName)
		}
		if result.Storage != nil {
			export.RenderStorageTable(os.Stdout, result.Storage)
		}
		if result.Machines != nil {
			export.RenderMachinesTable(os.Stdout, result.Machines)
		}
		if result.Network != nil {
			export.RenderNetworkTable(os.Stdout, result.Network)
		}
	}

	if !cfg.Output.Wants(model.FormatCSV) {
		return nil
	}

	// One shared timestamp so the exported files of a run line up by name.
	now := time.Now()
	g := new(errgroup.Group)
	if result.Storage != nil {
		g.Go(func() error {
			headers, rows := export.StorageCSV(result.Storage)
			path, err := export.WriteCSV(cfg.Output.Directory, export.StoragePrefix, now, headers, rows)
			if err != nil {
				return err
			}
			logger.Info("Storage account metrics exported", "path", path)
			return nil
		})
	}
	if result.Machines != nil {
		g.Go(func() error {
			headers, rows := export.MachinesCSV(result.Machines)
			path, err := export.WriteCSV(cfg.Output.Directory, export.MachinesPrefix, now, headers, rows)
			if err != nil {
				return err
			}
			logger.Info("VM metrics exported", "path", path)
			return nil
		})
	}
	if result.Network != nil {
		g.Go(func() error {
			headers, rows := export.NetworkCSV(result.Network)
			path, err := export.WriteCSV(cfg.Output.Directory, export.NetworkPrefix, now, headers, rows)
			if err != nil {
				return err
			}
			logger.Info("Network metrics exported", "path", path)
			return nil
		})
	}
	return g.Wait()
}
