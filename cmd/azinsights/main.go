package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nerdswords/azure-insights-collector/pkg/config"
	"github.com/nerdswords/azure-insights-collector/pkg/logging"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
)

var version = "custom-build"

const (
	configFileFlag    = "config"
	debugFlag         = "debug"
	logFormatFlag     = "log-format"
	outputDirFlag     = "output-dir"
	outputFormatFlag  = "format"
	timeoutFlag       = "timeout"
	enableFeatureFlag = "enable-feature"
)

var logger logging.Logger

// NewAzInsightsApp creates a new cli.App implementing the collector's
// entrypoint with its flags and subcommands.
func NewAzInsightsApp() *cli.App {
	app := cli.NewApp()
	app.Name = "azinsights"
	app.Version = version
	app.Usage = "Azure subscription insights collector"
	app.Description = "Collects storage metrics, machine monitoring coverage and network health from an Azure subscription, renders them as tables and exports them to timestamped CSV files"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    configFileFlag,
			Value:   "",
			Usage:   "Path to the configuration file. Without one the subscription comes from AZURE_SUBSCRIPTION_ID and defaults apply",
			EnvVars: []string{"AZINSIGHTS_CONFIG"},
		},
		&cli.BoolFlag{
			Name:  debugFlag,
			Value: false,
			Usage: "Verbose logging plus an API call summary at the end of the run",
		},
		&cli.StringFlag{
			Name:  logFormatFlag,
			Value: "logfmt",
			Usage: "Output format of log messages. One of: [logfmt, json]",
		},
		&cli.StringFlag{
			Name:  outputDirFlag,
			Value: "",
			Usage: "Directory CSV files are written to, overriding the config file",
		},
		&cli.StringFlag{
			Name:  outputFormatFlag,
			Value: "",
			Usage: "Output selection overriding the config file. One of: [table, csv, both]",
		},
		&cli.DurationFlag{
			Name:  timeoutFlag,
			Value: 0,
			Usage: "Overall run timeout, 0 disables it",
		},
		&cli.StringSliceFlag{
			Name:  enableFeatureFlag,
			Usage: "Comma separated list of feature flags to enable",
		},
	}

	app.Before = func(c *cli.Context) error {
		logger = logging.NewLogger(c.String(logFormatFlag), c.Bool(debugFlag), "version", version)
		return nil
	}

	app.Commands = []*cli.Command{
		{
			Name:   "collect",
			Usage:  "Runs the full collection, same as invoking without a command",
			Action: startCollection,
		},
		{
			Name:  "verify-config",
			Usage: "Loads and attempts to parse config file, then exits. Useful for CICD validation",
			Action: func(c *cli.Context) error {
				file := c.String(configFileFlag)
				cc := config.CollectConf{}
				if _, err := cc.Load(file, logger); err != nil {
					return cli.Exit(fmt.Sprintf("Couldn't read %s: %s", file, err), 1)
				}
				logger.Info("Config is valid", "path", file)
				return nil
			},
		},
		newQueryCommand(),
		newReportCommand(),
		{
			Name:  "version",
			Usage: "Prints the collector version and exits",
			Action: func(_ *cli.Context) error {
				fmt.Println(version)
				return nil
			},
		},
	}

	// The default invocation with no arguments runs the full collection.
	app.Action = startCollection

	return app
}

// loadRunConfig loads and validates the config file and applies the
// output-related flag overrides.
func loadRunConfig(c *cli.Context) (model.RunConfig, error) {
	cc := config.CollectConf{}
	cfg, err := cc.Load(c.String(configFileFlag), logger)
	if err != nil {
		return model.RunConfig{}, err
	}

	if dir := c.String(outputDirFlag); dir != "" {
		cfg.Output.Directory = dir
	}
	switch c.String(outputFormatFlag) {
	case "":
	case "table":
		cfg.Output.Formats = []model.OutputFormat{model.FormatTable}
	case "csv":
		cfg.Output.Formats = []model.OutputFormat{model.FormatCSV}
	case "both":
		cfg.Output.Formats = []model.OutputFormat{model.FormatTable, model.FormatCSV}
	default:
		return model.RunConfig{}, fmt.Errorf("unknown format value '%s', expected table, csv or both", c.String(outputFormatFlag))
	}
	return cfg, nil
}

// featureFlags adapts the -enable-feature flag values to config.FeatureFlags.
type featureFlags struct {
	enabled map[string]bool
}

func newFeatureFlags(c *cli.Context) featureFlags {
	enabled := map[string]bool{}
	for _, flag := range c.StringSlice(enableFeatureFlag) {
		logger.Info("Enabling feature flag", "flag", flag)
		enabled[flag] = true
	}
	return featureFlags{enabled: enabled}
}

func (f featureFlags) IsFeatureEnabled(flag string) bool {
	return f.enabled[flag]
}

func runTimeout(c *cli.Context) time.Duration {
	return c.Duration(timeoutFlag)
}

func main() {
	app := NewAzInsightsApp()
	if err := app.Run(os.Args); err != nil {
		if logger != nil {
			logger.Error(err, "Run failed")
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
