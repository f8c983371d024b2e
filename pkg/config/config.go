package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/grafana/regexp"
	"gopkg.in/yaml.v2"

	"github.com/nerdswords/azure-insights-collector/pkg/logging"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
)

// CollectConf mirrors the YAML configuration file. Load resolves it into a
// model.RunConfig; the raw struct is not used past that point.
type CollectConf struct {
	APIVersion     string        `yaml:"apiVersion"`
	SubscriptionID string        `yaml:"subscriptionId"`
	Cloud          string        `yaml:"cloud"`
	Window         *Window       `yaml:"window"`
	Concurrency    *Concurrency  `yaml:"concurrency"`
	Storage        *StorageConf  `yaml:"storage"`
	Machines       *MachinesConf `yaml:"machines"`
	Network        *NetworkConf  `yaml:"network"`
	Output         *OutputConf   `yaml:"output"`
}

type Window struct {
	LookbackHours int `yaml:"lookbackHours"`
	IntervalHours int `yaml:"intervalHours"`
}

type Concurrency struct {
	Resources  int `yaml:"resources"`
	MonitorAPI int `yaml:"monitorAPI"`
	HealthAPI  int `yaml:"healthAPI"`
}

type StorageConf struct {
	Enabled    *bool    `yaml:"enabled"`
	NameFilter string   `yaml:"nameFilter"`
	Metrics    []string `yaml:"metrics"`
}

type MachinesConf struct {
	Enabled    *bool  `yaml:"enabled"`
	IncludeArc *bool  `yaml:"includeArc"`
	NameFilter string `yaml:"nameFilter"`
}

type NetworkConf struct {
	Enabled       *bool    `yaml:"enabled"`
	ResourceTypes []string `yaml:"resourceTypes"`
}

type OutputConf struct {
	Directory string   `yaml:"directory"`
	Formats   []string `yaml:"formats"`
}

// DefaultStorageMetrics is the metric set the original report collects per
// storage account when no override is configured.
var DefaultStorageMetrics = []string{
	"Transactions",
	"Ingress",
	"Egress",
	"UsedCapacity",
	"SuccessServerLatency",
	"SuccessE2ELatency",
	"Availability",
}

// Load reads the config file, warns about unknown fields, applies defaults
// and validates. A missing file is not an error when the subscription can be
// resolved from the environment; every other failure is fatal to the run.
func (c *CollectConf) Load(file string, logger logging.Logger) (model.RunConfig, error) {
	if file != "" {
		yamlFile, err := os.ReadFile(file)
		if err != nil {
			return model.RunConfig{}, err
		}
		if err := yaml.Unmarshal(yamlFile, c); err != nil {
			return model.RunConfig{}, err
		}
		logConfigErrors(yamlFile, logger)
	}

	if c.SubscriptionID == "" {
		c.SubscriptionID = os.Getenv("AZURE_SUBSCRIPTION_ID")
	}

	c.applyDefaults()

	return c.Validate()
}

func (c *CollectConf) applyDefaults() {
	if c.Cloud == "" {
		c.Cloud = string(model.CloudPublic)
	}
	if c.Window == nil {
		c.Window = &Window{}
	}
	if c.Window.LookbackHours == 0 {
		c.Window.LookbackHours = model.DefaultLookbackHours
	}
	if c.Window.IntervalHours == 0 {
		c.Window.IntervalHours = model.DefaultIntervalHours
	}
	if c.Concurrency == nil {
		c.Concurrency = &Concurrency{}
	}
	if c.Concurrency.Resources == 0 {
		c.Concurrency.Resources = model.DefaultConcurrency
	}
	if c.Concurrency.MonitorAPI == 0 {
		c.Concurrency.MonitorAPI = model.DefaultConcurrency
	}
	if c.Concurrency.HealthAPI == 0 {
		c.Concurrency.HealthAPI = model.DefaultConcurrency
	}
	if c.Storage == nil {
		c.Storage = &StorageConf{}
	}
	if len(c.Storage.Metrics) == 0 {
		c.Storage.Metrics = DefaultStorageMetrics
	}
	if c.Machines == nil {
		c.Machines = &MachinesConf{}
	}
	if c.Network == nil {
		c.Network = &NetworkConf{}
	}
	if len(c.Network.ResourceTypes) == 0 {
		c.Network.ResourceTypes = SupportedNetworkResources.Keys()
	}
	if c.Output == nil {
		c.Output = &OutputConf{}
	}
	if c.Output.Directory == "" {
		c.Output.Directory = "."
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = []string{string(model.FormatTable), string(model.FormatCSV)}
	}
}

func (c *CollectConf) Validate() (model.RunConfig, error) {
	if c.APIVersion != "" && c.APIVersion != "v1alpha1" {
		return model.RunConfig{}, fmt.Errorf("unknown apiVersion value '%s'", c.APIVersion)
	}
	if c.SubscriptionID == "" {
		return model.RunConfig{}, fmt.Errorf("subscriptionId should not be empty (set it in the config file or via AZURE_SUBSCRIPTION_ID)")
	}
	switch model.CloudEnvironment(c.Cloud) {
	case model.CloudPublic, model.CloudGovernment, model.CloudChina:
	default:
		return model.RunConfig{}, fmt.Errorf("cloud: unknown value '%s', expected one of public, government, china", c.Cloud)
	}
	if c.Window.LookbackHours < 0 || c.Window.IntervalHours < 0 {
		return model.RunConfig{}, fmt.Errorf("window: lookbackHours and intervalHours should be positive")
	}
	if c.Window.IntervalHours > c.Window.LookbackHours {
		return model.RunConfig{}, fmt.Errorf("window: intervalHours should not exceed lookbackHours")
	}
	if c.Concurrency.Resources < 0 || c.Concurrency.MonitorAPI < 0 || c.Concurrency.HealthAPI < 0 {
		return model.RunConfig{}, fmt.Errorf("concurrency: limits should be positive")
	}

	storageFilter, err := compileFilter("storage", c.Storage.NameFilter)
	if err != nil {
		return model.RunConfig{}, err
	}
	machinesFilter, err := compileFilter("machines", c.Machines.NameFilter)
	if err != nil {
		return model.RunConfig{}, err
	}

	for _, key := range c.Network.ResourceTypes {
		if SupportedNetworkResources.Get(key) == nil {
			return model.RunConfig{}, fmt.Errorf("network: resource type is not in known list!: %s", key)
		}
	}

	formats := make([]model.OutputFormat, 0, len(c.Output.Formats))
	for _, f := range c.Output.Formats {
		switch model.OutputFormat(f) {
		case model.FormatTable, model.FormatCSV:
			formats = append(formats, model.OutputFormat(f))
		default:
			return model.RunConfig{}, fmt.Errorf("output: unknown format value '%s', expected table or csv", f)
		}
	}

	return model.RunConfig{
		SubscriptionID: c.SubscriptionID,
		Cloud:          model.CloudEnvironment(c.Cloud),
		Window: model.WindowConfig{
			Lookback: time.Duration(c.Window.LookbackHours) * time.Hour,
			Interval: time.Duration(c.Window.IntervalHours) * time.Hour,
		},
		Concurrency: model.ConcurrencyConfig{
			Resources:  c.Concurrency.Resources,
			MonitorAPI: c.Concurrency.MonitorAPI,
			HealthAPI:  c.Concurrency.HealthAPI,
		},
		Storage: model.StorageJob{
			Enabled:    c.Storage.Enabled == nil || *c.Storage.Enabled,
			NameFilter: storageFilter,
			Metrics:    c.Storage.Metrics,
		},
		Machines: model.MachinesJob{
			Enabled:    c.Machines.Enabled == nil || *c.Machines.Enabled,
			IncludeArc: c.Machines.IncludeArc == nil || *c.Machines.IncludeArc,
			NameFilter: machinesFilter,
		},
		Network: model.NetworkJob{
			Enabled:  c.Network.Enabled == nil || *c.Network.Enabled,
			TypeKeys: c.Network.ResourceTypes,
		},
		Output: model.OutputConfig{
			Directory: c.Output.Directory,
			Formats:   formats,
		},
	}, nil
}

func compileFilter(section, expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%s: nameFilter has invalid regex value %q: %w", section, expr, err)
	}
	return re, nil
}

// logConfigErrors logs as warning any config unmarshalling error.
func logConfigErrors(cfg []byte, logger logging.Logger) {
	var cc CollectConf
	var errMsgs []string
	if err := yaml.UnmarshalStrict(cfg, &cc); err != nil {
		terr := &yaml.TypeError{}
		if errors.As(err, &terr) {
			errMsgs = append(errMsgs, terr.Errors...)
		} else {
			errMsgs = append(errMsgs, err.Error())
		}
	}

	if cc.APIVersion == "" {
		errMsgs = append(errMsgs, "missing apiVersion")
	}

	if len(errMsgs) > 0 {
		for _, msg := range errMsgs {
			logger.Warn("config file syntax error", "err", msg)
		}
		logger.Warn(`Config file error(s) detected: the collector might not work as expected. Future versions might fail to run with an invalid config file.`)
	}
}
