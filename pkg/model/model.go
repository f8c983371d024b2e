package model

import (
	"strings"
	"time"

	"github.com/grafana/regexp"
)

const (
	DefaultLookbackHours = 24
	DefaultIntervalHours = 1
	DefaultConcurrency   = 5
)

// CloudEnvironment selects the Azure cloud the collector talks to.
type CloudEnvironment string

const (
	CloudPublic     CloudEnvironment = "public"
	CloudGovernment CloudEnvironment = "government"
	CloudChina      CloudEnvironment = "china"
)

// RunConfig is the validated, resolved configuration a collection run
// operates on. It is produced by pkg/config and never mutated afterwards.
type RunConfig struct {
	SubscriptionID string
	Cloud          CloudEnvironment
	Window         WindowConfig
	Concurrency    ConcurrencyConfig
	Storage        StorageJob
	Machines       MachinesJob
	Network        NetworkJob
	Output         OutputConfig
}

type WindowConfig struct {
	Lookback time.Duration
	Interval time.Duration
}

type ConcurrencyConfig struct {
	Resources  int
	MonitorAPI int
	HealthAPI  int
}

type StorageJob struct {
	Enabled    bool
	NameFilter *regexp.Regexp
	Metrics    []string
}

type MachinesJob struct {
	Enabled    bool
	IncludeArc bool
	NameFilter *regexp.Regexp
}

type NetworkJob struct {
	Enabled bool
	// TypeKeys are registry keys from pkg/config, in the order the run
	// should process them.
	TypeKeys []string
}

type OutputConfig struct {
	Directory string
	Formats   []OutputFormat
}

type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatCSV   OutputFormat = "csv"
)

func (o OutputConfig) Wants(f OutputFormat) bool {
	for _, format := range o.Formats {
		if format == f {
			return true
		}
	}
	return false
}

// ResourceDescriptor identifies a cloud resource returned by enumeration.
type ResourceDescriptor struct {
	ID       string
	Name     string
	Type     string
	Location string
}

func (r ResourceDescriptor) ResourceGroup() string {
	return ResourceGroupFromID(r.ID)
}

// Datapoint is one observation of a metric time series. Missing aggregations
// stay nil, matching what the Monitor API returns for empty buckets.
type Datapoint struct {
	Timestamp time.Time
	Average   *float64
	Total     *float64
}

// MetricSeries is a named series of datapoints for a single resource.
type MetricSeries struct {
	Name       string
	Unit       string
	Datapoints []Datapoint
}

// RowStatus marks whether a report row carries real values or stands in for
// a failed fetch.
type RowStatus string

const (
	StatusOK    RowStatus = "ok"
	StatusError RowStatus = "error"
)

// StorageMetrics holds the aggregated 24h metrics of one storage account.
// Nil means the series was absent from the Monitor response.
type StorageMetrics struct {
	Transactions  *float64
	Ingress       *float64
	Egress        *float64
	UsedCapacity  *float64
	E2ELatency    *float64
	ServerLatency *float64
	Availability  *float64
}

type StorageRow struct {
	Account       string
	ResourceGroup string
	Metrics       StorageMetrics
	Status        RowStatus
}

// MachineKind distinguishes native VMs from Arc-connected machines.
type MachineKind string

const (
	KindCompute MachineKind = "Compute"
	KindArc     MachineKind = "Arc"
)

type MachineRow struct {
	Name           string
	ResourceGroup  string
	Kind           MachineKind
	PowerState     string
	InsightsStatus string
	Monitored      bool
}

// MachinesResult is the machine rows plus the totals the report footer shows.
type MachinesResult struct {
	Rows      []MachineRow
	Total     int
	Monitored int
}

type NetworkRow struct {
	TypeKey           string
	Name              string
	ResourceGroup     string
	ProvisioningState string
	HealthState       string
}

// RunResult is the materialized output of one collection run, complete
// before any rendering or export happens.
type RunResult struct {
	SubscriptionID   string
	SubscriptionName string
	WindowStart      time.Time
	WindowEnd        time.Time
	Storage          []StorageRow
	Machines         *MachinesResult
	Network          []NetworkRow
}

// ResourceGroupFromID extracts the resource group segment of an ARM
// resource ID, lowercased. IDs look like
// /subscriptions/<sub>/resourceGroups/<rg>/providers/...
func ResourceGroupFromID(id string) string {
	return strings.ToLower(SlashSegment(id, 4))
}

// SlashSegment returns the idx-th slash-delimited segment of id, or ""
// when the ID is too short.
func SlashSegment(id string, idx int) string {
	parts := strings.Split(id, "/")
	if idx < 0 || idx >= len(parts) {
		return ""
	}
	return parts[idx]
}
