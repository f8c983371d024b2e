package job

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/grafana/regexp"
	"github.com/stretchr/testify/require"

	"github.com/nerdswords/azure-insights-collector/pkg/clients/account"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/graph"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/health"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/monitor"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/resources"
	"github.com/nerdswords/azure-insights-collector/pkg/logging"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type fakeFactory struct {
	resources resources.Client
	monitor   monitor.Client
	health    health.Client
	graph     graph.Client
	account   account.Client
}

func (f fakeFactory) GetResourcesClient(_ int) resources.Client { return f.resources }
func (f fakeFactory) GetMonitorClient(_ int) monitor.Client     { return f.monitor }
func (f fakeFactory) GetHealthClient(_ int) health.Client       { return f.health }
func (f fakeFactory) GetGraphClient() graph.Client              { return f.graph }
func (f fakeFactory) GetAccountClient() account.Client          { return f.account }

type fakeAccount struct {
	name string
	err  error
}

func (f fakeAccount) GetSubscriptionName(_ context.Context, _ string) (string, error) {
	return f.name, f.err
}

type fakeResources struct {
	storageAccounts []model.ResourceDescriptor
	storageErr      error
	vms             []model.ResourceDescriptor
	vmsErr          error
	arcMachines     []resources.ArcMachine
	arcErr          error
	byType          map[string][]resources.GenericResource
	byTypeErr       map[string]error
	powerCodes      map[string][]string
	powerErr        map[string]error
	vmExtensions    map[string][]resources.Extension
	vmExtErr        map[string]error
	arcExtensions   map[string][]resources.Extension
	arcExtErr       map[string]error
}

func (f fakeResources) ListStorageAccounts(_ context.Context) ([]model.ResourceDescriptor, error) {
	return f.storageAccounts, f.storageErr
}

func (f fakeResources) ListVirtualMachines(_ context.Context) ([]model.ResourceDescriptor, error) {
	return f.vms, f.vmsErr
}

func (f fakeResources) ListArcMachines(_ context.Context) ([]resources.ArcMachine, error) {
	return f.arcMachines, f.arcErr
}

func (f fakeResources) ListByType(_ context.Context, armType string) ([]resources.GenericResource, error) {
	if err := f.byTypeErr[armType]; err != nil {
		return nil, err
	}
	return f.byType[armType], nil
}

func (f fakeResources) GetVirtualMachinePowerState(_ context.Context, _, name string) ([]string, error) {
	if err := f.powerErr[name]; err != nil {
		return nil, err
	}
	return f.powerCodes[name], nil
}

func (f fakeResources) ListVirtualMachineExtensions(_ context.Context, _, name string) ([]resources.Extension, error) {
	if err := f.vmExtErr[name]; err != nil {
		return nil, err
	}
	return f.vmExtensions[name], nil
}

func (f fakeResources) ListArcMachineExtensions(_ context.Context, _, name string) ([]resources.Extension, error) {
	if err := f.arcExtErr[name]; err != nil {
		return nil, err
	}
	return f.arcExtensions[name], nil
}

type fakeMonitor struct {
	series map[string][]model.MetricSeries
	err    map[string]error
	dcr    map[string]int
	dcrErr map[string]error
}

func (f fakeMonitor) QueryResource(_ context.Context, resourceID string, query monitor.MetricsQuery) ([]model.MetricSeries, error) {
	if err := f.err[resourceID]; err != nil {
		return nil, err
	}
	requested := map[string]bool{}
	for _, name := range query.MetricNames {
		requested[strings.ToLower(name)] = true
	}
	var out []model.MetricSeries
	for _, s := range f.series[resourceID] {
		if requested[strings.ToLower(s.Name)] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f fakeMonitor) CountDataCollectionRuleAssociations(_ context.Context, resourceID string) (int, error) {
	if err := f.dcrErr[resourceID]; err != nil {
		return 0, err
	}
	return f.dcr[resourceID], nil
}

type fakeHealth struct {
	states map[string]string
	err    map[string]error
}

func (f fakeHealth) GetAvailabilityState(_ context.Context, resourceID string) (string, error) {
	if err := f.err[resourceID]; err != nil {
		return health.StateUnknown, err
	}
	if state, ok := f.states[resourceID]; ok {
		return state, nil
	}
	return health.StateUnknown, nil
}

func testRunConfig() model.RunConfig {
	return model.RunConfig{
		SubscriptionID: "00000000-0000-0000-0000-000000000000",
		Cloud:          model.CloudPublic,
		Window: model.WindowConfig{
			Lookback: 24 * time.Hour,
			Interval: time.Hour,
		},
		Concurrency: model.ConcurrencyConfig{Resources: 5, MonitorAPI: 5, HealthAPI: 5},
		Storage: model.StorageJob{
			Enabled: true,
			Metrics: []string{"Transactions", "Ingress", "Egress", "UsedCapacity", "SuccessServerLatency", "SuccessE2ELatency", "Availability"},
		},
		Machines: model.MachinesJob{Enabled: true, IncludeArc: true},
		Network:  model.NetworkJob{Enabled: true, TypeKeys: []string{"virtual_networks", "public_ips"}},
		Output:   model.OutputConfig{Directory: ".", Formats: []model.OutputFormat{model.FormatTable}},
	}
}

func mustCompile(t *testing.T, expr string) *regexp.Regexp {
	t.Helper()
	re, err := regexp.Compile(expr)
	require.NoError(t, err)
	return re
}

func newTestScraper(cfg model.RunConfig, factory fakeFactory) *Scraper {
	if factory.account == nil {
		factory.account = fakeAccount{name: "Test Subscription"}
	}
	return NewScraper(logging.NewNopLogger(), cfg, factory, fixedClock{now: time.Date(2024, 5, 14, 10, 32, 11, 0, time.UTC)})
}

func TestScraperRun_DisabledCategoriesAreSkipped(t *testing.T) {
	cfg := testRunConfig()
	cfg.Storage.Enabled = false
	cfg.Machines.Enabled = false
	cfg.Network.Enabled = false

	scraper := newTestScraper(cfg, fakeFactory{
		resources: fakeResources{},
		monitor:   fakeMonitor{},
		health:    fakeHealth{},
	})

	result, jobErrors, err := scraper.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, jobErrors)
	require.Nil(t, result.Storage)
	require.Nil(t, result.Machines)
	require.Nil(t, result.Network)
	require.Equal(t, "Test Subscription", result.SubscriptionName)
}

func TestScraperRun_FatalOnStorageListingFailure(t *testing.T) {
	cfg := testRunConfig()
	scraper := newTestScraper(cfg, fakeFactory{
		resources: fakeResources{storageErr: context.DeadlineExceeded},
		monitor:   fakeMonitor{},
		health:    fakeHealth{},
	})

	_, _, err := scraper.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "storage account listing failed")
}
