package job

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nerdswords/azure-insights-collector/pkg/clients/resources"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
)

func virtualMachine(name string) model.ResourceDescriptor {
	return model.ResourceDescriptor{
		ID:   "/subscriptions/sub/resourceGroups/Compute-RG/providers/Microsoft.Compute/virtualMachines/" + name,
		Name: name,
		Type: "Microsoft.Compute/virtualMachines",
	}
}

func arcMachine(name string, connected bool) resources.ArcMachine {
	return resources.ArcMachine{
		ResourceDescriptor: model.ResourceDescriptor{
			ID:   "/subscriptions/sub/resourceGroups/Edge-RG/providers/Microsoft.HybridCompute/machines/" + name,
			Name: name,
			Type: "Microsoft.HybridCompute/machines",
		},
		Connected: connected,
	}
}

func TestPowerStateFromCodes(t *testing.T) {
	testCases := []struct {
		name  string
		codes []string
		want  string
	}{
		{name: "running", codes: []string{"ProvisioningState/succeeded", "PowerState/running"}, want: PowerStateRunning},
		{name: "deallocated", codes: []string{"PowerState/deallocated"}, want: PowerStateStopped},
		{name: "stopped", codes: []string{"PowerState/stopped"}, want: PowerStateStopped},
		{name: "no power code", codes: []string{"ProvisioningState/succeeded"}, want: PowerStateUnknown},
		{name: "empty", codes: nil, want: PowerStateUnknown},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, powerStateFromCodes(tc.codes))
		})
	}
}

func TestHasMonitorAgent(t *testing.T) {
	testCases := []struct {
		name       string
		extensions []resources.Extension
		want       bool
	}{
		{
			name:       "windows agent succeeded",
			extensions: []resources.Extension{{Name: "AzureMonitorWindowsAgent", ProvisioningState: "Succeeded"}},
			want:       true,
		},
		{
			name:       "linux agent succeeded",
			extensions: []resources.Extension{{Name: "AzureMonitorLinuxAgent", ProvisioningState: "Succeeded"}},
			want:       true,
		},
		{
			name:       "agent still provisioning",
			extensions: []resources.Extension{{Name: "AzureMonitorWindowsAgent", ProvisioningState: "Creating"}},
			want:       false,
		},
		{
			name:       "unrelated extension",
			extensions: []resources.Extension{{Name: "CustomScriptExtension", ProvisioningState: "Succeeded"}},
			want:       false,
		},
		{
			name: "no extensions",
			want: false,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, hasMonitorAgent(tc.extensions))
		})
	}
}

func TestResolveInsightsStatus(t *testing.T) {
	agent := []resources.Extension{{Name: "AzureMonitorLinuxAgent", ProvisioningState: "Succeeded"}}
	vm := virtualMachine("vm-a")

	testCases := []struct {
		name       string
		extensions []resources.Extension
		extErr     error
		dcr        int
		dcrErr     error
		want       string
		wantErr    bool
	}{
		{name: "agent extension wins", extensions: agent, want: InsightsEnabled},
		{name: "dcr association fallback", dcr: 2, want: InsightsEnabled},
		{name: "nothing enabled", want: InsightsNotEnabled},
		{name: "extension error with dcr", extErr: errors.New("boom"), dcr: 1, want: InsightsEnabled},
		{name: "extension error without dcr", extErr: errors.New("boom"), want: InsightsUnknown, wantErr: true},
		{name: "dcr error", dcrErr: errors.New("boom"), want: InsightsUnknown, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			scraper := newTestScraper(testRunConfig(), fakeFactory{
				resources: fakeResources{},
				monitor:   fakeMonitor{},
				health:    fakeHealth{},
			})
			monitorClient := fakeMonitor{
				dcr: map[string]int{vm.ID: tc.dcr},
			}
			if tc.dcrErr != nil {
				monitorClient.dcrErr = map[string]error{vm.ID: tc.dcrErr}
			}

			status, err := scraper.resolveInsightsStatus(context.Background(), monitorClient, vm.ID, tc.extensions, tc.extErr)
			require.Equal(t, tc.want, status)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRunMachines_MixedFleet(t *testing.T) {
	vmMonitored := virtualMachine("vm-monitored")
	vmBare := virtualMachine("vm-bare")
	arcConnected := arcMachine("arc-edge", true)
	arcOffline := arcMachine("arc-offline", false)

	cfg := testRunConfig()
	cfg.Storage.Enabled = false
	cfg.Network.Enabled = false

	scraper := newTestScraper(cfg, fakeFactory{
		resources: fakeResources{
			vms:         []model.ResourceDescriptor{vmMonitored, vmBare},
			arcMachines: []resources.ArcMachine{arcConnected, arcOffline},
			powerCodes: map[string][]string{
				"vm-monitored": {"PowerState/running"},
				"vm-bare":      {"PowerState/deallocated"},
			},
			vmExtensions: map[string][]resources.Extension{
				"vm-monitored": {{Name: "AzureMonitorWindowsAgent", ProvisioningState: "Succeeded"}},
			},
			arcExtensions: map[string][]resources.Extension{
				"arc-edge": {{Name: "AzureMonitorLinuxAgent", ProvisioningState: "Succeeded"}},
			},
		},
		monitor: fakeMonitor{},
		health:  fakeHealth{},
	})

	result, jobErrors, err := scraper.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, jobErrors)
	require.NotNil(t, result.Machines)

	require.Equal(t, 4, result.Machines.Total)
	require.Equal(t, 2, result.Machines.Monitored)
	require.Len(t, result.Machines.Rows, 4)

	byName := map[string]model.MachineRow{}
	for _, row := range result.Machines.Rows {
		byName[row.Name] = row
	}

	require.Equal(t, model.KindCompute, byName["vm-monitored"].Kind)
	require.Equal(t, PowerStateRunning, byName["vm-monitored"].PowerState)
	require.Equal(t, InsightsEnabled, byName["vm-monitored"].InsightsStatus)
	require.True(t, byName["vm-monitored"].Monitored)

	require.Equal(t, PowerStateStopped, byName["vm-bare"].PowerState)
	require.Equal(t, InsightsNotEnabled, byName["vm-bare"].InsightsStatus)
	require.False(t, byName["vm-bare"].Monitored)

	// Arc machines derive their power state from agent connectivity.
	require.Equal(t, model.KindArc, byName["arc-edge"].Kind)
	require.Equal(t, PowerStateRunning, byName["arc-edge"].PowerState)
	require.Equal(t, "edge-rg", byName["arc-edge"].ResourceGroup)
	require.Equal(t, PowerStateStopped, byName["arc-offline"].PowerState)

	// Rows come back sorted by machine name.
	require.Equal(t, "arc-edge", result.Machines.Rows[0].Name)
	require.Equal(t, "vm-monitored", result.Machines.Rows[3].Name)
}

func TestRunMachines_PowerStateFailureIsRecoverable(t *testing.T) {
	vm := virtualMachine("vm-flaky")

	cfg := testRunConfig()
	cfg.Storage.Enabled = false
	cfg.Network.Enabled = false
	cfg.Machines.IncludeArc = false

	scraper := newTestScraper(cfg, fakeFactory{
		resources: fakeResources{
			vms:      []model.ResourceDescriptor{vm},
			powerErr: map[string]error{"vm-flaky": errors.New("instance view unavailable")},
		},
		monitor: fakeMonitor{},
		health:  fakeHealth{},
	})

	result, jobErrors, err := scraper.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, jobErrors, 1)
	require.Equal(t, "machines", jobErrors[0].Category)

	require.Len(t, result.Machines.Rows, 1)
	require.Equal(t, PowerStateUnknown, result.Machines.Rows[0].PowerState)
	require.Equal(t, InsightsNotEnabled, result.Machines.Rows[0].InsightsStatus)
}
