package job

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/nerdswords/azure-insights-collector/pkg/clients/monitor"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/resources"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
)

const (
	PowerStateRunning = "running"
	PowerStateStopped = "stopped"
	PowerStateUnknown = "unknown"

	InsightsEnabled    = "Enabled"
	InsightsNotEnabled = "Not enabled"
	InsightsUnknown    = "Unknown"
)

func (s *Scraper) runMachines(ctx context.Context) (*model.MachinesResult, []Error, error) {
	resourcesClient := s.factory.GetResourcesClient(s.cfg.Concurrency.Resources)
	monitorClient := s.factory.GetMonitorClient(s.cfg.Concurrency.MonitorAPI)

	vms, err := resourcesClient.ListVirtualMachines(ctx)
	if err != nil {
		return nil, nil, err
	}

	var arcMachines []resources.ArcMachine
	if s.cfg.Machines.IncludeArc {
		arcMachines, err = resourcesClient.ListArcMachines(ctx)
		if err != nil {
			return nil, nil, err
		}
	}
	s.logger.Info("Machines found", "native", len(vms), "arc", len(arcMachines))

	var wg sync.WaitGroup
	mux := &sync.Mutex{}
	result := &model.MachinesResult{}
	var jobErrors []Error

	record := func(row model.MachineRow, errs []Error) {
		mux.Lock()
		defer mux.Unlock()
		result.Rows = append(result.Rows, row)
		result.Total++
		if row.Monitored {
			result.Monitored++
		}
		jobErrors = append(jobErrors, errs...)
	}

	for _, vm := range vms {
		if s.cfg.Machines.NameFilter != nil && !s.cfg.Machines.NameFilter.MatchString(vm.Name) {
			continue
		}
		wg.Add(1)
		go func(vm model.ResourceDescriptor) {
			defer wg.Done()
			record(s.processVirtualMachine(ctx, resourcesClient, monitorClient, vm))
		}(vm)
	}

	for _, machine := range arcMachines {
		if s.cfg.Machines.NameFilter != nil && !s.cfg.Machines.NameFilter.MatchString(machine.Name) {
			continue
		}
		wg.Add(1)
		go func(machine resources.ArcMachine) {
			defer wg.Done()
			record(s.processArcMachine(ctx, resourcesClient, monitorClient, machine))
		}(machine)
	}
	wg.Wait()

	sort.Slice(result.Rows, func(i, j int) bool { return result.Rows[i].Name < result.Rows[j].Name })
	return result, jobErrors, nil
}

func (s *Scraper) processVirtualMachine(ctx context.Context, resourcesClient resources.Client, monitorClient monitor.Client, vm model.ResourceDescriptor) (model.MachineRow, []Error) {
	row := model.MachineRow{
		Name:          vm.Name,
		ResourceGroup: vm.ResourceGroup(),
		Kind:          model.KindCompute,
	}
	var errs []Error

	codes, err := resourcesClient.GetVirtualMachinePowerState(ctx, vm.ResourceGroup(), vm.Name)
	if err != nil {
		row.PowerState = PowerStateUnknown
		errs = append(errs, NewError("machines", vm.Name, "Failed to check power state", err))
		s.logger.Warn("Power state check failed, continuing", "machine", vm.Name, "err", err.Error())
	} else {
		row.PowerState = powerStateFromCodes(codes)
	}

	extensions, extErr := resourcesClient.ListVirtualMachineExtensions(ctx, vm.ResourceGroup(), vm.Name)
	row.InsightsStatus, err = s.resolveInsightsStatus(ctx, monitorClient, vm.ID, extensions, extErr)
	if err != nil {
		errs = append(errs, NewError("machines", vm.Name, "Failed to check insights status", err))
		s.logger.Warn("Insights status check failed, continuing", "machine", vm.Name, "err", err.Error())
	}
	row.Monitored = row.InsightsStatus == InsightsEnabled
	return row, errs
}

func (s *Scraper) processArcMachine(ctx context.Context, resourcesClient resources.Client, monitorClient monitor.Client, machine resources.ArcMachine) (model.MachineRow, []Error) {
	row := model.MachineRow{
		Name:          machine.Name,
		ResourceGroup: machine.ResourceGroup(),
		Kind:          model.KindArc,
		PowerState:    PowerStateStopped,
	}
	if machine.Connected {
		row.PowerState = PowerStateRunning
	}

	var errs []Error
	extensions, extErr := resourcesClient.ListArcMachineExtensions(ctx, machine.ResourceGroup(), machine.Name)
	var err error
	row.InsightsStatus, err = s.resolveInsightsStatus(ctx, monitorClient, machine.ID, extensions, extErr)
	if err != nil {
		errs = append(errs, NewError("machines", machine.Name, "Failed to check insights status", err))
		s.logger.Warn("Insights status check failed, continuing", "machine", machine.Name, "err", err.Error())
	}
	row.Monitored = row.InsightsStatus == InsightsEnabled
	return row, errs
}

// resolveInsightsStatus decides whether a machine counts as monitored: an
// Azure Monitor agent extension that provisioned successfully wins, then a
// non-empty set of data collection rule associations. An error in either
// check degrades the status to Unknown instead of failing the machine.
func (s *Scraper) resolveInsightsStatus(ctx context.Context, monitorClient monitor.Client, resourceID string, extensions []resources.Extension, extErr error) (string, error) {
	if extErr == nil && hasMonitorAgent(extensions) {
		return InsightsEnabled, nil
	}

	count, dcrErr := monitorClient.CountDataCollectionRuleAssociations(ctx, resourceID)
	if dcrErr == nil && count > 0 {
		return InsightsEnabled, nil
	}

	if extErr != nil {
		return InsightsUnknown, extErr
	}
	if dcrErr != nil {
		return InsightsUnknown, dcrErr
	}
	return InsightsNotEnabled, nil
}

// hasMonitorAgent reports whether an Azure Monitor agent extension is
// installed and provisioned.
func hasMonitorAgent(extensions []resources.Extension) bool {
	for _, ext := range extensions {
		name := strings.ToLower(ext.Name)
		if strings.Contains(name, "azuremonitor") && strings.Contains(name, "agent") && ext.ProvisioningState == "Succeeded" {
			return true
		}
	}
	return false
}

// powerStateFromCodes maps instance view status codes to a power state.
// Codes look like "PowerState/running" or "PowerState/deallocated".
func powerStateFromCodes(codes []string) string {
	for _, code := range codes {
		lower := strings.ToLower(code)
		if !strings.Contains(lower, "powerstate") {
			continue
		}
		if strings.Contains(lower, "running") {
			return PowerStateRunning
		}
		return PowerStateStopped
	}
	return PowerStateUnknown
}
