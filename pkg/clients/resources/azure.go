package resources

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/hybridcompute/armhybridcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"

	"github.com/nerdswords/azure-insights-collector/pkg/logging"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
	"github.com/nerdswords/azure-insights-collector/pkg/promutil"
)

type client struct {
	logger           logging.Logger
	storageAccounts  *armstorage.AccountsClient
	virtualMachines  *armcompute.VirtualMachinesClient
	vmExtensions     *armcompute.VirtualMachineExtensionsClient
	arcMachines      *armhybridcompute.MachinesClient
	arcExtensions    *armhybridcompute.MachineExtensionsClient
	genericResources *armresources.Client
}

// NewClient builds a resources Client on top of the ARM SDK clients.
func NewClient(
	logger logging.Logger,
	storageAccounts *armstorage.AccountsClient,
	virtualMachines *armcompute.VirtualMachinesClient,
	vmExtensions *armcompute.VirtualMachineExtensionsClient,
	arcMachines *armhybridcompute.MachinesClient,
	arcExtensions *armhybridcompute.MachineExtensionsClient,
	genericResources *armresources.Client,
) Client {
	return &client{
		logger:           logger,
		storageAccounts:  storageAccounts,
		virtualMachines:  virtualMachines,
		vmExtensions:     vmExtensions,
		arcMachines:      arcMachines,
		arcExtensions:    arcExtensions,
		genericResources: genericResources,
	}
}

func (c client) ListStorageAccounts(ctx context.Context) ([]model.ResourceDescriptor, error) {
	var accounts []model.ResourceDescriptor
	pager := c.storageAccounts.NewListPager(nil)
	for pager.More() {
		promutil.ARMAPICounter.WithLabelValues("StorageAccounts.List").Inc()
		page, err := pager.NextPage(ctx)
		if err != nil {
			promutil.ARMAPIErrorCounter.WithLabelValues("StorageAccounts.List").Inc()
			c.logger.Error(err, "ListStorageAccounts error")
			return nil, fmt.Errorf("failed to list storage accounts: %w", err)
		}
		for _, account := range page.Value {
			accounts = append(accounts, model.ResourceDescriptor{
				ID:       deref(account.ID),
				Name:     deref(account.Name),
				Type:     deref(account.Type),
				Location: deref(account.Location),
			})
		}
	}
	return accounts, nil
}

func (c client) ListVirtualMachines(ctx context.Context) ([]model.ResourceDescriptor, error) {
	var machines []model.ResourceDescriptor
	pager := c.virtualMachines.NewListAllPager(nil)
	for pager.More() {
		promutil.ARMAPICounter.WithLabelValues("VirtualMachines.ListAll").Inc()
		page, err := pager.NextPage(ctx)
		if err != nil {
			promutil.ARMAPIErrorCounter.WithLabelValues("VirtualMachines.ListAll").Inc()
			c.logger.Error(err, "ListVirtualMachines error")
			return nil, fmt.Errorf("failed to list virtual machines: %w", err)
		}
		for _, vm := range page.Value {
			machines = append(machines, model.ResourceDescriptor{
				ID:       deref(vm.ID),
				Name:     deref(vm.Name),
				Type:     deref(vm.Type),
				Location: deref(vm.Location),
			})
		}
	}
	return machines, nil
}

func (c client) ListArcMachines(ctx context.Context) ([]ArcMachine, error) {
	var machines []ArcMachine
	pager := c.arcMachines.NewListBySubscriptionPager(nil)
	for pager.More() {
		promutil.ARMAPICounter.WithLabelValues("HybridMachines.ListBySubscription").Inc()
		page, err := pager.NextPage(ctx)
		if err != nil {
			promutil.ARMAPIErrorCounter.WithLabelValues("HybridMachines.ListBySubscription").Inc()
			c.logger.Error(err, "ListArcMachines error")
			return nil, fmt.Errorf("failed to list Arc machines: %w", err)
		}
		for _, machine := range page.Value {
			connected := false
			if machine.Properties != nil && machine.Properties.Status != nil {
				connected = *machine.Properties.Status == armhybridcompute.StatusTypesConnected
			}
			machines = append(machines, ArcMachine{
				ResourceDescriptor: model.ResourceDescriptor{
					ID:       deref(machine.ID),
					Name:     deref(machine.Name),
					Type:     deref(machine.Type),
					Location: deref(machine.Location),
				},
				Connected: connected,
			})
		}
	}
	return machines, nil
}

func (c client) ListByType(ctx context.Context, armType string) ([]GenericResource, error) {
	var result []GenericResource
	pager := c.genericResources.NewListPager(&armresources.ClientListOptions{
		Filter: to.Ptr(fmt.Sprintf("resourceType eq '%s'", armType)),
		Expand: to.Ptr("provisioningState"),
	})
	for pager.More() {
		promutil.ARMAPICounter.WithLabelValues("Resources.List").Inc()
		page, err := pager.NextPage(ctx)
		if err != nil {
			promutil.ARMAPIErrorCounter.WithLabelValues("Resources.List").Inc()
			c.logger.Error(err, "ListByType error", "resource_type", armType)
			return nil, fmt.Errorf("failed to list resources of type %s: %w", armType, err)
		}
		for _, res := range page.Value {
			result = append(result, GenericResource{
				ResourceDescriptor: model.ResourceDescriptor{
					ID:       deref(res.ID),
					Name:     deref(res.Name),
					Type:     deref(res.Type),
					Location: deref(res.Location),
				},
				ProvisioningState: deref(res.ProvisioningState),
			})
		}
	}
	return result, nil
}

func (c client) GetVirtualMachinePowerState(ctx context.Context, resourceGroup, name string) ([]string, error) {
	promutil.ARMAPICounter.WithLabelValues("VirtualMachines.InstanceView").Inc()
	view, err := c.virtualMachines.InstanceView(ctx, resourceGroup, name, nil)
	if err != nil {
		promutil.ARMAPIErrorCounter.WithLabelValues("VirtualMachines.InstanceView").Inc()
		return nil, fmt.Errorf("failed to get instance view for %s: %w", name, err)
	}
	var codes []string
	for _, status := range view.Statuses {
		if status.Code != nil {
			codes = append(codes, *status.Code)
		}
	}
	return codes, nil
}

func (c client) ListVirtualMachineExtensions(ctx context.Context, resourceGroup, name string) ([]Extension, error) {
	promutil.ARMAPICounter.WithLabelValues("VirtualMachineExtensions.List").Inc()
	res, err := c.vmExtensions.List(ctx, resourceGroup, name, nil)
	if err != nil {
		promutil.ARMAPIErrorCounter.WithLabelValues("VirtualMachineExtensions.List").Inc()
		return nil, fmt.Errorf("failed to list extensions for %s: %w", name, err)
	}
	var extensions []Extension
	for _, ext := range res.Value {
		e := Extension{Name: deref(ext.Name)}
		if ext.Properties != nil {
			e.ProvisioningState = deref(ext.Properties.ProvisioningState)
		}
		extensions = append(extensions, e)
	}
	return extensions, nil
}

func (c client) ListArcMachineExtensions(ctx context.Context, resourceGroup, name string) ([]Extension, error) {
	var extensions []Extension
	pager := c.arcExtensions.NewListPager(resourceGroup, name, nil)
	for pager.More() {
		promutil.ARMAPICounter.WithLabelValues("MachineExtensions.List").Inc()
		page, err := pager.NextPage(ctx)
		if err != nil {
			promutil.ARMAPIErrorCounter.WithLabelValues("MachineExtensions.List").Inc()
			return nil, fmt.Errorf("failed to list extensions for %s: %w", name, err)
		}
		for _, ext := range page.Value {
			e := Extension{Name: deref(ext.Name)}
			if ext.Properties != nil {
				e.ProvisioningState = deref(ext.Properties.ProvisioningState)
			}
			extensions = append(extensions, e)
		}
	}
	return extensions, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
