package resources

import (
	"context"

	"github.com/nerdswords/azure-insights-collector/pkg/model"
)

// Client wraps the ARM listing and instance-view APIs the collector needs.
// All listing methods drain pagination before returning.
type Client interface {
	// ListStorageAccounts returns every storage account in the subscription.
	ListStorageAccounts(ctx context.Context) ([]model.ResourceDescriptor, error)

	// ListVirtualMachines returns every native VM in the subscription.
	ListVirtualMachines(ctx context.Context) ([]model.ResourceDescriptor, error)

	// ListArcMachines returns every Arc-connected machine along with its
	// agent connection state.
	ListArcMachines(ctx context.Context) ([]ArcMachine, error)

	// ListByType lists resources of an arbitrary ARM type, with
	// provisioningState expanded.
	ListByType(ctx context.Context, armType string) ([]GenericResource, error)

	// GetVirtualMachinePowerState returns the instance view status codes of
	// a native VM, e.g. "PowerState/running".
	GetVirtualMachinePowerState(ctx context.Context, resourceGroup, name string) ([]string, error)

	// ListVirtualMachineExtensions lists the extensions installed on a
	// native VM.
	ListVirtualMachineExtensions(ctx context.Context, resourceGroup, name string) ([]Extension, error)

	// ListArcMachineExtensions lists the extensions installed on an Arc
	// machine.
	ListArcMachineExtensions(ctx context.Context, resourceGroup, name string) ([]Extension, error)
}

// ArcMachine carries the connection state reported by the Arc agent next to
// the plain resource identity.
type ArcMachine struct {
	model.ResourceDescriptor
	Connected bool
}

// GenericResource is a resource returned by the generic listing API.
type GenericResource struct {
	model.ResourceDescriptor
	ProvisioningState string
}

// Extension is a VM or Arc machine extension.
type Extension struct {
	Name              string
	ProvisioningState string
}

type limitedConcurrencyClient struct {
	client Client
	sem    chan struct{}
}

// NewLimitedConcurrencyClient decorates a Client so that at most
// maxConcurrency calls run at once.
func NewLimitedConcurrencyClient(client Client, maxConcurrency int) Client {
	return &limitedConcurrencyClient{
		client: client,
		sem:    make(chan struct{}, maxConcurrency),
	}
}

func (c limitedConcurrencyClient) ListStorageAccounts(ctx context.Context) ([]model.ResourceDescriptor, error) {
	c.sem <- struct{}{}
	res, err := c.client.ListStorageAccounts(ctx)
	<-c.sem
	return res, err
}

func (c limitedConcurrencyClient) ListVirtualMachines(ctx context.Context) ([]model.ResourceDescriptor, error) {
	c.sem <- struct{}{}
	res, err := c.client.ListVirtualMachines(ctx)
	<-c.sem
	return res, err
}

func (c limitedConcurrencyClient) ListArcMachines(ctx context.Context) ([]ArcMachine, error) {
	c.sem <- struct{}{}
	res, err := c.client.ListArcMachines(ctx)
	<-c.sem
	return res, err
}

func (c limitedConcurrencyClient) ListByType(ctx context.Context, armType string) ([]GenericResource, error) {
	c.sem <- struct{}{}
	res, err := c.client.ListByType(ctx, armType)
	<-c.sem
	return res, err
}

func (c limitedConcurrencyClient) GetVirtualMachinePowerState(ctx context.Context, resourceGroup, name string) ([]string, error) {
	c.sem <- struct{}{}
	res, err := c.client.GetVirtualMachinePowerState(ctx, resourceGroup, name)
	<-c.sem
	return res, err
}

func (c limitedConcurrencyClient) ListVirtualMachineExtensions(ctx context.Context, resourceGroup, name string) ([]Extension, error) {
	c.sem <- struct{}{}
	res, err := c.client.ListVirtualMachineExtensions(ctx, resourceGroup, name)
	<-c.sem
	return res, err
}

func (c limitedConcurrencyClient) ListArcMachineExtensions(ctx context.Context, resourceGroup, name string) ([]Extension, error) {
	c.sem <- struct{}{}
	res, err := c.client.ListArcMachineExtensions(ctx, resourceGroup, name)
	<-c.sem
	return res, err
}
