package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/monitor/azquery"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/hybridcompute/armhybridcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/monitor/armmonitor"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcegraph/armresourcegraph"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcehealth/armresourcehealth"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"

	"github.com/nerdswords/azure-insights-collector/pkg/clients"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/account"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/graph"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/health"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/monitor"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/resources"
	"github.com/nerdswords/azure-insights-collector/pkg/logging"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
)

// Factory builds the per-concern clients once at startup and hands out
// concurrency-limited views of them.
type Factory struct {
	resourcesCli resources.Client
	monitorCli   monitor.Client
	healthCli    health.Client
	graphCli     graph.Client
	accountCli   account.Client
}

// Ensure the struct properly implements the interface
var _ clients.Factory = &Factory{}

// NewFactory assembles the credential chain (environment, Azure CLI, managed
// identity, in that order), proves it usable by requesting an ARM-scoped
// token once, and constructs every SDK client the run needs. A chain with no
// working credential is a fatal error.
func NewFactory(ctx context.Context, logger logging.Logger, cfg model.RunConfig) (*Factory, error) {
	cloudCfg := cloudConfiguration(cfg.Cloud)
	credential, err := buildCredentialChain(logger, cloudCfg)
	if err != nil {
		return nil, err
	}

	scope := cloudCfg.Services[cloud.ResourceManager].Audience + "/.default"
	if _, err := credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{scope}}); err != nil {
		return nil, fmt.Errorf("no valid credential found for %s: %w", scope, err)
	}
	logger.Debug("Credential chain verified", "scope", scope)

	clientOpts := azcore.ClientOptions{
		Cloud: cloudCfg,
		Retry: policy.RetryOptions{MaxRetries: 5},
	}
	armOpts := &arm.ClientOptions{ClientOptions: clientOpts}
	subID := cfg.SubscriptionID

	storageAccounts, err := armstorage.NewAccountsClient(subID, credential, armOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage accounts client: %w", err)
	}
	virtualMachines, err := armcompute.NewVirtualMachinesClient(subID, credential, armOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual machines client: %w", err)
	}
	vmExtensions, err := armcompute.NewVirtualMachineExtensionsClient(subID, credential, armOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create VM extensions client: %w", err)
	}
	arcMachines, err := armhybridcompute.NewMachinesClient(subID, credential, armOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Arc machines client: %w", err)
	}
	arcExtensions, err := armhybridcompute.NewMachineExtensionsClient(subID, credential, armOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Arc extensions client: %w", err)
	}
	genericResources, err := armresources.NewClient(subID, credential, armOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create resources client: %w", err)
	}
	metrics, err := azquery.NewMetricsClient(credential, &azquery.MetricsClientOptions{ClientOptions: clientOpts})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics client: %w", err)
	}
	dcrAssociations, err := armmonitor.NewDataCollectionRuleAssociationsClient(subID, credential, armOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create DCR associations client: %w", err)
	}
	statuses, err := armresourcehealth.NewAvailabilityStatusesClient(subID, credential, armOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create availability statuses client: %w", err)
	}
	graphClient, err := armresourcegraph.NewClient(credential, armOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource graph client: %w", err)
	}
	subscriptions, err := armsubscriptions.NewClient(credential, armOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriptions client: %w", err)
	}

	return &Factory{
		resourcesCli: resources.NewClient(logger, storageAccounts, virtualMachines, vmExtensions, arcMachines, arcExtensions, genericResources),
		monitorCli:   monitor.NewClient(logger, metrics, dcrAssociations),
		healthCli:    health.NewClient(logger, statuses),
		graphCli:     graph.NewClient(logger, graphClient),
		accountCli:   account.NewClient(logger, subscriptions),
	}, nil
}

func (f *Factory) GetResourcesClient(concurrencyLimit int) resources.Client {
	return resources.NewLimitedConcurrencyClient(f.resourcesCli, concurrencyLimit)
}

func (f *Factory) GetMonitorClient(concurrencyLimit int) monitor.Client {
	return monitor.NewLimitedConcurrencyClient(f.monitorCli, concurrencyLimit)
}

func (f *Factory) GetHealthClient(concurrencyLimit int) health.Client {
	return health.NewLimitedConcurrencyClient(f.healthCli, concurrencyLimit)
}

func (f *Factory) GetGraphClient() graph.Client {
	return f.graphCli
}

func (f *Factory) GetAccountClient() account.Client {
	return f.accountCli
}

func buildCredentialChain(logger logging.Logger, cloudCfg cloud.Configuration) (azcore.TokenCredential, error) {
	clientOpts := azcore.ClientOptions{Cloud: cloudCfg}

	var chain []azcore.TokenCredential
	if env, err := azidentity.NewEnvironmentCredential(&azidentity.EnvironmentCredentialOptions{ClientOptions: clientOpts}); err == nil {
		chain = append(chain, env)
	} else {
		logger.Debug("Environment credential not configured", "reason", err.Error())
	}
	if cli, err := azidentity.NewAzureCLICredential(nil); err == nil {
		chain = append(chain, cli)
	} else {
		logger.Debug("Azure CLI credential not available", "reason", err.Error())
	}
	if msi, err := azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{ClientOptions: clientOpts}); err == nil {
		chain = append(chain, msi)
	} else {
		logger.Debug("Managed identity credential not available", "reason", err.Error())
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no credential source could be constructed")
	}

	credential, err := azidentity.NewChainedTokenCredential(chain, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build credential chain: %w", err)
	}
	return credential, nil
}

func cloudConfiguration(env model.CloudEnvironment) cloud.Configuration {
	switch env {
	case model.CloudGovernment:
		return cloud.AzureGovernment
	case model.CloudChina:
		return cloud.AzureChina
	default:
		return cloud.AzurePublic
	}
}
