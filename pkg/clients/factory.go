package clients

import (
	"github.com/nerdswords/azure-insights-collector/pkg/clients/account"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/graph"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/health"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/monitor"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/resources"
)

// Factory is an interface to abstract away all logic required to produce the
// collector specific clients which wrap the Azure SDK clients.
type Factory interface {
	GetResourcesClient(concurrencyLimit int) resources.Client
	GetMonitorClient(concurrencyLimit int) monitor.Client
	GetHealthClient(concurrencyLimit int) health.Client
	GetGraphClient() graph.Client
	GetAccountClient() account.Client
}
