package job

import (
	"context"
	"sort"
	"sync"

	"github.com/nerdswords/azure-insights-collector/pkg/clients/health"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/resources"
	"github.com/nerdswords/azure-insights-collector/pkg/config"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
)

const defaultProvisioningState = "Unknown"

func (s *Scraper) runNetwork(ctx context.Context) ([]model.NetworkRow, []Error) {
	resourcesClient := s.factory.GetResourcesClient(s.cfg.Concurrency.Resources)
	healthClient := s.factory.GetHealthClient(s.cfg.Concurrency.HealthAPI)

	var rows []model.NetworkRow
	var jobErrors []Error

	// Per-type listing failures are recoverable: the remaining types still
	// get collected.
	for _, key := range s.cfg.Network.TypeKeys {
		resourceType := config.SupportedNetworkResources.Get(key)
		if resourceType == nil {
			continue
		}
		items, err := resourcesClient.ListByType(ctx, resourceType.ARMType)
		if err != nil {
			jobError := NewError("network", key, "Failed to list network resources", err)
			s.logger.Warn("Network listing failed, continuing", jobError.ToLoggerKeyVals()...)
			jobErrors = append(jobErrors, jobError)
			continue
		}
		s.logger.Debug("Network resources listed", "type", key, "count", len(items))

		var wg sync.WaitGroup
		mux := &sync.Mutex{}
		for _, item := range items {
			wg.Add(1)
			go func(item resources.GenericResource) {
				defer wg.Done()
				state, err := healthClient.GetAvailabilityState(ctx, item.ID)
				if err != nil {
					state = health.StateUnknown
					s.logger.Debug("Health check failed", "resource", item.Name, "err", err.Error())
				}
				row := model.NetworkRow{
					TypeKey:           key,
					Name:              item.Name,
					ResourceGroup:     model.SlashSegment(item.ID, 4),
					ProvisioningState: item.ProvisioningState,
					HealthState:       state,
				}
				if row.ProvisioningState == "" {
					row.ProvisioningState = defaultProvisioningState
				}
				mux.Lock()
				rows = append(rows, row)
				mux.Unlock()
			}(item)
		}
		wg.Wait()
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TypeKey != rows[j].TypeKey {
			return rows[i].TypeKey < rows[j].TypeKey
		}
		return rows[i].Name < rows[j].Name
	})
	return rows, jobErrors
}
