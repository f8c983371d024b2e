package job

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"

	"github.com/nerdswords/azure-insights-collector/pkg/clients/monitor"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
)

const storageMetricNamespace = "Microsoft.Storage/storageAccounts"

// primaryGeoFilter restricts dimension-supporting metrics to the primary
// location, matching the way the storage metrics blades report them.
const primaryGeoFilter = "GeoType eq 'Primary'"

// capacityMetrics are queried separately: they do not support dimensions, so
// they cannot share a request with the GeoType-filtered ones.
var capacityMetrics = map[string]struct{}{
	"usedcapacity": {},
}

// totaledMetrics aggregate as the sum of per-interval totals; everything
// else aggregates as the mean of per-interval averages.
var totaledMetrics = map[string]struct{}{
	"transactions": {},
	"ingress":      {},
	"egress":       {},
}

func (s *Scraper) runStorage(ctx context.Context, start, end time.Time) ([]model.StorageRow, []Error, error) {
	resourcesClient := s.factory.GetResourcesClient(s.cfg.Concurrency.Resources)
	monitorClient := s.factory.GetMonitorClient(s.cfg.Concurrency.MonitorAPI)

	accounts, err := resourcesClient.ListStorageAccounts(ctx)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("Storage accounts found", "count", len(accounts))

	var capacityNames, dimensionNames []string
	for _, name := range s.cfg.Storage.Metrics {
		if _, ok := capacityMetrics[strings.ToLower(name)]; ok {
			capacityNames = append(capacityNames, name)
		} else {
			dimensionNames = append(dimensionNames, name)
		}
	}

	var wg sync.WaitGroup
	mux := &sync.Mutex{}
	rows := make([]model.StorageRow, 0, len(accounts))
	var jobErrors []Error

	for _, sa := range accounts {
		if s.cfg.Storage.NameFilter != nil && !s.cfg.Storage.NameFilter.MatchString(sa.Name) {
			continue
		}
		wg.Add(1)
		go func(sa model.ResourceDescriptor) {
			defer wg.Done()

			row := model.StorageRow{
				Account:       sa.Name,
				ResourceGroup: sa.ResourceGroup(),
				Status:        model.StatusOK,
			}

			var series []model.MetricSeries
			var fetchErr error
			if len(capacityNames) > 0 {
				capacity, err := monitorClient.QueryResource(ctx, sa.ID, monitor.MetricsQuery{
					MetricNames:  capacityNames,
					Aggregations: []monitor.Aggregation{monitor.AggregationAverage},
					Namespace:    storageMetricNamespace,
					Interval:     s.cfg.Window.Interval,
					Start:        start,
					End:          end,
				})
				if err != nil {
					fetchErr = err
				}
				series = append(series, capacity...)
			}
			if fetchErr == nil && len(dimensionNames) > 0 {
				metrics, err := monitorClient.QueryResource(ctx, sa.ID, monitor.MetricsQuery{
					MetricNames:  dimensionNames,
					Aggregations: []monitor.Aggregation{monitor.AggregationTotal, monitor.AggregationAverage},
					Namespace:    storageMetricNamespace,
					Filter:       primaryGeoFilter,
					Interval:     s.cfg.Window.Interval,
					Start:        start,
					End:          end,
				})
				if err != nil {
					fetchErr = err
				}
				series = append(series, metrics...)
			}

			if fetchErr != nil {
				row.Status = model.StatusError
				jobError := NewError("storage", sa.Name, "Failed to fetch storage metrics", fetchErr)
				s.logger.Warn("Storage metric fetch failed, continuing", jobError.ToLoggerKeyVals()...)
				mux.Lock()
				jobErrors = append(jobErrors, jobError)
				rows = append(rows, row)
				mux.Unlock()
				return
			}

			row.Metrics = aggregateStorageSeries(series)
			mux.Lock()
			rows = append(rows, row)
			mux.Unlock()
		}(sa)
	}
	wg.Wait()

	sort.Slice(rows, func(i, j int) bool { return rows[i].Account < rows[j].Account })
	return rows, jobErrors, nil
}

// aggregateStorageSeries reduces the returned series to one value each.
// A series that came back with no usable points yields 0; a metric with no
// series at all stays nil and renders as N/A.
func aggregateStorageSeries(series []model.MetricSeries) model.StorageMetrics {
	var out model.StorageMetrics
	for _, s := range series {
		name := strings.ToLower(s.Name)

		var value float64
		if _, ok := totaledMetrics[name]; ok {
			value = sumTotals(s.Datapoints)
		} else {
			value = meanAverages(s.Datapoints)
		}

		switch name {
		case "transactions":
			out.Transactions = to.Ptr(value)
		case "ingress":
			out.Ingress = to.Ptr(value)
		case "egress":
			out.Egress = to.Ptr(value)
		case "usedcapacity":
			out.UsedCapacity = to.Ptr(value)
		case "successe2elatency":
			out.E2ELatency = to.Ptr(value)
		case "successserverlatency":
			out.ServerLatency = to.Ptr(value)
		case "availability":
			out.Availability = to.Ptr(value)
		}
	}
	return out
}

// sumTotals sums the Total aggregation across datapoints, skipping empty
// buckets.
func sumTotals(points []model.Datapoint) float64 {
	var sum float64
	for _, p := range points {
		if p.Total != nil {
			sum += *p.Total
		}
	}
	return sum
}

// meanAverages averages the Average aggregation across datapoints, skipping
// empty buckets. All-empty series yield 0.
func meanAverages(points []model.Datapoint) float64 {
	var sum float64
	count := 0
	for _, p := range points {
		if p.Average != nil {
			sum += *p.Average
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
