package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/monitor/azquery"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/monitor/armmonitor"

	"github.com/nerdswords/azure-insights-collector/pkg/logging"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
	"github.com/nerdswords/azure-insights-collector/pkg/promutil"
)

type client struct {
	logger          logging.Logger
	metrics         *azquery.MetricsClient
	dcrAssociations *armmonitor.DataCollectionRuleAssociationsClient
}

// NewClient builds a monitor Client on top of the azquery metrics client and
// the ARM data collection rule association client.
func NewClient(logger logging.Logger, metrics *azquery.MetricsClient, dcrAssociations *armmonitor.DataCollectionRuleAssociationsClient) Client {
	return &client{
		logger:          logger,
		metrics:         metrics,
		dcrAssociations: dcrAssociations,
	}
}

func (c client) QueryResource(ctx context.Context, resourceID string, query MetricsQuery) ([]model.MetricSeries, error) {
	options := &azquery.MetricsClientQueryResourceOptions{
		MetricNames: to.Ptr(strings.Join(query.MetricNames, ",")),
		Interval:    to.Ptr(isoInterval(query.Interval)),
		Timespan:    to.Ptr(azquery.NewTimeInterval(query.Start, query.End)),
	}
	if query.Namespace != "" {
		options.MetricNamespace = to.Ptr(query.Namespace)
	}
	if query.Filter != "" {
		options.Filter = to.Ptr(query.Filter)
	}
	for _, agg := range query.Aggregations {
		options.Aggregation = append(options.Aggregation, to.Ptr(azquery.AggregationType(agg)))
	}

	if c.logger.IsDebugEnabled() {
		c.logger.Debug("QueryResource", "resource_id", resourceID, "metric_names", *options.MetricNames, "timespan", *options.Timespan)
	}

	promutil.MonitorQueryCounter.Inc()
	resp, err := c.metrics.QueryResource(ctx, resourceID, options)
	if err != nil {
		promutil.ARMAPIErrorCounter.WithLabelValues("Metrics.QueryResource").Inc()
		c.logger.Error(err, "QueryResource error", "resource_id", resourceID)
		return nil, fmt.Errorf("failed to query metrics for %s: %w", resourceID, err)
	}

	var series []model.MetricSeries
	for _, metric := range resp.Value {
		if metric == nil || metric.Name == nil || metric.Name.Value == nil {
			continue
		}
		s := model.MetricSeries{Name: *metric.Name.Value}
		if metric.Unit != nil {
			s.Unit = string(*metric.Unit)
		}
		// The queries issued by this collector never group by dimension, so
		// only the first time series element carries data.
		if len(metric.TimeSeries) > 0 && metric.TimeSeries[0] != nil {
			for _, point := range metric.TimeSeries[0].Data {
				if point == nil {
					continue
				}
				dp := model.Datapoint{
					Average: point.Average,
					Total:   point.Total,
				}
				if point.TimeStamp != nil {
					dp.Timestamp = *point.TimeStamp
				}
				s.Datapoints = append(s.Datapoints, dp)
			}
		}
		series = append(series, s)
	}
	return series, nil
}

func (c client) CountDataCollectionRuleAssociations(ctx context.Context, resourceID string) (int, error) {
	count := 0
	pager := c.dcrAssociations.NewListByResourcePager(resourceID, nil)
	for pager.More() {
		promutil.DCRAssociationAPICounter.Inc()
		page, err := pager.NextPage(ctx)
		if err != nil {
			promutil.ARMAPIErrorCounter.WithLabelValues("DataCollectionRuleAssociations.ListByResource").Inc()
			return 0, fmt.Errorf("failed to list DCR associations for %s: %w", resourceID, err)
		}
		count += len(page.Value)
	}
	return count, nil
}

// isoInterval renders a duration as the ISO 8601 interval the metrics API
// expects, e.g. time.Hour -> "PT1H".
func isoInterval(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("PT%dH", int(d/time.Hour))
	}
	return fmt.Sprintf("PT%dM", int(d/time.Minute))
}
