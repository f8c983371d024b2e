package monitor

import (
	"context"
	"time"

	"github.com/nerdswords/azure-insights-collector/pkg/model"
)

// Aggregation selects which aggregated value a metrics query requests per
// interval bucket.
type Aggregation string

const (
	AggregationTotal   Aggregation = "Total"
	AggregationAverage Aggregation = "Average"
)

// MetricsQuery describes one time-windowed query against the Monitor
// metrics API.
type MetricsQuery struct {
	MetricNames  []string
	Aggregations []Aggregation
	Namespace    string
	// Filter is passed through as the $filter expression, e.g.
	// "GeoType eq 'Primary'".
	Filter   string
	Interval time.Duration
	Start    time.Time
	End      time.Time
}

// Client wraps the Azure Monitor data plane used by the collector.
type Client interface {
	// QueryResource runs a metrics query for a single resource and returns
	// one series per requested metric. Absent metrics are simply missing
	// from the result.
	QueryResource(ctx context.Context, resourceID string, query MetricsQuery) ([]model.MetricSeries, error)

	// CountDataCollectionRuleAssociations returns how many data collection
	// rules are associated with the resource.
	CountDataCollectionRuleAssociations(ctx context.Context, resourceID string) (int, error)
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

func (c limitedConcurrencyClient) QueryResource(ctx context.Context, resourceID string, query MetricsQuery) ([]model.MetricSeries, error) {
	c.sem <- struct{}{}
	res, err := c.client.QueryResource(ctx, resourceID, query)
	<-c.sem
	return res, err
}

func (c limitedConcurrencyClient) CountDataCollectionRuleAssociations(ctx context.Context, resourceID string) (int, error) {
	c.sem <- struct{}{}
	res, err := c.client.CountDataCollectionRuleAssociations(ctx, resourceID)
	<-c.sem
	return res, err
}
