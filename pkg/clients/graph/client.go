package graph

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcegraph/armresourcegraph"

	"github.com/nerdswords/azure-insights-collector/pkg/logging"
	"github.com/nerdswords/azure-insights-collector/pkg/promutil"
)

// Row is one record of a Resource Graph result in object-array format.
type Row map[string]interface{}

// String returns the value of column key rendered as a string, or "" when
// the column is absent or not a string.
func (r Row) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Map returns the value of column key as a nested object, or nil.
func (r Row) Map(key string) map[string]interface{} {
	if v, ok := r[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

// Float returns the value of column key as a float64. Resource Graph
// numbers decode as float64; absent or non-numeric columns yield 0.
func (r Row) Float(key string) float64 {
	if v, ok := r[key].(float64); ok {
		return v
	}
	return 0
}

// Client wraps the Azure Resource Graph query API.
type Client interface {
	// Query runs a KQL query against the given subscriptions and returns
	// all result rows. Skip-token pagination is drained automatically.
	Query(ctx context.Context, query string, subscriptions []string) ([]Row, error)
}

type client struct {
	logger logging.Logger
	graph  *armresourcegraph.Client
}

// NewClient builds a graph Client on top of the ARM resource graph client.
func NewClient(logger logging.Logger, graph *armresourcegraph.Client) Client {
	return &client{
		logger: logger,
		graph:  graph,
	}
}

func (c client) Query(ctx context.Context, query string, subscriptions []string) ([]Row, error) {
	subs := make([]*string, 0, len(subscriptions))
	for _, s := range subscriptions {
		subs = append(subs, to.Ptr(s))
	}

	var rows []Row
	var skipToken *string
	for {
		promutil.ResourceGraphQueryCounter.Inc()
		resp, err := c.graph.Resources(ctx, armresourcegraph.QueryRequest{
			Query:         to.Ptr(query),
			Subscriptions: subs,
			Options: &armresourcegraph.QueryRequestOptions{
				ResultFormat: to.Ptr(armresourcegraph.ResultFormatObjectArray),
				SkipToken:    skipToken,
			},
		}, nil)
		if err != nil {
			promutil.ARMAPIErrorCounter.WithLabelValues("ResourceGraph.Resources").Inc()
			c.logger.Error(err, "Resource Graph query error")
			return nil, fmt.Errorf("failed to run Resource Graph query: %w", err)
		}

		page, ok := resp.Data.([]interface{})
		if !ok && resp.Data != nil {
			return nil, fmt.Errorf("unexpected Resource Graph result shape %T", resp.Data)
		}
		for _, record := range page {
			if row, ok := record.(map[string]interface{}); ok {
				rows = append(rows, Row(row))
			}
		}

		if resp.SkipToken == nil || *resp.SkipToken == "" {
			break
		}
		skipToken = resp.SkipToken
	}

	c.logger.Debug("Resource Graph query finished", "rows", len(rows))
	return rows, nil
}
