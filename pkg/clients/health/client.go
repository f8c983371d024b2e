package health

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcehealth/armresourcehealth"

	"github.com/nerdswords/azure-insights-collector/pkg/logging"
	"github.com/nerdswords/azure-insights-collector/pkg/promutil"
)

// StateUnknown is returned when the Resource Health API has no availability
// status for a resource.
const StateUnknown = "Unknown"

// Client wraps the Resource Health availability status API.
type Client interface {
	// GetAvailabilityState returns the current availability state of a
	// resource: "Available", "Degraded", "Unavailable" or "Unknown".
	GetAvailabilityState(ctx context.Context, resourceID string) (string, error)
}

type client struct {
	logger   logging.Logger
	statuses *armresourcehealth.AvailabilityStatusesClient
}

// NewClient builds a health Client on top of the ARM resource health client.
func NewClient(logger logging.Logger, statuses *armresourcehealth.AvailabilityStatusesClient) Client {
	return &client{
		logger:   logger,
		statuses: statuses,
	}
}

func (c client) GetAvailabilityState(ctx context.Context, resourceID string) (string, error) {
	promutil.ResourceHealthAPICounter.Inc()
	res, err := c.statuses.GetByResource(ctx, resourceID, nil)
	if err != nil {
		promutil.ARMAPIErrorCounter.WithLabelValues("AvailabilityStatuses.GetByResource").Inc()
		return StateUnknown, fmt.Errorf("failed to get availability status for %s: %w", resourceID, err)
	}
	if res.Properties == nil || res.Properties.AvailabilityState == nil {
		return StateUnknown, nil
	}
	return string(*res.Properties.AvailabilityState), nil
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

func (c limitedConcurrencyClient) GetAvailabilityState(ctx context.Context, resourceID string) (string, error) {
	c.sem <- struct{}{}
	res, err := c.client.GetAvailabilityState(ctx, resourceID)
	<-c.sem
	return res, err
}
