package account

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"

	"github.com/nerdswords/azure-insights-collector/pkg/logging"
	"github.com/nerdswords/azure-insights-collector/pkg/promutil"
)

// Client resolves subscription metadata for run banners.
type Client interface {
	// GetSubscriptionName returns the display name of the subscription, or
	// an empty string when there is none.
	GetSubscriptionName(ctx context.Context, subscriptionID string) (string, error)
}

type client struct {
	logger        logging.Logger
	subscriptions *armsubscriptions.Client
}

func NewClient(logger logging.Logger, subscriptions *armsubscriptions.Client) Client {
	return &client{
		logger:        logger,
		subscriptions: subscriptions,
	}
}

func (c client) GetSubscriptionName(ctx context.Context, subscriptionID string) (string, error) {
	promutil.ARMAPICounter.WithLabelValues("Subscriptions.Get").Inc()
	res, err := c.subscriptions.Get(ctx, subscriptionID, nil)
	if err != nil {
		promutil.ARMAPIErrorCounter.WithLabelValues("Subscriptions.Get").Inc()
		return "", fmt.Errorf("failed to get subscription %s: %w", subscriptionID, err)
	}
	if res.DisplayName == nil {
		return "", nil
	}
	return *res.DisplayName, nil
}
