package job

import (
	"context"
	"fmt"

	"github.com/nerdswords/azure-insights-collector/pkg/clients"
	"github.com/nerdswords/azure-insights-collector/pkg/config"
	"github.com/nerdswords/azure-insights-collector/pkg/logging"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
)

// Scraper runs the enabled collection categories in order (storage,
// machines, network) and accumulates their rows into a single RunResult.
// Recoverable failures become error-status rows plus an Error entry; only
// authentication and primary listing failures abort the run.
type Scraper struct {
	cfg     model.RunConfig
	logger  logging.Logger
	factory clients.Factory
	windows WindowCalculator
}

func NewScraper(logger logging.Logger, cfg model.RunConfig, factory clients.Factory, clock Clock) *Scraper {
	return &Scraper{
		cfg:     cfg,
		logger:  logger,
		factory: factory,
		windows: NewWindowCalculator(clock),
	}
}

func (s *Scraper) Run(ctx context.Context) (model.RunResult, []Error, error) {
	floating := config.FlagsFromCtx(ctx).IsFeatureEnabled(config.FloatingTimeWindow)
	start, end := s.windows.Calculate(s.cfg.Window.Lookback, s.cfg.Window.Interval, floating)

	result := model.RunResult{
		SubscriptionID: s.cfg.SubscriptionID,
		WindowStart:    start,
		WindowEnd:      end,
	}

	if name, err := s.factory.GetAccountClient().GetSubscriptionName(ctx, s.cfg.SubscriptionID); err != nil {
		s.logger.Warn("Could not resolve subscription display name", "err", err.Error())
	} else {
		result.SubscriptionName = name
	}

	var jobErrors []Error

	if s.cfg.Storage.Enabled {
		s.logger.Info("Collecting storage account metrics", "window_start", start, "window_end", end)
		rows, errs, err := s.runStorage(ctx, start, end)
		if err != nil {
			return model.RunResult{}, nil, fmt.Errorf("storage account listing failed: %w", err)
		}
		result.Storage = rows
		jobErrors = append(jobErrors, errs...)
	}

	if s.cfg.Machines.Enabled {
		s.logger.Info("Collecting machine monitoring status")
		machines, errs, err := s.runMachines(ctx)
		if err != nil {
			return model.RunResult{}, nil, fmt.Errorf("machine listing failed: %w", err)
		}
		result.Machines = machines
		jobErrors = append(jobErrors, errs...)
	}

	if s.cfg.Network.Enabled {
		s.logger.Info("Collecting network resource health")
		rows, errs := s.runNetwork(ctx)
		result.Network = rows
		jobErrors = append(jobErrors, errs...)
	}

	s.logger.Info("Collection finished",
		"storage_rows", len(result.Storage),
		"network_rows", len(result.Network),
		"errors", len(jobErrors),
	)
	return result, jobErrors, nil
}

// Error is a recoverable per-resource failure recorded during a run.
type Error struct {
	Category string
	Resource string
	Message  string
	Err      error
}

func NewError(category, resource, message string, err error) Error {
	return Error{
		Category: category,
		Resource: resource,
		Message:  message,
		Err:      err,
	}
}

func (e Error) ToLoggerKeyVals() []interface{} {
	return []interface{}{
		"category", e.Category,
		"resource", e.Resource,
		"err", e.Err,
	}
}
