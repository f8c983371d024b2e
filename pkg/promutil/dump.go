package promutil

import (
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/nerdswords/azure-insights-collector/pkg/logging"
)

// DumpRegistry logs a per-API summary of the collected counters and, at
// debug level, the full text-format exposition. Called at the end of a run
// when -debug is set.
func DumpRegistry(logger logging.Logger, registry *prometheus.Registry) {
	families, err := registry.Gather()
	if err != nil {
		logger.Error(err, "Failed to gather API counters")
		return
	}

	for _, family := range families {
		if family.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, metric := range family.GetMetric() {
			keyvals := []interface{}{"counter", family.GetName(), "value", metric.GetCounter().GetValue()}
			for _, label := range metric.GetLabel() {
				keyvals = append(keyvals, label.GetName(), label.GetValue())
			}
			logger.Info("API call summary", keyvals...)
		}
	}

	if !logger.IsDebugEnabled() {
		return
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			logger.Error(err, "Failed to encode counter family", "family", family.GetName())
			return
		}
	}
	logger.Debug("Collected API counters", "exposition", buf.String())
}
