package promutil

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ARMAPICounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "azinsights_arm_requests_total",
		Help: "Number of calls made to the Azure management APIs",
	}, []string{"api_name"})
	ARMAPIErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "azinsights_arm_request_errors",
		Help: "Number of errors returned by the Azure management APIs",
	}, []string{"api_name"})
	MonitorQueryCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "azinsights_monitor_metrics_requests_total",
		Help: "Number of metric queries issued against the Azure Monitor API",
	})
	ResourceGraphQueryCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "azinsights_resourcegraph_requests_total",
		Help: "Number of queries issued against the Azure Resource Graph API",
	})
	ResourceHealthAPICounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "azinsights_resourcehealth_requests_total",
		Help: "Help is not implemented yet.",
	})
	DCRAssociationAPICounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "azinsights_dcr_association_requests_total",
		Help: "Help is not implemented yet.",
	})
)

// NewRegistry returns a registry with every collector API counter
// registered, used for the -debug end-of-run dump.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		ARMAPICounter,
		ARMAPIErrorCounter,
		MonitorQueryCounter,
		ResourceGraphQueryCounter,
		ResourceHealthAPICounter,
		DCRAssociationAPICounter,
	)
	return registry
}
