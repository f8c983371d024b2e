package config

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nerdswords/azure-insights-collector/pkg/logging"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
)

func TestConfLoad(t *testing.T) {
	testCases := []struct {
		configFile string
	}{
		{configFile: "config_test.yml"},
		{configFile: "minimal.ok.yml"},
	}
	for _, tc := range testCases {
		config := CollectConf{}
		configFile := fmt.Sprintf("testdata/%s", tc.configFile)
		if _, err := config.Load(configFile, logging.NewNopLogger()); err != nil {
			t.Error(err)
			t.FailNow()
		}
	}
}

func TestBadConfigs(t *testing.T) {
	testCases := []struct {
		configFile string
		errorMsg   string
	}{
		{
			configFile: "unknown_version.bad.yml",
			errorMsg:   "unknown apiVersion value 'invalidVersion'",
		},
		{
			configFile: "invalid_regex.bad.yml",
			errorMsg:   "storage: nameFilter has invalid regex value",
		},
		{
			configFile: "unknown_network_type.bad.yml",
			errorMsg:   "network: resource type is not in known list!: load_balancers",
		},
		{
			configFile: "unknown_cloud.bad.yml",
			errorMsg:   "cloud: unknown value 'stackhub'",
		},
		{
			configFile: "unknown_format.bad.yml",
			errorMsg:   "output: unknown format value 'xml'",
		},
		{
			configFile: "window_too_small.bad.yml",
			errorMsg:   "window: intervalHours should not exceed lookbackHours",
		},
	}
	for _, tc := range testCases {
		config := CollectConf{}
		configFile := fmt.Sprintf("testdata/%s", tc.configFile)
		_, err := config.Load(configFile, logging.NewNopLogger())
		require.Error(t, err, "expected error loading %s", configFile)
		require.True(t, strings.Contains(err.Error(), tc.errorMsg),
			"expected error for %s to contain %q, got: %s", configFile, tc.errorMsg, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	config := CollectConf{}
	cfg, err := config.Load("testdata/minimal.ok.yml", logging.NewNopLogger())
	require.NoError(t, err)

	require.Equal(t, model.CloudPublic, cfg.Cloud)
	require.Equal(t, 24*time.Hour, cfg.Window.Lookback)
	require.Equal(t, time.Hour, cfg.Window.Interval)
	require.Equal(t, 5, cfg.Concurrency.Resources)
	require.Equal(t, 5, cfg.Concurrency.MonitorAPI)
	require.Equal(t, 5, cfg.Concurrency.HealthAPI)
	require.True(t, cfg.Storage.Enabled)
	require.Equal(t, DefaultStorageMetrics, cfg.Storage.Metrics)
	require.True(t, cfg.Machines.Enabled)
	require.True(t, cfg.Machines.IncludeArc)
	require.True(t, cfg.Network.Enabled)
	require.Equal(t, SupportedNetworkResources.Keys(), cfg.Network.TypeKeys)
	require.Equal(t, ".", cfg.Output.Directory)
	require.Equal(t, []model.OutputFormat{model.FormatTable, model.FormatCSV}, cfg.Output.Formats)
}

func TestLoadSubscriptionFromEnv(t *testing.T) {
	t.Setenv("AZURE_SUBSCRIPTION_ID", "11111111-1111-1111-1111-111111111111")

	config := CollectConf{}
	cfg, err := config.Load("", logging.NewNopLogger())
	require.NoError(t, err)
	require.Equal(t, "11111111-1111-1111-1111-111111111111", cfg.SubscriptionID)
}

func TestLoadMissingSubscription(t *testing.T) {
	t.Setenv("AZURE_SUBSCRIPTION_ID", "")

	config := CollectConf{}
	_, err := config.Load("", logging.NewNopLogger())
	require.Error(t, err)
	require.Contains(t, err.Error(), "subscriptionId should not be empty")
}

func TestNameFilterCompiled(t *testing.T) {
	config := CollectConf{}
	cfg, err := config.Load("testdata/config_test.yml", logging.NewNopLogger())
	require.NoError(t, err)
	require.NotNil(t, cfg.Storage.NameFilter)
	require.True(t, cfg.Storage.NameFilter.MatchString("prodaccount"))
	require.False(t, cfg.Storage.NameFilter.MatchString("devaccount"))
	require.Nil(t, cfg.Machines.NameFilter)
}
