package kql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssetsRegistry(t *testing.T) {
	require.Equal(t, []string{"server-vulnerabilities", "sql-vulnerabilities", "machine-updates"}, Names())

	for _, asset := range Assets {
		require.NotEmpty(t, asset.Description, asset.Name)
		text, err := asset.Text()
		require.NoError(t, err, asset.Name)
		require.NotEmpty(t, text, asset.Name)
		require.False(t, strings.HasSuffix(text, "\n"), asset.Name)
	}
}

func TestGet(t *testing.T) {
	asset := Get("machine-updates")
	require.NotNil(t, asset)
	require.Equal(t, "machine-updates", asset.Name)

	require.Nil(t, Get("nope"))
}

func TestQueryTextTargetsExpectedTables(t *testing.T) {
	testCases := []struct {
		asset string
		table string
	}{
		{asset: "server-vulnerabilities", table: "securityresources"},
		{asset: "sql-vulnerabilities", table: "securityresources"},
		{asset: "machine-updates", table: "resources"},
	}
	for _, tc := range testCases {
		t.Run(tc.asset, func(t *testing.T) {
			asset := Get(tc.asset)
			require.NotNil(t, asset)
			text, err := asset.Text()
			require.NoError(t, err)
			require.Contains(t, text, tc.table)
		})
	}
}
