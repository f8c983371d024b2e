package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/stretchr/testify/require"

	"github.com/nerdswords/azure-insights-collector/pkg/model"
	"github.com/nerdswords/azure-insights-collector/pkg/report"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2024, 5, 14, 10, 32, 11, 0, time.UTC)

	path, err := WriteCSV(dir, StoragePrefix, ts, []string{"a", "b"}, [][]string{{"1", "2"}})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "storage_metrics_20240514_103211.csv"), path)

	records := readCSV(t, path)
	require.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, records)
}

func TestStorageCSV(t *testing.T) {
	rows := []model.StorageRow{
		{
			Account:       "stlogs",
			ResourceGroup: "prod-rg",
			Status:        model.StatusOK,
			Metrics: model.StorageMetrics{
				Transactions: to.Ptr(1234.0),
				UsedCapacity: to.Ptr(1572864.5),
			},
		},
		{Account: "stbroken", ResourceGroup: "prod-rg", Status: model.StatusError},
	}

	headers, records := StorageCSV(rows)
	require.Len(t, headers, 10)
	require.Equal(t, "Status", headers[9])
	require.Len(t, records, 2)

	// Raw values, no human formatting, absent metrics as N/A.
	require.Equal(t, "1234", records[0][2])
	require.Equal(t, "1572864.5", records[0][5])
	require.Equal(t, "N/A", records[0][3])
	require.Equal(t, "error", records[1][9])
}

func TestMachinesCSV(t *testing.T) {
	result := &model.MachinesResult{
		Rows: []model.MachineRow{
			{Name: "vm-web", ResourceGroup: "prod-rg", Kind: model.KindCompute, PowerState: "running", InsightsStatus: "Enabled", Monitored: true},
		},
	}

	headers, records := MachinesCSV(result)
	require.Equal(t, []string{"VM Name", "Resource Group", "Type", "Power State", "Monitored", "Insights Status"}, headers)
	require.Equal(t, [][]string{{"vm-web", "prod-rg", "Compute", "running", "Yes", "Enabled"}}, records)
}

func TestNetworkCSV(t *testing.T) {
	rows := []model.NetworkRow{
		{TypeKey: "virtual_networks", Name: "vnet-a", ResourceGroup: "Net-RG", ProvisioningState: "Succeeded", HealthState: "Available"},
	}

	headers, records := NetworkCSV(rows)
	require.Len(t, headers, 5)
	require.Equal(t, [][]string{{"Virtual Networks", "vnet-a", "Net-RG", "Succeeded", "Available"}}, records)
}

func TestVulnerabilityCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2024, 5, 14, 10, 32, 11, 0, time.UTC)

	rows := []report.VulnerabilityRow{
		{
			UUID:          "aaa",
			VM:            "vm-web-01",
			Vulnerability: "Outdated OpenSSL, with commas",
			Date:          "2024-05-14",
			Severity:      "High",
			Description:   "line one\nline two",
			Threat:        "remote code execution",
			Impact:        "high",
			Fix:           "upgrade",
			VulnID:        "CVE-2024-0001",
		},
	}
	headers, records := VulnerabilityCSV(rows)

	path, err := WriteCSV(dir, VulnerabilityPrefix, ts, headers, records)
	require.NoError(t, err)
	require.Equal(t, "vulnerability_report_20240514_103211.csv", filepath.Base(path))

	read := readCSV(t, path)
	require.Len(t, read, 2)
	require.Equal(t, headers, read[0])
	// Commas and newlines in fields survive the round trip.
	require.Equal(t, records[0], read[1])
}

func TestSQLVulnerabilityCSV(t *testing.T) {
	rows := []report.SQLVulnerabilityRow{
		{UUID: "fff", Server: "vm-sql-01", Database: "appdb", Severity: "Medium"},
	}

	headers, records := SQLVulnerabilityCSV(rows)
	require.Equal(t, "uuid", headers[0])
	require.Equal(t, "vulnId", headers[9])
	require.Equal(t, "appdb", records[0][2])
}

func TestMachineInventoryCSV(t *testing.T) {
	rows := []report.MachineInventoryRow{
		{Name: "vm-web", Type: "microsoft.compute/virtualmachines", OS: "Windows", Location: "westeurope", Status: "VM running", UpdateStatus: "3 pending updates"},
	}

	headers, records := MachineInventoryCSV(rows)
	require.Equal(t, []string{"Name", "Type", "OS", "Location", "Status", "Update Status"}, headers)
	require.Equal(t, "3 pending updates", records[0][5])
}
