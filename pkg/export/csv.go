package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nerdswords/azure-insights-collector/pkg/config"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
	"github.com/nerdswords/azure-insights-collector/pkg/report"
)

// CSV file prefixes, one per report.
const (
	StoragePrefix          = "storage_metrics"
	MachinesPrefix         = "vm_metrics"
	NetworkPrefix          = "network_metrics"
	VulnerabilityPrefix    = "vulnerability_report"
	SQLVulnerabilityPrefix = "sql_vulnerability_report"
	MachineInventoryPrefix = "machine_inventory"
)

// RunTimestamp renders the timestamp embedded in exported filenames.
func RunTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// WriteCSV writes one report to <dir>/<prefix>_<timestamp>.csv and returns
// the file path.
func WriteCSV(dir, prefix string, t time.Time, headers []string, rows [][]string) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, RunTimestamp(t)))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return path, nil
}

// StorageCSV returns the header and rows of the storage metrics export.
// Values are raw, not human formatted; missing metrics become "N/A".
func StorageCSV(rows []model.StorageRow) ([]string, [][]string) {
	headers := []string{
		"Storage Account", "Resource Group", "Transactions",
		"Ingress (Bytes)", "Egress (Bytes)", "Used Capacity (Bytes)",
		"E2E Latency (ms)", "Server Latency (ms)", "Availability (%)", "Status",
	}
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.Account,
			row.ResourceGroup,
			rawValue(row.Metrics.Transactions),
			rawValue(row.Metrics.Ingress),
			rawValue(row.Metrics.Egress),
			rawValue(row.Metrics.UsedCapacity),
			rawValue(row.Metrics.E2ELatency),
			rawValue(row.Metrics.ServerLatency),
			rawValue(row.Metrics.Availability),
			string(row.Status),
		})
	}
	return headers, records
}

// MachinesCSV returns the header and rows of the machine monitoring export.
func MachinesCSV(result *model.MachinesResult) ([]string, [][]string) {
	headers := []string{"VM Name", "Resource Group", "Type", "Power State", "Monitored", "Insights Status"}
	records := make([][]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		monitored := "No"
		if row.Monitored {
			monitored = "Yes"
		}
		records = append(records, []string{
			row.Name,
			row.ResourceGroup,
			string(row.Kind),
			row.PowerState,
			monitored,
			row.InsightsStatus,
		})
	}
	return headers, records
}

// NetworkCSV returns the header and rows of the network health export.
func NetworkCSV(rows []model.NetworkRow) ([]string, [][]string) {
	headers := []string{"Resource Type", "Resource Name", "Resource Group", "Provisioning State", "Health State"}
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		displayName := row.TypeKey
		if resourceType := config.SupportedNetworkResources.Get(row.TypeKey); resourceType != nil {
			displayName = resourceType.DisplayName()
		}
		records = append(records, []string{
			displayName,
			row.Name,
			row.ResourceGroup,
			row.ProvisioningState,
			row.HealthState,
		})
	}
	return headers, records
}

// VulnerabilityCSV returns the header and rows of the server vulnerability
// export.
func VulnerabilityCSV(rows []report.VulnerabilityRow) ([]string, [][]string) {
	headers := []string{"UUID", "VM", "Vulnerability", "Date", "Severity", "Description", "Threat", "Impact", "Fix", "VulnId"}
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.UUID, row.VM, row.Vulnerability, row.Date, row.Severity,
			row.Description, row.Threat, row.Impact, row.Fix, row.VulnID,
		})
	}
	return headers, records
}

// SQLVulnerabilityCSV returns the header and rows of the SQL vulnerability
// export.
func SQLVulnerabilityCSV(rows []report.SQLVulnerabilityRow) ([]string, [][]string) {
	headers := []string{"uuid", "server", "database", "vulnerability", "date", "severity", "description", "impact", "fix", "vulnId"}
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.UUID, row.Server, row.Database, row.Vulnerability, row.Date,
			row.Severity, row.Description, row.Impact, row.Fix, row.VulnID,
		})
	}
	return headers, records
}

// MachineInventoryCSV returns the header and rows of the machine update
// inventory export.
func MachineInventoryCSV(rows []report.MachineInventoryRow) ([]string, [][]string) {
	headers := []string{"Name", "Type", "OS", "Location", "Status", "Update Status"}
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.Name, row.Type, row.OS, row.Location, row.Status, row.UpdateStatus,
		})
	}
	return headers, records
}

func rawValue(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
