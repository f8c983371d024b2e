// Package report implements the Resource Graph backed reports: server and
// SQL vulnerability findings and the machine update inventory. The shipped
// KQL assets project the same reports engine-side; here the projection runs
// in Go over raw records so it stays testable.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/nerdswords/azure-insights-collector/pkg/clients/graph"
	"github.com/nerdswords/azure-insights-collector/pkg/logging"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
)

// serverVulnerabilityTypes are the assessedResourceType values that count
// as server vulnerability findings.
var serverVulnerabilityTypes = map[string]struct{}{
	"ServerVulnerability":    {},
	"ServerVulnerabilityTvm": {},
}

var sqlVulnerabilityTypes = map[string]struct{}{
	"SqlServerVulnerability":         {},
	"SqlVirtualMachineVulnerability": {},
}

// subAssessmentsQuery fetches the raw sub-assessment records; filtering and
// projection happen Go-side.
const subAssessmentsQuery = `securityresources
| where type =~ "microsoft.security/assessments/subassessments"
| project name, properties`

// VulnerabilityRow is one line of the server vulnerability report.
type VulnerabilityRow struct {
	UUID          string
	VM            string
	Vulnerability string
	Date          string
	Severity      string
	Description   string
	Threat        string
	Impact        string
	Fix           string
	VulnID        string
}

// SQLVulnerabilityRow is one line of the SQL vulnerability report. The
// column set is analogous to the server report but differently cased in the
// rendered output.
type SQLVulnerabilityRow struct {
	UUID          string
	Server        string
	Database      string
	Vulnerability string
	Date          string
	Severity      string
	Description   string
	Impact        string
	Fix           string
	VulnID        string
}

// Runner executes the reports against Resource Graph.
type Runner struct {
	logger         logging.Logger
	graph          graph.Client
	subscriptionID string
}

func NewRunner(logger logging.Logger, graphClient graph.Client, subscriptionID string) *Runner {
	return &Runner{
		logger:         logger,
		graph:          graphClient,
		subscriptionID: subscriptionID,
	}
}

func (r *Runner) ServerVulnerabilities(ctx context.Context) ([]VulnerabilityRow, error) {
	records, err := r.graph.Query(ctx, subAssessmentsQuery, []string{r.subscriptionID})
	if err != nil {
		return nil, err
	}
	rows := ProjectServerVulnerabilities(records)
	r.logger.Info("Server vulnerability report built", "findings", len(rows), "records", len(records))
	return rows, nil
}

func (r *Runner) SQLVulnerabilities(ctx context.Context) ([]SQLVulnerabilityRow, error) {
	records, err := r.graph.Query(ctx, subAssessmentsQuery, []string{r.subscriptionID})
	if err != nil {
		return nil, err
	}
	rows := ProjectSQLVulnerabilities(records)
	r.logger.Info("SQL vulnerability report built", "findings", len(rows), "records", len(records))
	return rows, nil
}

// ProjectServerVulnerabilities keeps exactly the Unhealthy records whose
// assessed resource type is a server vulnerability, one output row per
// record. VM is the machine name segment of the assessed resource ID.
func ProjectServerVulnerabilities(records []graph.Row) []VulnerabilityRow {
	var rows []VulnerabilityRow
	for _, record := range records {
		props := record.Map("properties")
		if props == nil {
			continue
		}
		if !isUnhealthy(props) {
			continue
		}
		additional := mapValue(props, "additionalData")
		if _, ok := serverVulnerabilityTypes[stringValue(additional, "assessedResourceType")]; !ok {
			continue
		}

		resourceID := stringValue(mapValue(props, "resourceDetails"), "id")
		rows = append(rows, VulnerabilityRow{
			UUID:          record.String("name"),
			VM:            model.SlashSegment(resourceID, 8),
			Vulnerability: stringValue(props, "displayName"),
			Date:          reportDate(stringValue(props, "timeGenerated")),
			Severity:      stringValue(mapValue(props, "status"), "severity"),
			Description:   stringValue(props, "description"),
			Threat:        stringValue(additional, "threat"),
			Impact:        stringValue(props, "impact"),
			Fix:           stringValue(props, "remediation"),
			VulnID:        stringValue(props, "id"),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].VM != rows[j].VM {
			return rows[i].VM < rows[j].VM
		}
		return rows[i].UUID < rows[j].UUID
	})
	return rows
}

// ProjectSQLVulnerabilities is the SQL analog of
// ProjectServerVulnerabilities.
func ProjectSQLVulnerabilities(records []graph.Row) []SQLVulnerabilityRow {
	var rows []SQLVulnerabilityRow
	for _, record := range records {
		props := record.Map("properties")
		if props == nil {
			continue
		}
		if !isUnhealthy(props) {
			continue
		}
		additional := mapValue(props, "additionalData")
		if _, ok := sqlVulnerabilityTypes[stringValue(additional, "assessedResourceType")]; !ok {
			continue
		}

		resourceID := stringValue(mapValue(props, "resourceDetails"), "id")
		rows = append(rows, SQLVulnerabilityRow{
			UUID:          record.String("name"),
			Server:        model.SlashSegment(resourceID, 8),
			Database:      stringValue(additional, "databaseName"),
			Vulnerability: stringValue(props, "displayName"),
			Date:          reportDate(stringValue(props, "timeGenerated")),
			Severity:      stringValue(mapValue(props, "status"), "severity"),
			Description:   stringValue(props, "description"),
			Impact:        stringValue(props, "impact"),
			Fix:           stringValue(props, "remediation"),
			VulnID:        stringValue(props, "id"),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Server != rows[j].Server {
			return rows[i].Server < rows[j].Server
		}
		return rows[i].UUID < rows[j].UUID
	})
	return rows
}

func isUnhealthy(props map[string]interface{}) bool {
	return stringValue(mapValue(props, "status"), "code") == "Unhealthy"
}

// reportDate renders an RFC 3339 timestamp as yyyy-MM-dd, passing malformed
// values through unchanged.
func reportDate(ts string) string {
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return parsed.Format("2006-01-02")
}

func mapValue(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

func stringValue(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
