// Package export renders finalized report rows to console tables and
// timestamped CSV files. The full result set is materialized before either
// output happens; nothing here streams.
package export

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/nerdswords/azure-insights-collector/pkg/config"
	"github.com/nerdswords/azure-insights-collector/pkg/model"
)

const notAvailable = "N/A"

// RenderTable writes a generic titled table. Used for Resource Graph query
// results and the graph reports.
func RenderTable(w io.Writer, title string, headers []string, rows [][]string) {
	fmt.Fprintf(w, "\n%s\n", title)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

// RenderStorageTable writes the storage account metrics table with
// human-readable byte and number formatting.
func RenderStorageTable(w io.Writer, rows []model.StorageRow) {
	fmt.Fprintf(w, "\nStorage Account Metrics (Last 24h)\n")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Storage Account\tRG\tTrans\tIngress\tEgress\tUsed Cap\tE2E Lat\tSrv Lat\tAvail%\tStatus")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Account,
			row.ResourceGroup,
			formatNumber(row.Metrics.Transactions, 0),
			formatBytes(row.Metrics.Ingress),
			formatBytes(row.Metrics.Egress),
			formatBytes(row.Metrics.UsedCapacity),
			formatNumber(row.Metrics.E2ELatency, 2),
			formatNumber(row.Metrics.ServerLatency, 2),
			formatNumber(row.Metrics.Availability, 3),
			string(row.Status),
		)
	}
	tw.Flush()
}

// RenderMachinesTable writes the machine monitoring table followed by the
// totals footer.
func RenderMachinesTable(w io.Writer, result *model.MachinesResult) {
	fmt.Fprintf(w, "\nVirtual Machines Monitoring Status\n")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VM Name\tRG\tType\tPower\tMonitored\tStatus")
	for _, row := range result.Rows {
		monitored := "no"
		if row.Monitored {
			monitored = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Name,
			row.ResourceGroup,
			string(row.Kind),
			row.PowerState,
			monitored,
			row.InsightsStatus,
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nTotal VMs: %d\n", result.Total)
	fmt.Fprintf(w, "Monitored: %d\n", result.Monitored)
	fmt.Fprintf(w, "Not Monitored: %d\n", result.Total-result.Monitored)
}

// RenderNetworkTable writes the per-type health summary of the network
// resources.
func RenderNetworkTable(w io.Writer, rows []model.NetworkRow) {
	type counts struct {
		total       int
		available   int
		degraded    int
		unavailable int
	}
	byType := map[string]*counts{}
	for _, row := range rows {
		c := byType[row.TypeKey]
		if c == nil {
			c = &counts{}
			byType[row.TypeKey] = c
		}
		c.total++
		switch strings.ToLower(row.HealthState) {
		case "available":
			c.available++
		case "degraded":
			c.degraded++
		case "unavailable":
			c.unavailable++
		}
	}

	fmt.Fprintf(w, "\nNetwork Resources Status\n")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Resource Type\tCount\tAvailable\tDegraded\tUnavailable")
	for _, resourceType := range config.SupportedNetworkResources {
		c := byType[resourceType.Key]
		if c == nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n",
			resourceType.DisplayName(), c.total, c.available, c.degraded, c.unavailable)
	}
	tw.Flush()
}

// formatBytes renders a byte count on the 1024 ladder, e.g. "1.50 MB".
func formatBytes(value *float64) string {
	if value == nil {
		return notAvailable
	}
	v := *value
	for _, unit := range []string{"", "KB", "MB", "GB", "TB"} {
		if v < 1024.0 {
			return strings.TrimSpace(fmt.Sprintf("%.2f %s", v, unit))
		}
		v /= 1024.0
	}
	return strings.TrimSpace(fmt.Sprintf("%.2f PB", v))
}

// formatNumber renders a value with thousands grouping and the given number
// of decimals, e.g. 1234567.8 -> "1,234,567.80".
func formatNumber(value *float64, decimals int) string {
	if value == nil {
		return notAvailable
	}
	formatted := fmt.Sprintf("%.*f", decimals, *value)

	intPart := formatted
	fracPart := ""
	if idx := strings.IndexByte(formatted, '.'); idx >= 0 {
		intPart, fracPart = formatted[:idx], formatted[idx:]
	}
	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign, intPart = "-", intPart[1:]
	}

	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}
	return sign + grouped.String() + fracPart
}
