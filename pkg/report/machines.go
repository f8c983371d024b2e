package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nerdswords/azure-insights-collector/pkg/clients/graph"
)

// NoPendingUpdates is the update status of a machine whose pending patch
// count sums to zero.
const NoPendingUpdates = "No pending updates"

// UnknownOS marks machines whose OS type cannot be classified.
const UnknownOS = "unknown"

// windowsPatchClassifications are the availablePatchCountByClassification
// buckets that count as pending on Windows.
var windowsPatchClassifications = []string{
	"critical",
	"security",
	"updateRollup",
	"featurePack",
	"servicePack",
	"definition",
	"tools",
	"updates",
}

// linuxPatchClassifications are the buckets that count as pending on Linux.
var linuxPatchClassifications = []string{
	"critical",
	"security",
	"other",
}

const machinesQuery = `resources
| where type in~ ("microsoft.compute/virtualmachines", "microsoft.hybridcompute/machines")
| project id, name, type, location, properties`

const patchAssessmentsQuery = `patchassessmentresources
| where type endswith "patchassessmentresults"
| project id, properties`

// MachineInventoryRow is one line of the machine update inventory report.
type MachineInventoryRow struct {
	Name         string
	Type         string
	OS           string
	Location     string
	Status       string
	UpdateStatus string
}

// MachineInventory joins the machine records with their latest patch
// assessment and derives the pending update status per machine.
func (r *Runner) MachineInventory(ctx context.Context) ([]MachineInventoryRow, error) {
	machines, err := r.graph.Query(ctx, machinesQuery, []string{r.subscriptionID})
	if err != nil {
		return nil, err
	}
	assessments, err := r.graph.Query(ctx, patchAssessmentsQuery, []string{r.subscriptionID})
	if err != nil {
		return nil, err
	}
	rows := BuildMachineInventory(machines, assessments)
	r.logger.Info("Machine inventory built", "machines", len(rows), "assessments", len(assessments))
	return rows, nil
}

// BuildMachineInventory performs the join and projection over decoded
// Resource Graph records.
func BuildMachineInventory(machines, assessments []graph.Row) []MachineInventoryRow {
	// Patch assessment IDs extend the machine ID with
	// /patchAssessmentResults/latest.
	countsByMachine := map[string]map[string]interface{}{}
	osByMachine := map[string]string{}
	for _, assessment := range assessments {
		props := assessment.Map("properties")
		if props == nil {
			continue
		}
		machineID := strings.ToLower(strings.SplitN(assessment.String("id"), "/patchAssessmentResults", 2)[0])
		countsByMachine[machineID] = mapValue(props, "availablePatchCountByClassification")
		osByMachine[machineID] = stringValue(props, "osType")
	}

	var rows []MachineInventoryRow
	for _, machine := range machines {
		props := machine.Map("properties")
		machineID := strings.ToLower(machine.String("id"))

		osType := machineOS(machine.String("type"), props)
		if assessedOS, ok := osByMachine[machineID]; ok && assessedOS != "" {
			osType = assessedOS
		}

		rows = append(rows, MachineInventoryRow{
			Name:         machine.String("name"),
			Type:         machine.String("type"),
			OS:           osType,
			Location:     machine.String("location"),
			Status:       machineStatus(machine.String("type"), props),
			UpdateStatus: UpdateStatusText(osType, countsByMachine[machineID]),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

// PendingUpdates sums the OS-appropriate classification buckets, each count
// null-coalesced to zero. The second return value is false for an OS that
// has no classification mapping.
func PendingUpdates(osType string, counts map[string]interface{}) (int, bool) {
	var classifications []string
	switch strings.ToLower(osType) {
	case "windows":
		classifications = windowsPatchClassifications
	case "linux":
		classifications = linuxPatchClassifications
	default:
		return 0, false
	}

	sum := 0
	for _, bucket := range classifications {
		if v, ok := counts[bucket].(float64); ok {
			sum += int(v)
		}
	}
	return sum, true
}

// UpdateStatusText renders the pending update count the way the inventory
// report words it. Machines with an unclassifiable OS get the literal
// "unknown".
func UpdateStatusText(osType string, counts map[string]interface{}) string {
	pending, ok := PendingUpdates(osType, counts)
	if !ok {
		return UnknownOS
	}
	if pending == 0 {
		return NoPendingUpdates
	}
	return fmt.Sprintf("%d pending updates", pending)
}

func machineOS(machineType string, props map[string]interface{}) string {
	switch strings.ToLower(machineType) {
	case "microsoft.compute/virtualmachines":
		storage := mapValue(props, "storageProfile")
		osDisk := mapValue(storage, "osDisk")
		if os := stringValue(osDisk, "osType"); os != "" {
			return os
		}
	case "microsoft.hybridcompute/machines":
		if os := stringValue(props, "osType"); os != "" {
			return os
		}
	}
	return UnknownOS
}

func machineStatus(machineType string, props map[string]interface{}) string {
	switch strings.ToLower(machineType) {
	case "microsoft.compute/virtualmachines":
		extended := mapValue(props, "extended")
		view := mapValue(extended, "instanceView")
		power := mapValue(view, "powerState")
		if status := stringValue(power, "displayStatus"); status != "" {
			return status
		}
	case "microsoft.hybridcompute/machines":
		if status := stringValue(props, "status"); status != "" {
			return status
		}
	}
	return UnknownOS
}
