package report

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nerdswords/azure-insights-collector/pkg/clients/graph"
)

func TestPendingUpdates(t *testing.T) {
	testCases := []struct {
		name    string
		osType  string
		counts  map[string]interface{}
		want    int
		classed bool
	}{
		{
			name:    "windows sums all buckets",
			osType:  "Windows",
			counts:  map[string]interface{}{"critical": 2.0, "security": 1.0, "updates": 3.0},
			want:    6,
			classed: true,
		},
		{
			name:    "linux ignores windows-only buckets",
			osType:  "Linux",
			counts:  map[string]interface{}{"critical": 1.0, "other": 2.0, "updateRollup": 5.0},
			want:    3,
			classed: true,
		},
		{
			name:    "case insensitive os",
			osType:  "windows",
			counts:  map[string]interface{}{"security": 4.0},
			want:    4,
			classed: true,
		},
		{
			name:    "nil counts",
			osType:  "Linux",
			want:    0,
			classed: true,
		},
		{
			name:   "unknown os",
			osType: "unknown",
			counts: map[string]interface{}{"critical": 2.0},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, classed := PendingUpdates(tc.osType, tc.counts)
			require.Equal(t, tc.classed, classed)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestUpdateStatusText(t *testing.T) {
	require.Equal(t, "3 pending updates", UpdateStatusText("Windows", map[string]interface{}{"critical": 2.0, "security": 1.0}))
	require.Equal(t, NoPendingUpdates, UpdateStatusText("Linux", map[string]interface{}{"critical": 0.0}))
	require.Equal(t, NoPendingUpdates, UpdateStatusText("Linux", nil))
	require.Equal(t, UnknownOS, UpdateStatusText("", map[string]interface{}{"critical": 2.0}))
}

func machineRecord(id, name, machineType string, props map[string]interface{}) graph.Row {
	return graph.Row{
		"id":         id,
		"name":       name,
		"type":       machineType,
		"location":   "westeurope",
		"properties": props,
	}
}

func TestBuildMachineInventory(t *testing.T) {
	vmID := "/subscriptions/sub/resourceGroups/RG/providers/Microsoft.Compute/virtualMachines/vm-web"
	arcID := "/subscriptions/sub/resourceGroups/RG/providers/Microsoft.HybridCompute/machines/arc-db"

	machines := []graph.Row{
		machineRecord(vmID, "vm-web", "microsoft.compute/virtualmachines", map[string]interface{}{
			"storageProfile": map[string]interface{}{
				"osDisk": map[string]interface{}{"osType": "Windows"},
			},
			"extended": map[string]interface{}{
				"instanceView": map[string]interface{}{
					"powerState": map[string]interface{}{"displayStatus": "VM running"},
				},
			},
		}),
		machineRecord(arcID, "arc-db", "microsoft.hybridcompute/machines", map[string]interface{}{
			"osType": "linux",
			"status": "Connected",
		}),
		machineRecord("/subscriptions/sub/resourceGroups/RG/providers/Microsoft.Compute/virtualMachines/vm-bare", "vm-bare", "microsoft.compute/virtualmachines", map[string]interface{}{}),
	}

	// Assessment IDs extend the machine ID and may differ in casing.
	assessments := []graph.Row{
		{
			"id": vmID + "/patchAssessmentResults/latest",
			"properties": map[string]interface{}{
				"osType": "Windows",
				"availablePatchCountByClassification": map[string]interface{}{
					"critical": 2.0,
					"security": 1.0,
				},
			},
		},
		{
			"id": "/subscriptions/sub/resourcegroups/rg/providers/microsoft.hybridcompute/machines/arc-db/patchAssessmentResults/latest",
			"properties": map[string]interface{}{
				"osType": "Linux",
				"availablePatchCountByClassification": map[string]interface{}{
					"critical": 0.0,
					"other":    0.0,
				},
			},
		},
	}

	rows := BuildMachineInventory(machines, assessments)
	require.Len(t, rows, 3)

	// Sorted by name.
	require.Equal(t, "arc-db", rows[0].Name)
	require.Equal(t, "vm-bare", rows[1].Name)
	require.Equal(t, "vm-web", rows[2].Name)

	require.Equal(t, "Linux", rows[0].OS)
	require.Equal(t, "Connected", rows[0].Status)
	require.Equal(t, NoPendingUpdates, rows[0].UpdateStatus)

	require.Equal(t, "Windows", rows[2].OS)
	require.Equal(t, "VM running", rows[2].Status)
	require.Equal(t, "3 pending updates", rows[2].UpdateStatus)

	// No assessment and no OS hint leaves the machine unclassified.
	require.Equal(t, UnknownOS, rows[1].OS)
	require.Equal(t, UnknownOS, rows[1].Status)
	require.Equal(t, UnknownOS, rows[1].UpdateStatus)
}
