// Package kql ships the repository's Resource Graph query assets. The
// queries are configuration: they are embedded verbatim and executed by the
// Resource Graph engine, never parsed or rewritten locally.
package kql

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed queries/*.kql
var queryFS embed.FS

// Asset is one embedded KQL query.
type Asset struct {
	// Name is the identifier used by `query run <name>`.
	Name string
	// Description is a one-line summary for `query list`.
	Description string
	file        string
}

// Assets lists the shipped queries in display order.
var Assets = []Asset{
	{
		Name:        "server-vulnerabilities",
		Description: "Unhealthy server vulnerability findings per machine",
		file:        "queries/server_vulnerabilities.kql",
	},
	{
		Name:        "sql-vulnerabilities",
		Description: "Unhealthy SQL vulnerability findings per server and database",
		file:        "queries/sql_vulnerabilities.kql",
	},
	{
		Name:        "machine-updates",
		Description: "VM and Arc machine inventory with pending update counts",
		file:        "queries/machine_updates.kql",
	},
}

// Get returns the named asset, or nil when it is unknown.
func Get(name string) *Asset {
	for i := range Assets {
		if Assets[i].Name == name {
			return &Assets[i]
		}
	}
	return nil
}

// Names returns the asset names in display order.
func Names() []string {
	names := make([]string, 0, len(Assets))
	for _, a := range Assets {
		names = append(names, a.Name)
	}
	return names
}

// Text returns the query text exactly as shipped.
func (a Asset) Text() (string, error) {
	raw, err := queryFS.ReadFile(a.file)
	if err != nil {
		return "", fmt.Errorf("failed to read query asset %s: %w", a.Name, err)
	}
	return strings.TrimRight(string(raw), "\n"), nil
}
