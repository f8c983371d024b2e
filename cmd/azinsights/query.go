package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/nerdswords/azure-insights-collector/pkg/clients/azure"
	"github.com/nerdswords/azure-insights-collector/pkg/clients/graph"
	"github.com/nerdswords/azure-insights-collector/pkg/export"
	"github.com/nerdswords/azure-insights-collector/pkg/kql"
)

// newQueryCommand manages the embedded KQL assets. The assets are executed
// verbatim by the Resource Graph engine; show prints them for paste-and-run
// use in the portal.
func newQueryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "List, show or run the shipped Resource Graph queries",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Lists the shipped queries",
				Action: func(_ *cli.Context) error {
					rows := make([][]string, 0, len(kql.Assets))
					for _, asset := range kql.Assets {
						rows = append(rows, []string{asset.Name, asset.Description})
					}
					export.RenderTable(os.Stdout, "Shipped Resource Graph Queries", []string{"Name", "Description"}, rows)
					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "Prints the query text exactly as shipped",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					asset, err := assetFromArgs(c)
					if err != nil {
						return err
					}
					text, err := asset.Text()
					if err != nil {
						return err
					}
					fmt.Println(text)
					return nil
				},
			},
			{
				Name:      "run",
				Usage:     "Runs the query against Resource Graph and renders the result",
				ArgsUsage: "<name>",
				Action:    runQuery,
			},
		},
	}
}

func assetFromArgs(c *cli.Context) (*kql.Asset, error) {
	name := c.Args().First()
	if name == "" {
		return nil, fmt.Errorf("query name required, one of: %v", kql.Names())
	}
	asset := kql.Get(name)
	if asset == nil {
		return nil, fmt.Errorf("unknown query '%s', expected one of: %v", name, kql.Names())
	}
	return asset, nil
}

func runQuery(c *cli.Context) error {
	asset, err := assetFromArgs(c)
	if err != nil {
		return err
	}
	text, err := asset.Text()
	if err != nil {
		return err
	}

	cfg, err := loadRunConfig(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if timeout := runTimeout(c); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	factory, err := azure.NewFactory(ctx, logger, cfg)
	if err != nil {
		return err
	}

	records, err := factory.GetGraphClient().Query(ctx, text, []string{cfg.SubscriptionID})
	if err != nil {
		return err
	}

	headers, rows := tabulate(records)
	export.RenderTable(os.Stdout, fmt.Sprintf("Query %s (%d rows)", asset.Name, len(rows)), headers, rows)
	return nil
}

// tabulate flattens object-array records into a column-ordered table. The
// engine result carries no column order, so columns come out sorted by name.
func tabulate(records []graph.Row) ([]string, [][]string) {
	seen := map[string]struct{}{}
	var headers []string
	for _, record := range records {
		for key := range record {
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				headers = append(headers, key)
			}
		}
	}
	sort.Strings(headers)

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		row := make([]string, 0, len(headers))
		for _, key := range headers {
			value := record[key]
			if value == nil {
				row = append(row, "")
				continue
			}
			row = append(row, fmt.Sprintf("%v", value))
		}
		rows = append(rows, row)
	}
	return headers, rows
}
