package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peacoop/campaign-site/internal/normalize"
	"github.com/peacoop/campaign-site/internal/types"
)

var (
	fetchSheet string
	fetchID    string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Print the normalized records of one table as JSON",
	Long: `Fetch a table from the store and print its normalized records. With --id
only the matching record is fetched.

Tables: candidates, policies, articles, downloads, timelines, Opinion`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchSheet, "sheet", "s", "", "Table name (required)")
	fetchCmd.Flags().StringVar(&fetchID, "id", "", "Record id")
	_ = fetchCmd.MarkFlagRequired("sheet")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := context.Background()

	var rows []types.Row
	switch {
	case fetchSheet == types.TableOpinions && fetchID != "":
		return fmt.Errorf("--id is not supported for the %s table", types.TableOpinions)
	case fetchSheet == types.TableOpinions:
		rows, err = a.client.FetchOpinions(ctx)
	case fetchID != "":
		var row types.Row
		row, err = a.client.FetchRecord(ctx, fetchSheet, fetchID)
		rows = []types.Row{row}
	default:
		rows, err = a.client.FetchTable(ctx, fetchSheet)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", fetchSheet, err)
	}

	records, err := normalizeTable(fetchSheet, rows)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}

// normalizeTable decodes rows with the normalizer of their table.
func normalizeTable(table string, rows []types.Row) (any, error) {
	switch table {
	case types.TableCandidates:
		return normalize.Candidates(rows), nil
	case types.TablePolicies:
		return normalize.Policies(rows), nil
	case types.TableArticles:
		return normalize.Articles(rows), nil
	case types.TableDownloads:
		return normalize.Downloads(rows), nil
	case types.TableTimelines:
		return normalize.Timelines(rows), nil
	case types.TableOpinions:
		return normalize.Opinions(rows), nil
	default:
		return nil, fmt.Errorf("unknown table %q", table)
	}
}
