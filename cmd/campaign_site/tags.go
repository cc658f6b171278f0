package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/peacoop/campaign-site/internal/types"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Print the ranked opinion tags",
	Long:  `Aggregate the submitted opinions into the tag cloud and print it as a table.`,
	RunE:  runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)
}

func runTags(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	cloud, err := a.tags.Reload(context.Background())
	if err != nil {
		return fmt.Errorf("failed to aggregate opinions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(cloud) == 0 {
		fmt.Fprintln(out, "No tags yet")
		return nil
	}

	return writeTagTable(out, cloud, color.New(color.Bold).SprintFunc())
}

// writeTagTable aligns the table first and styles the header afterwards, so
// escape codes never count towards column widths.
func writeTagTable(w io.Writer, cloud []types.TagCount, header func(a ...any) string) error {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tTAG\tCOUNT\tSIZE")
	for i, tc := range cloud {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.2frem\n", i+1, tc.Tag, tc.Count, tc.Scale)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	head, rows, _ := bytes.Cut(buf.Bytes(), []byte("\n"))
	if _, err := fmt.Fprintln(w, header(string(bytes.TrimRight(head, " ")))); err != nil {
		return err
	}
	_, err := w.Write(rows)
	return err
}
