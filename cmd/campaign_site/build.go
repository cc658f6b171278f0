package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peacoop/campaign-site/internal/types"
)

var buildOut string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render the page once and write it to a file",
	Long: `Fetch every table, render the page and write the HTML to disk. Tables that
fail to load keep the template's placeholder content.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "Output HTML file (overrides config output)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	out := a.cfg.Output
	if buildOut != "" {
		out = buildOut
	}

	ctx := context.Background()
	if _, err := a.tags.Reload(ctx); err != nil {
		logger.Warn("Tag cloud unavailable", zap.Error(err))
	}

	page, err := a.coordinator.LoadAll(ctx)
	if page == nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	if err != nil {
		logger.Warn("Page rendered with errors", zap.Error(err))
	}

	snap := a.coordinator.Latest()
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, []byte(snap.HTML), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %s (%s)\n", color.GreenString("Wrote"), out, humanize.Bytes(uint64(len(snap.HTML))))
	fmt.Fprintf(w, "Rendered %d/%d tables: %s\n", len(snap.Rendered), len(types.PageTables), strings.Join(snap.Rendered, ", "))
	return nil
}
