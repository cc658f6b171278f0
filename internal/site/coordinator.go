// Package site coordinates a full page load: the five tables are fetched
// concurrently and each one that arrives is handed to its section renderer.
package site

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/peacoop/campaign-site/internal/normalize"
	"github.com/peacoop/campaign-site/internal/render"
	"github.com/peacoop/campaign-site/internal/types"
)

// TableFetcher loads the raw rows of one table.
type TableFetcher interface {
	FetchTable(ctx context.Context, name string) ([]types.Row, error)
}

// CloudSource supplies the current tag cloud.
type CloudSource interface {
	Cloud() []types.TagCount
}

// Options configures a Coordinator.
type Options struct {
	Fetcher   TableFetcher
	Template  []byte
	Locale    string
	Subjects  []types.SubjectID
	Downloads *render.DownloadSection
	Cloud     CloudSource
	Logger    *zap.Logger
}

// Coordinator renders page snapshots.
type Coordinator struct {
	fetcher   TableFetcher
	template  []byte
	locale    string
	subjects  []types.SubjectID
	downloads *render.DownloadSection
	cloud     CloudSource
	logger    *zap.Logger

	inFlight atomic.Int32
	latest   atomic.Pointer[Snapshot]
}

// Snapshot is the result of one LoadAll call.
type Snapshot struct {
	Page     *render.Page
	HTML     string
	Rendered []string // tables that arrived and were rendered
	LoadedAt time.Time
}

// NewCoordinator creates a coordinator.
func NewCoordinator(opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	downloads := opts.Downloads
	if downloads == nil {
		downloads = render.NewDownloadSection(render.DefaultDownloadsCap, opts.Locale)
	}
	return &Coordinator{
		fetcher:   opts.Fetcher,
		template:  opts.Template,
		locale:    opts.Locale,
		subjects:  opts.Subjects,
		downloads: downloads,
		cloud:     opts.Cloud,
		logger:    logger.Named("site"),
	}
}

// Loading reports whether any LoadAll call is in progress.
func (c *Coordinator) Loading() bool {
	return c.inFlight.Load() > 0
}

// Latest returns the most recently finished snapshot, or nil before the first load.
func (c *Coordinator) Latest() *Snapshot {
	return c.latest.Load()
}

// Downloads returns the download section fed by every load.
func (c *Coordinator) Downloads() *render.DownloadSection {
	return c.downloads
}

// RefreshTagCloud re-renders the tag cloud of the latest snapshot and
// publishes the result as a new snapshot. It does nothing before the first load.
// A snapshot published meanwhile by LoadAll is refreshed in turn.
func (c *Coordinator) RefreshTagCloud(cloud []types.TagCount) error {
	for {
		snap := c.latest.Load()
		if snap == nil {
			return nil
		}

		page, err := render.NewPage([]byte(snap.HTML))
		if err != nil {
			return err
		}
		if err := render.TagCloud(page, cloud, c.locale); err != nil {
			return err
		}
		html, err := page.HTML()
		if err != nil {
			return err
		}

		next := &Snapshot{Page: page, HTML: html, Rendered: snap.Rendered, LoadedAt: snap.LoadedAt}
		if c.latest.CompareAndSwap(snap, next) {
			c.logger.Debug("Tag cloud refreshed", zap.Int("tags", len(cloud)))
			return nil
		}
	}
}

// LoadAll renders a fresh page from the template. A table that fails to load
// is left out and the others still render; the returned error only reports
// template and rendering failures. Concurrent calls are not serialised: the
// last one to finish becomes Latest.
func (c *Coordinator) LoadAll(ctx context.Context) (*render.Page, error) {
	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	page, err := render.NewPage(c.template)
	if err != nil {
		return nil, err
	}

	page.ShowLoading()

	start := time.Now()
	results := c.fetchAll(ctx)

	var errs []error
	var rendered []string
	for i, table := range types.PageTables {
		rows := results[i]
		if rows == nil {
			continue
		}
		if err := c.renderTable(page, table, rows); err != nil {
			c.logger.Error("Failed to render section", zap.String("table", table), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		rendered = append(rendered, table)
	}

	if c.cloud != nil {
		if err := render.TagCloud(page, c.cloud.Cloud(), c.locale); err != nil {
			errs = append(errs, err)
		}
	}

	page.Rescan()
	page.HideLoading()

	html, err := page.HTML()
	if err != nil {
		errs = append(errs, err)
	}

	c.latest.Store(&Snapshot{Page: page, HTML: html, Rendered: rendered, LoadedAt: time.Now()})
	c.logger.Info("Page loaded",
		zap.Strings("rendered", rendered),
		zap.Int("tables", len(types.PageTables)),
		zap.Duration("duration", time.Since(start)))

	return page, errors.Join(errs...)
}

// fetchAll loads every page table concurrently. A failed table yields nil in
// its slot; no failure stops the others.
func (c *Coordinator) fetchAll(ctx context.Context) [][]types.Row {
	results := make([][]types.Row, len(types.PageTables))

	g, gCtx := errgroup.WithContext(ctx)
	for i, table := range types.PageTables {
		i, table := i, table
		g.Go(func() error {
			rows, err := c.fetcher.FetchTable(gCtx, table)
			if err != nil {
				c.logger.Warn("Table unavailable", zap.String("table", table), zap.Error(err))
				return nil
			}
			if rows == nil {
				rows = []types.Row{}
			}
			results[i] = rows
			return nil
		})
	}

	// Every goroutine reports success, so Wait only joins.
	_ = g.Wait()
	return results
}

func (c *Coordinator) renderTable(page *render.Page, table string, rows []types.Row) error {
	switch table {
	case types.TableCandidates:
		render.Candidates(page, normalize.Candidates(rows))
		return nil
	case types.TablePolicies:
		return render.Policies(page, normalize.Policies(rows))
	case types.TableArticles:
		return render.Articles(page, normalize.Articles(rows), c.locale)
	case types.TableDownloads:
		c.downloads.SetAll(normalize.Downloads(rows))
		return c.downloads.Render(page, "", false)
	case types.TableTimelines:
		return render.Timelines(page, normalize.Timelines(rows), c.subjects)
	default:
		return nil
	}
}
