package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/peacoop/campaign-site/internal/config"
	"github.com/peacoop/campaign-site/internal/opinion"
	"github.com/peacoop/campaign-site/internal/render"
	"github.com/peacoop/campaign-site/internal/sheets"
	"github.com/peacoop/campaign-site/internal/site"
	"github.com/peacoop/campaign-site/internal/types"
	"github.com/peacoop/campaign-site/web"
)

// app is the wired component graph shared by the subcommands.
type app struct {
	cfg         config.Config
	registry    *prometheus.Registry
	client      *sheets.Client
	tags        *opinion.Aggregator
	form        *opinion.Form
	coordinator *site.Coordinator
}

// newApp resolves the configuration and builds every component from it.
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	template := web.IndexHTML
	if cfg.Template != "" {
		template, err = os.ReadFile(cfg.Template)
		if err != nil {
			return nil, fmt.Errorf("failed to read template: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := sheets.NewMetrics("", registry)
	if err != nil {
		return nil, err
	}

	client, err := sheets.New(sheets.Options{
		Endpoint:        cfg.Endpoint,
		FetchTimeout:    cfg.FetchTimeout,
		CallbackTimeout: cfg.CallbackTimeout,
		Metrics:         metrics,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	tags := opinion.NewAggregator(opinion.AggregatorOptions{
		Fetcher:  client,
		Limit:    cfg.TagCloudLimit,
		MinScale: cfg.MinFontScale,
		MaxScale: cfg.MaxFontScale,
		Timeout:  cfg.FetchTimeout + cfg.CallbackTimeout,
		Logger:   logger,
	})

	form := opinion.NewForm(opinion.FormOptions{
		Submitter:        client,
		Aggregator:       tags,
		ReaggregateDelay: cfg.ReaggregateDelay,
		FeedbackDuration: cfg.FeedbackDuration,
		Locale:           cfg.Locale,
		Logger:           logger,
	})

	subjects := make([]types.SubjectID, len(cfg.TimelineSubjects))
	for i, s := range cfg.TimelineSubjects {
		subjects[i] = types.SubjectID(s)
	}

	coordinator := site.NewCoordinator(site.Options{
		Fetcher:   client,
		Template:  template,
		Locale:    cfg.Locale,
		Subjects:  subjects,
		Downloads: render.NewDownloadSection(cfg.DownloadsCap, cfg.Locale),
		Cloud:     tags,
		Logger:    logger,
	})

	return &app{
		cfg:         cfg,
		registry:    registry,
		client:      client,
		tags:        tags,
		form:        form,
		coordinator: coordinator,
	}, nil
}
