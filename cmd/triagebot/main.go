/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main runs the repo triage sweeper: on a fixed interval it
// warns and closes stale issues across the configured repos, and
// optionally retires open issues triaged under non-bug labels.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"

	"github.com/sailshq/triagebot/gateway"
	"github.com/sailshq/triagebot/gateway/githubgateway"
	"github.com/sailshq/triagebot/sweeper"
)

type config struct {
	// Exactly one of Token or the App credentials must be set.
	Token          string `env:"GITHUB_TOKEN"`
	AppID          int64  `env:"GITHUB_APP_ID"`
	InstallationID int64  `env:"GITHUB_INSTALLATION_ID"`
	AppKeyFile     string `env:"GITHUB_APP_KEY_FILE"`

	// Repos is a comma-separated list of "owner/name" entries.
	Repos []string `env:"REPOS,required"`

	ShelfLifeDays    int      `env:"SHELF_LIFE_DAYS,default=30"`
	GracePeriodDays  int      `env:"GRACE_PERIOD_DAYS,default=0"`
	GracePeriodLabel string   `env:"GRACE_PERIOD_LABEL"`
	CleanupLabel     string   `env:"CLEANUP_LABEL"`
	MaxIssuesPerRepo int      `env:"MAX_ISSUES_PER_REPO,default=30"`
	LabelsToExclude  []string `env:"LABELS_TO_EXCLUDE"`

	// NonIssueLabels, when set, triggers a close-by-label pass after
	// each sweep for submissions triaged as something other than a
	// verified bug.
	NonIssueLabels []string `env:"NON_ISSUE_LABELS"`

	ContributionGuideURL string `env:"CONTRIBUTION_GUIDE_URL"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL,default=24h"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	repos, err := parseRepos(cfg.Repos)
	if err != nil {
		clog.FatalContextf(ctx, "parsing REPOS: %v", err)
	}

	var gwOpts []githubgateway.Option
	switch {
	case cfg.Token != "":
		gwOpts = append(gwOpts, githubgateway.WithToken(cfg.Token))
	case cfg.AppID != 0 && cfg.InstallationID != 0 && cfg.AppKeyFile != "":
		gwOpts = append(gwOpts, githubgateway.WithAppKeyFile(cfg.AppID, cfg.InstallationID, cfg.AppKeyFile))
	default:
		clog.FatalContextf(ctx, "set GITHUB_TOKEN, or GITHUB_APP_ID + GITHUB_INSTALLATION_ID + GITHUB_APP_KEY_FILE")
	}

	gw, err := githubgateway.New(ctx, gwOpts...)
	if err != nil {
		clog.FatalContextf(ctx, "creating GitHub gateway: %v", err)
	}

	sw, err := sweeper.New(gw, sweeper.Config{
		Repos:                repos,
		ShelfLifeDays:        cfg.ShelfLifeDays,
		GracePeriodDays:      cfg.GracePeriodDays,
		GracePeriodLabel:     cfg.GracePeriodLabel,
		CleanupLabel:         cfg.CleanupLabel,
		MaxIssuesPerRepo:     cfg.MaxIssuesPerRepo,
		LabelsToExclude:      cfg.LabelsToExclude,
		ContributionGuideURL: cfg.ContributionGuideURL,
	})
	if err != nil {
		clog.FatalContextf(ctx, "configuring sweeper: %v", err)
	}

	clog.InfoContextf(ctx, "Sweeping %d repos every %v", len(repos), cfg.SweepInterval)
	if len(cfg.NonIssueLabels) > 0 {
		go runNonIssueCloser(ctx, sw, cfg.NonIssueLabels, cfg.SweepInterval)
	}

	if err := sw.Run(ctx, cfg.SweepInterval); err != nil && ctx.Err() == nil {
		clog.FatalContextf(ctx, "sweeper exited: %v", err)
	}
}

func runNonIssueCloser(ctx context.Context, sw *sweeper.Sweeper, labels []string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := sw.CloseByLabel(ctx, labels); err != nil && ctx.Err() == nil {
			clog.ErrorContextf(ctx, "closing non-issues: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func parseRepos(entries []string) ([]gateway.Repo, error) {
	repos := make([]gateway.Repo, 0, len(entries))
	for _, entry := range entries {
		owner, name, ok := strings.Cut(strings.TrimSpace(entry), "/")
		if !ok || owner == "" || name == "" {
			return nil, fmt.Errorf("malformed repo %q, want owner/name", entry)
		}
		repos = append(repos, gateway.Repo{Owner: owner, Name: name})
	}
	return repos, nil
}
