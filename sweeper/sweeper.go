/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package sweeper retires inactive issues across a set of repos. Each
// pass runs two searches per repo: one for issues gone stale (no update
// within the shelf life) and one for warned issues whose grace period
// has expired. With a grace period configured, stale issues are warned
// and labeled; without one, they are closed outright.
//
// Repos are processed one at a time so a rate-limit backoff on one repo
// cannot stall the ordering of the others, while the per-issue mutations
// within a repo run concurrently. State lives entirely in the tracker's
// labels; nothing is persisted between passes, and every pass recomputes
// its thresholds from the current time.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/sailshq/triagebot/gateway"
)

// Sweeper drives the warn-then-close pipeline.
type Sweeper struct {
	tracker gateway.Tracker
	cfg     Config

	staleTmpl    *template.Template
	graceTmpl    *template.Template
	nonIssueTmpl *template.Template

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// Option configures the Sweeper.
type Option func(*Sweeper)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		s.now = now
	}
}

// WithSleep overrides how the sweeper waits out a rate-limit backoff,
// for tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(s *Sweeper) {
		s.sleep = sleep
	}
}

// New validates the config and constructs a Sweeper. Policy violations
// are rejected here, before any remote call.
func New(tracker gateway.Tracker, cfg Config, opts ...Option) (*Sweeper, error) {
	if cfg.GracePeriodLabel == "" {
		cfg.GracePeriodLabel = DefaultGracePeriodLabel
	}
	if cfg.CleanupLabel == "" {
		cfg.CleanupLabel = DefaultCleanupLabel
	}
	if cfg.StaleComment == "" {
		cfg.StaleComment = DefaultStaleComment
	}
	if cfg.GracePeriodComment == "" {
		cfg.GracePeriodComment = DefaultGracePeriodComment
	}
	if cfg.NonIssueComment == "" {
		cfg.NonIssueComment = DefaultNonIssueComment
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Sweeper{
		tracker: tracker,
		cfg:     cfg,
		now:     time.Now,
		sleep:   sleepContext,
	}

	var err error
	if s.staleTmpl, err = template.New("stale").Parse(cfg.StaleComment); err != nil {
		return nil, fmt.Errorf("parsing stale comment template: %w", err)
	}
	if s.graceTmpl, err = template.New("grace").Parse(cfg.GracePeriodComment); err != nil {
		return nil, fmt.Errorf("parsing grace period comment template: %w", err)
	}
	if s.nonIssueTmpl, err = template.New("nonissue").Parse(cfg.NonIssueComment); err != nil {
		return nil, fmt.Errorf("parsing non-issue comment template: %w", err)
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// queueEntry is one repo awaiting processing in the current pass. A repo
// re-enqueued after a rate limit carries its resume time and is retried
// at most once.
type queueEntry struct {
	repo     gateway.Repo
	resumeAt time.Time
	retried  bool
}

// Sweep runs one pass over all configured repos, serially and in input
// order, except that a rate-limited repo moves to the back of the queue
// and is resumed once the limit resets. Per-repo search failures are
// logged and the pass moves on; only context cancellation aborts a pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	log := clog.FromContext(ctx)

	// Thresholds are computed once from "now" and shared by the whole
	// pass, so a long backoff cannot shift what counts as stale.
	now := s.now()
	staleBefore := now.Add(-time.Duration(s.cfg.ShelfLifeDays) * 24 * time.Hour)
	graceBefore := now.Add(-time.Duration(s.cfg.GracePeriodDays) * 24 * time.Hour)

	// Warned issues are excluded from the stale search, or each pass
	// would re-warn them until the grace period ran out.
	exclude := append([]string{}, s.cfg.LabelsToExclude...)
	if s.cfg.GracePeriodDays > 0 {
		exclude = append(exclude, s.cfg.GracePeriodLabel)
	}

	if s.cfg.GracePeriodDays > 0 {
		log.With("shelf_life_days", s.cfg.ShelfLifeDays, "grace_period_days", s.cfg.GracePeriodDays).
			Info("Warning stale issues and closing expired warnings")
	} else {
		log.With("shelf_life_days", s.cfg.ShelfLifeDays).Info("Closing stale issues")
	}

	queue := make([]queueEntry, 0, len(s.cfg.Repos))
	for _, r := range s.cfg.Repos {
		queue = append(queue, queueEntry{repo: r})
	}

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		if wait := entry.resumeAt.Sub(s.now()); wait > 0 {
			log.With("repo", entry.repo.String(), "resume_in", wait).Info("Waiting out rate limit")
			if err := s.sleep(ctx, wait); err != nil {
				return err
			}
		}

		resumeAt, rateLimited, err := s.sweepRepo(ctx, entry.repo, staleBefore, graceBefore, exclude)
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return err

		case rateLimited:
			if entry.retried {
				log.With("repo", entry.repo.String()).Warn("Rate limited again after retry, dropping repo for this pass")
				continue
			}
			if resumeAt.IsZero() {
				// Fail open: without a parseable reset time there is no
				// principled delay, so skip the repo rather than guess.
				log.With("repo", entry.repo.String()).Warn("Rate limited with no usable reset time, dropping repo for this pass")
				continue
			}
			log.With("repo", entry.repo.String(), "resume_at", resumeAt).Info("Rate limited, re-enqueueing repo")
			queue = append(queue, queueEntry{repo: entry.repo, resumeAt: resumeAt, retried: true})

		case err != nil:
			log.With("repo", entry.repo.String(), "error", err).Error("Failed to sweep repo")
		}
	}
	return nil
}

// Run sweeps on a fixed interval until the context is canceled. The
// first pass runs immediately.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.Sweep(ctx); err != nil {
			if ctx.Err() != nil {
				return err
			}
			clog.FromContext(ctx).With("error", err).Error("Sweep pass failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
