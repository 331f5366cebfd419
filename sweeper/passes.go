/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"github.com/sailshq/triagebot/gateway"
)

// sweepRepo runs both phases for one repo. A rate-limited search reports
// (resumeAt, true, nil) so the driver can re-enqueue the repo; any other
// search failure propagates and the driver moves on to the next repo.
func (s *Sweeper) sweepRepo(ctx context.Context, repo gateway.Repo, staleBefore, graceBefore time.Time, exclude []string) (time.Time, bool, error) {
	if err := s.stalePass(ctx, repo, staleBefore, exclude); err != nil {
		var rle *gateway.RateLimitedError
		if errors.As(err, &rle) {
			return rle.ResetAt, true, nil
		}
		return time.Time{}, false, err
	}

	if s.cfg.GracePeriodDays == 0 {
		return time.Time{}, false, nil
	}

	if err := s.gracePass(ctx, repo, graceBefore); err != nil {
		var rle *gateway.RateLimitedError
		if errors.As(err, &rle) {
			return rle.ResetAt, true, nil
		}
		return time.Time{}, false, err
	}
	return time.Time{}, false, nil
}

// stalePass finds open issues whose last update predates the shelf life
// and either warns or closes them, depending on whether a grace period
// is configured. Issues are processed concurrently; a failure on one is
// logged and never aborts the batch.
func (s *Sweeper) stalePass(ctx context.Context, repo gateway.Repo, staleBefore time.Time, exclude []string) error {
	log := clog.FromContext(ctx).With("repo", repo.String())

	issues, err := s.tracker.SearchIssues(ctx, gateway.SearchQuery{
		Repo:          repo,
		State:         gateway.StateOpen,
		UpdatedBefore: staleBefore,
		WithoutLabels: exclude,
	})
	if err != nil {
		return fmt.Errorf("searching for stale issues: %w", err)
	}

	log.With("found", len(issues)).Info("Located stale open issues")
	if len(issues) > s.cfg.MaxIssuesPerRepo {
		issues = issues[:s.cfg.MaxIssuesPerRepo]
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, issue := range issues {
		g.Go(func() error {
			var err error
			if s.cfg.GracePeriodDays > 0 {
				err = s.warnIssue(ctx, repo, issue)
			} else {
				err = s.closeStaleIssue(ctx, repo, issue)
			}
			if err != nil {
				log.With("issue", issue.Number, "error", err).Error("Failed to process stale issue")
			}
			return nil
		})
	}
	return g.Wait()
}

// warnIssue starts an issue's grace period: apply the grace-period label,
// then post the warning comment @-mentioning the author and every
// distinct commenter with the days remaining before automatic closure.
// A submission carries at most one lifecycle label, so a lingering
// cleanup label comes off before the grace-period label goes on.
func (s *Sweeper) warnIssue(ctx context.Context, repo gateway.Repo, issue *gateway.Issue) error {
	if s.cfg.CleanupLabel != "" && issue.HasLabel(s.cfg.CleanupLabel) {
		if err := s.tracker.RemoveLabel(ctx, repo, issue.Number, s.cfg.CleanupLabel); err != nil {
			return fmt.Errorf("removing cleanup label: %w", err)
		}
	}

	if err := s.tracker.AddLabels(ctx, repo, issue.Number, []string{s.cfg.GracePeriodLabel}); err != nil {
		return fmt.Errorf("adding grace period label: %w", err)
	}

	comments, err := s.tracker.ListComments(ctx, repo, issue.Number)
	if err != nil {
		return fmt.Errorf("listing commenters: %w", err)
	}

	body, err := s.renderComment(s.graceTmpl, repo, issue, mentionList(issue, comments))
	if err != nil {
		return err
	}
	if _, err := s.tracker.Comment(ctx, repo, issue.Number, body); err != nil {
		return fmt.Errorf("posting warning comment: %w", err)
	}
	return nil
}

// closeStaleIssue closes an issue outright, then explains why in a
// comment.
func (s *Sweeper) closeStaleIssue(ctx context.Context, repo gateway.Repo, issue *gateway.Issue) error {
	if err := s.tracker.Close(ctx, repo, issue.Number); err != nil {
		return fmt.Errorf("closing stale issue: %w", err)
	}

	body, err := s.renderComment(s.staleTmpl, repo, issue, "")
	if err != nil {
		return err
	}
	if _, err := s.tracker.Comment(ctx, repo, issue.Number, body); err != nil {
		return fmt.Errorf("posting stale comment: %w", err)
	}
	return nil
}

// gracePass finds warned issues whose grace period has expired and
// retires them.
func (s *Sweeper) gracePass(ctx context.Context, repo gateway.Repo, graceBefore time.Time) error {
	log := clog.FromContext(ctx).With("repo", repo.String())

	issues, err := s.tracker.SearchIssues(ctx, gateway.SearchQuery{
		Repo:          repo,
		State:         gateway.StateOpen,
		UpdatedBefore: graceBefore,
		WithLabels:    []string{s.cfg.GracePeriodLabel},
	})
	if err != nil {
		return fmt.Errorf("searching for expired warnings: %w", err)
	}

	log.With("found", len(issues)).Info("Located issues with expired grace periods")
	if len(issues) > s.cfg.MaxIssuesPerRepo {
		issues = issues[:s.cfg.MaxIssuesPerRepo]
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, issue := range issues {
		g.Go(func() error {
			s.retireWarned(ctx, repo, issue)
			return nil
		})
	}
	return g.Wait()
}

// retireWarned removes the grace-period label and closes the issue. The
// two calls are independent: a failed label removal must not block the
// close, and vice versa, so each failure is handled on its own.
func (s *Sweeper) retireWarned(ctx context.Context, repo gateway.Repo, issue *gateway.Issue) {
	log := clog.FromContext(ctx).With("repo", repo.String(), "issue", issue.Number)

	var g errgroup.Group
	g.Go(func() error {
		if err := s.tracker.RemoveLabel(ctx, repo, issue.Number, s.cfg.GracePeriodLabel); err != nil {
			log.With("error", err).Error("Failed to remove grace period label")
		}
		return nil
	})
	g.Go(func() error {
		if err := s.tracker.Close(ctx, repo, issue.Number); err != nil {
			log.With("error", err).Error("Failed to close issue with expired grace period")
		}
		return nil
	})
	_ = g.Wait()
}
