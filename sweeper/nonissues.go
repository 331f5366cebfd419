/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sweeper

import (
	"context"

	"github.com/chainguard-dev/clog"

	"github.com/sailshq/triagebot/gateway"
)

// CloseByLabel closes open issues carrying any of the given labels
// across all configured repos, posting the non-issue comment first.
// These are submissions triaged as something other than a verified bug
// (questions, feature requests) that should not sit in the open queue.
// Failures are per-issue or per-search; the pass always visits every
// label and repo.
func (s *Sweeper) CloseByLabel(ctx context.Context, labels []string) error {
	log := clog.FromContext(ctx)
	log.With("labels", labels).Info("Closing open issues by label")

	for _, label := range labels {
		for _, repo := range s.cfg.Repos {
			issues, err := s.tracker.SearchIssues(ctx, gateway.SearchQuery{
				Repo:       repo,
				State:      gateway.StateOpen,
				WithLabels: []string{label},
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.With("repo", repo.String(), "label", label, "error", err).Error("Failed to search labeled issues")
				continue
			}

			if len(issues) > s.cfg.MaxIssuesPerRepo {
				issues = issues[:s.cfg.MaxIssuesPerRepo]
			}
			for _, issue := range issues {
				if err := s.closeNonIssue(ctx, repo, issue); err != nil {
					log.With("repo", repo.String(), "issue", issue.Number, "error", err).Error("Failed to close non-issue")
				}
			}
		}
	}
	return nil
}

func (s *Sweeper) closeNonIssue(ctx context.Context, repo gateway.Repo, issue *gateway.Issue) error {
	body, err := s.renderComment(s.nonIssueTmpl, repo, issue, "")
	if err != nil {
		return err
	}
	if _, err := s.tracker.Comment(ctx, repo, issue.Number, body); err != nil {
		return err
	}
	return s.tracker.Close(ctx, repo, issue.Number)
}
