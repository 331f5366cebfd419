/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sweeper

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/sailshq/triagebot/gateway"
)

// DefaultStaleComment is posted when a stale issue is closed outright
// (no grace period configured).
const DefaultStaleComment = `Thanks for posting, @{{.Author}}.  I'm a repo bot-- nice to meet you!

It has been {{.ShelfLifeDays}} day{{if gt .ShelfLifeDays 1}}s{{end}} since there have been any updates or new comments on this page.  If this issue has been resolved, feel free to disregard the rest of this message.  On the other hand, if you are still waiting on a patch, please:

  + review our [contribution guide]({{.GuideURL}}) to make sure this submission meets our criteria (only verified bugs with documented features, please)
  + create a new issue with the latest information, including updated version details with error messages, failing tests, and a link back to [the original issue]({{.IssueURL}})

Thanks so much for your help!`

// DefaultGracePeriodComment is posted when a stale issue is warned. It
// @-mentions the author and every distinct commenter.
const DefaultGracePeriodComment = `{{.IssueUsers}}: Hello, I'm a repo bot-- nice to meet you!

It has been {{.ShelfLifeDays}} day{{if gt .ShelfLifeDays 1}}s{{end}} since there have been any updates or new comments on this page.  If this issue has been resolved, feel free to disregard the rest of this message.  On the other hand, if you are still waiting on a patch, please post a comment to keep the thread alive (with any new information you can provide).

If no further activity occurs on this thread within the next {{.GracePeriodDays}} day{{if gt .GracePeriodDays 1}}s{{end}}, the issue will automatically be closed.

Thanks so much for your help!`

// DefaultNonIssueComment is posted by CloseByLabel before closing an
// issue labeled as something other than a verified bug.
const DefaultNonIssueComment = `Thanks for posting, @{{.Author}}.  I'm a repo bot-- nice to meet you!

The issue queue in this repo is for verified bugs with documented features.  Unfortunately, we can't leave some other types of issues marked as "open".  This includes feature requests, questions, and commentary about the core framework.  Please review our [contribution guide]({{.GuideURL}}) for details.

I am only marking this as "closed" to keep organized-- please do not let it disrupt future conversation in this thread!

Thanks so much for your help!`

// CommentData is the variable set available to the sweeper's comment
// templates.
type CommentData struct {
	Author          string
	Repo            string
	Issue           int
	IssueURL        string
	IssueUsers      string
	GuideURL        string
	ShelfLifeDays   int
	GracePeriodDays int
}

func (s *Sweeper) renderComment(tmpl *template.Template, repo gateway.Repo, issue *gateway.Issue, issueUsers string) (string, error) {
	var sb strings.Builder
	err := tmpl.Execute(&sb, CommentData{
		Author:          issue.Author,
		Repo:            repo.String(),
		Issue:           issue.Number,
		IssueURL:        issue.HTMLURL,
		IssueUsers:      issueUsers,
		GuideURL:        s.guideFor(repo),
		ShelfLifeDays:   s.cfg.ShelfLifeDays,
		GracePeriodDays: s.cfg.GracePeriodDays,
	})
	if err != nil {
		return "", fmt.Errorf("rendering comment template: %w", err)
	}
	return sb.String(), nil
}

func (s *Sweeper) guideFor(repo gateway.Repo) string {
	if s.cfg.ContributionGuideURL != "" {
		return s.cfg.ContributionGuideURL
	}
	return fmt.Sprintf("https://github.com/%s/%s/blob/master/CONTRIBUTING.md", repo.Owner, repo.Name)
}

// mentionList assembles the "@author, @commenter" mention string for the
// grace-period warning: the issue author first, then every distinct
// commenter in thread order.
func mentionList(issue *gateway.Issue, comments []gateway.Comment) string {
	seen := map[string]struct{}{issue.Author: {}}
	mentions := []string{"@" + issue.Author}
	for _, c := range comments {
		if c.Author == "" {
			continue
		}
		if _, ok := seen[c.Author]; ok {
			continue
		}
		seen[c.Author] = struct{}{}
		mentions = append(mentions, "@"+c.Author)
	}
	return strings.Join(mentions, ", ")
}
