/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package githubgateway adapts the GitHub REST API to the gateway.Tracker
// capability set. Authentication is either a personal access token or a
// GitHub App installation key.
package githubgateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v84/github"

	"github.com/sailshq/triagebot/gateway"
)

// Gateway implements gateway.Tracker over the GitHub API.
type Gateway struct {
	client       *github.Client
	templatePath string
	pageSize     int
}

// New constructs a Gateway with the provided options. One of WithToken,
// WithAppKeyFile, or WithHTTPClient must supply authentication.
func New(ctx context.Context, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		templatePath: ".github/ISSUE_TEMPLATE.md",
		pageSize:     100,
	}

	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}

	httpClient, err := cfg.httpClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("building HTTP client: %w", err)
	}
	g.client = github.NewClient(httpClient)

	if cfg.templatePath != "" {
		g.templatePath = cfg.templatePath
	}
	return g, nil
}

// SearchIssues runs an issue search and returns the first page of results.
// Rate-limit responses are surfaced as *gateway.RateLimitedError with the
// reset time from the response headers.
func (g *Gateway) SearchIssues(ctx context.Context, q gateway.SearchQuery) ([]*gateway.Issue, error) {
	result, _, err := g.client.Search.Issues(ctx, buildQuery(q), &github.SearchOptions{
		Sort:  "updated",
		Order: "asc",
		ListOptions: github.ListOptions{
			PerPage: g.pageSize,
		},
	})
	if err != nil {
		return nil, mapRateLimit(err)
	}

	issues := make([]*gateway.Issue, 0, len(result.Issues))
	for _, is := range result.Issues {
		issues = append(issues, convertIssue(is))
	}
	return issues, nil
}

// buildQuery renders a gateway.SearchQuery into GitHub search syntax.
func buildQuery(q gateway.SearchQuery) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "repo:%s/%s is:issue", q.Repo.Owner, q.Repo.Name)
	if q.State != "" {
		fmt.Fprintf(&sb, " state:%s", q.State)
	}
	if !q.UpdatedBefore.IsZero() {
		fmt.Fprintf(&sb, " updated:<%s", q.UpdatedBefore.UTC().Format("2006-01-02T15:04:05Z"))
	}
	for _, l := range q.WithLabels {
		fmt.Fprintf(&sb, " label:%q", l)
	}
	for _, l := range q.WithoutLabels {
		fmt.Fprintf(&sb, " -label:%q", l)
	}
	return sb.String()
}

// mapRateLimit translates go-github rate-limit error types into the
// gateway taxonomy, carrying the reset instant when the API provided one.
func mapRateLimit(err error) error {
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return &gateway.RateLimitedError{ResetAt: rle.Rate.Reset.Time, Err: err}
	}
	var arle *github.AbuseRateLimitError
	if errors.As(err, &arle) {
		var resetAt time.Time
		if arle.RetryAfter != nil {
			resetAt = time.Now().Add(*arle.RetryAfter)
		}
		return &gateway.RateLimitedError{ResetAt: resetAt, Err: err}
	}
	return err
}

func (g *Gateway) AddLabels(ctx context.Context, repo gateway.Repo, number int, labels []string) error {
	_, _, err := g.client.Issues.AddLabelsToIssue(ctx, repo.Owner, repo.Name, number, labels)
	if err != nil {
		return fmt.Errorf("adding labels to %s#%d: %w", repo, number, err)
	}
	return nil
}

func (g *Gateway) RemoveLabel(ctx context.Context, repo gateway.Repo, number int, label string) error {
	_, err := g.client.Issues.RemoveLabelForIssue(ctx, repo.Owner, repo.Name, number, label)
	if err != nil {
		return fmt.Errorf("removing label %q from %s#%d: %w", label, repo, number, err)
	}
	return nil
}

func (g *Gateway) Comment(ctx context.Context, repo gateway.Repo, number int, body string) (int64, error) {
	c, _, err := g.client.Issues.CreateComment(ctx, repo.Owner, repo.Name, number, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return 0, fmt.Errorf("commenting on %s#%d: %w", repo, number, err)
	}
	return c.GetID(), nil
}

func (g *Gateway) Close(ctx context.Context, repo gateway.Repo, number int) error {
	_, _, err := g.client.Issues.Edit(ctx, repo.Owner, repo.Name, number, &github.IssueRequest{
		State: github.Ptr(gateway.StateClosed),
	})
	if err != nil {
		return fmt.Errorf("closing %s#%d: %w", repo, number, err)
	}
	return nil
}

func (g *Gateway) Reopen(ctx context.Context, repo gateway.Repo, number int) error {
	_, _, err := g.client.Issues.Edit(ctx, repo.Owner, repo.Name, number, &github.IssueRequest{
		State: github.Ptr(gateway.StateOpen),
	})
	if err != nil {
		return fmt.Errorf("reopening %s#%d: %w", repo, number, err)
	}
	return nil
}

func (g *Gateway) ListComments(ctx context.Context, repo gateway.Repo, number int) ([]gateway.Comment, error) {
	var all []gateway.Comment
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: g.pageSize},
	}
	for {
		comments, resp, err := g.client.Issues.ListComments(ctx, repo.Owner, repo.Name, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments on %s#%d: %w", repo, number, err)
		}
		for _, c := range comments {
			all = append(all, gateway.Comment{
				ID:        c.GetID(),
				Author:    c.GetUser().GetLogin(),
				Body:      c.GetBody(),
				CreatedAt: c.GetCreatedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// FetchTemplate retrieves the repo's issue template document via the
// contents API. A 404 maps to gateway.ErrNoTemplate; content the API
// returns but cannot be decoded maps to *gateway.TemplateDecodeError.
func (g *Gateway) FetchTemplate(ctx context.Context, repo gateway.Repo) (string, error) {
	file, _, resp, err := g.client.Repositories.GetContents(ctx, repo.Owner, repo.Name, g.templatePath, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", gateway.ErrNoTemplate
		}
		return "", fmt.Errorf("fetching issue template for %s: %w", repo, err)
	}
	if file == nil {
		return "", &gateway.TemplateDecodeError{Repo: repo, Err: fmt.Errorf("%s is not a file", g.templatePath)}
	}
	content, err := file.GetContent()
	if err != nil {
		return "", &gateway.TemplateDecodeError{Repo: repo, Err: err}
	}
	return content, nil
}

// convertIssue maps a go-github search result into the gateway snapshot type.
func convertIssue(is *github.Issue) *gateway.Issue {
	labels := make([]gateway.Label, 0, len(is.Labels))
	for _, l := range is.Labels {
		labels = append(labels, gateway.Label{
			Name:  l.GetName(),
			Color: l.GetColor(),
		})
	}
	return &gateway.Issue{
		Number:      is.GetNumber(),
		Title:       is.GetTitle(),
		Body:        is.GetBody(),
		State:       is.GetState(),
		Author:      is.GetUser().GetLogin(),
		Labels:      labels,
		UpdatedAt:   is.GetUpdatedAt().Time,
		HTMLURL:     is.GetHTMLURL(),
		PullRequest: is.IsPullRequest(),
	}
}
