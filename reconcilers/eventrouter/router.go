/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package eventrouter dispatches decoded tracker events to the issue and
// PR reconcilers. Webhook transport and signature verification live
// outside this module; the router consumes already-decoded snapshots.
//
// The router is also where feedback loops are broken: events from
// ignored accounts (the bot itself, other bots) are dropped before any
// reconciler runs, and re-validation of a cleanup-labeled submission
// only triggers on comments from the original submitter.
package eventrouter

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/sailshq/triagebot/gateway"
	"github.com/sailshq/triagebot/reconcilers/issuereconciler"
	"github.com/sailshq/triagebot/reconcilers/prreconciler"
)

// DefaultAutoRemovableColor is the label color whose labels are stripped
// whenever an open issue receives a new comment.
const DefaultAutoRemovableColor = "009800"

// Event is a decoded tracker event snapshot.
type Event struct {
	// Action is the event action ("opened", "created", ...).
	Action string

	// Sender is the account that triggered the event.
	Sender string

	Repo  gateway.Repo
	Issue *gateway.Issue

	// Comment is set for comment events.
	Comment *gateway.Comment
}

// Router fans tracker events out to the reconcilers.
type Router struct {
	tracker gateway.Tracker
	issues  *issuereconciler.Reconciler
	prs     *prreconciler.Reconciler

	ignoreUsers      map[string]struct{}
	gracePeriodLabel string
	autoColor        string
}

// Option configures the Router.
type Option func(*Router)

// WithIgnoreUsers drops events sent by any of the given accounts. The
// bot's own account belongs here, or its comments would re-trigger
// validation forever.
func WithIgnoreUsers(users []string) Option {
	return func(r *Router) {
		for _, u := range users {
			r.ignoreUsers[u] = struct{}{}
		}
	}
}

// WithGracePeriodLabel sets the label the sweeper uses for its closing
// warning, so a new comment on a warned issue lifts the warning.
func WithGracePeriodLabel(label string) Option {
	return func(r *Router) {
		r.gracePeriodLabel = label
	}
}

// WithAutoRemovableColor sets the hex label color (without "#") whose
// labels are removed automatically when an open issue gets a new comment.
func WithAutoRemovableColor(color string) Option {
	return func(r *Router) {
		r.autoColor = strings.TrimPrefix(color, "#")
	}
}

// New constructs a Router over the given tracker and reconcilers.
func New(tracker gateway.Tracker, issues *issuereconciler.Reconciler, prs *prreconciler.Reconciler, opts ...Option) *Router {
	r := &Router{
		tracker:     tracker,
		issues:      issues,
		prs:         prs,
		ignoreUsers: make(map[string]struct{}),
		autoColor:   DefaultAutoRemovableColor,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) ignored(user string) bool {
	_, ok := r.ignoreUsers[user]
	return ok
}

// HandleIssue processes an issue event. Only "opened" triggers
// validation; other actions are acknowledged without work.
func (r *Router) HandleIssue(ctx context.Context, ev Event) error {
	if r.ignored(ev.Sender) {
		clog.FromContext(ctx).With("sender", ev.Sender).Debug("Ignoring issue event")
		return nil
	}
	if ev.Action != "opened" {
		return nil
	}
	return r.issues.Reconcile(ctx, ev.Repo, ev.Issue)
}

// HandlePullRequest processes a pull request event. Only "opened"
// triggers title validation.
func (r *Router) HandlePullRequest(ctx context.Context, ev Event) error {
	if r.ignored(ev.Sender) {
		clog.FromContext(ctx).With("sender", ev.Sender).Debug("Ignoring pull request event")
		return nil
	}
	if ev.Action != "opened" {
		return nil
	}
	return r.prs.Reconcile(ctx, ev.Repo, ev.Issue)
}

// HandleComment processes a new comment on an issue or PR.
//
// For PRs carrying the cleanup label, a comment from the original author
// re-runs title validation against the (possibly edited) title. For
// issues, a new comment first strips the grace-period label and any label
// painted the auto-removable color (the thread is active again), then
// re-runs body validation when the cleanup label is present and the
// comment came from the original submitter.
func (r *Router) HandleComment(ctx context.Context, ev Event) error {
	log := clog.FromContext(ctx).With("repo", ev.Repo.String(), "issue", ev.Issue.Number)

	if r.ignored(ev.Sender) {
		log.With("sender", ev.Sender).Debug("Ignoring comment event")
		return nil
	}
	if ev.Comment == nil {
		return nil
	}

	if ev.Issue.PullRequest {
		if ev.Issue.HasLabel(r.prs.CleanupLabel()) && ev.Issue.Author == ev.Comment.Author {
			return r.prs.Reconcile(ctx, ev.Repo, ev.Issue)
		}
		return nil
	}

	if ev.Issue.State == gateway.StateOpen {
		if err := r.removeAutoLabels(ctx, ev.Repo, ev.Issue); err != nil {
			return err
		}
	}

	if ev.Issue.HasLabel(r.issues.CleanupLabel()) && ev.Issue.Author == ev.Comment.Author {
		return r.issues.Reconcile(ctx, ev.Repo, ev.Issue)
	}
	return nil
}

// removeAutoLabels strips the grace-period label and any auto-removable
// colored label from an active issue.
func (r *Router) removeAutoLabels(ctx context.Context, repo gateway.Repo, issue *gateway.Issue) error {
	for _, l := range issue.Labels {
		graceMatch := r.gracePeriodLabel != "" && l.Name == r.gracePeriodLabel
		colorMatch := r.autoColor != "" && l.Color == r.autoColor
		if !graceMatch && !colorMatch {
			continue
		}
		if err := r.tracker.RemoveLabel(ctx, repo, issue.Number, l.Name); err != nil {
			return fmt.Errorf("removing label %q: %w", l.Name, err)
		}
		clog.FromContext(ctx).With("label", l.Name).Info("Removed auto-removable label after new comment")
	}
	return nil
}
