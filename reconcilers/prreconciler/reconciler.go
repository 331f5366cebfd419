/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package prreconciler validates pull request titles against the required
// prefix grammar. It is the narrow sibling of issuereconciler: instead of
// diffing a body against a template, it checks the title for a bracketed
// tag and drives the same cleanup-label lifecycle.
package prreconciler

import (
	"context"
	"fmt"
	"regexp"

	"github.com/chainguard-dev/clog"

	"github.com/sailshq/triagebot/gateway"
)

// DefaultCleanupLabel marks a PR whose title needs fixing.
const DefaultCleanupLabel = "Needs cleanup"

// titleRe matches the accepted title prefixes: a literal [proposal] or
// [patch] tag, or a parametric [implements #N] / [fixes #N] tag.
var titleRe = regexp.MustCompile(`^\[(proposal|patch|implements #\d+|fixes #\d+)\]`)

// ValidateTitle reports whether a PR title begins with one of the
// accepted bracketed tags.
func ValidateTitle(title string) bool {
	return titleRe.MatchString(title)
}

// Reconciler runs the PR title state machine.
type Reconciler struct {
	tracker      gateway.Tracker
	cleanupLabel string
	closeDirty   bool
}

// Option configures the Reconciler.
type Option func(*Reconciler)

// WithCleanupLabel overrides the cleanup label name (default "Needs cleanup").
func WithCleanupLabel(label string) Option {
	return func(r *Reconciler) {
		r.cleanupLabel = label
	}
}

// WithCloseDirty closes PRs with invalid titles in addition to labeling
// and commenting. The close runs only after labeling and commenting both
// succeed.
func WithCloseDirty(closeDirty bool) Option {
	return func(r *Reconciler) {
		r.closeDirty = closeDirty
	}
}

// New constructs a Reconciler over the given tracker.
func New(tracker gateway.Tracker, opts ...Option) *Reconciler {
	r := &Reconciler{
		tracker:      tracker,
		cleanupLabel: DefaultCleanupLabel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CleanupLabel returns the configured cleanup label name.
func (r *Reconciler) CleanupLabel() string {
	return r.cleanupLabel
}

// Reconcile checks the PR title and applies the resulting action set.
//
// Invalid titles get the label/comment/close triple (close gated on the
// closeDirty policy). A valid title on a closed, cleanup-labeled PR gets
// unlabeled and reopened without a comment; recovery on PRs is silent,
// unlike the issue path's welcome message. A valid title on an unlabeled
// PR gets a one-time acknowledgement.
func (r *Reconciler) Reconcile(ctx context.Context, repo gateway.Repo, pr *gateway.Issue) error {
	log := clog.FromContext(ctx).With("repo", repo.String(), "pr", pr.Number)

	if !ValidateTitle(pr.Title) {
		log.With("title", pr.Title).Info("PR title does not match the required prefix grammar")
		return r.handleInvalid(ctx, repo, pr)
	}

	if pr.State == gateway.StateClosed && pr.HasLabel(r.cleanupLabel) {
		log.Info("PR title fixed, reopening")
		if err := r.tracker.RemoveLabel(ctx, repo, pr.Number, r.cleanupLabel); err != nil {
			return fmt.Errorf("removing cleanup label: %w", err)
		}
		if err := r.tracker.Reopen(ctx, repo, pr.Number); err != nil {
			return fmt.Errorf("reopening PR: %w", err)
		}
		return nil
	}

	ack := fmt.Sprintf("Thanks for posting, @%s!  We'll look into this ASAP.", pr.Author)
	if _, err := r.tracker.Comment(ctx, repo, pr.Number, ack); err != nil {
		return fmt.Errorf("posting acknowledgement: %w", err)
	}
	return nil
}

// handleInvalid applies the label/comment/close triple. Same sequencing
// contract as the issue path: label, then comment, then conditionally
// close once both have succeeded.
func (r *Reconciler) handleInvalid(ctx context.Context, repo gateway.Repo, pr *gateway.Issue) error {
	comment := fmt.Sprintf("Hi @%s!  It looks like you didn't follow the instructions fully when you created your pull request.  "+
		"Please edit your title so that it starts with [proposal], [patch], [fixes #<issue number>], or [implements #<other PR number>].  "+
		"Once you've fixed the title, post a comment below (e.g. \"Ok, fixed!\") and we'll re-open the PR!", pr.Author)

	if err := r.tracker.AddLabels(ctx, repo, pr.Number, []string{r.cleanupLabel}); err != nil {
		return fmt.Errorf("adding cleanup label: %w", err)
	}
	if _, err := r.tracker.Comment(ctx, repo, pr.Number, comment); err != nil {
		return fmt.Errorf("commenting on PR: %w", err)
	}
	if r.closeDirty {
		if err := r.tracker.Close(ctx, repo, pr.Number); err != nil {
			return fmt.Errorf("closing PR: %w", err)
		}
	}
	return nil
}
