/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package issuereconciler validates issue bodies against the repo's issue
// template and drives the label-based lifecycle: non-compliant issues get
// an itemized comment and the cleanup label (and are optionally closed);
// compliant issues that carry the cleanup label are unlabeled, reopened,
// and welcomed.
//
// The reconciler is stateless between invocations. The current label set
// plus the freshly computed verdict fully determine the next action, so
// re-running it on an unchanged issue produces the same action category.
package issuereconciler

import (
	"context"
	"errors"
	"fmt"
	"text/template"

	"github.com/chainguard-dev/clog"

	"github.com/sailshq/triagebot/gateway"
	"github.com/sailshq/triagebot/reconcilers/issuereconciler/issuetemplate"
)

// DefaultCleanupLabel marks an issue as non-compliant and awaiting
// correction.
const DefaultCleanupLabel = "Needs cleanup"

// DefaultGracePeriodLabel is the label the sweeper applies when it warns
// a stale issue.
const DefaultGracePeriodLabel = "Waiting to close"

// Reconciler runs the issue compliance state machine.
type Reconciler struct {
	tracker          gateway.Tracker
	cleanupLabel     string
	gracePeriodLabel string
	closeDirty       bool
	guideURL         string
	defaultMessage   *template.Template
	welcomeMessage   *template.Template
}

// New constructs a Reconciler over the given tracker.
func New(tracker gateway.Tracker, opts ...Option) (*Reconciler, error) {
	cfg := &config{
		cleanupLabel:     DefaultCleanupLabel,
		gracePeriodLabel: DefaultGracePeriodLabel,
		defaultMessage:   DefaultMessage,
		welcomeMessage:   WelcomeMessage,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := &Reconciler{
		tracker:          tracker,
		cleanupLabel:     cfg.cleanupLabel,
		gracePeriodLabel: cfg.gracePeriodLabel,
		closeDirty:       cfg.closeDirty,
		guideURL:         cfg.guideURL,
	}

	var err error
	if cfg.defaultMessage != "" {
		if r.defaultMessage, err = template.New("default").Parse(cfg.defaultMessage); err != nil {
			return nil, fmt.Errorf("parsing default message template: %w", err)
		}
	}
	if cfg.welcomeMessage != "" {
		if r.welcomeMessage, err = template.New("welcome").Parse(cfg.welcomeMessage); err != nil {
			return nil, fmt.Errorf("parsing welcome message template: %w", err)
		}
	}
	return r, nil
}

// CleanupLabel returns the configured cleanup label name.
func (r *Reconciler) CleanupLabel() string {
	return r.cleanupLabel
}

// Reconcile re-derives the issue's compliance state from its current body
// and label snapshot and applies the resulting action set through the
// tracker. All mutations for the issue are resolved (applied or failed)
// before Reconcile returns.
func (r *Reconciler) Reconcile(ctx context.Context, repo gateway.Repo, issue *gateway.Issue) error {
	log := clog.FromContext(ctx).With("repo", repo.String(), "issue", issue.Number)

	raw, err := r.tracker.FetchTemplate(ctx, repo)
	switch {
	case errors.Is(err, gateway.ErrNoTemplate):
		// No template means nothing to validate against. Greet the
		// submitter with the default message, if one is configured.
		return r.postDefaultMessage(ctx, repo, issue)
	case err != nil:
		return fmt.Errorf("fetching issue template: %w", err)
	}

	tmpl := issuetemplate.Parse(raw)
	if tmpl == nil {
		// Template exists but declares no pledge: validation is
		// vacuously satisfied and there is nothing to enforce.
		log.Debug("Issue template has no pledge block, skipping validation")
		return nil
	}

	verdict := tmpl.Verify(issue.Body)
	switch {
	case verdict.StructurallyBroken():
		log.Info("Issue body is missing required template blocks")
		return r.handleBroken(ctx, repo, issue)

	case !verdict.Compliant():
		log.With("missing_items", len(verdict.MissingItems), "missing_fields", len(verdict.MissingFields)).
			Info("Issue is missing required info")
		return r.handleNeedsCleanup(ctx, repo, issue, verdict)

	default:
		return r.handleCompliant(ctx, repo, issue)
	}
}

// handleBroken posts the fixed template-reinsertion comment. It does not
// touch labels: a body without its template blocks is not diagnosable at
// the field level, so the issue's lifecycle state is left alone.
func (r *Reconciler) handleBroken(ctx context.Context, repo gateway.Repo, issue *gateway.Issue) error {
	templateURL := fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/master/.github/ISSUE_TEMPLATE.md", repo.Owner, repo.Name)
	if _, err := r.tracker.Comment(ctx, repo, issue.Number, brokenMessage(issue.Author, r.guideFor(repo), templateURL)); err != nil {
		return fmt.Errorf("commenting on broken issue: %w", err)
	}
	return nil
}

// handleNeedsCleanup labels and comments, then closes if the closeDirty
// policy is set. Sequencing contract: label, then comment, then close;
// the close is attempted only once labeling and commenting have both
// succeeded. A submission carries at most one lifecycle label, so a
// lingering grace-period label comes off before the cleanup label goes on.
func (r *Reconciler) handleNeedsCleanup(ctx context.Context, repo gateway.Repo, issue *gateway.Issue, verdict issuetemplate.Verdict) error {
	var comment string
	if issue.HasLabel(r.cleanupLabel) {
		// The submitter already got the full instructions; don't repeat
		// them on every retry.
		comment = terseCleanupMessage
	} else {
		comment = cleanupMessage(issue.Author, verdict)
	}

	if r.gracePeriodLabel != "" && issue.HasLabel(r.gracePeriodLabel) {
		if err := r.tracker.RemoveLabel(ctx, repo, issue.Number, r.gracePeriodLabel); err != nil {
			return fmt.Errorf("removing grace period label: %w", err)
		}
	}

	if err := r.tracker.AddLabels(ctx, repo, issue.Number, []string{r.cleanupLabel}); err != nil {
		return fmt.Errorf("adding cleanup label: %w", err)
	}
	if _, err := r.tracker.Comment(ctx, repo, issue.Number, comment); err != nil {
		return fmt.Errorf("commenting on non-compliant issue: %w", err)
	}
	if r.closeDirty {
		if err := r.tracker.Close(ctx, repo, issue.Number); err != nil {
			return fmt.Errorf("closing non-compliant issue: %w", err)
		}
	}
	return nil
}

// handleCompliant recovers a previously flagged issue: remove the cleanup
// label, reopen if closed, and post the one-time welcome. Compliant
// issues without the cleanup label are a no-op, which is what prevents a
// duplicate welcome on every subsequent compliant comment event.
func (r *Reconciler) handleCompliant(ctx context.Context, repo gateway.Repo, issue *gateway.Issue) error {
	if !issue.HasLabel(r.cleanupLabel) {
		return nil
	}

	if err := r.tracker.RemoveLabel(ctx, repo, issue.Number, r.cleanupLabel); err != nil {
		return fmt.Errorf("removing cleanup label: %w", err)
	}
	if issue.State == gateway.StateClosed {
		if err := r.tracker.Reopen(ctx, repo, issue.Number); err != nil {
			return fmt.Errorf("reopening issue: %w", err)
		}
	}
	if r.welcomeMessage == nil {
		return nil
	}
	body, err := renderMessage(r.welcomeMessage, repo, issue, r.guideFor(repo))
	if err != nil {
		return err
	}
	if _, err := r.tracker.Comment(ctx, repo, issue.Number, body); err != nil {
		return fmt.Errorf("posting welcome comment: %w", err)
	}
	return nil
}

func (r *Reconciler) postDefaultMessage(ctx context.Context, repo gateway.Repo, issue *gateway.Issue) error {
	if r.defaultMessage == nil {
		return nil
	}
	body, err := renderMessage(r.defaultMessage, repo, issue, r.guideFor(repo))
	if err != nil {
		return err
	}
	if _, err := r.tracker.Comment(ctx, repo, issue.Number, body); err != nil {
		return fmt.Errorf("posting default message: %w", err)
	}
	return nil
}

// guideFor resolves the contribution-guide URL for comments, defaulting
// to CONTRIBUTING.md at the top level of the repo.
func (r *Reconciler) guideFor(repo gateway.Repo) string {
	if r.guideURL != "" {
		return r.guideURL
	}
	return fmt.Sprintf("https://github.com/%s/%s/blob/master/CONTRIBUTING.md", repo.Owner, repo.Name)
}
