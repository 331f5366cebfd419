/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package issuereconciler

// Option configures the Reconciler.
type Option func(*config)

type config struct {
	cleanupLabel     string
	gracePeriodLabel string
	closeDirty       bool
	guideURL         string
	defaultMessage   string
	welcomeMessage   string
}

// WithCleanupLabel overrides the label that marks a non-compliant issue
// awaiting correction (default "Needs cleanup").
func WithCleanupLabel(label string) Option {
	return func(c *config) {
		c.cleanupLabel = label
	}
}

// WithGracePeriodLabel overrides the label the sweeper applies when it
// warns a stale issue (default "Waiting to close"). A non-compliant
// verdict removes it before adding the cleanup label; a submission
// carries at most one lifecycle label at a time.
func WithGracePeriodLabel(label string) Option {
	return func(c *config) {
		c.gracePeriodLabel = label
	}
}

// WithCloseDirty closes non-compliant issues in addition to labeling and
// commenting. Closing is attempted only after labeling and commenting
// both succeed.
func WithCloseDirty(closeDirty bool) Option {
	return func(c *config) {
		c.closeDirty = closeDirty
	}
}

// WithContributionGuideURL overrides the contribution-guide link used in
// comments. When unset, the link points at CONTRIBUTING.md at the top
// level of the repo the issue was posted in.
func WithContributionGuideURL(url string) Option {
	return func(c *config) {
		c.guideURL = url
	}
}

// WithDefaultMessage overrides the message posted on issues in repos
// without an issue template. An empty message suppresses the comment.
func WithDefaultMessage(message string) Option {
	return func(c *config) {
		c.defaultMessage = message
	}
}

// WithWelcomeMessage overrides the message posted when a previously
// non-compliant issue becomes compliant. An empty message suppresses the
// comment.
func WithWelcomeMessage(message string) Option {
	return func(c *config) {
		c.welcomeMessage = message
	}
}
