/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gateway defines the capability surface the triage engine needs
// from a remote issue tracker: search, label, comment, close, reopen, and
// template fetch. The engine holds no state of its own; labels on the
// remote tracker are the only durable record of a submission's lifecycle,
// so every decision is re-derived from the snapshot types in this package.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Issue states as reported by the tracker.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// Repo identifies a repository by owner and name.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// Label is a label attached to an issue or pull request.
type Label struct {
	Name  string
	Color string
}

// Issue is an immutable snapshot of an issue or pull request. The engine
// never mutates it; all mutation happens through Tracker calls that the
// remote system applies.
type Issue struct {
	Number      int
	Title       string
	Body        string
	State       string
	Author      string
	Labels      []Label
	UpdatedAt   time.Time
	HTMLURL     string
	PullRequest bool
}

// HasLabel reports whether the issue carries a label with the given name.
func (i *Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if l.Name == name {
			return true
		}
	}
	return false
}

// Comment is a single comment on an issue or pull request.
type Comment struct {
	ID        int64
	Author    string
	Body      string
	CreatedAt time.Time
}

// SearchQuery describes an issue search. Zero-valued fields are omitted
// from the query.
type SearchQuery struct {
	Repo  Repo
	State string

	// UpdatedBefore restricts results to issues whose last update is
	// strictly older than this instant.
	UpdatedBefore time.Time

	// WithLabels requires every listed label; WithoutLabels excludes
	// issues carrying any listed label.
	WithLabels    []string
	WithoutLabels []string
}

// Tracker is the remote issue-tracker capability set. Implementations
// must be safe for concurrent use; the sweeper issues mutations for
// independent issues in parallel.
type Tracker interface {
	// SearchIssues returns up to one page of matching issues. Multi-page
	// result handling is deliberately unsupported; callers bound their
	// batch sizes below the page size. A rate-limited search returns a
	// *RateLimitedError.
	SearchIssues(ctx context.Context, q SearchQuery) ([]*Issue, error)

	AddLabels(ctx context.Context, repo Repo, number int, labels []string) error
	RemoveLabel(ctx context.Context, repo Repo, number int, label string) error
	Comment(ctx context.Context, repo Repo, number int, body string) (int64, error)
	Close(ctx context.Context, repo Repo, number int) error
	Reopen(ctx context.Context, repo Repo, number int) error
	ListComments(ctx context.Context, repo Repo, number int) ([]Comment, error)

	// FetchTemplate returns the repo's raw issue template document.
	// A repo without a template returns ErrNoTemplate; content that
	// cannot be decoded as text returns a *TemplateDecodeError.
	FetchTemplate(ctx context.Context, repo Repo) (string, error)
}

// ErrNoTemplate indicates the repository has no issue template. This is
// a valid, meaningful condition (validation is vacuously satisfied), not
// a failure.
var ErrNoTemplate = errors.New("repository has no issue template")

// TemplateDecodeError indicates the template document was fetched but its
// content could not be decoded as text.
type TemplateDecodeError struct {
	Repo Repo
	Err  error
}

func (e *TemplateDecodeError) Error() string {
	return fmt.Sprintf("decoding issue template for %s: %v", e.Repo, e.Err)
}

func (e *TemplateDecodeError) Unwrap() error {
	return e.Err
}

// RateLimitedError is returned by SearchIssues when the tracker refuses
// the call due to rate limiting. ResetAt is the instant the limit resets,
// parsed from the response headers; it is the zero time when the reset
// header was missing or unparseable.
type RateLimitedError struct {
	ResetAt time.Time
	Err     error
}

func (e *RateLimitedError) Error() string {
	if e.ResetAt.IsZero() {
		return fmt.Sprintf("rate limited (no reset time): %v", e.Err)
	}
	return fmt.Sprintf("rate limited until %s: %v", e.ResetAt.Format(time.RFC3339), e.Err)
}

func (e *RateLimitedError) Unwrap() error {
	return e.Err
}
