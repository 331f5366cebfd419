/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gatewaytest provides an in-memory gateway.Tracker for tests.
// The fake records every call in order so tests can assert on the exact
// sequence of remote mutations, and lets tests script failures for
// individual calls.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/sailshq/triagebot/gateway"
)

// Operation names recorded in the call log.
const (
	OpSearch        = "search"
	OpAddLabels     = "add_labels"
	OpRemoveLabel   = "remove_label"
	OpComment       = "comment"
	OpClose         = "close"
	OpReopen        = "reopen"
	OpListComments  = "list_comments"
	OpFetchTemplate = "fetch_template"
)

// Call is one recorded Tracker invocation.
type Call struct {
	Op     string
	Repo   gateway.Repo
	Number int
	Labels []string
	Label  string
	Body   string
	Query  gateway.SearchQuery
}

// SearchResult is one scripted response to SearchIssues, consumed in order.
type SearchResult struct {
	Issues []*gateway.Issue
	Err    error
}

// Fake is an in-memory Tracker. The zero value is usable; populate the
// exported fields before handing it to the code under test.
type Fake struct {
	mu sync.Mutex

	// Templates maps repo strings ("owner/name") to raw template
	// documents. Repos absent from the map have no template.
	Templates map[string]string

	// TemplateErr, when set, is returned by every FetchTemplate call.
	TemplateErr error

	// SearchResults are consumed one per SearchIssues call. Calls past
	// the end of the slice return an empty result.
	SearchResults []SearchResult

	// CommentThreads maps "owner/name#number" to the preexisting
	// comments returned by ListComments.
	CommentThreads map[string][]gateway.Comment

	// FailFunc, when set, is consulted before each mutation or listing
	// call; a non-nil return fails that call.
	FailFunc func(Call) error

	calls        []Call
	searchesUsed int
}

var _ gateway.Tracker = (*Fake)(nil)

func threadKey(repo gateway.Repo, number int) string {
	return fmt.Sprintf("%s#%d", repo, number)
}

// record logs the call and applies FailFunc.
func (f *Fake) record(c Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.FailFunc != nil {
		return f.FailFunc(c)
	}
	return nil
}

func (f *Fake) SearchIssues(_ context.Context, q gateway.SearchQuery) ([]*gateway.Issue, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: OpSearch, Repo: q.Repo, Query: q})
	idx := f.searchesUsed
	f.searchesUsed++
	f.mu.Unlock()

	if idx >= len(f.SearchResults) {
		return nil, nil
	}
	res := f.SearchResults[idx]
	return res.Issues, res.Err
}

func (f *Fake) AddLabels(_ context.Context, repo gateway.Repo, number int, labels []string) error {
	return f.record(Call{Op: OpAddLabels, Repo: repo, Number: number, Labels: labels})
}

func (f *Fake) RemoveLabel(_ context.Context, repo gateway.Repo, number int, label string) error {
	return f.record(Call{Op: OpRemoveLabel, Repo: repo, Number: number, Label: label})
}

func (f *Fake) Comment(_ context.Context, repo gateway.Repo, number int, body string) (int64, error) {
	if err := f.record(Call{Op: OpComment, Repo: repo, Number: number, Body: body}); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.calls)), nil
}

func (f *Fake) Close(_ context.Context, repo gateway.Repo, number int) error {
	return f.record(Call{Op: OpClose, Repo: repo, Number: number})
}

func (f *Fake) Reopen(_ context.Context, repo gateway.Repo, number int) error {
	return f.record(Call{Op: OpReopen, Repo: repo, Number: number})
}

func (f *Fake) ListComments(_ context.Context, repo gateway.Repo, number int) ([]gateway.Comment, error) {
	if err := f.record(Call{Op: OpListComments, Repo: repo, Number: number}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CommentThreads[threadKey(repo, number)], nil
}

func (f *Fake) FetchTemplate(_ context.Context, repo gateway.Repo) (string, error) {
	if err := f.record(Call{Op: OpFetchTemplate, Repo: repo}); err != nil {
		return "", err
	}
	if f.TemplateErr != nil {
		return "", f.TemplateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tmpl, ok := f.Templates[repo.String()]
	if !ok {
		return "", gateway.ErrNoTemplate
	}
	return tmpl, nil
}

// Calls returns a copy of the full ordered call log.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsOf returns the recorded calls matching the given operation, in order.
func (f *Fake) CallsOf(op string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Ops returns just the operation names from the call log, in order.
func (f *Fake) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Op)
	}
	return out
}
