/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sweeper

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/sailshq/triagebot/gateway"
	"github.com/sailshq/triagebot/gateway/gatewaytest"
)

var (
	repoA = gateway.Repo{Owner: "sailshq", Name: "widgets"}
	repoB = gateway.Repo{Owner: "sailshq", Name: "gadgets"}
)

// t0 is the fixed "now" for sweeper tests.
var t0 = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return t0
}

func testConfig(repos ...gateway.Repo) Config {
	return Config{
		Repos:            repos,
		ShelfLifeDays:    30,
		MaxIssuesPerRepo: 10,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "valid with grace period", mutate: func(c *Config) { c.GracePeriodDays = 3 }},
		{name: "zero shelf life", mutate: func(c *Config) { c.ShelfLifeDays = 0 }, wantErr: true},
		{name: "negative shelf life", mutate: func(c *Config) { c.ShelfLifeDays = -1 }, wantErr: true},
		{name: "negative grace period", mutate: func(c *Config) { c.GracePeriodDays = -1 }, wantErr: true},
		{name: "grace period exceeds shelf life", mutate: func(c *Config) { c.GracePeriodDays = 31 }, wantErr: true},
		{name: "zero batch size", mutate: func(c *Config) { c.MaxIssuesPerRepo = 0 }, wantErr: true},
		{name: "batch size above page size", mutate: func(c *Config) { c.MaxIssuesPerRepo = 101 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(repoA)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrPolicyViolation)

				// New must reject the same config before any remote call.
				f := &gatewaytest.Fake{}
				_, err = New(f, cfg)
				require.ErrorIs(t, err, ErrPolicyViolation)
				require.Empty(t, f.Calls())
				return
			}
			require.NoError(t, err)
		})
	}
}

// The search threshold is now minus the shelf life: with a 30 day shelf
// life, issues untouched for 31 days match and issues touched 29 days
// ago do not. That selection happens in the tracker's search, so the
// contract here is the exact threshold and exclusion set in the query.
func TestSweepStaleQueryThresholds(t *testing.T) {
	f := &gatewaytest.Fake{}
	cfg := testConfig(repoA)
	cfg.LabelsToExclude = []string{"bug", "performance"}
	s, err := New(f, cfg, WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	searches := f.CallsOf(gatewaytest.OpSearch)
	if len(searches) != 1 {
		t.Fatalf("expected 1 search without a grace period, got %d", len(searches))
	}
	q := searches[0].Query
	if want := t0.Add(-30 * 24 * time.Hour); !q.UpdatedBefore.Equal(want) {
		t.Errorf("UpdatedBefore = %v, want %v", q.UpdatedBefore, want)
	}
	if q.State != gateway.StateOpen {
		t.Errorf("State = %q", q.State)
	}
	if diff := cmp.Diff([]string{"bug", "performance"}, q.WithoutLabels); diff != "" {
		t.Errorf("WithoutLabels mismatch (-want +got):\n%s", diff)
	}
}

// With a grace period, the stale query must additionally exclude the
// grace-period label (no re-warning) and a second query must look for
// warned issues older than the grace period: an issue warned on day 31
// cannot match the grace query before day 34 when the grace period is 3
// days, because the warning comment itself refreshed its update time.
func TestSweepGraceQueryThresholds(t *testing.T) {
	f := &gatewaytest.Fake{}
	cfg := testConfig(repoA)
	cfg.GracePeriodDays = 3
	s, err := New(f, cfg, WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	searches := f.CallsOf(gatewaytest.OpSearch)
	if len(searches) != 2 {
		t.Fatalf("expected 2 searches with a grace period, got %d", len(searches))
	}

	stale := searches[0].Query
	if diff := cmp.Diff([]string{DefaultGracePeriodLabel}, stale.WithoutLabels); diff != "" {
		t.Errorf("stale query exclusions mismatch (-want +got):\n%s", diff)
	}

	grace := searches[1].Query
	if want := t0.Add(-3 * 24 * time.Hour); !grace.UpdatedBefore.Equal(want) {
		t.Errorf("grace UpdatedBefore = %v, want %v", grace.UpdatedBefore, want)
	}
	if diff := cmp.Diff([]string{DefaultGracePeriodLabel}, grace.WithLabels); diff != "" {
		t.Errorf("grace query labels mismatch (-want +got):\n%s", diff)
	}
}

func staleIssue(number int, author string) *gateway.Issue {
	return &gateway.Issue{
		Number:    number,
		Author:    author,
		State:     gateway.StateOpen,
		UpdatedAt: t0.Add(-31 * 24 * time.Hour),
		HTMLURL:   "https://github.com/sailshq/widgets/issues/1",
	}
}

func TestSweepClosesStaleWithoutGracePeriod(t *testing.T) {
	f := &gatewaytest.Fake{
		SearchResults: []gatewaytest.SearchResult{
			{Issues: []*gateway.Issue{staleIssue(1, "alice"), staleIssue(2, "bob")}},
		},
	}
	s, err := New(f, testConfig(repoA), WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if got := len(f.CallsOf(gatewaytest.OpClose)); got != 2 {
		t.Errorf("expected 2 closes, got %d", got)
	}
	comments := f.CallsOf(gatewaytest.OpComment)
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	var sawShelfLife bool
	for _, c := range comments {
		if strings.Contains(c.Body, "30 days") {
			sawShelfLife = true
		}
	}
	if !sawShelfLife {
		t.Errorf("stale comment should state the shelf life, got %q", comments[0].Body)
	}
}

func TestSweepTruncatesToBatchSize(t *testing.T) {
	f := &gatewaytest.Fake{
		SearchResults: []gatewaytest.SearchResult{
			{Issues: []*gateway.Issue{staleIssue(1, "a"), staleIssue(2, "b"), staleIssue(3, "c")}},
		},
	}
	cfg := testConfig(repoA)
	cfg.MaxIssuesPerRepo = 1
	s, err := New(f, cfg, WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if got := len(f.CallsOf(gatewaytest.OpClose)); got != 1 {
		t.Fatalf("expected 1 close after truncation, got %d", got)
	}
}

func TestSweepPerIssueFailureContinues(t *testing.T) {
	f := &gatewaytest.Fake{
		SearchResults: []gatewaytest.SearchResult{
			{Issues: []*gateway.Issue{staleIssue(1, "a"), staleIssue(2, "b")}},
		},
	}
	f.FailFunc = func(c gatewaytest.Call) error {
		if c.Op == gatewaytest.OpClose && c.Number == 1 {
			return errors.New("boom")
		}
		return nil
	}
	s, err := New(f, testConfig(repoA), WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	// Issue 1's close failed; issue 2 must still be closed and commented.
	var closed []int
	for _, c := range f.CallsOf(gatewaytest.OpClose) {
		closed = append(closed, c.Number)
	}
	if len(closed) != 2 {
		t.Fatalf("both closes should be attempted, got %v", closed)
	}
	comments := f.CallsOf(gatewaytest.OpComment)
	if len(comments) != 1 || comments[0].Number != 2 {
		t.Fatalf("only issue 2 should be commented, got %+v", comments)
	}
}

func TestSweepWarnsWithGracePeriod(t *testing.T) {
	issue := staleIssue(7, "alice")
	f := &gatewaytest.Fake{
		SearchResults: []gatewaytest.SearchResult{
			{Issues: []*gateway.Issue{issue}}, // stale search
			{},                                // grace-expired search
		},
		CommentThreads: map[string][]gateway.Comment{
			"sailshq/widgets#7": {
				{Author: "bob", Body: "same here"},
				{Author: "alice", Body: "any news?"},
				{Author: "carol", Body: "+1"},
				{Author: "bob", Body: "bump"},
			},
		},
	}
	cfg := testConfig(repoA)
	cfg.GracePeriodDays = 3
	s, err := New(f, cfg, WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	// Warned, not closed.
	if got := len(f.CallsOf(gatewaytest.OpClose)); got != 0 {
		t.Fatalf("warned issues must not be closed, got %d closes", got)
	}
	labels := f.CallsOf(gatewaytest.OpAddLabels)
	if len(labels) != 1 {
		t.Fatalf("expected 1 label add, got %d", len(labels))
	}
	if diff := cmp.Diff([]string{DefaultGracePeriodLabel}, labels[0].Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}

	comments := f.CallsOf(gatewaytest.OpComment)
	if len(comments) != 1 {
		t.Fatalf("expected 1 warning comment, got %d", len(comments))
	}
	body := comments[0].Body
	if !strings.HasPrefix(body, "@alice, @bob, @carol:") {
		t.Errorf("mentions must be author first then distinct commenters, got %q", body)
	}
	if !strings.Contains(body, "next 3 days") {
		t.Errorf("warning must state the remaining days, got %q", body)
	}
}

// Warning a stale issue that still carries the cleanup label must swap
// the labels, not stack them: a submission carries at most one lifecycle
// label at a time.
func TestSweepWarnReplacesCleanupLabel(t *testing.T) {
	flagged := staleIssue(5, "alice")
	flagged.Labels = []gateway.Label{{Name: DefaultCleanupLabel}}
	f := &gatewaytest.Fake{
		SearchResults: []gatewaytest.SearchResult{
			{Issues: []*gateway.Issue{flagged}},
			{},
		},
	}
	cfg := testConfig(repoA)
	cfg.GracePeriodDays = 3
	s, err := New(f, cfg, WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	removes := f.CallsOf(gatewaytest.OpRemoveLabel)
	if len(removes) != 1 || removes[0].Label != DefaultCleanupLabel {
		t.Fatalf("expected cleanup label removal, got %+v", removes)
	}
	want := []string{
		gatewaytest.OpSearch,
		gatewaytest.OpRemoveLabel,
		gatewaytest.OpAddLabels,
		gatewaytest.OpListComments,
		gatewaytest.OpComment,
		gatewaytest.OpSearch,
	}
	if diff := cmp.Diff(want, f.Ops()); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestSweepRetiresExpiredWarnings(t *testing.T) {
	warned := staleIssue(9, "alice")
	warned.Labels = []gateway.Label{{Name: DefaultGracePeriodLabel}}
	f := &gatewaytest.Fake{
		SearchResults: []gatewaytest.SearchResult{
			{}, // stale search: nothing new
			{Issues: []*gateway.Issue{warned}},
		},
	}
	cfg := testConfig(repoA)
	cfg.GracePeriodDays = 3
	s, err := New(f, cfg, WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	removes := f.CallsOf(gatewaytest.OpRemoveLabel)
	if len(removes) != 1 || removes[0].Label != DefaultGracePeriodLabel {
		t.Fatalf("expected grace label removal, got %+v", removes)
	}
	if got := len(f.CallsOf(gatewaytest.OpClose)); got != 1 {
		t.Fatalf("expected 1 close, got %d", got)
	}
}

// A failed label removal must not block the close of an expired warning;
// the two mutations are independent.
func TestRetireWarnedIndependentFailures(t *testing.T) {
	warned := staleIssue(9, "alice")
	f := &gatewaytest.Fake{
		SearchResults: []gatewaytest.SearchResult{
			{},
			{Issues: []*gateway.Issue{warned}},
		},
	}
	f.FailFunc = func(c gatewaytest.Call) error {
		if c.Op == gatewaytest.OpRemoveLabel {
			return errors.New("label already gone")
		}
		return nil
	}
	cfg := testConfig(repoA)
	cfg.GracePeriodDays = 3
	s, err := New(f, cfg, WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if got := len(f.CallsOf(gatewaytest.OpClose)); got != 1 {
		t.Fatalf("close must still happen, got %d closes", got)
	}
}

func TestSweepRateLimitRequeuesRepo(t *testing.T) {
	resetAt := t0.Add(10 * time.Minute)
	f := &gatewaytest.Fake{
		SearchResults: []gatewaytest.SearchResult{
			{Err: &gateway.RateLimitedError{ResetAt: resetAt, Err: errors.New("rate limit exceeded")}},
			{}, // repoB
			{}, // repoA retry
		},
	}

	var slept []time.Duration
	s, err := New(f, testConfig(repoA, repoB),
		WithClock(fixedClock),
		WithSleep(func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	// Rate-limited repo moves to the back of the queue and is retried
	// only after the reset time.
	var order []string
	for _, c := range f.CallsOf(gatewaytest.OpSearch) {
		order = append(order, c.Query.Repo.String())
	}
	want := []string{repoA.String(), repoB.String(), repoA.String()}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Fatalf("search order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Duration{10 * time.Minute}, slept); diff != "" {
		t.Fatalf("sleep mismatch (-want +got):\n%s", diff)
	}
}

func TestSweepRateLimitWithoutResetDropsRepo(t *testing.T) {
	f := &gatewaytest.Fake{
		SearchResults: []gatewaytest.SearchResult{
			{Err: &gateway.RateLimitedError{Err: errors.New("rate limit exceeded")}},
			{}, // repoB
		},
	}
	s, err := New(f, testConfig(repoA, repoB), WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if got := len(f.CallsOf(gatewaytest.OpSearch)); got != 2 {
		t.Fatalf("repo without a reset time must not be retried, got %d searches", got)
	}
}

func TestSweepRateLimitSingleRetry(t *testing.T) {
	resetAt := t0.Add(time.Minute)
	limited := gatewaytest.SearchResult{Err: &gateway.RateLimitedError{ResetAt: resetAt, Err: errors.New("rate limit exceeded")}}
	f := &gatewaytest.Fake{
		SearchResults: []gatewaytest.SearchResult{limited, limited, limited},
	}
	s, err := New(f, testConfig(repoA),
		WithClock(fixedClock),
		WithSleep(func(context.Context, time.Duration) error { return nil }))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	// One initial attempt plus exactly one retry.
	if got := len(f.CallsOf(gatewaytest.OpSearch)); got != 2 {
		t.Fatalf("expected 2 search attempts, got %d", got)
	}
}

func TestSweepSearchErrorMovesToNextRepo(t *testing.T) {
	f := &gatewaytest.Fake{
		SearchResults: []gatewaytest.SearchResult{
			{Err: errors.New("500 server error")},
			{Issues: []*gateway.Issue{staleIssue(1, "a")}},
		},
	}
	s, err := New(f, testConfig(repoA, repoB), WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	closes := f.CallsOf(gatewaytest.OpClose)
	if len(closes) != 1 || closes[0].Repo != repoB {
		t.Fatalf("repoB should still be swept after repoA's search failed, got %+v", closes)
	}
}

func TestCloseByLabel(t *testing.T) {
	f := &gatewaytest.Fake{
		SearchResults: []gatewaytest.SearchResult{
			{Issues: []*gateway.Issue{staleIssue(4, "dave")}},
		},
	}
	s, err := New(f, testConfig(repoA), WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.CloseByLabel(context.Background(), []string{"question"}); err != nil {
		t.Fatalf("CloseByLabel: %v", err)
	}

	searches := f.CallsOf(gatewaytest.OpSearch)
	if len(searches) != 1 {
		t.Fatalf("expected 1 search, got %d", len(searches))
	}
	if diff := cmp.Diff([]string{"question"}, searches[0].Query.WithLabels); diff != "" {
		t.Errorf("query labels mismatch (-want +got):\n%s", diff)
	}

	// Comment first, then close.
	want := []string{gatewaytest.OpSearch, gatewaytest.OpComment, gatewaytest.OpClose}
	if diff := cmp.Diff(want, f.Ops()); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(f.CallsOf(gatewaytest.OpComment)[0].Body, "verified bugs") {
		t.Errorf("unexpected non-issue comment: %q", f.CallsOf(gatewaytest.OpComment)[0].Body)
	}
}

func TestMentionList(t *testing.T) {
	issue := &gateway.Issue{Author: "alice"}
	comments := []gateway.Comment{
		{Author: "bob"},
		{Author: "alice"},
		{Author: "carol"},
		{Author: "bob"},
		{Author: ""},
	}
	if got, want := mentionList(issue, comments), "@alice, @bob, @carol"; got != want {
		t.Fatalf("mentionList = %q, want %q", got, want)
	}
	if got, want := mentionList(issue, nil), "@alice"; got != want {
		t.Fatalf("mentionList with no comments = %q, want %q", got, want)
	}
}
