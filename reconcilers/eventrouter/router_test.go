/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package eventrouter_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sailshq/triagebot/gateway"
	"github.com/sailshq/triagebot/gateway/gatewaytest"
	"github.com/sailshq/triagebot/reconcilers/eventrouter"
	"github.com/sailshq/triagebot/reconcilers/issuereconciler"
	"github.com/sailshq/triagebot/reconcilers/prreconciler"
)

var testRepo = gateway.Repo{Owner: "sailshq", Name: "widgets"}

const graceLabel = "Waiting to close"

func newRouter(t *testing.T, f *gatewaytest.Fake, opts ...eventrouter.Option) *eventrouter.Router {
	t.Helper()
	issues, err := issuereconciler.New(f)
	if err != nil {
		t.Fatal(err)
	}
	prs := prreconciler.New(f)
	opts = append([]eventrouter.Option{eventrouter.WithGracePeriodLabel(graceLabel)}, opts...)
	return eventrouter.New(f, issues, prs, opts...)
}

func TestIgnoredSenderIsDropped(t *testing.T) {
	f := &gatewaytest.Fake{}
	r := newRouter(t, f, eventrouter.WithIgnoreUsers([]string{"triagebot"}))

	ev := eventrouter.Event{
		Action: "opened",
		Sender: "triagebot",
		Repo:   testRepo,
		Issue:  &gateway.Issue{Number: 1, Author: "triagebot", State: gateway.StateOpen},
	}
	if err := r.HandleIssue(context.Background(), ev); err != nil {
		t.Fatalf("HandleIssue: %v", err)
	}
	if err := r.HandlePullRequest(context.Background(), ev); err != nil {
		t.Fatalf("HandlePullRequest: %v", err)
	}
	if got := f.Calls(); len(got) != 0 {
		t.Fatalf("ignored sender must produce no tracker calls, got %v", f.Ops())
	}
}

func TestNonOpenedActionsAreNoops(t *testing.T) {
	f := &gatewaytest.Fake{}
	r := newRouter(t, f)

	ev := eventrouter.Event{
		Action: "labeled",
		Sender: "reporter",
		Repo:   testRepo,
		Issue:  &gateway.Issue{Number: 1, Author: "reporter", State: gateway.StateOpen},
	}
	if err := r.HandleIssue(context.Background(), ev); err != nil {
		t.Fatalf("HandleIssue: %v", err)
	}
	if got := f.Calls(); len(got) != 0 {
		t.Fatalf("expected no tracker calls, got %v", f.Ops())
	}
}

func TestCommentStripsAutoRemovableLabels(t *testing.T) {
	f := &gatewaytest.Fake{}
	r := newRouter(t, f)

	ev := eventrouter.Event{
		Action: "created",
		Sender: "someone",
		Repo:   testRepo,
		Issue: &gateway.Issue{
			Number: 9,
			Author: "reporter",
			State:  gateway.StateOpen,
			Labels: []gateway.Label{
				{Name: graceLabel, Color: "ededed"},
				{Name: "Waiting for feedback", Color: eventrouter.DefaultAutoRemovableColor},
				{Name: "bug", Color: "d73a4a"},
			},
		},
		Comment: &gateway.Comment{Author: "someone", Body: "still happening"},
	}
	if err := r.HandleComment(context.Background(), ev); err != nil {
		t.Fatalf("HandleComment: %v", err)
	}

	removed := f.CallsOf(gatewaytest.OpRemoveLabel)
	var names []string
	for _, c := range removed {
		names = append(names, c.Label)
	}
	if diff := cmp.Diff([]string{graceLabel, "Waiting for feedback"}, names); diff != "" {
		t.Fatalf("removed labels mismatch (-want +got):\n%s", diff)
	}
}

func TestCommentFromAuthorRevalidatesCleanupLabeledIssue(t *testing.T) {
	f := &gatewaytest.Fake{Templates: map[string]string{
		testRepo.String(): "### BEGIN PLEDGE ###\n- [ ] I promise\n### END PLEDGE ###\n",
	}}
	r := newRouter(t, f)

	ev := eventrouter.Event{
		Action: "created",
		Sender: "reporter",
		Repo:   testRepo,
		Issue: &gateway.Issue{
			Number: 9,
			Author: "reporter",
			Body:   "### BEGIN PLEDGE ###\n- [x] I promise\n### END PLEDGE ###\n",
			State:  gateway.StateClosed,
			Labels: []gateway.Label{{Name: issuereconciler.DefaultCleanupLabel}},
		},
		Comment: &gateway.Comment{Author: "reporter", Body: "Ok, fixed!"},
	}
	if err := r.HandleComment(context.Background(), ev); err != nil {
		t.Fatalf("HandleComment: %v", err)
	}

	want := []string{gatewaytest.OpFetchTemplate, gatewaytest.OpRemoveLabel, gatewaytest.OpReopen, gatewaytest.OpComment}
	if diff := cmp.Diff(want, f.Ops()); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestCommentFromOtherUserDoesNotRevalidate(t *testing.T) {
	f := &gatewaytest.Fake{}
	r := newRouter(t, f)

	ev := eventrouter.Event{
		Action: "created",
		Sender: "bystander",
		Repo:   testRepo,
		Issue: &gateway.Issue{
			Number: 9,
			Author: "reporter",
			State:  gateway.StateClosed,
			Labels: []gateway.Label{{Name: issuereconciler.DefaultCleanupLabel}},
		},
		Comment: &gateway.Comment{Author: "bystander", Body: "me too"},
	}
	if err := r.HandleComment(context.Background(), ev); err != nil {
		t.Fatalf("HandleComment: %v", err)
	}
	if got := f.Calls(); len(got) != 0 {
		t.Fatalf("expected no tracker calls, got %v", f.Ops())
	}
}

func TestCommentFromAuthorRevalidatesCleanupLabeledPR(t *testing.T) {
	f := &gatewaytest.Fake{}
	r := newRouter(t, f)

	ev := eventrouter.Event{
		Action: "created",
		Sender: "contributor",
		Repo:   testRepo,
		Issue: &gateway.Issue{
			Number:      3,
			Title:       "[patch] fix typo",
			Author:      "contributor",
			State:       gateway.StateClosed,
			PullRequest: true,
			Labels:      []gateway.Label{{Name: prreconciler.DefaultCleanupLabel}},
		},
		Comment: &gateway.Comment{Author: "contributor", Body: "Ok, fixed!"},
	}
	if err := r.HandleComment(context.Background(), ev); err != nil {
		t.Fatalf("HandleComment: %v", err)
	}

	want := []string{gatewaytest.OpRemoveLabel, gatewaytest.OpReopen}
	if diff := cmp.Diff(want, f.Ops()); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
}
