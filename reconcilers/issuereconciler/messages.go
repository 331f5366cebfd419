/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package issuereconciler

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/sailshq/triagebot/gateway"
	"github.com/sailshq/triagebot/reconcilers/issuereconciler/issuetemplate"
)

// DefaultMessage is posted on new issues in repos that have no issue
// template. Configure an empty message to suppress it.
const DefaultMessage = `@{{.Author}} Thanks for posting, we'll take a look as soon as possible.  In the meantime, if you haven't already, please carefully read the [issue contribution guidelines]({{.GuideURL}}) and double-check for any missing information above.  In particular, please ensure that this issue is about a stability or performance bug with a documented feature; and make sure you've included detailed instructions on how to reproduce the bug from a clean install.

Thank you!`

// WelcomeMessage is posted once when a previously non-compliant issue
// becomes compliant.
const WelcomeMessage = `@{{.Author}} Thanks for posting, we'll take a look as soon as possible.`

// MessageData is the variable set available to the configurable message
// templates.
type MessageData struct {
	Author   string
	Repo     string
	Issue    int
	GuideURL string
}

// renderMessage executes a message template against the data for one
// submission.
func renderMessage(tmpl *template.Template, repo gateway.Repo, issue *gateway.Issue, guideURL string) (string, error) {
	var sb strings.Builder
	err := tmpl.Execute(&sb, MessageData{
		Author:   issue.Author,
		Repo:     repo.String(),
		Issue:    issue.Number,
		GuideURL: guideURL,
	})
	if err != nil {
		return "", fmt.Errorf("rendering message template: %w", err)
	}
	return sb.String(), nil
}

// brokenMessage is the fixed instructional comment for submissions whose
// body no longer contains the required template blocks. It is the same
// regardless of which block is missing; a broken submission is not
// diagnosable at the field level.
func brokenMessage(author, guideURL, templateURL string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi @%s!  It looks like you may have removed some required elements from the initial comment template, without which I can't verify that this post meets our [contribution guidelines](%s). ", author, guideURL)
	fmt.Fprintf(&sb, "To get this issue moving again, please copy the template from [here](%s), paste it at the beginning of your initial comment, and follow the instructions in the text. ", templateURL)
	sb.WriteString("Then post a new comment (e.g. \"Ok, fixed!\") so that I know to go back and check.\n\n")
	sb.WriteString("Sorry to be a hassle, but following these instructions ensures that we can help you in the best way possible and keep the project running smoothly.")
	return sb.String()
}

// terseCleanupMessage is used when the cleanup label is already present:
// the submitter has seen the full instructions once, so no need to repeat
// them on every retry.
const terseCleanupMessage = "Sorry to be a hassle, but it looks like your issue is still missing some required info.  Please double-check your initial comment and try again."

// cleanupMessage builds the first-time itemized comment listing every
// missing version field and unchecked pledge item in one message.
func cleanupMessage(author string, verdict issuetemplate.Verdict) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi @%s!  It looks like you missed a step or two when you created your issue.  Please edit your comment (use the pencil icon at the top-right corner of the comment box) and fix the following:\n\n", author)
	for _, field := range verdict.MissingFields {
		fmt.Fprintf(&sb, "* Provide your %s\n", field)
	}
	for _, item := range verdict.MissingItems {
		fmt.Fprintf(&sb, "* Verify %q\n", issuetemplate.ItemText(item))
	}
	sb.WriteString("\nAs soon as those items are rectified, post a new comment (e.g. \"Ok, fixed!\") below and we'll take a look.  Thanks!")
	return sb.String()
}
