/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package issuetemplate parses repo issue templates and diffs submitted
// issue bodies against them. Templates declare a "pledge" checklist the
// submitter must check off, and a version-info section declaring required
// environment fields. Both stages are pure text functions with no I/O,
// so the matching rules are testable independently of template fetching.
package issuetemplate

import (
	"regexp"
	"strings"
)

// Block delimiters, matched literally in both templates and issue bodies.
const (
	BeginPledge      = "### BEGIN PLEDGE ###"
	EndPledge        = "### END PLEDGE ###"
	BeginVersionInfo = "### BEGIN VERSION INFO ###"
	EndVersionInfo   = "### END VERSION INFO ###"
)

var (
	pledgeBlockRe  = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(BeginPledge) + `(.+)` + regexp.QuoteMeta(EndPledge))
	versionBlockRe = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(BeginVersionInfo) + `(.+)` + regexp.QuoteMeta(EndVersionInfo))

	// A checklist item is a dash, a blank checkbox placeholder, then text.
	checklistItemRe = regexp.MustCompile(`(?m)^- \[ \] .*$`)

	// Version fields are the bold-emphasized tokens inside the version block.
	versionFieldRe = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// Template is the parsed form of a repo's issue template: the pledge
// checklist items and the required version-info field names, both in
// source order. Built once per validation call, never mutated.
type Template struct {
	PledgeItems   []string
	VersionFields []string
}

// Parse extracts the pledge checklist and version-info schema from a raw
// template document. It returns nil when the document has no pledge
// block: with no pledge there is nothing to validate against, and the
// caller must treat the submission as vacuously compliant. A missing
// version-info block just yields zero required fields.
func Parse(raw string) *Template {
	pledge := pledgeBlockRe.FindStringSubmatch(raw)
	if pledge == nil {
		return nil
	}

	t := &Template{
		PledgeItems: checklistItemRe.FindAllString(pledge[1], -1),
	}

	if version := versionBlockRe.FindStringSubmatch(raw); version != nil {
		for _, m := range versionFieldRe.FindAllStringSubmatch(version[1], -1) {
			t.VersionFields = append(t.VersionFields, m[1])
		}
	}
	return t
}

// ItemText strips the leading dash and checkbox placeholder from a
// checklist item, leaving just the pledge wording for use in comments.
func ItemText(item string) string {
	return strings.TrimPrefix(item, "- [ ] ")
}

// checkedItemRe builds the matcher for a checked-off checklist item: the
// item line, anchored and literal, except that the blank checkbox must
// contain an "x" (either case, surrounding whitespace tolerated). Any
// drift in the item text itself counts as missing.
func checkedItemRe(item string) *regexp.Regexp {
	const placeholder = "[ ]"
	idx := strings.Index(item, placeholder)
	if idx < 0 {
		// Not reachable for items produced by Parse; match the literal line.
		return regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(item) + `$`)
	}
	return regexp.MustCompile(`(?m)^` +
		regexp.QuoteMeta(item[:idx]) +
		`\[\s*[xX]\s*\]` +
		regexp.QuoteMeta(item[idx+len(placeholder):]) +
		`$`)
}

// versionFieldPresentRe builds the matcher for a provided version field:
// the bold field name at the start of a line, a colon, then at least one
// non-whitespace character.
func versionFieldPresentRe(field string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^\*\*` + regexp.QuoteMeta(field) + `\*\*:[^\S\n]*\S.*$`)
}
