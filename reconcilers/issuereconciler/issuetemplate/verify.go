/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package issuetemplate

// Verdict is the result of diffing a submission body against a parsed
// template. Missing checklist items and missing version fields are
// reported together so a single comment can list every problem at once.
type Verdict struct {
	// MissingItems holds checklist items not checked off in the body,
	// in template order. Only populated when PledgeBlockPresent.
	MissingItems []string

	// MissingFields holds required version fields absent from the body,
	// in template order. Only populated when VersionBlockPresent.
	MissingFields []string

	// PledgeBlockPresent reports whether the body still contains both
	// pledge delimiters. False means the submitter deleted the block,
	// which is structurally broken rather than item-level incomplete.
	PledgeBlockPresent bool

	// VersionBlockPresent is the same structural signal for the
	// version-info block. Vacuously true when the template declares no
	// version fields.
	VersionBlockPresent bool
}

// StructurallyBroken reports whether a required template block was
// deleted from the body entirely. Broken submissions cannot be diagnosed
// at the field level; callers send a template-reinsertion message instead
// of an itemized one.
func (v Verdict) StructurallyBroken() bool {
	return !v.PledgeBlockPresent || !v.VersionBlockPresent
}

// Compliant reports whether the submission passed every check.
func (v Verdict) Compliant() bool {
	return !v.StructurallyBroken() && len(v.MissingItems) == 0 && len(v.MissingFields) == 0
}

// Verify diffs a submission body against the template. A nil template
// (no pledge block in the repo's template document) yields a compliant
// verdict: with nothing to validate against, validation is vacuously
// satisfied.
func (t *Template) Verify(body string) Verdict {
	if t == nil {
		return Verdict{PledgeBlockPresent: true, VersionBlockPresent: true}
	}

	v := Verdict{
		PledgeBlockPresent:  pledgeBlockRe.MatchString(body),
		VersionBlockPresent: true,
	}
	if len(t.VersionFields) > 0 {
		v.VersionBlockPresent = versionBlockRe.MatchString(body)
	}

	// A deleted block short-circuits item-level diffing: the submission
	// needs its template restored before any itemized report is useful.
	if v.StructurallyBroken() {
		return v
	}

	for _, item := range t.PledgeItems {
		if !checkedItemRe(item).MatchString(body) {
			v.MissingItems = append(v.MissingItems, item)
		}
	}
	for _, field := range t.VersionFields {
		if !versionFieldPresentRe(field).MatchString(body) {
			v.MissingFields = append(v.MissingFields, field)
		}
	}
	return v
}
