/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sweeper

import (
	"errors"
	"fmt"

	"github.com/sailshq/triagebot/gateway"
)

// ErrPolicyViolation marks configuration rejected before any remote call
// is made.
var ErrPolicyViolation = errors.New("policy violation")

// DefaultGracePeriodLabel marks an issue that has been warned and will be
// closed once its grace period expires.
const DefaultGracePeriodLabel = "Waiting to close"

// DefaultCleanupLabel is the compliance reconcilers' non-compliant
// marker. The sweeper needs to know it because a submission carries at
// most one lifecycle label at a time, so warning an issue must remove it.
const DefaultCleanupLabel = "Needs cleanup"

// maxBatchSize is the remote search page size. Multi-page result handling
// is unsupported, so per-pass batches must fit in one page.
const maxBatchSize = 100

// Config controls one sweeper instance.
type Config struct {
	// Repos are processed one at a time, in order, each pass.
	Repos []gateway.Repo

	// ShelfLifeDays is how many days of inactivity make an issue stale.
	// Must be a positive whole number of days; the remote search API has
	// no finer granularity.
	ShelfLifeDays int

	// GracePeriodDays is the warning window between "flagged as stale"
	// and "automatically closed". Zero disables the warning phase and
	// closes stale issues immediately. Must not exceed ShelfLifeDays.
	GracePeriodDays int

	// GracePeriodLabel marks warned issues awaiting final close.
	GracePeriodLabel string

	// CleanupLabel is the non-compliant marker used by the compliance
	// reconcilers. Warning a stale issue removes it first; a submission
	// never carries both lifecycle labels at once.
	CleanupLabel string

	// MaxIssuesPerRepo bounds how many issues one pass touches per repo.
	MaxIssuesPerRepo int

	// LabelsToExclude prevents issues carrying any of these labels from
	// being swept.
	LabelsToExclude []string

	// StaleComment and GracePeriodComment override the posted messages.
	// See CommentData for the available template variables.
	StaleComment       string
	GracePeriodComment string

	// NonIssueComment is posted by CloseByLabel before closing.
	NonIssueComment string

	// ContributionGuideURL overrides the guide link in comments. When
	// unset it points at CONTRIBUTING.md in the swept repo.
	ContributionGuideURL string
}

// Validate rejects impossible policies before any remote call.
func (c Config) Validate() error {
	if c.ShelfLifeDays == 0 {
		return fmt.Errorf("%w: shelf life of zero days would close every issue", ErrPolicyViolation)
	}
	if c.ShelfLifeDays < 0 {
		return fmt.Errorf("%w: shelf life must be a positive number of days, got %d", ErrPolicyViolation, c.ShelfLifeDays)
	}
	if c.GracePeriodDays < 0 {
		return fmt.Errorf("%w: grace period must be a non-negative number of days, got %d", ErrPolicyViolation, c.GracePeriodDays)
	}
	if c.GracePeriodDays > c.ShelfLifeDays {
		return fmt.Errorf("%w: grace period (%dd) must not exceed shelf life (%dd)", ErrPolicyViolation, c.GracePeriodDays, c.ShelfLifeDays)
	}
	if c.MaxIssuesPerRepo < 1 {
		return fmt.Errorf("%w: max issues per repo must be at least 1, got %d", ErrPolicyViolation, c.MaxIssuesPerRepo)
	}
	if c.MaxIssuesPerRepo > maxBatchSize {
		return fmt.Errorf("%w: max issues per repo must not exceed the search page size (%d), got %d", ErrPolicyViolation, maxBatchSize, c.MaxIssuesPerRepo)
	}
	return nil
}
