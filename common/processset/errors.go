/*
Copyright The Horovod Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package processset

import "github.com/pkg/errors"

var (
	// ErrProcessSetNotFound is returned when looking up an id that is not in
	// the table. Unlike the errors below it is an expected condition and can
	// be avoided with Contains.
	ErrProcessSetNotFound = errors.New("process set does not exist")

	// ErrDuplicateRank rejects a registration whose membership names the same
	// global rank twice.
	ErrDuplicateRank = errors.New("duplicate rank in process set membership")

	// ErrInvalidRank rejects a registration whose membership names a rank
	// outside [0, global size).
	ErrInvalidRank = errors.New("invalid rank in process set membership")

	// ErrMembershipSizeMismatch means the workers registered memberships of
	// different lengths for the same process set. Detected independently on
	// every diverging worker during initialization.
	ErrMembershipSizeMismatch = errors.New("process set membership size differs between workers")

	// ErrMembershipValueMismatch means the workers registered equally long
	// but different memberships for the same process set.
	ErrMembershipValueMismatch = errors.New("process set membership differs between workers")

	// ErrNotInitialized is returned by IsIncluded before the set has been
	// initialized.
	ErrNotInitialized = errors.New("process set is not initialized")

	// ErrGlobalProcessSetRemoval rejects marking the global process set for
	// removal; it lives for the whole job.
	ErrGlobalProcessSetRemoval = errors.New("the global process set cannot be removed")
)
