/*
Copyright The Horovod Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package processset tracks dynamically created sets of cooperating workers
// and materializes them into communicator contexts once every worker agrees
// they exist. The Table is the single point of access; process sets are
// owned by their table and must not be mutated concurrently with it.
package processset

import (
	"github.com/hyperledger/fabric-lib-go/common/flogging"
	"github.com/pkg/errors"

	"github.com/maxhgerlach/horovod/common/comm"
	"github.com/maxhgerlach/horovod/common/opqueue"
	"github.com/maxhgerlach/horovod/common/status"
)

var logger = flogging.MustGetLogger("common.processset")

// ProcessSet is one registered set of workers: the membership declared at
// registration, the controller coordinating the set, the communicator context
// once bound, and the outbox of pending collective requests.
type ProcessSet struct {
	membership  []int
	controller  comm.Controller
	context     comm.Context
	outbox      *opqueue.Queue
	initialized bool
}

func newProcessSet(membership []int, controller comm.Controller) *ProcessSet {
	return &ProcessSet{
		membership: append([]int(nil), membership...),
		controller: controller,
		outbox:     opqueue.New(),
	}
}

// Initialize materializes the set on the given transport. Once the set is
// initialized the call is a no-op, so an outer polling loop may invoke it
// round after round without side effects.
//
// For a non-empty membership, every worker first proves that the whole job
// registered the byte-identical membership: an allgather of the local length,
// then an elementwise allreduce with MAX and with MIN, each compared against
// the local values. Only then is the transport asked for a context. The
// controller is initialized only when the local process is a member; the set
// still becomes initialized either way, keeping bring-up in lockstep across
// all workers. Running a collective op on a set the local process is not part
// of is undefined.
func (ps *ProcessSet) Initialize(transport comm.Transport) error {
	if ps.initialized {
		return nil
	}
	logger.Debugf("initializing process set with %d registered ranks", len(ps.membership))

	if len(ps.membership) > 0 {
		if err := ps.verifyUniformMembership(transport.Global()); err != nil {
			return err
		}
	}

	context, err := transport.Materialize(ps.membership)
	if err != nil {
		return err
	}
	ps.context = context
	if context.IsMember() {
		ps.controller.Initialize()
	}
	ps.initialized = true
	return nil
}

func (ps *ProcessSet) verifyUniformMembership(global comm.Collective) error {
	localLen := len(ps.membership)
	lengths, err := global.AllgatherInt(localLen)
	if err != nil {
		return err
	}
	for rank, length := range lengths {
		if length != localLen {
			return errors.Wrapf(ErrMembershipSizeMismatch,
				"registered %d ranks locally, rank %d registered %d", localLen, rank, length)
		}
	}

	// Both reductions run before either comparison. If memberships diverge
	// anywhere, no local membership can equal both the MAX and the MIN
	// reduction, so every worker fails instead of some blocking in a
	// collective their peers already abandoned.
	reduced := map[comm.ReduceOp][]int{}
	for _, op := range []comm.ReduceOp{comm.ReduceMax, comm.ReduceMin} {
		vals, err := global.AllreduceInts(ps.membership, op)
		if err != nil {
			return err
		}
		reduced[op] = vals
	}
	for _, op := range []comm.ReduceOp{comm.ReduceMax, comm.ReduceMin} {
		for i, rank := range reduced[op] {
			if rank != ps.membership[i] {
				return errors.Wrapf(ErrMembershipValueMismatch,
					"member %d is rank %d locally but %s-reduces to %d", i, ps.membership[i], op, rank)
			}
		}
	}
	return nil
}

// Finalize drains the outbox with st, releases the communicator context and
// returns the set to its registered-but-uninitialized state. A finalized set
// may be initialized again.
func (ps *ProcessSet) Finalize(st status.Status) {
	ps.outbox.FinalizeAndDrain(st)
	ps.outbox = opqueue.New()
	if ps.context != nil {
		ps.context.Free()
		ps.context = nil
	}
	ps.initialized = false
}

// IsIncluded reports whether the local process belongs to the materialized
// set. Calling it before the set is initialized returns ErrNotInitialized.
func (ps *ProcessSet) IsIncluded() (bool, error) {
	if !ps.initialized {
		return false, ErrNotInitialized
	}
	return ps.controller.IsInitialized(), nil
}

// Membership returns a copy of the registered global ranks; empty for the
// global process set.
func (ps *ProcessSet) Membership() []int {
	return append([]int(nil), ps.membership...)
}

// Initialized reports whether Initialize has completed for the current
// lifetime of the set.
func (ps *ProcessSet) Initialized() bool {
	return ps.initialized
}

// Controller returns the controller coordinating this set.
func (ps *ProcessSet) Controller() comm.Controller {
	return ps.controller
}

// Outbox returns the queue of pending collective requests for this set.
func (ps *ProcessSet) Outbox() *opqueue.Queue {
	return ps.outbox
}
