/*
Copyright The Horovod Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package processset

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/maxhgerlach/horovod/common/comm"
	"github.com/maxhgerlach/horovod/common/metrics"
	"github.com/maxhgerlach/horovod/common/status"
)

// GlobalID is the id of the global process set, implicitly containing every
// worker of the job. It is registered when the table is constructed and is
// never deregistered, only finalized.
const GlobalID int32 = 0

// Wire sentinels for the removal allgather. Real ids are non-negative, so
// these never collide with a marked id.
const (
	noPendingRemoval  = -1
	successfulRemoval = -2
)

type removalState int

const (
	removalNone removalState = iota
	removalMarked
	removalJustCompleted
)

// removalSlot is the single cluster-wide pending-removal slot.
type removalSlot struct {
	state removalState
	id    int32
}

func (s removalSlot) encode() int {
	switch s.state {
	case removalMarked:
		return int(s.id)
	case removalJustCompleted:
		return successfulRemoval
	default:
		return noPendingRemoval
	}
}

// Table tracks every live process set, keyed by a small integer id. All
// access is serialized by one mutex; methods named ...Locked assume it is
// held and exist so that the removal protocol can finalize and deregister
// from within an entry point that already took the lock.
//
// Registration is purely local. Cross-worker agreement is enforced by the
// polled protocols: InitializeIfReady gates materialization on every worker
// having registered the same count of sets, and RemoveIfReady gates teardown
// on every worker having marked the identical id. There is no coordinator
// and no timeout; a worker that never reaches the matching poll call stalls
// its peers inside the blocking collectives.
type Table struct {
	mu      sync.Mutex
	sets    map[int32]*ProcessSet
	ids     []int32 // insertion order
	freeIDs []int32 // recycled oldest-freed-first
	nextID  int32
	removal removalSlot

	controllers comm.ControllerProvider
	metrics     *Metrics
}

// NewTable produces a table holding the global process set as id 0.
func NewTable(controllers comm.ControllerProvider, provider metrics.Provider) *Table {
	t := &Table{
		sets:        map[int32]*ProcessSet{},
		controllers: controllers,
		metrics:     NewMetrics(provider),
	}
	id, err := t.Register(nil)
	if err != nil || id != GlobalID {
		logger.Panicf("failed to register the global process set: id %d, err: %s", id, err)
	}
	return t
}

// Register adds a process set for the given global ranks. No cross-worker
// communication happens here; agreement on the membership is deferred to
// initialization. Registering sets in the same order on every worker is the
// caller's responsibility, since ids must line up across the job.
func (t *Table) Register(membership []int) (int32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(membership) > 0 && t.sets[GlobalID] != nil {
		if err := t.validateMembershipLocked(membership); err != nil {
			return 0, err
		}
	}

	var id int32
	if len(t.freeIDs) > 0 {
		id = t.freeIDs[0]
		t.freeIDs = t.freeIDs[1:]
	} else {
		id = t.nextID
		t.nextID++
	}

	t.sets[id] = newProcessSet(membership, t.controllers.NewController(membership))
	t.ids = append(t.ids, id)

	t.metrics.RegisteredTotal.Add(1)
	t.metrics.LiveSets.Set(float64(len(t.ids)))
	logger.Debugf("registered process set %d with %d ranks", id, len(membership))
	return id, nil
}

func (t *Table) validateMembershipLocked(membership []int) error {
	sorted := append([]int(nil), membership...)
	sort.Ints(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return errors.Wrapf(ErrDuplicateRank, "rank %d", sorted[i])
		}
	}

	globalSize := t.sets[GlobalID].controller.Size()
	for _, rank := range membership {
		if rank < 0 || rank >= globalSize {
			return errors.Wrapf(ErrInvalidRank, "rank %d with global size %d", rank, globalSize)
		}
	}
	return nil
}

// Deregister drops the set and recycles its id. Unknown ids are ignored.
func (t *Table) Deregister(id int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deregisterLocked(id)
}

func (t *Table) deregisterLocked(id int32) {
	if _, ok := t.sets[id]; !ok {
		return
	}
	delete(t.sets, id)
	for i, known := range t.ids {
		if known == id {
			t.ids = append(t.ids[:i], t.ids[i+1:]...)
			break
		}
	}
	t.freeIDs = append(t.freeIDs, id)
	t.metrics.LiveSets.Set(float64(len(t.ids)))
}

// Ids returns the live ids in registration order.
func (t *Table) Ids() []int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int32(nil), t.ids...)
}

// Contains reports whether id is live.
func (t *Table) Contains(id int32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sets[id]
	return ok
}

// Get retrieves the process set for id, or ErrProcessSetNotFound.
func (t *Table) Get(id int32) (*ProcessSet, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ps, ok := t.sets[id]
	if !ok {
		return nil, errors.Wrapf(ErrProcessSetNotFound, "id %d", id)
	}
	return ps, nil
}

// Memberships returns a snapshot of every live set's registered ranks.
func (t *Table) Memberships() map[int32][]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[int32][]int, len(t.ids))
	for _, id := range t.ids {
		out[id] = t.sets[id].Membership()
	}
	return out
}

// Initialize is the simple bring-up path for jobs without dynamic process
// sets: it materializes the global set, which must be the only one
// registered. Violating that precondition is a programming error.
func (t *Table) Initialize(transport comm.Transport) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.ids) != 1 || t.ids[0] != GlobalID {
		logger.Panicf("exactly the global process set must be registered at initialization, have ids %v", t.ids)
	}
	return t.sets[GlobalID].Initialize(transport)
}

// InitializeIfReady materializes every registered set once all workers have
// registered the same number of sets. Until then each call is a no-op round:
// a worker must not race ahead into materialization while a peer has not
// reached the matching registration, or subsequent collective calls
// desynchronize. Poll it until it converges.
func (t *Table) InitializeIfReady(transport comm.Transport) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	local := len(t.ids)
	counts, err := t.sets[GlobalID].controller.AllgatherInt(local)
	if err != nil {
		return err
	}
	for _, count := range counts {
		if count != local {
			// A peer has not caught up with our registrations, or we are
			// behind it. Try again on a later round.
			return nil
		}
	}

	for _, id := range t.ids {
		if err := t.sets[id].Initialize(transport); err != nil {
			return err
		}
	}
	return nil
}

// MarkForRemoval records id as the next set to tear down. The protocol
// supports exactly one in-flight removal cluster-wide; marking while another
// mark is pending is a programming error and panics.
func (t *Table) MarkForRemoval(id int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id == GlobalID {
		return ErrGlobalProcessSetRemoval
	}
	if _, ok := t.sets[id]; !ok {
		return errors.Wrapf(ErrProcessSetNotFound, "id %d", id)
	}
	if t.removal.state != removalNone {
		logger.Panicf("a process set removal is already pending, cannot mark %d", id)
	}
	t.removal = removalSlot{state: removalMarked, id: id}
	return nil
}

// RemoveIfReady completes a marked removal once every worker has marked the
// identical id. Each call performs one allgather round of the local
// pending-removal value; rounds that converge on "nothing marked" or on a
// just-completed removal are no-ops, so the call is safe to keep polling.
func (t *Table) RemoveIfReady() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	local := t.removal.encode()
	marked, err := t.sets[GlobalID].controller.AllgatherInt(local)
	if err != nil {
		return err
	}
	for _, m := range marked {
		if m != local {
			return nil
		}
	}
	if t.removal.state != removalMarked {
		return nil
	}

	id := t.removal.id
	t.sets[id].Finalize(status.Aborted("process set has been removed"))
	t.deregisterLocked(id)
	t.removal = removalSlot{state: removalJustCompleted}

	t.metrics.RemovedTotal.Add(1)
	logger.Infof("removed process set %d", id)
	return nil
}

// ConsumeJustRemoved reports a completed removal exactly once, freeing the
// slot for the next mark.
func (t *Table) ConsumeJustRemoved() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.removal.state != removalJustCompleted {
		return false
	}
	t.removal = removalSlot{state: removalNone}
	return true
}

// FinalizeAll finalizes every live set with st and deregisters all but the
// global set, which stays in the table so that a later Initialize can bring
// the runtime back up without re-registration.
func (t *Table) FinalizeAll(st status.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range append([]int32(nil), t.ids...) {
		t.sets[id].Finalize(st)
		if id != GlobalID {
			t.deregisterLocked(id)
		}
	}
}
