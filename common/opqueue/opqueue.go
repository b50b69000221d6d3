/*
Copyright The Horovod Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package opqueue holds the collective requests a process set has accepted
// but not yet executed. Each process set owns one queue; finalizing the set
// drains the queue so that no caller is left waiting on a request that will
// never run.
package opqueue

import (
	"sync"

	"github.com/maxhgerlach/horovod/common/status"
	"github.com/pkg/errors"
)

// ErrFinalized is returned by Enqueue once the queue has been finalized.
var ErrFinalized = errors.New("operation queue has been finalized")

// Request is one pending collective operation. The status delivered on Done
// tells the submitter whether the operation ran or was aborted.
type Request struct {
	Name string
	done chan status.Status
}

// Done yields exactly one status per request.
func (r *Request) Done() <-chan status.Status {
	return r.done
}

// Queue is safe for concurrent use.
type Queue struct {
	mu        sync.Mutex
	pending   []*Request
	finalized bool
}

func New() *Queue {
	return &Queue{}
}

// Enqueue admits a named request. The returned request's Done channel is
// buffered, so the completer never blocks.
func (q *Queue) Enqueue(name string) (*Request, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.finalized {
		return nil, errors.Wrapf(ErrFinalized, "rejecting request %q", name)
	}
	r := &Request{Name: name, done: make(chan status.Status, 1)}
	q.pending = append(q.pending, r)
	return r, nil
}

// Complete delivers st to the request and removes it from the queue. It is a
// no-op for requests that are no longer pending, e.g. already drained.
func (q *Queue) Complete(r *Request, st status.Status) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, pending := range q.pending {
		if pending == r {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			r.done <- st
			return
		}
	}
}

// Pending returns the number of requests awaiting execution.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// FinalizeAndDrain delivers st to every pending request and rejects all
// future enqueues. Safe to call more than once; later calls only drain
// whatever arrived in between.
func (q *Queue) FinalizeAndDrain(st status.Status) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.finalized = true
	for _, r := range q.pending {
		r.done <- st
	}
	q.pending = nil
}
