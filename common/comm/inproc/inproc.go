/*
Copyright The Horovod Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package inproc simulates a fixed-size job of workers inside one process.
// Each worker runs on its own goroutine; a collective call blocks until
// every participant of its scope has made the matching call, mirroring the
// blocking model of a real backend. It backs the package tests and allows
// single-process use of the runtime.
package inproc

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/maxhgerlach/horovod/common/comm"
)

// Cluster coordinates the rendezvous rounds of its workers. Rounds are
// matched by (scope, per-worker call sequence), so each worker must issue the
// collectives of one scope in the same order as its peers.
type Cluster struct {
	size    int
	workers []*Worker

	mu     sync.Mutex
	rounds map[roundKey]*round
}

type roundKey struct {
	scope string
	seq   int
}

type round struct {
	expected int
	byRank   map[int][]int
	done     chan struct{}
}

func NewCluster(size int) *Cluster {
	c := &Cluster{
		size:   size,
		rounds: map[roundKey]*round{},
	}
	for rank := 0; rank < size; rank++ {
		c.workers = append(c.workers, &Worker{cluster: c, rank: rank, seqs: map[string]int{}})
	}
	return c
}

func (c *Cluster) Size() int {
	return c.size
}

// Worker returns the endpoint for the given global rank.
func (c *Cluster) Worker(rank int) *Worker {
	return c.workers[rank]
}

// gather blocks until expected participants have contributed to the round,
// then hands every participant the full contribution map.
func (c *Cluster) gather(key roundKey, expected, rank int, vals []int) (map[int][]int, error) {
	c.mu.Lock()
	r, ok := c.rounds[key]
	if !ok {
		r = &round{expected: expected, byRank: map[int][]int{}, done: make(chan struct{})}
		c.rounds[key] = r
	}
	if _, dup := r.byRank[rank]; dup {
		c.mu.Unlock()
		return nil, errors.Errorf("rank %d arrived twice in round %s/%d", rank, key.scope, key.seq)
	}
	r.byRank[rank] = append([]int(nil), vals...)
	if len(r.byRank) == r.expected {
		delete(c.rounds, key)
		close(r.done)
	}
	c.mu.Unlock()

	<-r.done
	return r.byRank, nil
}

// Worker is one simulated process. It implements comm.ControllerProvider.
type Worker struct {
	cluster *Cluster
	rank    int

	mu   sync.Mutex
	seqs map[string]int
}

func (w *Worker) Rank() int {
	return w.rank
}

func (w *Worker) nextSeq(scope string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	seq := w.seqs[scope]
	w.seqs[scope] = seq + 1
	return seq
}

// NewController returns a controller for the process set with the given
// membership; an empty membership means the whole job.
func (w *Worker) NewController(membership []int) comm.Controller {
	return &controller{worker: w, membership: append([]int(nil), membership...)}
}

// Transport returns this worker's endpoint of the simulated backend.
func (w *Worker) Transport() comm.Transport {
	return &transport{worker: w}
}

func allRanks(c *Cluster) []int {
	ranks := make([]int, c.size)
	for i := range ranks {
		ranks[i] = i
	}
	return ranks
}

func allgatherInt(w *Worker, scope string, participants []int, local int) ([]int, error) {
	key := roundKey{scope: scope, seq: w.nextSeq(scope)}
	byRank, err := w.cluster.gather(key, len(participants), w.rank, []int{local})
	if err != nil {
		return nil, err
	}
	out := make([]int, len(participants))
	for i, rank := range participants {
		out[i] = byRank[rank][0]
	}
	return out, nil
}

type controller struct {
	worker      *Worker
	membership  []int
	initialized bool
}

func (c *controller) scope() string {
	if len(c.membership) == 0 {
		return "ctl:global"
	}
	return "ctl:" + fmt.Sprint(c.membership)
}

func (c *controller) participants() []int {
	if len(c.membership) == 0 {
		return allRanks(c.worker.cluster)
	}
	return c.membership
}

func (c *controller) Initialize() {
	c.initialized = true
}

func (c *controller) IsInitialized() bool {
	return c.initialized
}

func (c *controller) Size() int {
	return len(c.participants())
}

// Rank is the local process's position within the set, or -1 outside it.
func (c *controller) Rank() int {
	for i, rank := range c.participants() {
		if rank == c.worker.rank {
			return i
		}
	}
	return -1
}

func (c *controller) AllgatherInt(local int) ([]int, error) {
	return allgatherInt(c.worker, c.scope(), c.participants(), local)
}

type transport struct {
	worker *Worker
}

func (t *transport) Global() comm.Collective {
	return &globalComm{worker: t.worker}
}

// Materialize is collective over the whole job, like a communicator split:
// every worker passes through one global rendezvous round before receiving
// its context.
func (t *transport) Materialize(membership []int) (comm.Context, error) {
	if _, err := allgatherInt(t.worker, "transport:materialize", allRanks(t.worker.cluster), len(membership)); err != nil {
		return nil, err
	}

	member := len(membership) == 0
	for _, rank := range membership {
		if rank == t.worker.rank {
			member = true
			break
		}
	}
	return &context{member: member}, nil
}

type context struct {
	member bool
}

func (c *context) IsMember() bool {
	return c.member
}

func (c *context) Free() {}

type globalComm struct {
	worker *Worker
}

func (g *globalComm) Size() int {
	return g.worker.cluster.size
}

func (g *globalComm) AllgatherInt(local int) ([]int, error) {
	return allgatherInt(g.worker, "global:gather", allRanks(g.worker.cluster), local)
}

func (g *globalComm) AllreduceInts(local []int, op comm.ReduceOp) ([]int, error) {
	key := roundKey{scope: "global:reduce", seq: g.worker.nextSeq("global:reduce")}
	byRank, err := g.worker.cluster.gather(key, g.worker.cluster.size, g.worker.rank, local)
	if err != nil {
		return nil, err
	}

	out := append([]int(nil), local...)
	for rank, vals := range byRank {
		if len(vals) != len(out) {
			return nil, errors.Errorf("allreduce length mismatch: rank %d contributed %d values, want %d",
				rank, len(vals), len(out))
		}
		for i, v := range vals {
			switch op {
			case comm.ReduceMax:
				if v > out[i] {
					out[i] = v
				}
			case comm.ReduceMin:
				if v < out[i] {
					out[i] = v
				}
			}
		}
	}
	return out, nil
}
