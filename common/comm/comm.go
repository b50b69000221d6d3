/*
Copyright The Horovod Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package comm declares the narrow interfaces through which the process set
// core talks to a concrete communication backend. A backend supplies blocking
// collective primitives; every call returns only once all participants of the
// relevant scope have made the matching call.
package comm

// ReduceOp selects the elementwise reduction applied by AllreduceInts.
type ReduceOp int

const (
	ReduceMax ReduceOp = iota
	ReduceMin
)

func (op ReduceOp) String() string {
	switch op {
	case ReduceMax:
		return "MAX"
	case ReduceMin:
		return "MIN"
	default:
		return "UNKNOWN"
	}
}

// Controller coordinates the workers of a single process set. Rank and Size
// are relative to that set; AllgatherInt gathers one integer from every
// member, ordered by rank.
type Controller interface {
	Initialize()
	IsInitialized() bool
	Rank() int
	Size() int
	AllgatherInt(local int) ([]int, error)
}

// Collective exposes the global-scope primitives used for cross-worker
// consensus checks. Every worker in the job participates in each call.
type Collective interface {
	Size() int
	AllgatherInt(local int) ([]int, error)
	AllreduceInts(local []int, op ReduceOp) ([]int, error)
}

// Context is a materialized communicator for one process set. IsMember
// reports whether the local process belongs to it.
type Context interface {
	IsMember() bool
	Free()
}

// Transport materializes membership lists into communicator contexts.
// Materialize is itself collective over the whole job: every worker must call
// it with the same membership, including workers outside that membership.
type Transport interface {
	Global() Collective
	Materialize(membership []int) (Context, error)
}

// ControllerProvider hands out a controller for each registered process set.
type ControllerProvider interface {
	NewController(membership []int) Controller
}
