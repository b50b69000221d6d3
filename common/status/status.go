/*
Copyright The Horovod Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status defines the result value carried by collective operations
// and by process set finalization.
package status

import "fmt"

// Code classifies the outcome of an operation.
type Code int

const (
	StatusOK Code = iota
	StatusUnknownError
	StatusAborted
	StatusInvalidArgument
	StatusInProgress
)

func (c Code) String() string {
	switch c {
	case StatusOK:
		return "OK"
	case StatusUnknownError:
		return "UNKNOWN_ERROR"
	case StatusAborted:
		return "ABORTED"
	case StatusInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusInProgress:
		return "IN_PROGRESS"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Status is a value type; the zero value is OK.
type Status struct {
	Code   Code
	Reason string
}

func OK() Status {
	return Status{Code: StatusOK}
}

func Aborted(reason string) Status {
	return Status{Code: StatusAborted, Reason: reason}
}

func InvalidArgument(reason string) Status {
	return Status{Code: StatusInvalidArgument, Reason: reason}
}

func UnknownError(reason string) Status {
	return Status{Code: StatusUnknownError, Reason: reason}
}

func InProgress() Status {
	return Status{Code: StatusInProgress}
}

func (s Status) OK() bool {
	return s.Code == StatusOK
}

func (s Status) InProgress() bool {
	return s.Code == StatusInProgress
}

func (s Status) String() string {
	if s.Reason == "" {
		return s.Code.String()
	}
	return fmt.Sprintf("%s: %s", s.Code, s.Reason)
}
