/*
Copyright The Horovod Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package opqueue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxhgerlach/horovod/common/status"
)

func TestEnqueueAndComplete(t *testing.T) {
	q := New()

	first, err := q.Enqueue("allreduce.layer0")
	require.NoError(t, err)
	second, err := q.Enqueue("allreduce.layer1")
	require.NoError(t, err)
	require.Equal(t, 2, q.Pending())

	q.Complete(first, status.OK())
	require.Equal(t, 1, q.Pending())

	st := <-first.Done()
	require.True(t, st.OK())

	select {
	case <-second.Done():
		t.Fatal("second request completed early")
	default:
	}
}

func TestCompleteUnknownRequestIsNoop(t *testing.T) {
	q := New()
	r, err := q.Enqueue("broadcast.init")
	require.NoError(t, err)

	q.Complete(r, status.OK())
	q.Complete(r, status.Aborted("again"))

	st := <-r.Done()
	require.True(t, st.OK())
	select {
	case <-r.Done():
		t.Fatal("request completed twice")
	default:
	}
}

func TestFinalizeAndDrain(t *testing.T) {
	q := New()
	first, err := q.Enqueue("allreduce.layer0")
	require.NoError(t, err)
	second, err := q.Enqueue("allreduce.layer1")
	require.NoError(t, err)

	q.FinalizeAndDrain(status.Aborted("process set has been removed"))

	for _, r := range []*Request{first, second} {
		st := <-r.Done()
		require.Equal(t, status.StatusAborted, st.Code)
		require.Equal(t, "process set has been removed", st.Reason)
	}
	require.Zero(t, q.Pending())

	_, err = q.Enqueue("allreduce.late")
	require.ErrorIs(t, err, ErrFinalized)
}
