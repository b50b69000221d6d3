/*
Copyright The Horovod Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package localconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	conf, err := Load()
	require.NoError(t, err)

	require.Equal(t, defaults.Log.Spec, conf.Log.Spec)
	require.Equal(t, defaults.Log.Format, conf.Log.Format)
	require.False(t, conf.ProcessSets.Dynamic)
	require.Equal(t, 200*time.Millisecond, conf.ProcessSets.PollInterval)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HOROVOD_LOG_SPEC", "debug")
	t.Setenv("HOROVOD_DYNAMIC_PROCESS_SETS", "1")
	t.Setenv("HOROVOD_PROCESSSETS_POLLINTERVAL", "50ms")

	conf, err := Load()
	require.NoError(t, err)

	require.Equal(t, "debug", conf.Log.Spec)
	require.True(t, conf.ProcessSets.Dynamic)
	require.Equal(t, 50*time.Millisecond, conf.ProcessSets.PollInterval)
}

func TestCompleteInitializationFillsGaps(t *testing.T) {
	conf := &TopLevel{}
	conf.completeInitialization()

	require.Equal(t, defaults.Log.Spec, conf.Log.Spec)
	require.Equal(t, defaults.Log.Format, conf.Log.Format)
	require.Equal(t, defaults.ProcessSets.PollInterval, conf.ProcessSets.PollInterval)
}
