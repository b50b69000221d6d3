/*
Copyright The Horovod Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package lifecycle_test

import (
	"os"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/tedsuo/ifrit"

	"github.com/maxhgerlach/horovod/common/comm/inproc"
	"github.com/maxhgerlach/horovod/common/lifecycle"
	"github.com/maxhgerlach/horovod/common/localconfig"
	"github.com/maxhgerlach/horovod/common/metrics/disabled"
	"github.com/maxhgerlach/horovod/common/processset"
)

func TestPollerDrivesBringUpAndRemoval(t *testing.T) {
	g := NewWithT(t)

	cluster := inproc.NewCluster(1)
	w := cluster.Worker(0)
	table := processset.NewTable(w, &disabled.Provider{})

	conf := &localconfig.TopLevel{}
	conf.ProcessSets.Dynamic = true
	conf.ProcessSets.PollInterval = 5 * time.Millisecond

	poller := lifecycle.New(table, w.Transport(), conf)
	process := ifrit.Invoke(poller)
	defer func() {
		process.Signal(os.Interrupt)
		g.Eventually(process.Wait()).Should(Receive(BeNil()))
	}()

	id, err := table.Register([]int{0})
	g.Expect(err).NotTo(HaveOccurred())

	g.Eventually(func() bool {
		ps, err := table.Get(id)
		if err != nil {
			return false
		}
		return ps.Initialized()
	}).Should(BeTrue())

	g.Expect(table.MarkForRemoval(id)).To(Succeed())
	g.Eventually(func() bool {
		return table.Contains(id)
	}).Should(BeFalse())

	// The poller consumes the one-shot completion report itself.
	g.Expect(table.ConsumeJustRemoved()).To(BeFalse())
}

func TestPollerIdlesWithoutDynamicProcessSets(t *testing.T) {
	g := NewWithT(t)

	cluster := inproc.NewCluster(1)
	w := cluster.Worker(0)
	table := processset.NewTable(w, &disabled.Provider{})

	poller := lifecycle.New(table, w.Transport(), &localconfig.TopLevel{})
	process := ifrit.Invoke(poller)

	id, err := table.Register([]int{0})
	g.Expect(err).NotTo(HaveOccurred())

	g.Consistently(func() bool {
		ps, err := table.Get(id)
		if err != nil {
			return false
		}
		return ps.Initialized()
	}).Should(BeFalse())

	process.Signal(os.Interrupt)
	g.Eventually(process.Wait()).Should(Receive(BeNil()))
}
