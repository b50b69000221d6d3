/*
Copyright The Horovod Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package lifecycle drives the process set table's polled protocols from a
// background control loop.
package lifecycle

import (
	"os"
	"time"

	"github.com/hyperledger/fabric-lib-go/common/flogging"
	"github.com/pkg/errors"

	"github.com/maxhgerlach/horovod/common/comm"
	"github.com/maxhgerlach/horovod/common/localconfig"
	"github.com/maxhgerlach/horovod/common/processset"
)

var logger = flogging.MustGetLogger("common.lifecycle")

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 200 * time.Millisecond

// Poller repeatedly invokes the table's bring-up and removal protocols until
// signalled to stop. It implements the ifrit.Runner interface. Every worker
// of the job must run a poller against its own table; a protocol round only
// converges when all of them have reached it.
type Poller struct {
	Table     *processset.Table
	Transport comm.Transport
	Interval  time.Duration
	Dynamic   bool
}

// New builds a poller configured from conf.
func New(table *processset.Table, transport comm.Transport, conf *localconfig.TopLevel) *Poller {
	return &Poller{
		Table:     table,
		Transport: transport,
		Interval:  conf.ProcessSets.PollInterval,
		Dynamic:   conf.ProcessSets.Dynamic,
	}
}

// Run polls the table until a signal arrives. A round that has not converged
// is a no-op and is retried on the next tick; there is no deadline or retry
// bound. With dynamic process sets disabled the poller just waits for the
// stop signal, since the table's contents are fixed after bring-up.
func (p *Poller) Run(sigCh <-chan os.Signal, ready chan<- struct{}) error {
	if p.Interval == 0 {
		p.Interval = DefaultPollInterval
	}
	close(ready)

	if !p.Dynamic {
		<-sigCh
		return nil
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-sigCh:
			return nil
		case <-ticker.C:
			if err := p.Table.InitializeIfReady(p.Transport); err != nil {
				return errors.WithMessage(err, "process set bring-up failed")
			}
			if err := p.Table.RemoveIfReady(); err != nil {
				return errors.WithMessage(err, "process set removal failed")
			}
			if p.Table.ConsumeJustRemoved() {
				logger.Infof("completed a coordinated process set removal")
			}
		}
	}
}
