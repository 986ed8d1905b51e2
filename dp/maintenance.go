package dp

import (
	"context"
	"time"
)

// timeoutSweepInterval is the period of the idle/hard timeout sweep
// (spec.md §4.8), replacing the kernel's periodic kthread with a plain
// goroutine driven by a context for cancellation.
const timeoutSweepInterval = time.Second

// maintenanceTask owns the background goroutine that periodically sweeps
// a Datapath's flow chain for expired entries (spec.md §4.8).
type maintenanceTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// startMaintenance launches d's timeout-sweep loop. The returned task's
// stop method must be called exactly once, when the datapath is
// destroyed (spec.md §3).
func startMaintenance(d *Datapath) *maintenanceTask {
	ctx, cancel := context.WithCancel(context.Background())
	m := &maintenanceTask{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(timeoutSweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				d.sweepTimeouts(now.Unix())
			}
		}
	}()

	return m
}

// stop cancels the sweep loop and waits for it to exit.
func (m *maintenanceTask) stop() {
	m.cancel()
	<-m.done
}

// sweepTimeouts runs one timeout-sweep pass (spec.md §4.8): every flow the
// Chain evicts is reported as a RemovedFlow, and if it asked for
// notification a FLOW_REMOVED is sent to the datapath's controllers.
func (d *Datapath) sweepTimeouts(now int64) {
	d.chain.TimeoutSweep(now, func(rf RemovedFlow) {
		d.SendFlowRemoved(rf)
	})
}
