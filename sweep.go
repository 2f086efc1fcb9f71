package vtprobe

import (
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// RunSweep inspects every live carrier except the calling thread and
// validates every virtual thread found mounted, each while its carrier is
// still suspended. Unlike FindMountedVirtual it does not stop at the
// first match. A nil return means every inspected pair passed; the first
// invariant violation aborts the sweep with an error naming the failing
// operation.
func (a *Agent) RunSweep() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	start := time.Now()
	defer func() {
		recordSweep(time.Since(start))
	}()

	a.log.Info("sweep started")

	self, err := a.host.CurrentThread()
	if err != nil {
		return fmt.Errorf("current thread: %w", err)
	}

	threads, err := a.host.AllThreads()
	if err != nil {
		return fmt.Errorf("enumerate threads: %w", err)
	}

	for _, t := range threads {
		if t == self {
			continue
		}
		name, err := a.host.ThreadName(t)
		if err != nil {
			if IsCode(err, TI_THREAD_NOT_ALIVE) {
				// Exited between the snapshot and now; the suspend
				// would have skipped it anyway.
				recordSkipNotAlive()
				continue
			}
			return fmt.Errorf("thread name of carrier %d: %w", t, err)
		}

		recordCarrierInspected()
		_, err = a.inspectCarrier(t, func(v Thread) error {
			a.log.Info("found carrier with mounted virtual thread",
				zap.String("carrier", name), zap.Uint64("vthread", uint64(v)))
			return a.Validate(v)
		})
		if err != nil {
			return err
		}
	}

	a.log.Info("sweep finished")
	return nil
}
