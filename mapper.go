package vtprobe

import (
	"fmt"
	"runtime"
)

// FindMountedVirtual scans the live carriers for one currently hosting a
// virtual thread and returns its handle, or NoThread if no carrier has a
// mount. First match wins; scan order is unspecified. The calling OS
// thread is pinned for the duration so the host's notion of the current
// thread stays stable for self-exclusion.
//
// The returned handle outlives the carrier's suspension, so by the time
// the caller acts on it the virtual thread may have unmounted or moved;
// only its identity, not its mount, is guaranteed.
func (a *Agent) FindMountedVirtual() (Thread, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	self, err := a.host.CurrentThread()
	if err != nil {
		return NoThread, fmt.Errorf("current thread: %w", err)
	}

	threads, err := a.host.AllThreads()
	if err != nil {
		return NoThread, fmt.Errorf("enumerate threads: %w", err)
	}

	for _, t := range threads {
		if t == self {
			// Suspending the scanning thread would deadlock the scan.
			continue
		}
		v, err := a.inspectCarrier(t, nil)
		if err != nil {
			return NoThread, err
		}
		if v != NoThread {
			return v, nil
		}
	}
	return NoThread, nil
}

// inspectCarrier suspends t, queries its mounted virtual thread, runs fn
// (if non-nil) against the mount while t is still suspended, and resumes
// t on every path out. Two races are expected and benign, both yielding
// (NoThread, nil): t exiting before the suspend lands, and the suspension
// not yet being externally visible when the mount is queried. Every other
// host failure is fatal.
func (a *Agent) inspectCarrier(t Thread, fn func(v Thread) error) (v Thread, err error) {
	if serr := a.host.Suspend(t); serr != nil {
		if IsCode(serr, TI_THREAD_NOT_ALIVE) {
			recordSkipNotAlive()
			return NoThread, nil
		}
		return NoThread, fmt.Errorf("suspend carrier %d: %w", t, serr)
	}
	recordSuspend()

	// Resume is unconditional once the suspend succeeded. A leaked
	// suspension can hang the whole host.
	defer func() {
		recordResume()
		if rerr := a.host.Resume(t); rerr != nil && err == nil {
			v = NoThread
			err = fmt.Errorf("resume carrier %d: %w", t, rerr)
		}
	}()

	mounted, qerr := a.host.MountedVirtual(t)
	if qerr != nil {
		if IsCode(qerr, TI_THREAD_NOT_SUSPENDED) {
			// The suspend has not fully taken effect for this carrier
			// yet. Skip it; the deferred resume still runs.
			recordSkipNotSuspended()
			return NoThread, nil
		}
		return NoThread, fmt.Errorf("query mounted virtual thread on carrier %d: %w", t, qerr)
	}

	if mounted != NoThread && fn != nil {
		if ferr := fn(mounted); ferr != nil {
			return NoThread, ferr
		}
	}
	return mounted, nil
}
