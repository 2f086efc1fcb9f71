package simvm

import (
	"runtime"
	"time"

	"github.com/blacktop/go-vtprobe"
)

// Task is the execution context handed to a virtual thread body.
type Task struct {
	vm       *VM
	self     *thread
	detached bool // Yield observed shutdown; no carrier is waiting
}

// Handle returns the virtual thread's own handle.
func (t *Task) Handle() vtprobe.Thread {
	return t.self.id
}

// Checkpoint is a safepoint. If the hosting carrier has a pending suspend
// request the task parks here, keeping the mount observable, until the
// carrier is resumed. Returns immediately when unmounted or shutting down.
func (t *Task) Checkpoint() {
	vm := t.vm
	vm.mu.Lock()
	c := vm.threads[t.self.carrier]
	if c == nil {
		vm.mu.Unlock()
		return
	}
	for c.suspendReq && !vm.closed && !c.stopReq {
		c.parked = true
		vm.cond.Wait()
	}
	c.parked = false
	vm.mu.Unlock()
}

// Yield unmounts the virtual thread and puts it back on the run queue.
// It returns once a carrier mounts it again, or false when the VM is
// shutting down and the body should return.
func (t *Task) Yield() bool {
	t.self.yield <- false
	select {
	case <-t.self.resume:
		return true
	case <-t.vm.done:
		t.detached = true
		return false
	}
}

// taskRun drives one virtual thread body through the mount protocol.
func (vm *VM) taskRun(vt *thread, body func(*Task)) {
	defer vm.wg.Done()
	defer func() {
		vm.mu.Lock()
		vt.alive = false
		vt.carrier = vtprobe.NoThread
		vm.cond.Broadcast()
		vm.mu.Unlock()
	}()

	// Wait for the first mount.
	select {
	case <-vt.resume:
	case <-vm.done:
		return
	}

	t := &Task{vm: vm, self: vt}
	body(t)
	if t.detached {
		return
	}
	vt.yield <- true
}

// carrierRun is one carrier thread: an OS-locked goroutine that mounts
// queued virtual threads and executes their slices. It parks while a
// suspend request is pending and exits on stop or VM shutdown.
func (vm *VM) carrierRun(c *thread) {
	defer vm.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	vm.mu.Lock()
	c.tid = gettid()
	for {
		if vm.closed || c.stopReq {
			break
		}
		if c.suspendReq {
			c.parked = true
			vm.cond.Wait()
			c.parked = false
			continue
		}
		if len(vm.runq) == 0 {
			vm.cond.Wait()
			continue
		}

		vt := vm.runq[0]
		vm.runq = vm.runq[1:]
		if !vt.alive {
			continue
		}
		c.mounted = vt.id
		vt.carrier = c.id
		handler := vm.handler
		vm.mu.Unlock()

		// Mount notification is delivered on the carrier's own OS
		// thread, before the slice runs, with no VM lock held.
		if handler != nil {
			handler(vt.id)
		}

		start := time.Now()
		var finished, aborted bool
		select {
		case vt.resume <- struct{}{}:
			finished = <-vt.yield
		case <-vm.done:
			aborted = true
		}
		elapsed := time.Since(start)

		vm.mu.Lock()
		c.cpu += elapsed
		c.mounted = vtprobe.NoThread
		vt.carrier = vtprobe.NoThread
		if !aborted && !finished {
			vm.runq = append(vm.runq, vt)
		}
		vm.cond.Broadcast()
	}
	c.alive = false
	c.suspendReq = false
	c.parked = false
	vm.cond.Broadcast()
	vm.mu.Unlock()
}
