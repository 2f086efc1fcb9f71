package simvm

import (
	"fmt"
	"time"

	"github.com/blacktop/go-vtprobe"
)

// VM implements vtprobe.Host.
var _ vtprobe.Host = (*VM)(nil)

// lookup resolves a handle. Caller holds vm.mu.
func (vm *VM) lookup(t vtprobe.Thread) (*thread, error) {
	th, ok := vm.threads[t]
	if !ok {
		return nil, vtprobe.TIError{Code: vtprobe.TI_INVALID_THREAD}
	}
	return th, nil
}

// requireCap enforces capability negotiation. Caller holds vm.mu.
func (vm *VM) requireCap(c vtprobe.Capabilities) error {
	if !vm.granted.Has(c) {
		return vtprobe.TIError{Code: vtprobe.TI_MUST_POSSESS_CAPABILITY}
	}
	return nil
}

// AddCapabilities grants caps, or refuses the whole request if any bit is
// outside the host's supported set.
func (vm *VM) AddCapabilities(caps vtprobe.Capabilities) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if unsupported := caps &^ vm.supported; unsupported != 0 {
		return vtprobe.Errf(vtprobe.TI_NOT_AVAILABLE,
			"ti: host cannot grant [%s]", unsupported)
	}
	vm.granted |= caps
	return nil
}

// GetCapabilities returns the granted set.
func (vm *VM) GetCapabilities() (vtprobe.Capabilities, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.granted, nil
}

// SetMountHandler registers the virtual-thread mount callback.
func (vm *VM) SetMountHandler(fn vtprobe.MountHandler) error {
	if fn == nil {
		return vtprobe.ErrNilMountHandler
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return vtprobe.TIError{Code: vtprobe.TI_INVALID_ENVIRONMENT}
	}
	vm.handler = fn
	return nil
}

// CurrentThread returns the handle of the calling OS thread, registering
// it as an attached external thread if the VM has never seen it.
func (vm *VM) CurrentThread() (vtprobe.Thread, error) {
	tid := gettid()

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return vtprobe.NoThread, vtprobe.TIError{Code: vtprobe.TI_INVALID_ENVIRONMENT}
	}
	if tid >= 0 {
		for _, th := range vm.threads {
			if !th.virtual && th.alive && th.tid == tid {
				return th.id, nil
			}
		}
	}
	ext := vm.newThread(fmt.Sprintf("attached-%d", tid), false)
	ext.alive = true
	ext.external = true
	ext.tid = tid
	return ext.id, nil
}

// AllThreads snapshots the live carrier and attached threads. Virtual
// threads are never enumerated here.
func (vm *VM) AllThreads() ([]vtprobe.Thread, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	var out []vtprobe.Thread
	for _, th := range vm.threads {
		if !th.virtual && th.alive {
			out = append(out, th.id)
		}
	}
	return out, nil
}

// ThreadName returns the host-assigned name of t.
func (vm *VM) ThreadName(t vtprobe.Thread) (string, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	th, err := vm.lookup(t)
	if err != nil {
		return "", err
	}
	return th.name, nil
}

// IsVirtual reports whether t names a virtual thread.
func (vm *VM) IsVirtual(t vtprobe.Thread) (bool, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	th, err := vm.lookup(t)
	if err != nil {
		return false, err
	}
	return th.virtual, nil
}

// Suspend requests suspension of carrier t. It returns before the
// suspension takes effect; the carrier parks at its next safepoint.
func (vm *VM) Suspend(t vtprobe.Thread) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err := vm.requireCap(vtprobe.CapSuspend); err != nil {
		return err
	}
	th, err := vm.lookup(t)
	if err != nil {
		return err
	}
	if th.virtual {
		return vtprobe.TIError{Code: vtprobe.TI_INVALID_THREAD}
	}
	if !th.alive {
		return vtprobe.TIError{Code: vtprobe.TI_THREAD_NOT_ALIVE}
	}
	if th.suspendReq {
		return vtprobe.TIError{Code: vtprobe.TI_THREAD_SUSPENDED}
	}
	th.suspendReq = true
	vm.cond.Broadcast()
	return nil
}

// Resume lifts a pending suspension of carrier t.
func (vm *VM) Resume(t vtprobe.Thread) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err := vm.requireCap(vtprobe.CapSuspend); err != nil {
		return err
	}
	th, err := vm.lookup(t)
	if err != nil {
		return err
	}
	if th.virtual {
		return vtprobe.TIError{Code: vtprobe.TI_INVALID_THREAD}
	}
	if !th.suspendReq {
		return vtprobe.TIError{Code: vtprobe.TI_THREAD_NOT_SUSPENDED}
	}
	th.suspendReq = false
	vm.cond.Broadcast()
	return nil
}

// MountedVirtual returns the virtual thread mounted on carrier t. The
// suspension must have fully taken effect: a requested-but-not-yet-parked
// carrier reports TI_THREAD_NOT_SUSPENDED, the transient callers are
// expected to tolerate.
func (vm *VM) MountedVirtual(t vtprobe.Thread) (vtprobe.Thread, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	th, err := vm.lookup(t)
	if err != nil {
		return vtprobe.NoThread, err
	}
	if th.virtual {
		return vtprobe.NoThread, vtprobe.TIError{Code: vtprobe.TI_INVALID_THREAD}
	}
	if !th.alive {
		return vtprobe.NoThread, vtprobe.TIError{Code: vtprobe.TI_THREAD_NOT_ALIVE}
	}
	if !th.suspendReq || !th.parked {
		return vtprobe.NoThread, vtprobe.TIError{Code: vtprobe.TI_THREAD_NOT_SUSPENDED}
	}
	return th.mounted, nil
}

// carrierTarget resolves t for a restricted operation: virtual handles are
// rejected with TI_INVALID_THREAD, dead carriers with TI_THREAD_NOT_ALIVE.
// Caller holds vm.mu.
func (vm *VM) carrierTarget(t vtprobe.Thread) (*thread, error) {
	th, err := vm.lookup(t)
	if err != nil {
		return nil, err
	}
	if th.virtual {
		return nil, vtprobe.TIError{Code: vtprobe.TI_INVALID_THREAD}
	}
	if !th.alive {
		return nil, vtprobe.TIError{Code: vtprobe.TI_THREAD_NOT_ALIVE}
	}
	return th, nil
}

// Stop asks carrier t to terminate at its next safepoint.
func (vm *VM) Stop(t vtprobe.Thread) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err := vm.requireCap(vtprobe.CapSignalThread); err != nil {
		return err
	}
	th, err := vm.carrierTarget(t)
	if err != nil {
		return err
	}
	th.stopReq = true
	vm.cond.Broadcast()
	return nil
}

// Interrupt posts an interrupt to carrier t.
func (vm *VM) Interrupt(t vtprobe.Thread) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err := vm.requireCap(vtprobe.CapSignalThread); err != nil {
		return err
	}
	th, err := vm.carrierTarget(t)
	if err != nil {
		return err
	}
	th.interrupted = true
	return nil
}

// PopFrame discards the topmost frame of a suspended carrier. The
// simulation keeps no interpretable frames, so a valid target still
// reports TI_OPAQUE_FRAME.
func (vm *VM) PopFrame(t vtprobe.Thread) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err := vm.requireCap(vtprobe.CapPopFrame); err != nil {
		return err
	}
	th, err := vm.carrierTarget(t)
	if err != nil {
		return err
	}
	if !th.suspendReq || !th.parked {
		return vtprobe.TIError{Code: vtprobe.TI_THREAD_NOT_SUSPENDED}
	}
	return vtprobe.TIError{Code: vtprobe.TI_OPAQUE_FRAME}
}

// ForceEarlyReturnVoid forces the topmost frame of a suspended carrier to
// return. Same frame caveat as PopFrame.
func (vm *VM) ForceEarlyReturnVoid(t vtprobe.Thread) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err := vm.requireCap(vtprobe.CapForceEarlyReturn); err != nil {
		return err
	}
	th, err := vm.carrierTarget(t)
	if err != nil {
		return err
	}
	if !th.suspendReq || !th.parked {
		return vtprobe.TIError{Code: vtprobe.TI_THREAD_NOT_SUSPENDED}
	}
	return vtprobe.TIError{Code: vtprobe.TI_OPAQUE_FRAME}
}

// ThreadCPUTime returns the execution time carrier t has spent running
// virtual-thread slices.
func (vm *VM) ThreadCPUTime(t vtprobe.Thread) (time.Duration, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err := vm.requireCap(vtprobe.CapThreadCPUTime); err != nil {
		return 0, err
	}
	th, err := vm.carrierTarget(t)
	if err != nil {
		return 0, err
	}
	return th.cpu, nil
}
