package simvm

import (
	"fmt"
	"sync"
	"time"

	"github.com/blacktop/go-vtprobe"
)

// VM is a simulated host. It owns a pool of carrier threads and a run
// queue of virtual threads multiplexed over them. All state is guarded by
// a single mutex with one condition variable; carriers and tasks loop on
// predicate re-checks.
type VM struct {
	mu   sync.Mutex
	cond *sync.Cond
	done chan struct{}

	threads map[vtprobe.Thread]*thread
	runq    []*thread
	nextID  uint64

	supported vtprobe.Capabilities
	granted   vtprobe.Capabilities
	handler   vtprobe.MountHandler

	wg     sync.WaitGroup
	closed bool
}

// thread is the host-side record behind a handle. Carrier fields and
// virtual fields are disjoint; both are guarded by VM.mu.
type thread struct {
	id      vtprobe.Thread
	name    string
	virtual bool
	alive   bool

	// carrier state
	tid         int
	external    bool // attached caller, not scheduled by the VM
	suspendReq  bool // suspend requested
	parked      bool // suspend has taken effect at a safepoint
	stopReq     bool
	interrupted bool
	mounted     vtprobe.Thread
	cpu         time.Duration

	// virtual state
	carrier vtprobe.Thread
	resume  chan struct{}
	yield   chan bool // true = body finished, false = yielded
}

// Option configures a VM at creation time.
type Option func(*config)

type config struct {
	carriers  int
	supported vtprobe.Capabilities
}

func defaultVMConfig() config {
	return config{
		carriers:  2,
		supported: vtprobe.RequiredCapabilities,
	}
}

// WithCarriers sets the number of carrier threads started at creation.
func WithCarriers(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.carriers = n
		}
	}
}

// WithSupportedCapabilities restricts the capability set the host is
// willing to grant. Useful for exercising attach failures.
func WithSupportedCapabilities(caps vtprobe.Capabilities) Option {
	return func(c *config) {
		c.supported = caps
	}
}

// New creates a VM and starts its carrier pool.
func New(opts ...Option) *VM {
	cfg := defaultVMConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	vm := &VM{
		done:      make(chan struct{}),
		threads:   make(map[vtprobe.Thread]*thread),
		supported: cfg.supported,
	}
	vm.cond = sync.NewCond(&vm.mu)

	for i := 0; i < cfg.carriers; i++ {
		vm.StartCarrier(fmt.Sprintf("carrier-%d", i))
	}
	return vm
}

// StartCarrier adds one carrier thread to the pool and returns its
// handle, or NoThread if the VM is closed.
func (vm *VM) StartCarrier(name string) vtprobe.Thread {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return vtprobe.NoThread
	}
	c := vm.newThread(name, false)
	c.alive = true
	c.tid = -1 // filled in by the carrier goroutine
	vm.wg.Add(1)
	vm.mu.Unlock()

	go vm.carrierRun(c)
	return c.id
}

// Spawn creates a virtual thread running body and schedules it. The body
// starts once a carrier mounts it.
func (vm *VM) Spawn(name string, body func(*Task)) vtprobe.Thread {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return vtprobe.NoThread
	}
	vt := vm.newThread(name, true)
	vt.alive = true
	vt.resume = make(chan struct{})
	vt.yield = make(chan bool)
	vm.runq = append(vm.runq, vt)
	vm.wg.Add(1)
	vm.cond.Broadcast()
	vm.mu.Unlock()

	go vm.taskRun(vt, body)
	return vt.id
}

// newThread allocates a thread record. Caller holds vm.mu.
func (vm *VM) newThread(name string, virtual bool) *thread {
	vm.nextID++
	t := &thread{
		id:      vtprobe.Thread(vm.nextID),
		name:    name,
		virtual: virtual,
		carrier: vtprobe.NoThread,
		mounted: vtprobe.NoThread,
	}
	vm.threads[t.id] = t
	return t
}

// Close shuts the VM down and waits for every carrier and task goroutine
// to exit. Bodies still running are expected to reach a Checkpoint or
// Yield promptly.
func (vm *VM) Close() {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return
	}
	vm.closed = true
	close(vm.done)
	vm.cond.Broadcast()
	vm.mu.Unlock()

	vm.wg.Wait()
}

// Alive reports whether t currently names a live thread.
func (vm *VM) Alive(t vtprobe.Thread) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	th, ok := vm.threads[t]
	return ok && th.alive
}

// Interrupted reports whether carrier t has a pending interrupt.
func (vm *VM) Interrupted(t vtprobe.Thread) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	th, ok := vm.threads[t]
	return ok && th.interrupted
}

// CarrierOf returns the carrier a virtual thread is currently mounted on,
// or NoThread. Unlike the host protocol this needs no suspension; it is a
// test-visibility helper and the answer can be stale immediately.
func (vm *VM) CarrierOf(v vtprobe.Thread) vtprobe.Thread {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	th, ok := vm.threads[v]
	if !ok || !th.virtual {
		return vtprobe.NoThread
	}
	return th.carrier
}
