package vtprobe

import "time"

// Thread is an opaque host-owned handle naming an execution context.
// A handle can name either a carrier (OS-backed) thread or a virtual
// thread; which kind it is belongs to the host and can only be asked via
// Host.IsVirtual. Handles are valid only while the underlying context
// exists.
type Thread uint64

// NoThread is the zero handle, returned where "no thread" is a valid answer.
const NoThread Thread = 0

// Capabilities is the set of introspection capabilities negotiated with
// the host at attach time.
type Capabilities uint32

const (
	CapSuspend Capabilities = 1 << iota
	CapPopFrame
	CapForceEarlyReturn
	CapSignalThread
	CapVirtualThreads
	CapLocalVariables
	CapThreadCPUTime
)

// RequiredCapabilities is the full set the agent negotiates. A host that
// cannot grant all of them cannot be validated and Attach fails.
const RequiredCapabilities = CapSuspend | CapPopFrame | CapForceEarlyReturn |
	CapSignalThread | CapVirtualThreads | CapLocalVariables | CapThreadCPUTime

// Has reports whether c contains every capability in want.
func (c Capabilities) Has(want Capabilities) bool {
	return c&want == want
}

// String lists the capability names present in c.
func (c Capabilities) String() string {
	names := []struct {
		cap  Capabilities
		name string
	}{
		{CapSuspend, "suspend"},
		{CapPopFrame, "pop-frame"},
		{CapForceEarlyReturn, "force-early-return"},
		{CapSignalThread, "signal-thread"},
		{CapVirtualThreads, "virtual-threads"},
		{CapLocalVariables, "local-variables"},
		{CapThreadCPUTime, "thread-cpu-time"},
	}
	s := ""
	for _, n := range names {
		if c&n.cap == 0 {
			continue
		}
		if s != "" {
			s += ","
		}
		s += n.name
	}
	if s == "" {
		return "none"
	}
	return s
}

// MountHandler is invoked by the host whenever a virtual thread mounts on
// a carrier. The host may deliver it on any OS thread at any time.
type MountHandler func(v Thread)

// Host is the introspection contract the agent is validated against.
// Every method reports failure as a TIError carrying a raw protocol code;
// codes outside the documented set are fatal and non-retriable.
type Host interface {
	// AddCapabilities asks the host to grant caps to this environment.
	AddCapabilities(caps Capabilities) error
	// GetCapabilities returns the currently granted set.
	GetCapabilities() (Capabilities, error)
	// SetMountHandler registers fn for virtual-thread mount notifications
	// and enables their delivery.
	SetMountHandler(fn MountHandler) error

	// CurrentThread returns the handle of the calling OS thread.
	CurrentThread() (Thread, error)
	// AllThreads snapshots all currently live carrier threads.
	AllThreads() ([]Thread, error)
	// ThreadName returns the host-assigned name of t.
	ThreadName(t Thread) (string, error)
	// IsVirtual reports whether t names a virtual thread.
	IsVirtual(t Thread) (bool, error)

	// Suspend pauses carrier t. Requires CapSuspend. THREAD_NOT_ALIVE if
	// t has exited.
	Suspend(t Thread) error
	// Resume continues a suspended carrier.
	Resume(t Thread) error
	// MountedVirtual returns the virtual thread mounted on carrier t, or
	// NoThread. t must be suspended and the suspension must have taken
	// effect; otherwise THREAD_NOT_SUSPENDED. The answer is only valid
	// while t stays suspended.
	MountedVirtual(t Thread) (Thread, error)

	// Restricted operations under test. Each is defined for carrier
	// threads only and must report TI_INVALID_THREAD for a virtual one.
	Stop(t Thread) error
	Interrupt(t Thread) error
	PopFrame(t Thread) error
	ForceEarlyReturnVoid(t Thread) error
	ThreadCPUTime(t Thread) (time.Duration, error)
}
