package vtprobe

import (
	"fmt"

	"go.uber.org/zap"
)

// Outcome classifies the result of one restricted operation applied to a
// virtual-thread handle.
type Outcome int

const (
	// OutcomeAccepted means the operation succeeded. For a virtual
	// thread this is an invariant violation.
	OutcomeAccepted Outcome = iota
	// OutcomeRejectedExpected means the operation failed with
	// TI_INVALID_THREAD, the single documented rejection.
	OutcomeRejectedExpected
	// OutcomeRejectedUnexpected means the operation failed with any
	// other code.
	OutcomeRejectedUnexpected
	// OutcomeCrashed means the operation panicked.
	OutcomeCrashed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejectedExpected:
		return "rejected-expected"
	case OutcomeRejectedUnexpected:
		return "rejected-unexpected"
	case OutcomeCrashed:
		return "crashed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type restrictedOp struct {
	name string
	call func(h Host, t Thread) error
}

// restrictedOps is the fixed list of thread-control operations defined
// only for carrier threads. Each must reject a virtual-thread argument
// with TI_INVALID_THREAD.
var restrictedOps = []restrictedOp{
	{"Stop", func(h Host, t Thread) error { return h.Stop(t) }},
	{"Interrupt", func(h Host, t Thread) error { return h.Interrupt(t) }},
	{"PopFrame", func(h Host, t Thread) error { return h.PopFrame(t) }},
	{"ForceEarlyReturnVoid", func(h Host, t Thread) error { return h.ForceEarlyReturnVoid(t) }},
	{"ThreadCPUTime", func(h Host, t Thread) error {
		_, err := h.ThreadCPUTime(t)
		return err
	}},
}

// probe invokes one restricted operation and classifies the result. A
// panic in the host is contained and classified rather than propagated.
func probe(h Host, op restrictedOp, v Thread) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeCrashed
			err = fmt.Errorf("panic in %s: %v", op.name, r)
		}
	}()
	err = op.call(h, v)
	return classify(err), err
}

// classify maps an operation result to an Outcome.
func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAccepted
	case IsCode(err, TI_INVALID_THREAD):
		return OutcomeRejectedExpected
	default:
		return OutcomeRejectedUnexpected
	}
}

// Validate drives every restricted operation against v and checks that
// each is rejected with TI_INVALID_THREAD. It fails fast: once one
// operation misbehaves the host's answers for the rest are not
// trustworthy, so the first bad outcome aborts with an error naming the
// operation. The preconditions (v is a virtual thread, virtual-thread
// capability granted) are re-checked here and treated as fatal
// configuration errors, never silently skipped.
func (a *Agent) Validate(v Thread) error {
	isVirtual, err := a.host.IsVirtual(v)
	if err != nil {
		return fmt.Errorf("confirm virtual thread %d: %w", v, err)
	}
	if !isVirtual {
		return ErrNotVirtual
	}

	caps, err := a.host.GetCapabilities()
	if err != nil {
		return fmt.Errorf("get capabilities: %w", err)
	}
	if !caps.Has(CapVirtualThreads) {
		return ErrNoVirtualKind
	}

	for _, op := range restrictedOps {
		outcome, operr := probe(a.host, op, v)
		if outcome != OutcomeRejectedExpected {
			recordProbeFailure()
			if operr == nil {
				return fmt.Errorf("restricted op %s on virtual thread %d: %s, want rejection with TI_INVALID_THREAD",
					op.name, v, outcome)
			}
			return fmt.Errorf("restricted op %s on virtual thread %d: %s: %w",
				op.name, v, outcome, operr)
		}
		a.log.Debug("restricted op rejected as expected",
			zap.String("op", op.name), zap.Uint64("vthread", uint64(v)))
	}

	recordValidation()
	return nil
}
