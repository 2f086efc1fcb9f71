package vtprobe

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

var opNames = []string{"Stop", "Interrupt", "PopFrame", "ForceEarlyReturnVoid", "ThreadCPUTime"}

func newTestAgent(t *testing.T, f *fakeHost) *Agent {
	t.Helper()
	a, err := Attach(f)
	if err != nil {
		t.Fatalf("Attach() returned error: %v", err)
	}
	return a
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"success", nil, OutcomeAccepted},
		{"documented rejection", TIError{Code: TI_INVALID_THREAD}, OutcomeRejectedExpected},
		{"other protocol code", TIError{Code: TI_THREAD_NOT_ALIVE}, OutcomeRejectedUnexpected},
		{"non-protocol error", errors.New("boom"), OutcomeRejectedUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeAccepted, "accepted"},
		{OutcomeRejectedExpected, "rejected-expected"},
		{OutcomeRejectedUnexpected, "rejected-unexpected"},
		{OutcomeCrashed, "crashed"},
		{Outcome(42), "outcome(42)"},
	}

	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(tt.outcome), got, tt.want)
		}
	}
}

func TestValidatePass(t *testing.T) {
	f := newFakeHost()
	v := Thread(10)
	f.addCarrier(2, "worker", v)
	a := newTestAgent(t, f)

	if err := a.Validate(v); err != nil {
		t.Fatalf("Validate(%d) returned error: %v", v, err)
	}
	if got := f.calls(); !reflect.DeepEqual(got, opNames) {
		t.Errorf("operation order = %v, want %v", got, opNames)
	}
}

func TestValidateIdempotent(t *testing.T) {
	f := newFakeHost()
	v := Thread(10)
	f.addCarrier(2, "worker", v)
	a := newTestAgent(t, f)

	for i := 0; i < 2; i++ {
		if err := a.Validate(v); err != nil {
			t.Fatalf("Validate pass %d returned error: %v", i, err)
		}
	}
	if got := len(f.calls()); got != 2*len(opNames) {
		t.Errorf("total operation calls = %d, want %d", got, 2*len(opNames))
	}
}

func TestValidateFailFastOnAccept(t *testing.T) {
	f := newFakeHost()
	v := Thread(10)
	f.addCarrier(2, "worker", v)
	f.opErr["Stop"] = nil // operation succeeds against a virtual thread
	a := newTestAgent(t, f)

	err := a.Validate(v)
	if err == nil {
		t.Fatal("Validate() = nil, want error for accepted operation")
	}
	if !strings.Contains(err.Error(), "Stop") {
		t.Errorf("error %q does not name the failing operation", err)
	}
	if !strings.Contains(err.Error(), "accepted") {
		t.Errorf("error %q does not carry the outcome", err)
	}
	if got := f.calls(); len(got) != 1 {
		t.Errorf("operations invoked after failure: %v", got[1:])
	}
}

func TestValidateWrongRejectionCode(t *testing.T) {
	f := newFakeHost()
	v := Thread(10)
	f.addCarrier(2, "worker", v)
	f.opErr["Interrupt"] = TIError{Code: TI_THREAD_NOT_ALIVE}
	a := newTestAgent(t, f)

	err := a.Validate(v)
	if err == nil {
		t.Fatal("Validate() = nil, want error for wrong rejection code")
	}
	if !strings.Contains(err.Error(), "Interrupt") {
		t.Errorf("error %q does not name the failing operation", err)
	}
	if !IsCode(err, TI_THREAD_NOT_ALIVE) {
		t.Errorf("error %q does not wrap the unexpected code", err)
	}
	if got := f.calls(); !reflect.DeepEqual(got, []string{"Stop", "Interrupt"}) {
		t.Errorf("operation calls = %v, want fail-fast after Interrupt", got)
	}
}

func TestValidateCrashContained(t *testing.T) {
	f := newFakeHost()
	v := Thread(10)
	f.addCarrier(2, "worker", v)
	f.opPanic["PopFrame"] = true
	a := newTestAgent(t, f)

	err := a.Validate(v)
	if err == nil {
		t.Fatal("Validate() = nil, want error for crashing operation")
	}
	if !strings.Contains(err.Error(), "PopFrame") {
		t.Errorf("error %q does not name the crashing operation", err)
	}
	if !strings.Contains(err.Error(), "crashed") {
		t.Errorf("error %q does not classify the crash", err)
	}
}

func TestValidateRejectsNonVirtualHandle(t *testing.T) {
	f := newFakeHost()
	f.addCarrier(2, "worker", NoThread)
	a := newTestAgent(t, f)

	err := a.Validate(Thread(2))
	if !errors.Is(err, ErrNotVirtual) {
		t.Fatalf("Validate(carrier) = %v, want ErrNotVirtual", err)
	}
	if len(f.calls()) != 0 {
		t.Error("restricted operations ran against a non-virtual handle")
	}
}

func TestValidateRequiresVirtualThreadCapability(t *testing.T) {
	f := newFakeHost()
	v := Thread(10)
	f.addCarrier(2, "worker", v)
	a := newTestAgent(t, f)

	// Capability lost after attach, e.g. a relinquishing host.
	f.granted &^= CapVirtualThreads

	err := a.Validate(v)
	if !errors.Is(err, ErrNoVirtualKind) {
		t.Fatalf("Validate() = %v, want ErrNoVirtualKind", err)
	}
	if len(f.calls()) != 0 {
		t.Error("restricted operations ran without the virtual-thread capability")
	}
}
