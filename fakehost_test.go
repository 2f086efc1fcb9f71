package vtprobe

import (
	"sync"
	"time"
)

// fakeHost is a scripted Host for unit tests. Defaults model a correct
// host: restricted operations reject virtual handles with
// TI_INVALID_THREAD and succeed for carriers. Individual calls can be
// overridden to misbehave.
type fakeHost struct {
	mu sync.Mutex

	granted   Capabilities
	grantMask Capabilities // capabilities the host will actually grant
	addErr    error
	capsErr error
	setErr  error
	handler MountHandler

	self    Thread
	threads []Thread
	names   map[Thread]string
	nameErr map[Thread]error
	virtual map[Thread]bool
	mounted map[Thread]Thread // carrier -> mounted virtual thread

	suspendErr map[Thread]error // scripted one-shot suspend results
	mountQErr  map[Thread]error // scripted mount-query results
	resumeErr  map[Thread]error

	suspends map[Thread]int
	resumes  map[Thread]int

	opErr   map[string]error // per-op override for restricted ops
	opPanic map[string]bool
	opCalls []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		grantMask:  RequiredCapabilities,
		self:       Thread(1),
		threads:    []Thread{1},
		names:      map[Thread]string{1: "main"},
		nameErr:    map[Thread]error{},
		virtual:    map[Thread]bool{},
		mounted:    map[Thread]Thread{},
		suspendErr: map[Thread]error{},
		mountQErr:  map[Thread]error{},
		resumeErr:  map[Thread]error{},
		suspends:   map[Thread]int{},
		resumes:    map[Thread]int{},
		opErr:      map[string]error{},
		opPanic:    map[string]bool{},
	}
}

// addCarrier registers a live carrier, optionally with a mounted virtual
// thread (NoThread for none).
func (f *fakeHost) addCarrier(c Thread, name string, v Thread) {
	f.threads = append(f.threads, c)
	f.names[c] = name
	f.mounted[c] = v
	if v != NoThread {
		f.virtual[v] = true
		f.names[v] = name + "-vt"
	}
}

func (f *fakeHost) AddCapabilities(caps Capabilities) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.granted |= caps & f.grantMask
	return nil
}

func (f *fakeHost) GetCapabilities() (Capabilities, error) {
	if f.capsErr != nil {
		return 0, f.capsErr
	}
	return f.granted, nil
}

func (f *fakeHost) SetMountHandler(fn MountHandler) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.handler = fn
	return nil
}

func (f *fakeHost) CurrentThread() (Thread, error) {
	return f.self, nil
}

func (f *fakeHost) AllThreads() ([]Thread, error) {
	out := make([]Thread, len(f.threads))
	copy(out, f.threads)
	return out, nil
}

func (f *fakeHost) ThreadName(t Thread) (string, error) {
	if err, ok := f.nameErr[t]; ok {
		return "", err
	}
	name, ok := f.names[t]
	if !ok {
		return "", TIError{Code: TI_INVALID_THREAD}
	}
	return name, nil
}

func (f *fakeHost) IsVirtual(t Thread) (bool, error) {
	if _, ok := f.names[t]; !ok {
		return false, TIError{Code: TI_INVALID_THREAD}
	}
	return f.virtual[t], nil
}

func (f *fakeHost) Suspend(t Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.suspendErr[t]; ok {
		return err
	}
	f.suspends[t]++
	return nil
}

func (f *fakeHost) Resume(t Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes[t]++
	if err, ok := f.resumeErr[t]; ok {
		return err
	}
	return nil
}

func (f *fakeHost) MountedVirtual(t Thread) (Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.mountQErr[t]; ok {
		return NoThread, err
	}
	return f.mounted[t], nil
}

// op implements the default restricted-operation behavior.
func (f *fakeHost) op(name string, t Thread) error {
	f.mu.Lock()
	f.opCalls = append(f.opCalls, name)
	panicking := f.opPanic[name]
	err, overridden := f.opErr[name]
	isVirtual := f.virtual[t]
	f.mu.Unlock()

	if panicking {
		panic("fake host crash in " + name)
	}
	if overridden {
		return err
	}
	if isVirtual {
		return TIError{Code: TI_INVALID_THREAD}
	}
	return nil
}

func (f *fakeHost) Stop(t Thread) error                 { return f.op("Stop", t) }
func (f *fakeHost) Interrupt(t Thread) error            { return f.op("Interrupt", t) }
func (f *fakeHost) PopFrame(t Thread) error             { return f.op("PopFrame", t) }
func (f *fakeHost) ForceEarlyReturnVoid(t Thread) error { return f.op("ForceEarlyReturnVoid", t) }

func (f *fakeHost) ThreadCPUTime(t Thread) (time.Duration, error) {
	return 0, f.op("ThreadCPUTime", t)
}

func (f *fakeHost) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.opCalls))
	copy(out, f.opCalls)
	return out
}

// pairings returns suspend and resume counts for t.
func (f *fakeHost) pairings(t Thread) (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suspends[t], f.resumes[t]
}
