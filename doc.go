// Package vtprobe validates that a host's thread-control operations
// reject virtual-thread handles with the documented TI_INVALID_THREAD
// protocol code while still accepting carrier (OS-backed) threads.
//
// The agent attaches to a Host, negotiates the introspection capabilities
// it needs, and then exercises a fixed list of restricted operations
// (Stop, Interrupt, PopFrame, ForceEarlyReturnVoid, ThreadCPUTime)
// against virtual threads found mounted on carriers.
//
// # Basic Usage
//
// Attach to a host and register for mount notifications:
//
//	agent, err := vtprobe.Attach(host, vtprobe.WithLogger(logger))
//	if err != nil {
//		log.Fatal("attach failed:", err)
//	}
//
// Run the synchronous sweep over every live carrier:
//
//	if err := agent.RunSweep(); err != nil {
//		log.Fatal("host violated the thread-control contract:", err)
//	}
//
// Or locate a single mounted virtual thread and validate it directly:
//
//	v, err := agent.FindMountedVirtual()
//	if err != nil {
//		log.Fatal(err)
//	}
//	if v != vtprobe.NoThread {
//		if err := agent.Validate(v); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The asynchronous path needs no calls at all: once attached, the agent
// validates every virtual thread the host reports as mounted and records
// completion, readable via agent.Completed().
//
// Carrier suspension is paired 1:1 with resumption on every control path.
// A carrier that exits before its suspend lands, or whose suspension has
// not yet taken effect when its mount is queried, is skipped as a benign
// race; every other host failure is surfaced as fatal.
package vtprobe
