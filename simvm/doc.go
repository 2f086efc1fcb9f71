// Package simvm is an in-memory host implementing vtprobe.Host.
//
// Carriers are goroutines locked to OS threads; virtual threads are task
// goroutines that mount onto carriers for execution slices. Suspension is
// a request that takes effect when the mounted task reaches a checkpoint,
// which reproduces the transient window where a suspend has been issued
// but is not yet externally visible.
//
// The restricted thread-control operations follow the carrier-only
// contract: applied to a virtual-thread handle they return
// TI_INVALID_THREAD, never succeed.
package simvm
