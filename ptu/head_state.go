package ptu

import "sync/atomic"

// HeadState represents the lifecycle state of a Head.
//
// The only transitions are Uninitialized → Initializing → Ready; a failed
// initialization drops back to Uninitialized. There is no other way back to
// Uninitialized short of constructing a new Head.
type HeadState uint32

const (
	// UninitializedState is the state before Initialize has succeeded.
	// All motion and query operations fail fast with ErrNotInitialized.
	UninitializedState HeadState = iota
	// InitializingState is the state while the init sequence is running.
	InitializingState
	// ReadyState is the state after a fully successful initialization.
	ReadyState
)

func (s HeadState) String() string {
	switch s {
	case UninitializedState:
		return "uninitialized"
	case InitializingState:
		return "initializing"
	case ReadyState:
		return "ready"
	default:
		return "unknown"
	}
}

// atomicHeadState holds a HeadState with CAS-guarded transitions.
type atomicHeadState struct {
	state atomic.Uint32
}

func (st *atomicHeadState) Get() HeadState {
	return HeadState(st.state.Load())
}

func (st *atomicHeadState) IsReady() bool {
	return st.Get() == ReadyState
}

// ToInitializing moves Uninitialized or Ready into Initializing. Ready is a
// legal source so an application may re-run Initialize; the one-shot axis
// reset is not repeated in that case.
func (st *atomicHeadState) ToInitializing() bool {
	if st.state.CompareAndSwap(uint32(UninitializedState), uint32(InitializingState)) {
		return true
	}

	return st.state.CompareAndSwap(uint32(ReadyState), uint32(InitializingState))
}

func (st *atomicHeadState) ToReady() bool {
	return st.state.CompareAndSwap(uint32(InitializingState), uint32(ReadyState))
}

func (st *atomicHeadState) ToUninitialized() {
	st.state.Store(uint32(UninitializedState))
}
