// Package session holds per-chat conversation state.
//
// # State
//
// A Session's State is one of a closed set of variants:
//
//   - *GateState: choosing a role and logging in, the only unauthenticated variant
//   - *PasswordState: waiting for a new password
//   - *ManagerState, *TeacherState, *StudentState: the role engines
//
// Each variant carries a typed Step and the scratch data that the step
// needs. Valid reports whether the step and its scratch data agree, so an
// engine bug that, say, enters EnterScore without a student list is
// detectable. Engines return Reset to ask for a brand new gate session.
//
// # Store
//
// Store is an in-memory map from chat identity to Session, split into
// FNV-hashed shards each guarded by its own RWMutex. Get and Put copy the
// session, so a caller can mutate what it got without affecting other
// readers until it puts the result back. Sessions live for the process
// lifetime and are not persisted.
package session
