// Package bridge forwards source code to an isolated execution context and
// correlates the asynchronous replies.
//
// A Bridge owns at most one execution context at a time. It is launched on the
// first Submit, reused by every later call, and relaunched after it dies.
// Each Submit gets a fresh request token; the reply carrying that token
// resolves the call exactly once. Replies for unknown or already-resolved
// tokens are dropped.
//
// Submit never fails. Execution faults, transport faults, timeouts, and
// cancellation all come back as an Output whose Stderr describes what went
// wrong.
package bridge
