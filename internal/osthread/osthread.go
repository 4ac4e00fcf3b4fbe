// Package osthread identifies the operating-system thread running the caller.
// Callers that rely on the identity must pin their goroutine with
// runtime.LockOSThread.
package osthread

// Unknown is returned where the platform offers no thread id. Affinity checks
// are skipped for it.
const Unknown = 0

// ID returns the calling OS thread's id, or Unknown.
func ID() int { return id() }
