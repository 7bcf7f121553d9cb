// Package async provides safe background execution for fire-and-forget
// tasks: panic recovery, a per-task timeout, and error logging. Use SafeGo
// instead of a bare `go func()` for work whose failure should be observed
// rather than crash the process.
package async
