// Package process supervises the worker subprocess.
//
// The Supervisor owns the worker handle exclusively: the process id, its
// stdin writer, stdout reader, and stderr reader. Start validates the worker
// runtime's version before anything is spawned, then launches the worker
// with a minimized, explicitly allow-listed environment. Stop performs
// two-phase termination: SIGTERM, a bounded grace wait, then SIGKILL and a
// final wait, so no orphaned worker survives. No other component holds a
// reference to the handle beyond the transport's reader and writer.
package process
