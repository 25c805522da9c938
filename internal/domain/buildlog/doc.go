// Package buildlog abstracts where the log of one unit of work goes.
//
// A Method owns exactly one Sink per unit of work. Logger returns the same
// sink on every call; Finalize flushes and releases it exactly once. Writes
// that complete before Finalize are never lost, and writes that race it either
// land or fail with ErrSinkClosed.
//
// Methods:
//   - FileMethod: <dir>/log, buffered, optionally gzipped to log.gz on finalize
//   - StreamMethod: queued writes pumped to a remote writer with an optional
//     bandwidth cap and a drain grace period
//
// Sinks expose a Handle that can be encoded, sent across a process or
// serialization boundary and turned back into a writer with Reattach.
//
// Example Usage:
//
//	m := buildlog.NewFileMethod(job, dir, opts)
//	err := buildlog.Execute(ctx, m, opts, func(ctx context.Context, w io.Writer) error {
//		_, err := io.WriteString(w, "Started\n")
//		return err
//	})
package buildlog
