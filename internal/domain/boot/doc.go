// Package boot detects a structurally invalid persistence root before any
// item is loaded.
//
// A boot failure is fatal and never retried: the host logs the message,
// refuses to serve, and no loader runs.
//
// Components:
//   - Failure: the error carrying the operator-facing diagnostic
//   - Validator: the structural check boundary (pass/fail plus message)
//   - LayoutValidator: checks the home directory, the items directory and
//     the layout.yaml version marker
//
// Example Usage:
//
//	v := boot.NewLayoutValidator("jobs", true)
//	if err := boot.Check(v, home); err != nil {
//	    logger.Fatal("boot failure", zap.Error(err))
//	}
package boot
