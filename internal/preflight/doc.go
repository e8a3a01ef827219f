// Package preflight provides readiness checks for external services
// and filesystem paths that reelmill depends on.
//
// These checks run in two contexts:
//   - The run bootstrap calls RunAll before the orchestrator starts and logs
//     every failed check. Failures do not block the run; the affected stage
//     fails and notifies like any other stage failure.
//   - The CLI "reelmill status" command uses individual check functions
//     (CheckGraphFromConfig, CheckDirectoryAccess) to display health.
package preflight
