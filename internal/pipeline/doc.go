// Package pipeline sequences acquisition, segmentation and batched
// publication for one movie, then applies the cleanup policy.
//
// The orchestrator keeps no queue of its own. Every publication cycle and the
// cleanup decision re-derive the remaining clips from the derived artifact
// root, so a run that is interrupted and started again with Resume continues
// from whatever clips still exist and never re-publishes a deleted clip.
//
// Stage failures, timeouts and panics are converted into notifications and a
// Run Outcome; they never crash the process.
package pipeline
