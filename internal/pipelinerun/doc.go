// Package pipelinerun bootstraps one reelmill process invocation.
//
// A Session owns everything a run needs beyond configuration: the run id,
// the per-run log file, the single-instance lock, the run ledger and the
// notification service. Run wires the real stage implementations (aria2c,
// ffmpeg, the Graph API) into a pipeline.Orchestrator; the single-stage
// helpers expose the same stages to the CLI one at a time.
package pipelinerun
