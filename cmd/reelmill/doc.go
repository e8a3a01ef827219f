// Package main hosts the reelmill CLI.
//
// `reelmill run` drives one pass of the movie pipeline (acquire, segment,
// publish in paced batches, clean up); `--resume` continues publishing a
// derived set left behind by an earlier run. The single-stage commands and
// the status, history and catalog views exist for operators who need to
// step through or inspect a run by hand. Heavy lifting lives in internal/;
// commands here only resolve configuration and render results.
package main
