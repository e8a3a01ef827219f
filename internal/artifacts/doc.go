// Package artifacts answers pipeline state questions directly from the
// filesystem.
//
// There is no separate state store for artifacts: the movies root holds one
// directory per downloaded movie (a source set) and the clips root holds one
// directory per segmented movie (a derived set). The "current" set under a
// root is the most recently modified directory, re-resolved on every query so
// a restarted process sees exactly what is on disk.
package artifacts
