// Package textutil provides small text helpers shared by the stages: filename
// sanitizing for artifact directories, display titles for notifications, and
// rune-safe truncation for bounded messages.
package textutil
