// Package publication uploads rendered clips to a Facebook page through the
// Graph API videos endpoint.
//
// A Stage invocation receives an ordered batch of clips, uploads each one with
// a caption, deletes the clips the platform accepted and keeps the rest for a
// later cycle. Every invocation writes an indented JSON outcome log named by
// timestamp. The invocation itself only fails when it cannot run at all:
// missing page credentials or a missing clip directory.
package publication
