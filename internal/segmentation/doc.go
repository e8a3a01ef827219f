// Package segmentation implements the second pipeline stage: probe the
// current media artifact, plan fixed-length clip windows that skip the
// opening and closing margins, and render each window as a vertical MP4 with
// ffmpeg into a derived set under the clips root.
package segmentation
