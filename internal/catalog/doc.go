// Package catalog reads and edits the magnet catalog: a CSV file listing
// candidate movies ("Movies") and their magnet links ("Magnet Links").
// Acquisition picks a random entry and removes it once the download succeeds,
// so the file doubles as the work queue.
package catalog
