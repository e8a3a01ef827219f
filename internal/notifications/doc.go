// Package notifications delivers pipeline progress and failure messages.
//
// Messages go to a Discord webhook, an ntfy topic, or both. Delivery is best
// effort: Notify truncates to the configured length, logs transport failures,
// and never returns an error, so a broken webhook cannot abort a run. Pipeline
// code depends only on the Notifier interface.
package notifications
