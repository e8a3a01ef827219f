package notifications

import (
	"fmt"
	"strings"

	"reelmill/internal/textutil"
)

// magnetPreviewLength bounds how much of a magnet link is echoed back.
const magnetPreviewLength = 80

func PipelineStarted() string { return "🎬 Movie pipeline started" }

func PipelineResumed(clips int) string {
	return fmt.Sprintf("🔁 Pipeline resumed with %d clip(s) waiting", clips)
}

func MovieSelected(title, magnet string) string {
	preview := textutil.Truncate(strings.TrimSpace(magnet), magnetPreviewLength)
	return fmt.Sprintf("🎬 Movie selected: `%s`\n🔗 Magnet: %s...", title, preview)
}

func DownloadComplete(title string) string {
	return fmt.Sprintf("✅ Download complete: `%s`. Movie removed from catalog.", title)
}

func SegmentationComplete(title string, clips int) string {
	return fmt.Sprintf("🎞 Created %d clip(s) from `%s`", clips, title)
}

// StageFailed reports a failed stage with its error detail bounded to limit
// characters.
func StageFailed(stage string, err error, limit int) string {
	detail := "unknown error"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	return fmt.Sprintf("❌ %s failed:\n```%s```", stage, textutil.Truncate(detail, limit))
}

func Aborted(stage string) string {
	return fmt.Sprintf("❌ Aborted after %s failure.", stage)
}

func BatchStarting(cycle, maxCycles, size int) string {
	return fmt.Sprintf("📤 Uploading batch %d/%d (%d clip(s))", cycle, maxCycles, size)
}

func BatchResult(succeeded, attempted int) string {
	return fmt.Sprintf("✅ Upload complete: %d/%d succeeded.", succeeded, attempted)
}

func PublicationFailed() string {
	return "⚠️ Upload failed during batch. Publication loop stopped."
}

func AllPublished() string { return "✅ All clips uploaded." }

func CleanupDone() string { return "🧹 Deleted movie and clips after success." }

func CleanupFailed(err error, limit int) string {
	detail := "unknown error"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	return "⚠️ Cleanup failed: " + textutil.Truncate(detail, limit)
}

func ManualCleanup(remaining int) string {
	if remaining < 0 {
		return "⚠️ Remaining clips could not be counted. Manual cleanup may be needed."
	}
	return fmt.Sprintf("⚠️ %d clip(s) remain. Manual cleanup may be needed.", remaining)
}

func Interrupted(remaining int) string {
	return fmt.Sprintf("⏸️ Pipeline interrupted with %d clip(s) remaining. Run `reelmill run --resume` to continue.", remaining)
}

func PipelineFinished(outcome string) string {
	return fmt.Sprintf("🏁 Movie pipeline finished (%s).", outcome)
}
