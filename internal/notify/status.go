package notify

// StatusInfo is the display tuple for a status or conclusion key.
type StatusInfo struct {
	Label string
	Emoji string
	Color string
}

// statusTable is the fixed lookup covering check conclusions, check states,
// and PR lifecycle actions. Unmatched keys fall through to unknownStatus.
var statusTable = map[string]StatusInfo{
	// check conclusions
	"success":         {Label: "PASSED", Emoji: "✅", Color: "#2da44e"},
	"failure":         {Label: "FAILED", Emoji: "❌", Color: "#cf222e"},
	"cancelled":       {Label: "CANCELLED", Emoji: "🚫", Color: "#6e7781"},
	"timed_out":       {Label: "TIMED OUT", Emoji: "⏰", Color: "#cf222e"},
	"action_required": {Label: "ACTION REQUIRED", Emoji: "⚠️", Color: "#bf8700"},
	"neutral":         {Label: "NEUTRAL", Emoji: "⚪", Color: "#6e7781"},
	"skipped":         {Label: "SKIPPED", Emoji: "⏭️", Color: "#6e7781"},

	// check states
	"pending":     {Label: "PENDING", Emoji: "⏳", Color: "#bf8700"},
	"queued":      {Label: "QUEUED", Emoji: "📋", Color: "#bf8700"},
	"in_progress": {Label: "IN PROGRESS", Emoji: "🔄", Color: "#bf8700"},
	"completed":   {Label: "COMPLETED", Emoji: "✅", Color: "#2da44e"},

	// PR lifecycle
	"opened":           {Label: "OPENED", Emoji: "🆕", Color: "#2da44e"},
	"edited":           {Label: "EDITED", Emoji: "✏️", Color: "#6e7781"},
	"closed":           {Label: "CLOSED", Emoji: "🔒", Color: "#cf222e"},
	"merged":           {Label: "MERGED", Emoji: "🎉", Color: "#8250df"},
	"reopened":         {Label: "REOPENED", Emoji: "🔓", Color: "#2da44e"},
	"synchronize":      {Label: "UPDATED", Emoji: "🔄", Color: "#0969da"},
	"ready_for_review": {Label: "READY FOR REVIEW", Emoji: "👀", Color: "#0969da"},
	"review_requested": {Label: "REVIEW REQUESTED", Emoji: "🙏", Color: "#0969da"},
	"ready_to_merge":   {Label: "READY TO MERGE", Emoji: "🚀", Color: "#8250df"},

	// reviews and comments
	"submitted": {Label: "REVIEW SUBMITTED", Emoji: "📝", Color: "#0969da"},
	"dismissed": {Label: "REVIEW DISMISSED", Emoji: "🗑️", Color: "#6e7781"},
	"created":   {Label: "COMMENTED", Emoji: "💬", Color: "#0969da"},
	"push":      {Label: "PUSHED", Emoji: "📤", Color: "#0969da"},
}

var unknownStatus = StatusInfo{Label: "UNKNOWN", Emoji: "❓", Color: "#6e7781"}

// FormatStatus resolves the display tuple for a status/conclusion pair. The
// secondary key (a conclusion, when present) takes precedence over the
// primary (a bare status). emojiOverride, when non-empty, replaces only the
// emoji after lookup. The function always resolves; unmatched keys return the
// UNKNOWN entry.
func FormatStatus(primary, secondary, emojiOverride string) StatusInfo {
	key := primary
	if secondary != "" {
		key = secondary
	}

	info, ok := statusTable[key]
	if !ok {
		info = unknownStatus
	}

	if emojiOverride != "" {
		info.Emoji = emojiOverride
	}
	return info
}
