package theme

// Palette. Hex values close to the ANSI bright colors so the browser looks
// the same on light and dark terminal themes.
const (
	ColorWhite        = "#FFFFFF" // primary text
	ColorBrightBlack  = "#808080" // secondary text
	ColorBrightBlue   = "#5C7CFA" // accent, selection
	ColorBrightCyan   = "#3BC9DB" // headers, info
	ColorBrightGreen  = "#51CF66" // success, title
	ColorBrightYellow = "#FFD43B" // warning, dialogs
	ColorBrightRed    = "#FF6B6B" // error, delete

	// ColorSelection is the background of selected rows
	ColorSelection = "#364FC7"
)

// Entry category colors
const (
	ColorFolder   = "#74C0FC"
	ColorImage    = "#74C0FC"
	ColorVideo    = "#FF8787"
	ColorAudio    = "#DA77F2"
	ColorText     = "#E9ECEF"
	ColorDocument = "#69DB7C"
	ColorArchive  = "#FCC419"
)

// GetFileColor returns the color for an entry category
func GetFileColor(category string) string {
	switch category {
	case "folder":
		return ColorFolder
	case "image":
		return ColorImage
	case "video":
		return ColorVideo
	case "audio":
		return ColorAudio
	case "text":
		return ColorText
	case "document":
		return ColorDocument
	case "archive":
		return ColorArchive
	default:
		return ColorWhite
	}
}

// Message levels as ordered by messaging.MessageType
const (
	levelInfo = iota
	levelSuccess
	levelWarning
	levelError
)

// GetMessageColor returns the color for a status message level
func GetMessageColor(level int) string {
	switch level {
	case levelError:
		return ColorBrightRed
	case levelSuccess:
		return ColorBrightGreen
	case levelWarning:
		return ColorBrightYellow
	default:
		return ColorBrightCyan
	}
}

// GetMessageIcon returns the icon for a status message level
func GetMessageIcon(level int) string {
	switch level {
	case levelError:
		return "❌"
	case levelSuccess:
		return "✅"
	case levelWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}
