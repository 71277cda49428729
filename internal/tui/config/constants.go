package config

// Layout constants
const (
	// Table dimensions
	DefaultColumnSizeWidth     = 10
	DefaultColumnTypeWidth     = 8
	DefaultColumnModifiedWidth = 16
	MinColumnNameWidth         = 20
	MaxColumnNameWidth         = 60

	// Lines above the first listing row: title, breadcrumb, column header
	ListTopOffset = 3
	// Lines below the listing: count, status, help
	ListBottomReserve = 4

	// Dialog dimensions
	DialogDefaultWidth = 50
	DialogLargeWidth   = 70
	MenuWidth          = 24

	// Mouse
	DoubleClickMillis = 400

	// Preview modal chrome: name, status, hint, separator
	PreviewHeaderLines = 4
)

// Panel layout
const LeftPanelWidthRatio = 0.6
