package tui

// Color constants for the smgantt viewer theme
const (
	// Base Colors
	ColorBorder = "#3A3F55" // Grey-blue

	// Text Colors
	ColorPrimaryText   = "#E6EAF2" // Task names, titles
	ColorSecondaryText = "#B1B8C7" // Dates, details
	ColorDisabledText  = "#6D7383" // Non-working days, muted text
	ColorHelpText      = "240"     // Dark grey for help text

	// Accent Colors
	ColorAccentMain   = "#7C3AED" // Selection border, today marker
	ColorAccentBright = "#A78BFA" // Headers, highlights

	// Bar Colors
	ColorBarDefault   = "#3B82F6" // Free to move
	ColorBarLocked    = "#F59E0B" // Confirmed, started or manually positioned
	ColorBarHeld      = "#EF4444" // On hold
	ColorBarFrozen    = "#9CA3AF" // Downstream of a hold
	ColorBarCompleted = "#22C55E" // Completed
	ColorBarCritical  = "#EC4899" // Zero float

	// State Colors
	ColorError   = "#EF4444"
	ColorSuccess = "#22C55E"
	ColorWarning = "#F59E0B"
)
