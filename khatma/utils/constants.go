package utils

import "time"

// UI and display constants
const (
	// Pagination
	ParticipantsPerPage = 10

	// Colors
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00

	// Board glyphs
	SlotAvailable = "⬜"
	SlotActive    = "🟨"
	SlotCompleted = "🟩"
)

// Timeouts
const (
	DefaultQueryTimeout     = 30 * time.Second
	CommandExecutionTimeout = 10 * time.Second
	StatsQueryTimeout       = 10 * time.Second
)
