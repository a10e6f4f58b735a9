// Package constants provides shared constants used throughout the gdcard codebase.
// This includes sidecar file names, naming limits, slot reservations, file
// permissions, and other values that must agree between the reader and the
// writer of a card layout.
package constants

import "time"

// Sidecar files stored inside every slot folder.
const (
	// NameFile holds the display name of the entry.
	NameFile = "name.txt"

	// SerialFile holds the product number of the entry.
	SerialFile = "serial.txt"

	// ErrorFile holds the last error recorded for the entry.
	ErrorFile = "error.txt"

	// SnapshotFile is the structured cache of the full entry.
	SnapshotFile = "item.json"
)

// Tool and scratch locations.
const (
	// ShrinkBlacklistFile lists serials the shrink tool must skip.
	ShrinkBlacklistFile = "gdishrink_blacklist.txt"

	// TempFolderName is the scratch folder created under the temp dir.
	TempFolderName = "gdcard_temp"

	// ExtractPrefix prefixes archive extraction folders in the scratch dir.
	ExtractPrefix = "ext_"

	// MenuWorkFolder is the scratch folder the menu image is assembled in.
	MenuWorkFolder = "menu_work"

	// DefaultImageName is the basename every primary image is normalized to.
	DefaultImageName = "disc"
)

// Naming limits.
const (
	// NameMaxLength caps display names (in runes).
	NameMaxLength = 39

	// SerialMaxLength caps product numbers.
	SerialMaxLength = 10

	// UnknownDisc is the disc label of a provisional header.
	UnknownDisc = "?/?"
)

// Slot reservations on the card.
const (
	// MenuSlot is the folder number of the menu image.
	MenuSlot = 1

	// FirstGameSlot is the first folder number assigned to a game.
	FirstGameSlot = 2

	// MaxSlot is the largest folder number the slot formatter accepts.
	MaxSlot = 9999
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// ExecutablePermissions is for executable files (rwxr-xr-x)
	ExecutablePermissions = 0755
)

// Timeout constants.
const (
	// CommandTimeout is the default timeout for CLI commands.
	CommandTimeout = 2 * time.Hour

	// ShrinkTimeout bounds a single run of the external shrink tool.
	ShrinkTimeout = 30 * time.Minute
)

// Optical geometry.
const (
	// SectorSize is the size of a cooked data sector.
	SectorSize = 2048

	// RawSectorSize is the size of a raw CD sector.
	RawSectorSize = 2352

	// HighDensityLBA is where the high-density area of a GD-ROM starts.
	HighDensityLBA = 45000

	// HighDensitySectors is the size of a full-length high-density data track.
	HighDensitySectors = 504150

	// PregapSectors separates consecutive tracks of the low-density area.
	PregapSectors = 150
)
