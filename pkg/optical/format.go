// Package optical reads the optical-disc containers a card can hold and
// exposes their partitions, tracks and cooked 2048-byte sectors.
package optical

import (
	"path/filepath"
	"strings"
)

// Format is the closed set of supported image containers.
type Format int

const (
	// GDI is the multi-track GD-ROM descriptor.
	GDI Format = iota + 1
	// CDI is the DiscJuggler single-file image.
	CDI
	// MDS is the Alcohol 120% descriptor with its .mdf data file.
	MDS
	// CCD is the CloneCD descriptor with its .img and optional .sub files.
	CCD
)

// Formats lists every supported format in lookup order.
var Formats = []Format{GDI, CDI, MDS, CCD}

// String returns the lower-case format name.
func (f Format) String() string {
	switch f {
	case GDI:
		return "gdi"
	case CDI:
		return "cdi"
	case MDS:
		return "mds"
	case CCD:
		return "ccd"
	default:
		return "unknown"
	}
}

// Ext returns the descriptor extension including the dot.
func (f Format) Ext() string {
	return "." + f.String()
}

// FormatOf returns the format of path from its extension.
func FormatOf(path string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range Formats {
		if f.Ext() == ext {
			return f, true
		}
	}
	return 0, false
}

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	_, ok := FormatOf(path)
	return ok
}

// Media is the physical media type an image describes.
type Media int

const (
	// CDROM is a plain mode 1 CD.
	CDROM Media = iota + 1
	// CDROMXA is a mode 2 CD, which is how PlayStation discs are mastered.
	CDROMXA
	// GDROM is a Dreamcast GD-ROM.
	GDROM
)

// String returns the media name.
func (m Media) String() string {
	switch m {
	case CDROM:
		return "CD-ROM"
	case CDROMXA:
		return "CD-ROM XA"
	case GDROM:
		return "GD-ROM"
	default:
		return "unknown"
	}
}
