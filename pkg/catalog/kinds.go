package catalog

import (
	"strings"

	"github.com/agentstation/gdcard/pkg/errors"
)

// Location classifies where an entry's files currently live.
type Location int

const (
	// LocationUnset is the zero location.
	LocationUnset Location = iota
	// LocationError is reported for any entry carrying an error.
	LocationError
	// LocationOther is anywhere off the card.
	LocationOther
	// LocationMedia is a slot folder on the card.
	LocationMedia
)

// String returns the display name of the location.
func (l Location) String() string {
	switch l {
	case LocationError:
		return "Error"
	case LocationOther:
		return "Other"
	case LocationMedia:
		return "SD Card"
	default:
		return "Unset"
	}
}

// FileFormat tells whether an entry's image is expanded or still archived.
type FileFormat int

const (
	// Uncompressed entries point at image files.
	Uncompressed FileFormat = iota
	// Archived entries point at an archive that must be extracted first.
	Archived
)

// String returns the format name.
func (f FileFormat) String() string {
	if f == Archived {
		return "Archived"
	}
	return "Uncompressed"
}

// MenuKind selects the menu program written to slot 01.
type MenuKind int

const (
	// MenuNone means no menu program was selected.
	MenuNone MenuKind = iota
	// GDMenu is the GDMENU program (LIST.INI).
	GDMenu
	// OpenMenu is the openMenu program (OPENMENU.INI).
	OpenMenu
)

// MenuKinds lists the selectable menu kinds.
var MenuKinds = []MenuKind{GDMenu, OpenMenu}

// String returns the name used for the menu's asset folder.
func (k MenuKind) String() string {
	switch k {
	case GDMenu:
		return "gdMenu"
	case OpenMenu:
		return "openMenu"
	default:
		return "None"
	}
}

// ReservedNames returns the display names that identify this menu's own entry.
func (k MenuKind) ReservedNames() []string {
	switch k {
	case GDMenu:
		return []string{"gdMenu", "GDMENU"}
	case OpenMenu:
		return []string{"openMenu", "OPENMENU"}
	default:
		return nil
	}
}

// ParseMenuKind parses a configured menu kind, ignoring case.
func ParseMenuKind(s string) (MenuKind, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return MenuNone, nil
	}
	for _, k := range MenuKinds {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return MenuNone, errors.NewValidationError("menu_kind", s, "must be gdMenu or openMenu")
}

// MenuKindOfName returns the menu kind whose reserved names contain name.
// The comparison is case-sensitive.
func MenuKindOfName(name string) MenuKind {
	for _, k := range MenuKinds {
		for _, reserved := range k.ReservedNames() {
			if name == reserved {
				return k
			}
		}
	}
	return MenuNone
}
