// Package menu renders the game listing read by the menu program and builds
// the bootable menu image stored in slot 01.
package menu

import (
	"strconv"
	"strings"

	"github.com/agentstation/gdcard/pkg/bootheader"
	"github.com/agentstation/gdcard/pkg/catalog"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/media"
)

// Listing file names.
const (
	GDMenuList   = "LIST.INI"
	OpenMenuList = "OPENMENU.INI"
	DebugFile    = "MENU_DEBUG.TXT"
)

// FormatSlotNumber returns the folder name of slot n.
func FormatSlotNumber(n int) (string, error) {
	return media.FormatSlot(n)
}

// ListFile returns the listing file name read by kind.
func ListFile(kind catalog.MenuKind) (string, error) {
	switch kind {
	case catalog.GDMenu:
		return GDMenuList, nil
	case catalog.OpenMenu:
		return OpenMenuList, nil
	default:
		return "", errors.ErrNotConfigured
	}
}

// VolumeID returns the volume identifier of kind's menu image.
func VolumeID(kind catalog.MenuKind) string {
	names := kind.ReservedNames()
	if len(names) == 0 {
		return ""
	}
	return names[len(names)-1]
}

// Listable returns the entries that belong in the listing: everything
// placed in a game slot without a recorded error, menu entries excluded.
func Listable(entries []*catalog.Entry) []*catalog.Entry {
	var out []*catalog.Entry
	for _, e := range entries {
		if e == nil || e.IsMenu() || e.HasError() || e.Slot() < 2 {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Render renders the listing of kind over the listable entries.
func Render(kind catalog.MenuKind, entries []*catalog.Entry) (string, error) {
	switch kind {
	case catalog.GDMenu:
		return RenderGDMenu(entries)
	case catalog.OpenMenu:
		return RenderOpenMenu(entries)
	default:
		return "", errors.ErrNotConfigured
	}
}

// RenderGDMenu renders LIST.INI.
func RenderGDMenu(entries []*catalog.Entry) (string, error) {
	var b strings.Builder
	b.WriteString("[GDMENU]\n")
	for _, e := range Listable(entries) {
		if err := writeItem(&b, e, false); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// RenderOpenMenu renders OPENMENU.INI. Every listed entry needs a serial.
func RenderOpenMenu(entries []*catalog.Entry) (string, error) {
	items := Listable(entries)

	var b strings.Builder
	b.WriteString("[OPENMENU]\n")
	b.WriteString("num_items=" + strconv.Itoa(len(items)) + "\n")
	b.WriteString("\n")
	b.WriteString("[ITEMS]\n")
	for _, e := range items {
		if err := writeItem(&b, e, true); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func writeItem(b *strings.Builder, e *catalog.Entry, product bool) error {
	slot, err := FormatSlotNumber(e.Slot())
	if err != nil {
		return errors.WrapEntry(e.Name(), e.Slot(), "listing", err)
	}

	h := e.Header()
	if h == nil {
		h = &bootheader.Header{Disc: e.Disc()}
	}

	line := func(key, value string) {
		b.WriteString(slot + "." + key + "=" + value + "\n")
	}
	line("name", e.Name())
	if h.Special == bootheader.CodeBreaker {
		line("disc", "")
	} else {
		line("disc", h.Disc)
	}
	if h.VGA {
		line("vga", "1")
	} else {
		line("vga", "0")
	}
	line("region", h.Region)
	line("version", h.Version)
	line("date", h.ReleaseDate)
	if product {
		id, err := ProductID(e.Serial())
		if err != nil {
			return errors.WrapEntry(e.Name(), e.Slot(), "listing", err)
		}
		line("product", id)
	}
	b.WriteString("\n")
	return nil
}

// ProductID turns a serial into the identifier openMenu matches artwork by:
// hyphens removed, cut at the first space.
func ProductID(serial string) (string, error) {
	if strings.TrimSpace(serial) == "" {
		return "", errors.ErrMissingSerial
	}
	id := strings.ReplaceAll(serial, "-", "")
	id, _, _ = strings.Cut(id, " ")
	return id, nil
}
