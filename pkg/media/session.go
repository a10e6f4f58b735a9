// Package media describes one open SD card: where it is mounted, which menu
// program it boots and the filesystem it is reached through.
package media

import (
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/agentstation/gdcard/pkg/catalog"
	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/pathops"
)

// Session is passed to every component that reads or writes the card.
type Session struct {
	Fs       afero.Fs
	Root     string
	MenuKind catalog.MenuKind
	Limits   catalog.Limits
}

// NewSession returns a session for the card mounted at root.
func NewSession(fs afero.Fs, root string, kind catalog.MenuKind) *Session {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Session{Fs: fs, Root: filepath.Clean(root), MenuKind: kind, Limits: catalog.DefaultLimits}
}

// Ops returns path operations over the session filesystem.
func (s *Session) Ops() *pathops.Ops { return pathops.New(s.Fs) }

// Validate checks that the session can be used for a save.
func (s *Session) Validate() error {
	if s == nil || s.Root == "" || s.Root == "." {
		return errors.Join(errors.ErrNotConfigured, errors.NewValidationError("root", "", "media root is required"))
	}
	if s.MenuKind == catalog.MenuNone {
		return errors.Join(errors.ErrNotConfigured, errors.NewValidationError("menu_kind", s.MenuKind.String(), "a menu kind must be selected"))
	}
	return nil
}

// SlotPath returns the folder of slot n.
func (s *Session) SlotPath(n int) (string, error) {
	name, err := FormatSlot(n)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, name), nil
}

// AsidePath returns the move-aside folder for a relocation id.
func (s *Session) AsidePath(id string) string {
	return filepath.Join(s.Root, id)
}

// IsUnder reports whether path lies inside the media root.
func (s *Session) IsUnder(path string) bool {
	return pathops.IsUnder(s.Root, path)
}

// FormatSlot renders a slot as its zero-padded folder name: two digits
// below 100, three below 1000 and four below 10000.
func FormatSlot(n int) (string, error) {
	switch {
	case n < 0:
		return "", errors.Join(errors.ErrSlotOutOfRange, errors.NewValidationError("slot", n, "negative slot"))
	case n < 100:
		return pad(n, 2), nil
	case n < 1000:
		return pad(n, 3), nil
	case n <= constants.MaxSlot:
		return pad(n, 4), nil
	default:
		return "", errors.Join(errors.ErrSlotOutOfRange, errors.NewValidationError("slot", n, "slot exceeds 9999"))
	}
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

var slotDir = regexp.MustCompile(`^\d+$`)

// ParseSlotDir returns the slot number a folder name encodes.
func ParseSlotDir(name string) (int, bool) {
	if !slotDir.MatchString(name) {
		return 0, false
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsAsideDir reports whether name is a relocation id folder.
func IsAsideDir(name string) bool {
	_, err := uuid.Parse(name)
	return err == nil && len(name) == 36
}
