package catalog

import (
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/gdcard/pkg/bootheader"
	"github.com/agentstation/gdcard/pkg/constants"
)

// Field names reported in change notifications.
const (
	FieldID         = "ID"
	FieldName       = "Name"
	FieldSerial     = "ProductNumber"
	FieldFiles      = "ImageFiles"
	FieldFolder     = "Folder"
	FieldSourcePath = "SourcePath"
	FieldFormat     = "FileFormat"
	FieldSlot       = "SdNumber"
	FieldLocation   = "Location"
	FieldHeader     = "Ip"
	FieldError      = "ErrorState"
	FieldLength     = "Length"
	FieldShrunk     = "IsShrunk"
)

// Limits caps the stored name and serial.
type Limits struct {
	NameMax   int
	SerialMax int
}

// DefaultLimits are the limits the menu programs can display.
var DefaultLimits = Limits{NameMax: constants.NameMaxLength, SerialMax: constants.SerialMaxLength}

func (l Limits) orDefault() Limits {
	if l.NameMax <= 0 {
		l.NameMax = DefaultLimits.NameMax
	}
	if l.SerialMax <= 0 {
		l.SerialMax = DefaultLimits.SerialMax
	}
	return l
}

// Change describes a mutation of one entry field.
type Change struct {
	Entry *Entry
	Field string
}

// Observer receives entry changes.
type Observer func(Change)

// Entry is one game, or the menu itself, in the catalog.
type Entry struct {
	mu sync.RWMutex

	limits     Limits
	id         string
	name       string
	serial     string
	files      []string
	folder     string
	sourcePath string
	format     FileFormat
	slot       int
	location   Location
	header     *bootheader.Header
	errText    string
	length     int64
	shrunk     bool

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// NewEntry returns an empty entry capped by limits.
func NewEntry(limits Limits) *Entry {
	return &Entry{limits: limits.orDefault()}
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (e *Entry) Subscribe(fn Observer) (cancel func()) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	if e.observers == nil {
		e.observers = make(map[int]Observer)
	}
	id := e.nextObs
	e.nextObs++
	e.observers[id] = fn
	return func() {
		e.obsMu.Lock()
		defer e.obsMu.Unlock()
		delete(e.observers, id)
	}
}

// Observers returns the number of registered observers.
func (e *Entry) Observers() int {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	return len(e.observers)
}

func (e *Entry) notify(field string) {
	e.obsMu.Lock()
	fns := make([]Observer, 0, len(e.observers))
	for _, fn := range e.observers {
		fns = append(fns, fn)
	}
	e.obsMu.Unlock()
	for _, fn := range fns {
		fn(Change{Entry: e, Field: field})
	}
}

func (e *Entry) set(field string, fn func()) {
	e.mu.Lock()
	fn()
	e.mu.Unlock()
	e.notify(field)
}

// ID returns the transient relocation identifier, generating it on first use.
func (e *Entry) ID() string {
	e.mu.Lock()
	created := false
	if e.id == "" {
		e.id = uuid.NewString()
		created = true
	}
	id := e.id
	e.mu.Unlock()
	if created {
		e.notify(FieldID)
	}
	return id
}

// Name returns the display name.
func (e *Entry) Name() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.name
}

// SetName stores a cleaned display name: diacritics removed, underscores
// rendered as spaces, trimmed and capped.
func (e *Entry) SetName(name string) {
	e.set(FieldName, func() { e.name = CleanName(name, e.limitsLocked().NameMax) })
}

// Serial returns the product number, falling back to the boot header's.
func (e *Entry) Serial() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.serial != "" || e.header == nil {
		return e.serial
	}
	return capRunes(e.header.ProductNumber, e.limitsLocked().SerialMax)
}

// SetSerial stores a trimmed, capped product number.
func (e *Entry) SetSerial(serial string) {
	e.set(FieldSerial, func() {
		e.serial = capRunes(strings.TrimSpace(serial), e.limitsLocked().SerialMax)
	})
}

// Files returns the constituent image file names; the first is the primary image.
func (e *Entry) Files() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.files...)
}

// PrimaryFile returns the first constituent file or "".
func (e *Entry) PrimaryFile() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.files) == 0 {
		return ""
	}
	return e.files[0]
}

// SetFiles replaces the constituent files, dropping case-insensitive duplicates.
func (e *Entry) SetFiles(files []string) {
	e.set(FieldFiles, func() {
		e.files = nil
		for _, f := range files {
			e.files = appendUnique(e.files, f)
		}
	})
}

// AddFile appends a constituent file unless it is already listed.
func (e *Entry) AddFile(file string) {
	e.set(FieldFiles, func() { e.files = appendUnique(e.files, file) })
}

// IsGDI reports whether the primary image is a GDI descriptor.
func (e *Entry) IsGDI() bool {
	return strings.EqualFold(filepath.Ext(e.PrimaryFile()), ".gdi")
}

// Folder returns the folder that holds the entry's files.
func (e *Entry) Folder() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.folder
}

// SetFolder sets the owning folder.
func (e *Entry) SetFolder(folder string) {
	e.set(FieldFolder, func() { e.folder = folder })
}

// SourcePath returns the original archive path, if any.
func (e *Entry) SourcePath() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sourcePath
}

// SetSourcePath sets the original archive path.
func (e *Entry) SetSourcePath(p string) {
	e.set(FieldSourcePath, func() { e.sourcePath = p })
}

// Format returns whether the entry is expanded or archived.
func (e *Entry) Format() FileFormat {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.format
}

// SetFormat sets the file format.
func (e *Entry) SetFormat(f FileFormat) {
	e.set(FieldFormat, func() { e.format = f })
}

// Slot returns the card slot; the menu entry always reports slot 1.
func (e *Entry) Slot() int {
	if e.IsMenu() {
		return constants.MenuSlot
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.slot
}

// SetSlot sets the card slot. It is ignored on the menu entry.
func (e *Entry) SetSlot(slot int) {
	if e.IsMenu() {
		return
	}
	e.set(FieldSlot, func() { e.slot = slot })
}

// Location returns LocationError whenever an error is recorded.
func (e *Entry) Location() Location {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.errText != "" {
		return LocationError
	}
	return e.location
}

// SetLocation sets the stored location.
func (e *Entry) SetLocation(l Location) {
	e.set(FieldLocation, func() { e.location = l })
}

// Header returns the decoded boot header, or nil.
func (e *Entry) Header() *bootheader.Header {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.header
}

// SetHeader sets the decoded boot header. A changed header also changes the
// reported serial.
func (e *Entry) SetHeader(h *bootheader.Header) {
	e.set(FieldHeader, func() { e.header = h })
	e.notify(FieldSerial)
}

// Err returns the recorded error text.
func (e *Entry) Err() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.errText
}

// HasError reports whether an error is recorded.
func (e *Entry) HasError() bool { return e.Err() != "" }

// SetError records an error; an empty string clears it.
func (e *Entry) SetError(text string) {
	e.set(FieldError, func() { e.errText = text })
}

// Length returns the total size in bytes.
func (e *Entry) Length() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.length
}

// SetLength sets the total size in bytes.
func (e *Entry) SetLength(n int64) {
	e.set(FieldLength, func() { e.length = n })
}

// Shrunk reports whether the image was already shrunk.
func (e *Entry) Shrunk() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.shrunk
}

// SetShrunk records whether the image was shrunk.
func (e *Entry) SetShrunk(v bool) {
	e.set(FieldShrunk, func() { e.shrunk = v })
}

// MenuKind returns the menu kind whose reserved name the entry carries.
func (e *Entry) MenuKind() MenuKind {
	return MenuKindOfName(e.Name())
}

// IsMenu reports whether this is the menu entry.
func (e *Entry) IsMenu() bool {
	return e.MenuKind() != MenuNone
}

// Disc returns the header disc label, or the unknown label.
func (e *Entry) Disc() string {
	h := e.Header()
	if h == nil || h.Disc == "" {
		return constants.UnknownDisc
	}
	return h.Disc
}

// SameGame reports whether two entries are the same disc of the same game:
// equal non-empty serials and equal known disc labels.
func (e *Entry) SameGame(other *Entry) bool {
	if other == nil {
		return false
	}
	a, b := e.Serial(), other.Serial()
	if a == "" || b == "" || a != b {
		return false
	}
	if e.Header() == nil || other.Header() == nil {
		return false
	}
	da, db := e.Disc(), other.Disc()
	return da != constants.UnknownDisc && db != constants.UnknownDisc && da == db
}

func (e *Entry) limitsLocked() Limits {
	return e.limits.orDefault()
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// RemoveDiacritics strips nonspacing marks after canonical decomposition.
func RemoveDiacritics(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

// CleanName applies the display-name rules and caps the result at max runes.
func CleanName(name string, max int) string {
	name = RemoveDiacritics(name)
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	return strings.TrimRight(capRunes(name, max), " ")
}

func capRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func appendUnique(list []string, f string) []string {
	if f == "" {
		return list
	}
	for _, existing := range list {
		if strings.EqualFold(existing, f) {
			return list
		}
	}
	return append(list, f)
}
