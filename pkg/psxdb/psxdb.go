// Package psxdb is the bundled PlayStation title database used to name
// bleem! discs, whose boot area carries no Dreamcast header.
package psxdb

import (
	"bytes"
	_ "embed"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"

	"github.com/agentstation/gdcard/pkg/errors"
)

//go:embed gamedb.json
var bundled []byte

// FallbackReleaseDate is used when a title is unknown or its date unparseable.
const FallbackReleaseDate = "19990909"

// Game is one database record.
type Game struct {
	Serial      string `json:"serial"`
	Name        string `json:"name"`
	ReleaseDate string `json:"releaseDate"`
}

// DB indexes games by normalized serial.
type DB struct {
	bySerial map[string]Game
}

var (
	defaultOnce sync.Once
	defaultDB   *DB
)

// Default returns the bundled database.
func Default() *DB {
	defaultOnce.Do(func() {
		db, err := Parse(bytes.NewReader(bundled))
		if err != nil {
			db = &DB{bySerial: map[string]Game{}}
		}
		defaultDB = db
	})
	return defaultDB
}

// Load reads a database file from fs.
func Load(fs afero.Fs, path string) (*DB, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()
	db, err := Parse(f)
	if err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	return db, nil
}

// Parse decodes a JSON array of games.
func Parse(r io.Reader) (*DB, error) {
	var games []Game
	if err := json.NewDecoder(r).Decode(&games); err != nil {
		return nil, err
	}
	db := &DB{bySerial: make(map[string]Game, len(games))}
	for _, g := range games {
		key := strings.ToUpper(NormalizeSerial(g.Serial))
		if key == "" {
			continue
		}
		if _, dup := db.bySerial[key]; !dup {
			db.bySerial[key] = g
		}
	}
	return db, nil
}

// Len returns the number of indexed serials.
func (db *DB) Len() int { return len(db.bySerial) }

// FindBySerial looks a serial up, ignoring case.
func (db *DB) FindBySerial(serial string) (Game, bool) {
	if db == nil {
		return Game{}, false
	}
	g, ok := db.bySerial[strings.ToUpper(NormalizeSerial(serial))]
	return g, ok
}

// SerialFromSystemCnf extracts the boot executable serial from the first
// line of SYSTEM.CNF, e.g. "BOOT = cdrom:\SLUS_005.94;1" gives "SLUS-00594".
func SerialFromSystemCnf(data []byte) string {
	line, _, _ := strings.Cut(string(data), "\n")
	return NormalizeSerial(strings.TrimRight(line, "\r"))
}

// NormalizeSerial keeps the text after the last backslash, drops the
// version suffix from the last ';', turns '_' into '-' and removes dots.
func NormalizeSerial(s string) string {
	if i := strings.LastIndexByte(s, '\\'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "")
	return strings.TrimSpace(s)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// FormatReleaseDate converts a database date into the yyyyMMdd form used
// by boot headers, or FallbackReleaseDate.
func FormatReleaseDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("20060102")
		}
	}
	return FallbackReleaseDate
}
