// Package bootheader decodes the console identification block (IP.BIN meta
// area) found at the start of every Dreamcast data track.
package bootheader

import (
	"bytes"
	"strings"

	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
)

// SpecialDisc classifies discs that need different menu treatment.
type SpecialDisc int

const (
	// None is an ordinary game disc.
	None SpecialDisc = iota
	// CodeBreaker is the cheat-device boot disc.
	CodeBreaker
	// BleemGame is a PlayStation disc run through the bleem! emulator.
	BleemGame
)

// String returns the classification name.
func (s SpecialDisc) String() string {
	switch s {
	case CodeBreaker:
		return "CodeBreaker"
	case BleemGame:
		return "BleemGame"
	default:
		return "None"
	}
}

// Meta block layout.
const (
	// Size is the length of the meta block.
	Size = 256

	HardwareID = "SEGA SEGAKATANA "
	MakerID    = "SEGA ENTERPRISES"

	// Marker locates the meta block inside a raw file.
	Marker = HardwareID + MakerID

	offHardware = 0x00
	offMaker    = 0x10
	offCRC      = 0x20
	offMedia    = 0x25
	offDiscNo   = 0x2B
	offDiscTot  = 0x2D
	offRegion   = 0x30
	offPeriph   = 0x38
	offProduct  = 0x40
	offVersion  = 0x4A
	offDate     = 0x50
	offBoot     = 0x60
	offProducer = 0x70
	offName     = 0x80

	// vgaPeripheralIndex is the peripherals byte that advertises VGA support.
	vgaPeripheralIndex = 5
)

// Header is a decoded boot header. The JSON names match the item.json
// snapshot layout used by existing cards.
type Header struct {
	Name          string      `json:"Name"`
	ProductNumber string      `json:"ProductNumber"`
	Disc          string      `json:"Disc"`
	Region        string      `json:"Region"`
	Version       string      `json:"Version"`
	ReleaseDate   string      `json:"ReleaseDate"`
	CRC           string      `json:"Crc"`
	VGA           bool        `json:"Vga"`
	Special       SpecialDisc `json:"SpecialDisc"`
}

// Provisional returns the placeholder header of an entry still inside an archive.
func Provisional(name string) *Header {
	return &Header{Name: name, Disc: constants.UnknownDisc}
}

// Decode parses a meta block. data may be longer than Size; only the first
// Size bytes are read.
func Decode(data []byte) (*Header, error) {
	if len(data) < Size {
		return nil, errors.NewParseError("ip.bin", "", "meta block too short", nil)
	}
	if string(data[offHardware:offMaker]) != HardwareID {
		return nil, errors.NewParseError("ip.bin", "", "hardware id mismatch", nil)
	}

	h := &Header{
		Name:          field(data, offName, 128),
		ProductNumber: field(data, offProduct, 10),
		Region:        field(data, offRegion, 8),
		Version:       field(data, offVersion, 6),
		ReleaseDate:   field(data, offDate, 8),
		CRC:           field(data, offCRC, 4),
		VGA:           data[offPeriph+vgaPeripheralIndex] == '1',
	}

	discNo, discTotal := data[offDiscNo], data[offDiscTot]
	if discNo == ' ' || discTotal == ' ' {
		h.Disc = "1/1"
		if field(data, offMedia, 6) == "FCD" &&
			h.ReleaseDate == "20000627" &&
			h.Version == "V1.000" &&
			field(data, offBoot, 16) == "PELICAN.BIN" {
			h.Special = CodeBreaker
		}
	} else {
		h.Disc = string([]byte{discNo, '/', discTotal})
	}

	return h, nil
}

// field returns the trimmed ASCII text of data[off:off+n], cut at the first NUL.
func field(data []byte, off, n int) string {
	s := strings.TrimSpace(string(data[off : off+n]))
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

// Encode renders h into a meta block. It is the inverse of Decode for the
// fields Decode reads and is used to produce boot files for tests and tools.
func Encode(h Header) []byte {
	data := bytes.Repeat([]byte{' '}, Size)
	put := func(off, n int, s string) {
		copy(data[off:off+n], padRight(s, n))
	}
	put(offHardware, 16, HardwareID)
	put(offMaker, 16, MakerID)
	put(offCRC, 4, h.CRC)
	put(offMedia, 6, "GD-ROM")
	if n, t, ok := strings.Cut(h.Disc, "/"); ok && len(n) == 1 && len(t) == 1 {
		data[offDiscNo], data[offDiscNo+1], data[offDiscTot] = n[0], '/', t[0]
	}
	put(offRegion, 8, h.Region)
	periph := []byte("0799A10")
	if h.VGA {
		periph[vgaPeripheralIndex] = '1'
	} else {
		periph[vgaPeripheralIndex] = '0'
	}
	put(offPeriph, 8, string(periph))
	put(offProduct, 10, h.ProductNumber)
	put(offVersion, 6, h.Version)
	put(offDate, 8, h.ReleaseDate)
	put(offBoot, 16, "1ST_READ.BIN")
	put(offProducer, 16, "")
	put(offName, 128, h.Name)
	return data
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}
