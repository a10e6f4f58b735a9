package optical

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"

	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
)

// ISO9660 layout offsets inside the primary volume descriptor.
const (
	PVDSector          = 16
	PVDSystemID        = 8
	PVDVolumeID        = 40
	PVDVolumeSpaceLE   = 80
	PVDVolumeSpaceBE   = 84
	PVDPathTableSize   = 132
	PVDPathTableL      = 140
	PVDPathTableLOpt   = 144
	PVDPathTableM      = 148
	PVDPathTableMOpt   = 152
	PVDRootRecord      = 156
	PVDApplicationID   = 574
	rootRecordLength   = 34
	dirFlagDirectory   = 0x02
	maxDirectoryDepth  = 16
	maxDirectorySector = 1024
)

// PVD holds the primary volume descriptor fields the ingestor reads.
type PVD struct {
	SystemID      string
	VolumeID      string
	ApplicationID string
	Root          DirRecord
}

// DirRecord is a parsed ISO9660 directory record.
type DirRecord struct {
	Length int
	Extent int64
	Size   int64
	Flags  byte
	Name   string
}

// IsDir reports whether the record describes a directory.
func (d DirRecord) IsDir() bool { return d.Flags&dirFlagDirectory != 0 }

// ParseDirRecord parses the record at the start of b. A zero length record
// (sector padding) returns Length 0.
func ParseDirRecord(b []byte) (DirRecord, error) {
	if len(b) == 0 || b[0] == 0 {
		return DirRecord{}, nil
	}
	n := int(b[0])
	if n < 34 || n > len(b) {
		return DirRecord{}, errors.NewParseError("iso9660", "", "truncated directory record", nil)
	}
	nameLen := int(b[32])
	if 33+nameLen > n {
		return DirRecord{}, errors.NewParseError("iso9660", "", "directory record name overflows", nil)
	}
	return DirRecord{
		Length: n,
		Extent: int64(binary.LittleEndian.Uint32(b[2:6])),
		Size:   int64(binary.LittleEndian.Uint32(b[10:14])),
		Flags:  b[25],
		Name:   string(b[33 : 33+nameLen]),
	}, nil
}

// ReadPVD reads the primary volume descriptor of part.
func ReadPVD(ctx context.Context, img Image, part Partition) (*PVD, error) {
	sector, err := img.ReadSector(ctx, part.Start+PVDSector)
	if err != nil {
		return nil, err
	}
	if sector[0] != 1 || string(sector[1:6]) != "CD001" {
		return nil, errors.NewParseError("iso9660", "", "no primary volume descriptor", nil)
	}
	root, err := ParseDirRecord(sector[PVDRootRecord : PVDRootRecord+rootRecordLength])
	if err != nil {
		return nil, err
	}
	return &PVD{
		SystemID:      strings.TrimSpace(string(sector[PVDSystemID:PVDVolumeID])),
		VolumeID:      strings.TrimSpace(string(sector[PVDVolumeID : PVDVolumeID+32])),
		ApplicationID: strings.TrimSpace(string(sector[PVDApplicationID : PVDApplicationID+128])),
		Root:          root,
	}, nil
}

// ExtractFile reads the file at name (slash separated, matched without case
// and version suffix) from the filesystem in part. It returns nil, nil when
// the file does not exist or is empty.
func ExtractFile(ctx context.Context, img Image, part Partition, name string) ([]byte, error) {
	pvd, err := ReadPVD(ctx, img, part)
	if err != nil {
		return nil, err
	}

	dir := pvd.Root
	parts := strings.Split(strings.Trim(name, "/"), "/")
	if len(parts) > maxDirectoryDepth {
		return nil, errors.NewValidationError("name", name, "path too deep")
	}
	for i, p := range parts {
		rec, found, err := lookup(ctx, img, part, dir, p)
		if err != nil || !found {
			return nil, err
		}
		if i < len(parts)-1 {
			if !rec.IsDir() {
				return nil, nil
			}
			dir = rec
			continue
		}
		if rec.IsDir() || rec.Size == 0 {
			return nil, nil
		}
		return readExtent(ctx, img, part, rec)
	}
	return nil, nil
}

func lookup(ctx context.Context, img Image, part Partition, dir DirRecord, name string) (DirRecord, bool, error) {
	data, err := readExtent(ctx, img, part, dir)
	if err != nil {
		return DirRecord{}, false, err
	}
	for off := 0; off < len(data); {
		rec, err := ParseDirRecord(data[off:])
		if err != nil {
			return DirRecord{}, false, err
		}
		if rec.Length == 0 {
			off = (off/constants.SectorSize + 1) * constants.SectorSize
			continue
		}
		off += rec.Length
		if rec.Name == "\x00" || rec.Name == "\x01" {
			continue
		}
		if strings.EqualFold(stripVersion(rec.Name), name) {
			return rec, true, nil
		}
	}
	return DirRecord{}, false, nil
}

func readExtent(ctx context.Context, img Image, part Partition, rec DirRecord) ([]byte, error) {
	sectors := (rec.Size + constants.SectorSize - 1) / constants.SectorSize
	if rec.IsDir() && sectors > maxDirectorySector {
		return nil, errors.NewParseError("iso9660", "", "directory too large", nil)
	}
	start := rec.Extent
	// Extents on a CD track are relative to the track; GD-ROM extents are absolute.
	if start < part.Start {
		start += part.Start
	}
	var buf bytes.Buffer
	for i := int64(0); i < sectors; i++ {
		sector, err := img.ReadSector(ctx, start+i)
		if err != nil {
			return nil, err
		}
		buf.Write(sector)
	}
	return buf.Bytes()[:rec.Size], nil
}

func stripVersion(name string) string {
	if i := strings.IndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSuffix(name, ".")
}
