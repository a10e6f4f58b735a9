package gdrom

import (
	"encoding/binary"

	"github.com/agentstation/gdcard/pkg/constants"
	"github.com/agentstation/gdcard/pkg/errors"
	"github.com/agentstation/gdcard/pkg/optical"
)

// Directory record layout.
const (
	recExtent   = 2
	recSize     = 10
	recFlags    = 25
	recNameLen  = 32
	recName     = 33
	recMinimum  = 34
	flagIsDir   = 0x02
	maxDirDepth = 64
)

// relocate rewrites the ISO9660 image in iso so that every logical block
// address is shifted by base, as required when the image is burned starting
// at LBA base. volumeEnd becomes the recorded volume space size.
func relocate(iso []byte, base, volumeEnd uint32) error {
	pvd := optical.PVDSector * constants.SectorSize
	if len(iso) < pvd+constants.SectorSize {
		return errors.New("image shorter than its volume descriptor")
	}
	if iso[pvd] != 1 || string(iso[pvd+1:pvd+6]) != "CD001" {
		return errors.New("no primary volume descriptor")
	}

	putBoth(iso[pvd+optical.PVDVolumeSpaceLE:], volumeEnd)

	tableSize := binary.LittleEndian.Uint32(iso[pvd+optical.PVDPathTableSize:])
	for _, off := range []int{optical.PVDPathTableL, optical.PVDPathTableLOpt} {
		field := iso[pvd+off:]
		if loc := binary.LittleEndian.Uint32(field); loc != 0 {
			if err := shiftPathTable(iso, loc, tableSize, base, binary.LittleEndian); err != nil {
				return err
			}
			binary.LittleEndian.PutUint32(field, loc+base)
		}
	}
	for _, off := range []int{optical.PVDPathTableM, optical.PVDPathTableMOpt} {
		field := iso[pvd+off:]
		if loc := binary.BigEndian.Uint32(field); loc != 0 {
			if err := shiftPathTable(iso, loc, tableSize, base, binary.BigEndian); err != nil {
				return err
			}
			binary.BigEndian.PutUint32(field, loc+base)
		}
	}

	root := iso[pvd+optical.PVDRootRecord:]
	extent := binary.LittleEndian.Uint32(root[recExtent:])
	size := binary.LittleEndian.Uint32(root[recSize:])
	if err := shiftDirectory(iso, extent, size, base, make(map[uint32]bool), 0); err != nil {
		return err
	}
	putBoth(root[recExtent:], extent+base)
	return nil
}

func shiftPathTable(iso []byte, loc, size, base uint32, order binary.ByteOrder) error {
	start := int(loc) * constants.SectorSize
	end := start + int(size)
	if end > len(iso) {
		return errors.New("path table outside image")
	}
	for off := start; off < end; {
		nameLen := int(iso[off])
		if nameLen == 0 {
			break
		}
		ext := iso[off+2 : off+6]
		order.PutUint32(ext, order.Uint32(ext)+base)
		off += 8 + nameLen + nameLen%2
	}
	return nil
}

// shiftDirectory shifts the extent of every record in the directory stored
// at extent, then descends into subdirectories. Extents are read before
// they are rewritten.
func shiftDirectory(iso []byte, extent, size, base uint32, seen map[uint32]bool, depth int) error {
	if seen[extent] {
		return nil
	}
	if depth > maxDirDepth {
		return errors.New("directory tree too deep")
	}
	seen[extent] = true

	start := int(extent) * constants.SectorSize
	end := start + int(size)
	if end > len(iso) {
		return errors.New("directory outside image")
	}

	type child struct{ extent, size uint32 }
	var children []child
	for off := start; off < end; {
		n := int(iso[off])
		if n == 0 {
			off = (off/constants.SectorSize + 1) * constants.SectorSize
			continue
		}
		if n < recMinimum || off+n > end {
			return errors.New("truncated directory record")
		}
		rec := iso[off : off+n]
		ext := binary.LittleEndian.Uint32(rec[recExtent:])
		nameLen := int(rec[recNameLen])
		self := nameLen == 1 && (rec[recName] == 0 || rec[recName] == 1)
		if rec[recFlags]&flagIsDir != 0 && !self {
			children = append(children, child{ext, binary.LittleEndian.Uint32(rec[recSize:])})
		}
		putBoth(rec[recExtent:], ext+base)
		off += n
	}

	for _, c := range children {
		if err := shiftDirectory(iso, c.extent, c.size, base, seen, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// putBoth stores v in ISO9660 both-byte-order form.
func putBoth(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b[0:4], v)
	binary.BigEndian.PutUint32(b[4:8], v)
}
