package output

import (
	"strconv"

	"github.com/agentstation/gdcard/pkg/bootheader"
	"github.com/agentstation/gdcard/pkg/catalog"
)

// Entry is the printable view of a catalog entry.
type Entry struct {
	Slot     int                `json:"slot" yaml:"slot"`
	Name     string             `json:"name" yaml:"name"`
	Serial   string             `json:"serial" yaml:"serial"`
	Disc     string             `json:"disc" yaml:"disc"`
	Location string             `json:"location" yaml:"location"`
	Format   string             `json:"format" yaml:"format"`
	Length   int64              `json:"length" yaml:"length"`
	Folder   string             `json:"folder,omitempty" yaml:"folder,omitempty"`
	Error    string             `json:"error,omitempty" yaml:"error,omitempty"`
	Header   *bootheader.Header `json:"header,omitempty" yaml:"header,omitempty"`
}

// Entries is a list of entries printed one row each.
type Entries []Entry

// FromCatalog converts catalog entries for printing. Headers are included
// when withHeader is set.
func FromCatalog(entries []*catalog.Entry, withHeader bool) Entries {
	out := make(Entries, 0, len(entries))
	for _, e := range entries {
		view := Entry{
			Slot:     e.Slot(),
			Name:     e.Name(),
			Serial:   e.Serial(),
			Disc:     e.Disc(),
			Location: e.Location().String(),
			Format:   e.Format().String(),
			Length:   e.Length(),
			Folder:   e.Folder(),
			Error:    e.Err(),
		}
		if withHeader {
			view.Header = e.Header()
		}
		out = append(out, view)
	}
	return out
}

// Table implements Tabular.
func (es Entries) Table() Data {
	data := Data{
		Headers:         []string{"Slot", "Name", "Serial", "Disc", "Location", "Size"},
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignLeft, AlignCenter, AlignLeft, AlignRight},
	}
	for _, e := range es {
		slot := "-"
		if e.Slot > 0 {
			slot = strconv.Itoa(e.Slot)
		}
		name := e.Name
		if e.Error != "" {
			name += " (!)"
		}
		data.Rows = append(data.Rows, []string{slot, name, e.Serial, e.Disc, e.Location, Size(e.Length)})
	}
	return data
}
