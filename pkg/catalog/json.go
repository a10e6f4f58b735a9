package catalog

import (
	"github.com/goccy/go-json"

	"github.com/agentstation/gdcard/pkg/bootheader"
)

// snapshot is the item.json layout written next to each game on the card.
type snapshot struct {
	Length        length             `json:"Length"`
	Name          string             `json:"Name"`
	ProductNumber string             `json:"ProductNumber"`
	ImageFiles    []string           `json:"ImageFiles"`
	SourcePath    string             `json:"SourcePath,omitempty"`
	Ip            *bootheader.Header `json:"Ip,omitempty"`
	SdNumber      int                `json:"SdNumber"`
	IsShrunk      bool               `json:"IsShrunk"`
	FileFormat    FileFormat         `json:"FileFormat"`
	ErrorState    string             `json:"ErrorState,omitempty"`
}

type length struct {
	Bytes int64 `json:"Bytes"`
}

// MarshalJSON encodes the persisted fields of the entry.
func (e *Entry) MarshalJSON() ([]byte, error) {
	e.mu.RLock()
	s := snapshot{
		Length:        length{Bytes: e.length},
		Name:          e.name,
		ProductNumber: e.serial,
		ImageFiles:    append([]string{}, e.files...),
		SourcePath:    e.sourcePath,
		Ip:            e.header,
		SdNumber:      e.slot,
		IsShrunk:      e.shrunk,
		FileFormat:    e.format,
		ErrorState:    e.errText,
	}
	e.mu.RUnlock()
	return json.Marshal(s)
}

// UnmarshalJSON decodes a snapshot into the entry. Setters are not used so
// no notifications are sent; name and serial limits still apply.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	limits := e.limitsLocked()
	e.length = s.Length.Bytes
	e.name = CleanName(s.Name, limits.NameMax)
	e.serial = capRunes(s.ProductNumber, limits.SerialMax)
	e.files = nil
	for _, f := range s.ImageFiles {
		e.files = appendUnique(e.files, f)
	}
	e.sourcePath = s.SourcePath
	e.header = s.Ip
	e.slot = s.SdNumber
	e.shrunk = s.IsShrunk
	e.format = s.FileFormat
	e.errText = s.ErrorState
	return nil
}
