package ingest

import (
	"github.com/agentstation/gdcard/pkg/archive"
	"github.com/agentstation/gdcard/pkg/optical"
	"github.com/agentstation/gdcard/pkg/psxdb"
)

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithReader replaces the native optical reader.
func WithReader(r optical.Reader) Option {
	return func(in *Ingestor) {
		if r != nil {
			in.reader = r
		}
	}
}

// WithLister replaces the archive lister.
func WithLister(l archive.Lister) Option {
	return func(in *Ingestor) {
		if l != nil {
			in.lister = l
		}
	}
}

// WithPlayStationDB replaces the bundled PlayStation title database.
func WithPlayStationDB(db *psxdb.DB) Option {
	return func(in *Ingestor) {
		if db != nil {
			in.db = db
		}
	}
}
