package optical

import (
	"context"

	"github.com/spf13/afero"

	"github.com/agentstation/gdcard/pkg/errors"
)

// NativeReader opens GDI and CloneCD images. Other formats return
// ErrUnsupportedFormat so callers fall through to a raw search.
type NativeReader struct {
	Fs afero.Fs
}

// NewNativeReader returns a reader over fs.
func NewNativeReader(fs afero.Fs) *NativeReader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &NativeReader{Fs: fs}
}

// Open opens the image at path.
func (r *NativeReader) Open(ctx context.Context, path string) (Image, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, errors.WrapImage(path, "", errors.ErrUnsupportedFormat)
	}
	switch format {
	case GDI:
		return openGDI(ctx, r.Fs, path)
	case CCD:
		return openCCD(ctx, r.Fs, path)
	case CDI, MDS:
		return nil, errors.WrapImage(path, format.String(), errors.ErrUnsupportedFormat)
	default:
		return nil, errors.WrapImage(path, format.String(), errors.ErrUnsupportedFormat)
	}
}
