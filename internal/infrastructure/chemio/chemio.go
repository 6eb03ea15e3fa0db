// Package chemio reads and writes molecule records in the dataset flavors
// ChemPrep shards and featurizes: SDF (V2000 with data items) and gob, each
// optionally gzip-compressed.  Flavor selection is by file extension, so the
// sharder can derive both the output format and the shard filename from a
// single flavor string.
package chemio

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/turtacn/ChemPrep/internal/domain/molecule"
	"github.com/turtacn/ChemPrep/pkg/errors"
)

// Reader yields molecule records one at a time, returning io.EOF after the
// last record.
type Reader interface {
	Read() (*molecule.Molecule, error)
	Close() error
}

// Writer appends molecule records to an output stream.  Close flushes any
// buffered compression state and must be called.
type Writer interface {
	Write(*molecule.Molecule) error
	Close() error
}

// Supported flavor strings, matching the file extensions they map to.
const (
	FlavorSDF   = "sdf"
	FlavorSDFGz = "sdf.gz"
	FlavorGob   = "gob"
	FlavorGobGz = "gob.gz"
)

// Flavors returns the supported flavor strings.
func Flavors() []string {
	return []string{FlavorSDF, FlavorSDFGz, FlavorGob, FlavorGobGz}
}

// FlavorOf returns the flavor implied by the path's extension, or an
// ErrCodeFormatUnsupported error for anything it does not recognise.
func FlavorOf(path string) (string, error) {
	lower := strings.ToLower(path)
	for _, f := range Flavors() {
		if strings.HasSuffix(lower, "."+f) {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrCodeFormatUnsupported, "unsupported file flavor").WithDetail(path)
}

// Open opens the file at path for reading, dispatching on its extension.
func Open(path string) (Reader, error) {
	flavor, err := FlavorOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnreadable, "failed to open input file").WithDetail(path)
	}
	r, err := NewReader(f, flavor)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Create creates (or truncates) the file at path for writing, dispatching on
// its extension.
func Create(path string) (Writer, error) {
	flavor, err := FlavorOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDestUnwritable, "failed to create output file").WithDetail(path)
	}
	w, err := NewWriter(f, flavor)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// NewReader wraps rc with the reader for the given flavor.  The returned
// Reader owns rc and closes it (and any decompression layer) on Close.
func NewReader(rc io.ReadCloser, flavor string) (Reader, error) {
	var closers []io.Closer
	closers = append(closers, rc)

	var src io.Reader = rc
	if strings.HasSuffix(flavor, ".gz") {
		gz, err := gzip.NewReader(rc)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSourceUnreadable, "failed to open gzip stream")
		}
		closers = append([]io.Closer{gz}, closers...)
		src = gz
	}

	switch strings.TrimSuffix(flavor, ".gz") {
	case FlavorSDF:
		return newSDFReader(src, closers), nil
	case FlavorGob:
		return newGobReader(src, closers), nil
	default:
		return nil, errors.New(errors.ErrCodeFormatUnsupported, "unsupported reader flavor").WithDetail(flavor)
	}
}

// NewWriter wraps wc with the writer for the given flavor.  The returned
// Writer owns wc and closes it (and any compression layer) on Close.
func NewWriter(wc io.WriteCloser, flavor string) (Writer, error) {
	var closers []io.Closer
	closers = append(closers, wc)

	var dst io.Writer = wc
	if strings.HasSuffix(flavor, ".gz") {
		gz := gzip.NewWriter(wc)
		closers = append([]io.Closer{gz}, closers...)
		dst = gz
	}

	switch strings.TrimSuffix(flavor, ".gz") {
	case FlavorSDF:
		return newSDFWriter(dst, closers), nil
	case FlavorGob:
		return newGobWriter(dst, closers), nil
	default:
		return nil, errors.New(errors.ErrCodeFormatUnsupported, "unsupported writer flavor").WithDetail(flavor)
	}
}

// closeAll closes the layered streams innermost first, keeping the first
// error seen.
func closeAll(closers []io.Closer) error {
	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
