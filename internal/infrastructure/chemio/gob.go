package chemio

import (
	"encoding/gob"
	"io"

	"github.com/turtacn/ChemPrep/internal/domain/molecule"
	"github.com/turtacn/ChemPrep/pkg/errors"
)

// The gob flavor is the serialized-object format: a single gob stream of
// molecule values.  Unlike SDF it round-trips the full record, including
// explicit hydrogen counts, chirality tags, and stereo bonds.

type gobReader struct {
	dec     *gob.Decoder
	closers []io.Closer
}

func newGobReader(src io.Reader, closers []io.Closer) *gobReader {
	return &gobReader{dec: gob.NewDecoder(src), closers: closers}
}

func (r *gobReader) Close() error { return closeAll(r.closers) }

func (r *gobReader) Read() (*molecule.Molecule, error) {
	var mol molecule.Molecule
	if err := r.dec.Decode(&mol); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, errors.ErrCodeRecordCorrupt, "failed to decode gob record")
	}
	if err := mol.Validate(); err != nil {
		return nil, err
	}
	return &mol, nil
}

type gobWriter struct {
	enc     *gob.Encoder
	closers []io.Closer
}

func newGobWriter(dst io.Writer, closers []io.Closer) *gobWriter {
	return &gobWriter{enc: gob.NewEncoder(dst), closers: closers}
}

func (w *gobWriter) Close() error { return closeAll(w.closers) }

func (w *gobWriter) Write(mol *molecule.Molecule) error {
	if err := w.enc.Encode(mol); err != nil {
		return errors.Wrap(err, errors.ErrCodeDestUnwritable, "failed to encode gob record").WithDetail(mol.Name)
	}
	return nil
}
