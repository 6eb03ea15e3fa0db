// Package dataset splits molecule files into fixed-size shards for
// downstream featurization.  Sharding is lazy: molecules are pulled from the
// source one shard at a time, so arbitrarily large inputs stream through a
// bounded amount of memory.
package dataset

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/turtacn/ChemPrep/internal/domain/molecule"
	"github.com/turtacn/ChemPrep/internal/infrastructure/chemio"
	"github.com/turtacn/ChemPrep/internal/logging"
	"github.com/turtacn/ChemPrep/internal/metrics"
	"github.com/turtacn/ChemPrep/pkg/errors"
)

// Uploader pushes a written shard file to object storage.  The object name
// is the shard filename without its directory.
type Uploader interface {
	UploadFile(ctx context.Context, localPath, objectName string) error
}

// Options configures a Sharder.  Zero values fall back to sensible defaults;
// Prefix in particular defaults to GuessPrefix of the source path.
type Options struct {
	// ShardSize is the number of molecules per shard.
	ShardSize int

	// Prefix names output shards; empty means GuessPrefix(sourcePath).
	Prefix string

	// Flavor is the output file flavor ("sdf", "sdf.gz", "gob", "gob.gz").
	Flavor string

	// Write controls whether shards are persisted to OutDir as they are
	// produced.  The shard index advances either way, so a dry run and a
	// writing run number their shards identically.
	Write bool

	// OutDir receives shard files; empty means the current directory.
	OutDir string

	// StartIndex is the index of the first shard produced.
	StartIndex int

	// Uploader, when set, receives every written shard file.
	Uploader Uploader

	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// Sharder batches molecules from a source file into shards.  ShardSize,
// Prefix, Flavor, Write, and Index are plain fields and may be adjusted
// between calls to Next; a size change applies to the next shard produced.
//
// A Sharder is not safe for concurrent use.
type Sharder struct {
	ShardSize int
	Prefix    string
	Flavor    string
	Write     bool
	OutDir    string
	Index     int

	reader   chemio.Reader
	uploader Uploader
	log      logging.Logger
	metrics  *metrics.Metrics
	done     bool
}

// GuessPrefix derives a shard prefix from a source path: the base name with
// its extension stripped, where a compression suffix strips together with the
// format extension, so "../foo.bar.gz" yields "foo".
func GuessPrefix(sourcePath string) string {
	base := filepath.Base(sourcePath)
	parts := strings.Split(base, ".")
	switch last := parts[len(parts)-1]; {
	case len(parts) >= 3 && (last == "gz" || last == "bz2" || last == "zst"):
		return strings.Join(parts[:len(parts)-2], ".")
	case len(parts) >= 2:
		return strings.Join(parts[:len(parts)-1], ".")
	default:
		return base
	}
}

// NewSharder opens sourcePath and returns a Sharder over its molecules.
// The caller must Close the Sharder unless it is drained to io.EOF, which
// releases the source handle automatically.
func NewSharder(sourcePath string, opts Options) (*Sharder, error) {
	if opts.ShardSize <= 0 {
		return nil, errors.New(errors.ErrCodeShardSizeInvalid, "shard size must be positive").
			WithDetail(fmt.Sprintf("size=%d", opts.ShardSize))
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = GuessPrefix(sourcePath)
	}
	flavor := opts.Flavor
	if flavor == "" {
		flavor = chemio.FlavorGobGz
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewUnregistered()
	}

	reader, err := chemio.Open(sourcePath)
	if err != nil {
		return nil, err
	}

	return &Sharder{
		ShardSize: opts.ShardSize,
		Prefix:    prefix,
		Flavor:    flavor,
		Write:     opts.Write,
		OutDir:    opts.OutDir,
		Index:     opts.StartIndex,
		reader:    reader,
		uploader:  opts.Uploader,
		log:       log.Named("sharder"),
		metrics:   m,
	}, nil
}

// NextFilename returns the filename the next shard would be written to.
// It reads but never advances the shard index, so repeated calls return the
// same name until a shard is produced.
func (s *Sharder) NextFilename() string {
	return filepath.Join(s.OutDir, fmt.Sprintf("%s-%d.%s", s.Prefix, s.Index, s.Flavor))
}

// Next produces the next shard, reading up to ShardSize molecules from the
// source.  The final shard may be short.  After the source is exhausted the
// handle is closed and every subsequent call returns io.EOF.
//
// When writing is enabled the shard is persisted to NextFilename before it
// is returned; the index advances once per shard either way.
func (s *Sharder) Next(ctx context.Context) ([]*molecule.Molecule, error) {
	if s.done {
		return nil, io.EOF
	}
	if s.ShardSize <= 0 {
		s.Close()
		return nil, errors.New(errors.ErrCodeShardSizeInvalid, "shard size must be positive").
			WithDetail(fmt.Sprintf("size=%d", s.ShardSize))
	}

	var shard []*molecule.Molecule
	for len(shard) < s.ShardSize {
		if err := ctx.Err(); err != nil {
			s.Close()
			return nil, err
		}
		mol, err := s.reader.Read()
		if err == io.EOF {
			s.Close()
			break
		}
		if err != nil {
			s.Close()
			return nil, err
		}
		shard = append(shard, mol)
		s.metrics.MoleculesRead.Inc()
	}
	if len(shard) == 0 {
		return nil, io.EOF
	}

	filename := s.NextFilename()
	if s.Write {
		if err := s.writeShard(ctx, filename, shard); err != nil {
			s.Close()
			return nil, err
		}
	}
	s.Index++

	s.log.Debug("produced shard",
		logging.String("file", filename),
		logging.Int("molecules", len(shard)),
		logging.Bool("written", s.Write))
	return shard, nil
}

// writeShard persists one shard and hands it to the uploader when present.
func (s *Sharder) writeShard(ctx context.Context, filename string, shard []*molecule.Molecule) error {
	w, err := chemio.Create(filename)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeShardWriteFailed, "failed to create shard file").WithDetail(filename)
	}
	for _, mol := range shard {
		if err := w.Write(mol); err != nil {
			w.Close()
			return errors.Wrap(err, errors.ErrCodeShardWriteFailed, "failed to write shard record").WithDetail(filename)
		}
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeShardWriteFailed, "failed to close shard file").WithDetail(filename)
	}
	s.metrics.ShardsWritten.Inc()

	if s.uploader != nil {
		object := filepath.Base(filename)
		if err := s.uploader.UploadFile(ctx, filename, object); err != nil {
			return errors.Wrap(err, errors.ErrCodeShardUploadFailed, "failed to upload shard").WithDetail(object)
		}
		s.metrics.ShardUploads.Inc()
	}
	return nil
}

// Report summarises a full sharding run.
type Report struct {
	Shards    int
	Molecules int
	Files     []string
}

// Shard drains the source, producing every remaining shard, and returns a
// run summary.  Files lists the filenames shards were (or would have been)
// written to.
func (s *Sharder) Shard(ctx context.Context) (*Report, error) {
	report := &Report{}
	for {
		filename := s.NextFilename()
		shard, err := s.Next(ctx)
		if err == io.EOF {
			return report, nil
		}
		if err != nil {
			return report, err
		}
		report.Shards++
		report.Molecules += len(shard)
		report.Files = append(report.Files, filename)
	}
}

// Close releases the source handle.  It is safe to call more than once and
// after exhaustion.
func (s *Sharder) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.reader.Close()
}
