package dataset

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemPrep/internal/domain/molecule"
	"github.com/turtacn/ChemPrep/internal/infrastructure/chemio"
	"github.com/turtacn/ChemPrep/pkg/errors"
)

// writeSource creates a source file holding the given SMILES, one molecule
// per entry, named mol-0, mol-1, ...
func writeSource(t *testing.T, path string, smiles ...string) {
	t.Helper()
	w, err := chemio.Create(path)
	require.NoError(t, err)
	for i, smi := range smiles {
		mol, err := molecule.FromSmiles(smi, "mol-"+string(rune('0'+i)))
		require.NoError(t, err)
		require.NoError(t, w.Write(mol))
	}
	require.NoError(t, w.Close())
}

func newTestSharder(t *testing.T, opts Options, smiles ...string) *Sharder {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "input.sdf")
	writeSource(t, src, smiles...)
	if opts.OutDir == "" {
		opts.OutDir = dir
	}
	s, err := NewSharder(src, opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGuessPrefix(t *testing.T) {
	cases := map[string]string{
		"../foo.bar.gz":        "foo",
		"molecules.sdf":        "molecules",
		"/data/actives.sdf.gz": "actives",
		"my.data.sdf":          "my.data",
		"noext":                "noext",
	}
	for path, want := range cases {
		assert.Equal(t, want, GuessPrefix(path), path)
	}
}

func TestSharder_BatchesLazily(t *testing.T) {
	s := newTestSharder(t, Options{ShardSize: 2}, "CCO", "c1ccccc1", "CC(=O)O")
	ctx := context.Background()

	first, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, "mol-0", first[0].Name)
	assert.Equal(t, 1, s.Index)

	second, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 1)
	assert.Equal(t, "mol-2", second[0].Name)
	assert.Equal(t, 2, s.Index)

	_, err = s.Next(ctx)
	assert.Equal(t, io.EOF, err)
	_, err = s.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestSharder_NextFilenameIsIdempotent(t *testing.T) {
	s := newTestSharder(t, Options{ShardSize: 2}, "C")
	s.Prefix = "foo"
	s.Flavor = "bar"
	s.OutDir = ""
	s.Index = 5

	for i := 0; i < 4; i++ {
		assert.Equal(t, "foo-5.bar", s.NextFilename())
	}
}

func TestSharder_IndexAdvancesWithoutWriting(t *testing.T) {
	// A dry run and a writing run must number shards identically.
	s := newTestSharder(t, Options{ShardSize: 1}, "C", "CC")
	ctx := context.Background()

	require.Equal(t, 0, s.Index)
	_, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Index)
	_, err = s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Index)

	assert.NoFileExists(t, filepath.Join(s.OutDir, "input-0.gob.gz"))
}

func TestSharder_ShardSizeMutableMidIteration(t *testing.T) {
	s := newTestSharder(t, Options{ShardSize: 1}, "C", "CC", "CCC", "CCCC")
	ctx := context.Background()

	first, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	s.ShardSize = 3
	second, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 3)
}

func TestSharder_WritesAndReadsBack(t *testing.T) {
	s := newTestSharder(t, Options{ShardSize: 2, Write: true, Flavor: chemio.FlavorSDF},
		"CCO", "c1ccccc1", "CC(=O)O")

	report, err := s.Shard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Shards)
	assert.Equal(t, 3, report.Molecules)
	require.Len(t, report.Files, 2)
	assert.Equal(t, "input-0.sdf", filepath.Base(report.Files[0]))
	assert.Equal(t, "input-1.sdf", filepath.Base(report.Files[1]))

	r, err := chemio.Open(report.Files[1])
	require.NoError(t, err)
	defer r.Close()
	mol, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "mol-2", mol.Name)
	_, err = r.Read()
	assert.Equal(t, io.EOF, err)
}

func TestSharder_DefaultPrefixAndFlavor(t *testing.T) {
	s := newTestSharder(t, Options{ShardSize: 1}, "C")
	assert.Equal(t, "input", s.Prefix)
	assert.Equal(t, chemio.FlavorGobGz, s.Flavor)
}

func TestNewSharder_RejectsBadSize(t *testing.T) {
	_, err := NewSharder("whatever.sdf", Options{ShardSize: 0})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeShardSizeInvalid))
}

func TestSharder_ContextCancellation(t *testing.T) {
	s := newTestSharder(t, Options{ShardSize: 1}, "C", "CC")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// The source handle is released; the sharder is spent.
	_, err = s.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

type recordingUploader struct {
	objects []string
}

func (u *recordingUploader) UploadFile(_ context.Context, _ string, object string) error {
	u.objects = append(u.objects, object)
	return nil
}

func TestSharder_UploadsWrittenShards(t *testing.T) {
	up := &recordingUploader{}
	s := newTestSharder(t, Options{ShardSize: 1, Write: true, Flavor: chemio.FlavorSDF, Uploader: up},
		"C", "CC")

	_, err := s.Shard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"input-0.sdf", "input-1.sdf"}, up.objects)
}
