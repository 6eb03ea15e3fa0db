package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemPrep/internal/domain/molecule"
	"github.com/turtacn/ChemPrep/internal/infrastructure/chemio"
)

// writeInput creates an SDF input file with the given named SMILES.
func writeInput(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	w, err := chemio.Create(path)
	require.NoError(t, err)
	// Sorted for deterministic shard contents.
	var names []string
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		mol, err := molecule.FromSmiles(entries[name], name)
		require.NoError(t, err)
		require.NoError(t, w.Write(mol))
	}
	require.NoError(t, w.Close())
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestShardCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "drugs.sdf")
	writeInput(t, src, map[string]string{
		"aspirin":   "CC(=O)Oc1ccccc1C(=O)O",
		"celecoxib": "Cc1ccc(cc1)c1cc(n(n1)c1ccc(cc1)S(=O)(=O)N)C(F)(F)F",
		"ibuprofen": "CC(C)Cc1ccc(cc1)C(C)C(=O)O",
	})

	out, err := runCLI(t, "shard", src, "--size", "2", "--flavor", "sdf", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "3 molecules in 2 shards")
	assert.FileExists(t, filepath.Join(dir, "drugs-0.sdf"))
	assert.FileExists(t, filepath.Join(dir, "drugs-1.sdf"))

	r, err := chemio.Open(filepath.Join(dir, "drugs-0.sdf"))
	require.NoError(t, err)
	defer r.Close()
	first, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "aspirin", first.Name)
}

func TestShardCommand_DryRun(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "drugs.sdf")
	writeInput(t, src, map[string]string{"aspirin": "CC(=O)Oc1ccccc1C(=O)O"})

	out, err := runCLI(t, "shard", src, "--size", "1", "--flavor", "sdf", "--out", dir, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "1 molecules in 1 shards")
	assert.NoFileExists(t, filepath.Join(dir, "drugs-0.sdf"))
}

func TestFeaturizeCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "drugs.sdf")
	writeInput(t, src, map[string]string{
		"aspirin":   "CC(=O)Oc1ccccc1C(=O)O",
		"ibuprofen": "CC(C)Cc1ccc(cc1)C(C)C(=O)O",
	})
	outFile := filepath.Join(dir, "features.csv")

	_, err := runCLI(t, "featurize", src, "--descriptors", "mw,hba", "--out", outFile)
	require.NoError(t, err)
	require.FileExists(t, outFile)

	data, err := readCSVFile(outFile)
	require.NoError(t, err)
	require.Len(t, data, 3)
	assert.Equal(t, []string{"name", "smiles", "mw", "hba"}, data[0])
	assert.Equal(t, "aspirin", data[1][0])
	assert.True(t, strings.HasPrefix(data[1][2], "180.1"), "mw column: %s", data[1][2])
}

func TestFeaturizeCommand_UnknownDescriptor(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "drugs.sdf")
	writeInput(t, src, map[string]string{"aspirin": "CC(=O)Oc1ccccc1C(=O)O"})

	_, err := runCLI(t, "featurize", src, "--descriptors", "logp")
	assert.Error(t, err)
}

func TestSmilesMapCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "drugs.sdf")
	writeInput(t, src, map[string]string{
		"aspirin":   "CC(=O)Oc1ccccc1C(=O)O",
		"ibuprofen": "CC(C)Cc1ccc(cc1)C(C)C(=O)O",
	})
	outFile := filepath.Join(dir, "map.json")

	_, err := runCLI(t, "smilesmap", src, "--out", outFile)
	require.NoError(t, err)

	m, err := readJSONMap(outFile)
	require.NoError(t, err)
	require.Len(t, m, 2)
	assert.Equal(t, molecule.MustParseSMILES("CC(=O)Oc1ccccc1C(=O)O").CanonicalSMILES(true), m["aspirin"])
}

func TestSmilesMapCommand_SkipsConflicts(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "drugs.sdf")
	// Same structure under two names conflicts without --allow-duplicates.
	writeInput(t, src, map[string]string{
		"ethanol": "CCO",
		"alcohol": "OCC",
	})
	outFile := filepath.Join(dir, "map.json")

	_, err := runCLI(t, "smilesmap", src, "--out", outFile)
	require.NoError(t, err)
	m, err := readJSONMap(outFile)
	require.NoError(t, err)
	assert.Len(t, m, 1)

	_, err = runCLI(t, "smilesmap", src, "--strict", "--out", outFile)
	assert.Error(t, err)

	_, err = runCLI(t, "smilesmap", src, "--allow-duplicates", "--out", outFile)
	require.NoError(t, err)
	m, err = readJSONMap(outFile)
	require.NoError(t, err)
	assert.Len(t, m, 2)
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).ReadAll()
}

func readJSONMap(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
