package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChemPrep/internal/domain/smiles"
	"github.com/turtacn/ChemPrep/internal/logging"
	"github.com/turtacn/ChemPrep/pkg/errors"
)

type smilesMapOptions struct {
	Prefix          string
	AllowDuplicates bool
	Strict          bool
	Output          string
}

func newSmilesMapCommand() *cobra.Command {
	opts := &smilesMapOptions{}

	cmd := &cobra.Command{
		Use:   "smilesmap <input-file>",
		Short: "Build an identifier-to-canonical-SMILES map from a molecule file",
		Long:  "Reads molecules from the input file and accumulates a map from each\nmolecule's name to its isomeric canonical SMILES.  Conflicting entries\nare reported and skipped unless --strict aborts on the first one.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmilesMap(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Prefix, "prefix", "", "prefix for bare numeric identifiers (default from config)")
	f.BoolVar(&opts.AllowDuplicates, "allow-duplicates", false, "permit the same structure under several identifiers")
	f.BoolVar(&opts.Strict, "strict", false, "abort on the first conflicting molecule")
	f.StringVar(&opts.Output, "out", "", "output JSON file (default: stdout)")

	return cmd
}

func runSmilesMap(cmd *cobra.Command, input string, opts *smilesMapOptions) error {
	app, err := getApp(cmd)
	if err != nil {
		return err
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = app.Config.SmilesMap.Prefix
	}
	allowDup := opts.AllowDuplicates || app.Config.SmilesMap.AllowDuplicates

	m := smiles.NewMap(prefix, allowDup, app.Logger, app.Metrics)

	mols, err := readAllMolecules(input)
	if err != nil {
		return err
	}

	rejected := 0
	for _, mol := range mols {
		if err := m.Add(mol); err != nil {
			if opts.Strict || !errors.IsValidation(err) {
				return err
			}
			rejected++
			app.Logger.Warn("skipping conflicting molecule",
				logging.String("name", mol.Name),
				logging.Err(err))
		}
	}

	out := cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDestUnwritable, "failed to create output file").
				WithDetail(opts.Output)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.Get()); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode SMILES map")
	}

	app.Logger.Info("smiles map complete",
		logging.Int("entries", m.Len()),
		logging.Int("rejected", rejected))
	return nil
}
