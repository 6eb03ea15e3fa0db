package cli

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChemPrep/internal/application/featurize"
	"github.com/turtacn/ChemPrep/internal/domain/molecule"
	redcache "github.com/turtacn/ChemPrep/internal/infrastructure/cache/redis"
	"github.com/turtacn/ChemPrep/internal/infrastructure/chemio"
	"github.com/turtacn/ChemPrep/internal/logging"
	"github.com/turtacn/ChemPrep/pkg/errors"
)

type featurizeOptions struct {
	Descriptors string
	Output      string
}

func newFeaturizeCommand() *cobra.Command {
	opts := &featurizeOptions{}

	cmd := &cobra.Command{
		Use:   "featurize <input-file>",
		Short: "Compute descriptor vectors for every molecule in a file",
		Long:  "Reads molecules from the input file, evaluates the selected\ndescriptors, and writes one CSV row per molecule: name, canonical\nSMILES, then the descriptor columns.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeaturize(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Descriptors, "descriptors", "", "comma-separated descriptor names (default: all)")
	f.StringVar(&opts.Output, "out", "", "output CSV file (default: stdout)")

	return cmd
}

func runFeaturize(cmd *cobra.Command, input string, opts *featurizeOptions) error {
	app, err := getApp(cmd)
	if err != nil {
		return err
	}

	var names []string
	if opts.Descriptors != "" {
		names = strings.Split(opts.Descriptors, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
	}
	feat, err := featurize.NewDescriptors(names...)
	if err != nil {
		return err
	}

	var cache featurize.Cache
	if app.Config.Cache.Enabled {
		c, err := redcache.NewDescriptorCache(app.Config.Cache, app.Logger)
		if err != nil {
			return err
		}
		cache = c
	}
	svc := featurize.NewService(feat, cache, app.Logger, app.Metrics)

	mols, err := readAllMolecules(input)
	if err != nil {
		return err
	}
	batch, err := svc.FeaturizeBatch(cmd.Context(), mols)
	if err != nil {
		return err
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
	if err := writeCSV(out, batch); err != nil {
		return err
	}

	app.Logger.Info("featurization complete",
		logging.String("run_id", batch.RunID),
		logging.Int("molecules", len(batch.Results)))
	return nil
}

// readAllMolecules drains the input file into memory.
func readAllMolecules(path string) ([]*molecule.Molecule, error) {
	r, err := chemio.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var mols []*molecule.Molecule
	for {
		mol, err := r.Read()
		if err == io.EOF {
			return mols, nil
		}
		if err != nil {
			return nil, err
		}
		mols = append(mols, mol)
	}
}

// writeCSV emits the batch as name, smiles, then one column per descriptor.
func writeCSV(out io.Writer, batch *featurize.BatchResult) error {
	w := csv.NewWriter(out)
	header := append([]string{"name", "smiles"}, batch.Names...)
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, errors.ErrCodeDestUnwritable, "failed to write CSV header")
	}
	for _, res := range batch.Results {
		row := make([]string, 0, len(header))
		row = append(row, res.Name, res.Smiles)
		for _, v := range res.Values {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, errors.ErrCodeDestUnwritable, "failed to write CSV row").WithDetail(res.Name)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDestUnwritable, "failed to flush CSV output")
	}
	return nil
}
