// Package featurize turns molecules into fixed-length numeric feature
// vectors for model training.  A Featurizer names its output columns up
// front so vectors from different molecules always line up.
package featurize

import (
	"github.com/turtacn/ChemPrep/internal/domain/molecule"
	"github.com/turtacn/ChemPrep/pkg/errors"
)

// Featurizer computes one feature vector per molecule.  Names returns the
// column labels, in the order Featurize emits values.
type Featurizer interface {
	Names() []string
	Featurize(mol *molecule.Molecule) ([]float64, error)
}

// MolecularWeight is the single-column molecular weight featurizer.
type MolecularWeight struct{}

// Names returns the single "mw" column.
func (MolecularWeight) Names() []string { return []string{"mw"} }

// Featurize computes the implicit-hydrogen-aware molecular weight.
func (MolecularWeight) Featurize(mol *molecule.Molecule) ([]float64, error) {
	mw, err := mol.MolecularWeight()
	if err != nil {
		return nil, err
	}
	return []float64{mw}, nil
}

// Descriptors evaluates a configurable list of named scalar descriptors.
type Descriptors struct {
	names []string
}

// NewDescriptors builds a descriptor featurizer over the given names, or
// over the full registry when none are given.  Unknown names fail up front
// rather than on the first molecule.
func NewDescriptors(names ...string) (*Descriptors, error) {
	if len(names) == 0 {
		names = molecule.DescriptorNames()
	}
	probe := molecule.MustParseSMILES("C")
	for _, n := range names {
		if _, err := probe.Descriptor(n); err != nil {
			if errors.IsCode(err, errors.ErrCodeDescriptorUnknown) {
				return nil, err
			}
		}
	}
	return &Descriptors{names: names}, nil
}

// Names returns the descriptor names, in evaluation order.
func (d *Descriptors) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Featurize evaluates every descriptor against the molecule.
func (d *Descriptors) Featurize(mol *molecule.Molecule) ([]float64, error) {
	values := make([]float64, len(d.names))
	for i, n := range d.names {
		v, err := mol.Descriptor(n)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}
