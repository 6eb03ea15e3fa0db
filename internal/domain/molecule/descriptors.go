package molecule

import (
	"sort"

	"github.com/turtacn/ChemPrep/pkg/errors"
)

// atomicMass holds average atomic masses (u) for the elements this layer
// handles.  Values from the IUPAC 2021 standard atomic weights, rounded.
var atomicMass = map[string]float64{
	"H": 1.008, "B": 10.811, "C": 12.011, "N": 14.007, "O": 15.999,
	"F": 18.998, "Na": 22.990, "Mg": 24.305, "Al": 26.982, "Si": 28.086,
	"P": 30.974, "S": 32.06, "Cl": 35.45, "K": 39.098, "Ca": 40.078,
	"Fe": 55.845, "Co": 58.933, "Ni": 58.693, "Cu": 63.546, "Zn": 65.38,
	"As": 74.922, "Se": 78.971, "Br": 79.904, "Ag": 107.87, "Sn": 118.71,
	"Te": 127.60, "I": 126.90, "Pt": 195.08, "Au": 196.97, "Hg": 200.59,
	"Pb": 207.2, "Li": 6.94, "Mn": 54.938,
}

// MolecularWeight returns the molecular weight in unified atomic mass units,
// including implicit and explicit hydrogens.  Elements missing from the mass
// table yield an ErrCodeDescriptorFailed error rather than a silent zero.
func (m *Molecule) MolecularWeight() (float64, error) {
	var weight float64
	for i, atom := range m.Atoms {
		mass, ok := atomicMass[atom.Element]
		if !ok {
			return 0, errors.New(errors.ErrCodeDescriptorFailed, "no atomic mass for element").
				WithDetail(atom.Element)
		}
		weight += mass
		weight += float64(m.ImplicitHCount(i)) * atomicMass["H"]
	}
	return weight, nil
}

// DescriptorFunc computes one named scalar descriptor for a molecule.
type DescriptorFunc func(*Molecule) (float64, error)

// descriptorRegistry is the open-ended list of named scalar descriptors.
// The set intentionally stays at the "countable from the graph" level; ring
// and aromaticity figures use the written aromatic form, not perception.
var descriptorRegistry = map[string]DescriptorFunc{
	"mw": func(m *Molecule) (float64, error) {
		return m.MolecularWeight()
	},
	"heavy_atom_count": func(m *Molecule) (float64, error) {
		return float64(len(m.Atoms)), nil
	},
	"atom_count": func(m *Molecule) (float64, error) {
		return float64(m.TotalAtomCount()), nil
	},
	"bond_count": func(m *Molecule) (float64, error) {
		return float64(len(m.Bonds)), nil
	},
	"ring_count": func(m *Molecule) (float64, error) {
		// Cyclomatic number: bonds - atoms + components.
		return float64(len(m.Bonds) - len(m.Atoms) + m.componentCount()), nil
	},
	"aromatic_atom_count": func(m *Molecule) (float64, error) {
		n := 0
		for _, a := range m.Atoms {
			if a.Aromatic {
				n++
			}
		}
		return float64(n), nil
	},
	"hetero_atom_count": func(m *Molecule) (float64, error) {
		n := 0
		for _, a := range m.Atoms {
			if a.Element != "C" && a.Element != "H" {
				n++
			}
		}
		return float64(n), nil
	},
	"hbd": func(m *Molecule) (float64, error) {
		// Lipinski-style donor count: N or O carrying at least one hydrogen.
		n := 0
		for i, a := range m.Atoms {
			if (a.Element == "N" || a.Element == "O") && m.ImplicitHCount(i) > 0 {
				n++
			}
		}
		return float64(n), nil
	},
	"hba": func(m *Molecule) (float64, error) {
		// Lipinski-style acceptor count: any N or O.
		n := 0
		for _, a := range m.Atoms {
			if a.Element == "N" || a.Element == "O" {
				n++
			}
		}
		return float64(n), nil
	},
	"formal_charge": func(m *Molecule) (float64, error) {
		n := 0
		for _, a := range m.Atoms {
			n += a.Charge
		}
		return float64(n), nil
	},
}

// componentCount returns the number of connected fragments.
func (m *Molecule) componentCount() int {
	adj := m.neighbors()
	seen := make([]bool, len(m.Atoms))
	count := 0
	for a := range m.Atoms {
		if !seen[a] {
			count++
			m.markComponent(a, adj, seen)
		}
	}
	return count
}

// DescriptorNames returns the registered descriptor names in sorted order.
// The order is stable across processes so that descriptor vectors computed
// from it line up between runs.
func DescriptorNames() []string {
	names := make([]string, 0, len(descriptorRegistry))
	for name := range descriptorRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptor computes the named descriptor for the molecule.
func (m *Molecule) Descriptor(name string) (float64, error) {
	fn, ok := descriptorRegistry[name]
	if !ok {
		return 0, errors.New(errors.ErrCodeDescriptorUnknown, "unknown descriptor").WithDetail(name)
	}
	return fn(m)
}
