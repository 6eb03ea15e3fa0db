// Package molecule provides the molecule record used throughout ChemPrep:
// a small in-memory molecular graph parsed from SMILES or SDF, with named
// properties that survive serialization, canonical SMILES generation, and a
// registry of scalar descriptors.
//
// This is deliberately a minimal cheminformatics layer.  It covers the organic
// subset plus bracket atoms, aromatic perception as written (no Kekulé
// conversion), and an implicit-hydrogen valence model: enough for dataset
// preparation and descriptor featurization, not for reaction chemistry.
package molecule

import (
	"fmt"
	"sort"

	"github.com/turtacn/ChemPrep/pkg/errors"
)

// Chirality tags carried on bracket atoms.
const (
	ChiralityNone = ""
	ChiralityCCW  = "@"
	ChiralityCW   = "@@"
)

// Atom is a single atom node in the molecular graph.
type Atom struct {
	// Element is the atomic symbol with standard capitalisation ("C", "Cl").
	Element string

	// Aromatic marks atoms written in lowercase aromatic form.
	Aromatic bool

	// Charge is the formal charge.
	Charge int

	// Isotope is the isotope number, 0 when unspecified.
	Isotope int

	// HCount is the explicit hydrogen count from a bracket atom, or -1 when
	// hydrogens are implicit and derived from the valence model.
	HCount int

	// Chirality is the tetrahedral parity tag ("", "@", "@@").
	Chirality string
}

// Bond stereo markers for double-bond geometry.
const (
	BondStereoNone = byte(0)
	BondStereoUp   = byte('/')
	BondStereoDown = byte('\\')
)

// Bond is an edge between two atoms, indexed into Molecule.Atoms.
type Bond struct {
	From, To int

	// Order is 1, 2 or 3.  Aromatic bonds carry Order 1 with Aromatic set.
	Order    int
	Aromatic bool

	// Stereo is a directional single-bond marker for cis/trans geometry.
	Stereo byte
}

// Molecule is the molecule record.  All fields are exported so that the gob
// flavor can serialize records without custom codecs; Props round-trips
// through every writer/reader pair.
type Molecule struct {
	// Name is the declared identifier (the SDF title line / _Name analog).
	Name string

	Atoms []Atom
	Bonds []Bond

	// Props holds arbitrary named properties attached to the molecule.
	Props map[string]string
}

// SetProp attaches a named property, allocating the map on first use.
func (m *Molecule) SetProp(key, value string) {
	if m.Props == nil {
		m.Props = make(map[string]string)
	}
	m.Props[key] = value
}

// Prop returns the named property and whether it was present.
func (m *Molecule) Prop(key string) (string, bool) {
	v, ok := m.Props[key]
	return v, ok
}

// PropKeys returns the property keys in sorted order, for deterministic
// serialization.
func (m *Molecule) PropKeys() []string {
	keys := make([]string, 0, len(m.Props))
	for k := range m.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// neighbors returns, for every atom, the indexes of the bonds incident to it.
func (m *Molecule) neighbors() [][]int {
	adj := make([][]int, len(m.Atoms))
	for bi, b := range m.Bonds {
		adj[b.From] = append(adj[b.From], bi)
		adj[b.To] = append(adj[b.To], bi)
	}
	return adj
}

// other returns the atom on the far side of bond bi from atom a.
func (m *Molecule) other(bi, a int) int {
	b := m.Bonds[bi]
	if b.From == a {
		return b.To
	}
	return b.From
}

// defaultValence is the implicit-hydrogen valence model for the organic
// subset.  Atoms outside this table get no implicit hydrogens.
var defaultValence = map[string]int{
	"B": 3, "C": 4, "N": 3, "O": 2, "P": 3, "S": 2,
	"F": 1, "Cl": 1, "Br": 1, "I": 1,
}

// ImplicitHCount returns the hydrogen count for atom index a.  Bracket atoms
// report their explicit count; organic-subset atoms fill their default
// valence after subtracting bond orders (aromatic atoms donate one valence to
// the ring system).
func (m *Molecule) ImplicitHCount(a int) int {
	atom := m.Atoms[a]
	if atom.HCount >= 0 {
		return atom.HCount
	}
	valence, ok := defaultValence[atom.Element]
	if !ok {
		return 0
	}
	used := 0
	for _, bi := range m.neighbors()[a] {
		used += m.Bonds[bi].Order
	}
	if atom.Aromatic {
		used++
	}
	// Formal charge shifts the effective valence directly: N+ binds four,
	// O- binds one.  The usual organic-subset approximation.
	h := valence + atom.Charge - used
	if h < 0 {
		return 0
	}
	return h
}

// TotalAtomCount returns heavy atoms plus implicit and explicit hydrogens.
func (m *Molecule) TotalAtomCount() int {
	n := len(m.Atoms)
	for i := range m.Atoms {
		n += m.ImplicitHCount(i)
	}
	return n
}

// Validate performs structural sanity checks on a deserialized molecule:
// bond endpoints in range and no self-bonds.  Readers call this so that a
// corrupt record fails loudly instead of producing a broken graph.
func (m *Molecule) Validate() error {
	for bi, b := range m.Bonds {
		if b.From < 0 || b.From >= len(m.Atoms) || b.To < 0 || b.To >= len(m.Atoms) {
			return errors.New(errors.ErrCodeRecordCorrupt, "bond endpoint out of range").
				WithDetail(fmt.Sprintf("bond=%d from=%d to=%d atoms=%d", bi, b.From, b.To, len(m.Atoms)))
		}
		if b.From == b.To {
			return errors.New(errors.ErrCodeRecordCorrupt, "self-bond").
				WithDetail(fmt.Sprintf("bond=%d atom=%d", bi, b.From))
		}
	}
	return nil
}
