// Package smiles accumulates identifier to canonical-SMILES mappings with
// the uniqueness guarantees a dataset index needs: one structure per
// identifier, optionally one identifier per structure, and no bare numeric
// identifiers without a namespace prefix.
package smiles

import (
	"github.com/turtacn/ChemPrep/internal/domain/molecule"
	"github.com/turtacn/ChemPrep/internal/logging"
	"github.com/turtacn/ChemPrep/internal/metrics"
	"github.com/turtacn/ChemPrep/pkg/errors"
)

// Map builds an identifier to isomeric canonical SMILES mapping from
// molecules added one at a time.  A failed Add leaves the map unchanged, so
// callers may log the error and keep importing.
//
// A Map is a plain in-memory accumulator and is not safe for concurrent
// mutation.
type Map struct {
	// Prefix namespaces purely numeric identifiers.  Without it bare
	// numeric identifiers are rejected as ambiguous.
	Prefix string

	// AllowDuplicates permits the same structure under several identifiers.
	AllowDuplicates bool

	entries map[string]string
	seen    map[string]string // canonical SMILES -> first identifier

	log     logging.Logger
	metrics *metrics.Metrics
}

// NewMap returns an empty Map with the given identifier prefix and
// duplicate-structure policy.
func NewMap(prefix string, allowDuplicates bool, log logging.Logger, m *metrics.Metrics) *Map {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &Map{
		Prefix:          prefix,
		AllowDuplicates: allowDuplicates,
		entries:         make(map[string]string),
		seen:            make(map[string]string),
		log:             log.Named("smilesmap"),
		metrics:         m,
	}
}

// isBareID reports whether the identifier is purely numeric.
func isBareID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// EffectiveID resolves the identifier the molecule would be stored under:
// bare numeric identifiers get the configured prefix, everything else passes
// through unchanged.  A bare identifier with no prefix configured is an
// ErrCodeSmilesMapBareID error.
func (m *Map) EffectiveID(id string) (string, error) {
	if !isBareID(id) {
		return id, nil
	}
	if m.Prefix == "" {
		return "", errors.New(errors.ErrCodeSmilesMapBareID,
			"bare numeric identifier requires a configured prefix").WithDetail(id)
	}
	return m.Prefix + id, nil
}

// Add registers the molecule under its declared name.  Re-adding the same
// identifier with the same structure is an idempotent no-op; the same
// identifier with a different structure is an ErrCodeSmilesMapIDConflict,
// and, unless duplicates are allowed, the same structure under a different
// identifier is an ErrCodeSmilesMapSmilesConflict.
func (m *Map) Add(mol *molecule.Molecule) error {
	id, err := m.EffectiveID(mol.Name)
	if err != nil {
		return err
	}
	canonical := mol.CanonicalSMILES(true)

	if existing, ok := m.entries[id]; ok {
		if existing == canonical {
			return nil
		}
		m.metrics.MapConflicts.WithLabelValues(metrics.ConflictIdentifier).Inc()
		return errors.New(errors.ErrCodeSmilesMapIDConflict,
			"identifier already maps to a different structure").
			WithDetail(id + ": " + existing + " vs " + canonical)
	}

	if !m.AllowDuplicates {
		if owner, ok := m.seen[canonical]; ok && owner != id {
			m.metrics.MapConflicts.WithLabelValues(metrics.ConflictStructure).Inc()
			return errors.New(errors.ErrCodeSmilesMapSmilesConflict,
				"structure already registered under a different identifier").
				WithDetail(canonical + ": " + owner + " vs " + id)
		}
	}

	m.entries[id] = canonical
	if _, ok := m.seen[canonical]; !ok {
		m.seen[canonical] = id
	}
	m.log.Debug("registered molecule", logging.String("id", id), logging.String("smiles", canonical))
	return nil
}

// AddSmiles parses the SMILES string and registers it under the identifier.
func (m *Map) AddSmiles(id, smi string) error {
	mol, err := molecule.FromSmiles(smi, id)
	if err != nil {
		return err
	}
	return m.Add(mol)
}

// Len returns the number of registered identifiers.
func (m *Map) Len() int { return len(m.entries) }

// Get returns a snapshot copy of the identifier to canonical SMILES mapping.
// Mutating the returned map does not affect the accumulator.
func (m *Map) Get() map[string]string {
	out := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}
