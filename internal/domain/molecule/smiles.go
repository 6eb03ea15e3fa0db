package molecule

import (
	"fmt"
	"strings"

	"github.com/turtacn/ChemPrep/pkg/errors"
)

// organicSubset lists the elements that may appear outside brackets, longest
// symbols first so the tokenizer can match greedily.
var organicSubset = []string{"Cl", "Br", "B", "C", "N", "O", "P", "S", "F", "I"}

// aromaticSubset lists the lowercase aromatic forms allowed outside brackets.
var aromaticSubset = "bcnops"

// ringRef records the open half of a ring-closure pair.
type ringRef struct {
	atom int
	bond byte // bond symbol written before the digit, 0 when none
}

// ParseSMILES parses a SMILES string into a molecular graph.  Supported
// syntax: the organic subset, bracket atoms (isotope, chirality, explicit H,
// formal charge), branches, ring closures (including %nn), aromatic
// lowercase atoms, bond symbols - = # : / \ and the dot disconnect.
//
// The molecule is returned without a name; callers attach identifiers
// separately.
func ParseSMILES(s string) (*Molecule, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "empty SMILES string")
	}

	mol := &Molecule{}
	prev := -1
	var stack []int
	rings := make(map[int]ringRef)
	pendingBond := byte(0)

	fail := func(pos int, msg string) error {
		return errors.New(errors.ErrCodeMoleculeInvalidSMILES, msg).
			WithDetail(fmt.Sprintf("smiles=%s pos=%d", s, pos))
	}

	addAtom := func(a Atom) {
		mol.Atoms = append(mol.Atoms, a)
		cur := len(mol.Atoms) - 1
		if prev >= 0 {
			mol.Bonds = append(mol.Bonds, makeBond(prev, cur, pendingBond, &mol.Atoms[prev], &mol.Atoms[cur]))
		}
		pendingBond = 0
		prev = cur
	}

	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '(':
			if prev < 0 {
				return nil, fail(i, "branch before any atom")
			}
			stack = append(stack, prev)
			i++

		case c == ')':
			if len(stack) == 0 {
				return nil, fail(i, "unmatched closing parenthesis")
			}
			prev = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			i++

		case c == '-' || c == '=' || c == '#' || c == ':' || c == '/' || c == '\\':
			pendingBond = c
			i++

		case c == '.':
			prev = -1
			pendingBond = 0
			i++

		case c >= '0' && c <= '9' || c == '%':
			num, width, ok := ringNumber(s, i)
			if !ok {
				return nil, fail(i, "malformed ring-closure number")
			}
			if prev < 0 {
				return nil, fail(i, "ring closure before any atom")
			}
			if open, found := rings[num]; found {
				sym := pendingBond
				if sym == 0 {
					sym = open.bond
				}
				if open.atom == prev {
					return nil, fail(i, "ring closure to the same atom")
				}
				mol.Bonds = append(mol.Bonds, makeBond(open.atom, prev, sym, &mol.Atoms[open.atom], &mol.Atoms[prev]))
				delete(rings, num)
			} else {
				rings[num] = ringRef{atom: prev, bond: pendingBond}
			}
			pendingBond = 0
			i += width

		case c == '[':
			atom, width, err := parseBracketAtom(s, i)
			if err != nil {
				return nil, err
			}
			addAtom(atom)
			i += width

		default:
			atom, width, ok := parseOrganicAtom(s, i)
			if !ok {
				return nil, fail(i, fmt.Sprintf("unexpected character %q", c))
			}
			addAtom(atom)
			i += width
		}
	}

	if len(stack) != 0 {
		return nil, fail(len(s), "unclosed branch")
	}
	if len(rings) != 0 {
		return nil, fail(len(s), "unclosed ring bond")
	}
	if len(mol.Atoms) == 0 {
		return nil, fail(0, "no atoms in SMILES")
	}
	return mol, nil
}

// MustParseSMILES is a test helper that panics on parse failure.
func MustParseSMILES(s string) *Molecule {
	mol, err := ParseSMILES(s)
	if err != nil {
		panic(err)
	}
	return mol
}

// FromSmiles parses a SMILES string and attaches the given name.
func FromSmiles(smiles, name string) (*Molecule, error) {
	mol, err := ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	mol.Name = name
	return mol, nil
}

// makeBond resolves an explicit or implied bond symbol between two atoms.
// With no symbol, two aromatic atoms bond aromatically and everything else
// bonds single.
func makeBond(from, to int, sym byte, a, b *Atom) Bond {
	bond := Bond{From: from, To: to, Order: 1}
	switch sym {
	case '=':
		bond.Order = 2
	case '#':
		bond.Order = 3
	case ':':
		bond.Aromatic = true
	case '/':
		bond.Stereo = BondStereoUp
	case '\\':
		bond.Stereo = BondStereoDown
	case '-':
		// explicit single, never aromatic
	case 0:
		if a.Aromatic && b.Aromatic {
			bond.Aromatic = true
		}
	}
	return bond
}

// ringNumber decodes a ring-closure label at position i: a single digit, or
// %nn for two-digit labels.  Returns the label, its width, and validity.
func ringNumber(s string, i int) (num, width int, ok bool) {
	if s[i] != '%' {
		return int(s[i] - '0'), 1, true
	}
	if i+2 >= len(s) || !isDigit(s[i+1]) || !isDigit(s[i+2]) {
		return 0, 0, false
	}
	return int(s[i+1]-'0')*10 + int(s[i+2]-'0'), 3, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// parseOrganicAtom matches an organic-subset atom (or its aromatic lowercase
// form) at position i.
func parseOrganicAtom(s string, i int) (Atom, int, bool) {
	for _, sym := range organicSubset {
		if strings.HasPrefix(s[i:], sym) {
			return Atom{Element: sym, HCount: -1}, len(sym), true
		}
	}
	if strings.IndexByte(aromaticSubset, s[i]) >= 0 {
		return Atom{
			Element:  strings.ToUpper(string(s[i])),
			Aromatic: true,
			HCount:   -1,
		}, 1, true
	}
	return Atom{}, 0, false
}

// parseBracketAtom parses a bracket atom expression starting at the '[' at
// position start: [isotope]symbol[chirality][Hcount][charge].
func parseBracketAtom(s string, start int) (Atom, int, error) {
	fail := func(msg string) (Atom, int, error) {
		return Atom{}, 0, errors.New(errors.ErrCodeMoleculeInvalidSMILES, msg).
			WithDetail(fmt.Sprintf("smiles=%s pos=%d", s, start))
	}

	end := strings.IndexByte(s[start:], ']')
	if end < 0 {
		return fail("unclosed bracket atom")
	}
	body := s[start+1 : start+end]
	atom := Atom{HCount: 0} // bracket atoms carry explicit hydrogen counts

	j := 0
	for j < len(body) && isDigit(body[j]) {
		atom.Isotope = atom.Isotope*10 + int(body[j]-'0')
		j++
	}

	if j >= len(body) {
		return fail("bracket atom without element symbol")
	}
	switch {
	case body[j] >= 'A' && body[j] <= 'Z':
		atom.Element = string(body[j])
		j++
		if j < len(body) && body[j] >= 'a' && body[j] <= 'z' {
			// Two-letter symbol, but a trailing 'H' always means hydrogen count.
			candidate := atom.Element + string(body[j])
			if isKnownTwoLetter(candidate) {
				atom.Element = candidate
				j++
			}
		}
	case strings.IndexByte(aromaticSubset, body[j]) >= 0:
		atom.Element = strings.ToUpper(string(body[j]))
		atom.Aromatic = true
		j++
	default:
		return fail("bracket atom with invalid element symbol")
	}

	if j < len(body) && body[j] == '@' {
		if j+1 < len(body) && body[j+1] == '@' {
			atom.Chirality = ChiralityCW
			j += 2
		} else {
			atom.Chirality = ChiralityCCW
			j++
		}
	}

	if j < len(body) && body[j] == 'H' {
		j++
		atom.HCount = 1
		if j < len(body) && isDigit(body[j]) {
			atom.HCount = int(body[j] - '0')
			j++
		}
	}

	for j < len(body) && (body[j] == '+' || body[j] == '-') {
		sign := 1
		if body[j] == '-' {
			sign = -1
		}
		j++
		if j < len(body) && isDigit(body[j]) {
			atom.Charge += sign * int(body[j]-'0')
			j++
		} else {
			atom.Charge += sign
		}
	}

	if j != len(body) {
		return fail("trailing characters in bracket atom")
	}
	return atom, end + 1, nil
}

// isKnownTwoLetter reports whether the candidate is a recognised two-letter
// element symbol.  The table covers the elements that occur in small-molecule
// datasets; unknown symbols fall back to one letter plus hydrogen count.
func isKnownTwoLetter(sym string) bool {
	switch sym {
	case "Cl", "Br", "Si", "Se", "As", "Li", "Na", "Mg", "Al", "Ca", "Fe",
		"Cu", "Zn", "Sn", "Te", "Ag", "Au", "Pt", "Hg", "Pb", "Mn", "Co", "Ni":
		return true
	}
	return false
}
