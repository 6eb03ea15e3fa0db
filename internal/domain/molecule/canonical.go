package molecule

import (
	"fmt"
	"sort"
	"strings"
)

// CanonicalSMILES returns a deterministic SMILES string for the molecule:
// the same graph produces the same string regardless of input atom order.
// With isomeric set, chirality tags, directional bonds, and isotopes are
// emitted; otherwise they are dropped, matching the usual canonical /
// isomeric-canonical split.
//
// Atom ordering uses iterative neighbour-rank refinement over structural
// invariants, so symmetric atoms share a rank and asymmetric ones are fully
// ordered.  This is a pragmatic canonicalisation for dataset bookkeeping
// (identity comparison, duplicate detection), not a certified graph-canonical
// labelling.
func (m *Molecule) CanonicalSMILES(isomeric bool) string {
	if len(m.Atoms) == 0 {
		return ""
	}

	ranks := m.canonicalRanks(isomeric)
	adj := m.neighbors()

	g := &smilesGen{
		mol:      m,
		ranks:    ranks,
		adj:      adj,
		isomeric: isomeric,
		visited:  make([]bool, len(m.Atoms)),
		ringAt:   make(map[int][]ringClosure),
		backSeen: make(map[int]bool),
	}

	// Emit one component per connected fragment, dot-separated, fragments
	// ordered by their lowest-ranked atom.
	var starts []int
	seen := make([]bool, len(m.Atoms))
	for {
		start := -1
		for a := range m.Atoms {
			if !seen[a] && (start < 0 || ranks[a] < ranks[start]) {
				start = a
			}
		}
		if start < 0 {
			break
		}
		starts = append(starts, start)
		m.markComponent(start, adj, seen)
	}

	var parts []string
	for _, start := range starts {
		g.findBackEdges(start, -1)
		var sb strings.Builder
		g.emit(&sb, start, -1)
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, ".")
}

// markComponent flags every atom reachable from start.
func (m *Molecule) markComponent(start int, adj [][]int, seen []bool) {
	stack := []int{start}
	seen[start] = true
	for len(stack) > 0 {
		a := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, bi := range adj[a] {
			n := m.other(bi, a)
			if !seen[n] {
				seen[n] = true
				stack = append(stack, n)
			}
		}
	}
}

// canonicalRanks computes an order-independent rank per atom by refining
// structural invariants with sorted neighbour ranks until stable, then
// splitting any remaining tied class and re-refining.
func (m *Molecule) canonicalRanks(isomeric bool) []int {
	n := len(m.Atoms)
	adj := m.neighbors()

	invariant := make([]string, n)
	for a, atom := range m.Atoms {
		isotope := 0
		if isomeric {
			isotope = atom.Isotope
		}
		invariant[a] = fmt.Sprintf("%s|%t|%02d|%02d|%+d|%03d",
			atom.Element, atom.Aromatic, len(adj[a]), m.ImplicitHCount(a), atom.Charge, isotope)
	}
	ranks := ranksOf(invariant)

	for {
		ranks = refineRanks(m, adj, ranks)

		// Split the lowest-ranked remaining tie class and refine again.
		classSize := make(map[int]int)
		for _, r := range ranks {
			classSize[r]++
		}
		tied := -1
		for a, r := range ranks {
			if classSize[r] > 1 && (tied < 0 || r < ranks[tied]) {
				tied = a
			}
		}
		if tied < 0 {
			return ranks
		}
		next := make([]string, n)
		for a, r := range ranks {
			next[a] = fmt.Sprintf("%06d|1", r)
		}
		next[tied] = fmt.Sprintf("%06d|0", ranks[tied])
		ranks = ranksOf(next)
	}
}

// refineRanks iterates neighbour-rank refinement until the rank partition
// stops changing.
func refineRanks(m *Molecule, adj [][]int, ranks []int) []int {
	n := len(m.Atoms)
	for {
		keys := make([]string, n)
		for a := 0; a < n; a++ {
			nb := make([]int, 0, len(adj[a]))
			for _, bi := range adj[a] {
				// Fold the bond type in so a double-bonded neighbour ranks
				// differently from a single-bonded one.
				b := m.Bonds[bi]
				order := b.Order
				if b.Aromatic {
					order = 4
				}
				nb = append(nb, ranks[m.other(bi, a)]*8+order)
			}
			sort.Ints(nb)
			keys[a] = fmt.Sprintf("%06d|%v", ranks[a], nb)
		}
		next := ranksOf(keys)
		if equalInts(next, ranks) {
			return next
		}
		ranks = next
	}
}

// ranksOf maps each key to the index of its sorted unique position.
func ranksOf(keys []string) []int {
	uniq := make([]string, len(keys))
	copy(uniq, keys)
	sort.Strings(uniq)
	uniq = dedupe(uniq)

	pos := make(map[string]int, len(uniq))
	for i, k := range uniq {
		pos[k] = i
	}
	ranks := make([]int, len(keys))
	for i, k := range keys {
		ranks[i] = pos[k]
	}
	return ranks
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// SMILES generation
// ─────────────────────────────────────────────────────────────────────────────

// ringClosure is a ring-bond digit attached to an atom during generation.
type ringClosure struct {
	bond  int
	digit int
}

type smilesGen struct {
	mol      *Molecule
	ranks    []int
	adj      [][]int
	isomeric bool

	visited   []bool
	ringAt    map[int][]ringClosure
	backSeen  map[int]bool
	nextDigit int
}

// orderedBonds returns atom a's incident bonds sorted by the far atom's
// canonical rank, with atom index as a stable tiebreak.
func (g *smilesGen) orderedBonds(a int) []int {
	bonds := make([]int, len(g.adj[a]))
	copy(bonds, g.adj[a])
	sort.Slice(bonds, func(i, j int) bool {
		ni, nj := g.mol.other(bonds[i], a), g.mol.other(bonds[j], a)
		if g.ranks[ni] != g.ranks[nj] {
			return g.ranks[ni] < g.ranks[nj]
		}
		return ni < nj
	})
	return bonds
}

// findBackEdges walks the spanning tree in generation order, assigning a
// ring-closure digit to every back edge.  It must traverse in exactly the
// same order as emit so that digits open and close at the right atoms.
func (g *smilesGen) findBackEdges(a, parentBond int) {
	g.visited[a] = true
	for _, bi := range g.orderedBonds(a) {
		if bi == parentBond || g.backSeen[bi] {
			continue
		}
		n := g.mol.other(bi, a)
		if g.visited[n] {
			g.backSeen[bi] = true
			g.nextDigit++
			closure := ringClosure{bond: bi, digit: g.nextDigit}
			g.ringAt[a] = append(g.ringAt[a], closure)
			g.ringAt[n] = append(g.ringAt[n], closure)
			continue
		}
		g.findBackEdges(n, bi)
	}
}

// emit writes atom a and its subtree.
func (g *smilesGen) emit(sb *strings.Builder, a, parentBond int) {
	sb.WriteString(g.atomToken(a))

	for _, rc := range g.ringAt[a] {
		// The ring-bond symbol is written at both endpoints; matching
		// symbols on a closure pair are valid SMILES.
		sb.WriteString(g.bondToken(rc.bond, a))
		sb.WriteString(ringDigitToken(rc.digit))
	}

	var children []int
	for _, bi := range g.orderedBonds(a) {
		if bi == parentBond || g.backSeen[bi] {
			continue
		}
		children = append(children, bi)
	}
	for i, bi := range children {
		n := g.mol.other(bi, a)
		last := i == len(children)-1
		if !last {
			sb.WriteByte('(')
		}
		sb.WriteString(g.bondToken(bi, a))
		g.emit(sb, n, bi)
		if !last {
			sb.WriteByte(')')
		}
	}
}

// ringDigitToken formats a ring-closure label, using %nn beyond 9.
func ringDigitToken(d int) string {
	if d < 10 {
		return fmt.Sprintf("%d", d)
	}
	return fmt.Sprintf("%%%02d", d)
}

// bondToken returns the symbol written before the far atom of bond bi.
func (g *smilesGen) bondToken(bi, from int) string {
	b := g.mol.Bonds[bi]
	switch {
	case b.Order == 2:
		return "="
	case b.Order == 3:
		return "#"
	case b.Aromatic:
		return ""
	case g.isomeric && b.Stereo == BondStereoUp:
		return "/"
	case g.isomeric && b.Stereo == BondStereoDown:
		return "\\"
	case g.mol.Atoms[b.From].Aromatic && g.mol.Atoms[b.To].Aromatic:
		// Single bond between two aromatic systems needs the explicit dash.
		return "-"
	default:
		return ""
	}
}

// atomToken formats a single atom, bracketing when required.
func (g *smilesGen) atomToken(a int) string {
	atom := g.mol.Atoms[a]

	symbol := atom.Element
	if atom.Aromatic {
		symbol = strings.ToLower(symbol)
	}

	chirality := ""
	isotope := 0
	if g.isomeric {
		chirality = atom.Chirality
		isotope = atom.Isotope
	}

	organic := false
	for _, s := range organicSubset {
		if s == atom.Element {
			organic = true
			break
		}
	}

	needsBracket := !organic || atom.Charge != 0 || isotope != 0 || chirality != "" ||
		(atom.HCount >= 0 && atom.HCount != g.plainHCount(a))
	if !needsBracket {
		return symbol
	}

	var sb strings.Builder
	sb.WriteByte('[')
	if isotope > 0 {
		fmt.Fprintf(&sb, "%d", isotope)
	}
	sb.WriteString(symbol)
	sb.WriteString(chirality)
	h := atom.HCount
	if h < 0 {
		h = g.mol.ImplicitHCount(a)
	}
	if h == 1 {
		sb.WriteByte('H')
	} else if h > 1 {
		fmt.Fprintf(&sb, "H%d", h)
	}
	switch {
	case atom.Charge == 1:
		sb.WriteByte('+')
	case atom.Charge == -1:
		sb.WriteByte('-')
	case atom.Charge > 1:
		fmt.Fprintf(&sb, "+%d", atom.Charge)
	case atom.Charge < -1:
		fmt.Fprintf(&sb, "-%d", -atom.Charge)
	}
	sb.WriteByte(']')
	return sb.String()
}

// plainHCount returns the hydrogen count the valence model would assign if
// the atom were written without brackets; an explicit count equal to this
// needs no bracket.
func (g *smilesGen) plainHCount(a int) int {
	saved := g.mol.Atoms[a].HCount
	g.mol.Atoms[a].HCount = -1
	h := g.mol.ImplicitHCount(a)
	g.mol.Atoms[a].HCount = saved
	return h
}
