package chemio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/turtacn/ChemPrep/internal/domain/molecule"
	"github.com/turtacn/ChemPrep/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// SDF reading
// ─────────────────────────────────────────────────────────────────────────────

// sdfReader decodes V2000 SDF records.  Coordinates are ignored (ChemPrep
// molecules are connection tables), bond type 4 maps to aromatic, and
// M  CHG / M  ISO property lines carry charges and isotopes.  Data items
// (">  <tag>" blocks) become molecule properties.
type sdfReader struct {
	br      *bufio.Reader
	closers []io.Closer
	record  int
}

func newSDFReader(src io.Reader, closers []io.Closer) *sdfReader {
	return &sdfReader{br: bufio.NewReader(src), closers: closers}
}

func (r *sdfReader) Close() error { return closeAll(r.closers) }

// readLine returns the next line without its terminator.  io.EOF with a
// non-empty remainder still yields that remainder as a line.
func (r *sdfReader) readLine() (string, error) {
	line, err := r.br.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}

func (r *sdfReader) corrupt(msg string) error {
	return errors.New(errors.ErrCodeRecordCorrupt, msg).
		WithDetail(fmt.Sprintf("record=%d", r.record))
}

// Read decodes the next record, returning io.EOF at end of stream.
func (r *sdfReader) Read() (*molecule.Molecule, error) {
	// The title line may legitimately be blank, so record boundaries are
	// found by consuming separator lines after $$$$, not by skipping blanks
	// here.  Clean EOF at this point means no more records.
	title, err := r.readLine()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnreadable, "failed to read SDF stream")
	}
	r.record++

	// Program and comment lines.
	for i := 0; i < 2; i++ {
		if _, err := r.readLine(); err != nil {
			return nil, r.corrupt("truncated SDF header")
		}
	}

	counts, err := r.readLine()
	if err != nil || len(counts) < 6 {
		return nil, r.corrupt("missing or short counts line")
	}
	numAtoms, err1 := strconv.Atoi(strings.TrimSpace(counts[0:3]))
	numBonds, err2 := strconv.Atoi(strings.TrimSpace(counts[3:6]))
	if err1 != nil || err2 != nil || numAtoms < 0 || numBonds < 0 {
		return nil, r.corrupt("malformed counts line")
	}

	mol := &molecule.Molecule{Name: strings.TrimSpace(title)}

	for i := 0; i < numAtoms; i++ {
		line, err := r.readLine()
		if err != nil {
			return nil, r.corrupt("truncated atom block")
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, r.corrupt("malformed atom line")
		}
		mol.Atoms = append(mol.Atoms, molecule.Atom{Element: fields[3], HCount: -1})
	}

	for i := 0; i < numBonds; i++ {
		line, err := r.readLine()
		if err != nil || len(line) < 9 {
			return nil, r.corrupt("truncated bond block")
		}
		from, err1 := strconv.Atoi(strings.TrimSpace(line[0:3]))
		to, err2 := strconv.Atoi(strings.TrimSpace(line[3:6]))
		kind, err3 := strconv.Atoi(strings.TrimSpace(line[6:9]))
		if err1 != nil || err2 != nil || err3 != nil ||
			from < 1 || from > numAtoms || to < 1 || to > numAtoms {
			return nil, r.corrupt("malformed bond line")
		}
		bond := molecule.Bond{From: from - 1, To: to - 1, Order: 1}
		switch kind {
		case 1, 2, 3:
			bond.Order = kind
		case 4:
			bond.Aromatic = true
			mol.Atoms[from-1].Aromatic = true
			mol.Atoms[to-1].Aromatic = true
		default:
			return nil, r.corrupt("unsupported bond type")
		}
		mol.Bonds = append(mol.Bonds, bond)
	}

	if err := r.readProperties(mol, numAtoms); err != nil {
		return nil, err
	}
	if err := r.readDataItems(mol); err != nil {
		return nil, err
	}
	r.skipBlankSeparators()
	if err := mol.Validate(); err != nil {
		return nil, err
	}
	return mol, nil
}

// skipBlankSeparators discards blank lines between records so that a
// trailing newline does not read as the title of a phantom record.
func (r *sdfReader) skipBlankSeparators() {
	for {
		peek, err := r.br.Peek(1)
		if err != nil || (peek[0] != '\n' && peek[0] != '\r') {
			return
		}
		r.br.ReadByte()
	}
}

// readProperties consumes the property block up to M  END.
func (r *sdfReader) readProperties(mol *molecule.Molecule, numAtoms int) error {
	for {
		line, err := r.readLine()
		if err != nil {
			return r.corrupt("missing M  END")
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "M" && fields[1] == "END" {
			return nil
		}
		if len(fields) < 3 || fields[0] != "M" {
			continue
		}
		switch fields[1] {
		case "CHG", "ISO":
			n, err := strconv.Atoi(fields[2])
			if err != nil || len(fields) < 3+2*n {
				return r.corrupt("malformed M " + fields[1] + " line")
			}
			for i := 0; i < n; i++ {
				idx, err1 := strconv.Atoi(fields[3+2*i])
				val, err2 := strconv.Atoi(fields[4+2*i])
				if err1 != nil || err2 != nil || idx < 1 || idx > numAtoms {
					return r.corrupt("malformed M " + fields[1] + " entry")
				}
				if fields[1] == "CHG" {
					mol.Atoms[idx-1].Charge = val
				} else {
					mol.Atoms[idx-1].Isotope = val
				}
			}
		}
	}
}

// readDataItems consumes ">  <tag>" blocks up to the $$$$ terminator.
func (r *sdfReader) readDataItems(mol *molecule.Molecule) error {
	for {
		line, err := r.readLine()
		if err != nil {
			return r.corrupt("missing $$$$ terminator")
		}
		if strings.TrimSpace(line) == "$$$$" {
			return nil
		}
		if !strings.HasPrefix(line, ">") {
			continue
		}
		open := strings.Index(line, "<")
		end := strings.LastIndex(line, ">")
		if open < 0 || end <= open {
			return r.corrupt("malformed data item header")
		}
		tag := line[open+1 : end]

		var values []string
		for {
			v, err := r.readLine()
			if err != nil {
				return r.corrupt("truncated data item")
			}
			if strings.TrimSpace(v) == "" {
				break
			}
			values = append(values, v)
		}
		mol.SetProp(tag, strings.Join(values, "\n"))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// SDF writing
// ─────────────────────────────────────────────────────────────────────────────

type sdfWriter struct {
	bw      *bufio.Writer
	closers []io.Closer
}

func newSDFWriter(dst io.Writer, closers []io.Closer) *sdfWriter {
	return &sdfWriter{bw: bufio.NewWriter(dst), closers: closers}
}

func (w *sdfWriter) Close() error {
	if err := w.bw.Flush(); err != nil {
		closeAll(w.closers)
		return errors.Wrap(err, errors.ErrCodeDestUnwritable, "failed to flush SDF stream")
	}
	return closeAll(w.closers)
}

// Write encodes one record.  Coordinates are written as zeros; charges and
// isotopes go into M  CHG / M  ISO lines, aromatic bonds use bond type 4.
func (w *sdfWriter) Write(mol *molecule.Molecule) error {
	var sb strings.Builder

	sb.WriteString(mol.Name)
	sb.WriteString("\n  ChemPrep\n\n")
	fmt.Fprintf(&sb, "%3d%3d  0  0  0  0  0  0  0  0999 V2000\n", len(mol.Atoms), len(mol.Bonds))

	for _, a := range mol.Atoms {
		fmt.Fprintf(&sb, "%10.4f%10.4f%10.4f %-3s 0  0  0  0  0  0  0  0  0  0  0  0\n",
			0.0, 0.0, 0.0, a.Element)
	}
	for _, b := range mol.Bonds {
		kind := b.Order
		if b.Aromatic {
			kind = 4
		}
		fmt.Fprintf(&sb, "%3d%3d%3d  0\n", b.From+1, b.To+1, kind)
	}

	writeAtomProps(&sb, "CHG", mol.Atoms, func(a molecule.Atom) int { return a.Charge })
	writeAtomProps(&sb, "ISO", mol.Atoms, func(a molecule.Atom) int { return a.Isotope })
	sb.WriteString("M  END\n")

	for _, key := range mol.PropKeys() {
		v, _ := mol.Prop(key)
		fmt.Fprintf(&sb, ">  <%s>\n%s\n\n", key, v)
	}
	sb.WriteString("$$$$\n")

	if _, err := w.bw.WriteString(sb.String()); err != nil {
		return errors.Wrap(err, errors.ErrCodeDestUnwritable, "failed to write SDF record").WithDetail(mol.Name)
	}
	return nil
}

// writeAtomProps emits an M-block line for every non-zero value, eight
// entries per line as the format requires.
func writeAtomProps(sb *strings.Builder, tag string, atoms []molecule.Atom, value func(molecule.Atom) int) {
	type entry struct{ idx, val int }
	var entries []entry
	for i, a := range atoms {
		if v := value(a); v != 0 {
			entries = append(entries, entry{i + 1, v})
		}
	}
	for start := 0; start < len(entries); start += 8 {
		end := start + 8
		if end > len(entries) {
			end = len(entries)
		}
		fmt.Fprintf(sb, "M  %s%3d", tag, end-start)
		for _, e := range entries[start:end] {
			fmt.Fprintf(sb, "%4d%4d", e.idx, e.val)
		}
		sb.WriteByte('\n')
	}
}
