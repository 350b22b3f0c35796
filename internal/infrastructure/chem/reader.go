package chem

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

const maxLineBytes = 4 << 20

// Entry is one structure read from a corpus file.
type Entry struct {
	ID        string
	Structure string
	Format    molecule.StructureFormat
}

// ReadSMILESFile reads "SMILES<whitespace>id" lines.  Blank lines and lines
// starting with '#' are ignored.  Lines without an id get "<prefix><line>".
func ReadSMILESFile(r io.Reader, prefix string) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	var out []Entry
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		e := Entry{Structure: fields[0], Format: molecule.FormatSMILES}
		if len(fields) > 1 {
			e.ID = fields[1]
		} else {
			e.ID = fmt.Sprintf("%s%d", prefix, line)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorpusImport, "read SMILES file")
	}
	return out, nil
}

// ReadSDF splits an SD file on "$$$$" records.  The id comes from an "<id>"
// data item when present, otherwise from the title line, otherwise from the
// record position.
func ReadSDF(r io.Reader, prefix string) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	var (
		out     []Entry
		block   []string
		inBlock = true
		dataID  string
		want    bool
	)
	flush := func() {
		if len(block) == 0 {
			return
		}
		id := dataID
		if id == "" {
			id = strings.TrimSpace(block[0])
		}
		if id == "" {
			id = fmt.Sprintf("%s%d", prefix, len(out)+1)
		}
		out = append(out, Entry{
			ID:        id,
			Structure: strings.Join(block, "\n") + "\n",
			Format:    molecule.FormatMolfile,
		})
	}

	for sc.Scan() {
		text := strings.TrimRight(sc.Text(), "\r")
		switch {
		case strings.HasPrefix(text, "$$$$"):
			flush()
			block, inBlock, dataID, want = nil, true, "", false
		case inBlock:
			block = append(block, text)
			if strings.HasPrefix(text, "M  END") {
				inBlock = false
			}
		case want:
			if dataID == "" {
				dataID = strings.TrimSpace(text)
			}
			want = false
		case strings.HasPrefix(text, ">"):
			tag := strings.ToLower(text)
			want = strings.Contains(tag, "<id>") || strings.Contains(tag, "<coconut_id>")
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorpusImport, "read SD file")
	}
	if len(block) > 0 && strings.TrimSpace(strings.Join(block, "")) != "" {
		flush()
	}
	return out, nil
}
