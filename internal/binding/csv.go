package binding

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jowpereira/LOS/internal/ir"
)

// LoadCSV reads a delimited file whose first row names the columns. The
// delimiter is sniffed from the header: tab for .tsv files, otherwise ';'
// when the header holds more semicolons than commas.
func LoadCSV(_ context.Context, path string) ([]*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t, err := ReadCSV(stem, f, strings.EqualFold(filepath.Ext(path), ".tsv"))
	if err != nil {
		return nil, err
	}
	return []*Table{t}, nil
}

// ReadCSV parses delimited text into a table named name.
func ReadCSV(name string, r io.Reader, tabs bool) (*Table, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	head = bytes.TrimPrefix(head, bom)

	cr := csv.NewReader(skipBOM(br))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	switch {
	case tabs:
		cr.Comma = '\t'
	default:
		line, _, _ := bytes.Cut(head, []byte("\n"))
		if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
			cr.Comma = ';'
		}
	}

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty file", name)
	}
	if err != nil {
		return nil, err
	}
	t := NewTable(name, header...)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		cells := make([]ir.Value, len(rec))
		for i, raw := range rec {
			cells[i] = ir.ParseCell(raw)
		}
		if err := t.Append(cells...); err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return t, nil
}

var bom = []byte("\xef\xbb\xbf")

func skipBOM(br *bufio.Reader) io.Reader {
	if b, err := br.Peek(len(bom)); err == nil && bytes.Equal(b, bom) {
		br.Discard(3)
	}
	return br
}
