// Package clipindex reads and writes metadata.csv, the per-directory index
// joining clip file names to their transcripts.
package clipindex

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"liepavoice/internal/fileutil"
)

// FileName is the index file name inside a clip directory.
const FileName = "metadata.csv"

// Column names.
const (
	ColumnFileName = "file_name"
	ColumnSentence = "sentence"
	ColumnLanguage = "language"
)

// Header is the column order written by Write.
var Header = []string{ColumnFileName, ColumnSentence, ColumnLanguage}

// ErrMissingFileNameColumn indicates an index without the join column.
var ErrMissingFileNameColumn = errors.New("metadata index has no file_name column")

// Row is one indexed clip.
type Row struct {
	FileName string
	Sentence string
	Language string
}

// Encode renders rows as CSV with a header. The header is written even when
// rows is empty.
func Encode(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write([]string{row.FileName, row.Sentence, row.Language}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write replaces the index at path atomically.
func Write(path string, rows []Row) error {
	data, err := Encode(rows)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Read parses the index at path. Columns are located by header name so extra
// or reordered columns are tolerated; only file_name is required.
func Read(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses an index from r.
func Decode(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("metadata index is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		cols[name] = i
	}
	fileCol, ok := cols[ColumnFileName]
	if !ok {
		return nil, ErrMissingFileNameColumn
	}
	sentenceCol, hasSentence := cols[ColumnSentence]
	languageCol, hasLanguage := cols[ColumnLanguage]

	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := Row{FileName: strings.TrimSpace(record[fileCol])}
		if row.FileName == "" {
			return nil, fmt.Errorf("line %d: empty file_name", line)
		}
		if hasSentence {
			row.Sentence = record[sentenceCol]
		}
		if hasLanguage {
			row.Language = record[languageCol]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
