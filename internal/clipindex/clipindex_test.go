package clipindex

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestEncodeWritesHeaderForEmptyRows(t *testing.T) {
	data, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if string(data) != "file_name,sentence,language\n" {
		t.Fatalf("unexpected output %q", data)
	}
}

func TestEncodeQuotesSentences(t *testing.T) {
	data, err := Encode([]Row{{FileName: "S001_000002.mp3", Sentence: `labas, "rytas"`, Language: "lt"}})
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	want := "file_name,sentence,language\nS001_000002.mp3,\"labas, \"\"rytas\"\"\",lt\n"
	if string(data) != want {
		t.Fatalf("unexpected output:\n%q\nwant\n%q", data, want)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	rows := []Row{
		{FileName: "S001_000002.mp3", Sentence: "labas", Language: "lt"},
		{FileName: "S001_000005.mp3", Sentence: "ačiū, iki", Language: "lt"},
	}
	if err := Write(path, rows); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Fatalf("round trip mismatch: %#v", got)
	}
}

func TestWriteOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := Write(path, []Row{{FileName: "a.mp3"}, {FileName: "b.mp3"}}); err != nil {
		t.Fatal(err)
	}
	if err := Write(path, []Row{{FileName: "c.mp3"}}); err != nil {
		t.Fatal(err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].FileName != "c.mp3" {
		t.Fatalf("expected overwrite, got %#v", got)
	}
}

func TestDecodeToleratesReorderedColumns(t *testing.T) {
	input := "\ufefflanguage,extra,file_name\nlt,x,clip.mp3\n"
	rows, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(rows) != 1 || rows[0].FileName != "clip.mp3" || rows[0].Language != "lt" || rows[0].Sentence != "" {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"empty name":   "file_name,sentence\n,hello\n",
		"ragged":       "file_name,sentence,language\na.mp3,hello\n",
		"unterminated": "file_name,sentence\na.mp3,\"hello\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(input)); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestDecodeMissingFileNameColumn(t *testing.T) {
	_, err := Decode(strings.NewReader("sentence,language\nhello,lt\n"))
	if !errors.Is(err, ErrMissingFileNameColumn) {
		t.Fatalf("expected ErrMissingFileNameColumn, got %v", err)
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), FileName))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
