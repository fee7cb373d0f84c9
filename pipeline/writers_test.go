package pipeline

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-titles/models"
)

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "scraped_data.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Validate(); err == nil {
		t.Fatalf("header-only csv should not validate")
	}

	if err := writer.Write(titles("tt0111161", "tt0068646")); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records=%d, want 3", len(records))
	}
	if records[0][0] != "IMDB_Code" || records[1][0] != "tt0111161" {
		t.Fatalf("unexpected records: %v", records)
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "titles.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write(titles("tt0111161")); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		var decoded models.Title
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		if decoded.Code != "tt0111161" {
			t.Fatalf("code=%q, want tt0111161", decoded.Code)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if count != 1 {
		t.Fatalf("json lines=%d, want 1", count)
	}
}

func TestNewWriterDual(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "titles.csv")

	writer, err := NewWriter("dual", csvPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write(titles("tt0111161")); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
	if info, err := os.Stat(filepath.Join(dir, "titles.jsonl")); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}

type failingWriter struct {
	mockWriter
}

func (f *failingWriter) Write([]*models.Title) error { return errors.New("boom") }
func (f *failingWriter) Validate() error              { return errors.New("empty") }

func TestMultiWriterStopsAtFirstFailure(t *testing.T) {
	good := &mockWriter{}
	m := NewMultiWriter(&failingWriter{}, good)

	if err := m.Write(titles("tt0111161")); err == nil {
		t.Fatalf("expected write error")
	}
	if got := good.totalWritten(); got != 0 {
		t.Fatalf("second writer got %d titles, want 0", got)
	}
	if err := m.Validate(); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("validate = %v, want joined error", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewWriterUnknownFormat(t *testing.T) {
	if _, err := NewWriter("xml", filepath.Join(t.TempDir(), "x")); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestEncodeCSV(t *testing.T) {
	data, err := EncodeCSV([]string{"tt0111161", "tt0068646"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := "IMDB_Code\ntt0111161\ntt0068646\n"
	if string(data) != want {
		t.Fatalf("csv = %q, want %q", data, want)
	}

	empty, err := EncodeCSV(nil)
	if err != nil {
		t.Fatalf("encode empty: %v", err)
	}
	if !bytes.Equal(empty, []byte("IMDB_Code\n")) {
		t.Fatalf("empty csv = %q", empty)
	}
}
