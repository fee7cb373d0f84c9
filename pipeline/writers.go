package pipeline

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-titles/models"
)

// CSVHeader is the single column of every CSV export.
const CSVHeader = "IMDB_Code"

// Output formats accepted by NewWriter.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatDual = "dual"
)

// NewWriter opens the writer for format. Dual output writes filename as CSV
// and the same path with a .jsonl extension as JSON lines.
func NewWriter(format, filename string) (OutputWriter, error) {
	switch format {
	case FormatCSV:
		return NewCSVWriter(filename)
	case FormatJSON:
		return NewJSONWriter(filename)
	case FormatDual:
		csvWriter, err := NewCSVWriter(filename)
		if err != nil {
			return nil, err
		}
		jsonWriter, err := NewJSONWriter(strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jsonl")
		if err != nil {
			csvWriter.Close()
			return nil, err
		}
		return NewMultiWriter(csvWriter, jsonWriter), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// fileSink is the buffered output file shared by the concrete writers.
type fileSink struct {
	mu   sync.Mutex
	kind string
	name string
	file *os.File
	buf  *bufio.Writer
	rows int
}

func openSink(kind, filename string) (*fileSink, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create %s file: %w", kind, err)
	}
	return &fileSink{kind: kind, name: filename, file: f, buf: bufio.NewWriter(f)}, nil
}

// write encodes every title under the lock and flushes to disk.
func (s *fileSink) write(titles []*models.Title, encode func(*models.Title) error, flush func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, title := range titles {
		if err := encode(title); err != nil {
			return fmt.Errorf("encode %s record: %w", s.kind, err)
		}
		s.rows++
	}
	return s.flushLocked(flush)
}

func (s *fileSink) flushLocked(flush func() error) error {
	if flush != nil {
		if err := flush(); err != nil {
			return fmt.Errorf("flush %s writer: %w", s.kind, err)
		}
	}
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("flush %s file: %w", s.kind, err)
	}
	return nil
}

func (s *fileSink) close(flush func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.flushLocked(flush), s.file.Close())
}

func (s *fileSink) validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows == 0 {
		return fmt.Errorf("%s file %s has no rows", s.kind, s.name)
	}
	return nil
}

// CSVWriter writes one identifier per row under CSVHeader.
type CSVWriter struct {
	sink *fileSink
	enc  *csv.Writer
}

// NewCSVWriter creates filename, and its directory, and writes the header.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	sink, err := openSink("csv", filename)
	if err != nil {
		return nil, err
	}
	w := &CSVWriter{sink: sink, enc: csv.NewWriter(sink.buf)}
	if err := w.enc.Write([]string{CSVHeader}); err != nil {
		sink.file.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	if err := sink.flushLocked(w.flush); err != nil {
		sink.file.Close()
		return nil, err
	}
	return w, nil
}

func (w *CSVWriter) Write(titles []*models.Title) error {
	return w.sink.write(titles, func(t *models.Title) error {
		return w.enc.Write([]string{t.Code})
	}, w.flush)
}

func (w *CSVWriter) Close() error {
	return w.sink.close(w.flush)
}

// Validate fails when only the header was written.
func (w *CSVWriter) Validate() error {
	return w.sink.validate()
}

func (w *CSVWriter) flush() error {
	w.enc.Flush()
	return w.enc.Error()
}

// JSONWriter writes one JSON object per line.
type JSONWriter struct {
	sink *fileSink
	enc  *json.Encoder
}

// NewJSONWriter creates filename and its directory.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	sink, err := openSink("json", filename)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{sink: sink, enc: json.NewEncoder(sink.buf)}, nil
}

func (w *JSONWriter) Write(titles []*models.Title) error {
	return w.sink.write(titles, func(t *models.Title) error {
		return w.enc.Encode(t)
	}, nil)
}

func (w *JSONWriter) Close() error {
	return w.sink.close(nil)
}

func (w *JSONWriter) Validate() error {
	return w.sink.validate()
}

// MultiWriter sends every batch to each of its writers in order.
type MultiWriter struct {
	writers []OutputWriter
}

func NewMultiWriter(writers ...OutputWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Write(titles []*models.Title) error {
	for _, w := range m.writers {
		if err := w.Write(titles); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiWriter) Close() error {
	errs := make([]error, 0, len(m.writers))
	for _, w := range m.writers {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

func (m *MultiWriter) Validate() error {
	errs := make([]error, 0, len(m.writers))
	for _, w := range m.writers {
		errs = append(errs, w.Validate())
	}
	return errors.Join(errs...)
}

// EncodeCSV renders ids as the UTF-8 CSV document offered for download.
func EncodeCSV(ids []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, ids); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes ids to w under the CSVHeader column.
func WriteCSV(w io.Writer, ids []string) error {
	enc := csv.NewWriter(w)
	rows := make([][]string, 0, len(ids)+1)
	rows = append(rows, []string{CSVHeader})
	for _, id := range ids {
		rows = append(rows, []string{id})
	}
	if err := enc.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
