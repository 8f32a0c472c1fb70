package render

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/aluiziolira/go-book-browser/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var csvHeader = []string{"title", "author", "cover_url"}

// RecordWriter writes every rendered page as machine-readable records,
// either CSV rows or newline-delimited JSON.
type RecordWriter struct {
	mu     sync.Mutex
	buffer *bufio.Writer
	csv    *csv.Writer
	header bool
	err    error
}

// NewCSVWriter returns a view writing CSV rows with a header to w.
func NewCSVWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{csv: csv.NewWriter(w)}
}

// NewJSONWriter returns a view writing one JSON object per book to w.
func NewJSONWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{buffer: bufio.NewWriter(w)}
}

// RenderBookList writes the page's books.
func (rw *RecordWriter) RenderBookList(books []models.Book) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.err != nil {
		return
	}
	if rw.csv != nil {
		rw.err = rw.writeCSV(books)
		return
	}
	rw.err = rw.writeJSON(books)
}

// RenderPagination is a no-op; records carry no page controls.
func (rw *RecordWriter) RenderPagination(int, int, func(int)) {}

// RenderError records message as the writer's error.
func (rw *RecordWriter) RenderError(message string) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.err == nil {
		rw.err = fmt.Errorf("render error: %s", message)
	}
}

// Err returns the first write or render error.
func (rw *RecordWriter) Err() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.err
}

func (rw *RecordWriter) writeCSV(books []models.Book) error {
	if !rw.header {
		if err := rw.csv.Write(csvHeader); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		rw.header = true
	}
	for _, b := range books {
		if err := rw.csv.Write([]string{b.Title, b.Author, b.CoverURL}); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	rw.csv.Flush()
	if err := rw.csv.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

func (rw *RecordWriter) writeJSON(books []models.Book) error {
	encoder := json.NewEncoder(rw.buffer)
	for _, b := range books {
		if err := encoder.Encode(b); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}
	if err := rw.buffer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}
