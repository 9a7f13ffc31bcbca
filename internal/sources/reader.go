// Package sources streams publisher rows out of the tabular sources files.
package sources

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JakeFAU/publisher-directory/internal/publisher"
)

const utf8BOM = "\ufeff"

// ErrNoHeader is returned for an input without a header row.
var ErrNoHeader = errors.New("sources file has no header row")

// RowError reports a single malformed line. Reading may continue after it.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Reader yields header-keyed rows one at a time.
type Reader struct {
	csv    *csv.Reader
	header []string
}

// NewReader consumes the header row of r.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	names := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		names[i] = strings.TrimSpace(h)
	}
	return &Reader{csv: cr, header: names}, nil
}

// Header returns the normalized column names.
func (r *Reader) Header() []string {
	return append([]string(nil), r.header...)
}

// Next returns the next row and its line number. It returns io.EOF when the
// input is exhausted and a *RowError for a line that could not be parsed.
// Cells beyond the header are dropped; missing cells are absent from the row.
func (r *Reader) Next() (publisher.RawRow, int, error) {
	record, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, io.EOF
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, parseErr.Line, &RowError{Line: parseErr.Line, Err: err}
		}
		return nil, 0, fmt.Errorf("read row: %w", err)
	}
	line, _ := r.csv.FieldPos(0)
	row := make(publisher.RawRow, len(r.header))
	for i, value := range record {
		if i >= len(r.header) {
			break
		}
		if r.header[i] == "" {
			continue
		}
		row[r.header[i]] = value
	}
	return row, line, nil
}

// Domains returns the Domain column of every file in dir matching glob, in
// file-name order, skipping blanks and repeats.
func Domains(dir, glob string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return nil, fmt.Errorf("glob sources: %w", err)
	}
	sort.Strings(matches)

	seen := map[string]struct{}{}
	domains := []string{}
	for _, path := range matches {
		if err := collectDomains(path, seen, &domains); err != nil {
			return nil, err
		}
	}
	return domains, nil
}

func collectDomains(path string, seen map[string]struct{}, out *[]string) error {
	// #nosec G304 -- paths come from a glob over the configured sources dir.
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	reader, err := NewReader(f)
	if errors.Is(err, ErrNoHeader) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for {
		row, _, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		domain := strings.TrimSpace(row[publisher.ColumnDomain])
		if domain == "" {
			continue
		}
		if _, ok := seen[domain]; ok {
			continue
		}
		seen[domain] = struct{}{}
		*out = append(*out, domain)
	}
}
