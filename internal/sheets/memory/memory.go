// Package memory is an in-process StatementReader backed by tab-separated files.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ports "financas/internal/sheets"
)

type Reader struct {
	mu           sync.RWMutex
	defaultRange string
	ranges       map[string][][]interface{}
}

var _ ports.StatementReader = (*Reader)(nil)

func New(defaultRange string) *Reader {
	return &Reader{defaultRange: defaultRange, ranges: make(map[string][][]interface{})}
}

// NewFromDir loads every *.tsv file in base as a range named after the file.
// Blank lines and lines starting with # are skipped.
func NewFromDir(base, defaultRange string) (*Reader, error) {
	r := New(defaultRange)
	paths, err := filepath.Glob(filepath.Join(base, "*.tsv"))
	if err != nil {
		return nil, fmt.Errorf("list statement files: %w", err)
	}
	for _, p := range paths {
		rows, err := readRows(p)
		if err != nil {
			return nil, err
		}
		r.Set(strings.TrimSuffix(filepath.Base(p), ".tsv"), rows)
	}
	return r, nil
}

// Set replaces the values held for rangeA1.
func (r *Reader) Set(rangeA1 string, values [][]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ranges[rangeA1] = values
}

func (r *Reader) ReadStatement(_ context.Context, rangeA1 string) ([][]interface{}, error) {
	if rangeA1 == "" {
		rangeA1 = r.defaultRange
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	values, ok := r.ranges[rangeA1]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ports.ErrRangeNotFound, rangeA1)
	}
	out := make([][]interface{}, len(values))
	for i, row := range values {
		out[i] = append([]interface{}(nil), row...)
	}
	return out, nil
}

func readRows(path string) ([][]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var out [][]interface{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cells := strings.Split(line, "\t")
		row := make([]interface{}, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		out = append(out, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}
