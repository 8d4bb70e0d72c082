package chain

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultTextLocation is the location of a text trajectory without a
// "# location" line.
const DefaultTextLocation = "trajectory"

// Text is a whitespace separated trajectory file: an optional
// "# location" line, a header line with column names and one line per
// sample. Trajectories written by the optimizers ("iteration likelihood
// par1 par2 ...") are read as-is.
type Text struct {
	path     string
	location string
	keys     []string
	columns  map[string][]float64
}

// OpenText reads a text trajectory.
func OpenText(path string) (*Text, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t := &Text{path: path, location: DefaultTextLocation, columns: make(map[string][]float64)}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		s := strings.TrimSpace(scanner.Text())
		if s == "" {
			continue
		}
		if strings.HasPrefix(s, "#") {
			if t.keys == nil {
				if loc := strings.TrimSpace(strings.TrimPrefix(s, "#")); loc != "" {
					t.location = loc
				}
			}
			continue
		}
		if t.keys == nil {
			t.keys = strings.Fields(s)
			continue
		}
		v, err := readFloats(s)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if len(v) != len(t.keys) {
			return nil, fmt.Errorf("%s:%d: %d values, header has %d columns", path, line, len(v), len(t.keys))
		}
		for i, k := range t.keys {
			t.columns[k] = append(t.columns[k], v[i])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if t.keys == nil {
		return nil, fmt.Errorf("%s: no header line", path)
	}
	return t, nil
}

// readFloats converts a line of floats into a slice.
func readFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	result := make([]float64, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		result[i] = x
	}
	return result, nil
}

// Has reports whether location is the table of this file.
func (t *Text) Has(location string) bool {
	return location == t.location
}

// Keys returns the header column names.
func (t *Text) Keys(location string) ([]string, error) {
	if !t.Has(location) {
		return nil, fmt.Errorf("%s: no table at %q", t.path, location)
	}
	return append([]string(nil), t.keys...), nil
}

// Read returns a column.
func (t *Text) Read(location, key string) ([]float64, error) {
	if !t.Has(location) {
		return nil, fmt.Errorf("%s: no table at %q", t.path, location)
	}
	col, ok := t.columns[key]
	if !ok {
		return nil, fmt.Errorf("%s: no column %q", t.path, key)
	}
	return append([]float64(nil), col...), nil
}

// Close is a no-op; the file is read in OpenText.
func (t *Text) Close() error {
	return nil
}
