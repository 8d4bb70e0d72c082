// Package chain reads MCMC chain files. A chain file holds one or more
// tables; a table is addressed by a location string and maps parameter
// keys to sample series.
package chain

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/op/go-logging"

	"bitbucket.org/Davydov/chaindiag/diag"
)

// log is the global logging variable.
var log = logging.MustGetLogger("chain")

// Chain is an opened chain file.
type Chain interface {
	// Has reports whether a table exists at location.
	Has(location string) bool
	// Keys returns the ordered key names of the table at location.
	Keys(location string) ([]string, error)
	// Read returns the samples stored for key.
	Read(location, key string) ([]float64, error)
	// Close releases the file.
	Close() error
}

// Source opens chain files.
type Source interface {
	Open(path string) (Chain, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(path string) (Chain, error)

// Open calls f(path).
func (f SourceFunc) Open(path string) (Chain, error) { return f(path) }

var (
	boltExt = map[string]bool{".db": true, ".bolt": true}
	textExt = map[string]bool{".tsv": true, ".txt": true, ".traj": true}
)

// IsChainFile reports whether path has a known chain file extension.
func IsChainFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return boltExt[ext] || textExt[ext]
}

// Files keeps the chain files from paths, preserving order.
func Files(paths []string) (files []string) {
	for _, p := range paths {
		if IsChainFile(p) {
			files = append(files, p)
		} else {
			log.Debugf("skipping %s: not a chain file", p)
		}
	}
	return
}

// Default is the Source used by the command line tool.
var Default Source = SourceFunc(Open)

// Open opens a chain file, choosing the format by extension.
func Open(path string) (Chain, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case boltExt[ext]:
		return OpenBolt(path)
	case textExt[ext]:
		return OpenText(path)
	}
	return nil, fmt.Errorf("unknown chain file format: %s", path)
}

// Trim removes the burn-in prefix from a series.
func Trim(series []float64, burnIn int) ([]float64, error) {
	if burnIn < 0 {
		return nil, &diag.ConfigError{Msg: fmt.Sprintf("negative burn-in %d", burnIn)}
	}
	if burnIn >= len(series) {
		return nil, &diag.ConfigError{
			Msg: fmt.Sprintf("burn-in %d is not less than series length %d", burnIn, len(series)),
		}
	}
	return series[burnIn:], nil
}
