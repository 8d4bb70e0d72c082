// Package diag holds the pieces shared by all chain diagnostics: the
// error taxonomy, the diagnostic event interface and a few numeric
// helpers.
package diag

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure class. Typed errors below unwrap
// to these, so errors.Is works on any of them.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrDataShape     = errors.New("data shape error")
	ErrDegenerate    = errors.New("degenerate statistic")
)

// where formats file/key context for error messages.
func where(file, key string) string {
	switch {
	case file != "" && key != "":
		return fmt.Sprintf(" (file %s, key %s)", file, key)
	case file != "":
		return fmt.Sprintf(" (file %s)", file)
	case key != "":
		return fmt.Sprintf(" (key %s)", key)
	}
	return ""
}

// ConfigError is returned when the run cannot be configured, e.g. the
// sampler is unknown or burn-in swallows the whole series.
type ConfigError struct {
	File string
	Key  string
	Msg  string
}

func (e *ConfigError) Error() string {
	return "configuration: " + e.Msg + where(e.File, e.Key)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// ShapeError is returned when chains are empty, too short or not
// comparable where an algorithm requires alignment.
type ShapeError struct {
	File string
	Key  string
	Msg  string
}

func (e *ShapeError) Error() string {
	return "data shape: " + e.Msg + where(e.File, e.Key)
}

func (e *ShapeError) Unwrap() error { return ErrDataShape }

// DegenerateError is returned when a statistic is undefined, most
// commonly because a variance is exactly zero.
type DegenerateError struct {
	File string
	Key  string
	Msg  string
}

func (e *DegenerateError) Error() string {
	return "degenerate statistic: " + e.Msg + where(e.File, e.Key)
}

func (e *DegenerateError) Unwrap() error { return ErrDegenerate }

// Locate fills in missing file and key context of a typed error. Other
// errors are returned unchanged.
func Locate(err error, file, key string) error {
	fill := func(f, k *string) {
		if *f == "" {
			*f = file
		}
		if *k == "" {
			*k = key
		}
	}
	var ce *ConfigError
	var se *ShapeError
	var de *DegenerateError
	switch {
	case errors.As(err, &ce):
		fill(&ce.File, &ce.Key)
	case errors.As(err, &se):
		fill(&se.File, &se.Key)
	case errors.As(err, &de):
		fill(&de.File, &de.Key)
	}
	return err
}
