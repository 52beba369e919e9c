// Package gate loads a target's configuration document and decides whether
// the target may be launched.
package gate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Config is one freshly loaded configuration document. Keys are kept
// exactly as written: "TRUTH_INTEGRITY" is not "truth_integrity".
// It is read once per gate check and then discarded.
type Config map[string]any

// ParseError reports a config document that could not be read or parsed,
// or a field that has the wrong type.
type ParseError struct {
	Path  string
	Field string // set when a single field is malformed
	Err   error
}

func (e *ParseError) Error() string {
	msg := e.Err.Error()
	if e.Field != "" {
		msg = fmt.Sprintf("field %q: %s", e.Field, msg)
	}
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads the document at path from disk on every call. A ".json" file
// is decoded as JSON, anything else as YAML.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("failed to parse config: %w", err)}
	}
	return cfg, nil
}

func (c Config) lookup(key string) (any, bool) {
	v, ok := c[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Float returns the numeric value of key. ok is false when the key is absent.
func (c Config) Float(key string) (value float64, ok bool, err error) {
	raw, ok := c.lookup(key)
	if !ok {
		return 0, false, nil
	}
	// Booleans would cast to 0/1; don't let true pass as an integrity score.
	if _, isBool := raw.(bool); isBool {
		return 0, true, fmt.Errorf("expected a number, got bool")
	}
	value, err = cast.ToFloat64E(raw)
	if err != nil {
		return 0, true, fmt.Errorf("expected a number: %w", err)
	}
	return value, true, nil
}

// String returns key only if it holds a string value.
func (c Config) String(key string) (string, bool) {
	raw, ok := c.lookup(key)
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}
