// Package integrity checks that a target's anchor files are in place before
// launch and computes content digests of them for the audit trail.
package integrity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// MissingFileError names the first anchor that was not found.
type MissingFileError struct {
	Path string // as declared, relative to the target directory
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("missing required file: %s", e.Path)
}

func (e *MissingFileError) Unwrap() error {
	return e.Err
}

// Verify checks each anchor in declared order and stops at the first one
// that does not exist under targetDir.
func Verify(targetDir string, anchors []string) error {
	for _, anchor := range anchors {
		if _, err := os.Stat(filepath.Join(targetDir, anchor)); err != nil {
			// Anything we can't stat counts as missing.
			return &MissingFileError{Path: anchor, Err: err}
		}
	}
	return nil
}

// IsMissing reports whether err is a MissingFileError.
func IsMissing(err error) bool {
	var missing *MissingFileError
	return errors.As(err, &missing)
}
