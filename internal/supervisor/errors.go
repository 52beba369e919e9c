package supervisor

import "fmt"

// FatalError is a launch gate failure: missing anchor, unreadable or
// malformed config, integrity below threshold, or a spawn failure. It is
// never retried; the supervisor process exits with status 1.
type FatalError struct {
	Target string
	Err    error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Target, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
