package handlers

// ArgumentError marks invalid command-line input. main exits 2 for it,
// distinguishing usage mistakes from real run failures.
type ArgumentError struct {
	Err error
}

func (e *ArgumentError) Error() string { return e.Err.Error() }

func (e *ArgumentError) Unwrap() error { return e.Err }

// NewArgumentError wraps an error as invalid-usage.
func NewArgumentError(err error) *ArgumentError {
	return &ArgumentError{Err: err}
}
