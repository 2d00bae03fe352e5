package probe

import "errors"

type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

// MakeTransient marks an error as retryable. The runner resubmits
// probes that fail with a transient error, per their retry policy.
func MakeTransient(err error) error {
	if err == nil {
		return nil
	}

	return &transientError{err: err}
}

// Transient reports whether err was marked retryable anywhere in its
// chain.
func Transient(err error) bool {
	var te *transientError

	return errors.As(err, &te)
}
