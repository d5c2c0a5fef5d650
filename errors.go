package jobs

import "errors"

var (
	// Configuration errors.
	ErrUnknownJobType     = errors.New("jobs: unknown job type")
	ErrDuplicateProcessor = errors.New("jobs: processor already bound for job type")
	ErrDuplicateTask      = errors.New("jobs: duplicate task registration")
	ErrTaskNotRegistered  = errors.New("jobs: task not registered")
	ErrInvalidPayload     = errors.New("jobs: invalid payload")

	// Store errors.
	ErrNoStore          = errors.New("jobs: no store configured")
	ErrStoreUnavailable = errors.New("jobs: store unavailable")
	ErrStoreClosed      = errors.New("jobs: store closed")
	ErrMigrationFailed  = errors.New("jobs: migration failed")

	// Not found errors.
	ErrJobNotFound = errors.New("jobs: job not found")

	// State errors.
	ErrInvalidState = errors.New("jobs: invalid state transition")
)

// permanentError marks a failure that must not be retried by the store.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that the store records the job as failed
// immediately, regardless of remaining attempts. The message is unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	var p *permanentError
	if errors.As(err, &p) {
		return err
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or any error it wraps, was marked
// with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
