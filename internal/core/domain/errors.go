package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrCertificateExpired  = errors.New("certificate expired")
	ErrSigning             = errors.New("signing failure")

	ErrDocumentNotFound    = errors.New("document not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidInput        = errors.New("invalid input")

	// ErrRemoteRejected marks a definitive 4xx validation refusal from a
	// gateway. Not retryable.
	ErrRemoteRejected = errors.New("rejected by gateway")

	// ErrTemporary marks failures a caller may retry with backoff.
	ErrTemporary = errors.New("temporary failure")

	// ErrInconsistentRemoteState is raised when a reconciliation observes a
	// different remote identifier than the one already persisted. Requires
	// manual review; never auto-resolved.
	ErrInconsistentRemoteState = errors.New("inconsistent remote state")

	// ErrResultNotReady is returned when a result fetch is attempted before
	// the transaction completed.
	ErrResultNotReady = errors.New("transaction result not ready")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
