package syncer

import (
	"context"
	"errors"
	"fmt"
	"net"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"steward/internal/resource"
)

// ConflictError means the live resource changed underneath us mid-write. A
// retry with a re-read resourceVersion usually resolves it.
type ConflictError struct {
	Key resource.Key
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("write conflict on %s: %v", e.Key, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// TransientError means the API server or network hiccuped. Retryable with
// backoff.
type TransientError struct {
	Key resource.Key
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure on %s: %v", e.Key, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError means the request was rejected and will keep being rejected
// until the manifest or cluster changes. Not retryable.
type PermanentError struct {
	Key resource.Key
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent failure on %s: %v", e.Key, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// classify wraps an API error into steward's taxonomy so the retry policy
// can decide without inspecting Kubernetes error internals.
func classify(key resource.Key, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case apierrors.IsConflict(err):
		return &ConflictError{Key: key, Err: err}
	case apierrors.IsServerTimeout(err),
		apierrors.IsTimeout(err),
		apierrors.IsTooManyRequests(err),
		apierrors.IsServiceUnavailable(err),
		apierrors.IsInternalError(err),
		apierrors.IsUnexpectedServerError(err):
		return &TransientError{Key: key, Err: err}
	case apierrors.IsInvalid(err),
		apierrors.IsBadRequest(err),
		apierrors.IsForbidden(err),
		apierrors.IsUnauthorized(err),
		apierrors.IsMethodNotSupported(err),
		apierrors.IsNotAcceptable(err),
		apierrors.IsRequestEntityTooLargeError(err):
		return &PermanentError{Key: key, Err: err}
	}

	// Raw connection failures never carry an API status.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransientError{Key: key, Err: err}
	}

	return &PermanentError{Key: key, Err: err}
}

// IsRetryable reports whether the error class warrants another attempt.
// Context cancellation is never retried; the pass is being torn down.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var conflict *ConflictError
	var transient *TransientError
	return errors.As(err, &conflict) || errors.As(err, &transient)
}
