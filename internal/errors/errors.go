package errors

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/dc-tec/kafka-cluster-operator/internal/constants"
)

// Transient errors: the pass is retried after a short delay.

// ErrTransientConnection marks network failures between the operator and the API server.
var ErrTransientConnection = errors.New("transient connection error")

// ErrTransientKubernetesAPI marks API responses such as conflicts, throttling and server timeouts.
var ErrTransientKubernetesAPI = errors.New("transient Kubernetes API error")

// Permanent errors: nothing changes until the cluster ConfigMap is edited.

// ErrPermanentConfig is the parent of every configuration error.
var ErrPermanentConfig = errors.New("permanent configuration error")

// ErrConfigParse indicates the cluster configuration document is not well-formed.
// It is permanent: the pass for that cluster is aborted until the document changes.
var ErrConfigParse = fmt.Errorf("%w: configuration document could not be parsed", ErrPermanentConfig)

// ErrMalformedResource indicates a live resource is missing a sub-structure that
// reconciliation needs (for example a container or its readiness probe).
// The pass is skipped and retried on the next cycle.
var ErrMalformedResource = errors.New("malformed live resource")

// ErrMaxAttemptsExceeded is returned by a retry loop once it has used all its attempts.
// It is terminal for that loop; the caller decides whether to retry at a coarser level.
var ErrMaxAttemptsExceeded = errors.New("maximum number of attempts exceeded")

// IsTransientConnection reports whether err wraps or resembles a network failure.
func IsTransientConnection(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrTransientConnection) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	transientPatterns := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"context deadline exceeded",
		"i/o timeout",
		"no such host",
		"network is unreachable",
		"temporary failure",
		"dial tcp",
		"connection closed",
		"broken pipe",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// IsTransientKubernetesAPI reports whether err wraps or resembles a retryable API response.
func IsTransientKubernetesAPI(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrTransientKubernetesAPI) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	transientPatterns := []string{
		"rate limit",
		"too many requests",
		"server error",
		"service unavailable",
		"internal server error",
		"context deadline exceeded",
		"timeout",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// WrapTransientConnection marks err as a connection failure unless it already is one.
func WrapTransientConnection(err error) error {
	if err == nil {
		return nil
	}

	if IsTransientConnection(err) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrTransientConnection, err)
}

// WrapTransientKubernetesAPI wraps an error as a transient Kubernetes API error.
func WrapTransientKubernetesAPI(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrTransientKubernetesAPI) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrTransientKubernetesAPI, err)
}

// WrapConfigParse wraps an error as a configuration parse error.
func WrapConfigParse(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrConfigParse, err)
}

// WrapMalformedResource wraps an error as a malformed resource error.
func WrapMalformedResource(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrMalformedResource, err)
}

// IsTransient checks if an error is transient (should be retried).
// Returns true for transient connection or Kubernetes API errors.
func IsTransient(err error) bool {
	return IsTransientConnection(err) || IsTransientKubernetesAPI(err)
}

// IsPermanent checks if an error is permanent (requires user intervention).
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrPermanentConfig)
}

// IsConfigParse reports whether err is a configuration parse error.
func IsConfigParse(err error) bool {
	return errors.Is(err, ErrConfigParse)
}

// IsMalformedResource reports whether err is a malformed resource error.
func IsMalformedResource(err error) bool {
	return errors.Is(err, ErrMalformedResource)
}

// IsMaxAttemptsExceeded reports whether err came from an exhausted retry loop.
func IsMaxAttemptsExceeded(err error) bool {
	return errors.Is(err, ErrMaxAttemptsExceeded)
}

// ShouldRequeue determines if an error should trigger a requeue.
// Returns (shouldRequeue, requeueAfter).
func ShouldRequeue(err error) (bool, time.Duration) {
	if err == nil {
		return false, 0
	}

	// Permanent errors wait for the user to change the configuration.
	if IsPermanent(err) {
		return false, 0
	}

	// A malformed live resource is skipped for this pass and looked at again next cycle.
	if IsMalformedResource(err) {
		return true, constants.RequeueStandard
	}

	if IsMaxAttemptsExceeded(err) || IsTransient(err) {
		return true, constants.RequeueShort
	}

	// For unknown errors, default to requeue (controller-runtime will handle backoff)
	return true, 0
}
