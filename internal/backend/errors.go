package backend

import (
	"errors"
	"strings"
)

// Error taxonomy shared by every adapter so the engine can decide
// between retrying, failing over, and giving up.
var (
	// ErrUnavailable means the backend could not be reached at all.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrQuota means the account ran out of quota or credits.
	ErrQuota = errors.New("backend quota exhausted")
	// ErrTimeout means the request exceeded its deadline.
	ErrTimeout = errors.New("backend request timed out")
	// ErrInvalidResponse means the backend answered with something the
	// adapter could not use.
	ErrInvalidResponse = errors.New("invalid backend response")
	// ErrModelMissing means the configured model is not present on the
	// server.
	ErrModelMissing = errors.New("model not available")
)

// Deliberately excludes "limit": rate-limit messages accompany 429s,
// which are transient and must stay retryable.
var quotaMarkers = []string{"quota", "billing"}

// IsQuotaError recognizes quota problems from an error or a raw API
// message, so paid backends are benched instead of hammered.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuota) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether a failure is worth another attempt
// against the same backend.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsQuotaError(err) {
		return false
	}
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout)
}
