package gateway

import (
	"errors"
	"strings"
)

// ErrConnectionNotFound is returned by the registry for unknown connection ids.
var ErrConnectionNotFound = errors.New("connection not found")

// Error wraps a provider failure with the operation context the caller needs
// to surface it. The underlying message is preserved verbatim; the core
// never retries gateway errors.
type Error struct {
	Op           string // Gateway operation, e.g. "ListObjects"
	ConnectionID string
	Bucket       string
	Key          string
	Err          error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Bucket != "" {
		b.WriteString(" ")
		b.WriteString(e.Bucket)
		if e.Key != "" {
			b.WriteString("/")
			b.WriteString(e.Key)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// WrapErr builds a gateway Error unless err is nil.
func WrapErr(op, bucket, key string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Bucket: bucket, Key: key, Err: err}
}

// IsNotFound checks whether an error indicates a missing bucket or key.
// Providers disagree on the exact shape, so this matches the common
// spellings across AWS and MinIO responses.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	notFoundIndicators := []string{
		"404",
		"notfound",
		"not found",
		"nosuchkey",
		"nosuchbucket",
		"no such key",
	}

	for _, indicator := range notFoundIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// IsAccessDenied checks whether an error is authentication/authorization
// related. Useful for the UI to distinguish bad credentials from outages.
func IsAccessDenied(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	deniedIndicators := []string{
		"403",
		"accessdenied",
		"access denied",
		"unauthorized",
		"invalidaccesskeyid",
		"signaturedoesnotmatch",
		"expired",
	}

	for _, indicator := range deniedIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// IsNetworkError checks whether an error is connectivity-related rather
// than a definitive answer from the store.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	networkIndicators := []string{
		"connection",
		"timeout",
		"network",
		"eof",
		"broken pipe",
		"tls handshake",
		"no such host",
	}

	for _, indicator := range networkIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}
