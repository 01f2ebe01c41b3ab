package tappapi

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
)

// Service errors raised while building or interpreting API exchanges.
var (
	// ErrInvalidData means required identity fields were absent when a
	// request was built.
	ErrInvalidData = errors.New("invalid data: required identity fields are missing")
	// ErrInvalidRequest means the request could not be constructed.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidURL means no link token could be extracted from a URL.
	ErrInvalidURL = errors.New("invalid url: link token not found")
	// ErrUnprocessable means the URL does not belong to the link domain.
	ErrUnprocessable = errors.New("unprocessable url")
	// ErrNotFound means no cached origin link is available.
	ErrNotFound = errors.New("not found")
)

// ErrorType represents the category of a failed API exchange
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the server refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeAuth indicates the server rejected the credentials
	ErrTypeAuth
	// ErrTypeHTTP indicates any other non-2xx status code
	ErrTypeHTTP
	// ErrTypeDecoding indicates a malformed response body
	ErrTypeDecoding
	// ErrTypeEncoding indicates the request body could not be encoded
	ErrTypeEncoding
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeDecoding:
		return "Decoding Error"
	case ErrTypeEncoding:
		return "Encoding Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// APIError describes a failed exchange with the attribution API
type APIError struct {
	Type       ErrorType // Category of error
	Endpoint   string    // API path, e.g. "secrets"
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Err        error     // Underlying error (if any)
}

// Error implements the error interface
func (e *APIError) Error() string {
	prefix := e.Type.String()
	if e.Endpoint != "" {
		prefix = fmt.Sprintf("%s [%s]", prefix, e.Endpoint)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *APIError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a typed APIError
func ClassifyNetworkError(err error) *APIError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &APIError{Type: ErrTypeTimeout, Message: "request timed out", Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &APIError{Type: ErrTypeDNS, Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name), Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return &APIError{Type: ErrTypeConnectionRefused, Message: "server refused connection", Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return ClassifyNetworkError(urlErr.Err)
	}

	return &APIError{Type: ErrTypeNetwork, Message: "network error occurred", Err: err}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(endpoint, message string, err error) *APIError {
	classified := ClassifyNetworkError(err)
	if classified == nil {
		classified = &APIError{Type: ErrTypeNetwork}
	}
	classified.Endpoint = endpoint
	classified.Message = message
	return classified
}

// NewHTTPError creates an error for a non-2xx response
func NewHTTPError(endpoint string, statusCode int) *APIError {
	errType := ErrTypeHTTP
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		errType = ErrTypeAuth
	}
	return &APIError{
		Type:       errType,
		Endpoint:   endpoint,
		Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		StatusCode: statusCode,
	}
}

// NewDecodingError creates an error for a response body that could not be decoded
func NewDecodingError(endpoint string, err error) *APIError {
	return &APIError{Type: ErrTypeDecoding, Endpoint: endpoint, Message: "failed to decode response", Err: err}
}

// NewEncodingError creates an error for a request that could not be encoded.
// It matches ErrInvalidRequest.
func NewEncodingError(endpoint string, err error) *APIError {
	return &APIError{
		Type:     ErrTypeEncoding,
		Endpoint: endpoint,
		Message:  "failed to encode request",
		Err:      fmt.Errorf("%w: %w", ErrInvalidRequest, err),
	}
}

func isType(err error, types ...ErrorType) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, t := range types {
		if apiErr.Type == t {
			return true
		}
	}
	return false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	return isType(err, ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS)
}

// IsHTTPError checks if an error came from a non-2xx response
func IsHTTPError(err error) bool {
	return isType(err, ErrTypeHTTP, ErrTypeAuth)
}

// IsAuthError checks if the server rejected the credentials
func IsAuthError(err error) bool {
	return isType(err, ErrTypeAuth)
}

// IsDecodingError checks if a response body was malformed
func IsDecodingError(err error) bool {
	return isType(err, ErrTypeDecoding)
}

// StatusCode returns the HTTP status code carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// ShortMessage returns a concise, user-facing description of err
func ShortMessage(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch apiErr.Type {
	case ErrTypeTimeout:
		return "Attribution API not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Attribution API refused connection"
	case ErrTypeDNS:
		return "Cannot resolve attribution API host"
	case ErrTypeAuth:
		return "Credentials rejected - check the auth token"
	case ErrTypeHTTP:
		return fmt.Sprintf("Attribution API error (HTTP %d)", apiErr.StatusCode)
	case ErrTypeDecoding:
		return "Malformed response from attribution API"
	case ErrTypeEncoding:
		return "Request could not be encoded"
	default:
		return "Network error - check connection"
	}
}
