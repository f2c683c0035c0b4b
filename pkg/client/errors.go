package client

import (
	"fmt"
	"strings"
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// ClassifyStatus maps an HTTP status code to an ErrorClass.
// It returns "" for non-error statuses.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == 429:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// Credential environment variables.
const (
	EnvUser   = "CONFLUENCE_API_USER"
	EnvToken  = "CONFLUENCE_API_TOKEN"
	EnvDomain = "CONFLUENCE_DOMAIN"
)

// ConfigurationError reports missing credentials or invalid settings.
// It is raised once at construction time and never retried.
type ConfigurationError struct {
	// Missing lists unset credential variables in the order user, token,
	// domain.
	Missing []string

	// Reason describes any other invalid setting.
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	switch {
	case e.Reason != "":
		return "invalid configuration: " + e.Reason
	case len(e.Missing) == 1:
		return fmt.Sprintf("%s is not set. Please set it in the .confluence file or directly in the environment.", e.Missing[0])
	case len(e.Missing) > 1:
		return fmt.Sprintf("The following environment variables are not set: %s. Please set them in the .confluence file or directly in the environment.",
			strings.Join(e.Missing, ", "))
	default:
		return "Unknown configuration error occurred."
	}
}

// TransportError wraps a network-level failure (DNS, connect, TLS, timeout).
type TransportError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s: %v", e.Endpoint, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a non-success response to a listing request.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Endpoint   string
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Confluence %s error (status %d) on %s: %s",
			e.ErrorClass, e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("Confluence %s error (status %d) on %s",
		e.ErrorClass, e.StatusCode, e.Endpoint)
}
