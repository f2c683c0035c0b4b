package client

import (
	"errors"
	"io"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorClass
	}{
		{200, ""},
		{204, ""},
		{302, ""},
		{400, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := ClassifyStatus(tt.status); got != tt.expected {
			t.Errorf("ClassifyStatus(%d) = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestConfigurationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigurationError
		expected string
	}{
		{
			name:     "single missing",
			err:      &ConfigurationError{Missing: []string{EnvDomain}},
			expected: "CONFLUENCE_DOMAIN is not set. Please set it in the .confluence file or directly in the environment.",
		},
		{
			name:     "two missing",
			err:      &ConfigurationError{Missing: []string{EnvUser, EnvToken}},
			expected: "The following environment variables are not set: CONFLUENCE_API_USER, CONFLUENCE_API_TOKEN. Please set them in the .confluence file or directly in the environment.",
		},
		{
			name:     "reason",
			err:      &ConfigurationError{Reason: "jitter range must be (min, max)"},
			expected: "invalid configuration: jitter range must be (min, max)",
		},
		{
			name:     "empty",
			err:      &ConfigurationError{},
			expected: "Unknown configuration error occurred.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	err := &TransportError{Endpoint: "/x", Err: io.ErrUnexpectedEOF}

	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is(TransportError, io.ErrUnexpectedEOF) = false, want true")
	}
	if got, want := err.Error(), "request /x: unexpected EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name:     "with message",
			err:      &APIError{StatusCode: 403, ErrorClass: ErrorClassClient, Endpoint: "/wiki/rest/api/space", Message: "forbidden"},
			expected: "Confluence client error (status 403) on /wiki/rest/api/space: forbidden",
		},
		{
			name:     "without message",
			err:      &APIError{StatusCode: 502, ErrorClass: ErrorClassServer, Endpoint: "/x"},
			expected: "Confluence server error (status 502) on /x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}
