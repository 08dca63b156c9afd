package vk

import "fmt"

// ErrorType classifies VK API and transport failures
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeAPI         ErrorType = "api"
	ErrorTypeUnsupported ErrorType = "unsupported"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a VK API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("vk %s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("vk %s error: %s", e.Type, e.Message)
}

// VK error codes that map onto specific error types.
// https://dev.vk.com/reference/errors
const (
	apiCodeAuthFailed   = 5
	apiCodeTooMany      = 6
	apiCodePermission   = 7
	apiCodeRateLimited  = 29
	apiCodeAccessDenied = 15
)

// classifyAPIError maps a VK error envelope onto the error taxonomy
func classifyAPIError(code int, message string) *Error {
	errType := ErrorTypeAPI
	switch code {
	case apiCodeAuthFailed:
		errType = ErrorTypeAuth
	case apiCodeTooMany, apiCodeRateLimited:
		errType = ErrorTypeRateLimit
	case apiCodePermission, apiCodeAccessDenied:
		errType = ErrorTypeAuth
	}
	return &Error{
		Type:    errType,
		Message: message,
		Code:    code,
	}
}
